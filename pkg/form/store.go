package form

import (
	"sort"

	"github.com/mitchellh/copystructure"

	"github.com/aretw0/openportal/pkg/conditional"
	"github.com/aretw0/openportal/pkg/expr"
	"github.com/aretw0/openportal/pkg/validation"
)

// FieldState is the view of one registered field.
type FieldState struct {
	Name    string            `json:"name"`
	Value   any               `json:"value"`
	Error   string            `json:"error,omitempty"`
	Touched bool              `json:"touched"`
	Dirty   bool              `json:"dirty"`
	Visible bool              `json:"visible"`
	Rules   []validation.Rule `json:"rules,omitempty"`
}

// State is a snapshot of the whole form.
type State struct {
	Values       map[string]any    `json:"values"`
	Errors       map[string]string `json:"errors"`
	Touched      map[string]bool   `json:"touched"`
	IsSubmitting bool              `json:"isSubmitting"`
	SubmitCount  int               `json:"submitCount"`
	IsValid      bool              `json:"isValid"`
	IsDirty      bool              `json:"isDirty"`
}

type field struct {
	rules      []validation.Rule
	visibility *conditional.Visibility
	visible    bool
}

// Store is the state machine of one form. It is not synchronized; a
// Controller serializes access to it.
type Store struct {
	initial     map[string]any
	values      map[string]any
	fields      map[string]*field
	errors      map[string]string
	touched     map[string]bool
	submitting  bool
	submitCount int
}

// NewStore creates a store seeded with initial values.
func NewStore(initial map[string]any) *Store {
	s := &Store{
		fields:  make(map[string]*field),
		errors:  make(map[string]string),
		touched: make(map[string]bool),
	}
	s.initial = clone(initial)
	s.values = clone(initial)
	return s
}

// Register creates the field if absent. The value is seeded from the initial
// values only when the form has no value for it yet, so a field that was
// unregistered and registers again keeps what the user typed.
func (s *Store) Register(name string, rules []validation.Rule, vis *conditional.Visibility) {
	f, ok := s.fields[name]
	if !ok {
		f = &field{visible: true}
		s.fields[name] = f
	}
	f.rules = rules
	f.visibility = vis
	if _, ok := s.values[name]; !ok {
		s.values[name] = s.initial[name]
	}
}

// Unregister deactivates the field. Its value is retained until Reset.
func (s *Store) Unregister(name string) {
	delete(s.fields, name)
	delete(s.errors, name)
	delete(s.touched, name)
}

// Registered reports whether name is an active field.
func (s *Store) Registered(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Names returns the registered field names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.fields))
	for n := range s.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Value(name string) any { return s.values[name] }

// SetValue stores a value and reports whether it changed.
func (s *Store) SetValue(name string, value any) bool {
	old, had := s.values[name]
	s.values[name] = value
	return !had || !expr.StrictEqual(old, value)
}

func (s *Store) SetTouched(name string, touched bool) {
	if touched {
		s.touched[name] = true
		return
	}
	delete(s.touched, name)
}

func (s *Store) SetError(name, msg string) {
	if msg == "" {
		delete(s.errors, name)
		return
	}
	s.errors[name] = msg
}

func (s *Store) ClearError(name string) { delete(s.errors, name) }

// SetErrors merges the given errors in; empty messages clear.
func (s *Store) SetErrors(errs map[string]string) {
	for name, msg := range errs {
		s.SetError(name, msg)
	}
}

func (s *Store) ClearErrors() { s.errors = make(map[string]string) }

// Dirty reports whether a field's value differs from its initial value.
func (s *Store) Dirty(name string) bool {
	return !expr.StrictEqual(s.values[name], s.initial[name])
}

// Reset restores the initial values, or replaces them when initial is non-nil,
// and clears errors, touched flags and submission state. Values of fields that
// are neither registered nor initial are dropped.
func (s *Store) Reset(initial map[string]any) {
	if initial != nil {
		s.initial = clone(initial)
	}
	s.values = clone(s.initial)
	for name := range s.fields {
		if _, ok := s.values[name]; !ok {
			s.values[name] = nil
		}
	}
	s.errors = make(map[string]string)
	s.touched = make(map[string]bool)
	s.submitting = false
	s.submitCount = 0
}

// Field returns the view of a registered field.
func (s *Store) Field(name string) (FieldState, bool) {
	f, ok := s.fields[name]
	if !ok {
		return FieldState{}, false
	}
	return FieldState{
		Name:    name,
		Value:   s.values[name],
		Error:   s.errors[name],
		Touched: s.touched[name],
		Dirty:   s.Dirty(name),
		Visible: f.visible,
		Rules:   f.rules,
	}, true
}

// Snapshot copies the aggregate state.
func (s *Store) Snapshot() State {
	st := State{
		Values:       clone(s.values),
		Errors:       make(map[string]string, len(s.errors)),
		Touched:      make(map[string]bool, len(s.touched)),
		IsSubmitting: s.submitting,
		SubmitCount:  s.submitCount,
		IsValid:      len(s.errors) == 0,
	}
	for k, v := range s.errors {
		st.Errors[k] = v
	}
	for k := range s.touched {
		st.Touched[k] = true
	}
	for name := range s.fields {
		if s.Dirty(name) {
			st.IsDirty = true
			break
		}
	}
	return st
}

// clone deep-copies a value map so callers never share nested maps with the store.
func clone(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	c, err := copystructure.Copy(m)
	if err != nil {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return c.(map[string]any)
}
