package validation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/openportal/pkg/expr"
)

// ValidatorEquals is the built-in cross-field validator comparing a value
// with its single dependency.
const ValidatorEquals = "equals"

// Validators is a named set of check functions referenced from configuration.
// Registering an existing name overwrites it.
type Validators struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	async  map[string]AsyncCheckFunc
	cross  map[string]CrossCheckFunc
}

// NewValidators returns a set holding the built-in validators.
func NewValidators() *Validators {
	v := &Validators{
		checks: make(map[string]CheckFunc),
		async:  make(map[string]AsyncCheckFunc),
		cross:  make(map[string]CrossCheckFunc),
	}
	v.RegisterCross(ValidatorEquals, equals)
	return v
}

func (v *Validators) Register(name string, fn CheckFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.checks[name] = fn
}

func (v *Validators) RegisterAsync(name string, fn AsyncCheckFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.async[name] = fn
}

func (v *Validators) RegisterCross(name string, fn CrossCheckFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cross[name] = fn
}

// Names lists every registered validator name, sorted.
func (v *Validators) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.checks)+len(v.async)+len(v.cross))
	for n := range v.checks {
		names = append(names, n)
	}
	for n := range v.async {
		names = append(names, n)
	}
	for n := range v.cross {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (v *Validators) check(r Rule) (CheckFunc, error) {
	if r.Check != nil {
		return r.Check, nil
	}
	v.mu.RLock()
	fn, ok := v.checks[r.Validator]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown validator %q", r.Validator)
	}
	return fn, nil
}

func (v *Validators) asyncCheck(r Rule) (AsyncCheckFunc, error) {
	if r.AsyncCheck != nil {
		return r.AsyncCheck, nil
	}
	v.mu.RLock()
	fn, ok := v.async[r.Validator]
	v.mu.RUnlock()
	if ok {
		return fn, nil
	}
	// A synchronous validator is also usable from an async rule.
	check, err := v.check(r)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, value any, formData map[string]any) (string, error) {
		return check(value, formData), nil
	}, nil
}

func (v *Validators) crossCheck(r Rule) (CrossCheckFunc, error) {
	if r.CrossCheck != nil {
		return r.CrossCheck, nil
	}
	v.mu.RLock()
	fn, ok := v.cross[r.Validator]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown cross-field validator %q", r.Validator)
	}
	return fn, nil
}

func equals(value any, deps map[string]any, _ map[string]any) string {
	for name, other := range deps {
		if !expr.LooseEqual(value, other) {
			return fmt.Sprintf("Must match %s", name)
		}
	}
	return ""
}
