package domain

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/mitchellh/copystructure"
)

// StateScope names a writable slice of the execution context.
type StateScope string

const (
	ScopePageState    StateScope = NamespacePageState
	ScopeFormData     StateScope = NamespaceFormData
	ScopeWidgetStates StateScope = NamespaceWidgetStates
)

// PatchOp is the kind of change a patch applies.
type PatchOp string

const (
	// PatchSet assigns keys (dotted keys address nested maps).
	PatchSet PatchOp = "set"
	// PatchMerge deep-merges Values into the scope.
	PatchMerge PatchOp = "merge"
	// PatchReset removes Keys, or clears the scope when Keys is empty.
	PatchReset PatchOp = "reset"
)

// StatePatch is an explicit, replayable state change returned by a handler.
type StatePatch struct {
	Scope  StateScope     `json:"scope"`
	Op     PatchOp        `json:"op"`
	Values map[string]any `json:"values,omitempty"`
	Keys   []string       `json:"keys,omitempty"`
}

// Apply returns a new context with the patches applied in order.
// The receiver and every map reachable from it are left untouched.
func (c *ExecutionContext) Apply(patches ...StatePatch) (*ExecutionContext, error) {
	next := c.clone()
	if len(patches) == 0 {
		return next, nil
	}

	copied := map[StateScope]bool{}
	for _, p := range patches {
		target := next.scopeRef(p.Scope)
		if target == nil {
			return nil, fmt.Errorf("apply patch: unknown scope %q", p.Scope)
		}
		if !copied[p.Scope] {
			fresh, err := deepCopyMap(*target)
			if err != nil {
				return nil, fmt.Errorf("apply patch: copy %s: %w", p.Scope, err)
			}
			*target = fresh
			copied[p.Scope] = true
		}
		if err := applyOne(*target, p); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (c *ExecutionContext) scopeRef(s StateScope) *map[string]any {
	switch s {
	case ScopePageState:
		return &c.PageState
	case ScopeFormData:
		return &c.FormData
	case ScopeWidgetStates:
		return &c.WidgetStates
	}
	return nil
}

func applyOne(dst map[string]any, p StatePatch) error {
	values, err := deepCopyMap(p.Values)
	if err != nil {
		return fmt.Errorf("apply patch: copy values: %w", err)
	}

	switch p.Op {
	case PatchSet:
		for k, v := range values {
			setPath(dst, k, v)
		}
	case PatchMerge:
		if err := mergo.Merge(&dst, values, mergo.WithOverride); err != nil {
			return fmt.Errorf("apply patch: merge %s: %w", p.Scope, err)
		}
	case PatchReset:
		if len(p.Keys) == 0 {
			for k := range dst {
				delete(dst, k)
			}
			return nil
		}
		for _, k := range p.Keys {
			deletePath(dst, k)
		}
	default:
		return fmt.Errorf("apply patch: unknown op %q", p.Op)
	}
	return nil
}

func deepCopyMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	out, err := copystructure.Copy(m)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func setPath(dst map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := dst
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func deletePath(dst map[string]any, path string) {
	parts := strings.Split(path, ".")
	cur := dst
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// SetPatch is shorthand for a set patch.
func SetPatch(scope StateScope, values map[string]any) StatePatch {
	return StatePatch{Scope: scope, Op: PatchSet, Values: values}
}

// MergePatch is shorthand for a merge patch.
func MergePatch(scope StateScope, values map[string]any) StatePatch {
	return StatePatch{Scope: scope, Op: PatchMerge, Values: values}
}

// ResetPatch is shorthand for a reset patch.
func ResetPatch(scope StateScope, keys ...string) StatePatch {
	return StatePatch{Scope: scope, Op: PatchReset, Keys: keys}
}
