package actions

import (
	"context"
	"fmt"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/expr"
)

func setState(_ context.Context, params map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
	return statePatch(domain.KindSetState, domain.PatchSet, params)
}

func mergeState(_ context.Context, params map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
	return statePatch(domain.KindMergeState, domain.PatchMerge, params)
}

func statePatch(kind string, op domain.PatchOp, params map[string]any) (domain.Output, error) {
	scope, values, err := stateTarget(params)
	if err != nil {
		return domain.Output{}, fmt.Errorf("%s: %w", kind, err)
	}
	values = evaluateArithmetic(values).(map[string]any)
	return domain.PatchOutput(domain.StatePatch{Scope: scope, Op: op, Values: values}), nil
}

// stateTarget accepts either {"scope": ..., "values": {...}} or a bare map of
// values for pageState.
func stateTarget(params map[string]any) (domain.StateScope, map[string]any, error) {
	values, explicit := params["values"].(map[string]any)
	if !explicit {
		return domain.ScopePageState, params, nil
	}
	for k := range params {
		if k != "values" && k != "scope" {
			return domain.ScopePageState, params, nil
		}
	}
	scope, err := parseScope(params["scope"])
	if err != nil {
		return "", nil, err
	}
	return scope, values, nil
}

func parseScope(raw any) (domain.StateScope, error) {
	if raw == nil {
		return domain.ScopePageState, nil
	}
	s, _ := raw.(string)
	switch domain.StateScope(s) {
	case domain.ScopePageState, domain.ScopeFormData, domain.ScopeWidgetStates:
		return domain.StateScope(s), nil
	}
	return "", fmt.Errorf("unknown state scope %v", raw)
}

// evaluateArithmetic turns pure arithmetic strings into numbers, deeply.
func evaluateArithmetic(v any) any {
	switch t := v.(type) {
	case string:
		if n, ok := expr.Arithmetic(t); ok {
			return n
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = evaluateArithmetic(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = evaluateArithmetic(item)
		}
		return out
	}
	return v
}

type resetStateParams struct {
	Keys  any    `mapstructure:"keys"`
	Scope string `mapstructure:"scope"`
}

func resetState(_ context.Context, params map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
	p, err := decodeParams[resetStateParams](domain.KindResetState, params)
	if err != nil {
		return domain.Output{}, err
	}
	var scopeRaw any
	if p.Scope != "" {
		scopeRaw = p.Scope
	}
	scope, err := parseScope(scopeRaw)
	if err != nil {
		return domain.Output{}, fmt.Errorf("%s: %w", domain.KindResetState, err)
	}
	patch := domain.ResetPatch(scope, stringList(p.Keys)...)
	return domain.Output{Value: patch.Keys, Patch: &patch}, nil
}

// stringList accepts a single string or a list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
