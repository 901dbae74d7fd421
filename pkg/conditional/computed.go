package conditional

import (
	"math"

	"github.com/aretw0/openportal/pkg/expr"
)

// ComputedField derives its value from other fields. Dependencies are
// declared, never inferred, so only edits to them trigger recomputation.
type ComputedField struct {
	Name         string   `json:"name" yaml:"name" mapstructure:"name"`
	Dependencies []string `json:"dependencies" yaml:"dependencies" mapstructure:"dependencies"`
	Expression   string   `json:"expression,omitempty" yaml:"expression,omitempty" mapstructure:"expression"`
	Precision    *int     `json:"precision,omitempty" yaml:"precision,omitempty" mapstructure:"precision"`

	Compute func(formData map[string]any) any `json:"-" yaml:"-" mapstructure:"-"`
}

// Recompute evaluates the computed fields affected by the changed field names,
// or all of them when changed is empty, and returns the values that differ
// from formData. Fields are evaluated in order against a working copy, so a
// computed field may depend on an earlier one.
func (e *Engine) Recompute(formData map[string]any, fields []ComputedField, changed ...string) map[string]any {
	work := make(map[string]any, len(formData))
	for k, v := range formData {
		work[k] = v
	}
	dirty := make(map[string]bool, len(changed))
	for _, c := range changed {
		dirty[c] = true
	}

	patch := make(map[string]any)
	for _, f := range fields {
		if len(changed) > 0 && !dependsOnAny(f, dirty) {
			continue
		}
		v, ok := e.compute(f, work)
		if !ok {
			continue
		}
		if expr.StrictEqual(work[f.Name], v) {
			continue
		}
		work[f.Name] = v
		patch[f.Name] = v
		dirty[f.Name] = true
	}
	return patch
}

func dependsOnAny(f ComputedField, dirty map[string]bool) bool {
	for _, d := range f.Dependencies {
		if dirty[d] {
			return true
		}
	}
	return false
}

func (e *Engine) compute(f ComputedField, formData map[string]any) (any, bool) {
	var v any
	switch {
	case f.Compute != nil:
		v = f.Compute(formData)
	case f.Expression != "":
		out, ok := e.eval(f.Expression, formData)
		if !ok {
			return nil, false
		}
		v = out
	default:
		return nil, false
	}
	if f.Precision != nil && expr.IsNumber(v) {
		v = Round(expr.ToNumber(v), *f.Precision)
	}
	return v, true
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
