package conditional

import (
	"github.com/aretw0/openportal/pkg/expr"
)

// Visibility gates whether a field renders. Every configured part must pass.
type Visibility struct {
	Condition   string   `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
	Roles       []string `json:"roles,omitempty" yaml:"roles,omitempty" mapstructure:"roles"`
	Permissions []string `json:"permissions,omitempty" yaml:"permissions,omitempty" mapstructure:"permissions"`
}

// Principal is the user the form is rendered for.
type Principal struct {
	Roles       []string
	Permissions []string
}

// IsVisible reports whether a field with the given visibility renders.
// A nil visibility is always visible. Roles need any one match, permissions
// need all to match, and the condition must be truthy. A condition that is
// rejected or does not parse hides the field.
func (e *Engine) IsVisible(v *Visibility, formData map[string]any, who Principal) bool {
	if v == nil {
		return true
	}
	if len(v.Roles) > 0 && !anyOf(v.Roles, who.Roles) {
		return false
	}
	if len(v.Permissions) > 0 && !allOf(v.Permissions, who.Permissions) {
		return false
	}
	if v.Condition == "" {
		return true
	}
	out, ok := e.eval(v.Condition, formData)
	return ok && expr.Truthy(out)
}

// Dependencies returns the fields the visibility condition reads.
func (v *Visibility) Dependencies() []string {
	if v == nil || v.Condition == "" {
		return nil
	}
	return GetDependencies(v.Condition)
}

func anyOf(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

func allOf(want, have []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}
