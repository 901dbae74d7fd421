package validation

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// RuleType tags a validation rule.
type RuleType string

const (
	RuleRequired    RuleType = "required"
	RuleMinLength   RuleType = "minLength"
	RuleMaxLength   RuleType = "maxLength"
	RulePattern     RuleType = "pattern"
	RuleMin         RuleType = "min"
	RuleMax         RuleType = "max"
	RuleEmail       RuleType = "email"
	RuleURL         RuleType = "url"
	RulePhone       RuleType = "phone"
	RuleCustom      RuleType = "custom"
	RuleAsyncCustom RuleType = "asyncCustom"
	RuleCrossField  RuleType = "crossField"
)

// CheckFunc validates a value against the whole form. It returns "" when the
// value is valid, or the error message.
type CheckFunc func(value any, formData map[string]any) string

// AsyncCheckFunc is a CheckFunc that may block, typically on a server round trip.
type AsyncCheckFunc func(ctx context.Context, value any, formData map[string]any) (string, error)

// CrossCheckFunc validates a value against the resolved values of its dependencies.
type CrossCheckFunc func(value any, deps map[string]any, formData map[string]any) string

// Rule is one validation rule attached to a field.
type Rule struct {
	Type         RuleType `json:"type" yaml:"type" mapstructure:"type"`
	Value        any      `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Message      string   `json:"message,omitempty" yaml:"message,omitempty" mapstructure:"message"`
	Validator    string   `json:"validator,omitempty" yaml:"validator,omitempty" mapstructure:"validator"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" mapstructure:"dependencies"`

	Check      CheckFunc      `json:"-" yaml:"-" mapstructure:"-"`
	AsyncCheck AsyncCheckFunc `json:"-" yaml:"-" mapstructure:"-"`
	CrossCheck CrossCheckFunc `json:"-" yaml:"-" mapstructure:"-"`
}

// Async reports whether the rule can only run in ValidateAsync.
func (r Rule) Async() bool { return r.Type == RuleAsyncCustom }

func Required(message string) Rule { return Rule{Type: RuleRequired, Message: message} }

func MinLength(n int, message string) Rule {
	return Rule{Type: RuleMinLength, Value: n, Message: message}
}

func MaxLength(n int, message string) Rule {
	return Rule{Type: RuleMaxLength, Value: n, Message: message}
}

func Pattern(re string, message string) Rule {
	return Rule{Type: RulePattern, Value: re, Message: message}
}

func Min(n float64, message string) Rule { return Rule{Type: RuleMin, Value: n, Message: message} }

func Max(n float64, message string) Rule { return Rule{Type: RuleMax, Value: n, Message: message} }

func Email(message string) Rule { return Rule{Type: RuleEmail, Message: message} }

func URL(message string) Rule { return Rule{Type: RuleURL, Message: message} }

func Phone(message string) Rule { return Rule{Type: RulePhone, Message: message} }

// Custom wraps a synchronous check.
func Custom(fn CheckFunc) Rule { return Rule{Type: RuleCustom, Check: fn} }

// AsyncCustom wraps a blocking check.
func AsyncCustom(fn AsyncCheckFunc) Rule { return Rule{Type: RuleAsyncCustom, AsyncCheck: fn} }

// CrossField wraps a check that reads other fields.
func CrossField(deps []string, fn CrossCheckFunc) Rule {
	return Rule{Type: RuleCrossField, Dependencies: deps, CrossCheck: fn}
}

// Equals is the cross-field rule "value must equal field".
func Equals(field, message string) Rule {
	return Rule{Type: RuleCrossField, Validator: ValidatorEquals, Dependencies: []string{field}, Message: message}
}

// DecodeRules converts configuration data (a list of rule maps) into rules.
// A bare string is shorthand for a rule with no arguments, e.g. "required".
func DecodeRules(raw any) ([]Rule, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		var rules []Rule
		if err := mapstructure.WeakDecode(raw, &rules); err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
		return rules, nil
	}
	rules := make([]Rule, 0, len(items))
	for i, item := range items {
		if s, ok := item.(string); ok {
			rules = append(rules, Rule{Type: RuleType(s)})
			continue
		}
		var r Rule
		if err := mapstructure.WeakDecode(item, &r); err != nil {
			return nil, fmt.Errorf("decode rule %d: %w", i, err)
		}
		if r.Type == "" {
			return nil, fmt.Errorf("decode rule %d: missing type", i)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
