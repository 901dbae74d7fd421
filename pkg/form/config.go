package form

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/openportal/pkg/conditional"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/validation"
)

// Mode selects which interactions trigger field validation.
type Mode string

const (
	ModeOnChange Mode = "onChange"
	ModeOnBlur   Mode = "onBlur"
	ModeOnSubmit Mode = "onSubmit"
	ModeAll      Mode = "all"
)

func (m Mode) onChange() bool { return m == ModeOnChange || m == ModeAll }

func (m Mode) onBlur() bool { return m == ModeOnBlur || m == ModeAll }

func (m Mode) valid() bool {
	switch m {
	case ModeOnChange, ModeOnBlur, ModeOnSubmit, ModeAll:
		return true
	}
	return false
}

// Config is the declarative description of a form.
type Config struct {
	ID              string                              `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	InitialValues   map[string]any                      `json:"initialValues,omitempty" yaml:"initialValues,omitempty" mapstructure:"initialValues"`
	ValidationRules map[string][]validation.Rule        `json:"validationRules,omitempty" yaml:"validationRules,omitempty" mapstructure:"-"`
	ValidationMode  Mode                                `json:"validationMode,omitempty" yaml:"validationMode,omitempty" mapstructure:"validationMode"`
	ValidateOnMount bool                                `json:"validateOnMount,omitempty" yaml:"validateOnMount,omitempty" mapstructure:"validateOnMount"`
	Visibility      map[string]*conditional.Visibility `json:"visibility,omitempty" yaml:"visibility,omitempty" mapstructure:"visibility"`
	Computed        []conditional.ComputedField         `json:"computed,omitempty" yaml:"computed,omitempty" mapstructure:"computed"`
	// Submit is the action graph run on submit with the form values as formData.
	Submit *domain.ActionNode `json:"submit,omitempty" yaml:"submit,omitempty" mapstructure:"submit"`
}

// DecodeConfig builds a Config from generic document data (decoded JSON or YAML).
func DecodeConfig(raw map[string]any) (Config, error) {
	var cfg Config
	rest := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "validationRules" {
			rest[k] = v
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(rest); err != nil {
		return cfg, fmt.Errorf("decode form config: %w", err)
	}

	if rules, ok := raw["validationRules"].(map[string]any); ok {
		cfg.ValidationRules = make(map[string][]validation.Rule, len(rules))
		for field, list := range rules {
			decoded, err := validation.DecodeRules(list)
			if err != nil {
				return cfg, fmt.Errorf("field %q: %w", field, err)
			}
			cfg.ValidationRules[field] = decoded
		}
	}
	return cfg, cfg.Check()
}

// Check reports configuration errors that would make the form misbehave.
func (c Config) Check() error {
	if c.ValidationMode != "" && !c.ValidationMode.valid() {
		return fmt.Errorf("unknown validation mode %q", c.ValidationMode)
	}
	seen := make(map[string]bool, len(c.Computed))
	for i, f := range c.Computed {
		if f.Name == "" {
			return fmt.Errorf("computed field %d has no name", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("computed field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if f.Expression == "" && f.Compute == nil {
			return fmt.Errorf("computed field %q needs an expression", f.Name)
		}
	}
	if c.Submit != nil {
		if err := domain.Check(c.Submit); err != nil {
			return fmt.Errorf("submit action: %w", err)
		}
	}
	return nil
}

// fieldNames lists the fields the configuration itself knows about.
func (c Config) fieldNames() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for n := range c.InitialValues {
		add(n)
	}
	for n := range c.ValidationRules {
		add(n)
	}
	for n := range c.Visibility {
		add(n)
	}
	sort.Strings(names)
	return names
}
