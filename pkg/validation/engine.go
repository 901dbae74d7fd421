package validation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/expr"
)

const (
	msgRequired  = "This field is required"
	msgMinLength = "Must be at least %d characters"
	msgMaxLength = "Must be at most %d characters"
	msgPattern   = "Invalid format"
	msgMin       = "Must be at least %s"
	msgMax       = "Must be at most %s"
	msgNumber    = "Must be a number"
	msgEmail     = "Invalid email address"
	msgURL       = "Invalid URL"
	msgPhone     = "Invalid phone number"
	msgInvalid   = "Invalid value"
)

// Engine evaluates rules. It is stateless apart from its validator set and
// safe for concurrent use.
type Engine struct {
	validators *Validators
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithValidators sets the named validators rules can reference.
func WithValidators(v *Validators) Option {
	return func(e *Engine) {
		e.validators = v
	}
}

// WithLogger sets the logger used for configuration problems such as an
// unknown validator or an invalid pattern.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. Without WithValidators it uses NewValidators().
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.validators == nil {
		e.validators = NewValidators()
	}
	return e
}

// Validators returns the engine's named validator set.
func (e *Engine) Validators() *Validators { return e.validators }

// Validate runs every synchronous rule and returns the first failure message,
// or "" when the value is valid. Async rules are ignored.
func (e *Engine) Validate(rules []Rule, value any, formData map[string]any) string {
	msg, _ := e.run(context.Background(), rules, value, formData, false)
	return msg
}

// ValidateAsync runs the synchronous rules and, when they pass, the async
// rules in order. The error is non-nil only when an async check itself failed.
func (e *Engine) ValidateAsync(ctx context.Context, rules []Rule, value any, formData map[string]any) (string, error) {
	return e.run(ctx, rules, value, formData, true)
}

// ValidateAll validates every field independently against formData and
// returns the failing fields with their messages.
func (e *Engine) ValidateAll(fields map[string][]Rule, formData map[string]any) map[string]string {
	errs := make(map[string]string)
	for name, rules := range fields {
		if msg := e.Validate(rules, formData[name], formData); msg != "" {
			errs[name] = msg
		}
	}
	return errs
}

func (e *Engine) run(ctx context.Context, rules []Rule, value any, formData map[string]any, async bool) (string, error) {
	required := false
	for _, r := range rules {
		if r.Type != RuleRequired {
			continue
		}
		required = true
		if IsEmpty(value) {
			return message(r, msgRequired), nil
		}
	}
	if !required && IsEmpty(value) {
		return "", nil
	}

	for _, r := range rules {
		switch r.Type {
		case RuleRequired:
			continue
		case RuleAsyncCustom:
			if !async {
				continue
			}
			fn, err := e.validators.asyncCheck(r)
			if err != nil {
				e.misconfigured(r, err)
				return message(r, msgInvalid), nil
			}
			msg, err := fn(ctx, value, formData)
			if err != nil {
				return "", fmt.Errorf("async validator %q: %w", r.Validator, err)
			}
			if msg != "" {
				return message(r, msg), nil
			}
		default:
			if msg := e.check(r, value, formData); msg != "" {
				return msg, nil
			}
		}
	}
	return "", nil
}

// check evaluates one synchronous rule.
func (e *Engine) check(r Rule, value any, formData map[string]any) string {
	switch r.Type {
	case RuleMinLength, RuleMaxLength:
		limit := expr.ToNumber(r.Value)
		if math.IsNaN(limit) {
			e.misconfigured(r, fmt.Errorf("length bound %v is not a number", r.Value))
			return message(r, msgInvalid)
		}
		n := length(value)
		if r.Type == RuleMinLength && float64(n) < limit {
			return message(r, fmt.Sprintf(msgMinLength, int(limit)))
		}
		if r.Type == RuleMaxLength && float64(n) > limit {
			return message(r, fmt.Sprintf(msgMaxLength, int(limit)))
		}
	case RuleMin, RuleMax:
		bound := expr.ToNumber(r.Value)
		if math.IsNaN(bound) {
			e.misconfigured(r, fmt.Errorf("bound %v is not a number", r.Value))
			return message(r, msgInvalid)
		}
		n := expr.ToNumber(value)
		if math.IsNaN(n) {
			return msgNumber
		}
		if r.Type == RuleMin && n < bound {
			return message(r, fmt.Sprintf(msgMin, expr.FormatNumber(bound)))
		}
		if r.Type == RuleMax && n > bound {
			return message(r, fmt.Sprintf(msgMax, expr.FormatNumber(bound)))
		}
	case RulePattern:
		pattern, _ := r.Value.(string)
		return e.match(r, pattern, value, msgPattern)
	case RuleEmail:
		return e.match(r, emailPattern, value, msgEmail)
	case RuleURL:
		return e.match(r, urlPattern, value, msgURL)
	case RulePhone:
		return e.match(r, phonePattern, value, msgPhone)
	case RuleCustom:
		fn, err := e.validators.check(r)
		if err != nil {
			e.misconfigured(r, err)
			return message(r, msgInvalid)
		}
		if msg := fn(value, formData); msg != "" {
			return message(r, msg)
		}
	case RuleCrossField:
		fn, err := e.validators.crossCheck(r)
		if err != nil {
			e.misconfigured(r, err)
			return message(r, msgInvalid)
		}
		deps := make(map[string]any, len(r.Dependencies))
		for _, d := range r.Dependencies {
			deps[d], _ = expr.Lookup(formData, d)
		}
		if msg := fn(value, deps, formData); msg != "" {
			return message(r, msg)
		}
	default:
		e.misconfigured(r, fmt.Errorf("unknown rule type %q", r.Type))
		return message(r, msgInvalid)
	}
	return ""
}

func (e *Engine) match(r Rule, pattern string, value any, fallback string) string {
	re, err := compilePattern(pattern)
	if err != nil {
		e.misconfigured(r, err)
		return message(r, fallback)
	}
	if !re.MatchString(expr.ToString(value)) {
		return message(r, fallback)
	}
	return ""
}

func (e *Engine) misconfigured(r Rule, err error) {
	e.logger.Warn("invalid validation rule", "rule", string(r.Type), "validator", r.Validator, "err", err)
}

// Dependencies returns the fields the cross-field rules of a field read.
func Dependencies(rules []Rule) []string {
	var deps []string
	for _, r := range rules {
		if r.Type == RuleCrossField {
			deps = append(deps, r.Dependencies...)
		}
	}
	return deps
}

// HasAsync reports whether any rule needs ValidateAsync.
func HasAsync(rules []Rule) bool {
	for _, r := range rules {
		if r.Async() {
			return true
		}
	}
	return false
}

// IsEmpty reports the values a required rule rejects: nil, blank strings and
// empty collections.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

func length(v any) int {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len()
	}
	return utf8.RuneCountInString(expr.ToString(v))
}

// message prefers the rule's configured message over the computed one.
func message(r Rule, fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}
