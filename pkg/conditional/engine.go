package conditional

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/expr"
)

const formDataPrefix = "formData."

// Engine evaluates visibility and computed-field expressions against form data.
type Engine struct {
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger that receives security and syntax warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetDependencies returns the form fields an expression reads. Fields may be
// referenced bare ("country") or qualified ("formData.country"); both yield
// "country". An expression that does not compile has no dependencies.
func GetDependencies(expression string) []string {
	paths, err := expr.Dependencies(expression)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimPrefix(p, formDataPrefix)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// scope exposes form data both bare and under "formData".
func scope(formData map[string]any) map[string]any {
	s := make(map[string]any, len(formData)+1)
	for k, v := range formData {
		s[k] = v
	}
	s["formData"] = formData
	return s
}

// eval evaluates src and reports failures as warnings. Rejected or invalid
// expressions yield ok=false.
func (e *Engine) eval(src string, formData map[string]any) (any, bool) {
	v, err := expr.Eval(src, scope(formData))
	if err != nil {
		if errors.Is(err, expr.ErrRejected) {
			e.logger.Warn("expression rejected", "expression", src, "reason", err.Error())
		} else {
			e.logger.Warn("invalid expression", "expression", src, "err", err)
		}
		return nil, false
	}
	return v, true
}
