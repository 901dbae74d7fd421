package openportal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/internal/runtime"
	"github.com/aretw0/openportal/pkg/actions"
	"github.com/aretw0/openportal/pkg/conditional"
	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/form"
	"github.com/aretw0/openportal/pkg/observability"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/aretw0/openportal/pkg/validation"
)

// FailureOrder selects which failure a parallel combinator reports.
type FailureOrder = runtime.FailureOrder

const (
	// FailureOrderSettle reports the first child to fail in completion order.
	FailureOrderSettle = runtime.FailureOrderSettle
	// FailureOrderArray reports the failed child with the lowest index.
	FailureOrderArray = runtime.FailureOrderArray
)

// Engine is the high-level entry point for the OpenPortal library.
// It wires the action registry, the built-in handlers, the graph runner and
// the form registry, and provides a simplified API for consumers.
type Engine struct {
	registry    *registry.Registry
	runner      *runtime.Runner
	forms       *form.Registry
	validation  *validation.Engine
	conditional *conditional.Engine
	services    domain.Services
	metrics     *observability.Metrics
	logger      *slog.Logger

	hooks        []domain.LifecycleHooks
	handlers     []handlerSpec
	actionOpts   []actions.Option
	failureOrder FailureOrder
	validators   *validation.Validators
	registerer   prometheus.Registerer
}

type handlerSpec struct {
	kind    string
	handler registry.Handler
	opts    []registry.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithServices sets the default service handles. They fill the handles an
// execution context leaves unset.
func WithServices(s domain.Services) Option {
	return func(e *Engine) {
		e.services = s
	}
}

// WithHandler registers a custom action kind. It replaces a built-in of the same kind.
func WithHandler(kind string, h registry.Handler, opts ...registry.Option) Option {
	return func(e *Engine) {
		e.handlers = append(e.handlers, handlerSpec{kind: kind, handler: h, opts: opts})
	}
}

// WithHooks registers lifecycle callbacks. It can be given more than once.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithParallelFailureOrder chooses how parallel picks its reported failure.
func WithParallelFailureOrder(order FailureOrder) Option {
	return func(e *Engine) {
		e.failureOrder = order
	}
}

// WithMetrics registers Prometheus collectors with reg and feeds them from the runner.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}

// WithActionsEndpoint sets the gateway used by executeAction.
func WithActionsEndpoint(url string) Option {
	return func(e *Engine) {
		e.actionOpts = append(e.actionOpts, actions.WithActionsEndpoint(url))
	}
}

// WithValidators shares a named validator registry with every form.
func WithValidators(v *validation.Validators) Option {
	return func(e *Engine) {
		e.validators = v
	}
}

// New creates an engine with the built-in handlers registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		registry: registry.New(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registerer != nil {
		m, err := observability.NewMetrics(e.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		e.metrics = m
		e.hooks = append(e.hooks, m.Hooks())
	}

	actions.RegisterBuiltins(e.registry, append([]actions.Option{actions.WithLogger(e.logger)}, e.actionOpts...)...)
	for _, h := range e.handlers {
		e.registry.Register(h.kind, h.handler, h.opts...)
	}

	e.runner = runtime.NewRunner(e.registry,
		runtime.WithLogger(e.logger),
		runtime.WithHooks(observability.Aggregate(e.hooks...)),
		runtime.WithParallelFailureOrder(e.failureOrder),
	)

	validationOpts := []validation.Option{validation.WithLogger(e.logger)}
	if e.validators != nil {
		validationOpts = append(validationOpts, validation.WithValidators(e.validators))
	}
	e.validation = validation.New(validationOpts...)
	e.conditional = conditional.New(conditional.WithLogger(e.logger))
	e.forms = form.NewRegistry(form.WithRegistryLogger(e.logger))

	return e, nil
}

// Run executes node against ectx. Service handles missing from ectx are
// taken from the engine; the form registry answers form actions.
// The error is non-nil only when the tree is malformed.
func (e *Engine) Run(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) (*domain.Execution, error) {
	if ectx == nil {
		ectx = domain.NewExecutionContext()
	}
	return e.runner.Run(ctx, node, ectx.WithServices(e.bind(ectx.Services)))
}

// bind fills the unset handles of s with the engine defaults.
func (e *Engine) bind(s domain.Services) domain.Services {
	d := e.services
	if s.HTTP == nil {
		s.HTTP = d.HTTP
	}
	if s.Navigation == nil {
		s.Navigation = d.Navigation
	}
	if s.Toast == nil {
		s.Toast = d.Toast
	}
	if s.Modal == nil {
		s.Modal = d.Modal
	}
	if s.Datasource == nil {
		s.Datasource = d.Datasource
	}
	if s.Cache == nil {
		s.Cache = d.Cache
	}
	if s.Files == nil {
		s.Files = d.Files
	}
	if s.Forms == nil {
		s.Forms = d.Forms
	}
	if s.Forms == nil {
		s.Forms = e.forms
	}
	return s
}

// Validate checks a graph statically against the registered kinds.
func (e *Engine) Validate(node *domain.ActionNode) *config.Report {
	return config.ValidateGraph(node, e.registry)
}

// Kinds lists every registered kind, combinators included.
func (e *Engine) Kinds() []string {
	return e.registry.Kinds()
}

// Descriptors describes every registered kind.
func (e *Engine) Descriptors() []registry.Descriptor {
	return e.registry.Descriptors()
}

// Registry exposes the action registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Forms exposes the registry of mounted forms.
func (e *Engine) Forms() *form.Registry {
	return e.forms
}

// Validators exposes the named validator registry shared by forms.
func (e *Engine) Validators() *validation.Validators {
	return e.validation.Validators()
}

// NewForm creates a form controller that submits through this engine and
// mounts it so form actions can address it by ID. Call release when the
// form goes away.
func (e *Engine) NewForm(cfg form.Config, opts ...form.Option) (c *form.Controller, release func(), err error) {
	if err := cfg.Check(); err != nil {
		return nil, nil, err
	}
	base := []form.Option{
		form.WithLogger(e.logger),
		form.WithValidation(e.validation),
		form.WithConditional(e.conditional),
		form.WithRunner(e),
	}
	c = form.New(cfg, append(base, opts...)...)
	return c, e.forms.Mount(c), nil
}
