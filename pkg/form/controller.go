package form

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/conditional"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/validation"
)

// ErrSubmitInProgress is returned by Submit while a previous submit is running.
var ErrSubmitInProgress = errors.New("form submission already in progress")

// ErrStaleValidation is returned by ValidateFieldAsync when the field changed
// while the validation was running. The result was not applied.
var ErrStaleValidation = errors.New("validation result is stale")

// Runner executes action graphs. *runtime.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) (*domain.Execution, error)
}

// SubmitFunc handles a valid submission.
type SubmitFunc func(ctx context.Context, values map[string]any) (any, error)

// Controller binds a Store to the validation and conditional engines.
type Controller struct {
	id     string
	cfg    Config
	mode   Mode
	logger *slog.Logger

	validator *validation.Engine
	cond      *conditional.Engine
	principal conditional.Principal

	runner   Runner
	ectx     *domain.ExecutionContext
	onSubmit SubmitFunc

	mu         sync.Mutex
	store      *Store
	generation map[string]uint64
	epoch      uint64 // bumped by Reset
	dependents map[string]map[string]bool // dependency -> fields with cross-field rules on it
	pending    sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithValidation sets the validation engine, e.g. one with custom named validators.
func WithValidation(e *validation.Engine) Option {
	return func(c *Controller) {
		c.validator = e
	}
}

// WithConditional sets the conditional field engine.
func WithConditional(e *conditional.Engine) Option {
	return func(c *Controller) {
		c.cond = e
	}
}

// WithPrincipal sets the user that role and permission visibility rules check.
func WithPrincipal(p conditional.Principal) Option {
	return func(c *Controller) {
		c.principal = p
	}
}

// WithRunner sets the runner that executes Config.Submit.
func WithRunner(r Runner) Option {
	return func(c *Controller) {
		c.runner = r
	}
}

// WithExecutionContext sets the base context the submit graph runs in.
// Form values replace its formData.
func WithExecutionContext(ectx *domain.ExecutionContext) Option {
	return func(c *Controller) {
		c.ectx = ectx
	}
}

// WithSubmitHandler sets a Go submit handler. It takes precedence over Config.Submit.
func WithSubmitHandler(fn SubmitFunc) Option {
	return func(c *Controller) {
		c.onSubmit = fn
	}
}

// New creates a controller and registers the fields named in cfg.
func New(cfg Config, opts ...Option) *Controller {
	c := &Controller{
		id:         cfg.ID,
		cfg:        cfg,
		mode:       cfg.ValidationMode,
		logger:     logging.NewNop(),
		store:      NewStore(cfg.InitialValues),
		generation: make(map[string]uint64),
		dependents: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.mode == "" {
		c.mode = ModeOnSubmit
	}
	if c.validator == nil {
		c.validator = validation.New(validation.WithLogger(c.logger))
	}
	if c.cond == nil {
		c.cond = conditional.New(conditional.WithLogger(c.logger))
	}
	if c.ectx == nil {
		c.ectx = domain.NewExecutionContext()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range cfg.fieldNames() {
		c.registerLocked(name, cfg.ValidationRules[name])
	}
	c.refreshVisibilityLocked()
	if cfg.ValidateOnMount {
		c.validateAllLocked()
	}
	return c
}

// ID returns the form ID.
func (c *Controller) ID() string { return c.id }

// RegisterField registers a field. Without rules it uses the configured ones.
func (c *Controller) RegisterField(name string, rules ...validation.Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(rules) == 0 {
		rules = c.cfg.ValidationRules[name]
	}
	c.registerLocked(name, rules)
	c.refreshVisibilityLocked()
}

func (c *Controller) registerLocked(name string, rules []validation.Rule) {
	c.store.Register(name, rules, c.cfg.Visibility[name])
	for dep := range c.dependents {
		delete(c.dependents[dep], name)
	}
	for _, dep := range validation.Dependencies(rules) {
		if c.dependents[dep] == nil {
			c.dependents[dep] = make(map[string]bool)
		}
		c.dependents[dep][name] = true
	}
}

// UnregisterField deactivates a field. Its value is kept so the input
// survives the field being hidden and shown again.
func (c *Controller) UnregisterField(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Unregister(name)
	for dep := range c.dependents {
		delete(c.dependents[dep], name)
	}
	c.generation[name]++
}

// SetValue updates one field.
func (c *Controller) SetValue(name string, value any) {
	c.SetValues(map[string]any{name: value})
}

// SetValues updates several fields, recomputes computed fields and visibility,
// and validates the changed fields when the mode validates on change.
func (c *Controller) SetValues(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changed []string
	for name, v := range values {
		if c.store.SetValue(name, v) {
			changed = append(changed, name)
			c.generation[name]++
		}
	}
	if len(changed) == 0 {
		return
	}
	changed = append(changed, c.recomputeLocked(changed)...)
	c.refreshVisibilityLocked()

	if c.mode.onChange() {
		for _, name := range changed {
			if c.store.Registered(name) {
				c.validateFieldLocked(name, true)
			}
		}
	}
	c.revalidateDependentsLocked(changed)
}

// SetTouched marks a field touched, validating it when the mode validates on blur.
func (c *Controller) SetTouched(name string, touched bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetTouched(name, touched)
	if touched && c.mode.onBlur() && c.store.Registered(name) {
		c.validateFieldLocked(name, true)
	}
}

func (c *Controller) SetError(name, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetError(name, msg)
}

func (c *Controller) ClearError(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.ClearError(name)
}

func (c *Controller) SetErrors(errs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.SetErrors(errs)
}

func (c *Controller) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.ClearErrors()
}

// Reset restores initial values (or installs new ones) and clears errors,
// touched flags and submission state. In-flight async validations are discarded.
func (c *Controller) Reset(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Reset(values)
	c.epoch++
	c.refreshVisibilityLocked()
}

// ValidateField runs the synchronous rules of a field, stores the outcome
// and returns the error message ("" when valid).
func (c *Controller) ValidateField(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateFieldLocked(name, false)
}

// ValidateFieldAsync runs every rule of a field, including async ones, and
// stores the outcome unless the field changed in the meantime, in which case
// it returns ErrStaleValidation.
func (c *Controller) ValidateFieldAsync(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	f, ok := c.store.fields[name]
	if !ok || !f.visible {
		c.store.ClearError(name)
		c.mu.Unlock()
		return "", nil
	}
	gen, epoch := c.generation[name], c.epoch
	value := c.store.Value(name)
	data := clone(c.store.values)
	rules := f.rules
	c.mu.Unlock()

	msg, err := c.validator.ValidateAsync(ctx, rules, value, data)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.freshLocked(name, gen, epoch) {
		c.logger.Debug("discarding stale validation", "form_id", c.id, "field", name)
		return msg, ErrStaleValidation
	}
	c.store.SetError(name, msg)
	return msg, nil
}

// ValidateAll recomputes computed fields, validates every visible field and
// replaces the error map with the outcome.
func (c *Controller) ValidateAll() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recomputeLocked(nil)
	c.refreshVisibilityLocked()
	return c.validateAllLocked()
}

// WaitAsync blocks until every async validation started by value changes has settled.
func (c *Controller) WaitAsync() { c.pending.Wait() }

// State returns a snapshot of the form.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Field returns the state of a registered field.
func (c *Controller) Field(name string) (FieldState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Field(name)
}

// Values returns a copy of the current values.
func (c *Controller) Values() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.store.values)
}

// Submit validates the form and, when it is valid, runs the submit handler.
// Validation failures return a *domain.FormValidationError. Field errors the
// server reports in a failed response are applied to the form.
func (c *Controller) Submit(ctx context.Context) (any, error) {
	c.mu.Lock()
	if c.store.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	c.store.submitting = true
	c.store.submitCount++
	for _, name := range c.store.Names() {
		c.store.SetTouched(name, true)
	}
	c.recomputeLocked(nil)
	c.refreshVisibilityLocked()
	errs := c.validateAllLocked()
	pending := c.asyncFieldsLocked(errs)
	c.mu.Unlock()

	if len(pending) > 0 {
		for name, msg := range c.runAsync(ctx, pending) {
			errs[name] = msg
		}
	}

	if len(errs) > 0 {
		c.mu.Lock()
		c.store.submitting = false
		c.mu.Unlock()
		c.logger.Debug("form invalid", "form_id", c.id, "errors", len(errs))
		return nil, &domain.FormValidationError{FormID: c.id, Errors: errs}
	}

	value, err := c.submit(ctx, c.Values())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.submitting = false
	if err != nil {
		for _, sve := range domain.ServerValidationErrors(domain.FailureFromError(err)) {
			c.store.SetError(sve.Field, sve.Message)
		}
		c.logger.Info("form submit failed", "form_id", c.id, "err", err)
		return nil, err
	}
	return value, nil
}

func (c *Controller) submit(ctx context.Context, values map[string]any) (any, error) {
	if c.onSubmit != nil {
		return c.onSubmit(ctx, values)
	}
	if c.cfg.Submit == nil {
		return values, nil
	}
	if c.runner == nil {
		return nil, domain.ErrServiceUnavailable
	}
	exec, err := c.runner.Run(ctx, c.cfg.Submit, c.ectx.WithFormData(values))
	if err != nil {
		return nil, err
	}
	if err := exec.Result.Err(); err != nil {
		return nil, err
	}
	return exec.Result.Value, nil
}

type asyncJob struct {
	gen   uint64
	epoch uint64
	value any
	rules []validation.Rule
	data  map[string]any
}

// asyncFieldsLocked collects the visible fields that passed their sync rules
// and still have async rules to run.
func (c *Controller) asyncFieldsLocked(errs map[string]string) map[string]asyncJob {
	jobs := make(map[string]asyncJob)
	for name, f := range c.store.fields {
		if !f.visible || errs[name] != "" || !validation.HasAsync(f.rules) {
			continue
		}
		jobs[name] = asyncJob{
			gen:   c.generation[name],
			epoch: c.epoch,
			value: c.store.Value(name),
			rules: f.rules,
			data:  clone(c.store.values),
		}
	}
	return jobs
}

// runAsync validates the jobs concurrently and applies fresh results.
func (c *Controller) runAsync(ctx context.Context, jobs map[string]asyncJob) map[string]string {
	var (
		mu   sync.Mutex
		errs = make(map[string]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, job := range jobs {
		g.Go(func() error {
			msg, err := c.validator.ValidateAsync(gctx, job.rules, job.value, job.data)
			if err != nil {
				c.logger.Warn("async validation failed", "form_id", c.id, "field", name, "err", err)
				return nil
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			if !c.freshLocked(name, job.gen, job.epoch) {
				return nil
			}
			c.store.SetError(name, msg)
			if msg != "" {
				mu.Lock()
				errs[name] = msg
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// validateFieldLocked runs the sync rules of a field and stores the result.
// With dispatch set, async rules are started in the background when the
// sync rules pass.
func (c *Controller) validateFieldLocked(name string, dispatch bool) string {
	f, ok := c.store.fields[name]
	if !ok || !f.visible {
		c.store.ClearError(name)
		return ""
	}
	msg := c.validator.Validate(f.rules, c.store.Value(name), c.store.values)
	c.store.SetError(name, msg)
	if msg == "" && dispatch && validation.HasAsync(f.rules) {
		c.dispatchLocked(name, f.rules)
	}
	return msg
}

// freshLocked reports whether neither the field nor the form changed since
// an async job captured gen and epoch.
func (c *Controller) freshLocked(name string, gen, epoch uint64) bool {
	return c.generation[name] == gen && c.epoch == epoch
}

func (c *Controller) dispatchLocked(name string, rules []validation.Rule) {
	job := asyncJob{
		gen:   c.generation[name],
		epoch: c.epoch,
		value: c.store.Value(name),
		rules: rules,
		data:  clone(c.store.values),
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		msg, err := c.validator.ValidateAsync(context.Background(), job.rules, job.value, job.data)
		if err != nil {
			c.logger.Warn("async validation failed", "form_id", c.id, "field", name, "err", err)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.freshLocked(name, job.gen, job.epoch) {
			c.logger.Debug("discarding stale validation", "form_id", c.id, "field", name)
			return
		}
		c.store.SetError(name, msg)
	}()
}

func (c *Controller) validateAllLocked() map[string]string {
	rules := make(map[string][]validation.Rule, len(c.store.fields))
	for name, f := range c.store.fields {
		if f.visible {
			rules[name] = f.rules
		}
	}
	errs := c.validator.ValidateAll(rules, c.store.values)
	for name := range c.store.fields {
		c.store.SetError(name, errs[name])
	}
	return errs
}

// revalidateDependentsLocked re-runs the rules of fields whose cross-field
// rules read a changed field. Empty fields the user has not touched are left
// alone.
func (c *Controller) revalidateDependentsLocked(changed []string) {
	seen := make(map[string]bool)
	for _, dep := range changed {
		for name := range c.dependents[dep] {
			if seen[name] {
				continue
			}
			seen[name] = true
			if c.store.touched[name] || c.store.errors[name] != "" || !validation.IsEmpty(c.store.Value(name)) {
				c.validateFieldLocked(name, false)
			}
		}
	}
}

// recomputeLocked materializes computed fields affected by the changed
// fields (all of them when changed is nil) and returns the names it updated.
func (c *Controller) recomputeLocked(changed []string) []string {
	if len(c.cfg.Computed) == 0 {
		return nil
	}
	patch := c.cond.Recompute(c.store.values, c.cfg.Computed, changed...)
	updated := make([]string, 0, len(patch))
	for name, v := range patch {
		c.store.SetValue(name, v)
		c.generation[name]++
		updated = append(updated, name)
	}
	return updated
}

// refreshVisibilityLocked re-evaluates visibility of every registered field.
// Hidden fields lose their error.
func (c *Controller) refreshVisibilityLocked() {
	for name, f := range c.store.fields {
		f.visible = c.cond.IsVisible(f.visibility, c.store.values, c.principal)
		if !f.visible {
			c.store.ClearError(name)
		}
	}
}
