// Package runtime executes action graphs: the per-node executor and the graph
// runner that threads state between steps, applies retry policies and
// dispatches onSuccess/onError chains.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/registry"
)

// Runner is the public entry point for running action graphs.
// It is stateless between runs and safe for concurrent use.
type Runner struct {
	registry     *registry.Registry
	executor     *Executor
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	failureOrder FailureOrder
	newID        func() string
	sleep        func(context.Context, time.Duration) bool
}

// NewRunner creates a runner over reg. The structural combinators are added
// to reg (unless already present) so that the registry lists every kind.
func NewRunner(reg *registry.Registry, opts ...Option) *Runner {
	r := &Runner{
		registry: reg,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
		sleep:    sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.executor = NewExecutor(reg, r.logger)
	RegisterCombinators(reg)
	return r
}

// RegisterCombinators adds descriptors for the structural kinds.
func RegisterCombinators(reg *registry.Registry) {
	structural := registry.HandlerFunc(func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		return domain.Output{}, registry.ErrStructuralKind
	})
	descriptions := map[string]string{
		domain.KindSequence:    "Runs params.actions in order, threading state; stops at the first failure.",
		domain.KindParallel:    "Runs params.actions concurrently against the same snapshot and joins.",
		domain.KindConditional: "Runs the first params.branches entry whose condition holds, else params.default.",
		domain.KindForEach:     "Runs params.itemActions once per element of params.items, sequentially.",
	}
	for kind, text := range descriptions {
		if !reg.Has(kind) {
			reg.Register(kind, structural, registry.Structural(), registry.WithDescription(text))
		}
	}
}

// Executor exposes the single-node executor used by the runner.
func (r *Runner) Executor() *Executor { return r.executor }

// Run executes node against ectx and returns the execution record.
//
// The error is non-nil only when the tree is malformed; it is detected before
// any handler runs. Every runtime failure is reported through the result.
// Cancelling ctx lets in-flight handlers finish but starts no further steps,
// retries or chains; the result is then a Cancelled error.
func (r *Runner) Run(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) (*domain.Execution, error) {
	if err := domain.Check(node); err != nil {
		return nil, err
	}
	if ectx == nil {
		ectx = domain.NewExecutionContext()
	}

	run := &execution{Runner: r, id: r.newID()}
	r.logger.Debug("execution started", "execution_id", run.id, "node_id", node.ID, "kind", node.Kind)

	res, patches := run.node(ctx, node, ectx)
	// A signal that arrived while the last step was in flight still cancels
	// the run; patches from completed work are kept.
	if ctx.Err() != nil && res.ErrorKind != domain.ErrorKindCancelled {
		res = run.cancelled(ctx, node)
	}

	final, err := ectx.Apply(patches...)
	if err != nil {
		return nil, fmt.Errorf("apply state patches: %w", err)
	}

	r.logger.Debug("execution finished", "execution_id", run.id, "status", res.Status, "error_kind", res.ErrorKind)
	return &domain.Execution{ID: run.id, Result: res, Context: final, Patches: patches}, nil
}

// execution carries the per-run state (the ID used for correlation).
type execution struct {
	*Runner
	id string
}

// node runs one node with its retry policy and chains. It returns the result
// upstream and the state patches produced, in order.
func (e *execution) node(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	if ctx.Err() != nil {
		return e.cancelled(ctx, n), nil
	}

	if res, ok := e.executor.Gate(n, ectx); !ok {
		e.logger.Debug("node gated", "execution_id", e.id, "node_id", n.ID, "kind", n.Kind, "status", res.Status)
		e.finish(ctx, n, res, 0, 0)
		if res.Failed() {
			return e.dispatchError(ctx, n, res, nil, ectx)
		}
		return res, nil
	}

	start := time.Now()
	e.emit(ctx, e.hooks.OnNodeStart, e.event(n, domain.ActionResult{}, 1, 0))

	res, patches, attempts := e.attempts(ctx, n, ectx)

	e.finish(ctx, n, res, attempts, time.Since(start))

	switch {
	case res.ErrorKind == domain.ErrorKindCancelled:
		return res, patches
	case res.Failed():
		return e.dispatchError(ctx, n, res, patches, ectx)
	case res.Succeeded() && len(n.OnSuccess) > 0:
		next, err := ectx.Apply(patches...)
		if err != nil {
			return withNode(domain.FailureFromError(err), n), patches
		}
		chainRes, chainPatches := e.chain(ctx, n.OnSuccess, next)
		return chainRes, append(patches, chainPatches...)
	}
	return res, patches
}

func (e *execution) dispatchError(ctx context.Context, n *domain.ActionNode, res domain.ActionResult, patches []domain.StatePatch, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	if len(n.OnError) == 0 {
		return res, patches
	}
	next, err := ectx.Apply(patches...)
	if err != nil {
		return res, patches
	}
	chainRes, chainPatches := e.chain(ctx, n.OnError, next.WithError(res))
	return chainRes, append(patches, chainPatches...)
}

// attempts runs the node body under its retry policy.
func (e *execution) attempts(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch, int) {
	maxAttempts := 1
	if n.Retry != nil && n.Retry.Attempts > 1 {
		maxAttempts = n.Retry.Attempts
	}

	for attempt := 1; ; attempt++ {
		res, patches := e.body(ctx, n, ectx)
		if !res.Failed() || attempt >= maxAttempts || !retryable(res) {
			if res.Failed() && attempt > 1 {
				e.logger.Warn("retries exhausted", "execution_id", e.id, "node_id", n.ID, "attempts", attempt, "error_kind", res.ErrorKind)
			}
			return res, patches, attempt
		}

		if ctx.Err() != nil {
			return e.cancelled(ctx, n), nil, attempt
		}
		wait := n.Retry.DelayBefore(attempt + 1)
		e.logger.Debug("retrying node", "execution_id", e.id, "node_id", n.ID, "attempt", attempt+1, "delay", wait)
		e.emit(ctx, e.hooks.OnRetry, e.event(n, res, attempt+1, wait))
		if !e.sleep(ctx, wait) {
			return e.cancelled(ctx, n), nil, attempt
		}
	}
}

// retryable excludes failures another attempt cannot fix.
func retryable(res domain.ActionResult) bool {
	switch res.ErrorKind {
	case domain.ErrorKindActionNotFound, domain.ErrorKindCancelled, domain.ErrorKindSecurityRejected:
		return false
	}
	return true
}

// body runs the node itself: a combinator or a leaf handler.
func (e *execution) body(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	switch domain.CombinatorOf(n.Kind) {
	case domain.CombinatorSequence:
		return e.sequence(ctx, n, ectx)
	case domain.CombinatorParallel:
		return e.parallel(ctx, n, ectx)
	case domain.CombinatorConditional:
		return e.conditional(ctx, n, ectx)
	case domain.CombinatorForEach:
		return e.forEach(ctx, n, ectx)
	}

	res := e.executor.Invoke(ctx, n, ectx)
	if !res.Succeeded() || res.Patch == nil {
		return res, nil
	}
	if _, err := ectx.Apply(*res.Patch); err != nil {
		return withNode(domain.Failure(domain.ErrorKindHandlerException, err.Error(), err), n), nil
	}
	return res, []domain.StatePatch{*res.Patch}
}

func (e *execution) cancelled(ctx context.Context, n *domain.ActionNode) domain.ActionResult {
	res := withNode(domain.Failure(domain.ErrorKindCancelled, "execution was cancelled", domain.ErrCancelled), n)
	e.logger.Info("execution cancelled", "execution_id", e.id, "node_id", n.ID)
	e.emit(ctx, e.hooks.OnCancelled, e.event(n, res, 0, 0))
	return res
}

func (e *execution) finish(ctx context.Context, n *domain.ActionNode, res domain.ActionResult, attempt int, took time.Duration) {
	e.logger.Debug("node finished", "execution_id", e.id, "node_id", n.ID, "kind", n.Kind, "status", res.Status, "attempt", attempt)
	e.emit(ctx, e.hooks.OnNodeFinish, e.event(n, res, attempt, took))
}

func (e *execution) event(n *domain.ActionNode, res domain.ActionResult, attempt int, d time.Duration) *domain.NodeEvent {
	return &domain.NodeEvent{
		Timestamp:   time.Now(),
		ExecutionID: e.id,
		NodeID:      n.ID,
		Kind:        n.Kind,
		Loading:     n.Loading,
		Status:      res.Status,
		ErrorKind:   res.ErrorKind,
		Attempt:     attempt,
		Duration:    d,
	}
}

func (e *execution) emit(ctx context.Context, hook func(context.Context, *domain.NodeEvent), ev *domain.NodeEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}
