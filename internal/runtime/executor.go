package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/expr"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/aretw0/openportal/pkg/schema"
	"github.com/aretw0/openportal/pkg/template"
)

// Executor runs a single node: condition, param resolution, handler lookup,
// timeout and error normalization. It never dispatches onSuccess/onError.
type Executor struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over reg.
func NewExecutor(reg *registry.Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{registry: reg, logger: logger}
}

// Execute evaluates the node's condition and, when it holds, invokes its handler.
func (x *Executor) Execute(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) domain.ActionResult {
	if res, ok := x.Gate(node, ectx); !ok {
		return res
	}
	return x.Invoke(ctx, node, ectx)
}

// Gate evaluates node.Condition. It returns ok=true when the node should run;
// otherwise res is the Skipped (false condition) or error (rejected condition) result.
func (x *Executor) Gate(node *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, bool) {
	if node.Condition == "" {
		return domain.ActionResult{}, true
	}

	ok, err := expr.Test(node.Condition, ectx.Scope())
	if err != nil {
		var secErr *expr.SecurityError
		if errors.As(err, &secErr) {
			x.logger.Warn("condition rejected", "node_id", node.ID, "expression", node.Condition, "reason", secErr.Identifier)
			return withNode(domain.Failure(domain.ErrorKindSecurityRejected, secErr.Error(), err), node), false
		}
		return withNode(domain.Failure(domain.ErrorKindHandlerException, fmt.Sprintf("invalid condition: %v", err), err), node), false
	}
	if !ok {
		return withNode(domain.Skip(), node), false
	}
	return domain.ActionResult{}, true
}

// Invoke resolves params and calls the registered handler.
// Handlers receive a context that is never cancelled by the caller; only the
// node timeout can end it.
func (x *Executor) Invoke(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) domain.ActionResult {
	desc, ok := x.registry.Describe(node.Kind)
	if !ok {
		return withNode(domain.Failure(domain.ErrorKindActionNotFound,
			fmt.Sprintf("no handler registered for kind %q", node.Kind), domain.ErrActionNotFound), node)
	}
	handler, _ := x.registry.Get(node.Kind)

	params := template.ResolveParams(node.Params, ectx)
	if params == nil {
		params = map[string]any{}
	}
	if desc.Params != nil {
		if err := schema.Validate(desc.Params, params); err != nil {
			return withNode(domain.Failure(domain.ErrorKindHandlerException,
				fmt.Sprintf("invalid params for %s: %v", node.Kind, err), err), node)
		}
	}

	hctx := context.WithoutCancel(ctx)
	timeout := node.TimeoutDuration()
	if timeout <= 0 {
		return withNode(x.toResult(call(hctx, handler, params, ectx)), node)
	}

	hctx, cancel := context.WithTimeout(hctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() { done <- call(hctx, handler, params, ectx) }()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && hctx.Err() != nil {
			return withNode(timedOut(node, timeout), node)
		}
		return withNode(x.toResult(o), node)
	case <-hctx.Done():
		return withNode(timedOut(node, timeout), node)
	}
}

type outcome struct {
	out domain.Output
	err error
}

// call invokes the handler, turning a panic into an error.
func call(ctx context.Context, h registry.Handler, params map[string]any, ectx *domain.ExecutionContext) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: fmt.Errorf("handler panicked: %v", r)}
		}
	}()
	out, err := h.Handle(ctx, params, ectx)
	return outcome{out: out, err: err}
}

func (x *Executor) toResult(o outcome) domain.ActionResult {
	if o.err != nil {
		return domain.FailureFromError(o.err)
	}
	res := domain.Success(o.out.Value)
	res.Patch = o.out.Patch
	return res
}

func timedOut(node *domain.ActionNode, d time.Duration) domain.ActionResult {
	return domain.Failure(domain.ErrorKindTimeout,
		fmt.Sprintf("action %q timed out after %s", node.ID, d.String()), domain.ErrTimeout)
}

func withNode(res domain.ActionResult, node *domain.ActionNode) domain.ActionResult {
	if res.NodeID == "" {
		res.NodeID = node.ID
	}
	return res
}
