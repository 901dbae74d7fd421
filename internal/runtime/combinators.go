package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/expr"
	"github.com/aretw0/openportal/pkg/template"
)

// steps runs nodes in order, threading state. It stops at the first failure.
// values holds the value of every step that ran; last is the final step's result.
func (e *execution) steps(ctx context.Context, nodes []domain.ActionNode, ectx *domain.ExecutionContext) (values []any, last domain.ActionResult, patches []domain.StatePatch, failed bool) {
	cur := ectx
	last = domain.Skip()
	values = make([]any, 0, len(nodes))

	for i := range nodes {
		n := &nodes[i]
		if ctx.Err() != nil {
			return values, e.cancelled(ctx, n), patches, true
		}

		res, p := e.node(ctx, n, cur)
		patches = append(patches, p...)
		last = res
		if res.Failed() {
			return values, res, patches, true
		}
		if len(p) > 0 {
			next, err := cur.Apply(p...)
			if err != nil {
				return values, withNode(domain.FailureFromError(err), n), patches, true
			}
			cur = next
		}
		values = append(values, res.Value)
	}
	return values, last, patches, false
}

// chain runs an onSuccess/onError list; the result upstream is the last step's.
func (e *execution) chain(ctx context.Context, nodes []domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	_, last, patches, _ := e.steps(ctx, nodes, ectx)
	return last, patches
}

func (e *execution) sequence(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	children, err := domain.DecodeNodes(n.Params[domain.ParamActions])
	if err != nil {
		return malformed(n, domain.ParamActions, err), nil
	}
	return e.composite(ctx, n, children, ectx)
}

func (e *execution) composite(ctx context.Context, n *domain.ActionNode, children []domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	values, last, patches, failed := e.steps(ctx, children, ectx)
	if failed {
		return last, patches
	}
	return withNode(domain.Success(values), n), patches
}

// parallel fans out every child against the same snapshot and waits for all of
// them. Patches are concatenated in array order after the join.
func (e *execution) parallel(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	children, err := domain.DecodeNodes(n.Params[domain.ParamActions])
	if err != nil {
		return malformed(n, domain.ParamActions, err), nil
	}

	results := make([]domain.ActionResult, len(children))
	patchLog := make([][]domain.StatePatch, len(children))

	var (
		mu      sync.Mutex
		settled []int
		g       errgroup.Group
	)
	for i := range children {
		g.Go(func() error {
			res, p := e.node(ctx, &children[i], ectx)
			results[i], patchLog[i] = res, p
			if res.Failed() {
				mu.Lock()
				settled = append(settled, i)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var patches []domain.StatePatch
	values := make([]any, len(children))
	for i := range children {
		patches = append(patches, patchLog[i]...)
		values[i] = results[i].Value
	}

	if len(settled) > 0 {
		first := settled[0]
		if e.failureOrder == FailureOrderArray {
			for _, idx := range settled {
				first = min(first, idx)
			}
		}
		return results[first], patches
	}
	return withNode(domain.Success(values), n), patches
}

func (e *execution) conditional(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	branches, err := domain.DecodeBranches(n.Params[domain.ParamBranches])
	if err != nil {
		return malformed(n, domain.ParamBranches, err), nil
	}

	scope := ectx.Scope()
	for i, b := range branches {
		ok, err := expr.Test(b.Condition, scope)
		if err != nil {
			// rejected or malformed branch conditions never match
			var secErr *expr.SecurityError
			if errors.As(err, &secErr) {
				e.logger.Warn("branch condition rejected", "node_id", n.ID, "branch", i, "expression", b.Condition, "reason", secErr.Identifier)
			} else {
				e.logger.Warn("branch condition invalid", "node_id", n.ID, "branch", i, "expression", b.Condition, "err", err)
			}
			continue
		}
		if ok {
			return e.composite(ctx, n, b.Actions, ectx)
		}
	}

	if raw, ok := n.Params[domain.ParamDefault]; ok && raw != nil {
		def, err := domain.DecodeNodes(raw)
		if err != nil {
			return malformed(n, domain.ParamDefault, err), nil
		}
		return e.composite(ctx, n, def, ectx)
	}
	return withNode(domain.Skip(), n), nil
}

// forEach runs itemActions once per item, sequentially and fail-fast.
// Each iteration sees the state left by the previous one plus trigger.item
// and trigger.index.
func (e *execution) forEach(ctx context.Context, n *domain.ActionNode, ectx *domain.ExecutionContext) (domain.ActionResult, []domain.StatePatch) {
	items, err := toList(template.ResolveValue(n.Params[domain.ParamItems], ectx.Scope()))
	if err != nil {
		return withNode(domain.Failure(domain.ErrorKindHandlerException, err.Error(), err), n), nil
	}
	actions, err := domain.DecodeNodes(n.Params[domain.ParamItemActions])
	if err != nil {
		return malformed(n, domain.ParamItemActions, err), nil
	}

	cur := ectx
	var patches []domain.StatePatch
	values := make([]any, 0, len(items))

	for i, item := range items {
		if ctx.Err() != nil {
			return e.cancelled(ctx, n), patches
		}

		vals, last, p, failed := e.steps(ctx, actions, cur.WithIteration(item, i))
		patches = append(patches, p...)
		if failed {
			return last, patches
		}
		if len(p) > 0 {
			next, err := cur.Apply(p...)
			if err != nil {
				return withNode(domain.FailureFromError(err), n), patches
			}
			cur = next
		}
		values = append(values, vals)
	}
	return withNode(domain.Success(values), n), patches
}

// toList accepts any slice or array; nil is an empty list.
func toList(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("forEach items must resolve to a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func malformed(n *domain.ActionNode, param string, err error) domain.ActionResult {
	mErr := &domain.MalformedNodeError{Path: n.ID + ".params." + param, Reason: err.Error()}
	return withNode(domain.Failure(domain.ErrorKindHandlerException, mErr.Error(), mErr), n)
}
