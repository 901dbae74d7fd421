package observability

import (
	"context"

	"github.com/aretw0/openportal/pkg/domain"
)

// Aggregate combines several hook sets into one. Each event is delivered to
// every set, in argument order. Nil callbacks are skipped.
func Aggregate(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
		var fns []func(context.Context, *domain.NodeEvent)
		for _, h := range hooks {
			if fn := get(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		switch len(fns) {
		case 0:
			return nil
		case 1:
			return fns[0]
		}
		return func(ctx context.Context, ev *domain.NodeEvent) {
			for _, fn := range fns {
				fn(ctx, ev)
			}
		}
	}

	return domain.LifecycleHooks{
		OnNodeStart:  pick(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnNodeStart }),
		OnNodeFinish: pick(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnNodeFinish }),
		OnRetry:      pick(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnRetry }),
		OnCancelled:  pick(func(h domain.LifecycleHooks) func(context.Context, *domain.NodeEvent) { return h.OnCancelled }),
	}
}
