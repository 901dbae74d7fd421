package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/openportal/pkg/domain"
)

// FailureOrder selects which failure a parallel combinator reports.
type FailureOrder int

const (
	// FailureOrderSettle reports the first child to fail in completion order.
	FailureOrderSettle FailureOrder = iota
	// FailureOrderArray reports the failed child with the lowest index.
	FailureOrderArray
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithParallelFailureOrder chooses how parallel picks its reported failure.
func WithParallelFailureOrder(order FailureOrder) Option {
	return func(r *Runner) {
		r.failureOrder = order
	}
}

// WithIDGenerator replaces the execution ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
