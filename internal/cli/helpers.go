package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/domain"
)

// InterruptedError is the cancellation cause recorded when a signal arrives.
type InterruptedError struct {
	Signal os.Signal
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("interrupted by %s", e.Signal)
}

// SignalContext is cancelled on SIGINT or SIGTERM and remembers the signal.
type SignalContext struct {
	context.Context
	Cancel func()
}

// NewSignalContext behaves like signal.NotifyContext but keeps the signal as
// the context's cause.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancelCause(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			cancel(&InterruptedError{Signal: sig})
		case <-ctx.Done():
		}
	}()
	return &SignalContext{
		Context: ctx,
		Cancel:  func() { cancel(context.Canceled) },
	}
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	var ie *InterruptedError
	if errors.As(context.Cause(sc.Context), &ie) {
		return ie.Signal
	}
	return nil
}

// createLogger configures the application logger. Debug wins over level.
func createLogger(level, format string, debug bool) (*slog.Logger, error) {
	f, err := logging.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if debug {
		return logging.New(slog.LevelDebug, logging.WithFormat(f)), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return logging.New(lvl, logging.WithFormat(f)), nil
}

// createDebugHooks logs every node transition.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeStart: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Start Node", "node_id", e.NodeID, "kind", e.Kind, "attempt", e.Attempt, "loading", e.Loading)
		},
		OnNodeFinish: func(ctx context.Context, e *domain.NodeEvent) {
			if e.ErrorKind != "" {
				logger.Debug("Finish Node (Error)", "node_id", e.NodeID, "kind", e.Kind, "error_kind", e.ErrorKind, "duration", e.Duration)
				return
			}
			logger.Debug("Finish Node", "node_id", e.NodeID, "kind", e.Kind, "status", e.Status, "duration", e.Duration)
		},
		OnRetry: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Retry Node", "node_id", e.NodeID, "attempt", e.Attempt)
		},
		OnCancelled: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Cancelled Node", "node_id", e.NodeID)
		},
	}
}
