package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/openportal"
	"github.com/aretw0/openportal/internal/presentation/graph"
	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
)

// GraphOptions configures the graph command.
type GraphOptions struct {
	GraphPath string
	// Trace runs the graph first and colours the nodes by their result.
	Trace       bool
	ContextPath string
	ConfigPath  string
}

// Graph writes a Mermaid diagram of the graph to out.
func Graph(ctx context.Context, opts GraphOptions, out io.Writer) error {
	root, err := config.LoadActionGraph(opts.GraphPath)
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if opts.Trace {
		if overlay, err = trace(ctx, root, opts); err != nil {
			return err
		}
	}

	diagram, err := graph.GenerateMermaid(root, overlay)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, diagram)
	return err
}

// trace runs root and records the final status of every node that finished.
func trace(ctx context.Context, root *domain.ActionNode, opts GraphOptions) (*graph.GraphOverlay, error) {
	svc, err := config.LoadService(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	svc.Metrics.Enabled = false

	ectx := domain.NewExecutionContext()
	if opts.ContextPath != "" {
		if ectx, err = config.LoadContext(opts.ContextPath); err != nil {
			return nil, err
		}
	}

	var mu sync.Mutex
	overlay := &graph.GraphOverlay{Statuses: map[string]domain.Status{}}
	hooks := domain.LifecycleHooks{
		OnNodeFinish: func(_ context.Context, ev *domain.NodeEvent) {
			if ev.NodeID == "" {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			overlay.Statuses[ev.NodeID] = ev.Status
		},
	}

	logger, err := createLogger("error", "", false)
	if err != nil {
		return nil, err
	}
	engine, deps, err := createEngine(ctx, svc, logger, false, openportal.WithHooks(hooks))
	if err != nil {
		return nil, err
	}
	defer deps.Close()

	if _, err := engine.Run(ctx, root, ectx); err != nil {
		return nil, err
	}
	return overlay, nil
}
