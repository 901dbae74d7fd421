package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
)

// ErrActionFailed is returned by Execute when the graph ran but its result is an error.
var ErrActionFailed = errors.New("action graph failed")

// RunOptions configures the run command.
type RunOptions struct {
	GraphPath   string
	ContextPath string
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	BaseURL     string
	Debug       bool
	Timeout     time.Duration
	// Calls adds the recorded UI service calls to the output.
	Calls bool
}

// RunOutput is what the run command prints.
type RunOutput struct {
	*domain.Execution
	Calls []CallRecord `json:"calls,omitempty"`
}

// CallRecord is a recorded navigation, toast, modal or datasource call.
type CallRecord struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args,omitempty"`
}

// Execute loads a graph and an optional context, runs the graph and writes
// the execution record as JSON to out.
func Execute(ctx context.Context, opts RunOptions, out io.Writer) error {
	svc, err := config.LoadService(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.BaseURL != "" {
		svc.HTTP.BaseURL = opts.BaseURL
	}
	if opts.LogLevel != "" {
		svc.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		svc.LogFormat = opts.LogFormat
	}
	// Metrics are only scraped by serve.
	svc.Metrics.Enabled = false

	logger, err := createLogger(svc.LogLevel, svc.LogFormat, opts.Debug)
	if err != nil {
		return err
	}

	graph, err := config.LoadActionGraph(opts.GraphPath)
	if err != nil {
		return err
	}
	ectx := domain.NewExecutionContext()
	if opts.ContextPath != "" {
		if ectx, err = config.LoadContext(opts.ContextPath); err != nil {
			return err
		}
	}

	engine, deps, err := createEngine(ctx, svc, logger, opts.Debug)
	if err != nil {
		return err
	}
	defer deps.Close()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	exec, err := engine.Run(ctx, graph, ectx)
	if err != nil {
		return err
	}

	result := RunOutput{Execution: exec}
	if opts.Calls {
		for _, c := range deps.Recorder.Calls() {
			result.Calls = append(result.Calls, CallRecord{Service: c.Service, Method: c.Method, Args: c.Args})
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode execution: %w", err)
	}

	if exec.Result.Failed() {
		return fmt.Errorf("%w: %s", ErrActionFailed, exec.Result.Message)
	}
	return nil
}
