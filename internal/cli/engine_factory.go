package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/openportal"
	httpAdapter "github.com/aretw0/openportal/pkg/adapters/http"
	"github.com/aretw0/openportal/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/openportal/pkg/adapters/redis"
	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/ports"
)

// runtimeDeps is what createEngine built next to the engine.
type runtimeDeps struct {
	Recorder *memory.Recorder
	Metrics  *prometheus.Registry
	close    []func() error
}

// Close releases external connections.
func (d *runtimeDeps) Close() error {
	var first error
	for _, fn := range d.close {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// createEngine initializes an engine with standard CLI conventions: the real
// HTTP client against the configured backend, a redis response cache when an
// address is set (in-memory otherwise) and recording UI services.
func createEngine(ctx context.Context, svc config.Service, logger *slog.Logger, debug bool, extra ...openportal.Option) (*openportal.Engine, *runtimeDeps, error) {
	deps := &runtimeDeps{Recorder: memory.NewRecorder()}

	var cache ports.ResponseCache = memory.NewCache()
	if svc.Redis.Addr != "" {
		rc := redisAdapter.New(svc.Redis.Addr, "", 0, redisAdapter.WithPrefix(svc.Redis.Prefix+"cache:"))
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, nil, fmt.Errorf("redis %s unreachable: %w", svc.Redis.Addr, err)
		}
		deps.close = append(deps.close, rc.Close)
		cache = rc
		logger.Info("using redis response cache", "addr", svc.Redis.Addr)
	}

	client := httpAdapter.NewClient(
		httpAdapter.WithBaseURL(svc.HTTP.BaseURL),
		httpAdapter.WithTimeout(svc.HTTP.Timeout.Std()),
		httpAdapter.WithCache(cache, svc.HTTP.CacheTTL.Std()),
		httpAdapter.WithClientLogger(logger),
	)

	opts := []openportal.Option{
		openportal.WithLogger(logger),
		openportal.WithActionsEndpoint(svc.Actions.Endpoint),
		openportal.WithServices(domain.Services{
			HTTP:       client,
			Files:      client,
			Cache:      cache,
			Navigation: deps.Recorder,
			Toast:      deps.Recorder,
			Modal:      deps.Recorder,
			Datasource: deps.Recorder,
		}),
	}
	if debug {
		opts = append(opts, openportal.WithHooks(createDebugHooks(logger)))
	}
	if svc.Metrics.Enabled {
		deps.Metrics = prometheus.NewRegistry()
		deps.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, openportal.WithMetrics(deps.Metrics))
	}

	engine, err := openportal.New(append(opts, extra...)...)
	if err != nil {
		deps.Close()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, deps, nil
}
