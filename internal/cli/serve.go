package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/openportal/pkg/adapters/http"
	"github.com/aretw0/openportal/pkg/config"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions configures the serve command. Set fields override the
// service config file.
type ServeOptions struct {
	ConfigPath string
	Addr       string
	LogLevel   string
	LogFormat  string
	RedisAddr  string
	BaseURL    string
	Debug      bool
	NoMetrics  bool
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	svc, err := config.LoadService(opts.ConfigPath)
	if err != nil {
		return err
	}
	applyServeOverrides(&svc, opts)

	logger, err := createLogger(svc.LogLevel, svc.LogFormat, opts.Debug)
	if err != nil {
		return err
	}
	engine, deps, err := createEngine(ctx, svc, logger, opts.Debug)
	if err != nil {
		return err
	}
	defer deps.Close()

	handlerOpts := []httpAdapter.ServerOption{httpAdapter.WithLogger(logger)}
	if deps.Metrics != nil {
		handlerOpts = append(handlerOpts, httpAdapter.WithGatherer(deps.Metrics))
	}
	srv := &http.Server{
		Addr:              svc.Addr,
		Handler:           httpAdapter.NewHandler(engine, handlerOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting OpenPortal Server", "addr", srv.Addr, "metrics", deps.Metrics != nil)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("OpenPortal Server stopped gracefully")
		return nil
	}
}

func applyServeOverrides(svc *config.Service, opts ServeOptions) {
	if opts.Addr != "" {
		svc.Addr = opts.Addr
	}
	if opts.LogLevel != "" {
		svc.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		svc.LogFormat = opts.LogFormat
	}
	if opts.RedisAddr != "" {
		svc.Redis.Addr = opts.RedisAddr
	}
	if opts.BaseURL != "" {
		svc.HTTP.BaseURL = opts.BaseURL
	}
	if opts.NoMetrics {
		svc.Metrics.Enabled = false
	}
}
