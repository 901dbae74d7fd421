package actions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/expr"
)

type datasourceParams struct {
	ID     string         `mapstructure:"id"`
	Params map[string]any `mapstructure:"params"`
}

func refreshDatasource(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	ds := ectx.Services.Datasource
	if ds == nil {
		return domain.Output{}, unavailable("datasource")
	}
	p, err := decodeParams[datasourceParams](domain.KindRefreshDatasource, params)
	if err != nil {
		return domain.Output{}, err
	}
	data, err := ds.Refresh(ctx, p.ID, p.Params)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(data), nil
}

func invalidateCache(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	cache := ectx.Services.Cache
	if cache == nil {
		return domain.Output{}, unavailable("cache")
	}
	keys := stringList(params["keys"])
	prefix, _ := params["prefix"].(string)
	if len(keys) == 0 && prefix == "" {
		return domain.Output{}, errors.New("invalidateCache: keys or prefix is required")
	}

	removed := 0
	if len(keys) > 0 {
		n, err := cache.Invalidate(ctx, keys...)
		if err != nil {
			return domain.Output{}, err
		}
		removed += n
	}
	if prefix != "" {
		n, err := cache.InvalidatePrefix(ctx, prefix)
		if err != nil {
			return domain.Output{}, err
		}
		removed += n
	}
	return domain.ValueOutput(removed), nil
}

func (b *builtins) log(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	msg, _ := params["message"].(string)
	level := slog.LevelInfo
	switch params["level"] {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	attrs := []any{"widget_id", ectx.Trigger.WidgetID, "event_type", ectx.Trigger.EventType}
	if data, ok := params["data"]; ok {
		attrs = append(attrs, "data", data)
	}
	b.logger.Log(ctx, level, msg, attrs...)
	return domain.ValueOutput(msg), nil
}

// delay waits params.ms milliseconds. The handler context only ends on the
// node timeout, so a delay longer than its timeout reports Timeout.
func delay(ctx context.Context, params map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
	ms := expr.ToNumber(params["ms"])
	if ms <= 0 {
		return domain.Output{}, nil
	}
	t := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer t.Stop()
	select {
	case <-t.C:
		return domain.ValueOutput(ms), nil
	case <-ctx.Done():
		return domain.Output{}, ctx.Err()
	}
}
