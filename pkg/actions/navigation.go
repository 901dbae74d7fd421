package actions

import (
	"context"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/ports"
)

func navigate(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	nav := ectx.Services.Navigation
	if nav == nil {
		return domain.Output{}, unavailable("navigation")
	}
	req, err := decodeParams[ports.NavigateRequest](domain.KindNavigate, params)
	if err != nil {
		return domain.Output{}, err
	}
	if err := nav.Navigate(ctx, req); err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(req.To), nil
}

func goBack(ctx context.Context, _ map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	nav := ectx.Services.Navigation
	if nav == nil {
		return domain.Output{}, unavailable("navigation")
	}
	return domain.Output{}, nav.Back(ctx)
}

func reload(ctx context.Context, _ map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	nav := ectx.Services.Navigation
	if nav == nil {
		return domain.Output{}, unavailable("navigation")
	}
	return domain.Output{}, nav.Reload(ctx)
}
