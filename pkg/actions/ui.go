package actions

import (
	"context"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/ports"
)

type toastParams struct {
	ports.Toast `mapstructure:",squash"`
	// Type is accepted as an alias of Level.
	Type string `mapstructure:"type"`
}

func showToast(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	toaster := ectx.Services.Toast
	if toaster == nil {
		return domain.Output{}, unavailable("toast")
	}
	p, err := decodeParams[toastParams](domain.KindShowToast, params)
	if err != nil {
		return domain.Output{}, err
	}
	t := p.Toast
	if t.Level == "" {
		t.Level = p.Type
	}
	if t.Level == "" {
		t.Level = "info"
	}
	if err := toaster.Toast(ctx, t); err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(t.Message), nil
}

func showDialog(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	modals := ectx.Services.Modal
	if modals == nil {
		return domain.Output{}, unavailable("modal")
	}
	d, err := decodeParams[ports.Dialog](domain.KindShowDialog, params)
	if err != nil {
		return domain.Output{}, err
	}
	answer, err := modals.ShowDialog(ctx, d)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(answer), nil
}

func closeDialog(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	modals := ectx.Services.Modal
	if modals == nil {
		return domain.Output{}, unavailable("modal")
	}
	id, _ := params["id"].(string)
	return domain.Output{}, modals.CloseDialog(ctx, id)
}

type modalParams struct {
	ID    string         `mapstructure:"id"`
	Props map[string]any `mapstructure:"props"`
}

func openModal(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	modals := ectx.Services.Modal
	if modals == nil {
		return domain.Output{}, unavailable("modal")
	}
	p, err := decodeParams[modalParams](domain.KindOpenModal, params)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(p.ID), modals.OpenModal(ctx, p.ID, p.Props)
}

func closeModal(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	modals := ectx.Services.Modal
	if modals == nil {
		return domain.Output{}, unavailable("modal")
	}
	id, _ := params["id"].(string)
	return domain.ValueOutput(id), modals.CloseModal(ctx, id)
}
