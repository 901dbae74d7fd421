package actions

import (
	"context"
	"fmt"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/ports"
)

type formParams struct {
	FormID string         `mapstructure:"formId"`
	Values map[string]any `mapstructure:"values"`
}

func lookupForm(kind string, params map[string]any, ectx *domain.ExecutionContext) (ports.FormHandle, formParams, error) {
	p, err := decodeParams[formParams](kind, params)
	if err != nil {
		return nil, p, err
	}
	forms := ectx.Services.Forms
	if forms == nil {
		return nil, p, unavailable("forms")
	}
	form, ok := forms.Form(p.FormID)
	if !ok {
		return nil, p, fmt.Errorf("%w: %q", domain.ErrFormNotFound, p.FormID)
	}
	return form, p, nil
}

func submitForm(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	form, _, err := lookupForm(domain.KindSubmitForm, params, ectx)
	if err != nil {
		return domain.Output{}, err
	}
	value, err := form.Submit(ctx)
	if err != nil {
		return domain.Output{}, err
	}
	return domain.ValueOutput(value), nil
}

func validateForm(_ context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	form, p, err := lookupForm(domain.KindValidateForm, params, ectx)
	if err != nil {
		return domain.Output{}, err
	}
	if errs := form.ValidateAll(); len(errs) > 0 {
		return domain.Output{}, &domain.FormValidationError{FormID: p.FormID, Errors: errs}
	}
	return domain.ValueOutput(true), nil
}

func resetForm(_ context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	form, p, err := lookupForm(domain.KindResetForm, params, ectx)
	if err != nil {
		return domain.Output{}, err
	}
	form.Reset(p.Values)
	return domain.Output{}, nil
}
