package form_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal/internal/runtime"
	"github.com/aretw0/openportal/pkg/actions"
	"github.com/aretw0/openportal/pkg/adapters/memory"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/dsl"
	"github.com/aretw0/openportal/pkg/form"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/aretw0/openportal/pkg/validation"
)

func newSubmitForm(t *testing.T, stub *memory.HTTPStub) (*form.Controller, *form.Registry, *runtime.Runner) {
	t.Helper()
	reg := registry.New()
	actions.RegisterBuiltins(reg)
	runner := runtime.NewRunner(reg)
	forms := form.NewRegistry()

	submit := dsl.Action("post", domain.KindAPICall).
		With("method", "POST").
		With("url", "/api/users").
		With("body", "{{formData}}").
		Build()

	ectx := domain.NewExecutionContext().WithServices(domain.Services{HTTP: stub, Forms: forms})
	c := form.New(form.Config{
		ID:            "signup",
		InitialValues: map[string]any{"email": "ana@y.com"},
		ValidationRules: map[string][]validation.Rule{
			"email": {validation.Required(""), validation.Email("")},
		},
		Submit: &submit,
	}, form.WithRunner(runner), form.WithExecutionContext(ectx))
	t.Cleanup(forms.Mount(c))
	return c, forms, runner
}

func TestSubmitGraph_Success(t *testing.T) {
	stub := memory.NewHTTPStub().Handle("POST", "/api/users", memory.Route{Status: 201, Body: map[string]any{"id": 7}})
	c, _, _ := newSubmitForm(t, stub)

	value, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 7}, value)

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]any{"email": "ana@y.com"}, reqs[0].Body)
}

func TestSubmitGraph_ServerValidationErrors(t *testing.T) {
	stub := memory.NewHTTPStub().Handle("POST", "/api/users", memory.Route{Status: 422, Body: map[string]any{
		"message":     "invalid",
		"fieldErrors": []any{map[string]any{"field": "email", "message": "already registered"}},
	}})
	c, _, _ := newSubmitForm(t, stub)

	_, err := c.Submit(context.Background())
	require.Error(t, err)

	var httpErr *domain.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	f, _ := c.Field("email")
	assert.Equal(t, "already registered", f.Error)
}

func TestSubmitForm_ActionAddressesMountedForm(t *testing.T) {
	stub := memory.NewHTTPStub().Handle("POST", "/api/users", memory.Route{Status: 201, Body: "created"})
	c, forms, runner := newSubmitForm(t, stub)
	c.SetValue("email", "")

	root := dsl.Action("submit", domain.KindSubmitForm).With("formId", "signup").
		OnError(dsl.Action("", domain.KindLog).With("message", "{{trigger.error.kind}}")).
		Build()
	ectx := domain.NewExecutionContext().WithServices(domain.Services{HTTP: stub, Forms: forms})

	exec, err := runner.Run(context.Background(), &root, ectx)
	require.NoError(t, err)
	assert.Empty(t, stub.Requests(), "an invalid form never reaches the backend")
	assert.Equal(t, "This field is required", c.State().Errors["email"])
	assert.True(t, exec.Result.Succeeded(), "the onError chain handled the failure")
}
