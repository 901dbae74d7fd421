package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/schema"
)

func constant(v any) HandlerFunc {
	return func(context.Context, map[string]any, *domain.ExecutionContext) (domain.Output, error) {
		return domain.ValueOutput(v), nil
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()
	r.Register("log", constant("first"), WithDescription("writes a log line"))

	h, ok := r.Get("log")
	require.True(t, ok)
	out, err := h.Handle(context.Background(), nil, domain.NewExecutionContext())
	require.NoError(t, err)
	assert.Equal(t, "first", out.Value)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_ReRegisterOverwrites(t *testing.T) {
	r := New()
	r.Register("navigate", constant("builtin"), WithSchema(schema.Schema{"to": schema.String()}))
	r.RegisterFunc("navigate", constant("double"))

	h, _ := r.Get("navigate")
	out, _ := h.Handle(context.Background(), nil, nil)
	assert.Equal(t, "double", out.Value)

	d, _ := r.Describe("navigate")
	assert.Nil(t, d.Params, "options do not leak across registrations")
}

func TestRegistry_KindsSorted(t *testing.T) {
	r := New()
	r.Register("showToast", constant(nil))
	r.Register("apiCall", constant(nil))
	r.Register("sequence", constant(nil), Structural())

	assert.Equal(t, []string{"apiCall", "sequence", "showToast"}, r.Kinds())

	descs := r.Descriptors()
	require.Len(t, descs, 3)
	assert.True(t, descs[1].Structural)
}
