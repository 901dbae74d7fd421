package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/openportal/pkg/domain"
)

func testContext() *domain.ExecutionContext {
	return &domain.ExecutionContext{
		PageState: map[string]any{
			"count":   5,
			"enabled": true,
			"filters": map[string]any{"status": "open"},
			"items":   []any{1, 2},
		},
		FormData:    map[string]any{"email": "x@y.com"},
		User:        map[string]any{"name": "Ada"},
		RouteParams: map[string]any{"id": "42"},
		Trigger:     domain.Trigger{WidgetID: "btn-save", EventType: "click"},
	}
}

func TestResolve_SingleTokenKeepsType(t *testing.T) {
	ctx := testContext()

	assert.Equal(t, 5, Resolve("{{pageState.count}}", ctx))
	assert.Equal(t, true, Resolve("{{pageState.enabled}}", ctx))
	assert.Equal(t, map[string]any{"status": "open"}, Resolve("{{ pageState.filters }}", ctx))
	assert.Equal(t, "btn-save", Resolve("{{trigger.widgetId}}", ctx))
}

func TestResolve_MixedTextStringifies(t *testing.T) {
	ctx := testContext()

	assert.Equal(t, "Count: 5", Resolve("Count: {{pageState.count}}", ctx))
	assert.Equal(t, "/orders/42/Ada", Resolve("/orders/{{routeParams.id}}/{{user.name}}", ctx))
	assert.Equal(t, "5 + 1", Resolve("{{pageState.count}} + 1", ctx))
}

func TestResolve_MissingPathsNeverFail(t *testing.T) {
	ctx := testContext()

	assert.Nil(t, Resolve("{{pageState.nope}}", ctx))
	assert.Nil(t, Resolve("{{unknownRoot.a.b}}", ctx))
	assert.Equal(t, "Hello !", Resolve("Hello {{user.missing}}!", ctx))
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := testContext()

	once := Resolve("Count: {{pageState.count}}", ctx)
	assert.Equal(t, once, Resolve(once.(string), ctx))
	assert.Equal(t, "plain", Resolve("plain", ctx))
}

func TestResolve_InlineExpression(t *testing.T) {
	assert.Equal(t, float64(6), Resolve("{{pageState.count + 1}}", testContext()))
}

func TestResolveParams_DeepWalk(t *testing.T) {
	ctx := testContext()
	params := map[string]any{
		"url":     "/api/orders/{{routeParams.id}}",
		"method":  "POST",
		"retries": 3,
		"body": map[string]any{
			"email": "{{formData.email}}",
			"tags":  []any{"{{pageState.filters.status}}", 7, true},
		},
	}

	got := ResolveParams(params, ctx)

	want := map[string]any{
		"url":     "/api/orders/42",
		"method":  "POST",
		"retries": 3,
		"body": map[string]any{
			"email": "x@y.com",
			"tags":  []any{"open", 7, true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveParams() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "{{formData.email}}", params["body"].(map[string]any)["email"], "input must not be mutated")
}
