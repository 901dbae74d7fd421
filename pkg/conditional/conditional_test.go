package conditional

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible_Condition(t *testing.T) {
	e := New()
	v := &Visibility{Condition: "hasCompany === true && formData.country !== 'US'"}

	assert.True(t, e.IsVisible(v, map[string]any{"hasCompany": true, "country": "BR"}, Principal{}))
	assert.False(t, e.IsVisible(v, map[string]any{"hasCompany": true, "country": "US"}, Principal{}))
	assert.False(t, e.IsVisible(v, map[string]any{}, Principal{}))
	assert.True(t, e.IsVisible(nil, nil, Principal{}))
}

func TestIsVisible_SecurityRejectionFailsClosed(t *testing.T) {
	var buf bytes.Buffer
	e := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	visible := e.IsVisible(&Visibility{Condition: "constructor.name === 'x' || true"}, nil, Principal{})

	assert.False(t, visible)
	assert.Contains(t, buf.String(), "expression rejected")
}

func TestIsVisible_RolesAndPermissions(t *testing.T) {
	e := New()
	v := &Visibility{
		Condition:   "amount > 100",
		Roles:       []string{"admin", "manager"},
		Permissions: []string{"orders.read", "orders.approve"},
	}
	form := map[string]any{"amount": 500}

	manager := Principal{Roles: []string{"manager"}, Permissions: []string{"orders.read", "orders.approve"}}
	assert.True(t, e.IsVisible(v, form, manager))

	reader := Principal{Roles: []string{"manager"}, Permissions: []string{"orders.read"}}
	assert.False(t, e.IsVisible(v, form, reader))

	guest := Principal{Roles: []string{"guest"}, Permissions: manager.Permissions}
	assert.False(t, e.IsVisible(v, form, guest))

	assert.False(t, e.IsVisible(v, map[string]any{"amount": 50}, manager))
}

func TestGetDependencies(t *testing.T) {
	assert.Equal(t, []string{"country", "age"},
		GetDependencies("formData.country === 'BR' && age >= 18 || country === 'PT'"))
	assert.Nil(t, GetDependencies("a ==="))
	assert.Equal(t, []string{"plan"}, (&Visibility{Condition: "plan === 'pro'"}).Dependencies())
}

func TestRecompute(t *testing.T) {
	two := 2
	fields := []ComputedField{
		{Name: "subtotal", Dependencies: []string{"price", "qty"}, Expression: "price * qty"},
		{Name: "total", Dependencies: []string{"subtotal", "tax"}, Expression: "subtotal * (1 + tax)", Precision: &two},
		{Name: "label", Dependencies: []string{"name"}, Compute: func(f map[string]any) any {
			return "Order for " + f["name"].(string)
		}},
	}
	e := New()

	patch := e.Recompute(map[string]any{"price": 9.99, "qty": 3, "tax": 0.075, "name": "Ana"}, fields)
	assert.InDelta(t, 29.97, patch["subtotal"], 1e-9)
	assert.Equal(t, 32.22, patch["total"])
	assert.Equal(t, "Order for Ana", patch["label"])

	form := map[string]any{"price": 10, "qty": 2, "tax": 0.0, "name": "Ana", "subtotal": 20.0, "total": 20.0, "label": "Order for Ana"}
	assert.Empty(t, e.Recompute(form, fields, "price"), "unchanged results produce no patch")

	form["qty"] = 3
	patch = e.Recompute(form, fields, "qty")
	assert.Equal(t, map[string]any{"subtotal": 30.0, "total": 30.0}, patch)
}

func TestRecompute_InvalidExpressionIsSkipped(t *testing.T) {
	e := New()
	patch := e.Recompute(map[string]any{"a": 1}, []ComputedField{
		{Name: "b", Dependencies: []string{"a"}, Expression: "a +"},
		{Name: "c", Dependencies: []string{"a"}, Expression: "a + 1"},
	})
	assert.Equal(t, map[string]any{"c": 2.0}, patch)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
	assert.Equal(t, -1.0, Round(-0.5, 0))
}
