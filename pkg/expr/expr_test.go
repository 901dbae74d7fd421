package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() map[string]any {
	return map[string]any{
		"pageState": map[string]any{
			"count": 5,
			"name":  "ada",
			"items": []any{"a", "b", "c"},
			"rows":  []any{map[string]any{"id": 7}},
			"flag":  true,
		},
		"formData": map[string]any{"age": "21", "country": "BR"},
		"user":     map[string]any{"role": "admin"},
	}
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2 * 3", float64(7)},
		{"(1 + 2) * 3", float64(9)},
		{"10 % 4", float64(2)},
		{"-pageState.count", float64(-5)},
		{"pageState.count > 3", true},
		{"pageState.count >= 5 && pageState.flag", true},
		{"pageState.count < 3 || pageState.name", "ada"},
		{"!pageState.flag", false},
		{"pageState.name === 'ada'", true},
		{"pageState.name !== \"ada\"", false},
		{"formData.age == 21", true},
		{"formData.age === 21", false},
		{"formData.age >= 18", true},
		{"pageState.items.length", float64(3)},
		{"pageState.items[1]", "b"},
		{"pageState.items.2", "c"},
		{"pageState.rows[0].id", 7},
		{"pageState.missing", nil},
		{"unknown.root.path", nil},
		{"pageState.missing === undefined", true},
		{"null == undefined", true},
		{"'a' + 1", "a1"},
		{"{{pageState.count}} + 1", float64(6)},
		{"'b' > 'a'", true},
		{"1.5 + 1", float64(2.5)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, testScope())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_SecurityRejection(t *testing.T) {
	for _, src := range []string{
		"constructor",
		"pageState.constructor",
		"pageState.__proto__.polluted",
		"window.location",
		"this.x === 1",
		"pageState['prototype']",
		"1 + globalThis.x",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			var secErr *SecurityError
			require.ErrorAs(t, err, &secErr)
			assert.True(t, errors.Is(err, ErrRejected))

			ok, err := Test(src, testScope())
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCompile_StringLiteralsAreNotIdentifiers(t *testing.T) {
	ok, err := Test("user.role !== 'process'", testScope())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompile_SyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1 + 2", "a.", "{{ 1 }}", "a ? b : c", "alert(1)"} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			var synErr *SyntaxError
			assert.ErrorAs(t, err, &synErr)
		})
	}
}

func TestDependencies(t *testing.T) {
	deps, err := Dependencies("formData.country === 'BR' && formData.age > 18 || formData.country == user.country")
	require.NoError(t, err)
	assert.Equal(t, []string{"formData.country", "formData.age", "user.country"}, deps)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(math.NaN()))
	assert.True(t, Truthy("0"))
	assert.True(t, Truthy([]any{}))
	assert.True(t, Truthy(map[string]any{}))
}

func TestArithmetic(t *testing.T) {
	n, ok := Arithmetic("0 + 1")
	require.True(t, ok)
	assert.Equal(t, float64(1), n)

	n, ok = Arithmetic("2.5 * 4 - 1")
	require.True(t, ok)
	assert.Equal(t, float64(9), n)

	for _, s := range []string{"42", "a + b", "1+1", "Total: 1 + 2", "1 / 0"} {
		_, ok := Arithmetic(s)
		assert.False(t, ok, s)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "6", ToString(float64(6)))
	assert.Equal(t, "2.5", ToString(2.5))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, `{"a":1}`, ToString(map[string]any{"a": 1}))
}
