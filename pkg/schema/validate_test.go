package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"url":     NonEmptyString(),
		"method":  Optional(OneOf("GET", "POST")),
		"retries": Number(),
		"headers": Optional(Map()),
		"tags":    List(String()),
		"body":    Any(),
	}

	err := Validate(s, map[string]any{
		"url":     "/api",
		"method":  "post",
		"retries": 3,
		"tags":    []any{"a", "b"},
		"body":    nil,
	})
	// body is required even though Any accepts nil values; nil counts as missing
	require.Error(t, err)

	err = Validate(s, map[string]any{
		"url":     "/api",
		"retries": 2.5,
		"tags":    []string{"a"},
		"body":    map[string]any{},
	})
	assert.NoError(t, err)
}

func TestValidate_ReportsEveryFailureInOrder(t *testing.T) {
	s := Schema{
		"to":      NonEmptyString(),
		"replace": Optional(Bool()),
		"delay":   Number(),
	}

	err := Validate(s, map[string]any{"to": " ", "replace": "yes"})
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 3)
	assert.Equal(t, "delay", errs[0].(*ValidationError).Key)
	assert.Equal(t, "required", errs[0].(*ValidationError).Reason)
	assert.Equal(t, "replace", errs[1].(*ValidationError).Key)
	assert.Equal(t, "to", errs[2].(*ValidationError).Key)
	assert.Contains(t, err.Error(), "3 invalid params")
}

func TestAnyOf(t *testing.T) {
	typ := AnyOf(String(), List(String()))
	assert.NoError(t, typ.Validate("a"))
	assert.NoError(t, typ.Validate([]any{"a"}))
	assert.Error(t, typ.Validate(5))
	assert.Equal(t, "string|[string]", typ.Name())
}

func TestSchema_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Schema{"url": String(), "query": Optional(Map())})
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"string","query":"map?"}`, string(b))
}
