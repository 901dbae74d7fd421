package dsl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal/pkg/domain"
)

func TestBuilder_Sequence(t *testing.T) {
	node := Sequence("save",
		Action("validate", domain.KindValidateForm).With("formId", "signup"),
		Action("post", domain.KindAPICall).With("url", "/api/users").Retry(3, 500, domain.BackoffExponential),
	).
		Loading().
		OnError(Action("toast", domain.KindShowToast).With("message", "{{trigger.error.message}}")).
		Build()

	assert.Equal(t, "save", node.ID)
	assert.True(t, node.Loading)

	children, err := domain.DecodeNodes(node.Params[domain.ParamActions])
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "validate", children[0].ID)
	assert.Equal(t, 3, children[1].Retry.Attempts)
	require.Len(t, node.OnError, 1)
	assert.Equal(t, "toast", node.OnError[0].ID)
}

func TestBuilder_GeneratesIDs(t *testing.T) {
	a := Action("", domain.KindLog).Build()
	b := Action("", domain.KindLog).Build()
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBuilder_Conditional(t *testing.T) {
	node := Conditional("route").
		Branch("user.role === 'admin'", Action("admin", domain.KindNavigate).With("to", "/admin")).
		Default(Action("home", domain.KindNavigate).With("to", "/")).
		Build()

	require.NoError(t, domain.Check(&node))

	branches, err := domain.DecodeBranches(node.Params[domain.ParamBranches])
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "admin", branches[0].Actions[0].ID)
}

func TestBuilder_WireFormat(t *testing.T) {
	node := Action("fetch", domain.KindAPICall).
		With("url", "/api/orders").
		Timeout(5000).
		Retry(3, 1000, domain.BackoffExponential).
		When("pageState.ready").
		Build()

	b, err := json.Marshal(node)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "fetch",
		"kind": "apiCall",
		"params": {"url": "/api/orders"},
		"condition": "pageState.ready",
		"loading": false,
		"timeout": 5000,
		"retry": {"attempts": 3, "delay": 1000, "backoff": "exponential"}
	}`, string(b))

	var back domain.ActionNode
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, node, back)
}
