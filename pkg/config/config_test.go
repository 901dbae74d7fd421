package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/form"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type kinds map[string]bool

func (k kinds) Has(kind string) bool { return k[kind] }

func TestLoadActionGraph_YAML(t *testing.T) {
	path := write(t, "save.yaml", `
id: save
kind: sequence
loading: true
params:
  actions:
    - id: post
      kind: apiCall
      params: {url: /api/orders, method: POST}
      retry: {attempts: 3, delay: 100, backoff: exponential}
onError:
  - id: toast
    kind: showToast
    params: {message: "{{trigger.error.message}}"}
`)
	node, err := LoadActionGraph(path)
	require.NoError(t, err)

	assert.Equal(t, "save", node.ID)
	assert.True(t, node.Loading)
	require.Len(t, node.OnError, 1)

	children, err := domain.DecodeNodes(node.Params[domain.ParamActions])
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, domain.BackoffExponential, children[0].Retry.Backoff)
}

func TestLoadActionGraph_JSONList(t *testing.T) {
	path := write(t, "steps.json", `[
		{"id": "a", "kind": "log", "params": {"message": "one"}},
		{"id": "b", "kind": "log", "params": {"message": "two"}}
	]`)
	node, err := LoadActionGraph(path)
	require.NoError(t, err)

	assert.Equal(t, RootID, node.ID)
	assert.Equal(t, domain.KindSequence, node.Kind)
	children, err := domain.DecodeNodes(node.Params[domain.ParamActions])
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestLoadContext(t *testing.T) {
	path := write(t, "ctx.json", `{
		"pageState": {"total": 0},
		"user": {"role": "admin"},
		"trigger": {"widgetId": "btn", "eventType": "click"}
	}`)
	ectx, err := LoadContext(path)
	require.NoError(t, err)

	assert.Equal(t, float64(0), ectx.PageState["total"])
	assert.Equal(t, "btn", ectx.Trigger.WidgetID)
	assert.NotNil(t, ectx.FormData)
}

func TestLoadFormConfig(t *testing.T) {
	path := write(t, "signup.yaml", `
id: signup
validationMode: onChange
initialValues:
  email: ""
validationRules:
  email: [required, {type: email, message: "bad email"}]
  confirmEmail:
    - {type: crossField, validator: equals, dependencies: [email]}
`)
	cfg, err := LoadFormConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "signup", cfg.ID)
	assert.Equal(t, form.ModeOnChange, cfg.ValidationMode)
	assert.Len(t, cfg.ValidationRules["email"], 2)
	assert.Equal(t, []string{"email"}, cfg.ValidationRules["confirmEmail"][0].Dependencies)
}

func TestLoadService(t *testing.T) {
	cfg, err := LoadService(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultService(), cfg)

	path := write(t, "openportal.yaml", `
addr: ":9000"
http:
  base_url: https://api.example.com
  timeout: 5s
  cache_ttl: 1500
redis:
  addr: localhost:6379
`)
	cfg, err = LoadService(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep their defaults")
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout.Std())
	assert.Equal(t, 1500*time.Millisecond, cfg.HTTP.CacheTTL.Std())
	assert.Equal(t, "openportal:", cfg.Redis.Prefix)

	bad := write(t, "bad.yaml", "http:\n  timeout: soon\n")
	_, err = LoadService(bad)
	assert.Error(t, err)
}

func TestValidateGraph_ReportsEverything(t *testing.T) {
	root := &domain.ActionNode{
		ID:   "root",
		Kind: domain.KindSequence,
		Params: map[string]any{domain.ParamActions: []any{
			map[string]any{"id": "a", "kind": "log", "condition": "pageState.ready &&"},
			map[string]any{"id": "a", "kind": "teleport"},
			map[string]any{"id": "c", "kind": "conditional", "params": map[string]any{
				"branches": []any{map[string]any{"condition": "constructor.x", "actions": []any{}}},
			}},
			map[string]any{"id": "d", "kind": "forEach"},
			map[string]any{"id": "e", "kind": "log", "retry": map[string]any{"attempts": 2, "backoff": "random"}},
			map[string]any{"id": "f"},
		}},
	}

	report := ValidateGraph(root, kinds{"log": true})

	codes := map[IssueCode][]string{}
	for _, issue := range report.Issues {
		codes[issue.Code] = append(codes[issue.Code], issue.Path)
	}
	assert.Equal(t, []string{"root.params.actions[0].condition"}, codes[IssueInvalidCondition])
	assert.Equal(t, []string{"root.params.actions[1]"}, codes[IssueDuplicateID])
	assert.Equal(t, []string{"root.params.actions[1]"}, codes[IssueUnknownKind])
	assert.Equal(t, []string{"root.params.actions[2].params.branches[0].condition"}, codes[IssueRejectedExpr])
	assert.Equal(t, []string{"root.params.actions[3].params.items"}, codes[IssueMalformed])
	assert.Equal(t, []string{"root.params.actions[4].retry.backoff"}, codes[IssueInvalidRetry])
	assert.Equal(t, []string{"root.params.actions[5]"}, codes[IssueMissingKind])

	assert.False(t, report.Valid())
	assert.ErrorContains(t, report.Err(), "found 7 errors")
}

func TestValidateGraph_Valid(t *testing.T) {
	root := &domain.ActionNode{ID: "go", Kind: "navigate", Params: map[string]any{"to": "/home"}}
	report := ValidateGraph(root, kinds{"navigate": true})
	assert.True(t, report.Valid())
	assert.NoError(t, report.Err())
}
