package openportal_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/openportal"
	"github.com/aretw0/openportal/internal/testutils"
	"github.com/aretw0/openportal/pkg/adapters/memory"
	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/dsl"
	"github.com/aretw0/openportal/pkg/form"
	"github.com/aretw0/openportal/pkg/ports"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/aretw0/openportal/pkg/validation"
)

func newEngine(t *testing.T, opts ...openportal.Option) (*openportal.Engine, *memory.Recorder, *memory.HTTPStub) {
	t.Helper()
	rec := memory.NewRecorder()
	stub := memory.NewHTTPStub()
	services := domain.Services{HTTP: stub, Toast: rec, Navigation: rec, Modal: rec}
	eng, err := openportal.New(append([]openportal.Option{openportal.WithServices(services)}, opts...)...)
	require.NoError(t, err)
	return eng, rec, stub
}

func TestEngine_Run(t *testing.T) {
	eng, rec, stub := newEngine(t)
	stub.Handle("GET", "/api/orders", memory.Route{Body: []any{"o-1", "o-2"}})

	graph := dsl.Sequence("load",
		dsl.Action("fetch", domain.KindAPICall).With("url", "/api/orders").With("target", "orders"),
		dsl.Action("toast", domain.KindShowToast).With("message", "Loaded {{pageState.orders[1]}}"),
	).Build()

	exec, err := eng.Run(context.Background(), &graph, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, exec.Result.Status, exec.Result.Message)
	assert.NotEmpty(t, exec.ID)
	assert.Equal(t, []any{"o-1", "o-2"}, exec.Context.PageState["orders"])

	calls := rec.CallsTo("toast")
	require.Len(t, calls, 1)
	assert.Equal(t, "Loaded o-2", calls[0].Args[0].(ports.Toast).Message)
}

func TestEngine_Run_MalformedGraph(t *testing.T) {
	eng, _, _ := newEngine(t)
	_, err := eng.Run(context.Background(), &domain.ActionNode{ID: "broken"}, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedNode)
}

func TestEngine_ContextServicesWin(t *testing.T) {
	eng, engineRec, _ := newEngine(t)
	own := memory.NewRecorder()

	ectx := domain.NewExecutionContext().WithServices(domain.Services{Toast: own})
	node := dsl.Action("t", domain.KindShowToast).With("message", "hi").Build()
	exec, err := eng.Run(context.Background(), &node, ectx)
	require.NoError(t, err)
	require.True(t, exec.Result.Succeeded())

	assert.Len(t, own.CallsTo("toast"), 1)
	assert.Empty(t, engineRec.CallsTo("toast"))
}

func TestEngine_WithHandler(t *testing.T) {
	greet := registry.HandlerFunc(func(_ context.Context, params map[string]any, _ *domain.ExecutionContext) (domain.Output, error) {
		return domain.PatchOutput(domain.SetPatch(domain.ScopePageState, map[string]any{"greeting": "hello " + params["name"].(string)})), nil
	})
	eng, _, _ := newEngine(t, openportal.WithHandler("greet", greet, registry.WithDescription("Greets.")))

	assert.Contains(t, eng.Kinds(), "greet")
	assert.Contains(t, eng.Kinds(), domain.KindSequence)

	node := dsl.Action("g", "greet").With("name", "{{user.name}}").Build()
	ectx := domain.NewExecutionContext()
	ectx.User = map[string]any{"name": "ana"}
	exec, err := eng.Run(context.Background(), &node, ectx)
	require.NoError(t, err)
	assert.Equal(t, "hello ana", exec.Context.PageState["greeting"])
}

func TestEngine_Validate(t *testing.T) {
	eng, _, _ := newEngine(t)

	ok := dsl.Sequence("s", dsl.Action("n", domain.KindNavigate).With("to", "/home")).Build()
	assert.True(t, eng.Validate(&ok).Valid())

	bad := dsl.Sequence("s",
		dsl.Action("n", "teleport"),
		dsl.Action("n", domain.KindNavigate),
	).Build()
	report := eng.Validate(&bad)
	require.False(t, report.Valid())
	codes := make([]config.IssueCode, 0, len(report.Issues))
	for _, issue := range report.Issues {
		codes = append(codes, issue.Code)
	}
	assert.ElementsMatch(t, []config.IssueCode{config.IssueUnknownKind, config.IssueDuplicateID}, codes)
}

func TestEngine_HooksAndMetrics(t *testing.T) {
	var mu sync.Mutex
	var finished []string
	hooks := domain.LifecycleHooks{
		OnNodeFinish: func(_ context.Context, ev *domain.NodeEvent) {
			mu.Lock()
			defer mu.Unlock()
			finished = append(finished, ev.NodeID)
		},
	}
	reg := prometheus.NewRegistry()
	eng, _, _ := newEngine(t, openportal.WithHooks(hooks), openportal.WithMetrics(reg))

	node := dsl.Sequence("seq",
		dsl.SetState("a", map[string]any{"n": 1}),
		dsl.SetState("b", map[string]any{"m": 2}),
	).Build()
	_, err := eng.Run(context.Background(), &node, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "seq"}, finished)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["openportal_action_nodes_total"])

	_, err = openportal.New(openportal.WithMetrics(reg))
	assert.Error(t, err, "collectors are already registered")
}

func TestEngine_NewForm(t *testing.T) {
	validators := validation.NewValidators()
	validators.Register("isEven", func(value any, _ map[string]any) string {
		if n, ok := value.(int); ok && n%2 == 0 {
			return ""
		}
		return "Must be even"
	})
	eng, _, _ := newEngine(t, openportal.WithValidators(validators))

	var submitted map[string]any
	ctrl, release, err := eng.NewForm(form.Config{
		ID:            "signup",
		InitialValues: map[string]any{"count": 3},
		ValidationRules: map[string][]validation.Rule{
			"count": {{Type: validation.RuleCustom, Validator: "isEven"}},
		},
	}, form.WithSubmitHandler(func(_ context.Context, values map[string]any) (any, error) {
		submitted = values
		return "ok", nil
	}))
	require.NoError(t, err)
	defer release()

	submit := dsl.Action("s", domain.KindSubmitForm).With("formId", "signup").Build()

	exec, err := eng.Run(context.Background(), &submit, nil)
	require.NoError(t, err)
	require.True(t, exec.Result.Failed())
	assert.Equal(t, domain.ErrorKindValidationError, exec.Result.ErrorKind)
	assert.Equal(t, "Must be even", ctrl.State().Errors["count"])

	ctrl.SetValue("count", 4)
	exec, err = eng.Run(context.Background(), &submit, nil)
	require.NoError(t, err)
	require.True(t, exec.Result.Succeeded(), exec.Result.Message)
	assert.Equal(t, "ok", exec.Result.Value)
	assert.Equal(t, 4, submitted["count"])

	release()
	exec, err = eng.Run(context.Background(), &submit, nil)
	require.NoError(t, err)
	assert.True(t, exec.Result.Failed(), "unmounted forms are not found")
}

func TestEngine_NewForm_InvalidConfig(t *testing.T) {
	eng, _, _ := newEngine(t)
	_, _, err := eng.NewForm(form.Config{ID: "f", ValidationMode: "sometimes"})
	assert.Error(t, err)
}

func TestEngine_RunYAMLGraph(t *testing.T) {
	eng, rec, stub := newEngine(t)
	calls := 0
	stub.Handle("POST", "/api/orders", memory.Route{Fn: func(ports.HTTPRequest) (*ports.HTTPResponse, error) {
		calls++
		return &ports.HTTPResponse{StatusCode: 503, Body: map[string]any{"message": "busy"}}, nil
	}})

	graph := testutils.MustParseGraph(t, "order.yaml", `
id: place-order
kind: apiCall
params:
  method: POST
  url: /api/orders
  body:
    sku: "{{formData.sku}}"
retry:
  attempts: 3
  delay: 0
onError:
  - id: tell
    kind: showToast
    params:
      level: error
      message: "{{trigger.error.message}}"
`)
	ectx := domain.NewExecutionContext().WithFormData(map[string]any{"sku": "A-1"})

	exec, err := eng.Run(context.Background(), graph, ectx)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "A-1", stub.Requests()[0].Body.(map[string]any)["sku"])
	assert.True(t, exec.Result.Succeeded(), "the error chain result replaces the failure")

	toasts := rec.CallsTo("toast")
	require.Len(t, toasts, 1)
	assert.Contains(t, toasts[0].Args[0].(ports.Toast).Message, "503")
}
