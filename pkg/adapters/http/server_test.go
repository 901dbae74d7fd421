package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEngine for testing
type MockEngine struct {
	RunFunc func(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) (*domain.Execution, error)
}

func (m *MockEngine) Run(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) (*domain.Execution, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, node, ectx)
	}
	// Simple mock: write "foo" into pageState to produce a diff
	after := *ectx
	after.PageState = map[string]any{"foo": "bar"}
	return &domain.Execution{ID: "exec-1", Result: domain.Success(nil), Context: &after}, nil
}

func (m *MockEngine) Validate(node *domain.ActionNode) *config.Report {
	return config.ValidateGraph(node, nil)
}

func (m *MockEngine) Descriptors() []registry.Descriptor {
	return []registry.Descriptor{{Kind: "navigate", Description: "Changes the route."}}
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRunAction(t *testing.T) {
	handler := NewHandler(&MockEngine{})

	w := post(t, handler, "/v1/actions/run", RunRequest{
		Action: &domain.ActionNode{ID: "a", Kind: "setState"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "exec-1", resp.Execution.ID)
	assert.Equal(t, domain.StatusSuccess, resp.Execution.Result.Status)
	require.NotNil(t, resp.Diff)
	assert.Equal(t, "exec-1", resp.Diff.ExecutionID)
	assert.Equal(t, map[string]any{"foo": "bar"}, resp.Diff.PageState)
}

func TestRunAction_BadRequests(t *testing.T) {
	handler := NewHandler(&MockEngine{
		RunFunc: func(context.Context, *domain.ActionNode, *domain.ExecutionContext) (*domain.Execution, error) {
			return nil, &domain.MalformedNodeError{Path: "root", Reason: "missing kind"}
		},
	})

	req := httptest.NewRequest("POST", "/v1/actions/run", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, handler, "/v1/actions/run", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing action")

	w = post(t, handler, "/v1/actions/run", RunRequest{Action: &domain.ActionNode{ID: "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing kind")
}

func TestValidateAction(t *testing.T) {
	handler := NewHandler(&MockEngine{})

	w := post(t, handler, "/v1/actions/validate", domain.ActionNode{ID: "a", Kind: "navigate"})
	require.Equal(t, http.StatusOK, w.Code)
	var ok ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Issues)

	w = post(t, handler, "/v1/actions/validate", domain.ActionNode{ID: "a", Kind: "navigate", Condition: "a ==="})
	var bad ValidateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bad))
	assert.False(t, bad.Valid)
	require.NotEmpty(t, bad.Issues)
	assert.Equal(t, config.IssueInvalidCondition, bad.Issues[0].Code)
}

func TestGetKindsAndHealth(t *testing.T) {
	handler := NewHandler(&MockEngine{})

	req := httptest.NewRequest("GET", "/v1/actions/kinds", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"navigate"`)

	req = httptest.NewRequest("GET", "/healthz", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "openportal_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	handler := NewHandler(&MockEngine{}, WithGatherer(reg))
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openportal_test_total 1")

	// Without a gatherer the route does not exist.
	w = httptest.NewRecorder()
	NewHandler(&MockEngine{}).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := NewHandler(&MockEngine{})
	req := httptest.NewRequest("OPTIONS", "/v1/actions/run", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents_Session(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&MockEngine{}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/v1/events?sessionId=sess-1&watch=pageState", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	// The ping is flushed after the subscription is registered.
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	data, _ := json.Marshal(RunRequest{SessionID: "sess-1", Action: &domain.ActionNode{ID: "a", Kind: "setState"}})
	runResp, err := http.Post(srv.URL+"/v1/actions/run", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	runResp.Body.Close()
	require.Equal(t, http.StatusOK, runResp.StatusCode)

	var got string
	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: {") {
			got = lines.Text()
			break
		}
	}
	assert.Contains(t, got, `"foo":"bar"`)
	assert.Contains(t, got, `"executionId":"exec-1"`)
}

func TestSubscribeEvents_MissingSession(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&MockEngine{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWatched(t *testing.T) {
	msg := `{"formData":{"email":"a@b.c"}}`
	assert.True(t, watched(msg, []string{"formData"}))
	assert.False(t, watched(msg, []string{"pageState", " widgetStates"}))
	assert.True(t, watched("not json", []string{"pageState"}))
}
