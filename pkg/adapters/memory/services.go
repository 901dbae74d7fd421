package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/openportal/pkg/ports"
)

// Call is one recorded service invocation.
type Call struct {
	Service string
	Method  string
	Args    []any
}

// Recorder implements the UI-side ports by recording every call. It backs the
// CLI and tests, where no real widget layer exists.
// Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	// DialogAnswer is returned by ShowDialog.
	DialogAnswer any
	// Datasources maps datasource IDs to the data Refresh returns.
	Datasources map[string]any
	// Fail makes the named "Service.Method" return the error.
	Fail map[string]error
}

var (
	_ ports.Navigator         = (*Recorder)(nil)
	_ ports.Toaster           = (*Recorder)(nil)
	_ ports.ModalService      = (*Recorder)(nil)
	_ ports.DatasourceService = (*Recorder)(nil)
	_ ports.FileTransfer      = (*Recorder)(nil)
)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{Datasources: map[string]any{}, Fail: map[string]error{}}
}

func (r *Recorder) record(service, method string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Service: service, Method: method, Args: args})
	return r.Fail[service+"."+method]
}

// Calls returns a snapshot of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls of one service.
func (r *Recorder) CallsTo(service string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Service == service {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Navigate(_ context.Context, req ports.NavigateRequest) error {
	return r.record("navigation", "Navigate", req)
}

func (r *Recorder) Back(context.Context) error { return r.record("navigation", "Back") }

func (r *Recorder) Reload(context.Context) error { return r.record("navigation", "Reload") }

func (r *Recorder) Toast(_ context.Context, t ports.Toast) error {
	return r.record("toast", "Toast", t)
}

func (r *Recorder) ShowDialog(_ context.Context, d ports.Dialog) (any, error) {
	if err := r.record("modal", "ShowDialog", d); err != nil {
		return nil, err
	}
	return r.DialogAnswer, nil
}

func (r *Recorder) CloseDialog(_ context.Context, id string) error {
	return r.record("modal", "CloseDialog", id)
}

func (r *Recorder) OpenModal(_ context.Context, id string, props map[string]any) error {
	return r.record("modal", "OpenModal", id, props)
}

func (r *Recorder) CloseModal(_ context.Context, id string) error {
	return r.record("modal", "CloseModal", id)
}

func (r *Recorder) Refresh(_ context.Context, id string, params map[string]any) (any, error) {
	if err := r.record("datasource", "Refresh", id, params); err != nil {
		return nil, err
	}
	data, ok := r.Datasources[id]
	if !ok {
		return nil, fmt.Errorf("datasource %q not found", id)
	}
	return data, nil
}

func (r *Recorder) Download(_ context.Context, req ports.DownloadRequest) (*ports.DownloadResult, error) {
	if err := r.record("files", "Download", req); err != nil {
		return nil, err
	}
	return &ports.DownloadResult{Filename: req.Filename}, nil
}

func (r *Recorder) Upload(_ context.Context, req ports.UploadRequest) (*ports.HTTPResponse, error) {
	if err := r.record("files", "Upload", req); err != nil {
		return nil, err
	}
	return &ports.HTTPResponse{StatusCode: 201, Body: map[string]any{"filename": req.Filename}}, nil
}
