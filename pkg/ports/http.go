package ports

import (
	"context"
	"net/http"
)

// HTTPRequest is a declarative request as described by action params.
type HTTPRequest struct {
	Method  string            `json:"method" mapstructure:"method"`
	URL     string            `json:"url" mapstructure:"url"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Query   map[string]any    `json:"query,omitempty" mapstructure:"query"`
	Body    any               `json:"body,omitempty" mapstructure:"body"`
}

// HTTPResponse carries the decoded response body (JSON when possible, else string).
type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       any
}

// OK reports a 2xx status.
func (r *HTTPResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPClient issues requests to the backend.
// Transport failures are returned as errors; non-2xx responses are not errors.
type HTTPClient interface {
	Do(ctx context.Context, req HTTPRequest) (*HTTPResponse, error)
}

// DownloadRequest describes a file download.
type DownloadRequest struct {
	URL      string            `json:"url" mapstructure:"url"`
	Method   string            `json:"method,omitempty" mapstructure:"method"`
	Filename string            `json:"filename,omitempty" mapstructure:"filename"`
	Headers  map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Body     any               `json:"body,omitempty" mapstructure:"body"`
}

// DownloadResult reports where the file ended up.
type DownloadResult struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
	Size     int64  `json:"size"`
}

// UploadRequest describes a multipart upload. Content is either a []byte, a string
// or a path to a local file (when Path is set).
type UploadRequest struct {
	URL      string            `json:"url" mapstructure:"url"`
	Field    string            `json:"field,omitempty" mapstructure:"field"`
	Filename string            `json:"filename,omitempty" mapstructure:"filename"`
	Path     string            `json:"path,omitempty" mapstructure:"path"`
	Content  any               `json:"content,omitempty" mapstructure:"content"`
	Fields   map[string]string `json:"fields,omitempty" mapstructure:"fields"`
	Headers  map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

// FileTransfer moves files between the backend and the host.
type FileTransfer interface {
	Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error)
	Upload(ctx context.Context, req UploadRequest) (*HTTPResponse, error)
}
