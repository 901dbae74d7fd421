package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/openportal/pkg/ports"
)

// Route is a canned HTTP response. Fn, when set, computes it per request.
type Route struct {
	Status int
	Body   any
	Err    error
	Fn     func(req ports.HTTPRequest) (*ports.HTTPResponse, error)
}

// HTTPStub implements ports.HTTPClient with canned routes keyed by "METHOD URL".
// Unknown routes answer 404. Safe for concurrent use.
type HTTPStub struct {
	mu       sync.Mutex
	routes   map[string]Route
	requests []ports.HTTPRequest
}

// NewHTTPStub creates a stub without routes.
func NewHTTPStub() *HTTPStub {
	return &HTTPStub{routes: map[string]Route{}}
}

// Handle registers a route.
func (s *HTTPStub) Handle(method, url string, r Route) *HTTPStub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+url] = r
	return s
}

// Do answers from the registered routes.
func (s *HTTPStub) Do(_ context.Context, req ports.HTTPRequest) (*ports.HTTPResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	r, ok := s.routes[req.Method+" "+req.URL]
	s.mu.Unlock()

	if !ok {
		return &ports.HTTPResponse{StatusCode: 404, Body: map[string]any{"message": fmt.Sprintf("no route for %s %s", req.Method, req.URL)}}, nil
	}
	if r.Fn != nil {
		return r.Fn(req)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	status := r.Status
	if status == 0 {
		status = 200
	}
	return &ports.HTTPResponse{StatusCode: status, Body: r.Body}, nil
}

// Requests returns a snapshot of the received requests.
func (s *HTTPStub) Requests() []ports.HTTPRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.HTTPRequest(nil), s.requests...)
}
