package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/openportal"
	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/config"
	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/registry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestSize caps request bodies accepted by the server.
const maxRequestSize = 1 << 20

// Engine is the slice of the action engine exposed over HTTP.
type Engine interface {
	Run(ctx context.Context, node *domain.ActionNode, ectx *domain.ExecutionContext) (*domain.Execution, error)
	Validate(node *domain.ActionNode) *config.Report
	Descriptors() []registry.Descriptor
}

// RunRequest is the body of POST /v1/actions/run.
type RunRequest struct {
	SessionID string                   `json:"sessionId,omitempty"`
	Action    *domain.ActionNode       `json:"action"`
	Context   *domain.ExecutionContext `json:"context,omitempty"`
}

// RunResponse carries the execution record and the state change it produced.
type RunResponse struct {
	Execution *domain.Execution `json:"execution"`
	Diff      *domain.StateDiff `json:"diff,omitempty"`
}

// ValidateResponse is the body returned by POST /v1/actions/validate.
type ValidateResponse struct {
	Valid  bool           `json:"valid"`
	Issues []config.Issue `json:"issues"`
}

// Server serves the engine over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// ServerOption configures the handler.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...ServerOption) http.Handler {
	server := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.logger)

	r := chi.NewRouter()
	r.Get("/healthz", server.GetHealth)
	r.Get("/info", server.GetInfo)
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/actions/run", server.RunAction)
		r.Post("/actions/validate", server.ValidateAction)
		r.Get("/actions/kinds", server.GetKinds)
		r.Get("/events", server.SubscribeEvents)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunAction handles POST /v1/actions/run.
func (s *Server) RunAction(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Action == nil {
		http.Error(w, "Missing action", http.StatusBadRequest)
		return
	}
	before := body.Context
	if before == nil {
		before = domain.NewExecutionContext()
	}

	exec, err := s.Engine.Run(r.Context(), body.Action, before)
	if err != nil {
		http.Error(w, fmt.Sprintf("Run error: %v", err), http.StatusBadRequest)
		s.logger.Warn("RunAction: rejected graph", "err", err)
		return
	}

	diff := domain.Diff(before, exec.Context)
	if diff != nil {
		diff.ExecutionID = exec.ID
		if body.SessionID != "" {
			if bytes, err := json.Marshal(diff); err == nil {
				s.Streams.Broadcast(body.SessionID, string(bytes))
			}
		}
	}
	s.logger.Debug("RunAction: finished", "execution_id", exec.ID, "status", exec.Result.Status, "session_id", body.SessionID)

	s.write(w, http.StatusOK, RunResponse{Execution: exec, Diff: diff})
}

// ValidateAction handles POST /v1/actions/validate.
func (s *Server) ValidateAction(w http.ResponseWriter, r *http.Request) {
	var node domain.ActionNode
	if !s.decode(w, r, &node) {
		return
	}
	report := s.Engine.Validate(&node)
	resp := ValidateResponse{Valid: report.Valid(), Issues: report.Issues}
	if resp.Issues == nil {
		resp.Issues = []config.Issue{}
	}
	s.write(w, http.StatusOK, resp)
}

// GetKinds handles GET /v1/actions/kinds.
func (s *Server) GetKinds(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, s.Engine.Descriptors())
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]string{
		"app":     "openportal-http",
		"version": strings.TrimSpace(openportal.Version),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// SubscribeEvents handles GET /v1/events?sessionId=...&watch=pageState,formData.
// Each run carrying the session ID pushes its state diff to the stream.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// watched reports whether the diff touches one of the watched scopes.
// Undecodable messages are passed through.
func watched(msg string, scopes []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, scope := range scopes {
		switch strings.TrimSpace(scope) {
		case domain.NamespacePageState:
			if len(diff.PageState) > 0 {
				return true
			}
		case domain.NamespaceFormData:
			if len(diff.FormData) > 0 {
				return true
			}
		case domain.NamespaceWidgetStates:
			if len(diff.WidgetStates) > 0 {
				return true
			}
		}
	}
	return false
}
