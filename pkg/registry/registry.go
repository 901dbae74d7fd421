// Package registry maps action kinds to their handlers.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aretw0/openportal/pkg/domain"
	"github.com/aretw0/openportal/pkg/schema"
)

// ErrStructuralKind is returned when a combinator handler is invoked directly;
// combinators are executed by the graph runner.
var ErrStructuralKind = errors.New("structural kind is executed by the graph runner")

// Handler performs the work of one leaf action.
// params are already resolved against ectx. Returned errors are normalized by
// the executor; errors implementing ErrorKind() keep their kind.
type Handler interface {
	Handle(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, params map[string]any, ectx *domain.ExecutionContext) (domain.Output, error) {
	return f(ctx, params, ectx)
}

// Descriptor is the public description of a registered kind.
type Descriptor struct {
	Kind        string        `json:"kind"`
	Description string        `json:"description,omitempty"`
	Params      schema.Schema `json:"params,omitempty"`
	Structural  bool          `json:"structural,omitempty"`

	handler Handler
}

// Option customizes a registration.
type Option func(*Descriptor)

// WithSchema checks resolved params against s before the handler runs.
func WithSchema(s schema.Schema) Option {
	return func(d *Descriptor) { d.Params = s }
}

// WithDescription documents the kind.
func WithDescription(text string) Option {
	return func(d *Descriptor) { d.Description = text }
}

// Structural marks a combinator kind.
func Structural() Option {
	return func(d *Descriptor) { d.Structural = true }
}

// Registry manages the available action kinds. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Descriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Descriptor)}
}

// Register adds a handler. An existing kind is overwritten, which is how
// tests and hosts replace built-ins.
func (r *Registry) Register(kind string, h Handler, opts ...Option) {
	d := Descriptor{Kind: kind, handler: h}
	for _, opt := range opts {
		opt(&d)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = d
}

// RegisterFunc is Register for plain functions.
func (r *Registry) RegisterFunc(kind string, fn HandlerFunc, opts ...Option) {
	r.Register(kind, fn, opts...)
}

// Get returns the handler for kind.
func (r *Registry) Get(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.handlers[kind]
	if !ok {
		return nil, false
	}
	return d.handler, true
}

// Describe returns the descriptor for kind.
func (r *Registry) Describe(kind string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.handlers[kind]
	return d, ok
}

// Kinds lists the registered kinds in lexical order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Descriptors lists every registration in lexical kind order.
func (r *Registry) Descriptors() []Descriptor {
	kinds := r.Kinds()
	out := make([]Descriptor, 0, len(kinds))
	for _, k := range kinds {
		if d, ok := r.Describe(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.Get(kind)
	return ok
}
