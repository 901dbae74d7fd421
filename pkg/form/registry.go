package form

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/openportal/internal/logging"
	"github.com/aretw0/openportal/pkg/ports"
)

// entry holds a mounted controller and how many mounts reference it.
type entry struct {
	form *Controller
	refs int
}

// Registry tracks mounted forms so actions can address them by ID.
// Several widgets may mount the same form; it stays addressable until the
// last of them releases it.
type Registry struct {
	mu     sync.Mutex
	forms  map[string]*entry
	logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		forms:  make(map[string]*entry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount makes the controller addressable under its ID and returns the
// function that releases this mount. Mounting a different controller under a
// taken ID replaces the previous one.
func (r *Registry) Mount(c *Controller) (release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.forms[c.ID()]
	if !ok || e.form != c {
		if ok {
			r.logger.Warn("replacing mounted form", "form_id", c.ID())
		}
		e = &entry{form: c}
		r.forms[c.ID()] = e
	}
	e.refs++

	var once sync.Once
	return func() {
		once.Do(func() { r.release(c) })
	}
}

// release decrements the reference count and unmounts at zero.
func (r *Registry) release(c *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.forms[c.ID()]
	if !ok || e.form != c {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.forms, c.ID())
	}
}

// Get returns the mounted controller.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.forms[id]
	if !ok {
		return nil, false
	}
	return e.form, true
}

// Form implements ports.FormLocator.
func (r *Registry) Form(id string) (ports.FormHandle, bool) {
	c, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	return c, true
}

// IDs lists mounted form IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.forms))
	for id := range r.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ ports.FormLocator = (*Registry)(nil)
var _ ports.FormHandle = (*Controller)(nil)
