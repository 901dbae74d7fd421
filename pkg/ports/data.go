package ports

import (
	"context"
	"time"
)

// DatasourceService reloads named datasources of the current page.
type DatasourceService interface {
	Refresh(ctx context.Context, id string, params map[string]any) (any, error)
}

// CacheService invalidates cached responses. Both methods return how many
// entries were removed.
type CacheService interface {
	Invalidate(ctx context.Context, keys ...string) (int, error)
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// FormHandle is the slice of a mounted form that actions can drive.
type FormHandle interface {
	// Submit runs the form's submit lifecycle. Failures are returned as errors
	// that keep their error kind.
	Submit(ctx context.Context) (any, error)
	// ValidateAll validates every visible field and returns the error map.
	ValidateAll() map[string]string
	// Reset restores initial values, or the given ones when non-nil.
	Reset(values map[string]any)
}

// FormLocator finds mounted forms by ID.
type FormLocator interface {
	Form(id string) (FormHandle, bool)
}

// ResponseCache is a CacheService that also stores entries. The HTTP client
// adapter uses it to cache GET responses; invalidateCache removes them.
type ResponseCache interface {
	CacheService
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
