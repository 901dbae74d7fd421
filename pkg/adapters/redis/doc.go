// Package redis provides a Redis-backed response cache for the HTTP client
// adapter and the invalidateCache action.
package redis
