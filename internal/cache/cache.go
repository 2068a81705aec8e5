// Package cache provides the read-through cache used for meal read models.
//
// It wraps a sharded sturdyc client. Writers invalidate by key after every
// successful commit, so readers never observe a view older than the last
// write made through this process.
package cache

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

// FetchFn loads the value for a key on a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store is a typed read-through cache. A disabled Store fetches on every call.
type Store[T any] struct {
	client *sturdyc.Client[T]
}

// New builds a Store from cfg. When cfg.Enabled is false the returned Store
// is a pass-through.
func New[T any](cfg config.CacheConfig) *Store[T] {
	if !cfg.Enabled {
		return &Store[T]{}
	}
	client := sturdyc.New[T](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
	)
	return &Store[T]{client: client}
}

// Enabled reports whether values are retained between calls.
func (s *Store[T]) Enabled() bool { return s != nil && s.client != nil }

// GetOrFetch returns the cached value for key or loads it with fetch.
// Errors from fetch are returned as-is and nothing is stored.
func (s *Store[T]) GetOrFetch(ctx context.Context, key string, fetch FetchFn[T]) (T, error) {
	if !s.Enabled() {
		return fetch(ctx)
	}
	return s.client.GetOrFetch(ctx, key, func(ctx context.Context) (T, error) {
		return fetch(ctx)
	})
}

// Invalidate drops the given keys.
func (s *Store[T]) Invalidate(keys ...string) {
	if !s.Enabled() {
		return
	}
	for _, k := range keys {
		s.client.Delete(k)
	}
}

// InvalidatePrefix drops every key starting with prefix.
func (s *Store[T]) InvalidatePrefix(prefix string) {
	if !s.Enabled() {
		return
	}
	for _, k := range s.client.ScanKeys() {
		if strings.HasPrefix(k, prefix) {
			s.client.Delete(k)
		}
	}
}

// Size returns the number of cached entries.
func (s *Store[T]) Size() int {
	if !s.Enabled() {
		return 0
	}
	return s.client.Size()
}
