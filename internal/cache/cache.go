// Package cache provides the read cache used for category and technician
// lookups. Entries are JSON documents behind a Store, which is either an
// in-process LRU or Redis. A cache failure never fails a request: misses and
// write errors fall back to the database.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Store is a byte-oriented key/value cache with TTL handled by the backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, keys ...string)
	DeletePrefix(ctx context.Context, prefix string)
	Ping(ctx context.Context) error
	Close() error
}

// Typed is a JSON view of a Store bound to one value type.
type Typed[T any] struct {
	store  Store
	prefix string
}

// NewTyped creates a Typed cache whose keys all start with prefix.
func NewTyped[T any](store Store, prefix string) *Typed[T] {
	if store == nil {
		store = Noop{}
	}
	return &Typed[T]{store: store, prefix: prefix}
}

// Get returns the cached value for key. Undecodable entries count as misses.
func (c *Typed[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, ok := c.store.Get(ctx, c.prefix+key)
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.WarnContext(ctx, "cache: decode failed", slog.String("key", c.prefix+key), slog.Any("error", err))
		return nil, false
	}
	return &v, true
}

// Set stores value under key.
func (c *Typed[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.WarnContext(ctx, "cache: encode failed", slog.String("key", c.prefix+key), slog.Any("error", err))
		return
	}
	c.store.Set(ctx, c.prefix+key, data)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Errors from load are returned and not cached.
func (c *Typed[T]) GetOrLoad(ctx context.Context, key string, load func() (*T, error)) (*T, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.Set(ctx, key, v)
	return v, nil
}

// Delete removes key.
func (c *Typed[T]) Delete(ctx context.Context, key string) {
	c.store.Delete(ctx, c.prefix+key)
}

// Purge removes every entry of this cache.
func (c *Typed[T]) Purge(ctx context.Context) {
	c.store.DeletePrefix(ctx, c.prefix)
}

// Noop is a Store that never holds anything. It is used when caching is
// disabled.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte)        {}
func (Noop) Delete(context.Context, ...string)          {}
func (Noop) DeletePrefix(context.Context, string)       {}
func (Noop) Ping(context.Context) error                 { return nil }
func (Noop) Close() error                               { return nil }
