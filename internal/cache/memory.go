package cache

import (
	"context"
	"sync"
	"time"

	shardedcache "github.com/simp-lee/cache"
)

// smallCache is the size below which a single shard is used, so the size
// bound is exact for small caches.
const smallCache = 1024

// Memory is an in-process Store backed by a sharded expiring map.
type Memory struct {
	c         shardedcache.CacheInterface
	closeOnce sync.Once
}

// NewMemory creates a Memory store holding about size entries, each for at
// most ttl. When a shard is full its oldest entry is evicted.
func NewMemory(size int, ttl time.Duration) *Memory {
	shards := 1
	if size >= smallCache {
		shards = 32
	}
	perShard := 0
	if size > 0 {
		perShard = (size + shards - 1) / shards
	}
	return &Memory{c: shardedcache.NewCache(shardedcache.Options{
		MaxSize:           perShard,
		DefaultExpiration: ttl,
		CleanupInterval:   time.Minute,
		ShardCount:        shards,
	})}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return shardedcache.GetTyped[[]byte](m.c, key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.c.Set(key, value)
}

func (m *Memory) Delete(_ context.Context, keys ...string) {
	m.c.DeleteKeys(keys)
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) {
	m.c.DeletePrefix(prefix)
}

func (m *Memory) Ping(context.Context) error { return nil }

// Close drops every entry and stops the cleanup goroutines. It is safe to
// call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		m.c.Clear()
		m.c.Close()
	})
	return nil
}

// Len returns the number of stored entries, including expired ones not yet
// swept.
func (m *Memory) Len() int {
	return m.c.Count()
}
