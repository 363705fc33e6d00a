package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	Namespace string
}

// Redis is a Store shared by every API instance.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedis connects to Redis and verifies the connection with a PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisWithClient(client, opts.TTL, opts.Namespace), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration, namespace string) *Redis {
	return &Redis{client: client, ttl: ttl, namespace: namespace}
}

func (r *Redis) key(k string) string {
	return r.namespace + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "cache: redis get failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "cache: redis set failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		slog.WarnContext(ctx, "cache: redis delete failed", slog.Any("keys", keys), slog.Any("error", err))
	}
}

// DeletePrefix removes matching keys with SCAN so Redis is never blocked
// by KEYS on a large keyspace.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) {
	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			r.client.Del(ctx, batch...)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		r.client.Del(ctx, batch...)
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "cache: redis scan failed", slog.String("prefix", prefix), slog.Any("error", err))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
