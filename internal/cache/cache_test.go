package cache

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"
)

type category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, time.Minute)

	m.Set(ctx, "a", []byte("1"))
	if got, ok := m.Get(ctx, "a"); !ok || string(got) != "1" {
		t.Fatalf("Get(a) = %q, %v", got, ok)
	}

	m.Delete(ctx, "a", "missing")
	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestMemory_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, time.Minute)

	m.Set(ctx, "categories:1", []byte("x"))
	m.Set(ctx, "categories:2", []byte("y"))
	m.Set(ctx, "technicians:1", []byte("z"))

	m.DeletePrefix(ctx, "categories:")

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if _, ok := m.Get(ctx, "technicians:1"); !ok {
		t.Error("unrelated key was removed")
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, 20*time.Millisecond)

	m.Set(ctx, "k", []byte("v"))
	time.Sleep(60 * time.Millisecond)

	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("entry should have expired")
	}
}

func TestMemory_Eviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2, time.Minute)

	for _, k := range []string{"a", "b", "c"} {
		m.Set(ctx, k, []byte(k))
		time.Sleep(time.Millisecond)
	}

	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestMemory_CloseTwice(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16, time.Minute)
	m.Set(ctx, "k", []byte("v"))

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", m.Len())
	}
}

func TestNewMemory_ShardsLargeCaches(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4096, time.Minute)
	t.Cleanup(func() { _ = m.Close() })

	for i := range 500 {
		m.Set(ctx, "k"+strconv.Itoa(i), []byte("v"))
	}
	if m.Len() != 500 {
		t.Errorf("Len() = %d, want 500", m.Len())
	}
}

func TestTyped_RoundTripAndPurge(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, time.Minute)
	c := NewTyped[category](store, "categories:")

	c.Set(ctx, "7", &category{ID: 7, Name: "Plomberie"})

	got, ok := c.Get(ctx, "7")
	if !ok || got.Name != "Plomberie" {
		t.Fatalf("Get(7) = %+v, %v", got, ok)
	}
	if _, ok := store.Get(ctx, "categories:7"); !ok {
		t.Error("expected key to be namespaced with the prefix")
	}

	c.Purge(ctx)
	if _, ok := c.Get(ctx, "7"); ok {
		t.Error("expected miss after Purge")
	}
}

func TestTyped_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, time.Minute)
	store.Set(ctx, "categories:1", []byte("{not json"))

	c := NewTyped[category](store, "categories:")
	if _, ok := c.Get(ctx, "1"); ok {
		t.Error("corrupt entry should be reported as a miss")
	}
}

func TestTyped_GetOrLoad(t *testing.T) {
	ctx := context.Background()
	c := NewTyped[category](NewMemory(16, time.Minute), "categories:")

	calls := 0
	load := func() (*category, error) {
		calls++
		return &category{ID: 1, Name: "Electricite"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrLoad(ctx, "1", load)
		if err != nil {
			t.Fatalf("GetOrLoad() error = %v", err)
		}
		if got.ID != 1 {
			t.Fatalf("GetOrLoad() = %+v", got)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad(ctx, "2", func() (*category, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("GetOrLoad() error = %v, want %v", err, boom)
	}
	if _, ok := c.Get(ctx, "2"); ok {
		t.Error("failed loads must not be cached")
	}
}

func TestTyped_NilStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewTyped[category](nil, "x:")
	c.Set(ctx, "1", &category{ID: 1})
	if _, ok := c.Get(ctx, "1"); ok {
		t.Error("noop store should never hit")
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	r, err := NewRedis(ctx, RedisOptions{Addr: addr, TTL: time.Minute, Namespace: "allobricolage-test:"})
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() { r.Close() })

	r.Set(ctx, "p:1", []byte("a"))
	r.Set(ctx, "p:2", []byte("b"))
	r.Set(ctx, "q:1", []byte("c"))

	if got, ok := r.Get(ctx, "p:1"); !ok || string(got) != "a" {
		t.Fatalf("Get(p:1) = %q, %v", got, ok)
	}

	r.DeletePrefix(ctx, "p:")
	if _, ok := r.Get(ctx, "p:2"); ok {
		t.Error("expected p:2 to be deleted")
	}
	if _, ok := r.Get(ctx, "q:1"); !ok {
		t.Error("q:1 should survive")
	}
	r.Delete(ctx, "q:1")
}
