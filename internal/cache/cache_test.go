package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

func enabledCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:            true,
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

func TestStore_GetOrFetch_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	s := New[string](enabledCfg())

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	for i := 0; i < 3; i++ {
		v, err := s.GetOrFetch(ctx, "meal:1", fetch)
		if err != nil || v != "v" {
			t.Fatalf("GetOrFetch = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d; want 1", calls)
	}
	if s.Size() != 1 {
		t.Fatalf("Size = %d; want 1", s.Size())
	}

	s.Invalidate("meal:1")
	if _, err := s.GetOrFetch(ctx, "meal:1", fetch); err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("fetch calls after invalidate = %d; want 2", calls)
	}
}

func TestStore_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	s := New[int](enabledCfg())
	boom := errors.New("boom")

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return 0, boom
	}
	for i := 0; i < 2; i++ {
		if _, err := s.GetOrFetch(ctx, "k", fetch); !errors.Is(err, boom) {
			t.Fatalf("err = %v; want boom", err)
		}
	}
	if calls != 2 {
		t.Fatalf("fetch calls = %d; want 2", calls)
	}
}

func TestStore_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	s := New[int](enabledCfg())
	one := func(context.Context) (int, error) { return 1, nil }

	for _, k := range []string{"meal:a", "meal:b", "list:u1"} {
		if _, err := s.GetOrFetch(ctx, k, one); err != nil {
			t.Fatalf("GetOrFetch %s: %v", k, err)
		}
	}
	s.InvalidatePrefix("meal:")
	if s.Size() != 1 {
		t.Fatalf("Size = %d; want 1", s.Size())
	}
}

func TestStore_DisabledIsPassThrough(t *testing.T) {
	ctx := context.Background()
	s := New[string](config.CacheConfig{Enabled: false})
	if s.Enabled() {
		t.Fatalf("expected disabled store")
	}

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}
	for i := 0; i < 2; i++ {
		if _, err := s.GetOrFetch(ctx, "k", fetch); err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("fetch calls = %d; want 2", calls)
	}
	s.Invalidate("k")
	s.InvalidatePrefix("")
	if s.Size() != 0 {
		t.Fatalf("Size = %d; want 0", s.Size())
	}
}
