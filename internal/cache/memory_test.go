package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("get returns what was set", func(t *testing.T) {
		c := NewMemoryCache()
		if err := c.Set(ctx, "k", "v", 0); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := c.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "v" {
			t.Errorf("Get() = %q, want v", got)
		}
	})

	t.Run("missing key is ErrMiss", func(t *testing.T) {
		c := NewMemoryCache()
		_, err := c.Get(ctx, "nope")
		if !errors.Is(err, ErrMiss) {
			t.Errorf("Get() error = %v, want ErrMiss", err)
		}
	})

	t.Run("entries expire after their ttl", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		c := NewMemoryCache()
		c.now = func() time.Time { return now }

		if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		now = now.Add(30 * time.Second)
		if _, err := c.Get(ctx, "k"); err != nil {
			t.Fatalf("Get() before expiry error = %v", err)
		}

		now = now.Add(31 * time.Second)
		if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
			t.Errorf("Get() after expiry error = %v, want ErrMiss", err)
		}
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		c := NewMemoryCache()
		c.now = func() time.Time { return now }

		if err := c.Set(ctx, "k", "v", 0); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		now = now.Add(1000 * time.Hour)
		if _, err := c.Get(ctx, "k"); err != nil {
			t.Errorf("Get() error = %v, want hit", err)
		}
	})

	t.Run("del reports how many keys existed", func(t *testing.T) {
		c := NewMemoryCache()
		c.Set(ctx, "a", "1", 0)
		c.Set(ctx, "b", "2", 0)

		n, err := c.Del(ctx, "a", "b", "c")
		if err != nil {
			t.Fatalf("Del() error = %v", err)
		}
		if n != 2 {
			t.Errorf("Del() = %d, want 2", n)
		}
		if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrMiss) {
			t.Errorf("Get() after Del error = %v, want ErrMiss", err)
		}
	})
}
