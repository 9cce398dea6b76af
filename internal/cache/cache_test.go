package cache

import (
	"testing"
	"time"
)

func TestCache_GetSetExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New[int](time.Minute).WithClock(func() time.Time { return now })

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set("k", 42)

	v, ok := c.Get("k")
	if !ok || v != 42 {
		t.Fatalf("expected hit 42, got %v %v", v, ok)
	}

	now = now.Add(time.Minute + time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[string](time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a deleted")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected cache cleared")
	}
}

func TestNew_NonPositiveTTLUsesDefault(t *testing.T) {
	c := New[int](0)
	if c.ttl != 5*time.Second {
		t.Fatalf("expected default ttl, got %s", c.ttl)
	}
}
