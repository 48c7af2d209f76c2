package cache

import (
	"testing"
	"time"
)

func TestSetGetRoundTrips(t *testing.T) {
	c := NewShardedRunCache[int](0)
	c.Set("run-1", 42)

	v, ok := c.Get("run-1")
	if !ok || v != 42 {
		t.Fatalf("Get(run-1) = (%v, %v), want (42, true)", v, ok)
	}
}

func TestGetMissingKeyIsNotOK(t *testing.T) {
	c := NewShardedRunCache[int](0)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected ok=false for a missing key")
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	c := NewShardedRunCache[int](1 * time.Millisecond)
	c.Set("run-1", 42)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("run-1"); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := NewShardedRunCache[int](0)
	c.Set("run-1", 42)
	c.Delete("run-1")

	if _, ok := c.Get("run-1"); ok {
		t.Fatal("expected entry to be gone after Delete")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}
