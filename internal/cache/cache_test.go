package cache

import (
	"encoding/json"
	"testing"
	"time"
)

// fakeClock is a controllable time source for TTL tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	c, err := New(100, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clk := newFakeClock()
	c.SetClock(clk.Now)
	return c, clk
}

// ---------------------------------------------------------------------------
// Key tests
// ---------------------------------------------------------------------------

func TestKey_Deterministic(t *testing.T) {
	input := map[string]any{"text": "hello", "count": 3}
	k1 := Key("summarize-note", input)
	k2 := Key("summarize-note", map[string]any{"count": 3, "text": "hello"})
	if k1 != k2 {
		t.Errorf("expected identical keys for equal inputs, got %q and %q", k1, k2)
	}
}

func TestKey_DiffersByTask(t *testing.T) {
	input := map[string]any{"text": "hello"}
	if Key("summarize-note", input) == Key("generate-title", input) {
		t.Error("expected different keys for different task ids")
	}
}

func TestKey_DiffersByInput(t *testing.T) {
	k1 := Key("summarize-note", map[string]any{"text": "hello"})
	k2 := Key("summarize-note", map[string]any{"text": "goodbye"})
	if k1 == k2 {
		t.Error("expected different keys for different inputs")
	}
}

func TestKey_NilInput(t *testing.T) {
	if Key("t", nil) != Key("t", nil) {
		t.Error("nil-input keys must be stable")
	}
	if Key("t", nil) == Key("t", map[string]any{}) {
		t.Error("nil and empty-map inputs should produce distinct keys")
	}
}

// ---------------------------------------------------------------------------
// Cache tests
// ---------------------------------------------------------------------------

func TestCache_GetAfterSet(t *testing.T) {
	c, _ := newTestCache(t)

	val := json.RawMessage(`{"summary":"a note"}`)
	c.Set("k1", "summarize-note", val, time.Minute)

	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected cache hit immediately after Set")
	}
	if string(got) != string(val) {
		t.Errorf("got %s, want %s", got, val)
	}
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c, clk := newTestCache(t)

	c.Set("k1", "summarize-note", json.RawMessage(`"v"`), time.Minute)

	clk.Advance(59 * time.Second)
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("entry expired early")
	}

	clk.Advance(2 * time.Second)
	if _, ok := c.Get("k1"); ok {
		t.Fatal("entry should have expired after TTL")
	}

	// Lazy eviction removed the entry from the memory tier.
	if c.Len() != 0 {
		t.Errorf("expected empty cache after lazy eviction, have %d entries", c.Len())
	}
}

func TestCache_ZeroTTLNotStored(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("k1", "answer-question", json.RawMessage(`"v"`), 0)
	if _, ok := c.Get("k1"); ok {
		t.Fatal("ttl=0 entries must not be cached")
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("k1", "t", json.RawMessage(`1`), time.Minute)
	c.Set("k2", "t", json.RawMessage(`2`), time.Minute)
	c.Clear()

	if _, ok := c.Get("k1"); ok {
		t.Error("k1 survived Clear")
	}
	if _, ok := c.Get("k2"); ok {
		t.Error("k2 survived Clear")
	}
}

func TestCache_Purge(t *testing.T) {
	c, clk := newTestCache(t)

	c.Set("short", "t", json.RawMessage(`1`), time.Second)
	c.Set("long", "t", json.RawMessage(`2`), time.Hour)

	clk.Advance(2 * time.Second)
	c.Purge()

	if c.Len() != 1 {
		t.Fatalf("expected 1 surviving entry after Purge, have %d", c.Len())
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("unexpired entry evicted by Purge")
	}
}

func TestCache_LRUBound(t *testing.T) {
	c, err := New(2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clk := newFakeClock()
	c.SetClock(clk.Now)

	c.Set("a", "t", json.RawMessage(`1`), time.Minute)
	c.Set("b", "t", json.RawMessage(`2`), time.Minute)
	c.Set("c", "t", json.RawMessage(`3`), time.Minute)

	if c.Len() != 2 {
		t.Fatalf("LRU bound not enforced: have %d entries", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
}
