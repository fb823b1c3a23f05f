package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/doughub/engine/internal/cache"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_SetGetEntry(t *testing.T) {
	st := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := &cache.Entry{
		Value:     json.RawMessage(`{"title":"Gluten Development"}`),
		TaskID:    "generate-title",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	if err := st.SetEntry("k1", entry); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	got, err := st.GetEntry("k1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got == nil {
		t.Fatal("expected entry, got nil")
	}
	if string(got.Value) != string(entry.Value) {
		t.Errorf("Value: got %s, want %s", got.Value, entry.Value)
	}
	if got.TaskID != "generate-title" {
		t.Errorf("TaskID: got %q", got.TaskID)
	}
	if !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Errorf("ExpiresAt: got %v, want %v", got.ExpiresAt, entry.ExpiresAt)
	}
}

func TestStore_GetEntry_Missing(t *testing.T) {
	st := openTestStore(t)

	got, err := st.GetEntry("absent")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}
}

func TestStore_SetEntry_Overwrites(t *testing.T) {
	st := openTestStore(t)

	now := time.Now().UTC()
	for _, v := range []string{`"first"`, `"second"`} {
		err := st.SetEntry("k1", &cache.Entry{
			Value:     json.RawMessage(v),
			TaskID:    "t",
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("SetEntry: %v", err)
		}
	}

	got, err := st.GetEntry("k1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if string(got.Value) != `"second"` {
		t.Errorf("got %s, want overwrite to win", got.Value)
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	st := openTestStore(t)

	now := time.Now().UTC()
	stale := &cache.Entry{Value: json.RawMessage(`1`), TaskID: "t", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	fresh := &cache.Entry{Value: json.RawMessage(`2`), TaskID: "t", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	if err := st.SetEntry("stale", stale); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if err := st.SetEntry("fresh", fresh); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	n, err := st.DeleteExpired(now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	if got, _ := st.GetEntry("stale"); got != nil {
		t.Error("stale entry survived DeleteExpired")
	}
	if got, _ := st.GetEntry("fresh"); got == nil {
		t.Error("fresh entry removed by DeleteExpired")
	}
}

func TestStore_DeleteAll(t *testing.T) {
	st := openTestStore(t)

	now := time.Now().UTC()
	for _, k := range []string{"a", "b"} {
		err := st.SetEntry(k, &cache.Entry{Value: json.RawMessage(`1`), TaskID: "t", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
		if err != nil {
			t.Fatalf("SetEntry: %v", err)
		}
	}

	if err := st.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if got, _ := st.GetEntry(k); got != nil {
			t.Errorf("entry %q survived DeleteAll", k)
		}
	}
}
