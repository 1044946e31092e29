package storage

import (
	"testing"
)

func TestSetGet(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := store.Set("greeting", "hello"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok := store.Get("greeting")
	if !ok {
		t.Fatal("Expected key to be present")
	}
	if value != "hello" {
		t.Errorf("Expected %q, got %q", "hello", value)
	}
}

func TestGetMissingKey(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// A missing key is a valid state, not an error.
	if _, ok := store.Get("never-set"); ok {
		t.Error("Expected miss for a key that was never set")
	}
}

func TestSetOverwrites(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	store.Set("k", "first")
	store.Set("k", "second")

	value, _ := store.Get("k")
	if value != "second" {
		t.Errorf("Expected overwrite to win, got %q", value)
	}
}

func TestDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	store.Set("k", "v")
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get("k"); ok {
		t.Error("Expected key to be gone after delete")
	}

	// Deleting an absent key is a no-op.
	if err := store.Delete("k"); err != nil {
		t.Errorf("Deleting absent key should not error, got %v", err)
	}
}

func TestKeysWithUnsafeNames(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// Fingerprint-style keys contain separators and spaces.
	keys := []string{
		"communityCache_food bank_2000_restaurant_37.0_-122.0",
		"community_location",
		"savedResources",
	}
	for _, k := range keys {
		if err := store.Set(k, "x"); err != nil {
			t.Fatalf("Set(%q) failed: %v", k, err)
		}
	}

	listed, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(listed) != len(keys) {
		t.Fatalf("Expected %d keys, got %d", len(keys), len(listed))
	}

	seen := make(map[string]bool)
	for _, k := range listed {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			t.Errorf("Expected key %q in listing", k)
		}
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	store.Set("persistent", "value")

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	value, ok := reopened.Get("persistent")
	if !ok || value != "value" {
		t.Errorf("Expected value to survive reopen, got %q (present=%v)", value, ok)
	}
}
