package store

import (
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	st := NewMemoryStore()

	if _, err := st.Load("r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unknown room, got %v", err)
	}

	if err := st.Save("r1", "u1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	userID, err := st.Load("r1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if userID != "u1" {
		t.Errorf("Expected u1, got %q", userID)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, err := st.Load("r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before any save, got %v", err)
	}

	if err := st.Save("r1", "u1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.Save("r2", "u2"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A fresh store over the same dir sees the persisted identities.
	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	userID, err := reopened.Load("r1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if userID != "u1" {
		t.Errorf("Expected u1, got %q", userID)
	}

	if _, err := reopened.Load("r3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestFileStore_OverwritesIdentity(t *testing.T) {
	st, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	st.Save("r1", "u-old")
	st.Save("r1", "u-new")

	userID, err := st.Load("r1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if userID != "u-new" {
		t.Errorf("A rejoin must overwrite the stored identity, got %q", userID)
	}
}
