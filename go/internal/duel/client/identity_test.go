package client

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestFileIdentityStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.yaml")
	store := NewFileIdentityStore(path)

	if _, err := store.Load(); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity before save, got %v", err)
	}

	want := Identity{PlayerID: uuid.New(), SessionID: uuid.New()}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// a fresh store over the same file sees the saved pair
	got, err := NewFileIdentityStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected identity file removed, got %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear should be a no-op, got %v", err)
	}
}

func TestFileIdentityStoreRejectsPartialIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.yaml")
	if err := os.WriteFile(path, []byte("player_id: "+uuid.NewString()+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileIdentityStore(path).Load(); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity for a partial file, got %v", err)
	}
}
