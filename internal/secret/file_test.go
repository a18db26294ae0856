package secret_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"tabular/internal/secret"
)

// ─────────────────────────────────────────────────────────────
// FileStore tests
// ─────────────────────────────────────────────────────────────

func newStore(t *testing.T) *secret.FileStore {
	t.Helper()
	return secret.NewFileStore(filepath.Join(t.TempDir(), "secrets.json"))
}

func TestFileStore_SetGet(t *testing.T) {
	s := newStore(t)

	if err := s.Set("db:conn-1", []byte("hunter2")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get("db:conn-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "hunter2" {
		t.Errorf("expected hunter2, got %q", got)
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	s := newStore(t)
	got, err := s.Get("nope")
	if err != nil {
		t.Fatalf("missing key must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty value, got %q", got)
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	s := newStore(t)
	s.Set("k", []byte("old"))
	s.Set("k", []byte("new"))

	got, _ := s.Get("k")
	if string(got) != "new" {
		t.Errorf("expected new, got %q", got)
	}
}

func TestFileStore_Delete(t *testing.T) {
	s := newStore(t)
	s.Set("k", []byte("v"))

	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.Get("k")
	if len(got) != 0 {
		t.Errorf("expected deleted key gone, got %q", got)
	}

	if err := s.Delete("k"); err != nil {
		t.Errorf("deleting a missing key must not error: %v", err)
	}
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.json")
	s := secret.NewFileStore(path)
	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.json")

	first := secret.NewFileStore(path)
	first.Set("persist", []byte("yes"))

	second := secret.NewFileStore(path)
	got, _ := second.Get("persist")
	if string(got) != "yes" {
		t.Errorf("expected value to survive reopen, got %q", got)
	}
}
