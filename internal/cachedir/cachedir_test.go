package cachedir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsure_CreatesWithRequiredMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("ZAX_CACHE_DIR", "")

	dir, err := Ensure("0123456789abcdef")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	info, err := os.Stat(dir.Root)
	if err != nil {
		t.Fatalf("stat cache dir: %v", err)
	}
	if info.Mode().Perm() != RequiredMode {
		t.Errorf("mode = %o, want %o", info.Mode().Perm(), RequiredMode)
	}
}

func TestEnsure_RefusesWrongMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("ZAX_CACHE_DIR", "")

	root, err := Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	path := filepath.Join(root, "0123456789abcdef")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := Ensure("0123456789abcdef"); err == nil {
		t.Errorf("Ensure() succeeded on a directory with mode 0755, want refusal")
	}
}

func TestRoot_ZaxCacheDirOverrideExpandsTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ZAX_CACHE_DIR", "~/custom-cache")

	root, err := Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	want := filepath.Join(home, "custom-cache")
	if root != want {
		t.Errorf("Root() = %q, want %q", root, want)
	}
}

func TestEnsure_IdempotentOnCorrectMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("ZAX_CACHE_DIR", "")

	if _, err := Ensure("0123456789abcdef"); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	if _, err := Ensure("0123456789abcdef"); err != nil {
		t.Errorf("second Ensure on already-correct dir: %v", err)
	}
}
