package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndLoadLockfile(t *testing.T) {
	lock := &Lockfile{
		Root:      "demo-scripts",
		Tool:      "nan-cli 0.1.0-dev",
		Generated: "2026-01-01T00:00:00Z",
		Packages: []*LockedPackage{
			{
				Name:     "util-lib",
				Version:  " 2.0.0 ",
				Source:   " git+https://example.com/util.git ",
				Revision: " abc123 ",
			},
			{
				Name:    "mathlib",
				Version: "1.2.3",
				Source:  "path:/srv/mathlib",
			},
		},
	}

	path := filepath.Join(t.TempDir(), "script.lock")
	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile error: %v", err)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile error: %v", err)
	}

	if loaded.Root != "demo_scripts" {
		t.Fatalf("Root = %q, want demo_scripts", loaded.Root)
	}
	if loaded.Tool != "nan-cli 0.1.0-dev" {
		t.Fatalf("Tool = %q", loaded.Tool)
	}
	if len(loaded.Packages) != 2 {
		t.Fatalf("Packages length = %d, want 2", len(loaded.Packages))
	}
	if loaded.Packages[0].Name != "mathlib" {
		t.Fatalf("First package = %q, want mathlib", loaded.Packages[0].Name)
	}
	if loaded.Packages[1].Name != "util_lib" {
		t.Fatalf("Second package = %q, want util_lib", loaded.Packages[1].Name)
	}
	if got := loaded.Packages[1].Revision; got != "abc123" {
		t.Fatalf("Revision = %q, want abc123", got)
	}
	if got := loaded.Packages[1].Source; got != "git+https://example.com/util.git" {
		t.Fatalf("Source = %q", got)
	}
	if loaded.Path != path {
		t.Fatalf("Path = %q, want %q", loaded.Path, path)
	}
}

func TestLoadLockfileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.lock")
	_, err := LoadLockfile(path)
	if err == nil {
		t.Fatal("expected error for missing lockfile, got nil")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error should wrap os.ErrNotExist, got %v", err)
	}
}

func TestLockfileFindPackage(t *testing.T) {
	lock := NewLockfile("demo", "nan-cli 0.1.0-dev")
	lock.Packages = append(lock.Packages, &LockedPackage{Name: "math_lib", Version: "1.0.0"})

	if pkg, ok := lock.FindPackage("math-lib"); !ok || pkg.Version != "1.0.0" {
		t.Fatalf("FindPackage math-lib = %#v, %v", pkg, ok)
	}
	if _, ok := lock.FindPackage("missing"); ok {
		t.Fatal("FindPackage missing should report false")
	}
}
