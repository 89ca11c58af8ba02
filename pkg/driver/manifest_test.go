package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: demo-scripts
version: "0.1.0"
license: MIT
authors:
  - Dana
  - Rei
entry: lib/defs.nan
targets:
  app:
    type: executable
    main: src/app.nan
    preludes:
      - mathlib
  report:
    type: executable
    main: src/report.nan
dependencies:
  mathlib:
    path: ../mathlib
  shared:
    git: https://example.com/shared.git
    tag: v1.0.0
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}

	if got, want := manifest.Name, "demo_scripts"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
	if manifest.Version != "0.1.0" {
		t.Fatalf("Version = %q, want 0.1.0", manifest.Version)
	}
	if len(manifest.Authors) != 2 || manifest.Authors[0] != "Dana" || manifest.Authors[1] != "Rei" {
		t.Fatalf("Authors unexpected: %#v", manifest.Authors)
	}
	if manifest.Entry != "lib/defs.nan" {
		t.Fatalf("Entry = %q", manifest.Entry)
	}

	app, ok := manifest.Targets["app"]
	if !ok {
		t.Fatalf("Targets missing app entry: %#v", manifest.Targets)
	}
	if app.Type != TargetTypeExecutable {
		t.Fatalf("app.Type = %q, want executable", app.Type)
	}
	if app.Main != "src/app.nan" {
		t.Fatalf("app.Main = %q, want src/app.nan", app.Main)
	}
	if len(app.Preludes) != 1 || app.Preludes[0] != "mathlib" {
		t.Fatalf("app.Preludes unexpected: %#v", app.Preludes)
	}

	mathlib := manifest.Dependencies["mathlib"]
	if mathlib == nil || mathlib.Path != "../mathlib" {
		t.Fatalf("mathlib dependency not parsed: %#v", mathlib)
	}
	shared := manifest.Dependencies["shared"]
	if shared == nil || shared.Git == "" || shared.Tag != "v1.0.0" {
		t.Fatalf("shared dependency not parsed: %#v", shared)
	}

	if got := strings.Join(manifest.TargetOrder, ","); got != "app,report" {
		t.Fatalf("TargetOrder unexpected: %s", got)
	}
}

func TestLoadManifestDependencyShorthand(t *testing.T) {
	path := writeManifest(t, `
name: lib
dependencies:
  local: ../local
`)
	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if manifest.Dependencies["local"].Path != "../local" {
		t.Fatalf("bare-string path shorthand missing: %#v", manifest.Dependencies["local"])
	}
}

func TestLoadManifestRejectsUnknownKeys(t *testing.T) {
	path := writeManifest(t, `
name: demo
flavour: spicy
`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error for unknown manifest key, got nil")
	}
}

func TestLoadManifestValidation(t *testing.T) {
	path := writeManifest(t, `
name: ""
targets:
  cli:
    type: executable
    main: ""
    preludes:
      - ghost
dependencies:
  util: {}
  both:
    path: ../both
    git: https://example.com/both.git
  pinnedpath:
    path: ../pinned
    rev: abc123
`)

	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	msg := err.Error()
	wantFragments := []string{
		"name must be provided",
		`target "cli" requires a main entrypoint`,
		`target "cli" prelude "ghost" is not a declared dependency`,
		"dependencies.util: must specify git or path",
		"dependencies.both: path overrides cannot also specify a git source",
		"dependencies.pinnedpath: rev, tag, and branch apply only to git sources",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("validation error missing fragment %q: %s", fragment, msg)
		}
	}
}

func TestLoadManifestTargetTypeRequired(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  cli:
    main: src/main.nan
`)
	_, err := LoadManifest(path)
	if err == nil {
		t.Fatal("expected error for missing target type, got nil")
	}
	if !strings.Contains(err.Error(), `target "cli" missing type`) {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestManifestDefaultExecutableTarget(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  app-server:
    type: executable
    main: src/app.nan
  worker:
    type: executable
    main: src/worker.nan
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest error: %v", err)
	}

	target, err := manifest.DefaultExecutableTarget()
	if err != nil {
		t.Fatalf("DefaultExecutableTarget returned error: %v", err)
	}
	if target.OriginalName != "app-server" {
		t.Fatalf("DefaultExecutableTarget = %q, want app-server", target.OriginalName)
	}
}

func TestManifestFindTarget(t *testing.T) {
	path := writeManifest(t, `
name: demo
targets:
  app-server:
    type: executable
    main: src/app.nan
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest error: %v", err)
	}

	if target, ok := manifest.FindTarget("app-server"); !ok || target == nil || target.OriginalName != "app-server" {
		t.Fatalf("FindTarget app-server failed: %#v", target)
	}
	if target, ok := manifest.FindTarget("app_server"); !ok || target == nil || target.OriginalName != "app-server" {
		t.Fatalf("FindTarget sanitized app_server failed: %#v", target)
	}
	if target, ok := manifest.FindTarget("APP-SERVER"); !ok || target == nil || target.OriginalName != "app-server" {
		t.Fatalf("FindTarget case-insensitive lookup failed: %#v", target)
	}
	if target, ok := manifest.FindTarget("missing"); ok || target != nil {
		t.Fatalf("FindTarget missing should be nil, got %#v", target)
	}
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}
