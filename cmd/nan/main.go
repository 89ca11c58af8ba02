// Command nan runs nan scripts: directly from a file, or through a
// script.yml manifest that can declare prelude dependencies resolved from
// local paths or git repositories.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goforj/godump"

	"nanlang/interpreter-go/pkg/driver"
	"nanlang/interpreter-go/pkg/interp"
)

const cliToolVersion = "nan-cli 0.1.0-dev"

var errManifestNotFound = errors.New("script.yml not found")

func main() {
	os.Exit(run(os.Args[1:]))
}

type options struct {
	watch   bool
	dumpEnv bool
}

func run(args []string) int {
	var opts options
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "--watch":
			opts.watch = true
		case "--dump-env":
			opts.dumpEnv = true
		default:
			rest = append(rest, arg)
		}
	}

	if len(rest) == 0 {
		printUsage()
		return 1
	}

	switch rest[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(rest[1:], opts)
	case "deps":
		return runDeps(rest[1:])
	default:
		return runEntry(rest, opts)
	}
}

func runEntry(args []string, opts options) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}

	if len(args) == 0 {
		manifest, err := loadManifestFrom(".")
		if err != nil {
			if errors.Is(err, errManifestNotFound) {
				fmt.Fprintln(os.Stderr, "nan run requires a manifest target or source file (script.yml not found)")
			} else {
				fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
			}
			return 1
		}
		target, err := manifest.DefaultExecutableTarget()
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest error: %v\n", err)
			return 1
		}
		return runTarget(manifest, target, opts)
	}

	candidate := args[0]

	if manifest, err := loadManifestFrom("."); err == nil {
		if target, ok := manifest.FindTarget(candidate); ok {
			return runTarget(manifest, target, opts)
		}
	} else if !errors.Is(err, errManifestNotFound) && !looksLikePathCandidate(candidate) {
		fmt.Fprintf(os.Stderr, "failed to load manifest: %v\n", err)
		return 1
	}

	// Treat the argument as a direct source file path.
	return executeScript(candidate, nil, opts)
}

func runTarget(manifest *driver.Manifest, target *driver.TargetSpec, opts options) int {
	entry, err := resolveTargetMain(manifest, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve target entrypoint: %v\n", err)
		return 1
	}
	preludes, err := resolvePreludes(manifest, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return executeScript(entry, preludes, opts)
}

// executeScript reads every script up front, then runs the preludes and the
// entry against one shared environment. Read failures abort with a non-zero
// status; once execution begins the exit code is always zero, no matter how
// many statement diagnostics the scripts print.
func executeScript(entry string, preludes []string, opts options) int {
	sources := make([]string, 0, len(preludes)+1)
	for _, path := range append(append([]string{}, preludes...), entry) {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Could not open file %s.\n", path)
			return 1
		}
		sources = append(sources, string(data))
	}

	runOnce := func() {
		in := interp.New(os.Stdout)
		for _, src := range sources {
			in.Execute(src)
		}
		if opts.dumpEnv {
			godump.Dump(in.Environment().Snapshot())
		}
	}

	if opts.watch {
		return watchAndRun(entry, func() {
			// Re-read the entry on each change; preludes are pinned for the
			// session.
			data, err := os.ReadFile(entry)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: Could not open file %s.\n", entry)
				return
			}
			sources[len(sources)-1] = string(data)
			runOnce()
		})
	}

	runOnce()
	return 0
}

// resolvePreludes maps a target's prelude names to on-disk script paths via
// the lockfile and dependency cache.
func resolvePreludes(manifest *driver.Manifest, target *driver.TargetSpec) ([]string, error) {
	if len(target.Preludes) == 0 {
		return nil, nil
	}
	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, fmt.Errorf("script.lock missing for %q; run `nan deps install`", manifest.Name)
	}
	cacheDir, err := resolveNanHome()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve NAN_HOME: %w", err)
	}

	paths := make([]string, 0, len(target.Preludes))
	for _, name := range target.Preludes {
		pkg, ok := lock.FindPackage(name)
		if !ok {
			return nil, fmt.Errorf("prelude %q not in script.lock; run `nan deps install`", name)
		}
		dir, err := driver.DependencyDir(cacheDir, pkg)
		if err != nil {
			return nil, err
		}
		entry, err := driver.EntryScript(dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, entry)
	}
	return paths, nil
}

func runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "nan deps requires a subcommand (install, update)")
		return 1
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			fmt.Fprintf(os.Stderr, "nan deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
			return 1
		}
		return runDepsInstall(nil)
	case "update":
		return runDepsInstall(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand %q\n", args[0])
		return 1
	}
}

// runDepsInstall resolves dependencies and refreshes script.lock. With
// update targets, the named entries are dropped from the lock first so they
// re-resolve; update with no targets re-resolves everything.
func runDepsInstall(updateTargets []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine working directory: %v\n", err)
		return 1
	}
	manifestPath, err := findManifest(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to locate script.yml: %v\n", err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read manifest: %v\n", err)
		return 1
	}
	cacheDir, err := resolveNanHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve NAN_HOME: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Root package: %s\n", manifest.Name)
	fmt.Fprintf(os.Stdout, "Dependencies: %d\n", len(manifest.Dependencies))

	lockPath := filepath.Join(filepath.Dir(manifest.Path), "script.lock")
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(os.Stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lockCreated = true
	default:
		fmt.Fprintf(os.Stderr, "failed to read lockfile: %v\n", err)
		return 1
	}
	lock.Path = lockPath
	lock.Tool = cliToolVersion

	if updateTargets != nil {
		if err := dropLockedPackages(lock, manifest, updateTargets); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}

	installer := driver.NewInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve dependencies: %v\n", err)
		return 1
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "%s script.lock: %s\n", action, lock.Path)
	} else {
		fmt.Fprintf(os.Stdout, "script.lock already up to date: %s\n", lock.Path)
	}
	return 0
}

func dropLockedPackages(lock *driver.Lockfile, manifest *driver.Manifest, targets []string) error {
	if len(targets) == 0 {
		lock.Packages = nil
		return nil
	}
	declared := make(map[string]struct{}, len(manifest.Dependencies))
	for name := range manifest.Dependencies {
		declared[sanitizeName(name)] = struct{}{}
	}
	drop := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		key := sanitizeName(target)
		if _, ok := declared[key]; !ok {
			return fmt.Errorf("dependency %q not declared in manifest", target)
		}
		drop[key] = struct{}{}
	}
	filtered := make([]*driver.LockedPackage, 0, len(lock.Packages))
	for _, pkg := range lock.Packages {
		if pkg == nil {
			continue
		}
		if _, ok := drop[sanitizeName(pkg.Name)]; ok {
			continue
		}
		filtered = append(filtered, pkg)
	}
	lock.Packages = filtered
	return nil
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	if start == "" || start == "." {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		start = cwd
	}
	manifestPath, err := findManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, "script.yml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no script.yml found from %s upwards: %w", origin, errManifestNotFound)
		}
		dir = parent
	}
}

func resolveTargetMain(manifest *driver.Manifest, target *driver.TargetSpec) (string, error) {
	if manifest == nil || target == nil {
		return "", fmt.Errorf("missing manifest or target")
	}
	mainPath := strings.TrimSpace(target.Main)
	if mainPath == "" {
		return "", fmt.Errorf("target %q missing main entrypoint", target.OriginalName)
	}
	if filepath.IsAbs(mainPath) {
		return filepath.Clean(mainPath), nil
	}
	base := filepath.Dir(manifest.Path)
	return filepath.Join(base, filepath.FromSlash(mainPath)), nil
}

func loadLockfileForManifest(manifest *driver.Manifest) (*driver.Lockfile, error) {
	if manifest == nil {
		return nil, nil
	}
	lockPath := filepath.Join(filepath.Dir(manifest.Path), "script.lock")
	lock, err := driver.LoadLockfile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lockfile %s: %w", lockPath, err)
	}
	if lock.Root != manifest.Name {
		return nil, fmt.Errorf("lockfile root %q does not match manifest name %q", lock.Root, manifest.Name)
	}
	return lock, nil
}

func resolveNanHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("NAN_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve NAN_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".nan"), nil
}

func looksLikePathCandidate(arg string) bool {
	if arg == "" {
		return false
	}
	if strings.Contains(arg, "/") || strings.Contains(arg, "\\") {
		return true
	}
	if filepath.Ext(arg) == ".nan" {
		return true
	}
	return strings.HasPrefix(arg, ".")
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  nan run [target]")
	fmt.Fprintln(os.Stderr, "  nan run <file.nan>")
	fmt.Fprintln(os.Stderr, "  nan <file.nan>")
	fmt.Fprintln(os.Stderr, "  nan deps install")
	fmt.Fprintln(os.Stderr, "  nan deps update [dependency ...]")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  --watch     re-run the script when its file changes")
	fmt.Fprintln(os.Stderr, "  --dump-env  dump the final environment after the run")
}
