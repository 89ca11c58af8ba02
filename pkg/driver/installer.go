package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Installer resolves a manifest's dependencies into the cache directory and
// keeps the lockfile in sync.
type Installer struct {
	manifest *Manifest
	cacheDir string
}

// NewInstaller builds an installer for the manifest, caching git checkouts
// under cacheDir.
func NewInstaller(manifest *Manifest, cacheDir string) *Installer {
	return &Installer{manifest: manifest, cacheDir: cacheDir}
}

// Install resolves every declared dependency, updating lock in place. It
// reports whether the lockfile changed, along with human-readable progress
// lines. Git checkouts already pinned by the lockfile are reused without
// touching the remote.
func (ins *Installer) Install(lock *Lockfile) (bool, []string, error) {
	if ins.manifest == nil {
		return false, nil, fmt.Errorf("installer: nil manifest")
	}
	if lock == nil {
		return false, nil, fmt.Errorf("installer: nil lockfile")
	}

	names := make([]string, 0, len(ins.manifest.Dependencies))
	for name := range ins.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var logs []string
	resolved := make([]*LockedPackage, 0, len(names))
	changed := false

	for _, name := range names {
		spec := ins.manifest.Dependencies[name]
		if spec == nil {
			continue
		}
		var (
			pkg *LockedPackage
			err error
		)
		switch {
		case spec.Path != "":
			pkg, err = ins.resolvePathDependency(name, spec)
		case spec.Git != "":
			pkg, err = ins.fetchGitDependency(name, spec, lock)
		default:
			err = fmt.Errorf("dependency %q: no source specified", name)
		}
		if err != nil {
			return false, logs, err
		}

		if existing, ok := lock.FindPackage(name); ok && *existing == *pkg {
			logs = append(logs, fmt.Sprintf("%s %s up to date", pkg.Name, pkg.Version))
		} else {
			changed = true
			logs = append(logs, fmt.Sprintf("resolved %s %s (%s)", pkg.Name, pkg.Version, pkg.Source))
		}
		resolved = append(resolved, pkg)
	}

	if len(lock.Packages) != len(resolved) {
		changed = true
	}
	lock.Packages = resolved
	lock.normalize()
	return changed, logs, nil
}

func (ins *Installer) resolvePathDependency(name string, spec *DependencySpec) (*LockedPackage, error) {
	base := filepath.Dir(ins.manifest.Path)
	dir := spec.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, filepath.FromSlash(dir))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: resolve path %s: %w", name, spec.Path, err)
	}
	depManifest, err := LoadManifest(filepath.Join(abs, "script.yml"))
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	return &LockedPackage{
		Name:    sanitizeSegment(name),
		Version: depManifest.Version,
		Source:  "path:" + filepath.ToSlash(abs),
	}, nil
}

func (ins *Installer) fetchGitDependency(name string, spec *DependencySpec, lock *Lockfile) (*LockedPackage, error) {
	source := "git+" + spec.Git

	// Reuse the pinned checkout when the lock still points at this source.
	if existing, ok := lock.FindPackage(name); ok && existing.Source == source && existing.Revision != "" {
		dir := gitCheckoutDir(ins.cacheDir, existing.Name, existing.Revision)
		if _, err := os.Stat(dir); err == nil {
			return &LockedPackage{
				Name:     existing.Name,
				Version:  existing.Version,
				Source:   existing.Source,
				Revision: existing.Revision,
			}, nil
		}
	}

	revision, err := gitRevisionFromSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}

	baseDir := filepath.Join(ins.cacheDir, "pkg", "src", sanitizeSegment(name))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return nil, err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: spec.Git})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("git checkout %s: %w", revision, err)
	}

	targetDir := gitCheckoutDir(ins.cacheDir, sanitizeSegment(name), hash.String())
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
	} else if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}

	version := ""
	if depManifest, err := LoadManifest(filepath.Join(targetDir, "script.yml")); err == nil {
		version = depManifest.Version
	}

	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Version:  version,
		Source:   source,
		Revision: hash.String(),
	}, nil
}

// gitRevisionFromSpec maps the manifest pin to a git revision; unpinned git
// dependencies track the remote HEAD.
func gitRevisionFromSpec(spec *DependencySpec) (plumbing.Revision, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), nil
	}
	return plumbing.Revision("HEAD"), nil
}

func gitCheckoutDir(cacheDir, name, revision string) string {
	return filepath.Join(cacheDir, "pkg", "src", name, sanitizePathSegment(revision))
}

// DependencyDir locates the on-disk directory holding a locked dependency.
func DependencyDir(cacheDir string, pkg *LockedPackage) (string, error) {
	if pkg == nil {
		return "", fmt.Errorf("dependency: nil lock entry")
	}
	switch {
	case strings.HasPrefix(pkg.Source, "path:"):
		return filepath.FromSlash(strings.TrimPrefix(pkg.Source, "path:")), nil
	case strings.HasPrefix(pkg.Source, "git+"):
		if pkg.Revision == "" {
			return "", fmt.Errorf("dependency %q: lock entry missing revision", pkg.Name)
		}
		return gitCheckoutDir(cacheDir, pkg.Name, pkg.Revision), nil
	default:
		return "", fmt.Errorf("dependency %q: unrecognised source %q", pkg.Name, pkg.Source)
	}
}

// EntryScript resolves the prelude script a dependency directory contributes
// via the entry field of its script.yml.
func EntryScript(dir string) (string, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "script.yml"))
	if err != nil {
		return "", err
	}
	if manifest.Entry == "" {
		return "", fmt.Errorf("manifest: %s does not declare an entry script", manifest.Path)
	}
	entry := filepath.FromSlash(manifest.Entry)
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(dir, entry)
	}
	if _, err := os.Stat(entry); err != nil {
		return "", fmt.Errorf("manifest: entry script %s: %w", entry, err)
	}
	return entry, nil
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	result := b.String()
	if result == "" {
		return "head"
	}
	return result
}
