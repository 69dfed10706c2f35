package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// monorepoMarkers are files whose presence in a directory identifies it as
// a possible monorepo root, checked in addition to a package manifest whose
// top-level "workspaces" field is present.
var monorepoMarkers = []string{"pnpm-workspace.yaml", "turbo.json", "lerna.json"}

const packageManifest = "package.json"

// Resolution is the result of resolving a starting directory to a workspace
// root and, optionally, a package scope relative to that root.
type Resolution struct {
	// Root is the canonicalized, absolute workspace root.
	Root string

	// PackageScope is the forward-slash relative path from Root to the
	// nearest package-manifest-bearing ancestor of the starting directory,
	// or "" if the starting directory equals Root or no intermediate
	// manifest exists.
	PackageScope string

	// Warnings accumulates non-fatal messages (e.g. symlink escape) for
	// the caller to surface.
	Warnings []string
}

// Resolve walks the parent chain from start and returns the workspace root
// and package scope. It is a pure function other than the Warnings it
// accumulates; it performs no writes.
func Resolve(start string) (*Resolution, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path for %q: %w", start, err)
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving symlinks for %q: %w", abs, err)
	}

	vcsRoot := findVCSRoot(canon)
	monorepoRoot := findNearestMonorepoRoot(canon, vcsRoot)

	root := monorepoRoot
	if root == "" {
		root = vcsRoot
	}
	if root == "" {
		root = canon
	}

	res := &Resolution{Root: root}

	scope, warn := findPackageScope(canon, root)
	res.PackageScope = scope
	if warn != "" {
		res.Warnings = append(res.Warnings, warn)
	}

	return res, nil
}

// findVCSRoot walks upward from dir looking for the nearest ancestor
// containing a .git entry. Returns "" if none is found.
func findVCSRoot(dir string) string {
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, ".git")); err == nil {
			return d
		}
		parent := filepath.Dir(d)
		if parent == d {
			return ""
		}
		d = parent
	}
}

// findNearestMonorepoRoot walks upward from dir, remembering the first
// directory (i.e. nearest to dir, at or below limit if limit is non-empty)
// that carries a monorepo marker. Returns "" if none is found at or below
// limit (or at all, if limit is "").
func findNearestMonorepoRoot(dir, limit string) string {
	d := dir
	for {
		if isMonorepoRoot(d) {
			return d
		}
		if limit != "" && d == limit {
			return ""
		}
		parent := filepath.Dir(d)
		if parent == d {
			return ""
		}
		d = parent
	}
}

func isMonorepoRoot(dir string) bool {
	for _, marker := range monorepoMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return manifestHasWorkspaces(filepath.Join(dir, packageManifest))
}

func manifestHasWorkspaces(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var manifest struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return false
	}
	return len(manifest.Workspaces) > 0
}

// findPackageScope walks upward from dir to root looking for the nearest
// ancestor containing a package manifest, and returns its root-relative,
// forward-slash path. Returns "" if dir == root or no manifest is found.
func findPackageScope(dir, root string) (scope string, warning string) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", fmt.Sprintf("package scope: cannot relativize %q against root %q: %v", dir, root, err)
	}
	if rel == "." {
		return "", ""
	}
	if len(rel) >= 2 && rel[:2] == ".." {
		return "", fmt.Sprintf("package scope: %q escapes workspace root %q via symlink", dir, root)
	}

	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, packageManifest)); err == nil {
			scopeRel, err := filepath.Rel(root, d)
			if err != nil {
				return "", fmt.Sprintf("package scope: cannot relativize %q: %v", d, err)
			}
			if scopeRel == "." {
				return "", ""
			}
			return filepath.ToSlash(scopeRel), ""
		}
		if d == root {
			return "", ""
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", ""
		}
		d = parent
	}
}

// FindFromCwdOrError resolves the workspace for the current working
// directory, returning an error with operator-facing guidance if the cwd
// cannot be resolved at all (e.g. deleted directory).
func FindFromCwdOrError() (*Resolution, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining current directory: %w", err)
	}
	res, err := Resolve(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace from %q: %w", cwd, err)
	}
	return res, nil
}
