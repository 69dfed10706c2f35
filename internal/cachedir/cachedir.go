// Package cachedir computes and validates the per-workspace cache
// directory: its platform-conventional path, its required mode, and the
// well-known file/directory names inside it.
package cachedir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/xcawolfe-amzn/zax/internal/util"
)

const appName = "zax"

// RequiredMode is the mode the cache directory must carry. A pre-existing
// directory with any other mode is refused rather than silently reused,
// since it may be shared or world-readable.
const RequiredMode = 0o700

// Well-known names inside a workspace's cache directory.
const (
	EngineLockDir   = "engine.lock"
	EnginePIDFile   = "engine.pid"
	EngineLogFile   = "engine.log"
	SocketFile      = "zax.sock"
	BackendPortFile = "rust.port"
	StateDBFile     = "state.db"
	ArtifactsDir    = "artifacts"
	ConfigFile      = "config.toml"
)

// Dir is a resolved, existing cache directory for one workspace.
type Dir struct {
	Root string
}

// Root returns the root cache directory for all workspaces
// ($HOME/Library/Caches/zax on macOS; elsewhere $XDG_CACHE_HOME/zax when
// XDG_CACHE_HOME is set, else $HOME/.cache/zax), unless overridden by
// ZAX_CACHE_DIR (tilde-expanded, for a shell-style override like
// ZAX_CACHE_DIR=~/zax-cache).
func Root() (string, error) {
	if override := os.Getenv("ZAX_CACHE_DIR"); override != "" {
		return util.ExpandHome(override), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Caches", appName), nil
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Path returns the cache directory path for a given workspace id, without
// creating or validating it.
func Path(workspaceID string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, workspaceID), nil
}

// Ensure creates (if absent) or validates (if present) the cache directory
// for workspaceID, enforcing RequiredMode. A pre-existing directory with a
// different mode is a fatal configuration error: the system refuses to use
// a cache directory it cannot trust the permissions of.
func Ensure(workspaceID string) (*Dir, error) {
	path, err := Path(workspaceID)
	if err != nil {
		return nil, err
	}

	root, err := Root()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root %q: %w", root, err)
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if err := os.Mkdir(path, RequiredMode); err != nil {
			return nil, fmt.Errorf("creating cache directory %q: %w", path, err)
		}
		// Mkdir's mode is subject to umask; force it explicitly.
		if err := os.Chmod(path, RequiredMode); err != nil {
			return nil, fmt.Errorf("setting mode on cache directory %q: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("statting cache directory %q: %w", path, err)
	default:
		if !info.IsDir() {
			return nil, fmt.Errorf("cache path %q exists and is not a directory", path)
		}
		if info.Mode().Perm() != RequiredMode {
			return nil, fmt.Errorf("cache directory %q has mode %o, expected %o; refusing to use an untrusted cache directory", path, info.Mode().Perm(), RequiredMode)
		}
	}

	if err := os.MkdirAll(filepath.Join(path, ArtifactsDir), 0o700); err != nil {
		return nil, fmt.Errorf("creating artifacts directory under %q: %w", path, err)
	}

	return &Dir{Root: path}, nil
}

func (d *Dir) join(name string) string { return filepath.Join(d.Root, name) }

func (d *Dir) LockDir() string       { return d.join(EngineLockDir) }
func (d *Dir) EnginePID() string     { return d.join(EnginePIDFile) }
func (d *Dir) EngineLog() string     { return d.join(EngineLogFile) }
func (d *Dir) Socket() string        { return d.join(SocketFile) }
func (d *Dir) BackendPort() string   { return d.join(BackendPortFile) }
func (d *Dir) StateDB() string       { return d.join(StateDBFile) }
func (d *Dir) Config() string        { return d.join(ConfigFile) }
func (d *Dir) ArtifactsRoot() string { return d.join(ArtifactsDir) }

// ArtifactDir returns the directory for one run's artifacts, without
// creating it.
func (d *Dir) ArtifactDir(runID string) string {
	return filepath.Join(d.ArtifactsRoot(), runID)
}

// EnsureArtifactDir creates the artifact directory for runID.
func (d *Dir) EnsureArtifactDir(runID string) (string, error) {
	dir := d.ArtifactDir(runID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating artifact directory %q: %w", dir, err)
	}
	return dir, nil
}

// RemoveArtifactDir removes the artifact directory for runID under
// artifactsRoot. Bounded by construction: it only ever removes a path
// directly beneath artifacts/, never anything else in the cache directory.
func RemoveArtifactDir(artifactsRoot, runID string) error {
	if runID == "." || runID == ".." || filepath.Base(runID) != runID {
		return fmt.Errorf("refusing to remove artifact directory for run id %q: not a single path element", runID)
	}
	return os.RemoveAll(filepath.Join(artifactsRoot, runID))
}
