// Package lock implements the cooperative cross-process mutex used to
// serialize engine bring-up: directory creation as the atomic primitive,
// a PID file inside for stale-holder recovery, bounded polling on
// contention, and best-effort release.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const pidFileName = "pid"

// Defaults used by Acquire; overridable per workspace via config.Config
// (config.Config.LockPollInterval / config.Config.LockTimeout) through
// AcquireTimeout.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
)

// Handle represents a held lock. Release is idempotent and best-effort.
type Handle struct {
	dir      string
	pidLock  *flock.Flock
	released bool
}

// Acquire takes the daemon bring-up lock rooted at dir using the default
// poll interval and timeout. Equivalent to
// AcquireTimeout(dir, DefaultPollInterval, DefaultTimeout).
func Acquire(dir string) (*Handle, error) {
	return AcquireTimeout(dir, DefaultPollInterval, DefaultTimeout)
}

// AcquireTimeout takes the daemon bring-up lock rooted at dir (e.g.
// "<cache>/engine.lock"). It blocks until the lock is held, a stale
// holder is recovered, or timeout elapses, polling every poll interval
// while contended.
//
// mkdir of dir is the atomic primitive; file creation (O_CREAT|O_EXCL)
// is deliberately not used instead, since the directory form lets the
// holder store the pid file under the same atomic operation.
func AcquireTimeout(dir string, poll, timeout time.Duration) (*Handle, error) {
	deadline := time.Now().Add(timeout)
	staleRetried := false

	for {
		err := os.Mkdir(dir, 0o700)
		if err == nil {
			if werr := writePID(dir); werr != nil {
				os.RemoveAll(dir)
				return nil, fmt.Errorf("writing pid file in %q: %w", dir, werr)
			}
			pidLock, lerr := acquirePIDFlock(dir)
			if lerr != nil {
				os.RemoveAll(dir)
				return nil, fmt.Errorf("locking pid file in %q: %w", dir, lerr)
			}
			return &Handle{dir: dir, pidLock: pidLock}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock directory %q: %w", dir, err)
		}

		if !staleRetried {
			staleRetried = true
			if stale, serr := isStale(dir); serr == nil && stale {
				os.RemoveAll(dir)
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquiring lock %q: timed out after %s", dir, timeout)
		}
		time.Sleep(poll)
	}
}

// Release drops the lock. Calls after the first are no-ops; all cleanup is
// best-effort.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	if h.pidLock != nil {
		h.pidLock.Unlock()
	}
	os.Remove(filepath.Join(h.dir, pidFileName))
	os.Remove(h.dir)
}

func writePID(dir string) error {
	path := filepath.Join(dir, pidFileName)
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

// acquirePIDFlock takes an advisory flock on the pid file, held until
// Release. isStale reads the pid file without taking this flock, so the
// flock does not serialize the stale check against the holder.
func acquirePIDFlock(dir string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dir, pidFileName))
	if err := fl.Lock(); err != nil {
		return nil, err
	}
	return fl, nil
}

// isStale reports whether the holder recorded in dir/pid is no longer
// alive, via a signal-0 liveness check.
func isStale(dir string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, pidFileName))
	if err != nil {
		if os.IsNotExist(err) {
			// Lock directory exists but pid file hasn't been written yet
			// (racing a concurrent Acquire); treat as not-yet-stale.
			return false, nil
		}
		return false, fmt.Errorf("reading pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		// Unreadable pid file is itself evidence of a stale/corrupt holder.
		return true, nil
	}
	return !processAlive(pid), nil
}
