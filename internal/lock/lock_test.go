package lock

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "engine.lock")
	h, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, pidFileName)); err != nil {
		t.Errorf("pid file missing after Acquire: %v", err)
	}
	h.Release()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("lock directory still exists after Release: %v", err)
	}
}

func TestAcquire_StaleLockIsRecovered(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "engine.lock")
	if err := os.Mkdir(dir, 0o700); err != nil {
		t.Fatal(err)
	}

	deadPID := deadProcessPID(t)
	if err := os.WriteFile(filepath.Join(dir, pidFileName), []byte(strconv.Itoa(deadPID)), 0o600); err != nil {
		t.Fatal(err)
	}

	h, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire did not recover stale lock: %v", err)
	}
	defer h.Release()

	data, err := os.ReadFile(filepath.Join(dir, pidFileName))
	if err != nil {
		t.Fatalf("reading recovered pid file: %v", err)
	}
	if got, _ := strconv.Atoi(string(data)); got != os.Getpid() {
		t.Errorf("recovered pid file has pid %d, want own pid %d", got, os.Getpid())
	}
}

func TestAcquire_LiveHolderBlocksUntilReleased(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "engine.lock")
	h1, err := Acquire(dir)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		h2, err := Acquire(dir)
		if err == nil {
			h2.Release()
		}
		done <- err
	}()

	h1.Release()

	if err := <-done; err != nil {
		t.Errorf("second Acquire after release: %v", err)
	}
}

// deadProcessPID returns a PID that is guaranteed not to be alive, by
// spawning a trivial process and waiting for it to exit.
func deadProcessPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot spawn process for stale-pid test: %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		t.Fatalf("waiting for dummy process: %v", err)
	}
	return pid
}
