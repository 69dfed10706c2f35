// Package backendproc supervises the backend subprocess from the engine's
// side: spawning it via self-reexec, waiting for its port-file handshake,
// pinging it until healthy, and stopping it on shutdown via signal
// escalation.
package backendproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/config"
	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/rpc"
)

const (
	portFilePoll = 100 * time.Millisecond
	stopWait     = 2 * time.Second
)

// pingRetrySchedule is the bounded backoff the engine applies while waiting
// for a freshly spawned backend to answer Ping.
var pingRetrySchedule = []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second}

// Process is a running backend subprocess and the RPC client bound to it.
type Process struct {
	cmd      *exec.Cmd
	portPath string
	Port     int
	Client   *rpc.Client
}

// Spawn starts the backend subprocess (re-executing this binary with the
// hidden "backend run" arguments), deletes any stale port file first,
// waits for the fresh one to appear, and pings until the backend answers.
// cfg supplies the port-file wait timeout and the RPC/Ping deadlines for
// the returned client.
func Spawn(ctx context.Context, dir *cachedir.Dir, cfg config.Config) (*Process, error) {
	portPath := dir.BackendPort()
	os.Remove(portPath) // stale copy from a prior, now-dead backend

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving own executable path: %w", err)
	}

	logFile, err := os.OpenFile(dir.EngineLog(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening engine log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(self, "backend", "run", dir.Root)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting backend process: %w", err)
	}

	port, err := waitForPortFile(ctx, portPath, cfg.PortFileTimeout.AsTimeDuration())
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	client := rpc.NewClientWithTimeouts(port, cfg.RPCTimeout.AsTimeDuration(), cfg.PingTimeout.AsTimeDuration())
	if err := pingUntilHealthy(ctx, client); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	return &Process{cmd: cmd, portPath: portPath, Port: port, Client: client}, nil
}

func waitForPortFile(ctx context.Context, path string, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		data, err := os.ReadFile(path)
		if err == nil {
			port, perr := strconv.Atoi(strings.TrimSpace(string(data)))
			if perr == nil && port > 0 && port <= 65535 {
				return port, nil
			}
		}
		if time.Now().After(deadline) {
			return 0, errkind.Wrap(errkind.Internal, "timed out after %s waiting for backend port file %q", timeout, path)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(portFilePoll):
		}
	}
}

func pingUntilHealthy(ctx context.Context, client *rpc.Client) error {
	for _, wait := range pingRetrySchedule {
		if _, err := client.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if _, err := client.Ping(ctx); err != nil {
		return fmt.Errorf("backend did not become healthy: %w", err)
	}
	return nil
}

// Stop terminates the backend: SIGTERM, bounded wait, SIGKILL escalation.
func (p *Process) Stop() {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return
	}
	p.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		p.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopWait):
		p.cmd.Process.Kill()
		<-done
	}

	// The backend removes its own port file on a clean SIGTERM exit, but
	// not when escalated to SIGKILL; sweep it here either way.
	os.Remove(p.portPath)
}
