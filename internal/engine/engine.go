// Package engine implements the long-lived per-workspace daemon: it owns
// the Unix domain socket CLI invocations talk to, supervises the backend
// subprocess, and runs the check pipeline against it.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xcawolfe-amzn/zax/internal/backendproc"
	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/config"
	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/pipeline"
	"github.com/xcawolfe-amzn/zax/internal/util"
	"github.com/xcawolfe-amzn/zax/internal/workspace"
)

// Engine owns the Unix socket HTTP server and the backend it supervises.
type Engine struct {
	dir     *cachedir.Dir
	backend *backendproc.Process
	cfg     config.Config

	checking  int32        // atomic: 1 while a /check handler is running
	lastCheck atomic.Value // time.Time of the last accepted /check
	rateMu    sync.Mutex

	httpSrv *http.Server
}

// CheckRequest is the body of POST /check.
type CheckRequest struct {
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceRoot string `json:"workspace_root"`
	PackageScope  string `json:"package_scope,omitempty"`
	Deopt         bool   `json:"deopt,omitempty"`
}

// Start brings up the backend, binds the Unix socket, and blocks serving
// until ctx is canceled (by a SIGTERM/SIGINT handler installed by the
// caller).
func Start(ctx context.Context, dir *cachedir.Dir) error {
	if info, err := os.Stat(dir.Root); err != nil || !info.IsDir() {
		return fmt.Errorf("cache directory %q does not exist", dir.Root)
	}

	if err := util.AtomicWriteFile(dir.EnginePID(), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("writing engine pid file: %w", err)
	}
	defer os.Remove(dir.EnginePID())

	cfg, err := config.Load(dir.Config())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	backend, err := backendproc.Spawn(ctx, dir, cfg)
	if err != nil {
		return fmt.Errorf("spawning backend: %w", err)
	}
	defer backend.Stop()

	os.Remove(dir.Socket())
	ln, err := net.Listen("unix", dir.Socket())
	if err != nil {
		return fmt.Errorf("binding unix socket %q: %w", dir.Socket(), err)
	}
	defer os.Remove(dir.Socket())

	e := &Engine{dir: dir, backend: backend, cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", e.handleHealth)
	mux.HandleFunc("/version", e.handleVersion)
	mux.HandleFunc("/check", e.handleCheck)
	mux.HandleFunc("/", e.handleNotFound)
	e.httpSrv = &http.Server{Handler: mux}

	serveErr := make(chan error, 1)
	go func() { serveErr <- e.httpSrv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		e.httpSrv.Shutdown(shutdownCtx)
		return nil
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serving engine http: %w", err)
		}
		return nil
	}
}

func (e *Engine) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (e *Engine) handleVersion(w http.ResponseWriter, r *http.Request) {
	resp, err := e.backend.Client.Ping(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, errkind.RPCTimeout) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, map[string]string{"error": fmt.Sprintf("backend unavailable: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *Engine) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if !atomic.CompareAndSwapInt32(&e.checking, 0, 1) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "check already in progress"})
		return
	}
	defer atomic.StoreInt32(&e.checking, 0)

	if !e.allowCheck() {
		w.Header().Set("Retry-After", "1")
		writeErr(w, errkind.Wrap(errkind.RateLimited, "check rate limit exceeded"))
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errkind.Wrap(errkind.Validation, "decoding request body: %v", err))
		return
	}
	if !workspace.ValidID(req.WorkspaceID) {
		writeErr(w, errkind.Wrap(errkind.Validation, "invalid workspace_id %q", req.WorkspaceID))
		return
	}
	if info, err := os.Stat(req.WorkspaceRoot); err != nil || !info.IsDir() {
		writeErr(w, errkind.Wrap(errkind.Validation, "workspace_root %q is not an existing directory", req.WorkspaceRoot))
		return
	}

	summary, err := pipeline.Run(r.Context(), pipeline.Request{
		WorkspaceID:   req.WorkspaceID,
		WorkspaceRoot: req.WorkspaceRoot,
		PackageScope:  req.PackageScope,
		Deopt:         req.Deopt,
	}, e.dir, e.backend.Client, e.cfg.ToolTimeout.AsTimeDuration())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (e *Engine) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// allowCheck enforces the at-most-one-per-window rate limit. handleCheck
// calls it after claiming the concurrency flag and before reading the
// request body or doing any other work.
func (e *Engine) allowCheck() bool {
	e.rateMu.Lock()
	defer e.rateMu.Unlock()

	now := time.Now()
	window := e.cfg.RateLimitWindow.AsTimeDuration()
	if last, ok := e.lastCheck.Load().(time.Time); ok && now.Sub(last) < window {
		return false
	}
	e.lastCheck.Store(now)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errkind.StatusFor(err), map[string]string{"error": err.Error()})
}
