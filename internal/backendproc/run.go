package backendproc

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/rpc"
	"github.com/xcawolfe-amzn/zax/internal/store"
)

// RunBackend is the entry point for the hidden "backend run <cache-dir>"
// subcommand: it opens the SQLite store, binds the RPC listener, writes
// the port file, and serves until SIGTERM/SIGINT.
func RunBackend(ctx context.Context, cacheDirPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st, err := store.Open(ctx, filepath.Join(cacheDirPath, cachedir.StateDBFile))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	artifactsRoot := filepath.Join(cacheDirPath, cachedir.ArtifactsDir)
	srv := rpc.NewServer(st, artifactsRoot)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(filepath.Join(cacheDirPath, cachedir.BackendPortFile))
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		os.Remove(filepath.Join(cacheDirPath, cachedir.BackendPortFile))
		return nil
	case err := <-serveErr:
		return err
	}
}
