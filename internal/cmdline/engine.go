package cmdline

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/engine"
)

// newEngineCmd wires the hidden "engine run" subcommand used internally by
// the daemon bring-up protocol (zaxclient self-reexecs into it); it is not
// part of the CLI surface an operator is expected to invoke directly.
func newEngineCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:    "engine",
		Hidden: true,
	}
	parent.AddCommand(&cobra.Command{
		Use:    "run <cache-dir>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := &cachedir.Dir{Root: args[0]}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			if err := engine.Start(ctx, dir); err != nil {
				return fmt.Errorf("running engine: %w", err)
			}
			return nil
		},
	})
	return parent
}
