package cmdline

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xcawolfe-amzn/zax/internal/backendproc"
)

// newBackendCmd wires the hidden "backend run" subcommand the engine
// self-reexecs into when spawning the backend subprocess.
func newBackendCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:    "backend",
		Hidden: true,
	}
	parent.AddCommand(&cobra.Command{
		Use:    "run <cache-dir>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := backendproc.RunBackend(context.Background(), args[0]); err != nil {
				return fmt.Errorf("running backend: %w", err)
			}
			return nil
		},
	})
	return parent
}
