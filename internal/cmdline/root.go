// Package cmdline wires the cobra command tree: the public `check` and
// `version` subcommands, plus the hidden `engine run` / `backend run`
// subcommands used internally by the daemon bring-up protocol. The
// lifecycle subcommands stay hidden rather than shipping as separate
// binaries.
package cmdline

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// buildVersion is set by the linker at release build time; the default
// "dev" marks a development build.
var buildVersion = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "zax",
		Short:         "Incremental check runner for JavaScript test suites and linters",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCheckCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newEngineCmd())
	root.AddCommand(newBackendCmd())

	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

// exitCode is set by newCheckCmd's RunE so Execute can report it after
// cobra returns; cobra itself has no notion of a non-error nonzero exit.
var exitCode int
