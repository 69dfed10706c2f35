package cmdline

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/pipeline"
	"github.com/xcawolfe-amzn/zax/internal/style"
	"github.com/xcawolfe-amzn/zax/internal/workspace"
	"github.com/xcawolfe-amzn/zax/internal/zaxclient"
)

func newCheckCmd() *cobra.Command {
	var deopt bool
	var packageFlag string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the test runner and linter and report the delta since the last check",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := workspace.FindFromCwdOrError()
			if err != nil {
				return fmt.Errorf("resolving workspace: %w", err)
			}
			for _, w := range res.Warnings {
				style.PrintWarning("%s", w)
			}

			scope := res.PackageScope
			if packageFlag != "" {
				scope, err = validatePackageFlag(res.Root, packageFlag)
				if err != nil {
					return err
				}
			}

			id, err := workspace.ComputeID(res.Root)
			if err != nil {
				return fmt.Errorf("computing workspace id: %w", err)
			}

			dir, err := cachedir.Ensure(id)
			if err != nil {
				return fmt.Errorf("preparing cache directory: %w", err)
			}

			summary, err := zaxclient.RunCheck(context.Background(), dir, zaxclient.CheckRequest{
				WorkspaceID:   id,
				WorkspaceRoot: res.Root,
				PackageScope:  scope,
				Deopt:         deopt,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), FormatSummary(summary, deopt))
			if verbose {
				fmt.Fprint(cmd.OutOrStdout(), renderVerboseTable(summary))
			}
			exitCode = ExitCode(summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&deopt, "deopt", false, "force a full test run, bypassing affected-test selection")
	cmd.Flags().StringVarP(&packageFlag, "package", "p", "", "restrict the check to a package scope relative to the workspace root")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print a breakdown table of new/fixed counts by category")

	return cmd
}

// renderVerboseTable renders the per-category new/fixed breakdown behind
// --verbose. It never changes the literal summary lines above it; it's
// purely additional detail.
func renderVerboseTable(s pipeline.Summary) string {
	t := style.NewTable(
		style.Column{Name: "Category", Width: 12, Align: style.AlignLeft},
		style.Column{Name: "New", Width: 6, Align: style.AlignRight},
		style.Column{Name: "Fixed", Width: 6, Align: style.AlignRight},
	)
	t.AddRow("tests", strconv.Itoa(s.NewTestFailures), strconv.Itoa(s.FixedTestFailures))
	t.AddRow("findings", strconv.Itoa(s.NewFindings), strconv.Itoa(s.FixedFindings))
	return t.Render()
}

// validatePackageFlag rejects a --package value that would escape the
// workspace root, per the expanded spec's validation rule.
func validatePackageFlag(root, pkg string) (string, error) {
	joined := filepath.Join(root, pkg)
	rel, err := filepath.Rel(root, joined)
	if err != nil {
		return "", fmt.Errorf("resolving --package %q: %w", pkg, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("--package %q escapes the workspace root", pkg)
	}
	return filepath.ToSlash(rel), nil
}
