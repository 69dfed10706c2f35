package cmdline

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/xcawolfe-amzn/zax/internal/cachedir"
	"github.com/xcawolfe-amzn/zax/internal/style"
	"github.com/xcawolfe-amzn/zax/internal/workspace"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version, and the running engine's version if reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			line := fmt.Sprintf("zax %s", buildVersion)
			if style.Stdout() {
				line = style.Bold.Render(line)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)

			res, err := workspace.FindFromCwdOrError()
			if err != nil {
				return nil
			}
			id, err := workspace.ComputeID(res.Root)
			if err != nil {
				return nil
			}
			path, err := cachedir.Path(id)
			if err != nil {
				return nil
			}
			sockPath := (&cachedir.Dir{Root: path}).Socket()

			client := &http.Client{
				Timeout: 2 * time.Second,
				Transport: &http.Transport{
					DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
						var d net.Dialer
						return d.DialContext(ctx, "unix", sockPath)
					},
				},
			}
			resp, err := client.Get("http://unix/version")
			if err != nil {
				return nil
			}
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				var body struct {
					Version string `json:"version"`
				}
				if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
					engineLine := fmt.Sprintf("engine %s", body.Version)
					if style.Stdout() {
						engineLine = style.Dim.Render(engineLine)
					}
					fmt.Fprintln(cmd.OutOrStdout(), engineLine)
				}
			}
			return nil
		},
	}
}
