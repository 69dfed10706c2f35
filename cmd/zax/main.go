// Command zax is the incremental check runner's CLI entrypoint.
package main

import (
	"os"

	"github.com/xcawolfe-amzn/zax/internal/cmdline"
)

func main() {
	os.Exit(cmdline.Execute())
}
