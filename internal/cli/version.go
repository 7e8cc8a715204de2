package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Populated via -ldflags at release build time.
var (
	version = "dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loglens %s (%s) %s/%s\n", version, commit, runtime.GOOS, runtime.GOARCH)
	},
}
