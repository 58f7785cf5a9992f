package internal

import (
	"fmt"
	"runtime/debug"

	"github.com/goplus/magicsys/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the magicsys version and the bundled library version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Default()
		fmt.Fprintf(cmd.OutOrStdout(), "magicsys %s (bundled %s %s)\n", toolVersion(), cfg.Package, cfg.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func toolVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}
