package internal

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/goplus/magicsys/internal/bundle"
	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/target"
	"github.com/spf13/cobra"
)

var (
	sourcesTarget targetFlags
	sourcesConfig string
	sourcesPaths  bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the translation units of the bundled build",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	sourcesTarget.register(sourcesCmd)
	sourcesCmd.Flags().StringVarP(&sourcesConfig, "config", "c", "", "YAML or TOML file overriding the library settings")
	sourcesCmd.Flags().BoolVar(&sourcesPaths, "paths", false, "Print paths joined with the source directory")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if sourcesConfig != "" {
		var err error
		if cfg, err = config.Load(sourcesConfig); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	triple := sourcesTriple(sourcesTarget, environ)
	t, err := target.Parse(triple)
	if err != nil {
		return err
	}
	return printSources(cmd.OutOrStdout(), cfg, t, sourcesPaths)
}

// sourcesTriple picks the triple to list sources for. Without --target or
// TARGET it falls back to the host.
func sourcesTriple(f targetFlags, base env.Lookup) string {
	f.host = true
	vars := env.Map{}
	f.apply(vars, base)
	triple, _ := overlay{vars: vars, base: base}.LookupEnv(env.TargetKey)
	return triple
}

func printSources(w io.Writer, cfg *config.Config, t target.Triple, paths bool) error {
	for _, f := range bundle.Units(cfg, t) {
		if paths {
			f = filepath.Join(cfg.Source.Dir, f)
		}
		if _, err := fmt.Fprintln(w, f); err != nil {
			return err
		}
	}
	return nil
}
