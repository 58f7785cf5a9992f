package internal

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/goplus/magicsys/internal/build"
	"github.com/goplus/magicsys/internal/config"
	"github.com/goplus/magicsys/internal/directive"
	"github.com/goplus/magicsys/internal/env"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

type resolveFlags struct {
	target        targetFlags
	outDir        string
	bundled       bool
	configFile    string
	root          string
	cgoFile       string
	cgoPackage    string
	cgoConstraint string
	prefix        string
	incremental   bool
	verbose       bool
}

var resolveOpts resolveFlags

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve how to link the library and print build directives",
	Long: `Resolve reads TARGET, OUT_DIR and the library settings from the environment,
builds or locates the library and prints one directive per line on stdout.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	f := resolveCmd.Flags()
	resolveOpts.target.register(resolveCmd)
	f.StringVar(&resolveOpts.outDir, "out-dir", "", "Output directory, overrides OUT_DIR")
	f.BoolVar(&resolveOpts.bundled, "bundled", false, "Compile the bundled sources instead of locating an installed library")
	f.StringVarP(&resolveOpts.configFile, "config", "c", "", "YAML file overriding the library settings")
	f.StringVar(&resolveOpts.root, "root", "", "Directory relative source paths are resolved against")
	f.StringVar(&resolveOpts.cgoFile, "cgo-file", "", "Write the flags as a cgo Go source file")
	f.StringVar(&resolveOpts.cgoPackage, "cgo-package", "main", "Package name of the cgo file")
	f.StringVar(&resolveOpts.cgoConstraint, "cgo-constraint", "", "Build constraint of the cgo file")
	f.StringVar(&resolveOpts.prefix, "prefix", "", `Prefix of every directive line, e.g. "cargo:"`)
	f.BoolVar(&resolveOpts.incremental, "incremental", false, "Reuse the previous result when no tracked variable changed")
	f.BoolVarP(&resolveOpts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	return resolve(cmd.Context(), &resolveOpts, environ, cmd.OutOrStdout(), newLogger(resolveOpts.verbose))
}

func resolve(ctx context.Context, opts *resolveFlags, base env.Lookup, stdout io.Writer, logger *log.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Default()
	if opts.configFile != "" {
		var err error
		if cfg, err = config.Load(opts.configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	vars := env.Map{}
	opts.target.apply(vars, base)
	if opts.outDir != "" {
		abs, err := filepath.Abs(opts.outDir)
		if err != nil {
			return fmt.Errorf("failed to resolve output dir: %w", err)
		}
		vars[env.OutDirKey] = abs
	}

	builder := build.NewBuilder(build.Options{
		Lookup:      overlay{vars: vars, base: base},
		Config:      cfg,
		Bundled:     opts.bundled,
		Root:        opts.root,
		Logger:      logger,
		Incremental: opts.incremental,
	})
	res, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	logger.Infof("%s for %s: %s", cfg.Package, res.Target, res.Outcome)

	if err := directive.WriteLines(stdout, opts.prefix, res.Directives); err != nil {
		return err
	}
	if opts.cgoFile != "" {
		cgo := directive.CgoFile{Package: opts.cgoPackage, Constraint: opts.cgoConstraint}
		if err := cgo.WriteFile(opts.cgoFile, res.Directives); err != nil {
			return fmt.Errorf("failed to write cgo file: %w", err)
		}
		logger.Debug("wrote", opts.cgoFile)
	}
	return nil
}
