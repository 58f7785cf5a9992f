package internal

import (
	"os"

	"github.com/goplus/magicsys/internal/env"
	"github.com/goplus/magicsys/internal/target"
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "magicsys",
	Short: "magicsys resolves how to link libmagic",
	Long: `magicsys decides, at build time, how a cgo binding obtains libmagic: from a
directory named by MAGIC_DIR, from a package manager, from the system linker
search path or by compiling the bundled sources. The decision is printed as
build directives and can be written as a cgo source file.`,
	SilenceUsage: true,
}

// environ is the environment every command resolves against.
var environ env.Lookup = env.OS

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}

// newLogger logs to stderr so that stdout carries directives only.
func newLogger(verbose bool) *log.Logger {
	logger := log.New(os.Stderr, "magicsys: ", log.Llevel)
	if verbose {
		logger.SetOutputLevel(log.Ldebug)
	} else {
		logger.SetOutputLevel(log.Linfo)
	}
	return logger
}

// overlay layers command-line values over a base lookup.
type overlay struct {
	vars env.Map
	base env.Lookup
}

func (o overlay) LookupEnv(key string) (string, bool) {
	if v, ok := o.vars[key]; ok {
		return v, true
	}
	return o.base.LookupEnv(key)
}

// targetFlags selects the target triple of a command.
type targetFlags struct {
	triple string
	host   bool
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.triple, "target", "", "Target triple, overrides TARGET")
	cmd.Flags().BoolVar(&f.host, "host", false, "Use the host triple when TARGET is not set")
}

// apply records the chosen triple in vars.
func (f *targetFlags) apply(vars env.Map, base env.Lookup) {
	switch {
	case f.triple != "":
		vars[env.TargetKey] = f.triple
	case f.host:
		if v, ok := base.LookupEnv(env.TargetKey); !ok || v == "" {
			vars[env.TargetKey] = target.Host().String()
		}
	}
}
