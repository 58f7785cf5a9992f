package internal

import (
	"fmt"
	"io"

	"github.com/goplus/magicsys/internal/env"
	"github.com/spf13/cobra"
)

var envTarget targetFlags

var envCmd = &cobra.Command{
	Use:   "env NAME...",
	Short: "Print the effective value of configuration variables",
	Long: `Env resolves each NAME the way resolve does, preferring the target-specific
{TRIPLE}_NAME over NAME, and prints the value together with the key that
supplied it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnv,
}

func init() {
	envTarget.register(envCmd)
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	vars := env.Map{}
	envTarget.apply(vars, environ)
	return printEnv(cmd.OutOrStdout(), overlay{vars: vars, base: environ}, args)
}

func printEnv(w io.Writer, lookup env.Lookup, names []string) error {
	r, err := env.NewResolver(lookup, nil)
	if err != nil {
		return err
	}
	for _, name := range names {
		v, src, ok := r.Explain(name)
		switch {
		case !ok:
			fmt.Fprintf(w, "%s unset (checked %s, %s)\n", name, r.PrefixedKey(name), name)
		case src == env.SourcePrefixed:
			fmt.Fprintf(w, "%s=%s (%s from %s)\n", name, v, src, r.PrefixedKey(name))
		default:
			fmt.Fprintf(w, "%s=%s (%s from %s)\n", name, v, src, name)
		}
	}
	return nil
}
