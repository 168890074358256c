package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	flagfile "github.com/TimurManjosov/flagfile"
	"github.com/TimurManjosov/flagfile/internal/cli"
	"github.com/TimurManjosov/flagfile/parse"
)

var evalEnv string

var evalCmd = &cobra.Command{
	Use:   "eval FLAG [key=value ...]",
	Short: "Evaluate one flag against a context",
	Long: `Evaluate a flag with context values given as key=value pairs.
Values are parsed into their natural type: numbers, booleans, dates,
and versions compare as such, anything else as text.

Examples:
  ff eval FF-premium-feature plan=premium
  ff eval FF-new-checkout country=US platform=web -e prod`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := flagfile.ParseFile(flagfilePath)
		if err != nil {
			return fmt.Errorf("parsing failed: %w", err)
		}

		ctx := flagfile.Context{}
		for _, pair := range args[1:] {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("invalid context pair %q, want key=value", pair)
			}
			ctx[key] = parse.Atom(value)
		}

		value, ok := f.EvalWithEnv(args[0], ctx, evalEnv)
		if !ok {
			return fmt.Errorf("no value for %s", args[0])
		}
		fmt.Println(cli.FormatValue(value))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalEnv, "env", "e", "", "Environment to evaluate @env rules against")
}
