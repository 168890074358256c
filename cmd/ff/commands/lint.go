package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	flagfile "github.com/TimurManjosov/flagfile"
	"github.com/TimurManjosov/flagfile/lint"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Report Flagfile hygiene problems",
	Long: `Lint checks the Flagfile for problems that parse fine but bite
later: missing defaults, unreachable rules, undefined or circular
references, expired and deprecated flags, and suspicious expressions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLint()
	},
}

func runLint() error {
	f, err := flagfile.ParseFile(flagfilePath)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	warnings := lint.Run(f.Doc(), time.Now())
	if len(warnings) == 0 {
		fmt.Println("No lint findings")
		return nil
	}

	for _, w := range warnings {
		fmt.Printf("%s: %s\n", w.Level, w.Message)
	}
	return fmt.Errorf("%d lint finding(s)", len(warnings))
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
