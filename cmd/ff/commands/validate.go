package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	flagfile "github.com/TimurManjosov/flagfile"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the Flagfile parses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func runValidate() error {
	f, err := flagfile.ParseFile(flagfilePath)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	doc := f.Doc()
	fmt.Printf("%s is valid: %d flags, %d segments\n", flagfilePath, len(doc.Order), len(doc.Segments))
	return nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
