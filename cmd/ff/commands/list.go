package commands

import (
	"os"

	"github.com/spf13/cobra"

	flagfile "github.com/TimurManjosov/flagfile"
	"github.com/TimurManjosov/flagfile/internal/cli"
)

var listDescription bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the flags defined in the Flagfile",
	Long: `List the flags defined in the Flagfile, in definition order.

Examples:
  ff list
  ff list -d
  ff list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := flagfile.ParseFile(flagfilePath)
		if err != nil {
			return err
		}
		return cli.PrintFlags(os.Stdout, cli.Summarize(f.Doc()), cli.OutputFormat(format), listDescription)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVarP(&listDescription, "description", "d", false, "Show flag descriptions")
}
