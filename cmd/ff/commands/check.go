package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run validate, lint, and test together",
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := false

		fmt.Println("=== validate ===")
		if err := runValidate(); err != nil {
			fmt.Println(err)
			failed = true
		}

		fmt.Println()
		fmt.Println("=== lint ===")
		if err := runLint(); err != nil {
			fmt.Println(err)
			failed = true
		}

		fmt.Println()
		fmt.Println("=== test ===")
		if err := runTests(); err != nil {
			fmt.Println(err)
			failed = true
		}

		if failed {
			return fmt.Errorf("check failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&testfilePath, "testfile", "t", "Flagfile.tests", "Path to the test file")
	checkCmd.Flags().StringVarP(&testEnv, "env", "e", "", "Environment to evaluate @env rules against")
}
