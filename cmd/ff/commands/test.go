package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	flagfile "github.com/TimurManjosov/flagfile"
	"github.com/TimurManjosov/flagfile/testfile"
)

var (
	testfilePath string
	testEnv      string
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run flag assertions against the Flagfile",
	Long: `Test runs assertions from three sources: the test file, inline
// @test comments in the Flagfile, and @test metadata annotations.

Examples:
  ff test
  ff test -t Flagfile.tests -e prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTests()
	},
}

func runTests() error {
	f, err := flagfile.ParseFile(flagfilePath)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	var assertions []testfile.Assertion
	if data, err := os.ReadFile(testfilePath); err == nil {
		assertions = append(assertions, testfile.ParseFile(string(data))...)
	}
	assertions = append(assertions, testfile.InlineAnnotations(f.Source())...)
	assertions = append(assertions, testfile.MetadataAnnotations(f.Doc())...)

	if len(assertions) == 0 {
		fmt.Println("No assertions found")
		return nil
	}

	report := testfile.Run(f.Doc(), assertions, testEnv)
	for _, o := range report.Outcomes {
		if o.Passed {
			fmt.Printf("PASS %s\n", o.Assertion.Source)
			continue
		}
		if o.Detail != "" {
			fmt.Printf("FAIL %s (%s)\n", o.Assertion.Source, o.Detail)
		} else {
			fmt.Printf("FAIL %s\n", o.Assertion.Source)
		}
	}
	fmt.Printf("%d passed, %d failed\n", report.Passed, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d assertion(s) failed", report.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testfilePath, "testfile", "t", "Flagfile.tests", "Path to the test file")
	testCmd.Flags().StringVarP(&testEnv, "env", "e", "", "Environment to evaluate @env rules against")
}
