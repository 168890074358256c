package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const initFlagfile = `// Segments: reusable audiences that any flag can reference.

@segment beta_users {
    beta == true or role == developer
}

@segment eu_region {
    country in (DE, FR, ES, IT, NL, PL, SE)
}

// A basic on/off toggle.

FF-welcome-banner -> true

// Metadata annotations document ownership and lifecycle.

@owner "payments-team"
@ticket "PAY-1234"
@description "Premium features for paying customers"
@type release
@test FF-premium-feature(plan=premium) == true
@test FF-premium-feature(plan=free,beta=true) == true
@test FF-premium-feature(plan=free) == false
FF-premium-feature {
    plan == premium -> true
    segment(beta_users) -> true
    false
}

// Use @env to vary behavior per environment (dev, staging, prod).
// Set the active env via ` + "`ff serve --env prod`" + ` or in ff.toml.

@owner "platform-team"
@description "New checkout flow rollout"
@test FF-new-checkout(country=US,platform=web) == false
@test FF-new-checkout(country=DE,platform=web) == false
FF-new-checkout {
    // always on in dev and staging
    @env dev -> true
    @env staging -> true

    // gradual rollout in production
    @env prod {
        country in (US, CA, GB) and platform == web -> true
        false
    }

    // default when no env is set
    false
}

// Deterministic percentage rollout.

@description "Dark mode for 25% of users"
FF-dark-mode {
    segment(eu_region) -> true
    percentage(25%, userId) -> true
    false
}
`

const initTests = `// Tests for FF-premium-feature
FF-premium-feature(plan=premium) == TRUE
FF-premium-feature(plan=free) == FALSE
FF-premium-feature(plan=free,beta=true) == TRUE
FF-premium-feature(role=developer) == TRUE

// Tests for FF-new-checkout (without env set, defaults to false)
FF-new-checkout(country=US,platform=web) == FALSE
FF-new-checkout(country=DE,platform=web) == FALSE

// Tests for FF-dark-mode
FF-dark-mode(country=DE) == TRUE
FF-dark-mode(country=US,userId=user123) == FALSE
`

const initConfig = `# ff.toml, read by ` + "`ff serve`" + `

# Environment to evaluate @env rules against
env = "dev"

# Port for the HTTP server
port = 8080

# Path to the Flagfile
flagfile = "Flagfile"
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a Flagfile, test file, and config in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		existing := false
		for _, name := range []string{"Flagfile", "Flagfile.tests", "ff.toml"} {
			if _, err := os.Stat(name); err == nil {
				fmt.Fprintf(os.Stderr, "%s already exists in current folder\n", name)
				existing = true
			}
		}
		if existing {
			return fmt.Errorf("refusing to overwrite existing files")
		}

		if err := os.WriteFile("Flagfile", []byte(initFlagfile), 0o644); err != nil {
			return fmt.Errorf("failed to create Flagfile: %w", err)
		}
		if err := os.WriteFile("Flagfile.tests", []byte(initTests), 0o644); err != nil {
			return fmt.Errorf("failed to create Flagfile.tests: %w", err)
		}
		if err := os.WriteFile("ff.toml", []byte(initConfig), 0o644); err != nil {
			return fmt.Errorf("failed to create ff.toml: %w", err)
		}

		fmt.Println("Created Flagfile, Flagfile.tests, and ff.toml")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
