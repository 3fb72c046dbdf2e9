package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "actprove",
	Short: "Act specification verifier",
	Long: `actprove type-checks Act smart-contract specifications and discharges
their proof obligations to an external SMT solver.

An Act specification describes a contract's storage layout, constructor,
behaviours with guarded cases and state updates, postconditions, and
contract-level invariants. actprove elaborates it into a typed, timing-
annotated program and, for each postcondition and invariant, synthesizes an
SMT-LIB2 query whose unsatisfiability implies the property.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && err.Error() != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	return err
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "dump intermediate structures and the solver transcript")
}

// fileConfig is the optional .actprove.yaml next to the working directory:
// defaults for the solver choice, timeout, and debug flag. Command-line
// flags always win over file config.
type fileConfig struct {
	Solver     string `yaml:"solver"`
	SMTTimeout int    `yaml:"smttimeout"`
	Debug      bool   `yaml:"debug"`
}

func loadFileConfig() fileConfig {
	cfg := fileConfig{Solver: "z3", SMTTimeout: 20000}
	data, err := os.ReadFile(".actprove.yaml")
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ignoring malformed .actprove.yaml: %s\n", err)
		return fileConfig{Solver: "z3", SMTTimeout: 20000}
	}
	if cfg.Solver == "" {
		cfg.Solver = "z3"
	}
	if cfg.SMTTimeout == 0 {
		cfg.SMTTimeout = 20000
	}
	return cfg
}

func readSource(args []string) (string, string, error) {
	if len(args) != 1 {
		return "", "", fmt.Errorf("expected exactly one .act file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), args[0], nil
}
