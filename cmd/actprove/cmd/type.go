package cmd

import (
	"fmt"
	"os"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/jsonout"
	"github.com/develuxes/solidity-act/internal/typecheck"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var typeCmd = &cobra.Command{
	Use:   "type [file]",
	Short: "Typecheck an Act specification and emit the typed program as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runType,
}

func init() {
	rootCmd.AddCommand(typeCmd)
}

func runType(cmd *cobra.Command, args []string) error {
	act, _, err := typecheckFile(cmd, args)
	if err != nil {
		return err
	}
	fmt.Print(jsonout.Program(act))
	return nil
}

// typecheckFile runs the front half of the pipeline: parse, store discovery,
// elaboration, claim splitting. User errors are printed with their source
// spans and stop the pipeline here — nothing type-incorrect reaches the
// query synthesizer.
func typecheckFile(cmd *cobra.Command, args []string) (*acttypes.Act, []acttypes.Claim, error) {
	prog, source, err := parseFile(args)
	if err != nil {
		return nil, nil, err
	}

	act, claims, errs := typecheck.Check(prog)
	if diags := errs.Diagnostics(); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Format(source))
			fmt.Fprintln(os.Stderr)
		}
		// Warnings surface but only errors stop the pipeline.
		if errs.HasErrors() {
			return nil, nil, fmt.Errorf("%d error(s)", len(diags))
		}
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		pretty.Fprintf(os.Stderr, "%# v\n", claims)
	}
	return act, claims, nil
}
