package cmd

import (
	"fmt"
	"os"

	"github.com/develuxes/solidity-act/internal/query"
	"github.com/develuxes/solidity-act/internal/solver"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var (
	solverName string
	smtTimeout int
)

var proveCmd = &cobra.Command{
	Use:   "prove [file]",
	Short: "Discharge an Act specification's proof obligations to an SMT solver",
	Long: `Typecheck an Act specification, synthesize one SMT query per
postcondition and invariant sub-obligation, and run them against a solver.

The exit code is 0 when every obligation holds, nonzero when any fails,
times out, or errors.

Examples:
  actprove prove token.act
  actprove prove --solver cvc4 --smttimeout 60000 token.act`,
	Args: cobra.ExactArgs(1),
	RunE: runProve,
}

func init() {
	rootCmd.AddCommand(proveCmd)

	proveCmd.Flags().StringVar(&solverName, "solver", "", "SMT solver to use (z3 or cvc4)")
	proveCmd.Flags().IntVar(&smtTimeout, "smttimeout", 0, "per-query solver timeout in milliseconds")
}

func runProve(cmd *cobra.Command, args []string) error {
	_, claims, err := typecheckFile(cmd, args)
	if err != nil {
		return err
	}

	fileCfg := loadFileConfig()
	if solverName == "" {
		solverName = fileCfg.Solver
	}
	if smtTimeout == 0 {
		smtTimeout = fileCfg.SMTTimeout
	}
	debug, _ := cmd.Flags().GetBool("debug")
	debug = debug || fileCfg.Debug

	kind, err := solver.ParseKind(solverName)
	if err != nil {
		return err
	}

	queries, err := query.Synthesize(claims)
	if err != nil {
		// Internal errors abort outright, distinct from user errors.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if debug {
		pretty.Fprintf(os.Stderr, "%# v\n", queries)
	}

	cfg := solver.Config{Solver: kind, TimeoutMS: smtTimeout, Debug: debug, DebugSink: os.Stderr}
	failed := 0
	err = solver.WithSession(cfg, func(s *solver.Session) error {
		for i := range queries {
			q := &queries[i]
			res := s.RunQuery(q)
			fmt.Printf("%s.%s: %s %s\n", q.Contract, q.Name, q.Description, res.Verdict)
			switch res.Verdict {
			case solver.Pass:
			case solver.Fail:
				failed++
				if res.Model != nil {
					fmt.Println(res.Model.Format())
				}
			default:
				failed++
				if res.Err != "" {
					fmt.Fprintln(os.Stderr, res.Err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d obligation(s) did not hold", failed)
	}
	return nil
}
