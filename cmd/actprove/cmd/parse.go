package cmd

import (
	"fmt"
	"os"

	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/lexer"
	"github.com/develuxes/solidity-act/internal/parser"
	"github.com/develuxes/solidity-act/internal/printer"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"
)

var parseDumpAST bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an Act specification and pretty-print it",
	Long: `Parse an Act specification and print it back in canonical form.

Use --dump-ast to show the raw untyped AST structure instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVar(&parseDumpAST, "dump-ast", false, "dump the untyped AST structure")
}

func runParse(cmd *cobra.Command, args []string) error {
	prog, _, err := parseFile(args)
	if err != nil {
		return err
	}
	if parseDumpAST {
		pretty.Fprintf(os.Stdout, "%# v\n", prog)
		return nil
	}
	fmt.Print(printer.Program(prog))
	return nil
}

// parseFile lexes and parses one source file, printing every accumulated
// syntax diagnostic against the source on failure.
func parseFile(args []string) (*ast.Program, string, error) {
	source, _, err := readSource(args)
	if err != nil {
		return nil, "", err
	}
	p := parser.New(lexer.New(source))
	prog := p.ParseProgram()
	if diags := p.Errors(); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Format(source))
			fmt.Fprintln(os.Stderr)
		}
		return nil, source, fmt.Errorf("%d syntax error(s)", len(diags))
	}
	return prog, source, nil
}
