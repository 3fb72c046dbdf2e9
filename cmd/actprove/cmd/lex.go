package cmd

import (
	"fmt"

	"github.com/develuxes/solidity-act/internal/lexer"
	"github.com/develuxes/solidity-act/internal/token"
	"github.com/spf13/cobra"
)

var showPos bool

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize an Act specification",
	Long: `Tokenize (lex) an Act specification and print the resulting tokens.

This command is useful for debugging the lexer and understanding how Act
source code is tokenized.

Examples:
  # Tokenize a spec
  actprove lex token.act

  # Show token positions (line:column)
  actprove lex --show-pos token.act`,
	Args: cobra.ExactArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
}

func runLex(cmd *cobra.Command, args []string) error {
	source, _, err := readSource(args)
	if err != nil {
		return err
	}

	l := lexer.New(source)
	for {
		tok := l.NextToken()
		if showPos {
			fmt.Printf("%-8s %-12s %q\n", tok.Pos, tok.Type, tok.Literal)
		} else {
			fmt.Printf("%-12s %q\n", tok.Type, tok.Literal)
		}
		if tok.Type == token.EOF {
			return nil
		}
	}
}
