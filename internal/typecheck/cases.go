package typecheck

import (
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// normalizeCases implements the case-normalization rule: a
// wildcard may appear only as the final case; when it does, its guard
// becomes the negation of the disjunction of every preceding guard. A
// "direct" transition with no case section at all arrives here as a single
// case with a nil guard, and normalizes to an unconditional `true` guard.
func normalizeCases(cases []ast.Case, errs *diag.Accumulator) []ast.Case {
	out := make([]ast.Case, len(cases))
	copy(out, cases)

	for i := range out {
		if out[i].Guard != nil {
			continue
		}
		if i != len(out)-1 {
			errs.AddUser(out[i].Position, "illegal wildcard placement: a wildcard case may only appear last")
			continue
		}
		out[i].Guard = negationOfPrior(out[:i])
	}
	return out
}

// negationOfPrior builds ¬(g₁ ∨ g₂ ∨ … ∨ gₙ) for the guards of prior. An
// empty prior list yields the literal `true` (¬false).
func negationOfPrior(prior []ast.Case) ast.Expr {
	if len(prior) == 0 {
		return &ast.BoolLit{Value: true}
	}
	disj := prior[0].Guard
	for _, c := range prior[1:] {
		disj = &ast.BinaryExpr{Position: disj.Pos(), Op: "or", Left: disj, Right: c.Guard}
	}
	return &ast.UnaryExpr{Position: disj.Pos(), Op: "not", Operand: disj}
}
