package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/traverse"
)

func litTrue(pos diag.Position) acttypes.Exp {
	return acttypes.Exp{Kind: acttypes.ExpLitBool, Pos: pos, Type: acttypes.ABoolean, BoolVal: true}
}

// andAll conjuncts a list of boolean expressions, defaulting to the literal
// `true` for an empty list (the identity of conjunction).
func andAll(pos diag.Position, exps []acttypes.Exp) acttypes.Exp {
	if len(exps) == 0 {
		return litTrue(pos)
	}
	acc := exps[0]
	for _, e := range exps[1:] {
		acc = acttypes.Exp{Kind: acttypes.ExpAnd, Pos: pos, Type: acttypes.ABoolean, A: acc, B: e}
	}
	return acc
}

func notExp(pos diag.Position, e acttypes.Exp) acttypes.Exp {
	return acttypes.Exp{Kind: acttypes.ExpNot, Pos: pos, Type: acttypes.ABoolean, A: e}
}

// declsFromIface resolves an interface's argument list into typed Decls.
func declsFromIface(iface ast.Interface) []acttypes.Decl {
	out := make([]acttypes.Decl, len(iface.Args))
	for i, a := range iface.Args {
		out[i] = acttypes.Decl{
			Name:    a.Name,
			ActType: acttypes.ActTypeOf(a.Type),
			Abi:     acttypes.SlotType{Kind: ast.SlotValue, Value: a.Type},
		}
	}
	return out
}

func calldataMap(iface ast.Interface) map[string]ast.AbiType {
	m := make(map[string]ast.AbiType, len(iface.Args))
	for _, a := range iface.Args {
		m[a.Name] = a.Type
	}
	return m
}

// checkTimedInfer checks e in a timed context without a caller-known
// expected act-type (used for `returns` expressions, whose result type
// isn't declared anywhere in the interface).
func checkTimedInfer(env *Env, e ast.Expr, t acttypes.Timing, errs *diag.Accumulator) (acttypes.Exp, bool) {
	for _, at := range []acttypes.ActType{acttypes.AInteger, acttypes.ABoolean, acttypes.AByteStr, acttypes.AContract} {
		var probe diag.Accumulator
		if result, ok := checkExpr(env, at, e, &probe); ok && !probe.HasErrors() {
			return acttypes.SetTime(result, t), true
		}
	}
	errs.AddUser(e.Pos(), "cannot infer a type for this return expression")
	return acttypes.Exp{}, false
}

// warnUnusedArgs reports interface arguments that no elaborated expression
// of the transition ever references. Skipped once errors were recorded: a
// case that failed to elaborate may be the one using the argument.
func warnUnusedArgs(iface ast.Interface, behaviours []*acttypes.Behaviour, errs *diag.Accumulator) {
	if errs.HasErrors() || len(behaviours) == 0 {
		return
	}
	used := map[string]bool{}
	for _, b := range behaviours {
		exps := append(append([]acttypes.Exp{}, b.Preconds...), b.Postconds...)
		for _, u := range traverse.Idents(b.CaseCond, exps, b.Updates, b.Return) {
			used[u.Name] = true
		}
	}
	reportUnused(iface, used, errs)
}

// warnUnusedCtorArgs is warnUnusedArgs for a constructor definition: uses
// are gathered from the preconditions, postconditions, invariants, and
// every initial/external rewrite.
func warnUnusedCtorArgs(iface ast.Interface, ctor *acttypes.Constructor, errs *diag.Accumulator) {
	if errs.HasErrors() {
		return
	}
	exps := append(append([]acttypes.Exp{}, ctor.Preconds...), ctor.Postconds...)
	for _, inv := range ctor.Invariants {
		exps = append(exps, inv.Predicate.Untimed)
	}
	updates := append(append([]acttypes.Rewrite{}, ctor.Initial...), ctor.ExternalRews...)
	used := map[string]bool{}
	for _, u := range traverse.Idents(litTrue(ctor.Pos), exps, updates, nil) {
		used[u.Name] = true
	}
	reportUnused(iface, used, errs)
}

func reportUnused(iface ast.Interface, used map[string]bool, errs *diag.Accumulator) {
	for _, a := range iface.Args {
		if !used[a.Name] {
			errs.Add(diag.Warning, a.Position, "calldata argument %q is declared but never used", a.Name)
		}
	}
}

// ensureNoStorageRead enforces "in a contract's creates block, no
// expression reads storage" by rejecting any ExpTEntry node in e.
func ensureNoStorageRead(e acttypes.Exp, errs *diag.Accumulator) {
	if e.Kind == acttypes.ExpTEntry {
		errs.AddUser(e.Pos, "illegal storage read in creates block")
		return
	}
	switch expArity(e.Kind) {
	case 1:
		ensureNoStorageRead(e.A, errs)
	case 2:
		ensureNoStorageRead(e.A, errs)
		ensureNoStorageRead(e.B, errs)
	case 3:
		ensureNoStorageRead(e.A, errs)
		ensureNoStorageRead(e.B, errs)
		ensureNoStorageRead(e.C, errs)
	}
}
