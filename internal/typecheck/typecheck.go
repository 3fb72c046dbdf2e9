package typecheck

import (
	"fmt"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/store"
)

// Check runs the full elaboration pipeline: store discovery, then per-
// contract constructor and behaviour typechecking, then claim splitting.
// It always returns a best-effort Act and Claim list, even when errs ends
// up non-empty — callers must check errs.HasErrors() before handing
// anything downstream: a type-incorrect program must never reach the
// solver.
func Check(prog *ast.Program) (*acttypes.Act, []acttypes.Claim, *diag.Accumulator) {
	errs := &diag.Accumulator{}
	st := store.Discover(prog, errs)
	checkDuplicateBehaviours(prog, errs)

	contracts := map[string]*acttypes.ContractAct{}
	order := []string{}
	get := func(name string) *acttypes.ContractAct {
		if c, ok := contracts[name]; ok {
			return c
		}
		c := &acttypes.ContractAct{Name: name}
		contracts[name] = c
		order = append(order, name)
		return c
	}

	var claims []acttypes.Claim

	for _, rb := range prog.Behaviours {
		switch n := rb.(type) {
		case *ast.Definition:
			ctor, invariants, cClaims := checkDefinition(n, st, errs)
			c := get(n.Contract)
			c.Constructor = ctor
			c.Invariants = append(c.Invariants, invariants...)
			claims = append(claims, cClaims...)
		case *ast.Transition:
			behaviours, bClaims := checkTransition(n, st, errs)
			c := get(n.Contract)
			c.Behaviours = append(c.Behaviours, behaviours...)
			claims = append(claims, bClaims...)
		}
	}

	for _, cname := range order {
		c := contracts[cname]
		claims = append(claims, invariantClaims(c)...)
	}

	act := &acttypes.Act{Store: st}
	for _, cname := range order {
		act.Contract = append(act.Contract, *contracts[cname])
	}

	return act, claims, errs
}

// invariantClaims builds the constructor sub-query + one behaviour
// sub-query per behaviour for every invariant declared on a contract:
// unsat across all of them means the invariant holds inductively.
func invariantClaims(c *acttypes.ContractAct) []acttypes.Claim {
	var claims []acttypes.Claim
	for _, inv := range c.Invariants {
		inv := inv
		if c.Constructor != nil {
			claims = append(claims, acttypes.Claim{
				Kind: acttypes.ClaimInvariant, Contract: c.Name, Name: c.Constructor.Interface,
				Invariant: &inv, InitialCtor: true, Ctor: c.Constructor, Pos: inv.Pos,
			})
		}
		for _, b := range c.Behaviours {
			claims = append(claims, acttypes.Claim{
				Kind: acttypes.ClaimInvariant, Contract: c.Name, Name: b.Interface,
				Invariant: &inv, InitialCtor: false, Behaviour: b, Pos: inv.Pos,
			})
		}
	}
	return claims
}

// checkDuplicateBehaviours enforces that no two behaviours within a contract
// share a name-interface pair. The interface "pair" is its name plus
// its argument count, which is enough to disambiguate any Act source that
// doesn't overload by argument type alone.
func checkDuplicateBehaviours(prog *ast.Program, errs *diag.Accumulator) {
	seen := map[string]bool{}
	for _, rb := range prog.Behaviours {
		t, ok := rb.(*ast.Transition)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%s/%s/%d", t.Contract, t.Iface.Name, len(t.Iface.Args))
		if seen[key] {
			errs.AddUser(t.Position, "duplicate definition: behaviour %q of %q already declared with this interface", t.Name, t.Contract)
			continue
		}
		seen[key] = true
	}
}
