package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// checkTransition elaborates one source-level transition into a typed
// Behaviour per normalized case, plus the Pass/Fail claims claim splitting
// derives from each one.
func checkTransition(t *ast.Transition, store *acttypes.Store, errs *diag.Accumulator) ([]*acttypes.Behaviour, []acttypes.Claim) {
	env := NewEnv(t.Contract, store, calldataMap(t.Iface))

	iff := make([]acttypes.Exp, 0, len(t.Iff))
	for _, e := range t.Iff {
		if checked, ok := checkUntimed(env, acttypes.ABoolean, e, errs); ok {
			iff = append(iff, checked)
		}
	}

	cases := normalizeCases(t.Cases, errs)

	var behaviours []*acttypes.Behaviour
	var claims []acttypes.Claim

	for _, c := range cases {
		if c.Guard == nil {
			continue // wildcard placement error already reported
		}
		guard, ok := checkUntimed(env, acttypes.ABoolean, c.Guard, errs)
		if !ok {
			continue
		}

		var updates []acttypes.Rewrite
		var postconds []acttypes.Exp
		var ret *acttypes.Exp

		if !c.Noop {
			updates = checkRewrites(env, c.Updates, errs)
			for _, e := range c.Ensures {
				if checked, ok := checkTimed(env, acttypes.ABoolean, e, acttypes.Post, errs); ok {
					postconds = append(postconds, checked)
				}
			}
			if c.Returns != nil {
				if checked, ok := checkTimedInfer(env, c.Returns, acttypes.Post, errs); ok {
					ret = &checked
				}
			}
		}

		b := &acttypes.Behaviour{
			Name: t.Name, Contract: t.Contract, Interface: t.Iface.Name,
			Args: declsFromIface(t.Iface), Preconds: iff, CaseCond: guard,
			Postconds: postconds, Updates: updates, Return: ret, Pos: c.Position,
		}
		behaviours = append(behaviours, b)
		claims = append(claims, splitBehaviourClaims(b)...)
	}

	warnUnusedArgs(t.Iface, behaviours, errs)
	return behaviours, claims
}

// splitBehaviourClaims splits a single (already case-normalized) Behaviour:
// no iff list means one unconditional Pass claim; otherwise a Pass claim
// under G && I and a Fail claim under G && !I with no writes.
func splitBehaviourClaims(b *acttypes.Behaviour) []acttypes.Claim {
	if len(b.Preconds) == 0 {
		return []acttypes.Claim{{
			Kind: acttypes.ClaimBehaviourPass, Contract: b.Contract, Name: b.Interface,
			Precond: b.CaseCond, Postconds: b.Postconds, Updates: b.Updates, Return: b.Return, Pos: b.Pos,
		}}
	}

	combinedIff := andAll(b.Pos, b.Preconds)
	passPre := acttypes.Exp{Kind: acttypes.ExpAnd, Pos: b.Pos, Type: acttypes.ABoolean, A: b.CaseCond, B: combinedIff}
	failPre := acttypes.Exp{Kind: acttypes.ExpAnd, Pos: b.Pos, Type: acttypes.ABoolean, A: b.CaseCond, B: notExp(b.Pos, combinedIff)}

	return []acttypes.Claim{
		{
			Kind: acttypes.ClaimBehaviourPass, Contract: b.Contract, Name: b.Interface,
			Precond: passPre, Postconds: b.Postconds, Updates: b.Updates, Return: b.Return, Pos: b.Pos,
		},
		{
			Kind: acttypes.ClaimBehaviourFail, Contract: b.Contract, Name: b.Interface,
			Precond: failPre, Updates: onlyLocations(b.Updates), Pos: b.Pos,
		},
	}
}
