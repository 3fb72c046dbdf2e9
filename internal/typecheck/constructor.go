package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// checkDefinition elaborates one source-level constructor definition into a
// typed Constructor, the contract's Invariant list, and the Pass/Fail claims
// claim splitting derives for it.
func checkDefinition(def *ast.Definition, store *acttypes.Store, errs *diag.Accumulator) (*acttypes.Constructor, []acttypes.Invariant, []acttypes.Claim) {
	env := NewEnv(def.Contract, store, calldataMap(def.Iface))

	var iff []acttypes.Exp
	for _, e := range def.Iff {
		if checked, ok := checkUntimed(env, acttypes.ABoolean, e, errs); ok {
			iff = append(iff, checked)
		}
	}

	var ensures []acttypes.Exp
	for _, e := range def.Ensures {
		if checked, ok := checkTimed(env, acttypes.ABoolean, e, acttypes.Post, errs); ok {
			ensures = append(ensures, checked)
		}
	}

	var invariants []acttypes.Invariant
	for _, e := range def.Invariants {
		if checked, ok := checkUntimed(env, acttypes.ABoolean, e, errs); ok {
			invariants = append(invariants, acttypes.Invariant{
				Contract: def.Contract,
				Pos:      e.Pos(),
				Predicate: acttypes.InvariantPredicate{
					Untimed: checked,
					Pre:     acttypes.SetTime(checked, acttypes.Pre),
					Post:    acttypes.SetTime(checked, acttypes.Post),
				},
			})
		}
	}

	initial := checkCreates(env, def.Creates, errs)
	external := checkRewrites(env, def.Updates, errs)

	ctor := &acttypes.Constructor{
		Contract: def.Contract, Interface: def.Iface.Name, Args: declsFromIface(def.Iface),
		Preconds: iff, Postconds: ensures, Invariants: invariants,
		Initial: initial, ExternalRews: external, Pos: def.Position,
	}

	warnUnusedCtorArgs(def.Iface, ctor, errs)
	claims := splitConstructorClaims(ctor)
	return ctor, invariants, claims
}

func checkCreates(env *Env, creates ast.Creates, errs *diag.Accumulator) []acttypes.Rewrite {
	var out []acttypes.Rewrite
	for _, a := range creates.Assigns {
		valueActType := acttypes.ActTypeOf(a.Slot.Value)
		slot := acttypes.SlotType{Kind: a.Slot.Kind, Value: a.Slot.Value, KeyTypes: a.Slot.KeyTypes}

		if a.Slot.Kind == ast.SlotValue {
			rhs, ok := checkTimed(env, valueActType, a.Value, acttypes.Post, errs)
			if !ok {
				continue
			}
			ensureNoStorageRead(rhs, errs)
			ref := &acttypes.StorageRef{Kind: acttypes.SVar, Pos: a.Position, Contract: env.Contract, Name: a.Name}
			item := acttypes.StorageItem{ActType: valueActType, Slot: slot, Ref: ref}
			out = append(out, acttypes.Rewrite{Kind: acttypes.RewriteUpdate, Update: acttypes.StorageUpdate{Item: item, Rhs: rhs}})
			continue
		}

		for _, entry := range a.Mapping {
			if len(entry.Keys) != len(a.Slot.KeyTypes) {
				errs.AddUser(a.Position, "arity mismatch: %q takes %d index argument(s), found %d", a.Name, len(a.Slot.KeyTypes), len(entry.Keys))
				continue
			}
			idx := make([]acttypes.Exp, len(entry.Keys))
			ok := true
			for i, k := range entry.Keys {
				keyType := acttypes.ActTypeOf(a.Slot.KeyTypes[i])
				checked, good := checkTimed(env, keyType, k, acttypes.Post, errs)
				if !good {
					ok = false
					continue
				}
				ensureNoStorageRead(checked, errs)
				idx[i] = checked
			}
			rhs, good := checkTimed(env, valueActType, entry.Value, acttypes.Post, errs)
			if !ok || !good {
				continue
			}
			ensureNoStorageRead(rhs, errs)

			ref := &acttypes.StorageRef{Kind: acttypes.SMapping, Pos: a.Position, Index: idx, Parent: &acttypes.StorageRef{
				Kind: acttypes.SVar, Pos: a.Position, Contract: env.Contract, Name: a.Name,
			}}
			item := acttypes.StorageItem{ActType: valueActType, Slot: slot, Ref: ref}
			out = append(out, acttypes.Rewrite{Kind: acttypes.RewriteUpdate, Update: acttypes.StorageUpdate{Item: item, Rhs: rhs}})
		}
	}
	return out
}

func splitConstructorClaims(c *acttypes.Constructor) []acttypes.Claim {
	if len(c.Preconds) == 0 {
		return []acttypes.Claim{{
			Kind: acttypes.ClaimConstructorPass, Contract: c.Contract, Name: c.Interface,
			Precond: litTrue(c.Pos), Postconds: c.Postconds, Updates: append(c.Initial, c.ExternalRews...), Pos: c.Pos,
		}}
	}
	combined := andAll(c.Pos, c.Preconds)
	allUpdates := append(append([]acttypes.Rewrite{}, c.Initial...), c.ExternalRews...)
	return []acttypes.Claim{
		{
			Kind: acttypes.ClaimConstructorPass, Contract: c.Contract, Name: c.Interface,
			Precond: combined, Postconds: c.Postconds, Updates: allUpdates, Pos: c.Pos,
		},
		{
			Kind: acttypes.ClaimConstructorFail, Contract: c.Contract, Name: c.Interface,
			Precond: notExp(c.Pos, combined), Updates: onlyLocations(allUpdates), Pos: c.Pos,
		},
	}
}
