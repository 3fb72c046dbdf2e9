package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// resolveStorageItem resolves a bare storage-update location (the left-hand
// side of a `storage` block line): it must name a slot of the current
// contract, never a calldata argument, and may not carry a pre()/post()
// marker — the location always denotes the slot being written to.
func resolveStorageItem(env *Env, n *ast.EntryExpr, errs *diag.Accumulator) (acttypes.StorageItem, bool) {
	if n.Timing != "" {
		errs.AddUser(n.Position, "storage update location %q cannot carry a timing annotation", n.Name)
		return acttypes.StorageItem{}, false
	}
	res := env.resolve(n.Name)
	switch res.kind {
	case resUnknown:
		errs.AddUser(n.Position, "unknown name %q", n.Name)
		return acttypes.StorageItem{}, false
	case resAmbiguous:
		errs.AddUser(n.Position, "ambiguous name %q: matches both a storage slot and a calldata argument", n.Name)
		return acttypes.StorageItem{}, false
	case resCalldata:
		errs.AddUser(n.Position, "%q is a calldata argument, not a storage slot", n.Name)
		return acttypes.StorageItem{}, false
	}

	slot := res.slot
	if len(n.Args) != slot.Arity() {
		errs.AddUser(n.Position, "arity mismatch: %q takes %d index argument(s), found %d", n.Name, slot.Arity(), len(n.Args))
		return acttypes.StorageItem{}, false
	}

	idxExps := make([]acttypes.Exp, len(n.Args))
	ok := true
	for i, argExpr := range n.Args {
		keyType := acttypes.ActTypeOf(slot.KeyTypes[i])
		e, good := checkExpr(env, keyType, argExpr, errs)
		if !good {
			ok = false
			continue
		}
		idxExps[i] = e
	}
	if !ok {
		return acttypes.StorageItem{}, false
	}

	ref := &acttypes.StorageRef{Kind: acttypes.SVar, Pos: n.Position, Contract: env.Contract, Name: n.Name}
	if slot.Arity() > 0 {
		ref = &acttypes.StorageRef{Kind: acttypes.SMapping, Pos: n.Position, Index: idxExps, Parent: &acttypes.StorageRef{
			Kind: acttypes.SVar, Pos: n.Position, Contract: env.Contract, Name: n.Name,
		}}
	}
	return acttypes.StorageItem{ActType: acttypes.ActTypeOf(slot.Value), Slot: slot, Ref: ref}, true
}

// checkRewrites type-checks a `storage` block's lines into the typed
// Rewrite list: a bare location (no `=>`) becomes Constant; a `loc => rhs`
// line becomes Update, with rhs checked at the location's act-type in a
// timed (Pre-defaulting) context.
func checkRewrites(env *Env, ups []ast.StorageUpdate, errs *diag.Accumulator) []acttypes.Rewrite {
	out := make([]acttypes.Rewrite, 0, len(ups))
	for _, u := range ups {
		item, ok := resolveStorageItem(env, u.Loc, errs)
		if !ok {
			continue
		}
		if u.Rhs == nil {
			out = append(out, acttypes.Rewrite{Kind: acttypes.RewriteConstant, Location: acttypes.StorageLocation{Item: item}})
			continue
		}
		rhs, ok := checkTimed(env, item.ActType, u.Rhs, acttypes.Pre, errs)
		if !ok {
			continue
		}
		out = append(out, acttypes.Rewrite{Kind: acttypes.RewriteUpdate, Update: acttypes.StorageUpdate{Item: item, Rhs: rhs}})
	}
	return out
}

// onlyLocations converts a Rewrite list into its Constant-location
// projection, discarding any rhs. A Fail claim performs no writes, but the
// locations its pass twin would have written stay constrained to pre == post.
func onlyLocations(rewrites []acttypes.Rewrite) []acttypes.Rewrite {
	out := make([]acttypes.Rewrite, len(rewrites))
	for i, r := range rewrites {
		switch r.Kind {
		case acttypes.RewriteConstant:
			out[i] = r
		case acttypes.RewriteUpdate:
			out[i] = acttypes.Rewrite{Kind: acttypes.RewriteConstant, Location: acttypes.StorageLocation{Item: r.Update.Item}}
		}
	}
	return out
}
