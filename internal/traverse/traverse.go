// Package traverse provides pure, order-preserving folds over typed
// expressions: the storage locations a query must declare as SMT constants,
// the EthEnv identifiers it must bind, the calldata identifiers referenced
// (with source positions, for unused-argument diagnostics), and the
// contracts instantiated via Create(...) (for constructor ordering). Every
// fold here is idempotent and side-effect free — callers run them as many
// times as convenient without re-walking concerns.
package traverse

import (
	"fmt"
	"strings"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/diag"
)

func arity(k acttypes.ExpKind) int {
	switch k {
	case acttypes.ExpNot, acttypes.ExpNeg:
		return 1
	case acttypes.ExpITE:
		return 3
	case acttypes.ExpLitInt, acttypes.ExpLitBool, acttypes.ExpVar, acttypes.ExpEnv, acttypes.ExpTEntry, acttypes.ExpCreate:
		return 0
	default:
		return 2
	}
}

// Walk calls visit on e and, recursively, every operand it carries, in
// pre-order. Create(...) arguments and the index expressions of a storage
// read's reference are walked too — a calldata or environment identifier
// occurring only inside `balanceOf[to]` still has to reach every fold.
func Walk(e acttypes.Exp, visit func(acttypes.Exp)) {
	visit(e)
	switch arity(e.Kind) {
	case 1:
		Walk(e.A, visit)
	case 2:
		Walk(e.A, visit)
		Walk(e.B, visit)
	case 3:
		Walk(e.A, visit)
		Walk(e.B, visit)
		Walk(e.C, visit)
	}
	if e.Kind == acttypes.ExpTEntry {
		walkStorageRef(e.Item.Ref, visit)
	}
	if e.Create != nil {
		for _, a := range e.Create.Args {
			Walk(a, visit)
		}
	}
}

// WalkAll is Walk over a whole obligation: precondition, postconditions and
// every rewrite's right-hand side (or held-fixed location).
func WalkAll(precond acttypes.Exp, postconds []acttypes.Exp, updates []acttypes.Rewrite, ret *acttypes.Exp, visit func(acttypes.Exp)) {
	Walk(precond, visit)
	for _, e := range postconds {
		Walk(e, visit)
	}
	for _, u := range updates {
		switch u.Kind {
		case acttypes.RewriteUpdate:
			walkStorageRef(u.Update.Item.Ref, visit)
			Walk(u.Update.Rhs, visit)
		case acttypes.RewriteConstant:
			walkStorageRef(u.Location.Item.Ref, visit)
		}
	}
	if ret != nil {
		Walk(*ret, visit)
	}
}

func walkStorageRef(r *acttypes.StorageRef, visit func(acttypes.Exp)) {
	for r != nil {
		for _, idx := range r.Index {
			Walk(idx, visit)
		}
		r = r.Parent
	}
}

// Key builds a structural, order-stable fingerprint for a StorageRef. The
// query synthesizer compares invariant-referenced locations against a
// behaviour's update set with it.
func Key(r *acttypes.StorageRef) string { return refKey(r) }

// refKey builds a structural, order-stable fingerprint for a StorageRef so
// Locations can de-duplicate `balanceOf[CALLER]` seen via two different
// source occurrences into one SMT constant.
func refKey(r *acttypes.StorageRef) string {
	var b strings.Builder
	var walk func(r *acttypes.StorageRef)
	walk = func(r *acttypes.StorageRef) {
		switch r.Kind {
		case acttypes.SVar:
			fmt.Fprintf(&b, "%s.%s", r.Contract, r.Name)
		case acttypes.SMapping:
			walk(r.Parent)
			b.WriteByte('[')
			for i, idx := range r.Index {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(exprKey(idx))
			}
			b.WriteByte(']')
		case acttypes.SField:
			walk(r.Parent)
			fmt.Fprintf(&b, ".%s", r.Name)
		}
	}
	walk(r)
	return b.String()
}

// exprKey is a cheap structural fingerprint of an expression, good enough to
// distinguish distinct mapping keys without claiming semantic equality (e.g.
// `1+1` and `2` fingerprint differently — that's fine, they still each get
// their own, merely redundant, SMT constant).
func exprKey(e acttypes.Exp) string {
	switch e.Kind {
	case acttypes.ExpLitInt:
		return "#" + e.IntVal
	case acttypes.ExpLitBool:
		return fmt.Sprintf("#%v", e.BoolVal)
	case acttypes.ExpVar, acttypes.ExpEnv:
		return "$" + e.Name
	case acttypes.ExpTEntry:
		return "@" + refKey(e.Item.Ref) + "/" + e.Timing.String()
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "(%d", e.Kind)
		switch arity(e.Kind) {
		case 1:
			fmt.Fprintf(&b, " %s", exprKey(e.A))
		case 2:
			fmt.Fprintf(&b, " %s %s", exprKey(e.A), exprKey(e.B))
		case 3:
			fmt.Fprintf(&b, " %s %s %s", exprKey(e.A), exprKey(e.B), exprKey(e.C))
		}
		b.WriteByte(')')
		return b.String()
	}
}

// Location pairs a de-duplicated storage reference with the (Pre, Post)
// timings a query actually needs constants for.
type Location struct {
	Item acttypes.StorageItem
	Pre  bool
	Post bool
}

// Locations collects every distinct storage location read or written across
// an obligation, recording which of Pre/Post timing each is needed at. This
// is what the query synthesizer uses to emit one pair of
// `<contract>_<slot>_Pre`/`_Post` symbolic constants per location, instead of
// one per syntactic occurrence.
func Locations(precond acttypes.Exp, postconds []acttypes.Exp, updates []acttypes.Rewrite, ret *acttypes.Exp) []Location {
	byKey := map[string]*Location{}
	var keys []string

	note := func(item acttypes.StorageItem, timing acttypes.Timing) {
		k := refKey(item.Ref)
		loc, ok := byKey[k]
		if !ok {
			loc = &Location{Item: item}
			byKey[k] = loc
			keys = append(keys, k)
		}
		switch timing {
		case acttypes.Pre:
			loc.Pre = true
		case acttypes.Post:
			loc.Post = true
		default:
			loc.Pre = true
			loc.Post = true
		}
	}

	WalkAll(precond, postconds, updates, ret, func(e acttypes.Exp) {
		if e.Kind == acttypes.ExpTEntry {
			note(e.Item, e.Timing)
		}
	})
	for _, u := range updates {
		switch u.Kind {
		case acttypes.RewriteUpdate:
			note(u.Update.Item, acttypes.Post)
		case acttypes.RewriteConstant:
			note(u.Location.Item, acttypes.Pre)
			note(u.Location.Item, acttypes.Post)
		}
	}

	out := make([]Location, len(keys))
	for i, k := range keys {
		out[i] = *byKey[k]
	}
	return out
}

// EnvIdents collects the distinct EthEnv identifiers (CALLER, CALLVALUE, ...)
// referenced across an obligation, in first-occurrence order.
func EnvIdents(precond acttypes.Exp, postconds []acttypes.Exp, updates []acttypes.Rewrite, ret *acttypes.Exp) []string {
	seen := map[string]bool{}
	var out []string
	WalkAll(precond, postconds, updates, ret, func(e acttypes.Exp) {
		if e.Kind == acttypes.ExpEnv && !seen[e.Name] {
			seen[e.Name] = true
			out = append(out, e.Name)
		}
	})
	return out
}

// IdentUse is a single use of a calldata variable, keeping the source
// position alongside the name.
type IdentUse struct {
	Name string
	Pos  diag.Position
}

// Idents collects every calldata-variable use across an obligation. The
// typechecker folds these into its "argument declared but never used"
// warning.
func Idents(precond acttypes.Exp, postconds []acttypes.Exp, updates []acttypes.Rewrite, ret *acttypes.Exp) []IdentUse {
	var out []IdentUse
	WalkAll(precond, postconds, updates, ret, func(e acttypes.Exp) {
		if e.Kind == acttypes.ExpVar {
			out = append(out, IdentUse{Name: e.Name, Pos: e.Pos})
		}
	})
	return out
}

// CreatedContracts collects the distinct contract names instantiated via
// Create(...) across an obligation, in first-occurrence order.
func CreatedContracts(precond acttypes.Exp, postconds []acttypes.Exp, updates []acttypes.Rewrite, ret *acttypes.Exp) []string {
	seen := map[string]bool{}
	var out []string
	WalkAll(precond, postconds, updates, ret, func(e acttypes.Exp) {
		if e.Kind == acttypes.ExpCreate && e.Create != nil && !seen[e.Create.Contract] {
			seen[e.Create.Contract] = true
			out = append(out, e.Create.Contract)
		}
	})
	return out
}
