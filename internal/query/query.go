// Package query turns typed claims into SMT-LIB2 proof obligations:
// one query per postcondition, and per invariant one constructor sub-query
// plus one behaviour sub-query per behaviour. Each query's body is a list of
// declaration and assertion lines; the solver driver appends (check-sat) and,
// on sat, walks the attached model plan to extract a counter-model.
package query

import (
	"fmt"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/eval"
	"github.com/develuxes/solidity-act/internal/token"
	"github.com/develuxes/solidity-act/internal/traverse"
)

// Query is one complete SMT obligation. Unsatisfiability of Lines implies
// the property named by Description.
type Query struct {
	Contract    string
	Name        string // interface name of the constructor/behaviour
	Description string
	Lines       []string
	Model       ModelPlan
	Pos         diag.Position
}

// ModelEntry names one value the driver should read back from a sat model:
// the label shown to the user, the term to wrap in (get-value ...), and the
// act-type to reinterpret the solver's answer at.
type ModelEntry struct {
	Display string
	SMT     string
	Type    acttypes.ActType
}

// ModelPlan groups the model entries by the sections of the fixed
// counterexample format: calldata, environment, prestate, poststate.
type ModelPlan struct {
	Calldata    []ModelEntry
	Environment []ModelEntry
	Prestate    []ModelEntry
	Poststate   []ModelEntry
}

// Synthesize builds every query the claim list gives rise to. It fails with
// an *InternalError if an unencodable construct survives elaboration; user
// errors never reach this point.
func Synthesize(claims []acttypes.Claim) ([]Query, error) {
	var out []Query
	for _, c := range claims {
		switch c.Kind {
		case acttypes.ClaimBehaviourPass, acttypes.ClaimConstructorPass:
			qs, err := postconditionQueries(c)
			if err != nil {
				return nil, err
			}
			out = append(out, qs...)
		case acttypes.ClaimInvariant:
			q, err := invariantQuery(c)
			if err != nil {
				return nil, err
			}
			if q != nil {
				out = append(out, *q)
			}
		}
		// Fail claims carry no postconditions: nothing to discharge.
	}
	return out, nil
}

// postconditionQueries emits one query per postcondition of a Pass claim:
// assert the precondition and the state updates, then the negation of the
// postcondition.
func postconditionQueries(c acttypes.Claim) ([]Query, error) {
	pre := eval.Fold(acttypes.SetTime(c.Precond, acttypes.Pre))
	updates := timedRewrites(c.Updates)

	var out []Query
	for i, post := range c.Postconds {
		neg := eval.Fold(post)
		q, err := assemble(obligation{
			contract: c.Contract, name: c.Name,
			description: fmt.Sprintf("postcondition #%d", i+1),
			asserts:     []acttypes.Exp{pre},
			updates:     updates,
			negated:     neg,
			pos:         post.Pos,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, nil
}

// invariantQuery emits the sub-query an invariant claim denotes: the
// constructor establishes the invariant, or a behaviour preserves it.
func invariantQuery(c acttypes.Claim) (*Query, error) {
	inv := c.Invariant
	if c.InitialCtor {
		if c.Ctor == nil {
			return nil, nil
		}
		var asserts []acttypes.Exp
		for _, p := range c.Ctor.Preconds {
			asserts = append(asserts, eval.Fold(acttypes.SetTime(p, acttypes.Pre)))
		}
		for _, p := range inv.Preconds {
			asserts = append(asserts, eval.Fold(acttypes.SetTime(p, acttypes.Pre)))
		}
		updates := timedRewrites(append(append([]acttypes.Rewrite{}, c.Ctor.Initial...), c.Ctor.ExternalRews...))
		return assemble(obligation{
			contract: c.Contract, name: c.Name,
			description: "invariant (constructor)",
			asserts:     asserts,
			updates:     updates,
			negated:     eval.Fold(inv.Predicate.Post),
			pos:         inv.Pos,
		})
	}

	b := c.Behaviour
	if b == nil {
		return nil, nil
	}
	foldedPost := eval.Fold(inv.Predicate.Post)
	asserts := []acttypes.Exp{eval.Fold(inv.Predicate.Pre)}
	for _, p := range b.Preconds {
		asserts = append(asserts, eval.Fold(acttypes.SetTime(p, acttypes.Pre)))
	}
	asserts = append(asserts, eval.Fold(acttypes.SetTime(b.CaseCond, acttypes.Pre)))

	updates := timedRewrites(b.Updates)

	// Locations the invariant reads but the behaviour never writes are held
	// fixed with Constant rewrites, so the post-state form ranges over the
	// same values as the pre-state form.
	updated := map[string]bool{}
	for _, u := range updates {
		if u.Kind == acttypes.RewriteUpdate {
			updated[traverse.Key(u.Update.Item.Ref)] = true
		} else {
			updated[traverse.Key(u.Location.Item.Ref)] = true
		}
	}
	for _, loc := range traverse.Locations(foldedPost, nil, nil, nil) {
		if !updated[traverse.Key(loc.Item.Ref)] {
			updates = append(updates, acttypes.Rewrite{
				Kind:     acttypes.RewriteConstant,
				Location: acttypes.StorageLocation{Item: loc.Item},
			})
		}
	}

	return assemble(obligation{
		contract: c.Contract, name: c.Name,
		description: fmt.Sprintf("invariant (behaviour %s)", b.Name),
		asserts:     asserts,
		updates:     updates,
		negated:     foldedPost,
		pos:         inv.Pos,
	})
}

// timedRewrites prepares a rewrite list for emission: mapping index
// expressions (checked in an untimed context) get Pre timing, and every
// right-hand side is constant-folded so exponent chains are already expanded.
func timedRewrites(rews []acttypes.Rewrite) []acttypes.Rewrite {
	out := make([]acttypes.Rewrite, len(rews))
	for i, r := range rews {
		switch r.Kind {
		case acttypes.RewriteUpdate:
			item := timedItem(r.Update.Item)
			out[i] = acttypes.Rewrite{Kind: acttypes.RewriteUpdate, Update: acttypes.StorageUpdate{
				Item: item,
				Rhs:  eval.Fold(r.Update.Rhs),
			}}
		case acttypes.RewriteConstant:
			out[i] = acttypes.Rewrite{Kind: acttypes.RewriteConstant, Location: acttypes.StorageLocation{
				Item: timedItem(r.Location.Item),
			}}
		}
	}
	return out
}

func timedItem(item acttypes.StorageItem) acttypes.StorageItem {
	item.Ref = timedRef(item.Ref)
	return item
}

func timedRef(r *acttypes.StorageRef) *acttypes.StorageRef {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Parent = timedRef(r.Parent)
	if len(r.Index) > 0 {
		cp.Index = make([]acttypes.Exp, len(r.Index))
		for i, idx := range r.Index {
			cp.Index[i] = eval.Fold(acttypes.SetTime(idx, acttypes.Pre))
		}
	}
	return &cp
}

// obligation is the normal form every query shape reduces to: boolean
// assumptions, state updates, and one negated goal.
type obligation struct {
	contract, name, description string
	asserts                     []acttypes.Exp
	updates                     []acttypes.Rewrite
	negated                     acttypes.Exp
	pos                         diag.Position
}

// assemble renders an obligation into its declaration and assertion lines
// and derives the model-extraction plan.
func assemble(ob obligation) (*Query, error) {
	em := &emitter{iface: ob.name}

	locs := traverse.Locations(ob.negated, ob.asserts, ob.updates, nil)

	q := &Query{Contract: ob.contract, Name: ob.name, Description: ob.description, Pos: ob.pos}

	// Storage declarations: one constant per slot and timing, merged across
	// every location that selects into it.
	type slotDecl struct {
		contract, slot string
		typ            acttypes.SlotType
		pre, post      bool
	}
	declOrder := []string{}
	decls := map[string]*slotDecl{}
	for _, loc := range locs {
		key := loc.Item.Ref.RootContract() + "." + loc.Item.Ref.RootName()
		d, ok := decls[key]
		if !ok {
			d = &slotDecl{contract: loc.Item.Ref.RootContract(), slot: loc.Item.Ref.RootName(), typ: loc.Item.Slot}
			decls[key] = d
			declOrder = append(declOrder, key)
		}
		d.pre = d.pre || loc.Pre
		d.post = d.post || loc.Post
	}

	q.Lines = append(q.Lines, "; storage")
	for _, key := range declOrder {
		d := decls[key]
		sort := em.slotSort(d.typ, ob.pos)
		if d.pre {
			q.Lines = append(q.Lines, fmt.Sprintf("(declare-const %s %s)", baseName(d.contract, d.slot, acttypes.Pre), sort))
		}
		if d.post {
			q.Lines = append(q.Lines, fmt.Sprintf("(declare-const %s %s)", baseName(d.contract, d.slot, acttypes.Post), sort))
		}
	}

	// Calldata declarations, in first-reference order.
	q.Lines = append(q.Lines, "; calldata")
	calldataOrder := []string{}
	calldataType := map[string]acttypes.ActType{}
	traverse.WalkAll(ob.negated, ob.asserts, ob.updates, nil, func(e acttypes.Exp) {
		if e.Kind == acttypes.ExpVar {
			if _, ok := calldataType[e.Name]; !ok {
				calldataType[e.Name] = e.Type
				calldataOrder = append(calldataOrder, e.Name)
			}
		}
	})
	for _, name := range calldataOrder {
		t := calldataType[name]
		q.Lines = append(q.Lines, fmt.Sprintf("(declare-const %s_%s %s)", ob.name, name, em.sortOf(t, ob.pos)))
		q.Model.Calldata = append(q.Model.Calldata, ModelEntry{Display: name, SMT: ob.name + "_" + name, Type: t})
	}

	// Environment declarations.
	q.Lines = append(q.Lines, "; environment")
	for _, name := range traverse.EnvIdents(ob.negated, ob.asserts, ob.updates, nil) {
		info := token.EnvIdents[name]
		t := acttypes.AInteger
		if info.IsBytes {
			t = acttypes.AByteStr
		}
		q.Lines = append(q.Lines, fmt.Sprintf("(declare-const %s %s)", info.SMTName, em.sortOf(t, ob.pos)))
		q.Model.Environment = append(q.Model.Environment, ModelEntry{Display: name, SMT: info.SMTName, Type: t})
	}

	q.Lines = append(q.Lines, "; assertions")
	for _, a := range ob.asserts {
		q.Lines = append(q.Lines, fmt.Sprintf("(assert %s)", em.exp(a)))
	}
	for _, u := range ob.updates {
		switch u.Kind {
		case acttypes.RewriteUpdate:
			lhs := em.ref(u.Update.Item.Ref, acttypes.Post)
			q.Lines = append(q.Lines, fmt.Sprintf("(assert (= %s %s))", lhs, em.exp(u.Update.Rhs)))
		case acttypes.RewriteConstant:
			pre := em.ref(u.Location.Item.Ref, acttypes.Pre)
			post := em.ref(u.Location.Item.Ref, acttypes.Post)
			q.Lines = append(q.Lines, fmt.Sprintf("(assert (= %s %s))", pre, post))
		}
	}
	q.Lines = append(q.Lines, fmt.Sprintf("(assert (not %s))", em.exp(ob.negated)))

	// Model plan for storage: one entry per distinct location and timing.
	for _, loc := range locs {
		display := loc.Item.Ref.RootContract() + "." + displayRef(loc.Item.Ref)
		if loc.Pre {
			q.Model.Prestate = append(q.Model.Prestate, ModelEntry{
				Display: display, SMT: em.ref(loc.Item.Ref, acttypes.Pre), Type: loc.Item.ActType,
			})
		}
		if loc.Post {
			q.Model.Poststate = append(q.Model.Poststate, ModelEntry{
				Display: display, SMT: em.ref(loc.Item.Ref, acttypes.Post), Type: loc.Item.ActType,
			})
		}
	}

	if em.err != nil {
		return nil, em.err
	}
	return q, nil
}
