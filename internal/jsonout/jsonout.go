// Package jsonout serialises a typed Act program as the JSON tree the `type`
// command prints: a Program object carrying the store schema and, per
// contract, its constructor and behaviors. Operators serialise as
// {symbol, arity, args}; storage references as {symbol: "lookup"|"select"}.
package jsonout

import (
	"sort"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Program renders the whole typed Act as pretty-printed JSON.
func Program(act *acttypes.Act) string {
	doc, _ := sjson.Set("", "kind", "Program")
	doc, _ = sjson.SetRaw(doc, "store", storeJSON(act.Store))

	contracts := "[]"
	for _, c := range act.Contract {
		contracts, _ = sjson.SetRaw(contracts, "-1", contractJSON(c))
	}
	doc, _ = sjson.SetRaw(doc, "contracts", contracts)

	return string(pretty.Pretty([]byte(doc)))
}

func storeJSON(s *acttypes.Store) string {
	doc := "{}"
	names := make([]string, 0, len(s.Contracts))
	for name := range s.Contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, cname := range names {
		slots := s.Contracts[cname]
		slotNames := make([]string, 0, len(slots))
		for n := range slots {
			slotNames = append(slotNames, n)
		}
		sort.Strings(slotNames)
		for _, sname := range slotNames {
			doc, _ = sjson.SetRaw(doc, cname+"."+sname, slotTypeJSON(slots[sname]))
		}
	}
	return doc
}

func slotTypeJSON(t acttypes.SlotType) string {
	if t.Kind == ast.SlotValue {
		out, _ := sjson.Set("", "type", t.Value.String())
		return out
	}
	out := "{}"
	keys := "[]"
	for _, k := range t.KeyTypes {
		keys, _ = sjson.Set(keys, "-1", k.String())
	}
	out, _ = sjson.SetRaw(out, "mapping.keys", keys)
	out, _ = sjson.Set(out, "mapping.value", t.Value.String())
	return out
}

func contractJSON(c acttypes.ContractAct) string {
	doc, _ := sjson.Set("", "name", c.Name)
	if c.Constructor != nil {
		doc, _ = sjson.SetRaw(doc, "constructor", constructorJSON(c.Constructor))
	}
	behaviors := "[]"
	for _, b := range c.Behaviours {
		behaviors, _ = sjson.SetRaw(behaviors, "-1", behaviourJSON(b))
	}
	doc, _ = sjson.SetRaw(doc, "behaviors", behaviors)
	return doc
}

func constructorJSON(ctor *acttypes.Constructor) string {
	doc, _ := sjson.Set("", "interface", ctor.Interface)
	doc, _ = sjson.SetRaw(doc, "args", declsJSON(ctor.Args))
	doc, _ = sjson.SetRaw(doc, "iff", expListJSON(ctor.Preconds))
	doc, _ = sjson.SetRaw(doc, "ensures", expListJSON(ctor.Postconds))

	invariants := "[]"
	for _, inv := range ctor.Invariants {
		invariants, _ = sjson.SetRaw(invariants, "-1", expJSON(inv.Predicate.Untimed))
	}
	doc, _ = sjson.SetRaw(doc, "invariants", invariants)
	doc, _ = sjson.SetRaw(doc, "initial", rewritesJSON(ctor.Initial))
	if len(ctor.ExternalRews) > 0 {
		doc, _ = sjson.SetRaw(doc, "external", rewritesJSON(ctor.ExternalRews))
	}
	return doc
}

func behaviourJSON(b *acttypes.Behaviour) string {
	doc, _ := sjson.Set("", "name", b.Name)
	doc, _ = sjson.Set(doc, "interface", b.Interface)
	doc, _ = sjson.SetRaw(doc, "args", declsJSON(b.Args))
	doc, _ = sjson.SetRaw(doc, "iff", expListJSON(b.Preconds))
	doc, _ = sjson.SetRaw(doc, "case", expJSON(b.CaseCond))
	doc, _ = sjson.SetRaw(doc, "ensures", expListJSON(b.Postconds))
	doc, _ = sjson.SetRaw(doc, "updates", rewritesJSON(b.Updates))
	if b.Return != nil {
		doc, _ = sjson.SetRaw(doc, "returns", expJSON(*b.Return))
	}
	return doc
}

func declsJSON(decls []acttypes.Decl) string {
	out := "[]"
	for _, d := range decls {
		one, _ := sjson.Set("", "name", d.Name)
		one, _ = sjson.Set(one, "type", d.Abi.Value.String())
		one, _ = sjson.Set(one, "sort", sortTag(d.ActType))
		out, _ = sjson.SetRaw(out, "-1", one)
	}
	return out
}

func expListJSON(exps []acttypes.Exp) string {
	out := "[]"
	for _, e := range exps {
		out, _ = sjson.SetRaw(out, "-1", expJSON(e))
	}
	return out
}

func rewritesJSON(rews []acttypes.Rewrite) string {
	out := "[]"
	for _, r := range rews {
		var one string
		switch r.Kind {
		case acttypes.RewriteConstant:
			one, _ = sjson.SetRaw("", "location", refJSON(r.Location.Item, acttypes.Neither))
			one, _ = sjson.Set(one, "constant", true)
		case acttypes.RewriteUpdate:
			one, _ = sjson.SetRaw("", "location", refJSON(r.Update.Item, acttypes.Neither))
			one, _ = sjson.SetRaw(one, "value", expJSON(r.Update.Rhs))
		}
		out, _ = sjson.SetRaw(out, "-1", one)
	}
	return out
}

// sortTag is the JSON spelling of an act-type.
func sortTag(t acttypes.ActType) string {
	switch t {
	case acttypes.AInteger:
		return "AInteger"
	case acttypes.ABoolean:
		return "ABoolean"
	case acttypes.AByteStr:
		return "AByteStr"
	default:
		return "AContract"
	}
}

var symbols = map[acttypes.ExpKind]string{
	acttypes.ExpITE: "ite", acttypes.ExpEq: "==", acttypes.ExpNEq: "=/=",
	acttypes.ExpNot: "not", acttypes.ExpAnd: "and", acttypes.ExpOr: "or",
	acttypes.ExpAdd: "+", acttypes.ExpSub: "-", acttypes.ExpMul: "*",
	acttypes.ExpDiv: "/", acttypes.ExpMod: "%", acttypes.ExpExp: "^",
	acttypes.ExpNeg: "neg", acttypes.ExpLT: "<", acttypes.ExpLE: "<=",
	acttypes.ExpGT: ">", acttypes.ExpGE: ">=", acttypes.ExpConcat: "++",
}

func expJSON(e acttypes.Exp) string {
	switch e.Kind {
	case acttypes.ExpLitInt:
		doc, _ := sjson.Set("", "literal", e.IntVal)
		doc, _ = sjson.Set(doc, "sort", sortTag(acttypes.AInteger))
		return doc
	case acttypes.ExpLitBool:
		doc, _ := sjson.Set("", "literal", e.BoolVal)
		doc, _ = sjson.Set(doc, "sort", sortTag(acttypes.ABoolean))
		return doc
	case acttypes.ExpVar:
		doc, _ := sjson.Set("", "var", e.Name)
		doc, _ = sjson.Set(doc, "sort", sortTag(e.Type))
		return doc
	case acttypes.ExpEnv:
		doc, _ := sjson.Set("", "env", e.Name)
		doc, _ = sjson.Set(doc, "sort", sortTag(e.Type))
		return doc
	case acttypes.ExpTEntry:
		return refJSON(e.Item, e.Timing)
	case acttypes.ExpCreate:
		doc, _ := sjson.Set("", "symbol", "create")
		doc, _ = sjson.Set(doc, "contract", e.Create.Contract)
		args := "[]"
		for _, a := range e.Create.Args {
			args, _ = sjson.SetRaw(args, "-1", expJSON(a))
		}
		doc, _ = sjson.SetRaw(doc, "args", args)
		return doc
	default:
		return opJSON(e)
	}
}

func opJSON(e acttypes.Exp) string {
	sym, ok := symbols[e.Kind]
	if !ok {
		sym = "?"
	}
	var operands []acttypes.Exp
	switch e.Kind {
	case acttypes.ExpNot, acttypes.ExpNeg:
		operands = []acttypes.Exp{e.A}
	case acttypes.ExpITE:
		operands = []acttypes.Exp{e.A, e.B, e.C}
	default:
		operands = []acttypes.Exp{e.A, e.B}
	}

	doc, _ := sjson.Set("", "symbol", sym)
	doc, _ = sjson.Set(doc, "arity", len(operands))
	args := "[]"
	for _, a := range operands {
		args, _ = sjson.SetRaw(args, "-1", expJSON(a))
	}
	doc, _ = sjson.SetRaw(doc, "args", args)
	return doc
}

// refJSON renders a storage item: a value slot as {symbol: "lookup"}, a
// mapping access as {symbol: "select"} with its index arguments.
func refJSON(item acttypes.StorageItem, timing acttypes.Timing) string {
	ref := item.Ref
	if ref.Kind == acttypes.SVar {
		doc, _ := sjson.Set("", "symbol", "lookup")
		doc, _ = sjson.Set(doc, "contract", ref.Contract)
		doc, _ = sjson.Set(doc, "slot", ref.Name)
		doc, _ = sjson.Set(doc, "timing", timing.String())
		doc, _ = sjson.Set(doc, "sort", sortTag(item.ActType))
		return doc
	}
	doc, _ := sjson.Set("", "symbol", "select")
	doc, _ = sjson.Set(doc, "contract", ref.RootContract())
	doc, _ = sjson.Set(doc, "slot", ref.RootName())
	args := "[]"
	for _, idx := range ref.Index {
		args, _ = sjson.SetRaw(args, "-1", expJSON(idx))
	}
	doc, _ = sjson.SetRaw(doc, "args", args)
	doc, _ = sjson.Set(doc, "timing", timing.String())
	doc, _ = sjson.Set(doc, "sort", sortTag(item.ActType))
	return doc
}
