package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/token"
)

// checkExpr is the bidirectional checker: checkExpr(env, expected, e) tries
// to elaborate e at the expected act-type, returning an Untimed (Neither
// everywhere) typed expression. Timing is layered on afterwards by
// checkUntimed/checkTimed in timing.go.
func checkExpr(env *Env, expected acttypes.ActType, e ast.Expr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		if expected != acttypes.AInteger {
			errs.AddUser(n.Position, "type mismatch: expected %s, found integer literal", expected)
			return acttypes.Exp{}, false
		}
		return acttypes.Exp{Kind: acttypes.ExpLitInt, Pos: n.Position, Type: acttypes.AInteger, IntVal: n.Value}, true

	case *ast.BoolLit:
		if expected != acttypes.ABoolean {
			errs.AddUser(n.Position, "type mismatch: expected %s, found boolean literal", expected)
			return acttypes.Exp{}, false
		}
		return acttypes.Exp{Kind: acttypes.ExpLitBool, Pos: n.Position, Type: acttypes.ABoolean, BoolVal: n.Value}, true

	case *ast.EnvExpr:
		return checkEnv(env, expected, n, errs)

	case *ast.EntryExpr:
		return checkEntry(env, expected, n, errs)

	case *ast.UnaryExpr:
		return checkUnary(env, expected, n, errs)

	case *ast.BinaryExpr:
		return checkBinary(env, expected, n, errs)

	case *ast.RangeExpr:
		return checkRange(env, expected, n, errs)

	case *ast.ITEExpr:
		return checkITE(env, expected, n, errs)

	case *ast.CreateExpr:
		return checkCreate(env, expected, n, errs)

	default:
		errs.Add(diag.InternalError, e.Pos(), "unhandled expression kind %T", e)
		return acttypes.Exp{}, false
	}
}

func checkEnv(env *Env, expected acttypes.ActType, n *ast.EnvExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	info, ok := token.EnvIdents[n.Name]
	if !ok {
		errs.AddUser(n.Position, "unknown environment identifier %q", n.Name)
		return acttypes.Exp{}, false
	}
	actType := acttypes.AInteger
	if info.IsBytes {
		actType = acttypes.AByteStr
	}
	if actType != expected {
		errs.AddUser(n.Position, "type mismatch: expected %s, found %s (%s)", expected, actType, n.Name)
		return acttypes.Exp{}, false
	}
	return acttypes.Exp{Kind: acttypes.ExpEnv, Pos: n.Position, Type: actType, Name: n.Name}, true
}

func checkEntry(env *Env, expected acttypes.ActType, n *ast.EntryExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	res := env.resolve(n.Name)
	switch res.kind {
	case resUnknown:
		errs.AddUser(n.Position, "unknown name %q", n.Name)
		return acttypes.Exp{}, false

	case resAmbiguous:
		errs.AddUser(n.Position, "ambiguous name %q: matches both a storage slot and a calldata argument", n.Name)
		return acttypes.Exp{}, false

	case resCalldata:
		if n.Timing != "" {
			errs.AddUser(n.Position, "calldata argument %q cannot be wrapped in %s()", n.Name, n.Timing)
			return acttypes.Exp{}, false
		}
		if len(n.Args) != 0 {
			errs.AddUser(n.Position, "calldata argument %q is not a mapping", n.Name)
			return acttypes.Exp{}, false
		}
		actType := acttypes.ActTypeOf(res.abi)
		if actType != expected {
			errs.AddUser(n.Position, "type mismatch: expected %s, found %s for %q", expected, actType, n.Name)
			return acttypes.Exp{}, false
		}
		return acttypes.Exp{Kind: acttypes.ExpVar, Pos: n.Position, Type: actType, Name: n.Name}, true

	case resSlot:
		return checkSlotEntry(env, expected, n, res.slot, errs)

	default:
		errs.Add(diag.InternalError, n.Position, "unreachable resolution kind")
		return acttypes.Exp{}, false
	}
}

func checkSlotEntry(env *Env, expected acttypes.ActType, n *ast.EntryExpr, slot acttypes.SlotType, errs *diag.Accumulator) (acttypes.Exp, bool) {
	if len(n.Args) != slot.Arity() {
		errs.AddUser(n.Position, "arity mismatch: %q takes %d index argument(s), found %d", n.Name, slot.Arity(), len(n.Args))
		return acttypes.Exp{}, false
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
		return acttypes.Exp{}, false
	}

	actType := acttypes.ActTypeOf(slot.Value)
	if actType != expected {
		errs.AddUser(n.Position, "type mismatch: expected %s, found %s for %q", expected, actType, n.Name)
		return acttypes.Exp{}, false
	}

	ref := &acttypes.StorageRef{Kind: acttypes.SVar, Pos: n.Position, Contract: env.Contract, Name: n.Name}
	if slot.Arity() > 0 {
		ref = &acttypes.StorageRef{Kind: acttypes.SMapping, Pos: n.Position, Parent: &acttypes.StorageRef{
			Kind: acttypes.SVar, Pos: n.Position, Contract: env.Contract, Name: n.Name,
		}, Index: idxExps}
	}

	item := acttypes.StorageItem{ActType: actType, Slot: slot, Ref: ref}
	timing := acttypes.Neither
	switch n.Timing {
	case "pre":
		timing = acttypes.Pre
	case "post":
		timing = acttypes.Post
	}
	return acttypes.NewTEntry(n.Position, timing, item), true
}

func checkUnary(env *Env, expected acttypes.ActType, n *ast.UnaryExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	switch n.Op {
	case "not":
		if expected != acttypes.ABoolean {
			errs.AddUser(n.Position, "type mismatch: expected %s, found boolean negation", expected)
			return acttypes.Exp{}, false
		}
		operand, ok := checkExpr(env, acttypes.ABoolean, n.Operand, errs)
		if !ok {
			return acttypes.Exp{}, false
		}
		return acttypes.Exp{Kind: acttypes.ExpNot, Pos: n.Position, Type: acttypes.ABoolean, A: operand}, true
	case "-":
		if expected != acttypes.AInteger {
			errs.AddUser(n.Position, "type mismatch: expected %s, found integer negation", expected)
			return acttypes.Exp{}, false
		}
		operand, ok := checkExpr(env, acttypes.AInteger, n.Operand, errs)
		if !ok {
			return acttypes.Exp{}, false
		}
		return acttypes.Exp{Kind: acttypes.ExpNeg, Pos: n.Position, Type: acttypes.AInteger, A: operand}, true
	default:
		errs.Add(diag.InternalError, n.Position, "unknown unary operator %q", n.Op)
		return acttypes.Exp{}, false
	}
}

func checkBinary(env *Env, expected acttypes.ActType, n *ast.BinaryExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	switch n.Op {
	case "and", "or":
		if expected != acttypes.ABoolean {
			errs.AddUser(n.Position, "type mismatch: expected %s, found boolean connective", expected)
			return acttypes.Exp{}, false
		}
		l, ok1 := checkExpr(env, acttypes.ABoolean, n.Left, errs)
		r, ok2 := checkExpr(env, acttypes.ABoolean, n.Right, errs)
		if !ok1 || !ok2 {
			return acttypes.Exp{}, false
		}
		kind := acttypes.ExpAnd
		if n.Op == "or" {
			kind = acttypes.ExpOr
		}
		return acttypes.Exp{Kind: kind, Pos: n.Position, Type: acttypes.ABoolean, A: l, B: r}, true

	case "==", "=/=":
		if expected != acttypes.ABoolean {
			errs.AddUser(n.Position, "type mismatch: expected %s, found comparison", expected)
			return acttypes.Exp{}, false
		}
		l, r, ok := harmonize(env, n, errs)
		if !ok {
			return acttypes.Exp{}, false
		}
		result, err := acttypes.NewEq(n.Position, n.Op == "=/=", l, r)
		if err != nil {
			errs.AddUser(n.Left.Pos(), "%s", err)
			return acttypes.Exp{}, false
		}
		return result, true

	case "<", "<=", ">", ">=":
		if expected != acttypes.ABoolean {
			errs.AddUser(n.Position, "type mismatch: expected %s, found comparison", expected)
			return acttypes.Exp{}, false
		}
		l, ok1 := checkExpr(env, acttypes.AInteger, n.Left, errs)
		r, ok2 := checkExpr(env, acttypes.AInteger, n.Right, errs)
		if !ok1 || !ok2 {
			return acttypes.Exp{}, false
		}
		kind := map[string]acttypes.ExpKind{"<": acttypes.ExpLT, "<=": acttypes.ExpLE, ">": acttypes.ExpGT, ">=": acttypes.ExpGE}[n.Op]
		return acttypes.Exp{Kind: kind, Pos: n.Position, Type: acttypes.ABoolean, A: l, B: r}, true

	case "++":
		if expected != acttypes.AByteStr {
			errs.AddUser(n.Position, "type mismatch: expected %s, found bytestring concatenation", expected)
			return acttypes.Exp{}, false
		}
		l, ok1 := checkExpr(env, acttypes.AByteStr, n.Left, errs)
		r, ok2 := checkExpr(env, acttypes.AByteStr, n.Right, errs)
		if !ok1 || !ok2 {
			return acttypes.Exp{}, false
		}
		return acttypes.Exp{Kind: acttypes.ExpConcat, Pos: n.Position, Type: acttypes.AByteStr, A: l, B: r}, true

	case "+", "-", "*", "/", "%", "^":
		if expected != acttypes.AInteger {
			errs.AddUser(n.Position, "type mismatch: expected %s, found arithmetic expression", expected)
			return acttypes.Exp{}, false
		}
		l, ok1 := checkExpr(env, acttypes.AInteger, n.Left, errs)
		r, ok2 := checkExpr(env, acttypes.AInteger, n.Right, errs)
		if !ok1 || !ok2 {
			return acttypes.Exp{}, false
		}
		kind := map[string]acttypes.ExpKind{
			"+": acttypes.ExpAdd, "-": acttypes.ExpSub, "*": acttypes.ExpMul,
			"/": acttypes.ExpDiv, "%": acttypes.ExpMod, "^": acttypes.ExpExp,
		}[n.Op]
		return acttypes.Exp{Kind: kind, Pos: n.Position, Type: acttypes.AInteger, A: l, B: r}, true

	default:
		errs.Add(diag.InternalError, n.Position, "unknown binary operator %q", n.Op)
		return acttypes.Exp{}, false
	}
}

// harmonize implements the polymorphic Eq/NEq elaboration rule: attempt
// integer, then boolean, then bytestring, on a throwaway accumulator so a
// failed attempt doesn't pollute the real diagnostic list; report the
// "cannot harmonize" error at the left operand's position only once all
// three attempts fail.
func harmonize(env *Env, n *ast.BinaryExpr, errs *diag.Accumulator) (acttypes.Exp, acttypes.Exp, bool) {
	for _, t := range []acttypes.ActType{acttypes.AInteger, acttypes.ABoolean, acttypes.AByteStr} {
		var probe diag.Accumulator
		l, ok1 := checkExpr(env, t, n.Left, &probe)
		r, ok2 := checkExpr(env, t, n.Right, &probe)
		if ok1 && ok2 && !probe.HasErrors() {
			return l, r, true
		}
	}
	errs.AddUser(n.Left.Pos(), "cannot harmonize operand types for %s", n.Op)
	return acttypes.Exp{}, acttypes.Exp{}, false
}

func checkRange(env *Env, expected acttypes.ActType, n *ast.RangeExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	if expected != acttypes.ABoolean {
		errs.AddUser(n.Position, "type mismatch: expected %s, found range membership", expected)
		return acttypes.Exp{}, false
	}
	v, ok1 := checkExpr(env, acttypes.AInteger, n.Value, errs)
	lo, ok2 := checkExpr(env, acttypes.AInteger, n.Lo, errs)
	hi, ok3 := checkExpr(env, acttypes.AInteger, n.Hi, errs)
	if !ok1 || !ok2 || !ok3 {
		return acttypes.Exp{}, false
	}
	ge := acttypes.Exp{Kind: acttypes.ExpGE, Pos: n.Position, Type: acttypes.ABoolean, A: v, B: lo}
	le := acttypes.Exp{Kind: acttypes.ExpLE, Pos: n.Position, Type: acttypes.ABoolean, A: v, B: hi}
	return acttypes.Exp{Kind: acttypes.ExpAnd, Pos: n.Position, Type: acttypes.ABoolean, A: ge, B: le}, true
}

func checkITE(env *Env, expected acttypes.ActType, n *ast.ITEExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	cond, ok1 := checkExpr(env, acttypes.ABoolean, n.Cond, errs)
	then, ok2 := checkExpr(env, expected, n.Then, errs)
	els, ok3 := checkExpr(env, expected, n.Else, errs)
	if !ok1 || !ok2 || !ok3 {
		return acttypes.Exp{}, false
	}
	result, err := acttypes.NewITE(n.Position, cond, then, els)
	if err != nil {
		errs.AddUser(n.Position, "%s", err)
		return acttypes.Exp{}, false
	}
	return result, true
}

func checkCreate(env *Env, expected acttypes.ActType, n *ast.CreateExpr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	if expected != acttypes.AContract {
		errs.AddUser(n.Position, "type mismatch: expected %s, found Create(...) expression", expected)
		return acttypes.Exp{}, false
	}
	if _, known := env.Store.Contracts[n.Contract]; !known {
		errs.AddUser(n.Position, "unknown contract %q in Create(...)", n.Contract)
		return acttypes.Exp{}, false
	}
	args := make([]acttypes.Exp, 0, len(n.Args))
	for _, a := range n.Args {
		e, ok := inferExpr(env, a, errs)
		if !ok {
			return acttypes.Exp{}, false
		}
		args = append(args, e)
	}
	return acttypes.Exp{
		Kind: acttypes.ExpCreate, Pos: n.Position, Type: acttypes.AContract,
		Create: &acttypes.CreateVal{Contract: n.Contract, Args: args},
	}, true
}

// inferExpr checks e without a caller-supplied expected type, trying each
// act-type in turn. Used only for Create(...) constructor arguments, where
// the callee's declared interface isn't tracked by the store schema.
func inferExpr(env *Env, e ast.Expr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	for _, t := range []acttypes.ActType{acttypes.AInteger, acttypes.ABoolean, acttypes.AByteStr, acttypes.AContract} {
		var probe diag.Accumulator
		if result, ok := checkExpr(env, t, e, &probe); ok && !probe.HasErrors() {
			return result, true
		}
	}
	errs.AddUser(e.Pos(), "cannot infer a type for this expression")
	return acttypes.Exp{}, false
}
