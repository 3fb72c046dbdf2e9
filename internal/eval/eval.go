// Package eval implements partial constant folding over typed expressions.
// It never touches storage, calldata, or EthEnv reads — those are left
// exactly as found — but it collapses any subexpression built entirely from
// integer/boolean literals, and it expands `base ^ exponent` into repeated
// multiplication whenever the exponent folds to a non-negative literal,
// since SMT-LIB2's integer theory has no native exponentiation operator.
package eval

import (
	"math/big"

	"github.com/develuxes/solidity-act/internal/acttypes"
)

// Value is the result of a successful constant evaluation: exactly one of
// Int/Bool is meaningful, selected by Kind.
type Value struct {
	Kind acttypes.ActType // AInteger or ABoolean; AByteStr/AContract are never constant-folded
	Int  *big.Int
	Bool bool
}

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

// Const attempts to fully evaluate e to a literal Value. It fails (ok=false)
// as soon as it reaches a non-constant leaf: a calldata variable, an EthEnv
// read, a storage entry, or a Create(...) application.
func Const(e acttypes.Exp) (Value, bool) {
	switch e.Kind {
	case acttypes.ExpLitInt:
		n, ok := new(big.Int).SetString(e.IntVal, 10)
		if !ok {
			return Value{}, false
		}
		return Value{Kind: acttypes.AInteger, Int: n}, true

	case acttypes.ExpLitBool:
		return Value{Kind: acttypes.ABoolean, Bool: e.BoolVal}, true

	case acttypes.ExpVar, acttypes.ExpEnv, acttypes.ExpTEntry, acttypes.ExpCreate:
		return Value{}, false

	case acttypes.ExpNot:
		a, ok := Const(e.A)
		if !ok || a.Kind != acttypes.ABoolean {
			return Value{}, false
		}
		return Value{Kind: acttypes.ABoolean, Bool: !a.Bool}, true

	case acttypes.ExpNeg:
		a, ok := Const(e.A)
		if !ok || a.Kind != acttypes.AInteger {
			return Value{}, false
		}
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Neg(a.Int)}, true

	case acttypes.ExpAnd, acttypes.ExpOr:
		a, ok1 := Const(e.A)
		b, ok2 := Const(e.B)
		if !ok1 || !ok2 {
			return Value{}, false
		}
		if e.Kind == acttypes.ExpAnd {
			return Value{Kind: acttypes.ABoolean, Bool: a.Bool && b.Bool}, true
		}
		return Value{Kind: acttypes.ABoolean, Bool: a.Bool || b.Bool}, true

	case acttypes.ExpEq, acttypes.ExpNEq:
		a, ok1 := Const(e.A)
		b, ok2 := Const(e.B)
		if !ok1 || !ok2 || a.Kind != b.Kind {
			return Value{}, false
		}
		eq := equalValue(a, b)
		if e.Kind == acttypes.ExpNEq {
			eq = !eq
		}
		return Value{Kind: acttypes.ABoolean, Bool: eq}, true

	case acttypes.ExpLT, acttypes.ExpLE, acttypes.ExpGT, acttypes.ExpGE:
		a, ok1 := Const(e.A)
		b, ok2 := Const(e.B)
		if !ok1 || !ok2 || a.Kind != acttypes.AInteger {
			return Value{}, false
		}
		cmp := a.Int.Cmp(b.Int)
		var ok bool
		switch e.Kind {
		case acttypes.ExpLT:
			ok = cmp < 0
		case acttypes.ExpLE:
			ok = cmp <= 0
		case acttypes.ExpGT:
			ok = cmp > 0
		case acttypes.ExpGE:
			ok = cmp >= 0
		}
		return Value{Kind: acttypes.ABoolean, Bool: ok}, true

	case acttypes.ExpAdd, acttypes.ExpSub, acttypes.ExpMul, acttypes.ExpDiv, acttypes.ExpMod, acttypes.ExpExp:
		a, ok1 := Const(e.A)
		b, ok2 := Const(e.B)
		if !ok1 || !ok2 {
			return Value{}, false
		}
		return arith(e.Kind, a.Int, b.Int)

	case acttypes.ExpITE:
		cond, ok := Const(e.A)
		if !ok || cond.Kind != acttypes.ABoolean {
			return Value{}, false
		}
		if cond.Bool {
			return Const(e.B)
		}
		return Const(e.C)

	default:
		return Value{}, false
	}
}

func equalValue(a, b Value) bool {
	if a.Kind == acttypes.AInteger {
		return a.Int.Cmp(b.Int) == 0
	}
	return a.Bool == b.Bool
}

// arith evaluates a binary integer operator. Division and modulo use
// truncated (toward-zero) semantics, matching EVM arithmetic rather than
// Euclidean division; a zero divisor folds to "not constant" rather than
// panicking, leaving the symbolic form for the solver to reason about
// (SMT-LIB2 div-by-zero has its own, deliberately underspecified, meaning).
func arith(k acttypes.ExpKind, a, b *big.Int) (Value, bool) {
	switch k {
	case acttypes.ExpAdd:
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Add(a, b)}, true
	case acttypes.ExpSub:
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Sub(a, b)}, true
	case acttypes.ExpMul:
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Mul(a, b)}, true
	case acttypes.ExpDiv:
		if b.Sign() == 0 {
			return Value{}, false
		}
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Quo(a, b)}, true
	case acttypes.ExpMod:
		if b.Sign() == 0 {
			return Value{}, false
		}
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Rem(a, b)}, true
	case acttypes.ExpExp:
		if b.Sign() < 0 || !b.IsInt64() {
			return Value{}, false
		}
		return Value{Kind: acttypes.AInteger, Int: new(big.Int).Exp(a, b, nil)}, true
	default:
		return Value{}, false
	}
}

// Fold rewrites e bottom-up, replacing every subexpression that evaluates
// to a constant with the equivalent literal node. Non-constant subtrees are
// returned with their shape (and position/type) unchanged.
func Fold(e acttypes.Exp) acttypes.Exp {
	switch arity(e.Kind) {
	case 1:
		e.A = Fold(e.A)
	case 2:
		e.A = Fold(e.A)
		e.B = Fold(e.B)
	case 3:
		e.A = Fold(e.A)
		e.B = Fold(e.B)
		e.C = Fold(e.C)
	}
	if e.Create != nil {
		args := make([]acttypes.Exp, len(e.Create.Args))
		for i, a := range e.Create.Args {
			args[i] = Fold(a)
		}
		e.Create = &acttypes.CreateVal{Contract: e.Create.Contract, Args: args}
	}
	if e.Kind == acttypes.ExpTEntry {
		e.Item.Ref = foldRef(e.Item.Ref)
	}

	v, ok := Const(e)
	if !ok {
		return ExpandPow(e)
	}
	switch v.Kind {
	case acttypes.AInteger:
		return acttypes.Exp{Kind: acttypes.ExpLitInt, Pos: e.Pos, Type: acttypes.AInteger, IntVal: v.Int.String()}
	case acttypes.ABoolean:
		return acttypes.Exp{Kind: acttypes.ExpLitBool, Pos: e.Pos, Type: acttypes.ABoolean, BoolVal: v.Bool}
	default:
		return e
	}
}

// foldRef folds the index expressions of a storage reference, so two reads
// of the same mapping cell fingerprint identically even when their index
// expressions were written differently.
func foldRef(r *acttypes.StorageRef) *acttypes.StorageRef {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Parent = foldRef(r.Parent)
	if len(r.Index) > 0 {
		cp.Index = make([]acttypes.Exp, len(r.Index))
		for i, idx := range r.Index {
			cp.Index[i] = Fold(idx)
		}
	}
	return &cp
}

// ExpandPow rewrites `base ^ exponent` into nested multiplication when the
// exponent (after folding) is a small non-negative literal — SMT-LIB2's
// integer theory has no exponentiation operator, so this is the only way a
// power expression with a symbolic base ever reaches the solver. An
// exponent that doesn't fold to such a literal (because it's itself
// storage- or calldata-dependent) is left as ExpExp; query synthesis
// reports an internal error if one of those ever reaches it.
func ExpandPow(e acttypes.Exp) acttypes.Exp {
	if e.Kind != acttypes.ExpExp {
		return e
	}
	v, ok := Const(e.B)
	if !ok || v.Kind != acttypes.AInteger || v.Int.Sign() < 0 || !v.Int.IsInt64() {
		return e
	}
	n := v.Int.Int64()
	if n == 0 {
		return acttypes.Exp{Kind: acttypes.ExpLitInt, Pos: e.Pos, Type: acttypes.AInteger, IntVal: "1"}
	}
	acc := e.A
	for i := int64(1); i < n; i++ {
		acc = acttypes.Exp{Kind: acttypes.ExpMul, Pos: e.Pos, Type: acttypes.AInteger, A: acc, B: e.A}
	}
	return acc
}
