package query

import (
	"fmt"
	"strings"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/token"
)

// InternalError is an assertion violation inside the synthesizer: a construct
// the SMT encoder cannot express reached it (symbolic exponent, cross-contract
// field access, a contract-typed constant). These abort the program with a
// stable message, distinct from user errors, which never get this far.
type InternalError struct {
	Pos diag.Position
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at %s: %s", e.Pos, e.Msg)
}

// emitter renders typed expressions as SMT-LIB2 terms. It records the first
// unencodable construct it meets instead of returning an error from every
// recursive call; callers check err once per expression.
type emitter struct {
	iface string
	err   error
}

func (em *emitter) fail(pos diag.Position, format string, args ...any) string {
	if em.err == nil {
		em.err = &InternalError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
	}
	return "?"
}

// sortOf maps an act-type to its SMT sort: Int, Bool, String. AContract has
// no sort; contract values never reach the encoder.
func (em *emitter) sortOf(t acttypes.ActType, pos diag.Position) string {
	switch t {
	case acttypes.AInteger:
		return "Int"
	case acttypes.ABoolean:
		return "Bool"
	case acttypes.AByteStr:
		return "String"
	default:
		return em.fail(pos, "contract-typed value has no SMT sort")
	}
}

// slotSort is the declared sort of a storage slot: the value sort for a
// value slot, Arrays nested by key arity for a mapping.
func (em *emitter) slotSort(slot acttypes.SlotType, pos diag.Position) string {
	sort := em.sortOf(acttypes.ActTypeOf(slot.Value), pos)
	for i := len(slot.KeyTypes) - 1; i >= 0; i-- {
		key := em.sortOf(acttypes.ActTypeOf(slot.KeyTypes[i]), pos)
		sort = fmt.Sprintf("(Array %s %s)", key, sort)
	}
	return sort
}

// baseName is the symbolic constant name a storage slot gets at a timing:
// <contract>_<slot>_Pre or <contract>_<slot>_Post.
func baseName(contract, slot string, t acttypes.Timing) string {
	suffix := "Pre"
	if t == acttypes.Post {
		suffix = "Post"
	}
	return contract + "_" + slot + "_" + suffix
}

// ref renders a storage reference as a term at the given timing: the bare
// constant for a value slot, a select chain for a mapping.
func (em *emitter) ref(r *acttypes.StorageRef, timing acttypes.Timing) string {
	switch r.Kind {
	case acttypes.SVar:
		return baseName(r.Contract, r.Name, timing)
	case acttypes.SMapping:
		term := em.ref(r.Parent, timing)
		for _, idx := range r.Index {
			term = fmt.Sprintf("(select %s %s)", term, em.exp(idx))
		}
		return term
	case acttypes.SField:
		return em.fail(r.Pos, "cross-contract storage access is not supported by the SMT encoder")
	default:
		return em.fail(r.Pos, "unknown storage reference kind")
	}
}

// exp renders a typed expression as an SMT-LIB2 term. Expressions are folded
// (and exponents expanded) before they arrive here, so a surviving ExpExp
// means a genuinely symbolic exponent.
func (em *emitter) exp(e acttypes.Exp) string {
	switch e.Kind {
	case acttypes.ExpLitInt:
		return intLit(e.IntVal)
	case acttypes.ExpLitBool:
		if e.BoolVal {
			return "true"
		}
		return "false"
	case acttypes.ExpVar:
		return em.iface + "_" + e.Name
	case acttypes.ExpEnv:
		return token.EnvIdents[e.Name].SMTName
	case acttypes.ExpTEntry:
		if e.Timing == acttypes.Neither {
			return em.fail(e.Pos, "untimed storage entry reached the SMT encoder")
		}
		return em.ref(e.Item.Ref, e.Timing)
	case acttypes.ExpITE:
		return fmt.Sprintf("(ite %s %s %s)", em.exp(e.A), em.exp(e.B), em.exp(e.C))
	case acttypes.ExpEq:
		return fmt.Sprintf("(= %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpNEq:
		return fmt.Sprintf("(not (= %s %s))", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpNot:
		return fmt.Sprintf("(not %s)", em.exp(e.A))
	case acttypes.ExpNeg:
		return fmt.Sprintf("(- %s)", em.exp(e.A))
	case acttypes.ExpAnd:
		return fmt.Sprintf("(and %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpOr:
		return fmt.Sprintf("(or %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpAdd:
		return fmt.Sprintf("(+ %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpSub:
		return fmt.Sprintf("(- %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpMul:
		return fmt.Sprintf("(* %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpDiv:
		return fmt.Sprintf("(div %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpMod:
		return fmt.Sprintf("(mod %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpLT:
		return fmt.Sprintf("(< %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpLE:
		return fmt.Sprintf("(<= %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpGT:
		return fmt.Sprintf("(> %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpGE:
		return fmt.Sprintf("(>= %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpConcat:
		return fmt.Sprintf("(str.++ %s %s)", em.exp(e.A), em.exp(e.B))
	case acttypes.ExpExp:
		return em.fail(e.Pos, "symbolic exponent reached the SMT encoder")
	case acttypes.ExpCreate:
		return em.fail(e.Pos, "Create(...) reached the SMT encoder")
	default:
		return em.fail(e.Pos, "unknown expression kind %d", e.Kind)
	}
}

// intLit emits a decimal integer literal; negative values use the unary
// minus application form for solver portability.
func intLit(v string) string {
	if strings.HasPrefix(v, "-") {
		return fmt.Sprintf("(- %s)", v[1:])
	}
	return v
}

// displayExp renders a typed expression back in Act surface syntax, for the
// human-readable counter-model labels. It doesn't bother with minimal
// parenthesization: model labels are short and extra parens are harmless.
func displayExp(e acttypes.Exp) string {
	bin := func(op string) string {
		return fmt.Sprintf("(%s %s %s)", displayExp(e.A), op, displayExp(e.B))
	}
	switch e.Kind {
	case acttypes.ExpLitInt:
		return e.IntVal
	case acttypes.ExpLitBool:
		return fmt.Sprintf("%v", e.BoolVal)
	case acttypes.ExpVar, acttypes.ExpEnv:
		return e.Name
	case acttypes.ExpTEntry:
		return displayRef(e.Item.Ref)
	case acttypes.ExpITE:
		return fmt.Sprintf("(if %s then %s else %s)", displayExp(e.A), displayExp(e.B), displayExp(e.C))
	case acttypes.ExpEq:
		return bin("==")
	case acttypes.ExpNEq:
		return bin("=/=")
	case acttypes.ExpNot:
		return "(not " + displayExp(e.A) + ")"
	case acttypes.ExpNeg:
		return "(-" + displayExp(e.A) + ")"
	case acttypes.ExpAnd:
		return bin("and")
	case acttypes.ExpOr:
		return bin("or")
	case acttypes.ExpAdd:
		return bin("+")
	case acttypes.ExpSub:
		return bin("-")
	case acttypes.ExpMul:
		return bin("*")
	case acttypes.ExpDiv:
		return bin("/")
	case acttypes.ExpMod:
		return bin("%")
	case acttypes.ExpExp:
		return bin("^")
	case acttypes.ExpLT:
		return bin("<")
	case acttypes.ExpLE:
		return bin("<=")
	case acttypes.ExpGT:
		return bin(">")
	case acttypes.ExpGE:
		return bin(">=")
	case acttypes.ExpConcat:
		return bin("++")
	default:
		return "?"
	}
}

// displayRef renders a storage reference in source-like form, e.g.
// balanceOf[CALLER].
func displayRef(r *acttypes.StorageRef) string {
	switch r.Kind {
	case acttypes.SVar:
		return r.Name
	case acttypes.SMapping:
		var b strings.Builder
		b.WriteString(displayRef(r.Parent))
		b.WriteByte('[')
		for i, idx := range r.Index {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(displayExp(idx))
		}
		b.WriteByte(']')
		return b.String()
	case acttypes.SField:
		return displayRef(r.Parent) + "." + r.Name
	default:
		return "?"
	}
}
