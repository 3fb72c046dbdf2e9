package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// checkUntimed elaborates e in an untimed context (preconditions, case
// guards): every TEntry must end up Neither. An explicit pre()/post()
// wrapper in source is a timing mismatch here.
func checkUntimed(env *Env, expected acttypes.ActType, e ast.Expr, errs *diag.Accumulator) (acttypes.Exp, bool) {
	exp, ok := checkExpr(env, expected, e, errs)
	if !ok {
		return exp, false
	}
	if bad := firstTimedEntry(exp); bad != nil {
		errs.AddUser(bad.Pos, "Neither variable needed here")
		return exp, false
	}
	return exp, true
}

// checkTimed elaborates e in a timed context (postconditions, update
// right-hand sides): ambient (Neither) entries are promoted to t; entries
// carrying an explicit pre()/post() marker are left as the user wrote them.
func checkTimed(env *Env, expected acttypes.ActType, e ast.Expr, t acttypes.Timing, errs *diag.Accumulator) (acttypes.Exp, bool) {
	exp, ok := checkExpr(env, expected, e, errs)
	if !ok {
		return exp, false
	}
	return acttypes.SetTime(exp, t), true
}

// firstTimedEntry returns the first TEntry node (if any) whose Timing is not
// Neither, walking the same shape SetTime does — a pre()/post() wrapper
// hiding inside a reference's mapping index counts too.
func firstTimedEntry(e acttypes.Exp) *acttypes.Exp {
	if e.Kind == acttypes.ExpTEntry {
		if e.Timing != acttypes.Neither {
			copy := e
			return &copy
		}
		for r := e.Item.Ref; r != nil; r = r.Parent {
			for _, idx := range r.Index {
				if bad := firstTimedEntry(idx); bad != nil {
					return bad
				}
			}
		}
		return nil
	}
	switch expArity(e.Kind) {
	case 1:
		return firstTimedEntry(e.A)
	case 2:
		if r := firstTimedEntry(e.A); r != nil {
			return r
		}
		return firstTimedEntry(e.B)
	case 3:
		if r := firstTimedEntry(e.A); r != nil {
			return r
		}
		if r := firstTimedEntry(e.B); r != nil {
			return r
		}
		return firstTimedEntry(e.C)
	}
	return nil
}

// expArity duplicates acttypes' internal arity table; kept local since the
// table is an implementation detail of SetTime, not part of acttypes' API.
func expArity(k acttypes.ExpKind) int {
	switch k {
	case acttypes.ExpLitInt, acttypes.ExpLitBool, acttypes.ExpVar, acttypes.ExpEnv, acttypes.ExpTEntry, acttypes.ExpCreate:
		return 0
	case acttypes.ExpNot, acttypes.ExpNeg:
		return 1
	case acttypes.ExpITE:
		return 3
	default:
		return 2
	}
}
