package typecheck

import (
	"strings"
	"testing"

	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/lexer"
	"github.com/develuxes/solidity-act/internal/parser"
)

const tokenSrc = `
constructor of Token
interface constructor(uint _totalSupply)

iff in range uint
  _totalSupply

creates
  uint totalSupply := _totalSupply
  mapping(address => uint) balanceOf := [CALLER := _totalSupply]

invariants
  totalSupply in range(0, 2^256 - 1)

behaviour transfer of Token
interface transfer(uint value, address to)

iff
  CALLVALUE == 0
  value <= balanceOf[CALLER]
  balanceOf[to] + value < 2^256

case CALLER =/= to:

  storage
    balanceOf[CALLER] => balanceOf[CALLER] - value
    balanceOf[to] => balanceOf[to] + value

  ensures
    post(balanceOf[CALLER]) == pre(balanceOf[CALLER]) - value

  returns 1

case _:

  storage
    balanceOf[CALLER]

  returns 1
`

func check(t *testing.T, src string) (*acttypes.Act, []acttypes.Claim, *diag.Accumulator) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return Check(prog)
}

func mustCheck(t *testing.T, src string) (*acttypes.Act, []acttypes.Claim) {
	t.Helper()
	act, claims, errs := check(t, src)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %s", errs.Format(src))
	}
	return act, claims
}

func errorMessages(errs *diag.Accumulator) []string {
	var out []string
	for _, d := range errs.Diagnostics() {
		out = append(out, d.Message)
	}
	return out
}

func hasError(errs *diag.Accumulator, substr string) bool {
	for _, d := range errs.Diagnostics() {
		if strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

func TestTokenElaborates(t *testing.T) {
	act, claims := mustCheck(t, tokenSrc)

	if len(act.Contract) != 1 || act.Contract[0].Name != "Token" {
		t.Fatalf("expected one contract Token, got %+v", act.Contract)
	}
	c := act.Contract[0]
	if c.Constructor == nil {
		t.Fatal("constructor missing")
	}
	// One behaviour per normalized case.
	if len(c.Behaviours) != 2 {
		t.Fatalf("expected 2 typed behaviours (one per case), got %d", len(c.Behaviours))
	}
	if len(c.Invariants) != 1 {
		t.Fatalf("expected 1 invariant, got %d", len(c.Invariants))
	}

	// Claim inventory: ctor pass+fail, 2 cases x (pass+fail), invariant
	// ctor sub-query + one per behaviour.
	counts := map[acttypes.ClaimKind]int{}
	for _, cl := range claims {
		counts[cl.Kind]++
	}
	if counts[acttypes.ClaimConstructorPass] != 1 || counts[acttypes.ClaimConstructorFail] != 1 {
		t.Errorf("constructor claims = %v", counts)
	}
	if counts[acttypes.ClaimBehaviourPass] != 2 || counts[acttypes.ClaimBehaviourFail] != 2 {
		t.Errorf("behaviour claims = %v", counts)
	}
	if counts[acttypes.ClaimInvariant] != 3 {
		t.Errorf("invariant claims = %d, want 3 (constructor + 2 behaviours)", counts[acttypes.ClaimInvariant])
	}
}

func TestPostconditionsAreFullyTimed(t *testing.T) {
	act, _ := mustCheck(t, tokenSrc)
	for _, b := range act.Contract[0].Behaviours {
		for _, post := range b.Postconds {
			if bad := firstNeither(post); bad != nil {
				t.Errorf("postcondition of %s carries a Neither entry at %s", b.Name, bad.Pos)
			}
		}
	}
}

func firstNeither(e acttypes.Exp) *acttypes.Exp {
	if e.Kind == acttypes.ExpTEntry {
		if e.Timing == acttypes.Neither {
			cp := e
			return &cp
		}
		for r := e.Item.Ref; r != nil; r = r.Parent {
			for _, idx := range r.Index {
				if bad := firstNeither(idx); bad != nil {
					return bad
				}
			}
		}
		return nil
	}
	switch expArity(e.Kind) {
	case 1:
		return firstNeither(e.A)
	case 2:
		if r := firstNeither(e.A); r != nil {
			return r
		}
		return firstNeither(e.B)
	case 3:
		for _, c := range []acttypes.Exp{e.A, e.B, e.C} {
			if r := firstNeither(c); r != nil {
				return r
			}
		}
	}
	return nil
}

func TestWildcardGuardIsNegationOfPriorCases(t *testing.T) {
	act, _ := mustCheck(t, tokenSrc)
	last := act.Contract[0].Behaviours[1]
	// The final wildcard's guard is not(g1 or ... or gn); with one prior
	// case that is exactly not(CALLER =/= to).
	if last.CaseCond.Kind != acttypes.ExpNot {
		t.Fatalf("wildcard guard kind = %v, want negation", last.CaseCond.Kind)
	}
	if last.CaseCond.A.Kind != acttypes.ExpNEq {
		t.Errorf("negated guard kind = %v, want the prior case's =/=", last.CaseCond.A.Kind)
	}
}

func TestClaimSplittingPreconditions(t *testing.T) {
	_, claims := mustCheck(t, tokenSrc)
	var pass, fail *acttypes.Claim
	for i := range claims {
		cl := &claims[i]
		if cl.Kind == acttypes.ClaimBehaviourPass && pass == nil {
			pass = cl
		}
		if cl.Kind == acttypes.ClaimBehaviourFail && fail == nil {
			fail = cl
		}
	}
	if pass == nil || fail == nil {
		t.Fatal("missing pass/fail behaviour claims")
	}

	// Pass: G && I. Fail: G && not(I), same G and I on both sides.
	if pass.Precond.Kind != acttypes.ExpAnd || fail.Precond.Kind != acttypes.ExpAnd {
		t.Fatal("split preconditions should be conjunctions")
	}
	if fail.Precond.B.Kind != acttypes.ExpNot {
		t.Error("fail precondition should negate the iff conjunction")
	}
	if len(fail.Postconds) != 0 || fail.Return != nil {
		t.Error("fail claim must carry no postconditions and no return")
	}
	for _, u := range fail.Updates {
		if u.Kind != acttypes.RewriteConstant {
			t.Error("fail claim updates must all be Constant locations")
		}
	}
	if len(pass.Updates) == 0 {
		t.Error("pass claim lost its updates")
	}
}

func TestNoIffMeansSinglePassClaim(t *testing.T) {
	_, claims := mustCheck(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour poke of C
interface poke()

storage
  x => x + 1
`)
	var pass, fail int
	for _, cl := range claims {
		switch cl.Kind {
		case acttypes.ClaimBehaviourPass:
			pass++
		case acttypes.ClaimBehaviourFail:
			fail++
		}
	}
	if pass != 1 || fail != 0 {
		t.Fatalf("pass=%d fail=%d, want 1/0 for an iff-less behaviour", pass, fail)
	}
}

func TestDuplicateSlotSurfacesAndBlocksClaims(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 1
  uint x := 2
`)
	var dups int
	for _, d := range errs.Diagnostics() {
		if strings.Contains(d.Message, "duplicate slot") {
			dups++
		}
	}
	if dups != 2 {
		t.Fatalf("expected 2 duplicate-slot diagnostics, got %d: %v", dups, errorMessages(errs))
	}
	if !errs.HasErrors() {
		t.Error("duplicate slots must block the pipeline")
	}
}

func TestIllegalStorageReadInCreates(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  mapping(address => uint) balanceOf := []
  uint x := balanceOf[CALLER]
`)
	if !hasError(errs, "illegal storage read in creates") {
		t.Fatalf("expected illegal-storage-read diagnostic, got %v", errorMessages(errs))
	}
}

func TestTimingMismatchInPrecondition(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  mapping(address => uint) balanceOf := []

behaviour f of C
interface f()

iff
  pre(balanceOf[CALLER]) == 0

storage
  balanceOf[CALLER]
`)
	if !hasError(errs, "Neither variable needed here") {
		t.Fatalf("expected timing-mismatch diagnostic, got %v", errorMessages(errs))
	}
}

func TestAmbiguousName(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f(uint x)

storage
  x => 1
`)
	if !hasError(errs, "ambiguous name") {
		t.Fatalf("expected ambiguous-name diagnostic, got %v", errorMessages(errs))
	}
}

func TestUnknownName(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f()

storage
  x => ghost + 1
`)
	if !hasError(errs, `unknown name "ghost"`) {
		t.Fatalf("expected unknown-name diagnostic, got %v", errorMessages(errs))
	}
}

func TestArityMismatch(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  mapping(address => uint) m := []

behaviour f of C
interface f(address a, address b)

storage
  m[a][b] => 1
`)
	if !hasError(errs, "arity mismatch") {
		t.Fatalf("expected arity-mismatch diagnostic, got %v", errorMessages(errs))
	}
}

func TestWildcardMustBeLast(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f(uint a)

case _:

  storage
    x => 1

case a > 0:

  storage
    x => 2
`)
	if !hasError(errs, "illegal wildcard placement") {
		t.Fatalf("expected wildcard-placement diagnostic, got %v", errorMessages(errs))
	}
}

func TestDuplicateBehaviourInterface(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f(uint a)

storage
  x => a

behaviour f of C
interface f(uint a)

storage
  x => a + 1
`)
	if !hasError(errs, "duplicate definition") {
		t.Fatalf("expected duplicate-definition diagnostic, got %v", errorMessages(errs))
	}
}

func TestCannotHarmonizeEquality(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f(bool b)

iff
  x == b

storage
  x => 1
`)
	if !hasError(errs, "cannot harmonize") {
		t.Fatalf("expected harmonization failure, got %v", errorMessages(errs))
	}
}

func TestInvariantGetsTimedPair(t *testing.T) {
	act, _ := mustCheck(t, tokenSrc)
	inv := act.Contract[0].Invariants[0]
	if bad := firstNeither(inv.Predicate.Pre); bad != nil {
		t.Error("invariant pre-form still carries a Neither entry")
	}
	if bad := firstNeither(inv.Predicate.Post); bad != nil {
		t.Error("invariant post-form still carries a Neither entry")
	}
	pre := firstEntryTiming(inv.Predicate.Pre)
	post := firstEntryTiming(inv.Predicate.Post)
	if pre != acttypes.Pre || post != acttypes.Post {
		t.Errorf("predicate timings = %v/%v, want pre/post", pre, post)
	}
}

func TestSetTimeReachesReadIndexes(t *testing.T) {
	// The index of balanceOf[owner] is itself a storage read; promoting the
	// postcondition to Post must not leave it Neither.
	act, _ := mustCheck(t, `
constructor of C
interface constructor()

creates
  uint owner := 0
  mapping(uint => uint) balanceOf := []

behaviour f of C
interface f()

storage
  balanceOf[owner] => 0

ensures
  post(balanceOf[owner]) == 0
`)
	b := act.Contract[0].Behaviours[0]
	for _, post := range b.Postconds {
		if bad := firstNeither(post); bad != nil {
			t.Errorf("index read left Neither at %s", bad.Pos)
		}
	}
}

func TestTimedEntryInsideIndexRejectedUntimed(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint owner := 0
  mapping(uint => uint) balanceOf := []

behaviour f of C
interface f()

iff
  balanceOf[pre(owner)] == 0

storage
  balanceOf[0]
`)
	if !hasError(errs, "Neither variable needed here") {
		t.Fatalf("expected timing-mismatch diagnostic for a timed index, got %v", errorMessages(errs))
	}
}

func TestUnusedArgumentWarns(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f(uint a, uint ghost)

storage
  x => a
`)
	if errs.HasErrors() {
		t.Fatalf("warnings must not count as errors: %v", errorMessages(errs))
	}
	var warned bool
	for _, d := range errs.Diagnostics() {
		if d.Kind == diag.Warning && strings.Contains(d.Message, `"ghost"`) {
			warned = true
		}
		if d.Kind == diag.Warning && strings.Contains(d.Message, `"a"`) {
			t.Error("used argument should not warn")
		}
	}
	if !warned {
		t.Fatalf("expected an unused-argument warning for ghost, got %v", errorMessages(errs))
	}
}

func TestArgumentUsedOnlyInIndexDoesNotWarn(t *testing.T) {
	_, _, errs := check(t, `
constructor of C
interface constructor()

creates
  mapping(address => uint) balanceOf := []

behaviour f of C
interface f(address to)

ensures
  post(balanceOf[to]) == pre(balanceOf[to])

storage
  balanceOf[to]
`)
	for _, d := range errs.Diagnostics() {
		if d.Kind == diag.Warning {
			t.Errorf("unexpected warning: %s", d.Message)
		}
	}
}

func firstEntryTiming(e acttypes.Exp) acttypes.Timing {
	if e.Kind == acttypes.ExpTEntry {
		return e.Timing
	}
	switch expArity(e.Kind) {
	case 1:
		return firstEntryTiming(e.A)
	case 2:
		if r := firstEntryTiming(e.A); r != acttypes.Neither {
			return r
		}
		return firstEntryTiming(e.B)
	case 3:
		for _, c := range []acttypes.Exp{e.A, e.B, e.C} {
			if r := firstEntryTiming(c); r != acttypes.Neither {
				return r
			}
		}
	}
	return acttypes.Neither
}
