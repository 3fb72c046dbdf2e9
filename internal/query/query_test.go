package query

import (
	"strings"
	"testing"

	"github.com/develuxes/solidity-act/internal/lexer"
	"github.com/develuxes/solidity-act/internal/parser"
	"github.com/develuxes/solidity-act/internal/typecheck"
	"github.com/gkampitakis/go-snaps/snaps"
)

func synthesize(t *testing.T, src string) []Query {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	_, claims, errs := typecheck.Check(prog)
	if errs.HasErrors() {
		t.Fatalf("typecheck errors: %s", errs.Format(src))
	}
	qs, err := Synthesize(claims)
	if err != nil {
		t.Fatalf("synthesis failed: %s", err)
	}
	return qs
}

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

func TestTokenQueryBodies(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	for _, q := range qs {
		snaps.MatchSnapshot(t, q.Contract+"."+q.Name+": "+q.Description+"\n"+strings.Join(q.Lines, "\n"))
	}
}

func TestTokenQueryInventory(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	// 1 postcondition on the first transfer case, plus 3 invariant
	// sub-queries (constructor + 2 case-split behaviours).
	var postconds, invariants int
	for _, q := range qs {
		if strings.HasPrefix(q.Description, "postcondition") {
			postconds++
		}
		if strings.HasPrefix(q.Description, "invariant") {
			invariants++
		}
	}
	if postconds != 1 {
		t.Errorf("postcondition queries = %d, want 1", postconds)
	}
	if invariants != 3 {
		t.Errorf("invariant queries = %d, want 3", invariants)
	}
}

func TestDeclarationsAreDeduplicated(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	for _, q := range qs {
		seen := map[string]bool{}
		for _, line := range q.Lines {
			if !strings.HasPrefix(line, "(declare-const ") {
				continue
			}
			if seen[line] {
				t.Errorf("%s %s: duplicate declaration %q", q.Name, q.Description, line)
			}
			seen[line] = true
		}
	}
}

func TestPowExpandsBeforeEmission(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	for _, q := range qs {
		for _, line := range q.Lines {
			if strings.Contains(line, "^") {
				t.Errorf("%s: exponent leaked into SMT output: %q", q.Description, line)
			}
			if strings.Contains(line, "115792089237316195423570985008687907853269984665640564039457584007913129639936") {
				return // 2^256 folded into its literal somewhere, as expected
			}
		}
	}
	t.Error("expected the folded 2^256 literal in at least one query")
}

func TestMappingBecomesArraySelect(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	var sawArrayDecl, sawSelect bool
	for _, q := range qs {
		for _, line := range q.Lines {
			if strings.Contains(line, "Token_balanceOf_Pre (Array Int Int)") {
				sawArrayDecl = true
			}
			if strings.Contains(line, "(select Token_balanceOf_Pre caller)") {
				sawSelect = true
			}
		}
	}
	if !sawArrayDecl {
		t.Error("mapping slot should declare as a nested Array constant")
	}
	if !sawSelect {
		t.Error("mapping access should emit a select over the array constant")
	}
}

func TestConstructorCreatesArePostOnly(t *testing.T) {
	qs := synthesize(t, `
constructor of C
interface constructor(uint a)

creates
  uint x := a

ensures
  post(x) == a
`)
	if len(qs) != 1 {
		t.Fatalf("expected 1 query, got %d", len(qs))
	}
	for _, line := range qs[0].Lines {
		if strings.Contains(line, "C_x_Pre") {
			t.Errorf("constructor-created slot leaked a Pre constant: %q", line)
		}
	}
}

func TestInvariantBehaviourQueryHoldsUntouchedSlotsConstant(t *testing.T) {
	qs := synthesize(t, `
constructor of C
interface constructor(uint a)

creates
  uint x := a
  uint y := 0

invariants
  y in range(0, 10)

behaviour bump of C
interface bump()

storage
  x => x + 1
`)
	var behavQuery *Query
	for i := range qs {
		if strings.Contains(qs[i].Description, "behaviour") {
			behavQuery = &qs[i]
		}
	}
	if behavQuery == nil {
		t.Fatal("missing invariant behaviour sub-query")
	}
	found := false
	for _, line := range behavQuery.Lines {
		if line == "(assert (= C_y_Pre C_y_Post))" {
			found = true
		}
	}
	if !found {
		t.Errorf("invariant-read slot y should be held constant, lines:\n%s", strings.Join(behavQuery.Lines, "\n"))
	}
}

func TestNegativeLiteralsUseMinusApplication(t *testing.T) {
	qs := synthesize(t, `
constructor of C
interface constructor()

creates
  int x := 0 - 5

ensures
  post(x) == 0 - 5
`)
	found := false
	for _, q := range qs {
		for _, line := range q.Lines {
			if strings.Contains(line, "(- 5)") {
				found = true
			}
			if strings.Contains(line, " -5") {
				t.Errorf("bare negative literal leaked: %q", line)
			}
		}
	}
	if !found {
		t.Error("expected the folded negative literal to emit as (- 5)")
	}
}

func TestSymbolicExponentIsInternalError(t *testing.T) {
	p := parser.New(lexer.New(`
constructor of C
interface constructor()

creates
  uint x := 0

behaviour f of C
interface f(uint n)

ensures
  post(x) == 2 ^ n

storage
  x => x
`))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	_, claims, errs := typecheck.Check(prog)
	if errs.HasErrors() {
		t.Fatalf("typecheck errors: %s", errs.Format(""))
	}
	_, err := Synthesize(claims)
	ie, ok := err.(*InternalError)
	if !ok {
		t.Fatalf("expected *InternalError, got %v", err)
	}
	if !strings.Contains(ie.Msg, "symbolic exponent") {
		t.Errorf("internal error message = %q", ie.Msg)
	}
}

func TestModelPlanCoversAllSections(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	var post *Query
	for i := range qs {
		if strings.HasPrefix(qs[i].Description, "postcondition") {
			post = &qs[i]
		}
	}
	if post == nil {
		t.Fatal("missing postcondition query")
	}
	if len(post.Model.Calldata) == 0 {
		t.Error("model plan missing calldata entries")
	}
	if len(post.Model.Environment) == 0 {
		t.Error("model plan missing environment entries")
	}
	if len(post.Model.Prestate) == 0 || len(post.Model.Poststate) == 0 {
		t.Error("model plan missing storage entries")
	}
	for _, e := range post.Model.Calldata {
		if !strings.HasPrefix(e.SMT, "transfer_") {
			t.Errorf("calldata constant %q not prefixed by the interface name", e.SMT)
		}
	}
}

func TestFailClaimsEmitNoQueries(t *testing.T) {
	qs := synthesize(t, tokenSrc)
	for _, q := range qs {
		_ = q
	}
	// The iff split yields Fail claims with no postconditions; none of them
	// may materialize as queries.
	for _, q := range qs {
		if strings.Contains(q.Description, "fail") {
			t.Errorf("unexpected fail-claim query: %+v", q.Description)
		}
	}
}
