package parser

import (
	"strings"
	"testing"

	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return prog
}

const tokenSrc = `
constructor of Token
interface constructor(uint _totalSupply)

creates
  uint totalSupply := _totalSupply
  mapping(address => uint) balanceOf := [CALLER := _totalSupply]

behaviour transfer of Token
interface transfer(uint value, address to)

iff
  CALLVALUE == 0
  value <= balanceOf[CALLER]

case CALLER =/= to:

  storage
    balanceOf[CALLER] => balanceOf[CALLER] - value
    balanceOf[to] => balanceOf[to] + value

  returns 1

case _:

  returns 1
`

func TestParseProgramShape(t *testing.T) {
	prog := parse(t, tokenSrc)
	if len(prog.Behaviours) != 2 {
		t.Fatalf("expected 2 top-level behaviours, got %d", len(prog.Behaviours))
	}

	def, ok := prog.Behaviours[0].(*ast.Definition)
	if !ok {
		t.Fatalf("expected first behaviour to be a Definition, got %T", prog.Behaviours[0])
	}
	if def.Contract != "Token" {
		t.Errorf("definition contract = %q, want Token", def.Contract)
	}
	if len(def.Creates.Assigns) != 2 {
		t.Fatalf("expected 2 creates assigns, got %d", len(def.Creates.Assigns))
	}
	m := def.Creates.Assigns[1]
	if m.Slot.Kind != ast.SlotMapping || len(m.Slot.KeyTypes) != 1 {
		t.Errorf("balanceOf slot = %+v, want unary mapping", m.Slot)
	}
	if len(m.Mapping) != 1 || len(m.Mapping[0].Keys) != 1 {
		t.Errorf("balanceOf initializer = %+v, want one single-key entry", m.Mapping)
	}

	tr, ok := prog.Behaviours[1].(*ast.Transition)
	if !ok {
		t.Fatalf("expected second behaviour to be a Transition, got %T", prog.Behaviours[1])
	}
	if tr.Name != "transfer" || tr.Contract != "Token" {
		t.Errorf("transition = %s of %s, want transfer of Token", tr.Name, tr.Contract)
	}
	if len(tr.Iff) != 2 {
		t.Errorf("expected 2 iff preconditions, got %d", len(tr.Iff))
	}
	if len(tr.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(tr.Cases))
	}
	if tr.Cases[0].Guard == nil {
		t.Error("first case lost its guard")
	}
	if tr.Cases[1].Guard != nil {
		t.Error("wildcard case should parse with a nil guard")
	}
	if len(tr.Cases[0].Updates) != 2 {
		t.Errorf("expected 2 storage updates in first case, got %d", len(tr.Cases[0].Updates))
	}
	if tr.Cases[0].Returns == nil || tr.Cases[1].Returns == nil {
		t.Error("both cases should carry a returns expression")
	}
}

func TestDirectBodyBecomesSingleWildcardCase(t *testing.T) {
	prog := parse(t, `
behaviour poke of C
interface poke()

storage
  x => x + 1
`)
	tr := prog.Behaviours[0].(*ast.Transition)
	if len(tr.Cases) != 1 || tr.Cases[0].Guard != nil {
		t.Fatalf("direct body should parse as one nil-guard case, got %+v", tr.Cases)
	}
}

func TestIffInRangeDesugarsToRangeExpr(t *testing.T) {
	prog := parse(t, `
behaviour f of C
interface f(uint a)

iff in range uint8
  a
  a + 1

storage
  x => a
`)
	tr := prog.Behaviours[0].(*ast.Transition)
	if len(tr.Iff) != 2 {
		t.Fatalf("expected 2 desugared preconditions, got %d", len(tr.Iff))
	}
	r, ok := tr.Iff[0].(*ast.RangeExpr)
	if !ok {
		t.Fatalf("expected RangeExpr, got %T", tr.Iff[0])
	}
	if lo := r.Lo.(*ast.IntLit).Value; lo != "0" {
		t.Errorf("uint8 low bound = %s, want 0", lo)
	}
	if hi := r.Hi.(*ast.IntLit).Value; hi != "255" {
		t.Errorf("uint8 high bound = %s, want 255", hi)
	}
}

func TestSignedTypeBounds(t *testing.T) {
	lo, hi := typeBounds(ast.AbiType{Kind: ast.AbiInt, Size: 8})
	if lo != "-128" || hi != "127" {
		t.Fatalf("int8 bounds = [%s, %s], want [-128, 127]", lo, hi)
	}
}

func TestExponentIsRightAssociative(t *testing.T) {
	prog := parse(t, `
behaviour f of C
interface f()

ensures
  x == 2 ^ 3 ^ 2
`)
	tr := prog.Behaviours[0].(*ast.Transition)
	eq := tr.Cases[0].Ensures[0].(*ast.BinaryExpr)
	outer := eq.Right.(*ast.BinaryExpr)
	if outer.Op != "^" {
		t.Fatalf("expected ^ at top of right operand, got %q", outer.Op)
	}
	inner, ok := outer.Right.(*ast.BinaryExpr)
	if !ok || inner.Op != "^" {
		t.Fatalf("expected right-nested ^, got %#v", outer.Right)
	}
}

func TestPrePostWrappers(t *testing.T) {
	prog := parse(t, `
behaviour f of C
interface f()

ensures
  post(x) == pre(x) + 1
`)
	tr := prog.Behaviours[0].(*ast.Transition)
	eq := tr.Cases[0].Ensures[0].(*ast.BinaryExpr)
	if l := eq.Left.(*ast.EntryExpr); l.Timing != "post" {
		t.Errorf("left timing = %q, want post", l.Timing)
	}
	add := eq.Right.(*ast.BinaryExpr)
	if r := add.Left.(*ast.EntryExpr); r.Timing != "pre" {
		t.Errorf("right timing = %q, want pre", r.Timing)
	}
}

func TestSyntaxErrorHasPosition(t *testing.T) {
	p := New(lexer.New("behaviour of Token"))
	p.ParseProgram()
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatal("expected a syntax error")
	}
	if errs[0].Pos.Line != 1 {
		t.Errorf("error line = %d, want 1", errs[0].Pos.Line)
	}
}

func TestErrorsAccumulateAcrossBehaviours(t *testing.T) {
	src := `
behaviour of Token
interface f()

junk here

behaviour g of Token
interface g()

returns 1
`
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected accumulated errors")
	}
	// The last behaviour still parses despite the earlier garbage.
	found := false
	for _, rb := range prog.Behaviours {
		if tr, ok := rb.(*ast.Transition); ok && tr.Name == "g" {
			found = true
		}
	}
	if !found {
		t.Error("parser failed to resynchronize at the next top-level keyword")
	}
}

func TestEOFErrorMentionsEndOfFile(t *testing.T) {
	p := New(lexer.New("behaviour f of C\ninterface f("))
	p.ParseProgram()
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatal("expected an error at EOF")
	}
	last := errs[len(errs)-1]
	if !strings.Contains(last.Message, "end of file") {
		t.Errorf("EOF error message = %q, want it to mention end of file", last.Message)
	}
}
