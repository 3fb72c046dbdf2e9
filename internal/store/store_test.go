package store

import (
	"strings"
	"testing"

	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/lexer"
	"github.com/develuxes/solidity-act/internal/parser"
)

func discover(t *testing.T, src string) (*diag.Accumulator, map[string]map[string]bool) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	errs := &diag.Accumulator{}
	s := Discover(prog, errs)

	shape := map[string]map[string]bool{}
	for c, slots := range s.Contracts {
		shape[c] = map[string]bool{}
		for name := range slots {
			shape[c][name] = true
		}
	}
	return errs, shape
}

func TestDiscoverCollectsSlots(t *testing.T) {
	errs, shape := discover(t, `
constructor of Token
interface constructor(uint supply)

creates
  uint totalSupply := supply
  mapping(address => uint) balanceOf := [CALLER := supply]

constructor of Amm
interface constructor(uint a, uint b)

creates
  uint x := a
  uint y := b
`)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Diagnostics())
	}
	for _, want := range []struct{ contract, slot string }{
		{"Token", "totalSupply"}, {"Token", "balanceOf"}, {"Amm", "x"}, {"Amm", "y"},
	} {
		if !shape[want.contract][want.slot] {
			t.Errorf("missing slot %s.%s in discovered store", want.contract, want.slot)
		}
	}
}

func TestDuplicateSlotReportedAtBothDeclarations(t *testing.T) {
	errs, shape := discover(t, `
constructor of C
interface constructor()

creates
  uint x := 1
  uint x := 2
`)
	var lines []int
	for _, d := range errs.Diagnostics() {
		if strings.Contains(d.Message, "duplicate slot") {
			lines = append(lines, d.Pos.Line)
		}
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 duplicate-slot diagnostics, got %d", len(lines))
	}
	if lines[0] != 6 || lines[1] != 7 {
		t.Errorf("diagnostic lines = %v, want [6 7]", lines)
	}
	if !shape["C"]["x"] {
		t.Error("first declaration of x should survive")
	}
}

func TestDuplicateContractReported(t *testing.T) {
	errs, _ := discover(t, `
constructor of C
interface constructor()

creates
  uint x := 1

constructor of C
interface constructor()

creates
  uint y := 1
`)
	found := false
	for _, d := range errs.Diagnostics() {
		if strings.Contains(d.Message, "duplicate constructor") {
			found = true
		}
	}
	if !found {
		t.Error("expected a duplicate-constructor diagnostic")
	}
}
