package solver

import (
	"strings"
	"testing"

	"github.com/develuxes/solidity-act/internal/acttypes"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		line string
		typ  acttypes.ActType
		want string
	}{
		{"plain integer", "((transfer_value 5))", acttypes.AInteger, "5"},
		{"negative integer", "((x (- 12)))", acttypes.AInteger, "-12"},
		{"boolean true", "((flag true))", acttypes.ABoolean, "true"},
		{"boolean false", "((flag false))", acttypes.ABoolean, "false"},
		{"select chain", "(((select Token_balanceOf_Pre caller) 100))", acttypes.AInteger, "100"},
		{"nested select", "(((select (select Token_allowance_Pre caller) spender) 0))", acttypes.AInteger, "0"},
		{"bytestring", `((name "abc"))`, acttypes.AByteStr, "abc"},
		{"whitespace tolerated", "  ((x 7))  ", acttypes.AInteger, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.line, tt.typ)
			if err != nil {
				t.Fatalf("parseValue(%q) error: %s", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("parseValue(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseValueRejectsGarbage(t *testing.T) {
	for _, tt := range []struct {
		line string
		typ  acttypes.ActType
	}{
		{"sat", acttypes.AInteger},
		{"((x notanumber))", acttypes.AInteger},
		{"((x 5))", acttypes.ABoolean},
		{"(error \"unknown constant\")", acttypes.AInteger},
	} {
		if _, err := parseValue(tt.line, tt.typ); err == nil {
			t.Errorf("parseValue(%q) should fail", tt.line)
		}
	}
}

func TestModelFormatSectionsInFixedOrder(t *testing.T) {
	m := &Model{
		Calldata:    []Binding{{Name: "value", Value: "5"}, {Name: "to", Value: "7"}},
		Environment: []Binding{{Name: "CALLER", Value: "3"}},
		Prestate:    []Binding{{Name: "Token.balanceOf[CALLER]", Value: "10"}},
		Poststate:   []Binding{{Name: "Token.balanceOf[CALLER]", Value: "5"}},
	}
	out := m.Format()

	order := []string{"calldata:", "value = 5", "to = 7", "environment:", "CALLER = 3",
		"prestate:", "Token.balanceOf[CALLER] = 10", "poststate:", "Token.balanceOf[CALLER] = 5"}
	idx := -1
	for _, want := range order {
		next := strings.Index(out, want)
		if next < 0 {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
		if next < idx {
			t.Fatalf("%q appears out of order in:\n%s", want, out)
		}
		idx = next
	}
}

func TestModelFormatSkipsEmptySections(t *testing.T) {
	m := &Model{Calldata: []Binding{{Name: "a", Value: "1"}}}
	out := m.Format()
	for _, absent := range []string{"environment:", "prestate:", "poststate:"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty section %q should be omitted:\n%s", absent, out)
		}
	}
}

func TestConfigArgs(t *testing.T) {
	bin, args := Config{Solver: Z3, TimeoutMS: 20000}.args()
	if bin != "z3" || args[0] != "-in" || args[1] != "-t:20000" {
		t.Errorf("z3 args = %s %v", bin, args)
	}

	bin, args = Config{Solver: CVC4, TimeoutMS: 1000}.args()
	if bin != "cvc4" {
		t.Errorf("cvc4 bin = %s", bin)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"--lang=smt", "--interactive", "--no-interactive-prompt", "--produce-models", "--tlimit-per=1000"} {
		if !strings.Contains(joined, want) {
			t.Errorf("cvc4 args missing %q: %v", want, args)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(""); err != nil || k != Z3 {
		t.Error("empty solver name should default to z3")
	}
	if k, err := ParseKind("cvc4"); err != nil || k != CVC4 {
		t.Error("cvc4 should parse")
	}
	if _, err := ParseKind("yices"); err == nil {
		t.Error("unknown solver should be rejected")
	}
}
