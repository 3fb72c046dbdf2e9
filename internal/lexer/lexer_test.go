package lexer

import (
	"testing"

	"github.com/develuxes/solidity-act/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `behaviour transfer of Token
interface transfer(uint value, address to)

iff
  CALLVALUE == 0
  balanceOf[to] + value < 2^256
`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.BEHAVIOUR, "behaviour"},
		{token.IDENT, "transfer"},
		{token.OF, "of"},
		{token.IDENT, "Token"},
		{token.INTERFACE, "interface"},
		{token.IDENT, "transfer"},
		{token.LPAREN, "("},
		{token.IDENT, "uint"},
		{token.IDENT, "value"},
		{token.COMMA, ","},
		{token.IDENT, "address"},
		{token.IDENT, "to"},
		{token.RPAREN, ")"},
		{token.IFF, "iff"},
		{token.IDENT, "CALLVALUE"},
		{token.EQ, "=="},
		{token.INT, "0"},
		{token.IDENT, "balanceOf"},
		{token.LBRACKET, "["},
		{token.IDENT, "to"},
		{token.RBRACKET, "]"},
		{token.PLUS, "+"},
		{token.IDENT, "value"},
		{token.LT, "<"},
		{token.INT, "2"},
		{token.CARET, "^"},
		{token.INT, "256"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestSymbols(t *testing.T) {
	input := `:= => == =/= >= <= ++ .. + - * / % ^ ( ) [ ] { } , ; : .`

	expected := []token.Type{
		token.ASSIGN, token.ARROW, token.EQ, token.NEQ, token.GE, token.LE,
		token.CONCAT, token.ELLIPSIS, token.PLUS, token.MINUS, token.STAR,
		token.SLASH, token.PERCENT, token.CARET, token.LPAREN, token.RPAREN,
		token.LBRACKET, token.RBRACKET, token.LBRACE, token.RBRACE,
		token.COMMA, token.SEMI, token.COLON, token.DOT, token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("symbols[%d] - expected %q, got %q (literal=%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestKeywordsAndSpellings(t *testing.T) {
	// behavior (US spelling) lexes to the same keyword as behaviour.
	l := New("behavior behaviour iff in range noop mapping at pre post")
	expected := []token.Type{
		token.BEHAVIOUR, token.BEHAVIOUR, token.IFF, token.IN, token.RANGE,
		token.NOOP, token.MAPPING, token.AT, token.PRE, token.POST, token.EOF,
	}
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("keywords[%d] - expected %q, got %q", i, want, tok.Type)
		}
	}
}

func TestCommentsAndPositions(t *testing.T) {
	input := "// leading comment\nx := 1 // trailing\ny"

	l := New(input)

	tok := l.NextToken()
	if tok.Literal != "x" || tok.Pos.Line != 2 || tok.Pos.Column != 1 {
		t.Fatalf("expected x at 2:1, got %q at %s", tok.Literal, tok.Pos)
	}
	tok = l.NextToken() // :=
	tok = l.NextToken() // 1
	if tok.Literal != "1" || tok.Pos.Line != 2 || tok.Pos.Column != 6 {
		t.Fatalf("expected 1 at 2:6, got %q at %s", tok.Literal, tok.Pos)
	}
	tok = l.NextToken()
	if tok.Literal != "y" || tok.Pos.Line != 3 || tok.Pos.Column != 1 {
		t.Fatalf("expected y at 3:1, got %q at %s", tok.Literal, tok.Pos)
	}
}

func TestEnvIdentsStayIdents(t *testing.T) {
	// EthEnv names are plain identifiers at the lexer level; resolution
	// against the fixed table happens later.
	l := New("CALLER TIMESTAMP BLOCKHASH")
	for i := 0; i < 3; i++ {
		tok := l.NextToken()
		if tok.Type != token.IDENT {
			t.Fatalf("env ident %d lexed as %q, want IDENT", i, tok.Type)
		}
	}
}

func TestIllegalToken(t *testing.T) {
	l := New("x ? y")
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL || tok.Literal != "?" {
		t.Fatalf("expected ILLEGAL %q, got %q %q", "?", tok.Type, tok.Literal)
	}
}
