// Package parser implements a recursive-descent parser that turns a lexer's
// token stream into the untyped AST in internal/ast. Every node it builds is
// position-tagged; parse failures are accumulated rather than raised one at
// a time, so a single run surfaces every syntax error it can find.
package parser

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
	"github.com/develuxes/solidity-act/internal/lexer"
	"github.com/develuxes/solidity-act/internal/token"
)

// Parser holds the cursor over a two-token lookahead window, following the
// classic curToken/peekToken recursive-descent shape: no backtracking is
// needed because the Act grammar's keywords disambiguate every production
// one token ahead.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token
	errs diag.Accumulator
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Errors returns every accumulated syntax diagnostic.
func (p *Parser) Errors() []*diag.Diagnostic {
	return p.errs.Diagnostics()
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

// expect advances past cur if it matches t, otherwise records a syntax
// error at cur's position and leaves the cursor where it was (so callers
// that keep parsing after an error don't desync the whole file).
func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errorf("expected %s, found %s %q", t, p.cur.Type, p.cur.Literal)
	return false
}

func (p *Parser) errorf(format string, args ...any) {
	if p.curIs(token.EOF) {
		p.errs.AddUser(p.cur.Pos, "unexpected end of file: "+format, args...)
		return
	}
	p.errs.AddUser(p.cur.Pos, format, args...)
}

// ParseProgram parses the whole token stream into a Program, accumulating
// syntax errors and skipping to the next recognizable top-level keyword on
// failure so later behaviours still get a chance to parse cleanly.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		switch p.cur.Type {
		case token.CONSTRUCTOR:
			prog.Behaviours = append(prog.Behaviours, p.parseDefinition())
		case token.BEHAVIOUR:
			prog.Behaviours = append(prog.Behaviours, p.parseTransition())
		default:
			p.errorf("expected 'constructor' or 'behaviour', found %q", p.cur.Literal)
			p.syncToTopLevel()
		}
	}
	return prog
}

func (p *Parser) syncToTopLevel() {
	for !p.curIs(token.EOF) && !p.curIs(token.CONSTRUCTOR) && !p.curIs(token.BEHAVIOUR) {
		p.next()
	}
}

// ---- Definitions (constructors) ----

func (p *Parser) parseDefinition() *ast.Definition {
	pos := p.cur.Pos
	p.next() // consume 'constructor'
	p.expect(token.OF)
	contract := p.parseIdentName()

	def := &ast.Definition{Position: pos, Contract: contract}
	def.Iface = p.parseInterface("constructor")

	for {
		switch p.cur.Type {
		case token.IFF:
			p.next()
			def.Iff = append(def.Iff, p.parseIffBody()...)
		case token.ENSURES:
			p.next()
			def.Ensures = append(def.Ensures, p.parseExprList()...)
		case token.INVARIANTS:
			p.next()
			def.Invariants = append(def.Invariants, p.parseExprList()...)
		case token.STORAGE:
			p.next()
			def.Updates = append(def.Updates, p.parseStorageUpdates()...)
		case token.CREATES:
			def.Creates = p.parseCreates()
		default:
			return def
		}
	}
}

func (p *Parser) parseCreates() ast.Creates {
	pos := p.cur.Pos
	p.next() // consume 'creates'
	c := ast.Creates{Position: pos}
	for p.canStartType() {
		c.Assigns = append(c.Assigns, p.parseCreateAssign())
	}
	return c
}

func (p *Parser) canStartType() bool {
	return p.curIs(token.IDENT) || p.curIs(token.MAPPING)
}

func (p *Parser) parseCreateAssign() ast.CreateAssign {
	pos := p.cur.Pos
	slot := p.parseSlotType()
	name := p.parseIdentName()
	p.expect(token.ASSIGN)

	out := ast.CreateAssign{Position: pos, Name: name, Slot: slot}
	if slot.Kind == ast.SlotMapping {
		out.Mapping = p.parseMappingLiteral()
	} else {
		out.Value = p.parseExpr()
	}
	return out
}

func (p *Parser) parseSlotType() ast.SlotType {
	if p.curIs(token.MAPPING) {
		p.next()
		p.expect(token.LPAREN)
		var keys []ast.AbiType
		keys = append(keys, p.parseAbiType())
		for p.curIs(token.ARROW) {
			p.next()
			keys = append(keys, p.parseAbiType())
		}
		// Last parsed type is the value type; everything before is a key.
		value := keys[len(keys)-1]
		keys = keys[:len(keys)-1]
		p.expect(token.RPAREN)
		return ast.SlotType{Kind: ast.SlotMapping, Value: value, KeyTypes: keys}
	}
	return ast.SlotType{Kind: ast.SlotValue, Value: p.parseAbiType()}
}

func (p *Parser) parseMappingLiteral() []ast.MappingEntry {
	p.expect(token.LBRACKET)
	var entries []ast.MappingEntry
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		var keys []Expr1
		keys = append(keys, p.parseExpr())
		for p.curIs(token.COMMA) {
			p.next()
			keys = append(keys, p.parseExpr())
		}
		p.expect(token.ASSIGN)
		val := p.parseExpr()
		entries = append(entries, ast.MappingEntry{Keys: keys, Value: val})
		if p.curIs(token.COMMA) {
			p.next()
		}
	}
	p.expect(token.RBRACKET)
	return entries
}

// Expr1 is a thin local alias kept so parseMappingLiteral reads naturally;
// it is exactly ast.Expr.
type Expr1 = ast.Expr

// ---- Transitions (behaviours) ----

func (p *Parser) parseTransition() *ast.Transition {
	pos := p.cur.Pos
	p.next() // consume 'behaviour'
	name := p.parseIdentName()
	p.expect(token.OF)
	contract := p.parseIdentName()

	t := &ast.Transition{Position: pos, Name: name, Contract: contract}
	t.Iface = p.parseInterface(name)

	for p.curIs(token.IFF) {
		p.next()
		t.Iff = append(t.Iff, p.parseIffBody()...)
	}

	if p.curIs(token.CASE) {
		for p.curIs(token.CASE) {
			t.Cases = append(t.Cases, p.parseCase())
		}
	} else {
		// A single "direct" postcondition becomes one wildcard case.
		t.Cases = append(t.Cases, p.parseCaseBody(nil))
	}
	return t
}

func (p *Parser) parseCase() ast.Case {
	pos := p.cur.Pos
	p.next() // consume 'case'
	var guard ast.Expr
	if p.curIs(token.IDENT) && p.cur.Literal == "_" {
		p.next()
	} else {
		guard = p.parseExpr()
	}
	p.expect(token.COLON)
	c := p.parseCaseBody(guard)
	c.Position = pos
	return c
}

func (p *Parser) parseCaseBody(guard ast.Expr) ast.Case {
	c := ast.Case{Position: p.cur.Pos, Guard: guard}
	if p.curIs(token.NOOP) {
		p.next()
		c.Noop = true
		return c
	}
	for {
		switch p.cur.Type {
		case token.STORAGE:
			p.next()
			c.Updates = append(c.Updates, p.parseStorageUpdates()...)
		case token.ENSURES:
			p.next()
			c.Ensures = append(c.Ensures, p.parseExprList()...)
		case token.RETURNS:
			p.next()
			c.Returns = p.parseExpr()
		default:
			return c
		}
	}
}

func (p *Parser) parseStorageUpdates() []ast.StorageUpdate {
	var ups []ast.StorageUpdate
	for p.curIs(token.IDENT) {
		pos := p.cur.Pos
		loc := p.parseEntry("")
		up := ast.StorageUpdate{Position: pos, Loc: loc}
		if p.curIs(token.ARROW) {
			p.next()
			up.Rhs = p.parseExpr()
		}
		ups = append(ups, up)
	}
	return ups
}

// ---- Shared fragments ----

func (p *Parser) parseInterface(defaultName string) ast.Interface {
	pos := p.cur.Pos
	p.expect(token.INTERFACE)
	name := defaultName
	switch {
	case p.curIs(token.IDENT):
		name = p.parseIdentName()
	case p.curIs(token.CONSTRUCTOR):
		// `interface constructor(...)` spells the name with the keyword.
		name = "constructor"
		p.next()
	}
	iface := ast.Interface{Position: pos, Name: name}
	p.expect(token.LPAREN)
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		declPos := p.cur.Pos
		typ := p.parseAbiType()
		argName := p.parseIdentName()
		iface.Args = append(iface.Args, ast.Decl{Position: declPos, Name: argName, Type: typ})
		if p.curIs(token.COMMA) {
			p.next()
		}
	}
	p.expect(token.RPAREN)
	return iface
}

func (p *Parser) parseIdentName() string {
	if !p.curIs(token.IDENT) {
		p.errorf("expected identifier, found %q", p.cur.Literal)
		return ""
	}
	name := p.cur.Literal
	p.next()
	return name
}

// parseIffBody parses the body of an `iff` section: either a plain expression
// list, or the `iff in range <type>` form, which wraps every listed
// expression in a range-membership check over the type's value bounds.
func (p *Parser) parseIffBody() []ast.Expr {
	if !p.curIs(token.IN) {
		return p.parseExprList()
	}
	p.next() // consume 'in'
	p.expect(token.RANGE)
	typ := p.parseAbiType()
	lo, hi := typeBounds(typ)

	exprs := p.parseExprList()
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = &ast.RangeExpr{
			Position: e.Pos(),
			Value:    e,
			Lo:       &ast.IntLit{Position: e.Pos(), Value: lo},
			Hi:       &ast.IntLit{Position: e.Pos(), Value: hi},
		}
	}
	return out
}

// typeBounds returns the inclusive value bounds of an integer ABI type as
// decimal literal text: [0, 2^N-1] for uintN and address, [-2^(N-1),
// 2^(N-1)-1] for intN. Non-integer types fall back to uint256 bounds; the
// typechecker rejects the membership check against them anyway.
func typeBounds(t ast.AbiType) (lo, hi string) {
	one := big.NewInt(1)
	switch t.Kind {
	case ast.AbiInt:
		half := new(big.Int).Lsh(one, uint(t.Size-1))
		return new(big.Int).Neg(half).String(), new(big.Int).Sub(half, one).String()
	case ast.AbiAddress:
		return "0", new(big.Int).Sub(new(big.Int).Lsh(one, 160), one).String()
	case ast.AbiUint:
		return "0", new(big.Int).Sub(new(big.Int).Lsh(one, uint(t.Size)), one).String()
	default:
		return "0", new(big.Int).Sub(new(big.Int).Lsh(one, 256), one).String()
	}
}

// parseExprList reads one boolean expression per line-like clause until the
// next section keyword or EOF, used for iff/ensures/invariants blocks.
func (p *Parser) parseExprList() []ast.Expr {
	var out []ast.Expr
	for p.isExprStart() {
		out = append(out, p.parseExpr())
	}
	return out
}

func (p *Parser) isExprStart() bool {
	switch p.cur.Type {
	case token.IDENT, token.INT, token.TRUE, token.FALSE, token.NOT, token.MINUS,
		token.LPAREN, token.IF, token.PRE, token.POST:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAbiType() ast.AbiType {
	if !p.curIs(token.IDENT) {
		p.errorf("expected type, found %q", p.cur.Literal)
		return ast.AbiType{}
	}
	name := p.cur.Literal
	p.next()
	return parseAbiTypeName(name)
}

func parseAbiTypeName(name string) ast.AbiType {
	switch {
	case name == "bool":
		return ast.AbiType{Kind: ast.AbiBool}
	case name == "address":
		return ast.AbiType{Kind: ast.AbiAddress}
	case name == "uint":
		return ast.AbiType{Kind: ast.AbiUint, Size: 256}
	case name == "int":
		return ast.AbiType{Kind: ast.AbiInt, Size: 256}
	case strings.HasPrefix(name, "uint"):
		if n, err := strconv.Atoi(name[4:]); err == nil {
			return ast.AbiType{Kind: ast.AbiUint, Size: n}
		}
	case strings.HasPrefix(name, "int"):
		if n, err := strconv.Atoi(name[3:]); err == nil {
			return ast.AbiType{Kind: ast.AbiInt, Size: n}
		}
	case strings.HasPrefix(name, "bytes"):
		if n, err := strconv.Atoi(name[5:]); err == nil {
			return ast.AbiType{Kind: ast.AbiBytes, Size: n}
		}
	}
	return ast.AbiType{Kind: ast.AbiContract, Contract: name}
}

// ---- Expressions (precedence-climbing recursive descent) ----

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.curIs(token.OR) {
		pos := p.cur.Pos
		p.next()
		left = &ast.BinaryExpr{Position: pos, Op: "or", Left: left, Right: p.parseAnd()}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.curIs(token.AND) {
		pos := p.cur.Pos
		p.next()
		left = &ast.BinaryExpr{Position: pos, Op: "and", Left: left, Right: p.parseNot()}
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.curIs(token.NOT) {
		pos := p.cur.Pos
		p.next()
		return &ast.UnaryExpr{Position: pos, Op: "not", Operand: p.parseNot()}
	}
	return p.parseEquality()
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.curIs(token.EQ) || p.curIs(token.NEQ) {
		op := "=="
		if p.curIs(token.NEQ) {
			op = "=/="
		}
		pos := p.cur.Pos
		p.next()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: p.parseRelational()}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for {
		switch p.cur.Type {
		case token.LT, token.LE, token.GT, token.GE:
			op := p.cur.Type.String()
			pos := p.cur.Pos
			p.next()
			left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: p.parseAdditive()}
		case token.IN:
			pos := p.cur.Pos
			p.next()
			p.expect(token.RANGE)
			p.expect(token.LPAREN)
			lo := p.parseExpr()
			p.expect(token.COMMA)
			hi := p.parseExpr()
			p.expect(token.RPAREN)
			left = &ast.RangeExpr{Position: pos, Value: left, Lo: lo, Hi: hi}
		default:
			return left
		}
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) || p.curIs(token.CONCAT) {
		op := p.cur.Type.String()
		pos := p.cur.Pos
		p.next()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: p.parseMultiplicative()}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.curIs(token.STAR) || p.curIs(token.SLASH) || p.curIs(token.PERCENT) {
		op := p.cur.Type.String()
		pos := p.cur.Pos
		p.next()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: p.parseUnary()}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.curIs(token.MINUS) {
		pos := p.cur.Pos
		p.next()
		return &ast.UnaryExpr{Position: pos, Op: "-", Operand: p.parseUnary()}
	}
	return p.parseExponent()
}

func (p *Parser) parseExponent() ast.Expr {
	left := p.parsePrimary()
	if p.curIs(token.CARET) {
		pos := p.cur.Pos
		p.next()
		right := p.parseExponent() // right-associative
		return &ast.BinaryExpr{Position: pos, Op: "^", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.cur.Pos
	switch p.cur.Type {
	case token.INT:
		lit := p.cur.Literal
		p.next()
		return &ast.IntLit{Position: pos, Value: lit}
	case token.TRUE:
		p.next()
		return &ast.BoolLit{Position: pos, Value: true}
	case token.FALSE:
		p.next()
		return &ast.BoolLit{Position: pos, Value: false}
	case token.LPAREN:
		p.next()
		e := p.parseExpr()
		p.expect(token.RPAREN)
		return e
	case token.IF:
		p.next()
		cond := p.parseExpr()
		p.expect(token.THEN)
		then := p.parseExpr()
		p.expect(token.ELSE)
		els := p.parseExpr()
		return &ast.ITEExpr{Position: pos, Cond: cond, Then: then, Else: els}
	case token.PRE:
		p.next()
		p.expect(token.LPAREN)
		e := p.parseEntry("pre")
		p.expect(token.RPAREN)
		return e
	case token.POST:
		p.next()
		p.expect(token.LPAREN)
		e := p.parseEntry("post")
		p.expect(token.RPAREN)
		return e
	case token.IDENT:
		return p.parseIdentOrEntryOrCreate()
	default:
		p.errorf("unexpected token %q in expression", p.cur.Literal)
		p.next()
		return &ast.BoolLit{Position: pos, Value: false}
	}
}

func (p *Parser) parseIdentOrEntryOrCreate() ast.Expr {
	pos := p.cur.Pos
	name := p.cur.Literal

	if name == "Create" {
		p.next()
		return p.parseCreate(pos)
	}
	if _, ok := token.EnvIdents[name]; ok {
		p.next()
		return &ast.EnvExpr{Position: pos, Name: name}
	}
	return p.parseEntry("")
}

func (p *Parser) parseEntry(timing string) *ast.EntryExpr {
	pos := p.cur.Pos
	name := p.parseIdentName()
	e := &ast.EntryExpr{Position: pos, Timing: timing, Name: name}
	for p.curIs(token.LBRACKET) {
		p.next()
		e.Args = append(e.Args, p.parseExpr())
		for p.curIs(token.COMMA) {
			p.next()
			e.Args = append(e.Args, p.parseExpr())
		}
		p.expect(token.RBRACKET)
	}
	return e
}

func (p *Parser) parseCreate(pos diag.Position) ast.Expr {
	p.expect(token.LPAREN)
	contract := p.parseIdentName()
	var args []ast.Expr
	for p.curIs(token.COMMA) {
		p.next()
		args = append(args, p.parseExpr())
	}
	p.expect(token.RPAREN)
	c := &ast.CreateExpr{Position: pos, Contract: contract, Args: args}
	if p.curIs(token.AT) {
		p.next()
		c.At = p.parseExpr()
	}
	return c
}
