// Package ast defines the untyped Act AST: the raw shape the parser builds
// directly from tokens, before names are resolved or types are checked.
// Every node carries a source position for diagnostics.
package ast

import "github.com/develuxes/solidity-act/internal/diag"

// Node is the base interface every AST node implements.
type Node interface {
	Pos() diag.Position
}

// Expr is any node that denotes a value.
type Expr interface {
	Node
	exprNode()
}

// AbiKind is the family of an ABI type.
type AbiKind int

const (
	AbiUint AbiKind = iota
	AbiInt
	AbiBytes
	AbiBool
	AbiAddress
	AbiContract
)

// AbiType is a parsed ABI type: a family plus, for the sized families, a bit
// or byte width. Bare uint/int default their Size to 256 at parse time.
type AbiType struct {
	Kind     AbiKind
	Size     int    // bit width for uint/int, byte width for bytes
	Contract string // contract name, when Kind == AbiContract
}

func (t AbiType) String() string {
	switch t.Kind {
	case AbiUint:
		return sizedName("uint", t.Size)
	case AbiInt:
		return sizedName("int", t.Size)
	case AbiBytes:
		return sizedName("bytes", t.Size)
	case AbiBool:
		return "bool"
	case AbiAddress:
		return "address"
	case AbiContract:
		return t.Contract
	default:
		return "?"
	}
}

func sizedName(base string, size int) string {
	if size == 0 {
		return base
	}
	return base + itoa(size)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ---- Expressions ----

type Ident struct {
	Position diag.Position
	Name     string
}

func (i *Ident) Pos() diag.Position { return i.Position }
func (*Ident) exprNode()            {}

type BoolLit struct {
	Position diag.Position
	Value    bool
}

func (b *BoolLit) Pos() diag.Position { return b.Position }
func (*BoolLit) exprNode()            {}

type IntLit struct {
	Position diag.Position
	Value    string // decimal literal text; arbitrary precision, kept as text
}

func (i *IntLit) Pos() diag.Position { return i.Position }
func (*IntLit) exprNode()            {}

// EnvExpr references a fixed EthEnv identifier such as CALLER or TIMESTAMP.
type EnvExpr struct {
	Position diag.Position
	Name     string
}

func (e *EnvExpr) Pos() diag.Position { return e.Position }
func (*EnvExpr) exprNode()            {}

// EntryExpr is a name reference that may resolve to a storage slot or a
// calldata declaration; Timing records an explicit pre()/post() wrapper, or
// "" for an untimed / ambient reference.
type EntryExpr struct {
	Position diag.Position
	Timing   string // "", "pre", or "post"
	Name     string
	Args     []Expr // mapping index arguments, empty for a plain variable
}

func (e *EntryExpr) Pos() diag.Position { return e.Position }
func (*EntryExpr) exprNode()            {}

// UnaryExpr is a prefix operator application (currently only `not` and
// unary `-`).
type UnaryExpr struct {
	Position diag.Position
	Op       string
	Operand  Expr
}

func (u *UnaryExpr) Pos() diag.Position { return u.Position }
func (*UnaryExpr) exprNode()            {}

// BinaryExpr is an infix operator application. Op is the textual operator
// spelling (e.g. "+", "and", "==", "=/=", "<=", "in range").
type BinaryExpr struct {
	Position diag.Position
	Op       string
	Left     Expr
	Right    Expr
}

func (b *BinaryExpr) Pos() diag.Position { return b.Position }
func (*BinaryExpr) exprNode()            {}

// RangeExpr is the `expr in range(lo, hi)` sugar: inclusive bound
// membership, desugared by the typechecker into `expr >= lo and expr <= hi`.
type RangeExpr struct {
	Position diag.Position
	Value    Expr
	Lo, Hi   Expr
}

func (r *RangeExpr) Pos() diag.Position { return r.Position }
func (*RangeExpr) exprNode()            {}

// ITEExpr is `if cond then t else f`, usable as an expression.
type ITEExpr struct {
	Position        diag.Position
	Cond, Then, Else Expr
}

func (i *ITEExpr) Pos() diag.Position { return i.Position }
func (*ITEExpr) exprNode()            {}

// CreateExpr constructs a value of contract type by invoking another
// contract's constructor: Create(Contract, args...) [at addr].
type CreateExpr struct {
	Position diag.Position
	Contract string
	Args     []Expr
	At       Expr // optional address expression, nil if absent
}

func (c *CreateExpr) Pos() diag.Position { return c.Position }
func (*CreateExpr) exprNode()            {}

// ---- Declarations ----

// Decl is a typed name, used for interface arguments and creates-block slots.
type Decl struct {
	Position diag.Position
	Name     string
	Type     AbiType
}

// Interface is the calldata signature of a constructor or behaviour:
// `interface name(argType argName, ...)`.
type Interface struct {
	Position diag.Position
	Name     string
	Args     []Decl
}

// SlotType mirrors the data model's Value(AbiType) | Mapping(keys, value).
type SlotKind int

const (
	SlotValue SlotKind = iota
	SlotMapping
)

type SlotType struct {
	Kind     SlotKind
	Value    AbiType   // element/value type (both kinds)
	KeyTypes []AbiType // non-empty iff Kind == SlotMapping
}

// MappingEntry is one `key := value` pair in a mapping initializer.
type MappingEntry struct {
	Keys  []Expr
	Value Expr
}

// CreateAssign is a single slot declaration + initializer inside a
// `creates` block.
type CreateAssign struct {
	Position diag.Position
	Name     string
	Slot     SlotType
	Value    Expr           // initializer, for SlotValue
	Mapping  []MappingEntry // initializer entries, for SlotMapping
}

// Creates is the `creates` block of a constructor definition.
type Creates struct {
	Position diag.Position
	Assigns  []CreateAssign
}

// StorageUpdate is one `loc => rhs` or bare `loc` (read-only / Constant)
// line inside a behaviour/constructor `storage` block.
type StorageUpdate struct {
	Position diag.Position
	Loc      *EntryExpr
	Rhs      Expr // nil => Constant rewrite, loc is held fixed
}

// Case is one guarded branch of a transition's case tree, or the implicit
// single wildcard case of a "direct" postcondition (no case section at all).
type Case struct {
	Position diag.Position
	Guard    Expr // nil marks a wildcard case (`case _:` or the final catch-all)
	Ensures  []Expr
	Updates  []StorageUpdate
	Returns  Expr // nil if the case has no return expression
	Noop     bool // body was the literal `noop` marker
}

// Transition is a source-level behaviour: a named transition of a contract
// driven by an interface call, before claim splitting.
type Transition struct {
	Position diag.Position
	Name     string
	Contract string
	Iface    Interface
	Iff      []Expr
	Cases    []Case
}

// Definition is a source-level constructor: contract-name, interface,
// preconditions, postconditions, invariants, and the `creates` block.
type Definition struct {
	Position   diag.Position
	Contract   string
	Iface      Interface
	Iff        []Expr
	Ensures    []Expr
	Invariants []Expr
	Creates    Creates
	Updates    []StorageUpdate // external-storage rewrites against other contracts
}

// RawBehaviour is either a *Transition or a *Definition.
type RawBehaviour interface {
	Node
	rawBehaviourNode()
}

func (t *Transition) Pos() diag.Position  { return t.Position }
func (*Transition) rawBehaviourNode()     {}
func (d *Definition) Pos() diag.Position  { return d.Position }
func (*Definition) rawBehaviourNode()     {}

// Program is the full parse result: every RawBehaviour in source order.
type Program struct {
	Behaviours []RawBehaviour
}
