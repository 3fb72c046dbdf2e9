// Package acttypes defines the typed core of the Act data model: act-types,
// timing, storage references, and the typed expression sum. Polymorphic
// constructors carry their act-type and timing explicitly instead of leaning
// on the type system to enforce it, and smart constructors (see NewEq,
// NewTEntry, ...) verify tags agree at the AST boundary.
package acttypes

import (
	"fmt"

	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// ActType is the closed sum of value types a typed expression can carry.
type ActType int

const (
	AInteger ActType = iota
	ABoolean
	AByteStr
	AContract
)

func (t ActType) String() string {
	switch t {
	case AInteger:
		return "int"
	case ABoolean:
		return "bool"
	case AByteStr:
		return "bytestring"
	case AContract:
		return "contract"
	default:
		return "?"
	}
}

// Timing is attached to every TEntry in a typed expression: Pre/Post inside
// timed contexts (postconditions, update right-hand sides), Neither inside
// untimed contexts (preconditions, case guards) until setTime rewrites it.
type Timing int

const (
	Neither Timing = iota
	Pre
	Post
)

func (t Timing) String() string {
	switch t {
	case Pre:
		return "pre"
	case Post:
		return "post"
	default:
		return "neither"
	}
}

// SlotKind/SlotType mirror ast.SlotKind/ast.SlotType but at the resolved
// level: sizes and contract names have already been validated against the
// declared ABI type.
type SlotType struct {
	Kind     ast.SlotKind
	Value    ast.AbiType
	KeyTypes []ast.AbiType
}

// Arity is the number of mapping keys (0 for a value slot).
func (s SlotType) Arity() int { return len(s.KeyTypes) }

// ActTypeOf maps an AbiType to its act-type tag.
func ActTypeOf(t ast.AbiType) ActType {
	switch t.Kind {
	case ast.AbiUint, ast.AbiInt:
		return AInteger
	case ast.AbiAddress:
		// Addresses are 160-bit integers: they compare, index mappings, and
		// harmonize with EthEnv constants like CALLER as integers.
		return AInteger
	case ast.AbiBool:
		return ABoolean
	case ast.AbiBytes:
		return AByteStr
	case ast.AbiContract:
		return AContract
	default:
		return AInteger
	}
}

// Store is the global schema: contract name -> slot name -> slot type. Built
// once by internal/store and immutable thereafter.
type Store struct {
	Contracts map[string]map[string]SlotType
}

func NewStore() *Store {
	return &Store{Contracts: make(map[string]map[string]SlotType)}
}

func (s *Store) Lookup(contract, slot string) (SlotType, bool) {
	c, ok := s.Contracts[contract]
	if !ok {
		return SlotType{}, false
	}
	st, ok := c[slot]
	return st, ok
}

// ---- Storage references ----

// StorageRefKind distinguishes the three storage-reference shapes. SField
// (cross-contract access) is part of the data model but unsupported by the
// SMT encoder: query synthesis reports an internal error if it is ever
// reached.
type StorageRefKind int

const (
	SVar StorageRefKind = iota
	SMapping
	SField
)

// StorageRef is the recursive storage-location datum: a variable, a mapping
// application, or (unsupported downstream) a cross-contract field access.
type StorageRef struct {
	Kind     StorageRefKind
	Pos      diag.Position
	Contract string      // SVar only
	Name     string      // SVar/SField slot name
	Parent   *StorageRef // SMapping/SField only
	Index    []Exp       // SMapping only
}

func (r *StorageRef) RootContract() string {
	for r.Kind != SVar {
		r = r.Parent
	}
	return r.Contract
}

func (r *StorageRef) RootName() string {
	for r.Kind != SVar {
		r = r.Parent
	}
	return r.Name
}

// StorageItem pairs a precise act-type with the reference it describes.
type StorageItem struct {
	ActType ActType
	Slot    SlotType
	Ref     *StorageRef
}

// StorageUpdate is an assignment of a new value to a storage item.
type StorageUpdate struct {
	Item StorageItem
	Rhs  Exp
}

// StorageLocation is a read-only reference, used when a slot must be
// constrained (pre == post) without being assigned.
type StorageLocation struct {
	Item StorageItem
}

// RewriteKind distinguishes a held-fixed location from a real update.
type RewriteKind int

const (
	RewriteConstant RewriteKind = iota
	RewriteUpdate
)

// Rewrite is Constant(location) | Rewrite(update).
type Rewrite struct {
	Kind     RewriteKind
	Location StorageLocation // RewriteConstant
	Update   StorageUpdate   // RewriteUpdate
}

// ---- Typed expressions ----

// ExpKind tags the constructor of a typed expression node.
type ExpKind int

const (
	ExpLitInt ExpKind = iota
	ExpLitBool
	ExpVar      // calldata variable
	ExpEnv      // EthEnv constant
	ExpTEntry   // storage read
	ExpITE
	ExpEq
	ExpNEq
	ExpNot
	ExpAnd
	ExpOr
	ExpAdd
	ExpSub
	ExpMul
	ExpDiv
	ExpMod
	ExpExp
	ExpNeg
	ExpLT
	ExpLE
	ExpGT
	ExpGE
	ExpConcat
	ExpCreate
)

// Exp is a typed expression node. Every node carries its ActType explicitly
// as a runtime type witness; binary/comparison nodes are parametric over
// ActType via the Type field on the node itself rather than a Go generic,
// keeping runtime code monomorphic.
type Exp struct {
	Kind    ExpKind
	Pos     diag.Position
	Type    ActType
	Timing  Timing // meaningful only when Kind == ExpTEntry
	IntVal  string
	BoolVal bool
	Name    string // ExpVar / ExpEnv
	Item    StorageItem
	A, B, C Exp // operands; C used only by ITE
	Create  *CreateVal
}

// CreateVal records a Create(Contract, args...) application. Constructing a
// contract value is never constant, so the evaluator always passes it by.
type CreateVal struct {
	Contract string
	Args     []Exp
}

// NewEq builds a polymorphic equality/inequality node after verifying both
// operands share an act-type.
func NewEq(pos diag.Position, neq bool, a, b Exp) (Exp, error) {
	if a.Type != b.Type {
		return Exp{}, fmt.Errorf("cannot harmonize operand types %s and %s", a.Type, b.Type)
	}
	k := ExpEq
	if neq {
		k = ExpNEq
	}
	return Exp{Kind: k, Pos: pos, Type: ABoolean, A: a, B: b}, nil
}

// NewITE builds an if-then-else node, requiring the condition to be boolean
// and both branches to share an act-type.
func NewITE(pos diag.Position, cond, then, els Exp) (Exp, error) {
	if cond.Type != ABoolean {
		return Exp{}, fmt.Errorf("if-condition must be boolean, got %s", cond.Type)
	}
	if then.Type != els.Type {
		return Exp{}, fmt.Errorf("if-branches disagree: %s vs %s", then.Type, els.Type)
	}
	return Exp{Kind: ExpITE, Pos: pos, Type: then.Type, A: cond, B: then, C: els}, nil
}

// NewTEntry builds a storage-read node; the item's ActType becomes the
// node's ActType, so a subsequent mismatch shows up as a smart-constructor
// error rather than propagating silently.
func NewTEntry(pos diag.Position, timing Timing, item StorageItem) Exp {
	return Exp{Kind: ExpTEntry, Pos: pos, Type: item.ActType, Timing: timing, Item: item}
}

// arity classifies which operand slots a Kind
// actually populates, so SetTime only recurses into real children instead of
// blindly walking A/B/C (whose zero value is itself a valid, childless
// ExpLitInt node and would otherwise recurse forever).
func arity(k ExpKind) int {
	switch k {
	case ExpLitInt, ExpLitBool, ExpVar, ExpEnv, ExpTEntry:
		return 0
	case ExpNot, ExpNeg:
		return 1
	case ExpITE:
		return 3
	case ExpCreate:
		return 0
	default:
		return 2
	}
}

// SetTime rewrites every Neither timing occurrence in e to t, recursively.
// It is the only place a Timing value changes after construction. Storage
// reads nested inside a reference's mapping indexes are rewritten too.
func SetTime(e Exp, t Timing) Exp {
	if e.Kind == ExpTEntry {
		if e.Timing == Neither {
			e.Timing = t
		}
		e.Item.Ref = setTimeRef(e.Item.Ref, t)
	}
	switch arity(e.Kind) {
	case 1:
		e.A = SetTime(e.A, t)
	case 2:
		e.A = SetTime(e.A, t)
		e.B = SetTime(e.B, t)
	case 3:
		e.A = SetTime(e.A, t)
		e.B = SetTime(e.B, t)
		e.C = SetTime(e.C, t)
	}
	if e.Create != nil {
		args := make([]Exp, len(e.Create.Args))
		for i, a := range e.Create.Args {
			args[i] = SetTime(a, t)
		}
		e.Create = &CreateVal{Contract: e.Create.Contract, Args: args}
	}
	return e
}

func setTimeRef(r *StorageRef, t Timing) *StorageRef {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Parent = setTimeRef(r.Parent, t)
	if len(r.Index) > 0 {
		cp.Index = make([]Exp, len(r.Index))
		for i, idx := range r.Index {
			cp.Index[i] = SetTime(idx, t)
		}
	}
	return &cp
}
