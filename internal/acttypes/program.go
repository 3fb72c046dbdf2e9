package acttypes

import "github.com/develuxes/solidity-act/internal/diag"

// InvariantPredicate holds an invariant in both shapes: Untimed is the
// single boolean expression as written; Pre/Post are the timed pair derived
// from it by SetTime(Pre) / SetTime(Post).
type InvariantPredicate struct {
	Untimed Exp
	Pre     Exp
	Post    Exp
}

// Invariant is a contract-level property: extra preconditions, bounds on the
// storage it reads, and the predicate itself.
type Invariant struct {
	Contract   string
	Preconds   []Exp
	Bounds     []Exp
	Predicate  InvariantPredicate
	Pos        diag.Position
}

// Constructor is the typed form of a source-level `constructor`.
type Constructor struct {
	Contract     string
	Interface    string
	Args         []Decl
	Preconds     []Exp
	Postconds    []Exp
	Invariants   []Invariant
	Initial      []Rewrite // creates-block initial storage updates (Post-only)
	ExternalRews []Rewrite // external-storage rewrites against other contracts
	Pos          diag.Position
}

// Decl is a resolved calldata declaration: name + act-type.
type Decl struct {
	Name    string
	ActType ActType
	Abi     SlotType // Value kind only; reuses SlotType.Value for the ABI type
}

// Behaviour is the typed form of a source-level transition, still whole (not
// yet split into Pass/Fail claims).
type Behaviour struct {
	Name      string
	Contract  string
	Interface string
	Args      []Decl
	Preconds  []Exp  // iff list
	CaseCond  Exp    // normalized case guard
	Postconds []Exp  // ensures, Timed
	Updates   []Rewrite
	Return    *Exp // nil if the behaviour has no return expression
	Pos       diag.Position
}

// Act is the full typed program: the store plus, per contract, its
// constructor and the list of behaviours defined on it.
type Act struct {
	Store    *Store
	Contract []ContractAct
}

type ContractAct struct {
	Name        string
	Constructor *Constructor
	Behaviours  []*Behaviour
	Invariants  []Invariant
}

// ---- Claims ----

// ClaimKind distinguishes the three obligation shapes from the glossary.
type ClaimKind int

const (
	ClaimBehaviourPass ClaimKind = iota
	ClaimBehaviourFail
	ClaimConstructorPass
	ClaimConstructorFail
	ClaimInvariant
)

func (k ClaimKind) String() string {
	switch k {
	case ClaimBehaviourPass:
		return "Pass"
	case ClaimBehaviourFail:
		return "Fail"
	case ClaimConstructorPass:
		return "Pass"
	case ClaimConstructorFail:
		return "Fail"
	case ClaimInvariant:
		return "Invariant"
	default:
		return "?"
	}
}

// Claim is a single proof obligation, produced by claim splitting for
// behaviours/constructors, or directly for invariants.
type Claim struct {
	Kind        ClaimKind
	Contract    string
	Name        string // behaviour/constructor interface name
	Precond     Exp
	Postconds   []Exp
	Updates     []Rewrite
	Return      *Exp
	Invariant   *Invariant // set only when Kind == ClaimInvariant
	InitialCtor bool       // Kind==ClaimInvariant: true for the constructor sub-query, false for a behaviour sub-query
	Ctor        *Constructor // Kind==ClaimInvariant && InitialCtor: the constructor the sub-query inducts from
	Behaviour   *Behaviour   // Kind==ClaimInvariant && !InitialCtor: the behaviour the sub-query steps through
	Pos         diag.Position
}
