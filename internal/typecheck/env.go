// Package typecheck implements the elaborator: name resolution, arity
// and type checking of storage/calldata access, case normalization, claim
// splitting, and timing annotation. It turns the untyped ast.Program plus
// the discovered acttypes.Store into a typed acttypes.Act and the list of
// proof-obligation Claims the query synthesizer consumes.
package typecheck

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
)

// resolution classifies what a bare name refers to: unknown,
// ambiguous (both a slot and a calldata arg), a calldata declaration, or a
// storage slot.
type resolutionKind int

const (
	resUnknown resolutionKind = iota
	resAmbiguous
	resCalldata
	resSlot
)

type resolution struct {
	kind resolutionKind
	abi  ast.AbiType        // resCalldata
	slot acttypes.SlotType  // resSlot
}

// Env is the environment a single expression is checked under: the
// contract whose behaviour/constructor is being typechecked, its local slot
// map, the global store (for completeness / future cross-contract lookups),
// and the calldata declarations in scope.
type Env struct {
	Contract string
	Local    map[string]acttypes.SlotType
	Store    *acttypes.Store
	Calldata map[string]ast.AbiType
}

func NewEnv(contract string, store *acttypes.Store, calldata map[string]ast.AbiType) *Env {
	local := store.Contracts[contract]
	if local == nil {
		local = map[string]acttypes.SlotType{}
	}
	return &Env{Contract: contract, Local: local, Store: store, Calldata: calldata}
}

func (e *Env) resolve(name string) resolution {
	_, inSlots := e.Local[name]
	abi, inCalldata := e.Calldata[name]
	switch {
	case inSlots && inCalldata:
		return resolution{kind: resAmbiguous}
	case inCalldata:
		return resolution{kind: resCalldata, abi: abi}
	case inSlots:
		return resolution{kind: resSlot, slot: e.Local[name]}
	default:
		return resolution{kind: resUnknown}
	}
}
