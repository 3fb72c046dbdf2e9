// Package store discovers the global store schema: a pure walk over
// every constructor's `creates` block, collecting each contract's slot
// declarations. It never looks at behaviours — only constructors declare
// storage.
package store

import (
	"github.com/develuxes/solidity-act/internal/acttypes"
	"github.com/develuxes/solidity-act/internal/ast"
	"github.com/develuxes/solidity-act/internal/diag"
)

// Discover walks prog's constructor definitions and builds the store schema.
// Duplicate contract names and duplicate slot names within one `creates`
// block are reported to errs but do not stop the walk: later definitions
// still contribute whatever new information they have.
func Discover(prog *ast.Program, errs *diag.Accumulator) *acttypes.Store {
	s := acttypes.NewStore()
	seenContracts := map[string]bool{}

	for _, rb := range prog.Behaviours {
		def, ok := rb.(*ast.Definition)
		if !ok {
			continue
		}
		if seenContracts[def.Contract] {
			errs.AddUser(def.Pos(), "duplicate constructor for contract %q", def.Contract)
		}
		seenContracts[def.Contract] = true

		slots, exists := s.Contracts[def.Contract]
		if !exists {
			slots = make(map[string]acttypes.SlotType)
			s.Contracts[def.Contract] = slots
		}

		// A duplicate slot is reported at every declaration involved, the
		// first included, so the user sees both sites.
		firstDecl := map[string]diag.Position{}
		flagged := map[string]bool{}
		for _, a := range def.Creates.Assigns {
			if first, dup := firstDecl[a.Name]; dup {
				if !flagged[a.Name] {
					errs.AddUser(first, "duplicate slot %q in creates block of %q", a.Name, def.Contract)
					flagged[a.Name] = true
				}
				errs.AddUser(a.Position, "duplicate slot %q in creates block of %q", a.Name, def.Contract)
				continue
			}
			firstDecl[a.Name] = a.Position
			slots[a.Name] = acttypes.SlotType{
				Kind:     a.Slot.Kind,
				Value:    a.Slot.Value,
				KeyTypes: a.Slot.KeyTypes,
			}
		}
	}

	return s
}
