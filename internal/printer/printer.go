// Package printer renders an untyped AST back into Act source text. The
// output re-parses to an AST equal to the original modulo positions, which
// is what the round-trip tests lean on.
package printer

import (
	"fmt"
	"strings"

	"github.com/develuxes/solidity-act/internal/ast"
)

// Program renders every behaviour of prog, blank-line separated.
func Program(prog *ast.Program) string {
	parts := make([]string, 0, len(prog.Behaviours))
	for _, rb := range prog.Behaviours {
		switch n := rb.(type) {
		case *ast.Definition:
			parts = append(parts, definition(n))
		case *ast.Transition:
			parts = append(parts, transition(n))
		}
	}
	return strings.Join(parts, "\n")
}

func definition(d *ast.Definition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "constructor of %s\n", d.Contract)
	sb.WriteString(iface(d.Iface))
	writeExprSection(&sb, "iff", d.Iff)

	if len(d.Creates.Assigns) > 0 {
		sb.WriteString("\ncreates\n")
		for _, a := range d.Creates.Assigns {
			sb.WriteString("  " + createAssign(a) + "\n")
		}
	}

	writeUpdateSection(&sb, d.Updates)
	writeExprSection(&sb, "ensures", d.Ensures)
	writeExprSection(&sb, "invariants", d.Invariants)
	return sb.String()
}

func transition(t *ast.Transition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "behaviour %s of %s\n", t.Name, t.Contract)
	sb.WriteString(iface(t.Iface))
	writeExprSection(&sb, "iff", t.Iff)

	// A single nil-guard case is the parser's encoding of a "direct" body:
	// print it without a case header so the round trip is exact.
	if len(t.Cases) == 1 && t.Cases[0].Guard == nil {
		writeCaseBody(&sb, t.Cases[0], "")
		return sb.String()
	}
	for _, c := range t.Cases {
		if c.Guard == nil {
			sb.WriteString("\ncase _:\n")
		} else {
			fmt.Fprintf(&sb, "\ncase %s:\n", Expr(c.Guard))
		}
		writeCaseBody(&sb, c, "  ")
	}
	return sb.String()
}

func writeCaseBody(sb *strings.Builder, c ast.Case, indent string) {
	if c.Noop {
		sb.WriteString("\n" + indent + "noop\n")
		return
	}
	if len(c.Updates) > 0 {
		sb.WriteString("\n" + indent + "storage\n")
		for _, u := range c.Updates {
			sb.WriteString(indent + "  " + update(u) + "\n")
		}
	}
	if len(c.Ensures) > 0 {
		sb.WriteString("\n" + indent + "ensures\n")
		for _, e := range c.Ensures {
			sb.WriteString(indent + "  " + Expr(e) + "\n")
		}
	}
	if c.Returns != nil {
		sb.WriteString("\n" + indent + "returns " + Expr(c.Returns) + "\n")
	}
}

func writeExprSection(sb *strings.Builder, keyword string, exprs []ast.Expr) {
	if len(exprs) == 0 {
		return
	}
	sb.WriteString("\n" + keyword + "\n")
	for _, e := range exprs {
		sb.WriteString("  " + Expr(e) + "\n")
	}
}

func writeUpdateSection(sb *strings.Builder, ups []ast.StorageUpdate) {
	if len(ups) == 0 {
		return
	}
	sb.WriteString("\nstorage\n")
	for _, u := range ups {
		sb.WriteString("  " + update(u) + "\n")
	}
}

func update(u ast.StorageUpdate) string {
	if u.Rhs == nil {
		return entry(u.Loc)
	}
	return entry(u.Loc) + " => " + Expr(u.Rhs)
}

func iface(i ast.Interface) string {
	args := make([]string, len(i.Args))
	for j, a := range i.Args {
		args[j] = a.Type.String() + " " + a.Name
	}
	return fmt.Sprintf("interface %s(%s)\n", i.Name, strings.Join(args, ", "))
}

func createAssign(a ast.CreateAssign) string {
	if a.Slot.Kind == ast.SlotValue {
		return fmt.Sprintf("%s %s := %s", a.Slot.Value, a.Name, Expr(a.Value))
	}
	types := make([]string, 0, len(a.Slot.KeyTypes)+1)
	for _, k := range a.Slot.KeyTypes {
		types = append(types, k.String())
	}
	types = append(types, a.Slot.Value.String())
	entries := make([]string, len(a.Mapping))
	for i, e := range a.Mapping {
		keys := make([]string, len(e.Keys))
		for j, k := range e.Keys {
			keys[j] = Expr(k)
		}
		entries[i] = strings.Join(keys, ", ") + " := " + Expr(e.Value)
	}
	return fmt.Sprintf("mapping(%s) %s := [%s]", strings.Join(types, " => "), a.Name, strings.Join(entries, ", "))
}

// Expr renders an expression fully parenthesized, so operator precedence
// survives the round trip without a precedence-aware printer.
func Expr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IntLit:
		return n.Value
	case *ast.BoolLit:
		return fmt.Sprintf("%v", n.Value)
	case *ast.Ident:
		return n.Name
	case *ast.EnvExpr:
		return n.Name
	case *ast.EntryExpr:
		return entry(n)
	case *ast.UnaryExpr:
		if n.Op == "not" {
			return "(not " + Expr(n.Operand) + ")"
		}
		return "(-" + Expr(n.Operand) + ")"
	case *ast.BinaryExpr:
		return "(" + Expr(n.Left) + " " + n.Op + " " + Expr(n.Right) + ")"
	case *ast.RangeExpr:
		return "(" + Expr(n.Value) + " in range(" + Expr(n.Lo) + ", " + Expr(n.Hi) + "))"
	case *ast.ITEExpr:
		return "(if " + Expr(n.Cond) + " then " + Expr(n.Then) + " else " + Expr(n.Else) + ")"
	case *ast.CreateExpr:
		args := make([]string, 0, len(n.Args)+1)
		args = append(args, n.Contract)
		for _, a := range n.Args {
			args = append(args, Expr(a))
		}
		s := "Create(" + strings.Join(args, ", ") + ")"
		if n.At != nil {
			s += " at " + Expr(n.At)
		}
		return s
	default:
		return "?"
	}
}

func entry(n *ast.EntryExpr) string {
	s := n.Name
	if len(n.Args) > 0 {
		idx := make([]string, len(n.Args))
		for i, a := range n.Args {
			idx[i] = Expr(a)
		}
		s += "[" + strings.Join(idx, "][") + "]"
	}
	if n.Timing != "" {
		return n.Timing + "(" + s + ")"
	}
	return s
}
