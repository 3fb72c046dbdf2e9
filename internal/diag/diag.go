// Package diag provides source positions and an error accumulator shared by
// every phase of the Act pipeline. A single pass collects every diagnostic it
// can before the pipeline halts, so unrelated problems surface together
// instead of one-at-a-time.
package diag

import (
	"fmt"
	"strings"
)

// Position is a line/column/byte-offset triple. Lines and columns are
// 1-indexed; offset is a 0-indexed byte offset into the source.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Kind classifies a diagnostic into one of the three disjoint error kinds
// from the error handling design: user errors accumulate and block the
// pipeline before the next phase; solver errors are per-query and don't
// stop the session; internal errors abort the program outright.
type Kind int

const (
	UserError Kind = iota
	SolverError
	InternalError
	// Warning diagnostics surface alongside errors but never block the
	// pipeline (e.g. a calldata argument that is declared but never used).
	Warning
)

func (k Kind) String() string {
	switch k {
	case UserError:
		return "error"
	case SolverError:
		return "solver error"
	case InternalError:
		return "internal error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a single positioned message.
type Diagnostic struct {
	Kind    Kind
	Pos     Position
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at %s: %s", d.Kind, d.Pos, d.Message)
}

// Format renders the diagnostic with a source-line/caret view, in the style
// of a compiler that points directly at the offending column.
func (d *Diagnostic) Format(source string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s at %s\n", strings.ToUpper(d.Kind.String()[:1])+d.Kind.String()[1:], d.Pos)

	if line := sourceLine(source, d.Pos.Line); line != "" {
		prefix := fmt.Sprintf("%4d | ", d.Pos.Line)
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
		col := d.Pos.Column
		if col < 1 {
			col = 1
		}
		sb.WriteString(strings.Repeat(" ", len(prefix)+col-1))
		sb.WriteString("^\n")
	}

	sb.WriteString(d.Message)
	return sb.String()
}

func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// Accumulator threads a non-empty diagnostic list applicatively through a
// phase: every error the phase can detect is recorded, and HasErrors is
// checked once at the phase boundary rather than bailing on the first
// failure.
type Accumulator struct {
	diags []*Diagnostic
}

// Add records a new diagnostic.
func (a *Accumulator) Add(kind Kind, pos Position, format string, args ...any) {
	a.diags = append(a.diags, &Diagnostic{
		Kind:    kind,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// AddUser is shorthand for Add(UserError, ...).
func (a *Accumulator) AddUser(pos Position, format string, args ...any) {
	a.Add(UserError, pos, format, args...)
}

// HasErrors reports whether any user or internal diagnostic was recorded.
// Solver errors are per-query and are never fatal for the accumulator as a
// whole.
func (a *Accumulator) HasErrors() bool {
	for _, d := range a.diags {
		if d.Kind == UserError || d.Kind == InternalError {
			return true
		}
	}
	return false
}

// Diagnostics returns every recorded diagnostic, in recorded order.
func (a *Accumulator) Diagnostics() []*Diagnostic {
	return a.diags
}

// Merge appends another accumulator's diagnostics onto this one.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.diags = append(a.diags, other.diags...)
}

// Format renders every diagnostic against source, one after another.
func (a *Accumulator) Format(source string) string {
	parts := make([]string, 0, len(a.diags))
	for _, d := range a.diags {
		parts = append(parts, d.Format(source))
	}
	return strings.Join(parts, "\n\n")
}
