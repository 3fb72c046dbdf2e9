package solver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/develuxes/solidity-act/internal/acttypes"
)

// Binding is one named value of a counter-model.
type Binding struct {
	Name  string
	Value string
}

// Model is a full counter-model, grouped by the fixed sections of the
// human-readable counterexample format.
type Model struct {
	Calldata    []Binding
	Environment []Binding
	Prestate    []Binding
	Poststate   []Binding
}

// valueRE strips a (get-value ...) answer of the form ((name value)) down to
// the value text. The name part may itself contain balanced parentheses
// (select chains), so the match anchors on the last space-delimited chunk
// before the closing parens rather than on the name.
var valueRE = regexp.MustCompile(`^\(\((.*)\s("[^"]*"|\(-\s[^\s()]+\)|[^\s()]+)\)\)$`)

// negRE unwraps a parenthesized negative number: (- 5) -> -5.
var negRE = regexp.MustCompile(`^\(-\s+(\d+)\)$`)

// parseValue extracts the value from a raw get-value answer line and
// reinterprets it at the entry's act-type.
func parseValue(line string, t acttypes.ActType) (string, error) {
	m := valueRE.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", fmt.Errorf("solver error: unparseable model line %q", line)
	}
	raw := m[2]
	if n := negRE.FindStringSubmatch(raw); n != nil {
		raw = "-" + n[1]
	}

	switch t {
	case acttypes.AInteger:
		if !intTextRE.MatchString(raw) {
			return "", fmt.Errorf("solver error: expected an integer model value, got %q", raw)
		}
		return raw, nil
	case acttypes.ABoolean:
		if raw != "true" && raw != "false" {
			return "", fmt.Errorf("solver error: expected a boolean model value, got %q", raw)
		}
		return raw, nil
	case acttypes.AByteStr:
		return strings.Trim(raw, `"`), nil
	default:
		return raw, nil
	}
}

var intTextRE = regexp.MustCompile(`^-?\d+$`)

// Format renders the counter-model in the fixed human format: calldata,
// environment, prestate and poststate sections, in that order, one binding
// per line.
func (m *Model) Format() string {
	var sb strings.Builder
	section := func(title string, bindings []Binding) {
		if len(bindings) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s:\n", title)
		for _, b := range bindings {
			fmt.Fprintf(&sb, "  %s = %s\n", b.Name, b.Value)
		}
	}
	section("calldata", m.Calldata)
	section("environment", m.Environment)
	section("prestate", m.Prestate)
	section("poststate", m.Poststate)
	return strings.TrimRight(sb.String(), "\n")
}
