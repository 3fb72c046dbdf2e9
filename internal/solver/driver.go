// Package solver drives a long-lived external SMT solver subprocess.
// One Session owns one subprocess: its stdin/stdout are used exclusively by
// the session for its whole lifetime, queries run strictly sequentially, and
// teardown reaps the process on every exit path.
package solver

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/develuxes/solidity-act/internal/query"
)

// Kind selects the solver binary and its command-line dialect.
type Kind int

const (
	Z3 Kind = iota
	CVC4
)

func (k Kind) String() string {
	if k == CVC4 {
		return "cvc4"
	}
	return "z3"
}

// ParseKind maps a CLI/config spelling to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "z3", "":
		return Z3, nil
	case "cvc4":
		return CVC4, nil
	default:
		return Z3, fmt.Errorf("unknown solver %q (expected z3 or cvc4)", s)
	}
}

// Config is everything a session needs to spawn its subprocess.
type Config struct {
	Solver    Kind
	TimeoutMS int
	Debug     bool
	// DebugSink receives every line sent to and read from the solver when
	// Debug is set; nil means discard.
	DebugSink io.Writer
}

// args builds the solver-specific argument list.
func (c Config) args() (string, []string) {
	switch c.Solver {
	case CVC4:
		return "cvc4", []string{
			"--lang=smt", "--interactive", "--no-interactive-prompt",
			"--produce-models", fmt.Sprintf("--tlimit-per=%d", c.TimeoutMS),
		}
	default:
		return "z3", []string{"-in", fmt.Sprintf("-t:%d", c.TimeoutMS)}
	}
}

// state is the driver's lifecycle: Starting -> Ready -> Busy -> Ready -> ...
// -> Stopped. Any declaration or I/O error moves straight to Stopped with
// the subprocess torn down.
type state int

const (
	starting state = iota
	ready
	busy
	stopped
)

// Session is an opaque handle on one running solver subprocess.
type Session struct {
	cfg    Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	st     state
}

// Start spawns the solver, switches on print-success, and sends the
// preamble. Any non-success response aborts with a structured error.
func Start(cfg Config) (*Session, error) {
	bin, args := cfg.args()
	cmd := exec.Command(bin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("solver error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("solver error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("solver error: failed to spawn %s: %w", bin, err)
	}

	s := &Session{cfg: cfg, cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout), st: starting}
	for _, line := range []string{"(set-option :print-success true)", "(set-logic ALL)"} {
		if err := s.command(line); err != nil {
			s.teardown()
			return nil, err
		}
	}
	s.st = ready
	return s, nil
}

// WithSession runs fn against a fresh session and reaps the subprocess on
// every exit path, including a panic inside fn.
func WithSession(cfg Config, fn func(*Session) error) error {
	s, err := Start(cfg)
	if err != nil {
		return err
	}
	defer s.Stop()
	return fn(s)
}

// Stop tears the subprocess down. Safe to call more than once.
func (s *Session) Stop() {
	if s.st == stopped {
		return
	}
	s.teardown()
}

func (s *Session) teardown() {
	s.st = stopped
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
}

// send writes one line to the solver's stdin.
func (s *Session) send(line string) error {
	if s.cfg.Debug && s.cfg.DebugSink != nil {
		fmt.Fprintf(s.cfg.DebugSink, "> %s\n", line)
	}
	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		s.teardown()
		return fmt.Errorf("solver error: write failed: %w", err)
	}
	return nil
}

// recv reads one response line from the solver's stdout, skipping blanks.
func (s *Session) recv() (string, error) {
	for {
		line, err := s.stdout.ReadString('\n')
		if err != nil {
			s.teardown()
			return "", fmt.Errorf("solver error: read failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if s.cfg.Debug && s.cfg.DebugSink != nil {
			fmt.Fprintf(s.cfg.DebugSink, "< %s\n", line)
		}
		if line != "" {
			return line, nil
		}
	}
}

// command sends a line and requires the solver to answer `success`.
func (s *Session) command(line string) error {
	if err := s.send(line); err != nil {
		return err
	}
	resp, err := s.recv()
	if err != nil {
		return err
	}
	if resp != "success" {
		s.teardown()
		return fmt.Errorf("solver error: %q answered %q", line, resp)
	}
	return nil
}

// Verdict is the outcome of one query.
type Verdict int

const (
	// Pass: the negated property is unsatisfiable — the property holds.
	Pass Verdict = iota
	// Fail: the solver found a counter-model.
	Fail
	// Unknown: timeout or incompleteness; no verdict either way.
	Unknown
	// Error: the solver misbehaved on this query.
	Error
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "holds"
	case Fail:
		return "fails"
	case Unknown:
		return "unknown"
	default:
		return "error"
	}
}

// Result pairs a verdict with, on Fail, the extracted counter-model and, on
// Error, the solver's raw answer.
type Result struct {
	Verdict Verdict
	Model   *Model
	Err     string
}

// RunQuery resets the solver, replays the query body line by line, checks
// satisfiability, and on sat extracts a counter-model. A declaration error
// stops the session; a sat/unsat/unknown outcome leaves it Ready for the
// next query.
func (s *Session) RunQuery(q *query.Query) Result {
	if s.st != ready {
		return Result{Verdict: Error, Err: "session is not ready"}
	}
	s.st = busy
	defer func() {
		if s.st == busy {
			s.st = ready
		}
	}()

	// (reset) discards session state, print-success and the logic included,
	// so both are re-established before the query body replays.
	for _, line := range []string{"(reset)", "(set-option :print-success true)", "(set-logic ALL)"} {
		if err := s.command(line); err != nil {
			return Result{Verdict: Error, Err: err.Error()}
		}
	}
	for _, line := range q.Lines {
		if strings.HasPrefix(line, ";") {
			continue
		}
		if err := s.command(line); err != nil {
			return Result{Verdict: Error, Err: err.Error()}
		}
	}

	if err := s.send("(check-sat)"); err != nil {
		return Result{Verdict: Error, Err: err.Error()}
	}
	resp, err := s.recv()
	if err != nil {
		return Result{Verdict: Error, Err: err.Error()}
	}

	switch resp {
	case "unsat":
		return Result{Verdict: Pass}
	case "sat":
		model, err := s.extractModel(q)
		if err != nil {
			return Result{Verdict: Error, Err: err.Error()}
		}
		return Result{Verdict: Fail, Model: model}
	case "timeout", "unknown":
		return Result{Verdict: Unknown}
	default:
		return Result{Verdict: Error, Err: fmt.Sprintf("unexpected check-sat answer %q", resp)}
	}
}

// extractModel issues one (get-value ...) per model-plan entry, in plan
// order, and reinterprets each answer at its act-type.
func (s *Session) extractModel(q *query.Query) (*Model, error) {
	m := &Model{}
	read := func(entries []query.ModelEntry, out *[]Binding) error {
		for _, e := range entries {
			if err := s.send(fmt.Sprintf("(get-value (%s))", e.SMT)); err != nil {
				return err
			}
			line, err := s.recv()
			if err != nil {
				return err
			}
			val, err := parseValue(line, e.Type)
			if err != nil {
				return err
			}
			*out = append(*out, Binding{Name: e.Display, Value: val})
		}
		return nil
	}
	if err := read(q.Model.Calldata, &m.Calldata); err != nil {
		return nil, err
	}
	if err := read(q.Model.Environment, &m.Environment); err != nil {
		return nil, err
	}
	if err := read(q.Model.Prestate, &m.Prestate); err != nil {
		return nil, err
	}
	if err := read(q.Model.Poststate, &m.Poststate); err != nil {
		return nil, err
	}
	return m, nil
}
