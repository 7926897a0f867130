package machine

import (
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/lambdavm/lam/logic"
)

// Builtin is a predicate whose semantics are implemented directly by the
// executor rather than by user-supplied instructions.
type Builtin func(*Machine) error

// Machine is the abstract machine state. A machine is created with a fixed
// program and register count; predicates and indices are registered before
// Run, or managed dynamically by assert_clause/retract_clause.
type Machine struct {
	// ID tags this machine instance in traces.
	ID string

	// Registers is the register file. A nil slot is uninitialized.
	Registers []logic.Term

	// Code is the immutable instruction vector.
	Code []Instruction

	// PC indexes the next instruction in Code. Execution terminates
	// normally when PC >= len(Code).
	PC int

	// Bindings is the union-find + trail variable store.
	Bindings *Bindings

	// ControlStack holds call/return frames.
	ControlStack []Frame

	// EnvironmentStack holds local-variable frames, top last.
	EnvironmentStack [][]logic.Term

	// ChoiceStack holds choice points for backtracking, top last.
	ChoiceStack []*ChoicePoint

	// Predicates maps predicate names to clause addresses in assertion
	// order.
	Predicates map[string][]int

	// Index maps predicate names to key-indexed clause address lists.
	// Keys are canonical term encodings (see encodeKey).
	Index map[string]map[string][]int

	// VarNames records human-readable names for variables. Diagnostics
	// only; does not affect semantics.
	VarNames map[logic.Var]string

	// OccursCheck makes unification fail when binding a variable to a
	// term containing it. Off by default, per WAM convention.
	OccursCheck bool

	// IterLimit bounds the number of executed instructions. Zero means
	// no limit.
	IterLimit int

	// Output receives the text produced by write/1 and friends.
	Output io.Writer

	// Tracer, when set, receives one record per executed instruction.
	Tracer *Tracer

	varCounter logic.Var
	builtins   map[string]Builtin
}

// New creates a machine for the given program with numRegisters registers.
func New(code []Instruction, numRegisters int) *Machine {
	m := &Machine{
		ID:         uuid.NewString(),
		Registers:  make([]logic.Term, numRegisters),
		Code:       code,
		Bindings:   NewBindings(),
		Predicates: make(map[string][]int),
		Index:      make(map[string]map[string][]int),
		VarNames:   make(map[logic.Var]string),
		Output:     os.Stdout,
	}
	m.builtins = map[string]Builtin{
		"write":       builtinWrite,
		"nl":          builtinNl,
		"print":       builtinPrint,
		"print_subst": builtinPrintSubst,
		"halt":        builtinHalt,
		"=":           builtinEq,
	}
	for name, pred := range comparisonPredicates {
		m.builtins[name] = makeComparisonPredicate(pred)
	}
	return m
}

// RegisterPredicate appends clause addresses for a predicate, preserving
// assertion order.
func (m *Machine) RegisterPredicate(name string, addrs ...int) {
	m.Predicates[name] = append(m.Predicates[name], addrs...)
}

// RegisterValue returns the term held by register i, or nil when the slot is
// uninitialized or out of range. Intended for inspection after termination.
func (m *Machine) RegisterValue(i int) logic.Term {
	if i < 0 || i >= len(m.Registers) {
		return nil
	}
	return m.Registers[i]
}

// VariableName returns the recorded name for a variable, if any.
func (m *Machine) VariableName(v logic.Var) (string, bool) {
	name, ok := m.VarNames[v]
	return name, ok
}

// fresh allocates a variable id unused by the machine.
func (m *Machine) fresh() logic.Var {
	v := m.varCounter
	m.varCounter++
	return v
}

// noteVar ensures ids introduced by instructions never collide with ids
// handed out by fresh.
func (m *Machine) noteVar(v logic.Var) {
	if v >= m.varCounter {
		m.varCounter = v + 1
	}
}

// noteTermVars bumps the variable counter past every variable occurring in
// t, binders included.
func (m *Machine) noteTermVars(t logic.Term) {
	switch t := t.(type) {
	case logic.Var:
		m.noteVar(t)
	case *logic.Comp:
		for _, arg := range t.Args {
			m.noteTermVars(arg)
		}
	case *logic.Lambda:
		m.noteVar(t.Param)
		m.noteTermVars(t.Body)
	case *logic.App:
		m.noteTermVars(t.Fn)
		m.noteTermVars(t.Arg)
	}
}

// formatTerm renders a term with the machine's variable names.
func (m *Machine) formatTerm(t logic.Term) string {
	return logic.Format(t, m.VariableName)
}
