package machine

import (
	"fmt"
	"sort"

	"github.com/lambdavm/lam/logic"
)

// Built-in predicates are invoked by call/tail_call in place of a clause
// lookup. They operate on the argument registers directly, by convention
// starting at register 0.

// builtinWrite prints the resolved term in register 0 in its canonical
// textual form. An uninitialized register prints nothing.
func builtinWrite(m *Machine) error {
	if len(m.Registers) == 0 || m.Registers[0] == nil {
		return nil
	}
	resolved := m.Bindings.Resolve(m.Registers[0])
	fmt.Fprint(m.Output, m.formatTerm(resolved))
	return nil
}

func builtinNl(m *Machine) error {
	fmt.Fprintln(m.Output)
	return nil
}

// builtinPrint dumps the initialized registers, labeling variables with
// their recorded names.
func builtinPrint(m *Machine) error {
	fmt.Fprintln(m.Output, "--- registers ---")
	for i, term := range m.Registers {
		if term == nil {
			continue
		}
		fmt.Fprintf(m.Output, "X%d: %s\n", i, m.formatTerm(term))
	}
	fmt.Fprintln(m.Output, "-----------------")
	return nil
}

// builtinPrintSubst dumps the current substitution in variable-id order.
func builtinPrintSubst(m *Machine) error {
	fmt.Fprintln(m.Output, "--- substitution ---")
	if m.Bindings.NumBindings() == 0 {
		fmt.Fprintln(m.Output, "(no bindings)")
	} else {
		var vars []logic.Var
		m.Bindings.each(func(v logic.Var, _ logic.Term) {
			vars = append(vars, v)
		})
		sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
		for _, v := range vars {
			t, _ := m.Bindings.Value(v)
			fmt.Fprintf(m.Output, "%s = %s\n", m.formatTerm(v), m.formatTerm(t))
		}
	}
	fmt.Fprintln(m.Output, "--------------------")
	return nil
}

// builtinHalt stops execution by moving the program counter past the end of
// the code.
func builtinHalt(m *Machine) error {
	m.PC = len(m.Code)
	return nil
}

// builtinEq unifies the terms in registers 0 and 1.
func builtinEq(m *Machine) error {
	left, err := m.readRegister(0)
	if err != nil {
		return err
	}
	right, err := m.readRegister(1)
	if err != nil {
		return err
	}
	return m.unifyAttempt(left, right)
}

// ---- arithmetic comparisons

type comparisonPredicate struct {
	name    string
	accepts func(x, y int64) bool
}

var comparisonPredicates = map[string]comparisonPredicate{
	"=:=":  {"=:=", func(x, y int64) bool { return x == y }},
	"=\\=": {"=\\=", func(x, y int64) bool { return x != y }},
	"<":    {"<", func(x, y int64) bool { return x < y }},
	">":    {">", func(x, y int64) bool { return x > y }},
	"=<":   {"=<", func(x, y int64) bool { return x <= y }},
	">=":   {">=", func(x, y int64) bool { return x >= y }},
}

// makeComparisonPredicate builds a built-in that evaluates registers 0 and 1
// as integers and fails (backtrackably) unless the comparison accepts them.
func makeComparisonPredicate(pred comparisonPredicate) Builtin {
	return func(m *Machine) error {
		x, err := m.evaluate(RegisterRef(0))
		if err != nil {
			return err
		}
		y, err := m.evaluate(RegisterRef(1))
		if err != nil {
			return err
		}
		if pred.accepts(x, y) {
			return nil
		}
		return &UnificationError{
			fmt.Sprintf("%d %s %d", x, pred.name, y),
			"true",
		}
	}
}
