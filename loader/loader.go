// Package loader reads machine programs from their textual representation.
//
// A program file is a YAML document carrying the register count, the
// instruction vector (one instruction per line, in the notation each
// instruction prints itself, with the exceptions listed on
// ParseInstruction), the initial predicate table, and optional
// index declarations:
//
//	registers: 4
//	program:
//	  - put_const X0 2
//	  - call p
//	  - halt
//	  - get_const X0 1
//	  - proceed
//	  - get_const X0 2
//	  - proceed
//	predicates:
//	  p: [3, 5]
//	index:
//	  - predicate: p
//	    key_positions: [0]
//
// The loader is a collaborator of the machine core: its only contract is
// producing the instruction vector and initial tables.
package loader

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lambdavm/lam/errors"
	"github.com/lambdavm/lam/machine"
)

// Program is the YAML envelope of a machine program.
type Program struct {
	// Registers is the size of the register file.
	Registers int `yaml:"registers"`

	// Instructions holds one instruction per line. Code addresses in
	// instruction arguments are zero-based indices into this list.
	Instructions []string `yaml:"program"`

	// Predicates maps predicate names to clause addresses, in assertion
	// order.
	Predicates map[string][]int `yaml:"predicates"`

	// Index lists the predicates to be indexed after loading.
	Index []IndexSpec `yaml:"index,omitempty"`
}

// IndexSpec declares an index over one or more argument positions.
type IndexSpec struct {
	Predicate    string `yaml:"predicate"`
	KeyPositions []int  `yaml:"key_positions"`
}

// Load reads and assembles the program file at path.
func Load(path string) (*machine.Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse assembles a machine from the YAML program in data.
func Parse(data []byte) (*machine.Machine, error) {
	var program Program
	if err := yaml.Unmarshal(data, &program); err != nil {
		return nil, errors.New("parsing program: %v", err)
	}
	if program.Registers <= 0 {
		return nil, errors.New("program must declare a positive register count, got %d", program.Registers)
	}
	code := make([]machine.Instruction, len(program.Instructions))
	for i, line := range program.Instructions {
		instr, err := ParseInstruction(line)
		if err != nil {
			return nil, errors.Line(i+1, err)
		}
		code[i] = instr
	}
	m := machine.New(code, program.Registers)
	// Sort names for a deterministic registration order.
	names := make([]string, 0, len(program.Predicates))
	for name := range program.Predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		addrs := program.Predicates[name]
		for _, addr := range addrs {
			if addr < 0 || addr >= len(code) {
				return nil, errors.New("predicate %s: clause address %d out of range", name, addr)
			}
		}
		m.RegisterPredicate(name, addrs...)
	}
	for _, spec := range program.Index {
		if err := m.BuildIndex(spec.Predicate, spec.KeyPositions); err != nil {
			return nil, errors.New("indexing %s: %v", spec.Predicate, err)
		}
	}
	return m, nil
}
