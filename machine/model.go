// Package machine implements a register-based abstract machine for logic
// programming in the Warren tradition.
//
// The machine executes a linear program of typed instructions that drive
// unification of first-order terms (extended with lambda abstraction and
// application), backtracking over choice points, dynamic clause management,
// and tail-call-optimized predicate invocation.
//
// A single Machine value owns its registers, stacks, binding store and
// clause tables exclusively. Execution is strictly single-threaded; the only
// control-flow non-linearity is backtracking, which is a purely local state
// rewind driven by the trail.
package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lambdavm/lam/logic"
)

// ---- Instructions

// Instruction represents an instruction of the abstract machine.
type Instruction interface {
	fmt.Stringer
	isInstruction()
}

// PutConst instruction: put_const <reg X>, <int>
type PutConst struct {
	Register int
	Value    int64
}

// PutStr instruction: put_str <reg X>, <string>
type PutStr struct {
	Register int
	Value    string
}

// PutVar instruction: put_var <reg X>, <var V>, <name>
type PutVar struct {
	Register int
	VarID    logic.Var
	Name     string
}

// GetConst instruction: get_const <reg X>, <int>
type GetConst struct {
	Register int
	Value    int64
}

// GetStr instruction: get_str <reg X>, <string>
type GetStr struct {
	Register int
	Value    string
}

// GetVar instruction: get_var <reg X>, <var V>, <name>
type GetVar struct {
	Register int
	VarID    logic.Var
	Name     string
}

// Move instruction: move <reg X src>, <reg X dst>
type Move struct {
	Src int
	Dst int
}

// BuildCompound instruction: build_compound <reg X>, <functor>, [<reg X1>, ...]
type BuildCompound struct {
	Target       int
	Functor      string
	ArgRegisters []int
}

// GetStructure instruction: get_structure <reg X>, <functor>/<arity>
type GetStructure struct {
	Register int
	Functor  string
	Arity    int
}

// ArithmeticIs instruction: is <reg X>, <expression>
type ArithmeticIs struct {
	Target     int
	Expression Expression
}

// Allocate instruction: allocate <n>
type Allocate struct {
	N int
}

// Deallocate instruction: deallocate
type Deallocate struct{}

// SetLocal instruction: set_local <slot i>, <term>
type SetLocal struct {
	Index int
	Value logic.Term
}

// GetLocal instruction: get_local <slot i>, <reg X>
type GetLocal struct {
	Index    int
	Register int
}

// Call instruction: call <predicate>
type Call struct {
	Predicate string
}

// TailCall instruction: tail_call <predicate>
type TailCall struct {
	Predicate string
}

// Proceed instruction: proceed
type Proceed struct{}

// Choice instruction: choice <addr>
type Choice struct {
	Alternative int
}

// Fail instruction: fail
type Fail struct{}

// IndexedCall instruction: indexed_call <predicate>, <reg X>
type IndexedCall struct {
	Predicate     string
	IndexRegister int
}

// MultiIndexedCall instruction: multi_indexed_call <predicate>, [<reg X1>, ...]
type MultiIndexedCall struct {
	Predicate      string
	IndexRegisters []int
}

// AssertClause instruction: assert_clause <predicate>, <addr>
type AssertClause struct {
	Predicate string
	Address   int
}

// RetractClause instruction: retract_clause <predicate>, <addr>
type RetractClause struct {
	Predicate string
	Address   int
}

// Cut instruction: cut
type Cut struct{}

// Halt instruction: halt
type Halt struct{}

func (i PutConst) isInstruction()         {}
func (i PutStr) isInstruction()           {}
func (i PutVar) isInstruction()           {}
func (i GetConst) isInstruction()         {}
func (i GetStr) isInstruction()           {}
func (i GetVar) isInstruction()           {}
func (i Move) isInstruction()             {}
func (i BuildCompound) isInstruction()    {}
func (i GetStructure) isInstruction()     {}
func (i ArithmeticIs) isInstruction()     {}
func (i Allocate) isInstruction()         {}
func (i Deallocate) isInstruction()       {}
func (i SetLocal) isInstruction()         {}
func (i GetLocal) isInstruction()         {}
func (i Call) isInstruction()             {}
func (i TailCall) isInstruction()         {}
func (i Proceed) isInstruction()          {}
func (i Choice) isInstruction()           {}
func (i Fail) isInstruction()             {}
func (i IndexedCall) isInstruction()      {}
func (i MultiIndexedCall) isInstruction() {}
func (i AssertClause) isInstruction()     {}
func (i RetractClause) isInstruction()    {}
func (i Cut) isInstruction()              {}
func (i Halt) isInstruction()             {}

func formatRegisters(regs []int) string {
	xs := make([]string, len(regs))
	for i, r := range regs {
		xs[i] = "X" + strconv.Itoa(r)
	}
	return strings.Join(xs, " ")
}

func (i PutConst) String() string {
	return fmt.Sprintf("put_const X%d %d", i.Register, i.Value)
}

func (i PutStr) String() string {
	return fmt.Sprintf("put_str X%d %q", i.Register, i.Value)
}

func (i PutVar) String() string {
	return fmt.Sprintf("put_var X%d V%d %s", i.Register, int(i.VarID), i.Name)
}

func (i GetConst) String() string {
	return fmt.Sprintf("get_const X%d %d", i.Register, i.Value)
}

func (i GetStr) String() string {
	return fmt.Sprintf("get_str X%d %q", i.Register, i.Value)
}

func (i GetVar) String() string {
	return fmt.Sprintf("get_var X%d V%d %s", i.Register, int(i.VarID), i.Name)
}

func (i Move) String() string {
	return fmt.Sprintf("move X%d X%d", i.Src, i.Dst)
}

func (i BuildCompound) String() string {
	return fmt.Sprintf("build_compound X%d %s %s", i.Target, i.Functor, formatRegisters(i.ArgRegisters))
}

func (i GetStructure) String() string {
	return fmt.Sprintf("get_structure X%d %s/%d", i.Register, i.Functor, i.Arity)
}

func (i ArithmeticIs) String() string {
	return fmt.Sprintf("is X%d %v", i.Target, i.Expression)
}

func (i Allocate) String() string {
	return fmt.Sprintf("allocate %d", i.N)
}

func (i Deallocate) String() string {
	return "deallocate"
}

func (i SetLocal) String() string {
	return fmt.Sprintf("set_local %d %v", i.Index, i.Value)
}

func (i GetLocal) String() string {
	return fmt.Sprintf("get_local %d X%d", i.Index, i.Register)
}

func (i Call) String() string {
	return fmt.Sprintf("call %s", i.Predicate)
}

func (i TailCall) String() string {
	return fmt.Sprintf("tail_call %s", i.Predicate)
}

func (i Proceed) String() string {
	return "proceed"
}

func (i Choice) String() string {
	return fmt.Sprintf("choice %d", i.Alternative)
}

func (i Fail) String() string {
	return "fail"
}

func (i IndexedCall) String() string {
	return fmt.Sprintf("indexed_call %s X%d", i.Predicate, i.IndexRegister)
}

func (i MultiIndexedCall) String() string {
	return fmt.Sprintf("multi_indexed_call %s %s", i.Predicate, formatRegisters(i.IndexRegisters))
}

func (i AssertClause) String() string {
	return fmt.Sprintf("assert_clause %s %d", i.Predicate, i.Address)
}

func (i RetractClause) String() string {
	return fmt.Sprintf("retract_clause %s %d", i.Predicate, i.Address)
}

func (i Cut) String() string {
	return "cut"
}

func (i Halt) String() string {
	return "halt"
}

// ---- Stack frames

// Frame is a control-stack entry holding the address to return to after a
// call completes.
type Frame struct {
	ReturnPC int
}

// ChoicePoint is a snapshot of machine state allowing the machine to retry
// alternative clauses after a failure.
//
// The environment stack is deliberately not part of the snapshot: frames
// allocated by a failing clause are abandoned when the control stack is
// replaced.
type ChoicePoint struct {
	// SavedRegisters is a snapshot of the register file.
	SavedRegisters []logic.Term
	// SavedTrailMark is the trail length at creation; restoring undoes
	// every binding recorded after it.
	SavedTrailMark int
	// SavedControlStack is a snapshot of the control stack.
	SavedControlStack []Frame
	// Alternatives are the not-yet-tried clause addresses, in order.
	Alternatives []int
	// CallLevel is the control-stack depth at creation; the anchor used
	// by cut.
	CallLevel int
}
