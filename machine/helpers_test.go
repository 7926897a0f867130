package machine_test

import (
	"github.com/lambdavm/lam/logic"
	"github.com/lambdavm/lam/machine"
)

type (
	put_const          = machine.PutConst
	put_str            = machine.PutStr
	put_var            = machine.PutVar
	get_const          = machine.GetConst
	get_str            = machine.GetStr
	get_var            = machine.GetVar
	move               = machine.Move
	build_compound     = machine.BuildCompound
	get_structure      = machine.GetStructure
	arithmetic_is      = machine.ArithmeticIs
	allocate           = machine.Allocate
	deallocate         = machine.Deallocate
	set_local          = machine.SetLocal
	get_local          = machine.GetLocal
	call               = machine.Call
	tail_call          = machine.TailCall
	proceed            = machine.Proceed
	choice             = machine.Choice
	fail               = machine.Fail
	indexed_call       = machine.IndexedCall
	multi_indexed_call = machine.MultiIndexedCall
	assert_clause      = machine.AssertClause
	retract_clause     = machine.RetractClause
	cut                = machine.Cut
	halt               = machine.Halt

	instruction = machine.Instruction
)

var comp = logic.NewComp

func cnst(n int64) logic.Const { return logic.Const(n) }
func str(s string) logic.Str   { return logic.Str(s) }
func v(id int) logic.Var       { return logic.Var(id) }

func newMachine(numRegisters int, instrs ...instruction) *machine.Machine {
	return machine.New(instrs, numRegisters)
}
