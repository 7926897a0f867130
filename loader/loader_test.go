package loader_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lambdavm/lam/loader"
	"github.com/lambdavm/lam/logic"
	"github.com/lambdavm/lam/machine"
)

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		line string
		want machine.Instruction
	}{
		{"put_const X0 42", machine.PutConst{Register: 0, Value: 42}},
		{"put_const X0 -7", machine.PutConst{Register: 0, Value: -7}},
		{`put_str X1 "hello world"`, machine.PutStr{Register: 1, Value: "hello world"}},
		{"put_var X0 V3 X", machine.PutVar{Register: 0, VarID: logic.Var(3), Name: "X"}},
		{"get_const X2 0", machine.GetConst{Register: 2, Value: 0}},
		{`get_str X0 "a"`, machine.GetStr{Register: 0, Value: "a"}},
		{"get_var X1 V0 Result", machine.GetVar{Register: 1, VarID: logic.Var(0), Name: "Result"}},
		{"move X0 X5", machine.Move{Src: 0, Dst: 5}},
		{"build_compound X2 pair X0 X1", machine.BuildCompound{Target: 2, Functor: "pair", ArgRegisters: []int{0, 1}}},
		{"get_structure X0 f/2", machine.GetStructure{Register: 0, Functor: "f", Arity: 2}},
		{"allocate 3", machine.Allocate{N: 3}},
		{"deallocate", machine.Deallocate{}},
		{"set_local 0 42", machine.SetLocal{Index: 0, Value: logic.Const(42)}},
		{`set_local 1 "text"`, machine.SetLocal{Index: 1, Value: logic.Str("text")}},
		{"set_local 0 V4", machine.SetLocal{Index: 0, Value: logic.Var(4)}},
		{
			`set_local 2 f(1, "a", g(V0))`,
			machine.SetLocal{Index: 2, Value: logic.NewComp("f",
				logic.Const(1), logic.Str("a"), logic.NewComp("g", logic.Var(0)))},
		},
		{"get_local 1 X0", machine.GetLocal{Index: 1, Register: 0}},
		{"call append", machine.Call{Predicate: "append"}},
		{"tail_call loop", machine.TailCall{Predicate: "loop"}},
		{"proceed", machine.Proceed{}},
		{"choice 17", machine.Choice{Alternative: 17}},
		{"fail", machine.Fail{}},
		{"indexed_call p X0", machine.IndexedCall{Predicate: "p", IndexRegister: 0}},
		{"multi_indexed_call p X0 X1", machine.MultiIndexedCall{Predicate: "p", IndexRegisters: []int{0, 1}}},
		{"assert_clause p 4", machine.AssertClause{Predicate: "p", Address: 4}},
		{"retract_clause p 4", machine.RetractClause{Predicate: "p", Address: 4}},
		{"cut", machine.Cut{}},
		{"halt", machine.Halt{}},
	}
	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			got, err := loader.ParseInstruction(test.line)
			if err != nil {
				t.Fatalf("expected nil, got err: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("ParseInstruction(%q) mismatch (-want +got):\n%s", test.line, diff)
			}
		})
	}
}

func TestParseInstruction_Is(t *testing.T) {
	got, err := loader.ParseInstruction("is X2 1+2*X0")
	if err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	instr, ok := got.(machine.ArithmeticIs)
	if !ok {
		t.Fatalf("got %T, want machine.ArithmeticIs", got)
	}
	if instr.Target != 2 {
		t.Errorf("target = %d, want 2", instr.Target)
	}
	if s := instr.Expression.String(); s != "(1+(2*X0))" {
		t.Errorf("expression = %q, want %q", s, "(1+(2*X0))")
	}
}

func TestParseInstruction_Errors(t *testing.T) {
	tests := []string{
		"",
		"frobnicate X0",
		"put_const 0 42",
		"put_const X0",
		"put_const X0 x",
		"get_structure X0 f",
		`put_str X0 unquoted extra`,
		"move X0 X1 X2",
		"is X0",
		"set_local 0 f(1",
	}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			if _, err := loader.ParseInstruction(line); err == nil {
				t.Errorf("ParseInstruction(%q) succeeded, want error", line)
			}
		})
	}
}

// Instructions round-trip through their own String form. set_local is not
// listed: its term prints in write/1 form (unquoted strings, variables as
// _G<n>), which the parser does not read back.
func TestParseInstruction_RoundTrip(t *testing.T) {
	instrs := []machine.Instruction{
		machine.PutConst{Register: 0, Value: 42},
		machine.PutStr{Register: 1, Value: "hello world"},
		machine.PutVar{Register: 0, VarID: logic.Var(3), Name: "X"},
		machine.GetConst{Register: 2, Value: -1},
		machine.GetStr{Register: 0, Value: "a"},
		machine.GetVar{Register: 1, VarID: logic.Var(0), Name: "Y"},
		machine.Move{Src: 0, Dst: 5},
		machine.BuildCompound{Target: 2, Functor: "pair", ArgRegisters: []int{0, 1}},
		machine.GetStructure{Register: 0, Functor: "f", Arity: 2},
		machine.Allocate{N: 3},
		machine.Deallocate{},
		machine.GetLocal{Index: 1, Register: 0},
		machine.Call{Predicate: "append"},
		machine.TailCall{Predicate: "loop"},
		machine.Proceed{},
		machine.Choice{Alternative: 17},
		machine.Fail{},
		machine.IndexedCall{Predicate: "p", IndexRegister: 0},
		machine.MultiIndexedCall{Predicate: "p", IndexRegisters: []int{0, 1}},
		machine.AssertClause{Predicate: "p", Address: 4},
		machine.RetractClause{Predicate: "p", Address: 4},
		machine.Cut{},
		machine.Halt{},
	}
	for _, instr := range instrs {
		got, err := loader.ParseInstruction(instr.String())
		if err != nil {
			t.Errorf("ParseInstruction(%q): %v", instr.String(), err)
			continue
		}
		if diff := cmp.Diff(instr, got); diff != "" {
			t.Errorf("round trip of %q mismatch (-want +got):\n%s", instr.String(), diff)
		}
	}
}

const familyProgram = `
registers: 2
program:
  - put_const X0 2
  - call p
  - halt
  - get_const X0 1
  - proceed
  - get_const X0 2
  - proceed
predicates:
  p: [3, 5]
`

func TestParse_RunsProgram(t *testing.T) {
	m, err := loader.Parse([]byte(familyProgram))
	if err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
}

const indexedProgram = `
registers: 1
program:
  - put_const X0 2
  - indexed_call p X0
  - halt
  - get_const X0 1
  - proceed
  - get_const X0 2
  - proceed
predicates:
  p: [3, 5]
index:
  - predicate: p
    key_positions: [0]
`

func TestParse_BuildsIndex(t *testing.T) {
	m, err := loader.Parse([]byte(indexedProgram))
	if err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
}

const countdownProgram = `
registers: 2
program:
  - put_const X0 3
  - call loop
  - halt
  - call write
  - call nl
  - put_const X1 1
  - choice 10
  - call =
  - cut
  - proceed
  - is X0 X0-1
  - tail_call loop
predicates:
  loop: [3]
`

func TestParse_Countdown(t *testing.T) {
	m, err := loader.Parse([]byte(countdownProgram))
	if err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	var out bytes.Buffer
	m.Output = &out
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if got, want := out.String(), "3\n2\n1\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		program string
		wantIn  string
	}{
		{
			"bad yaml",
			"registers: [",
			"parsing program",
		},
		{
			"missing registers",
			"program:\n  - halt\n",
			"register count",
		},
		{
			"bad instruction",
			"registers: 1\nprogram:\n  - frobnicate\n",
			"line 1",
		},
		{
			"clause address out of range",
			"registers: 1\nprogram:\n  - halt\npredicates:\n  p: [9]\n",
			"out of range",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := loader.Parse([]byte(test.program))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), test.wantIn) {
				t.Errorf("err = %q, want it to mention %q", err, test.wantIn)
			}
		})
	}
}
