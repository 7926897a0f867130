package machine_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lambdavm/lam/logic"
	"github.com/lambdavm/lam/machine"
)

func TestRun_PutGetConst(t *testing.T) {
	m := newMachine(1,
		put_const{Register: 0, Value: 42},
		get_const{Register: 0, Value: 42},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
}

func TestRun_GetConstMismatch(t *testing.T) {
	m := newMachine(1,
		put_const{Register: 0, Value: 1},
		get_const{Register: 0, Value: 2},
	)
	err := m.Run()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if _, ok := err.(*machine.NoChoicePointError); !ok {
		t.Errorf("err = %T (%v), want *machine.NoChoicePointError", err, err)
	}
}

func TestRun_Strings(t *testing.T) {
	m := newMachine(2,
		put_str{Register: 0, Value: "hello"},
		get_str{Register: 0, Value: "hello"},
		move{Src: 0, Dst: 1},
		get_str{Register: 1, Value: "hello"},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
}

func TestRun_BuildCompoundAndGetStructure(t *testing.T) {
	m := newMachine(3,
		put_const{Register: 0, Value: 1},
		put_str{Register: 1, Value: "a"},
		build_compound{Target: 2, Functor: "pair", ArgRegisters: []int{0, 1}},
		get_structure{Register: 2, Functor: "pair", Arity: 2},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	want := logic.Term(comp("pair", cnst(1), str("a")))
	if diff := cmp.Diff(want, m.RegisterValue(2)); diff != "" {
		t.Errorf("X2 mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_GetStructureMismatchBacktracks(t *testing.T) {
	// The structure test fails, so execution falls back to the choice
	// point's alternative.
	m := newMachine(2,
		put_const{Register: 0, Value: 7},
		choice{Alternative: 4},
		get_structure{Register: 0, Functor: "f", Arity: 1},
		halt{},
		put_const{Register: 1, Value: 99},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if diff := cmp.Diff(logic.Term(cnst(99)), m.RegisterValue(1)); diff != "" {
		t.Errorf("X1 mismatch (-want +got):\n%s", diff)
	}
}

// Rollback soundness: failing back into a choice point restores registers
// and bindings captured at its creation.
func TestRun_BacktrackRestoresState(t *testing.T) {
	m := newMachine(2,
		put_var{Register: 0, VarID: v(0), Name: "X"},
		choice{Alternative: 6},
		get_const{Register: 0, Value: 1},
		put_const{Register: 1, Value: 111},
		fail{},
		halt{},
		get_const{Register: 0, Value: 2},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	// The binding X=1 and the write to X1 were rolled back; the second
	// alternative bound X=2.
	got := m.Bindings.Resolve(m.RegisterValue(0))
	if diff := cmp.Diff(logic.Term(cnst(2)), got); diff != "" {
		t.Errorf("X0 mismatch (-want +got):\n%s", diff)
	}
	if got := m.RegisterValue(1); got != nil {
		t.Errorf("X1 = %v, want rolled-back empty slot", got)
	}
	if got := len(m.ChoiceStack); got != 0 {
		t.Errorf("choice stack depth = %d, want 0", got)
	}
}

func TestRun_CallBacktracksThroughClauses(t *testing.T) {
	// p(1). p(2). — calling p with X0 = 2 succeeds via the second clause.
	code := []instruction{
		put_const{Register: 0, Value: 2},
		call{Predicate: "p"},
		halt{},
		get_const{Register: 0, Value: 1},
		proceed{},
		get_const{Register: 0, Value: 2},
		proceed{},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("p", 3, 5)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}

	// With X0 = 3, both clauses fail and the query has no solutions.
	code[0] = put_const{Register: 0, Value: 3}
	m = machine.New(code, 1)
	m.RegisterPredicate("p", 3, 5)
	err := m.Run()
	if _, ok := err.(*machine.NoChoicePointError); !ok {
		t.Errorf("err = %T (%v), want *machine.NoChoicePointError", err, err)
	}
}

// Clause ordering: successive backtracks into a predicate try clauses in
// assertion order.
func TestRun_ClauseOrdering(t *testing.T) {
	code := []instruction{
		put_var{Register: 0, VarID: v(0), Name: "X"},
		call{Predicate: "p"},
		get_const{Register: 0, Value: 3},
		halt{},
		get_const{Register: 0, Value: 1},
		proceed{},
		get_const{Register: 0, Value: 2},
		proceed{},
		get_const{Register: 0, Value: 3},
		proceed{},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("p", 4, 6, 8)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	got := m.Bindings.Resolve(m.RegisterValue(0))
	if diff := cmp.Diff(logic.Term(cnst(3)), got); diff != "" {
		t.Errorf("X0 mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_PredicateNotFound(t *testing.T) {
	m := newMachine(1, call{Predicate: "missing"})
	err := m.Run()
	if _, ok := err.(*machine.PredicateNotFoundError); !ok {
		t.Errorf("err = %T (%v), want *machine.PredicateNotFoundError", err, err)
	}
}

func TestRun_AssertRetract(t *testing.T) {
	// assert p@5, assert p@7, retract p@5: the call must land on p@7.
	m := newMachine(1,
		assert_clause{Predicate: "p", Address: 5},
		assert_clause{Predicate: "p", Address: 7},
		retract_clause{Predicate: "p", Address: 5},
		call{Predicate: "p"},
		halt{},
		put_const{Register: 0, Value: 1},
		proceed{},
		put_const{Register: 0, Value: 2},
		proceed{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if diff := cmp.Diff(logic.Term(cnst(2)), m.RegisterValue(0)); diff != "" {
		t.Errorf("X0 mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_RetractMissingClause(t *testing.T) {
	m := newMachine(1,
		assert_clause{Predicate: "p", Address: 2},
		retract_clause{Predicate: "p", Address: 99},
	)
	err := m.Run()
	if _, ok := err.(*machine.ClauseNotFoundError); !ok {
		t.Errorf("err = %T (%v), want *machine.ClauseNotFoundError", err, err)
	}
}

// Cut pruning: the first clause of q cuts away the alternative, so the
// mismatch afterwards fails the whole query.
func TestRun_Cut(t *testing.T) {
	code := []instruction{
		put_const{Register: 0, Value: 2},
		call{Predicate: "q"},
		halt{},
		cut{},
		get_const{Register: 0, Value: 1},
		proceed{},
		get_const{Register: 0, Value: 2},
		proceed{},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("q", 3, 6)
	err := m.Run()
	if _, ok := err.(*machine.NoChoicePointError); !ok {
		t.Errorf("err = %T (%v), want *machine.NoChoicePointError", err, err)
	}

	// Without the cut the second clause is reached and the query succeeds.
	code[3] = get_const{Register: 0, Value: 1}
	code[4] = proceed{}
	code[5] = halt{}
	m = machine.New(code, 1)
	m.RegisterPredicate("q", 3, 6)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
}

// After a cut, no choice point at or above the current call level remains.
func TestRun_CutPrunesDeeperChoicePoints(t *testing.T) {
	code := []instruction{
		call{Predicate: "q"},
		halt{},
		choice{Alternative: 6},
		choice{Alternative: 6},
		cut{},
		proceed{},
		proceed{},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("q", 2)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if got := len(m.ChoiceStack); got != 0 {
		t.Errorf("choice stack depth = %d, want 0 after cut", got)
	}
}

func TestRun_TailCall(t *testing.T) {
	code := []instruction{
		put_const{Register: 0, Value: 1},
		call{Predicate: "p"},
		halt{},
		tail_call{Predicate: "q"},
		get_const{Register: 0, Value: 1},
		proceed{},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("p", 3)
	m.RegisterPredicate("q", 4)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if got := len(m.ControlStack); got != 0 {
		t.Errorf("control stack depth = %d, want 0", got)
	}
}

func TestRun_TailCallDeallocatesFrame(t *testing.T) {
	code := []instruction{
		call{Predicate: "p"},
		halt{},
		allocate{N: 2},
		set_local{Index: 0, Value: cnst(5)},
		tail_call{Predicate: "q"},
		proceed{},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("p", 2)
	m.RegisterPredicate("q", 5)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if got := len(m.EnvironmentStack); got != 0 {
		t.Errorf("environment stack depth = %d, want 0", got)
	}
}

func TestRun_Locals(t *testing.T) {
	m := newMachine(2,
		allocate{N: 2},
		set_local{Index: 0, Value: cnst(7)},
		set_local{Index: 1, Value: comp("f", str("a"))},
		get_local{Index: 0, Register: 0},
		get_local{Index: 1, Register: 1},
		deallocate{},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if diff := cmp.Diff(logic.Term(cnst(7)), m.RegisterValue(0)); diff != "" {
		t.Errorf("X0 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(logic.Term(comp("f", str("a"))), m.RegisterValue(1)); diff != "" {
		t.Errorf("X1 mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_GetLocalUnifiesInitializedRegister(t *testing.T) {
	m := newMachine(1,
		put_const{Register: 0, Value: 3},
		allocate{N: 1},
		set_local{Index: 0, Value: cnst(3)},
		get_local{Index: 0, Register: 0},
		deallocate{},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
}

func TestRun_DeallocateWithoutFrame(t *testing.T) {
	m := newMachine(1, deallocate{})
	err := m.Run()
	if _, ok := err.(*machine.EnvironmentError); !ok {
		t.Errorf("err = %T (%v), want *machine.EnvironmentError", err, err)
	}
}

func TestRun_RegisterOutOfBounds(t *testing.T) {
	m := newMachine(1, put_const{Register: 5, Value: 1})
	err := m.Run()
	if _, ok := err.(*machine.RegisterOutOfBoundsError); !ok {
		t.Errorf("err = %T (%v), want *machine.RegisterOutOfBoundsError", err, err)
	}
}

func TestRun_UninitializedRegister(t *testing.T) {
	m := newMachine(1, get_const{Register: 0, Value: 1})
	err := m.Run()
	if _, ok := err.(*machine.UninitializedRegisterError); !ok {
		t.Errorf("err = %T (%v), want *machine.UninitializedRegisterError", err, err)
	}
}

func TestRun_GetVarInitializesAndUnifies(t *testing.T) {
	m := newMachine(2,
		get_var{Register: 0, VarID: v(0), Name: "X"},
		put_const{Register: 1, Value: 9},
		get_var{Register: 1, VarID: v(1), Name: "Y"},
		halt{},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if diff := cmp.Diff(logic.Term(v(0)), m.RegisterValue(0)); diff != "" {
		t.Errorf("X0 mismatch (-want +got):\n%s", diff)
	}
	got := m.Bindings.Resolve(v(1))
	if diff := cmp.Diff(logic.Term(cnst(9)), got); diff != "" {
		t.Errorf("Resolve(Y) mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Halt(t *testing.T) {
	m := newMachine(1,
		halt{},
		put_const{Register: 0, Value: 1},
	)
	if err := m.Run(); err != nil {
		t.Fatalf("expected nil, got err: %v", err)
	}
	if got := m.RegisterValue(0); got != nil {
		t.Errorf("X0 = %v, want untouched register after halt", got)
	}
}

func TestRun_IterLimit(t *testing.T) {
	// q loops on itself through a tail call.
	code := []instruction{
		call{Predicate: "q"},
		halt{},
		tail_call{Predicate: "q"},
	}
	m := machine.New(code, 1)
	m.RegisterPredicate("q", 2)
	m.IterLimit = 100
	if err := m.Run(); err == nil {
		t.Fatal("expected iteration limit error, got nil")
	}
}
