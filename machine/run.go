package machine

import (
	"fmt"

	"github.com/lambdavm/lam/logic"
)

// Run executes the program until PC runs past the end of the code, a Halt
// instruction is reached, or an error occurs.
//
// Backtrackable errors are routed to the choice stack; when no choice point
// remains they surface as NoChoicePointError, which the host should read as
// "no more solutions". Fatal errors abort the run.
func (m *Machine) Run() error {
	for i := 0; m.PC < len(m.Code); i++ {
		if m.IterLimit > 0 && i >= m.IterLimit {
			return fmt.Errorf("maximum iteration limit reached: %d", i)
		}
		instr := m.Code[m.PC]
		m.PC++
		m.trace(instr)
		if err := m.execute(instr); err != nil {
			if !backtrackable(err) {
				return err
			}
			if err := m.backtrack(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Step executes a single instruction. A backtrackable error it produces is
// returned to the caller instead of being routed to the choice stack; a fail
// instruction still backtracks by itself.
func (m *Machine) Step() error {
	if m.PC >= len(m.Code) {
		return &EnvironmentError{"no more instructions"}
	}
	instr := m.Code[m.PC]
	m.PC++
	m.trace(instr)
	return m.execute(instr)
}

func (m *Machine) checkRegister(r int) error {
	if r < 0 || r >= len(m.Registers) {
		return &RegisterOutOfBoundsError{r}
	}
	return nil
}

// readRegister returns the term in register r, which must be initialized.
func (m *Machine) readRegister(r int) (logic.Term, error) {
	if err := m.checkRegister(r); err != nil {
		return nil, err
	}
	if m.Registers[r] == nil {
		return nil, &UninitializedRegisterError{r}
	}
	return m.Registers[r], nil
}

func (m *Machine) execute(instr Instruction) error {
	switch instr := instr.(type) {
	case PutConst:
		if err := m.checkRegister(instr.Register); err != nil {
			return err
		}
		m.Registers[instr.Register] = logic.Const(instr.Value)
	case PutStr:
		if err := m.checkRegister(instr.Register); err != nil {
			return err
		}
		m.Registers[instr.Register] = logic.Str(instr.Value)
	case PutVar:
		if err := m.checkRegister(instr.Register); err != nil {
			return err
		}
		m.noteVar(instr.VarID)
		m.Registers[instr.Register] = instr.VarID
		if instr.Name != "" {
			m.VarNames[instr.VarID] = instr.Name
		}
	case GetConst:
		term, err := m.readRegister(instr.Register)
		if err != nil {
			return err
		}
		return m.unifyAttempt(term, logic.Const(instr.Value))
	case GetStr:
		term, err := m.readRegister(instr.Register)
		if err != nil {
			return err
		}
		return m.unifyAttempt(term, logic.Str(instr.Value))
	case GetVar:
		// The one instruction allowed to initialize an empty register.
		if err := m.checkRegister(instr.Register); err != nil {
			return err
		}
		m.noteVar(instr.VarID)
		if _, ok := m.VarNames[instr.VarID]; !ok && instr.Name != "" {
			m.VarNames[instr.VarID] = instr.Name
		}
		if m.Registers[instr.Register] == nil {
			m.Registers[instr.Register] = instr.VarID
			return nil
		}
		return m.unifyAttempt(instr.VarID, m.Registers[instr.Register])
	case Move:
		if err := m.checkRegister(instr.Src); err != nil {
			return err
		}
		if err := m.checkRegister(instr.Dst); err != nil {
			return err
		}
		m.Registers[instr.Dst] = m.Registers[instr.Src]
	case BuildCompound:
		args := make([]logic.Term, len(instr.ArgRegisters))
		for i, r := range instr.ArgRegisters {
			term, err := m.readRegister(r)
			if err != nil {
				return err
			}
			args[i] = m.Bindings.Resolve(term)
		}
		if err := m.checkRegister(instr.Target); err != nil {
			return err
		}
		m.Registers[instr.Target] = &logic.Comp{Functor: instr.Functor, Args: args}
	case GetStructure:
		term, err := m.readRegister(instr.Register)
		if err != nil {
			return err
		}
		resolved := m.Bindings.Resolve(term)
		c, ok := resolved.(*logic.Comp)
		if !ok || c.Functor != instr.Functor || len(c.Args) != instr.Arity {
			want := logic.Indicator{Name: instr.Functor, Arity: instr.Arity}
			return &UnificationError{m.formatTerm(resolved), want}
		}
	case ArithmeticIs:
		result, err := m.evaluate(instr.Expression)
		if err != nil {
			return err
		}
		if err := m.checkRegister(instr.Target); err != nil {
			return err
		}
		m.Registers[instr.Target] = logic.Const(result)
	case Allocate:
		m.EnvironmentStack = append(m.EnvironmentStack, make([]logic.Term, instr.N))
	case Deallocate:
		if len(m.EnvironmentStack) == 0 {
			return &EnvironmentError{"deallocate: no environment frame"}
		}
		m.EnvironmentStack = m.EnvironmentStack[:len(m.EnvironmentStack)-1]
	case SetLocal:
		env, err := m.topEnvironment()
		if err != nil {
			return err
		}
		if instr.Index < 0 || instr.Index >= len(env) {
			return &EnvironmentError{fmt.Sprintf("set_local: slot %d out of range", instr.Index)}
		}
		m.noteTermVars(instr.Value)
		env[instr.Index] = instr.Value
	case GetLocal:
		env, err := m.topEnvironment()
		if err != nil {
			return err
		}
		if instr.Index < 0 || instr.Index >= len(env) {
			return &EnvironmentError{fmt.Sprintf("get_local: slot %d out of range", instr.Index)}
		}
		if env[instr.Index] == nil {
			return &UninitializedRegisterError{instr.Index}
		}
		if err := m.checkRegister(instr.Register); err != nil {
			return err
		}
		if m.Registers[instr.Register] == nil {
			m.Registers[instr.Register] = env[instr.Index]
			return nil
		}
		return m.unifyAttempt(m.Registers[instr.Register], env[instr.Index])
	case Call:
		if builtin, ok := m.builtins[instr.Predicate]; ok {
			return builtin(m)
		}
		clauses, ok := m.Predicates[instr.Predicate]
		if !ok {
			return &PredicateNotFoundError{instr.Predicate}
		}
		if len(clauses) == 0 {
			return m.backtrack()
		}
		// PC was already advanced, so it is the return address.
		m.ControlStack = append(m.ControlStack, Frame{ReturnPC: m.PC})
		m.enterClauses(clauses)
	case TailCall:
		// Discard the current environment frame, if any; the callee
		// reuses the caller's return frame.
		if n := len(m.EnvironmentStack); n > 0 {
			m.EnvironmentStack = m.EnvironmentStack[:n-1]
		}
		if builtin, ok := m.builtins[instr.Predicate]; ok {
			return builtin(m)
		}
		clauses, ok := m.Predicates[instr.Predicate]
		if !ok {
			return &PredicateNotFoundError{instr.Predicate}
		}
		if len(clauses) == 0 {
			return m.backtrack()
		}
		m.enterClauses(clauses)
	case Proceed:
		if len(m.ControlStack) == 0 {
			return &EnvironmentError{"proceed: control stack is empty"}
		}
		frame := m.ControlStack[len(m.ControlStack)-1]
		m.ControlStack = m.ControlStack[:len(m.ControlStack)-1]
		m.PC = frame.ReturnPC
	case Choice:
		m.ChoiceStack = append(m.ChoiceStack, m.newChoicePoint([]int{instr.Alternative}))
	case Fail:
		return m.backtrack()
	case IndexedCall:
		term, err := m.readRegister(instr.IndexRegister)
		if err != nil {
			return err
		}
		key := encodeKey(m.Bindings.Resolve(term))
		return m.indexedCall(instr.Predicate, key)
	case MultiIndexedCall:
		keyTerms := make([]logic.Term, len(instr.IndexRegisters))
		for i, r := range instr.IndexRegisters {
			term, err := m.readRegister(r)
			if err != nil {
				return err
			}
			keyTerms[i] = m.Bindings.Resolve(term)
		}
		return m.indexedCall(instr.Predicate, compositeKey(keyTerms))
	case AssertClause:
		m.assertClause(instr.Predicate, instr.Address)
	case RetractClause:
		return m.retractClause(instr.Predicate, instr.Address)
	case Cut:
		// Barrier semantics: drop every choice point whose call level is
		// at or above the current one, including the one created by the
		// call being cut.
		level := len(m.ControlStack)
		for n := len(m.ChoiceStack); n > 0 && m.ChoiceStack[n-1].CallLevel >= level; n = len(m.ChoiceStack) {
			m.ChoiceStack = m.ChoiceStack[:n-1]
		}
	case Halt:
		m.PC = len(m.Code)
	default:
		return fmt.Errorf("unhandled instruction %T (%v)", instr, instr)
	}
	return nil
}

func (m *Machine) topEnvironment() ([]logic.Term, error) {
	if len(m.EnvironmentStack) == 0 {
		return nil, &EnvironmentError{"no environment frame"}
	}
	return m.EnvironmentStack[len(m.EnvironmentStack)-1], nil
}

// newChoicePoint snapshots the machine state for backtracking. The register
// file and control stack are copied; the trail is captured by its length.
func (m *Machine) newChoicePoint(alternatives []int) *ChoicePoint {
	return &ChoicePoint{
		SavedRegisters:    append([]logic.Term(nil), m.Registers...),
		SavedTrailMark:    m.Bindings.Checkpoint(),
		SavedControlStack: append([]Frame(nil), m.ControlStack...),
		Alternatives:      alternatives,
		CallLevel:         len(m.ControlStack),
	}
}

// enterClauses jumps to the first clause, pushing a choice point over the
// remaining alternatives when there is more than one.
func (m *Machine) enterClauses(clauses []int) {
	first := clauses[0]
	if len(clauses) > 1 {
		rest := append([]int(nil), clauses[1:]...)
		m.ChoiceStack = append(m.ChoiceStack, m.newChoicePoint(rest))
	}
	m.PC = first
}

// indexedCall jumps to the first clause indexed under key, or fails with a
// backtrackable error when the key has no clauses.
func (m *Machine) indexedCall(predicate, key string) error {
	index, ok := m.Index[predicate]
	if !ok {
		return &IndexLookupError{predicate, key}
	}
	clauses := index[key]
	if len(clauses) == 0 {
		return &IndexLookupError{predicate, key}
	}
	m.ControlStack = append(m.ControlStack, Frame{ReturnPC: m.PC})
	m.enterClauses(clauses)
	return nil
}

// backtrack restores the machine to the most recent choice point and jumps
// to its next alternative. When alternatives remain after the jump, the
// choice point is pushed back with the shortened list and the original
// snapshot.
func (m *Machine) backtrack() error {
	n := len(m.ChoiceStack)
	if n == 0 {
		return &NoChoicePointError{}
	}
	cp := m.ChoiceStack[n-1]
	m.ChoiceStack = m.ChoiceStack[:n-1]

	m.Bindings.Undo(cp.SavedTrailMark)
	m.Registers = append([]logic.Term(nil), cp.SavedRegisters...)
	m.ControlStack = append([]Frame(nil), cp.SavedControlStack...)

	next := cp.Alternatives[0]
	if rest := cp.Alternatives[1:]; len(rest) > 0 {
		m.ChoiceStack = append(m.ChoiceStack, &ChoicePoint{
			SavedRegisters:    cp.SavedRegisters,
			SavedTrailMark:    cp.SavedTrailMark,
			SavedControlStack: cp.SavedControlStack,
			Alternatives:      rest,
			CallLevel:         cp.CallLevel,
		})
	}
	m.PC = next
	m.traceBacktrack(cp, next)
	return nil
}
