package machine

import (
	"fmt"
)

// Errors surfaced by the executor come in two classes. Backtrackable errors
// (unification failure, fail, structure mismatch, indexed lookup miss) are
// caught by the dispatch loop and routed to the choice stack. Every other
// kind is fatal: it aborts Run and is returned to the host.

// RegisterOutOfBoundsError reports access to a register index outside the
// machine's register file. Fatal.
type RegisterOutOfBoundsError struct {
	Index int
}

func (err *RegisterOutOfBoundsError) Error() string {
	return fmt.Sprintf("register X%d is out of bounds", err.Index)
}

// UninitializedRegisterError reports a read from a register slot that holds
// no term. Fatal.
type UninitializedRegisterError struct {
	Index int
}

func (err *UninitializedRegisterError) Error() string {
	return fmt.Sprintf("register X%d is uninitialized", err.Index)
}

// UnificationError reports that two terms do not unify. Backtrackable.
type UnificationError struct {
	Left, Right interface{}
}

func (err *UnificationError) Error() string {
	return fmt.Sprintf("cannot unify %v with %v", err.Left, err.Right)
}

// PredicateNotFoundError reports a call to a predicate with no entry in the
// predicate table. Fatal.
type PredicateNotFoundError struct {
	Predicate string
}

func (err *PredicateNotFoundError) Error() string {
	return fmt.Sprintf("predicate not found: %s", err.Predicate)
}

// NoChoicePointError is returned when a failure has no choice point left to
// consume. It surfaces to the caller as query failure, not a crash.
type NoChoicePointError struct{}

func (err *NoChoicePointError) Error() string {
	return "no choice point available"
}

// EnvironmentError reports a missing environment frame, an out-of-range
// local slot, or an empty control stack. Fatal.
type EnvironmentError struct {
	Message string
}

func (err *EnvironmentError) Error() string {
	return err.Message
}

// ArithmeticError reports a failure while evaluating an arithmetic
// expression, such as division by zero or a non-integer operand. Fatal.
type ArithmeticError struct {
	Message string
}

func (err *ArithmeticError) Error() string {
	return fmt.Sprintf("arithmetic: %s", err.Message)
}

// ClauseNotFoundError reports a retract of a clause address that is not
// present for the predicate. Fatal.
type ClauseNotFoundError struct {
	Predicate string
	Address   int
}

func (err *ClauseNotFoundError) Error() string {
	return fmt.Sprintf("clause at %d not found for predicate %s", err.Address, err.Predicate)
}

// IndexLookupError reports an indexed call whose key has no clause list.
// Backtrackable.
type IndexLookupError struct {
	Predicate string
	Key       string
}

func (err *IndexLookupError) Error() string {
	return fmt.Sprintf("no indexed clause for predicate %s with key %q", err.Predicate, err.Key)
}

// backtrackable reports whether err should be routed to the choice stack
// rather than aborting the run.
func backtrackable(err error) bool {
	switch err.(type) {
	case *UnificationError, *IndexLookupError:
		return true
	}
	return false
}
