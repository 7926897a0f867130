// Package errors provides formatted errors that keep their wrapped cause,
// plus helpers to annotate errors with source positions.
package errors

import (
	"fmt"
)

type err struct {
	msg  string
	args []interface{}
}

func (err err) Error() string {
	return fmt.Sprintf(err.msg, err.args...)
}

func (err err) Unwrap() error {
	for _, arg := range err.args {
		if wrapped, ok := arg.(error); ok {
			return wrapped
		}
	}
	return nil
}

// New returns an error with a printf-style message. If any arg is an error,
// it is surfaced by Unwrap.
func New(msg string, args ...interface{}) error {
	return err{msg, args}
}

// Line annotates an error with a 1-based line number. The cause is kept
// available through Unwrap.
func Line(line int, cause error) error {
	return err{"line %d: %v", []interface{}{line, cause}}
}
