// Package logic defines the term representation shared by the abstract
// machine and its collaborators.
//
// A term falls in one of three categories:
//
// * atomic: an immutable integer or string value.
//
// * variable: an unbound, yet-to-be-resolved term, identified by a dense
// non-negative id allocated by the machine.
//
// * complex: a term that contains other terms, recursively. Besides the
// usual compound terms, the model carries lambda abstractions and
// applications, so that higher-order goals can be expressed and reduced.
//
// Terms are value-semantic: once built they are never mutated, so sharing a
// term is equivalent to deep-copying it. Two terms are equal iff they are
// structurally equal under the current substitution.
package logic

import (
	"fmt"
	"strings"
)

// ---- Basic types

// Term is a representation of a logic term.
type Term interface {
	fmt.Stringer
	isTerm()
}

// Const is an atomic term representing an integer.
type Const int64

// Str is an atomic term representing an immutable string.
type Str string

// Var is a variable term, identified by its id.
type Var int

// Comp is a complex term with a functor and an ordered list of args.
type Comp struct {
	// Functor is the primary identifier of a comp.
	Functor string
	// Args is the list of terms within this term. Arity is len(Args).
	Args []Term
}

// Lambda is an abstraction binding Param within Body.
type Lambda struct {
	// Param is the bound variable.
	Param Var
	// Body is the abstraction's body, where Param may occur free.
	Body Term
}

// App is the application of Fn to Arg.
type App struct {
	Fn  Term
	Arg Term
}

func (t Const) isTerm()   {}
func (t Str) isTerm()     {}
func (t Var) isTerm()     {}
func (t *Comp) isTerm()   {}
func (t *Lambda) isTerm() {}
func (t *App) isTerm()    {}

// NewComp creates a compound term.
func NewComp(functor string, args ...Term) *Comp {
	return &Comp{Functor: functor, Args: args}
}

// Indicator is a notation for a comp, usually shown as functor/arity, e.g., f/2.
type Indicator struct {
	// Name is the compound term's functor.
	Name string
	// Arity is the compound term's number of args.
	Arity int
}

// Indicator returns the comp's indicator.
func (t *Comp) Indicator() Indicator {
	return Indicator{t.Functor, len(t.Args)}
}

func (i Indicator) String() string {
	return fmt.Sprintf("%s/%d", i.Name, i.Arity)
}

// ---- Formatting

// Format renders a term in its canonical textual form, labeling each
// variable with name. When name reports no label for a variable, it is
// printed as _G<id>.
func Format(t Term, name func(Var) (string, bool)) string {
	var b strings.Builder
	writeTerm(&b, t, name)
	return b.String()
}

func writeTerm(b *strings.Builder, t Term, name func(Var) (string, bool)) {
	switch t := t.(type) {
	case Const:
		fmt.Fprintf(b, "%d", int64(t))
	case Str:
		b.WriteString(string(t))
	case Var:
		if name != nil {
			if s, ok := name(t); ok {
				b.WriteString(s)
				return
			}
		}
		fmt.Fprintf(b, "_G%d", int(t))
	case *Comp:
		b.WriteString(t.Functor)
		b.WriteString("(")
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTerm(b, arg, name)
		}
		b.WriteString(")")
	case *Lambda:
		b.WriteString("λ")
		writeTerm(b, t.Param, name)
		b.WriteString(".")
		writeTerm(b, t.Body, name)
	case *App:
		b.WriteString("(")
		writeTerm(b, t.Fn, name)
		b.WriteString(" ")
		writeTerm(b, t.Arg, name)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "<%v>", t)
	}
}

func (t Const) String() string   { return Format(t, nil) }
func (t Str) String() string     { return Format(t, nil) }
func (t Var) String() string     { return Format(t, nil) }
func (t *Comp) String() string   { return Format(t, nil) }
func (t *Lambda) String() string { return Format(t, nil) }
func (t *App) String() string    { return Format(t, nil) }
