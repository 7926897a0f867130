package machine

import (
	"github.com/lambdavm/lam/logic"
)

// TrailEntry records a variable's previous binding so it can be restored on
// backtrack. The entry is the previous value itself, never a pointer back
// into the store.
type TrailEntry struct {
	Var      logic.Var
	Previous logic.Term
}

// Bindings is the variable binding store: a union-find keyed by variable id,
// paired with an append-only trail enabling checkpointed rollback.
type Bindings struct {
	values map[logic.Var]logic.Term
	trail  []TrailEntry
}

// NewBindings creates an empty binding store.
func NewBindings() *Bindings {
	return &Bindings{values: make(map[logic.Var]logic.Term)}
}

// Value returns the direct binding of v, if any.
func (b *Bindings) Value(v logic.Var) (logic.Term, bool) {
	t, ok := b.values[v]
	return t, ok
}

// walk follows the binding chain at the root of t until a non-variable or an
// unbound variable is reached.
func (b *Bindings) walk(t logic.Term) logic.Term {
	x, ok := t.(logic.Var)
	for ok {
		bound, isBound := b.values[x]
		if !isBound {
			return x
		}
		t = bound
		x, ok = t.(logic.Var)
	}
	return t
}

// Resolve returns the term reached by repeatedly following variable bindings
// at the root, with every constituent of compounds, abstraction bodies and
// applications resolved recursively. Lambda binders are left untouched.
//
// Resolve never compresses paths: it is read-only, so rollback soundness
// does not depend on it.
func (b *Bindings) Resolve(t logic.Term) logic.Term {
	t = b.walk(t)
	switch t := t.(type) {
	case *logic.Comp:
		args := make([]logic.Term, len(t.Args))
		for i, arg := range t.Args {
			args[i] = b.Resolve(arg)
		}
		return &logic.Comp{Functor: t.Functor, Args: args}
	case *logic.Lambda:
		return &logic.Lambda{Param: t.Param, Body: b.Resolve(t.Body)}
	case *logic.App:
		return &logic.App{Fn: b.Resolve(t.Fn), Arg: b.Resolve(t.Arg)}
	default:
		return t
	}
}

// Bind records v's current binding on the trail, then binds v to t.
// Binding a variable to itself is a no-op.
func (b *Bindings) Bind(v logic.Var, t logic.Term) {
	if x, ok := t.(logic.Var); ok && x == v {
		return
	}
	previous := b.values[v]
	b.trail = append(b.trail, TrailEntry{Var: v, Previous: previous})
	b.values[v] = t
}

// Checkpoint returns the current trail length, to be passed to Undo.
func (b *Bindings) Checkpoint() int {
	return len(b.trail)
}

// Undo pops trail entries until the trail length equals mark, restoring each
// variable to its previous binding. The store ends up exactly in the state
// it had when Checkpoint returned mark.
func (b *Bindings) Undo(mark int) {
	for len(b.trail) > mark {
		n := len(b.trail)
		entry := b.trail[n-1]
		b.trail = b.trail[:n-1]
		if entry.Previous == nil {
			delete(b.values, entry.Var)
		} else {
			b.values[entry.Var] = entry.Previous
		}
	}
}

// NumBindings returns how many variables are currently bound.
func (b *Bindings) NumBindings() int {
	return len(b.values)
}

// each calls f for every bound variable. Iteration order is unspecified.
func (b *Bindings) each(f func(logic.Var, logic.Term)) {
	for v, t := range b.values {
		f(v, t)
	}
}
