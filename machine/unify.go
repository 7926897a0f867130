package machine

import (
	"github.com/lambdavm/lam/logic"
)

// Unify unifies two terms under the current substitution, binding variables
// through the trail. On failure, bindings made by the partial attempt are
// left on the trail; callers that need atomicity wrap the attempt between
// Checkpoint and Undo (see unifyAttempt).
func (m *Machine) Unify(a, b logic.Term) error {
	a = m.reduce(m.Bindings.Resolve(a))
	b = m.reduce(m.Bindings.Resolve(b))
	if x, ok := a.(logic.Var); ok {
		if y, ok := b.(logic.Var); ok && x == y {
			return nil
		}
		return m.bindChecked(x, b)
	}
	if y, ok := b.(logic.Var); ok {
		return m.bindChecked(y, a)
	}
	switch t1 := a.(type) {
	case logic.Const:
		if t2, ok := b.(logic.Const); ok && t1 == t2 {
			return nil
		}
	case logic.Str:
		if t2, ok := b.(logic.Str); ok && t1 == t2 {
			return nil
		}
	case *logic.Comp:
		t2, ok := b.(*logic.Comp)
		if !ok || t1.Functor != t2.Functor || len(t1.Args) != len(t2.Args) {
			break
		}
		for i := range t1.Args {
			if err := m.Unify(t1.Args[i], t2.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case *logic.App:
		t2, ok := b.(*logic.App)
		if !ok {
			break
		}
		if err := m.Unify(t1.Fn, t2.Fn); err != nil {
			return err
		}
		return m.Unify(t1.Arg, t2.Arg)
	case *logic.Lambda:
		t2, ok := b.(*logic.Lambda)
		if !ok {
			break
		}
		// Alpha-rename both binders to a shared fresh variable, then
		// unify the bodies. The fresh id must not collide with any
		// variable occurring in either abstraction.
		m.noteTermVars(t1)
		m.noteTermVars(t2)
		x := m.fresh()
		body1 := logic.Substitute(t1.Body, t1.Param, x, m.fresh)
		body2 := logic.Substitute(t2.Body, t2.Param, x, m.fresh)
		return m.Unify(body1, body2)
	}
	return &UnificationError{m.formatTerm(a), m.formatTerm(b)}
}

// reduce contracts beta redexes at the root of a resolved term, so that an
// application of an abstraction unifies as its contractum.
func (m *Machine) reduce(t logic.Term) logic.Term {
	for {
		app, ok := t.(*logic.App)
		if !ok {
			return t
		}
		l, ok := m.Bindings.Resolve(app.Fn).(*logic.Lambda)
		if !ok {
			return t
		}
		t = m.Bindings.Resolve(logic.Substitute(l.Body, l.Param, app.Arg, m.fresh))
	}
}

// bindChecked binds an unbound variable, applying the occurs check when the
// machine requests it.
func (m *Machine) bindChecked(v logic.Var, t logic.Term) error {
	if m.OccursCheck && occurs(v, t) {
		return &UnificationError{m.formatTerm(v), m.formatTerm(t)}
	}
	m.Bindings.Bind(v, t)
	return nil
}

// occurs reports whether v occurs in the resolved term t.
func occurs(v logic.Var, t logic.Term) bool {
	switch t := t.(type) {
	case logic.Var:
		return t == v
	case *logic.Comp:
		for _, arg := range t.Args {
			if occurs(v, arg) {
				return true
			}
		}
	case *logic.Lambda:
		if t.Param == v {
			return false
		}
		return occurs(v, t.Body)
	case *logic.App:
		return occurs(v, t.Fn) || occurs(v, t.Arg)
	}
	return false
}

// unifyAttempt runs a unification between a trail checkpoint and a
// conditional rollback, so a failed attempt leaves no partial bindings.
func (m *Machine) unifyAttempt(a, b logic.Term) error {
	mark := m.Bindings.Checkpoint()
	if err := m.Unify(a, b); err != nil {
		m.Bindings.Undo(mark)
		return err
	}
	return nil
}
