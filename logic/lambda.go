package logic

// Fresh allocates a variable id that is not in use anywhere in the machine.
// Capture-avoiding substitution requires one to rename binders.
type Fresh func() Var

// FreeVars returns the set of variables that occur free in t.
func FreeVars(t Term) map[Var]struct{} {
	free := make(map[Var]struct{})
	collectFreeVars(t, free)
	return free
}

func collectFreeVars(t Term, free map[Var]struct{}) {
	switch t := t.(type) {
	case Const, Str:
	case Var:
		free[t] = struct{}{}
	case *Comp:
		for _, arg := range t.Args {
			collectFreeVars(arg, free)
		}
	case *Lambda:
		inner := make(map[Var]struct{})
		collectFreeVars(t.Body, inner)
		delete(inner, t.Param)
		for x := range inner {
			free[x] = struct{}{}
		}
	case *App:
		collectFreeVars(t.Fn, free)
		collectFreeVars(t.Arg, free)
	}
}

// Substitute replaces free occurrences of v in t with value.
//
// At a Lambda whose param equals v the abstraction shadows the substitution
// and the term is returned unchanged. When the param occurs free in value,
// it is first renamed to a fresh variable so that value's variables are not
// captured.
func Substitute(t Term, v Var, value Term, fresh Fresh) Term {
	switch t := t.(type) {
	case Const, Str:
		return t
	case Var:
		if t == v {
			return value
		}
		return t
	case *Comp:
		args := make([]Term, len(t.Args))
		for i, arg := range t.Args {
			args[i] = Substitute(arg, v, value, fresh)
		}
		return &Comp{Functor: t.Functor, Args: args}
	case *Lambda:
		if t.Param == v {
			return t
		}
		if _, captured := FreeVars(value)[t.Param]; captured {
			renamed := fresh()
			body := Substitute(t.Body, t.Param, renamed, fresh)
			return &Lambda{Param: renamed, Body: Substitute(body, v, value, fresh)}
		}
		return &Lambda{Param: t.Param, Body: Substitute(t.Body, v, value, fresh)}
	case *App:
		return &App{
			Fn:  Substitute(t.Fn, v, value, fresh),
			Arg: Substitute(t.Arg, v, value, fresh),
		}
	default:
		return t
	}
}

// BetaReduceOnce performs a single leftmost-outermost beta reduction.
// If no redex exists, the term is returned unchanged.
func BetaReduceOnce(t Term, fresh Fresh) Term {
	reduced, _ := betaReduce(t, fresh)
	return reduced
}

func betaReduce(t Term, fresh Fresh) (Term, bool) {
	switch t := t.(type) {
	case *App:
		if l, ok := t.Fn.(*Lambda); ok {
			return Substitute(l.Body, l.Param, t.Arg, fresh), true
		}
		if fn, ok := betaReduce(t.Fn, fresh); ok {
			return &App{Fn: fn, Arg: t.Arg}, true
		}
		if arg, ok := betaReduce(t.Arg, fresh); ok {
			return &App{Fn: t.Fn, Arg: arg}, true
		}
		return t, false
	case *Lambda:
		if body, ok := betaReduce(t.Body, fresh); ok {
			return &Lambda{Param: t.Param, Body: body}, true
		}
		return t, false
	case *Comp:
		for i, arg := range t.Args {
			if arg, ok := betaReduce(arg, fresh); ok {
				args := make([]Term, len(t.Args))
				copy(args, t.Args)
				args[i] = arg
				return &Comp{Functor: t.Functor, Args: args}, true
			}
		}
		return t, false
	default:
		return t, false
	}
}
