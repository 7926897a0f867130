package machine

import (
	"fmt"
	"strings"

	"github.com/lambdavm/lam/logic"
)

// The clause store keeps, per predicate, the ordered list of clause
// addresses, which defines the default search order. A predicate may also
// carry an index: a map from a canonical key encoding of one or more
// argument terms to the clause addresses reachable under that key.

// keySeparator joins per-argument encodings into a composite key. A string
// or functor may itself contain it, but every single-term encoding is
// self-delimiting (lengths and terminators), so composite keys stay
// injective.
const keySeparator = "\x1f"

// encodeKey returns an injective canonical encoding of a resolved term.
// Each variant is prefixed with a tag; strings and functors carry their
// length so that the encoding cannot be forged by another shape.
func encodeKey(t logic.Term) string {
	var b strings.Builder
	writeKey(&b, t)
	return b.String()
}

func writeKey(b *strings.Builder, t logic.Term) {
	switch t := t.(type) {
	case logic.Const:
		fmt.Fprintf(b, "i%d;", int64(t))
	case logic.Str:
		fmt.Fprintf(b, "s%d:%s;", len(t), string(t))
	case logic.Var:
		fmt.Fprintf(b, "v%d;", int(t))
	case *logic.Comp:
		fmt.Fprintf(b, "c%d:%s/%d(", len(t.Functor), t.Functor, len(t.Args))
		for _, arg := range t.Args {
			writeKey(b, arg)
		}
		b.WriteString(")")
	case *logic.Lambda:
		fmt.Fprintf(b, "l%d.", int(t.Param))
		writeKey(b, t.Body)
	case *logic.App:
		b.WriteString("a(")
		writeKey(b, t.Fn)
		writeKey(b, t.Arg)
		b.WriteString(")")
	}
}

func compositeKey(terms []logic.Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = encodeKey(t)
	}
	return strings.Join(parts, keySeparator)
}

// RegisterIndexedClause adds a clause address under the key formed by
// keyTerms for the given predicate.
func (m *Machine) RegisterIndexedClause(predicate string, addr int, keyTerms ...logic.Term) {
	index, ok := m.Index[predicate]
	if !ok {
		index = make(map[string][]int)
		m.Index[predicate] = index
	}
	key := compositeKey(keyTerms)
	index[key] = append(index[key], addr)
}

// assertClause appends addr to the predicate's clause list. If the
// predicate is indexed, the address is appended under every key already
// present: indexing decisions belong to the loader, so keys are not
// recomputed here.
func (m *Machine) assertClause(predicate string, addr int) {
	m.Predicates[predicate] = append(m.Predicates[predicate], addr)
	if index, ok := m.Index[predicate]; ok {
		for key := range index {
			index[key] = append(index[key], addr)
		}
	}
}

// retractClause removes the first occurrence of addr from the predicate's
// clause list and from every index entry that holds it.
func (m *Machine) retractClause(predicate string, addr int) error {
	clauses, ok := m.Predicates[predicate]
	if !ok {
		return &PredicateNotFoundError{predicate}
	}
	pos := -1
	for i, a := range clauses {
		if a == addr {
			pos = i
			break
		}
	}
	if pos < 0 {
		return &ClauseNotFoundError{predicate, addr}
	}
	m.Predicates[predicate] = append(clauses[:pos], clauses[pos+1:]...)
	if index, ok := m.Index[predicate]; ok {
		for key, addrs := range index {
			for i, a := range addrs {
				if a == addr {
					index[key] = append(addrs[:i], addrs[i+1:]...)
					break
				}
			}
		}
	}
	return nil
}

// BuildIndex recomputes the index for a predicate by scanning the leading
// instructions of each clause to extract the terms matched against the
// registers in keyPositions. Clauses whose key terms cannot be extracted
// (for instance, clauses that accept any value at a key position) are left
// out of the index and are only reachable through a plain call.
func (m *Machine) BuildIndex(predicate string, keyPositions []int) error {
	clauses, ok := m.Predicates[predicate]
	if !ok {
		return &PredicateNotFoundError{predicate}
	}
	index := make(map[string][]int)
	for _, addr := range clauses {
		keyTerms := m.clauseKeyTerms(addr, keyPositions)
		if keyTerms == nil {
			continue
		}
		key := compositeKey(keyTerms)
		index[key] = append(index[key], addr)
	}
	m.Index[predicate] = index
	return nil
}

// clauseKeyTerms scans the head instructions of the clause at addr and
// collects the constant terms expected in the given registers. It stops at
// the first instruction that is not part of the clause head.
func (m *Machine) clauseKeyTerms(addr int, keyPositions []int) []logic.Term {
	found := make(map[int]logic.Term)
scan:
	for pc := addr; pc < len(m.Code); pc++ {
		switch instr := m.Code[pc].(type) {
		case GetConst:
			found[instr.Register] = logic.Const(instr.Value)
		case GetStr:
			found[instr.Register] = logic.Str(instr.Value)
		case PutConst:
			found[instr.Register] = logic.Const(instr.Value)
		case PutStr:
			found[instr.Register] = logic.Str(instr.Value)
		case GetVar, PutVar, GetStructure, Allocate:
			// Part of a clause head, but contributes no key term.
		default:
			break scan
		}
	}
	keyTerms := make([]logic.Term, len(keyPositions))
	for i, pos := range keyPositions {
		t, ok := found[pos]
		if !ok {
			return nil
		}
		keyTerms[i] = t
	}
	return keyTerms
}
