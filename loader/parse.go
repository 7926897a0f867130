package loader

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/lambdavm/lam/errors"
	"github.com/lambdavm/lam/logic"
	"github.com/lambdavm/lam/machine"
)

// ParseInstruction parses a single instruction line, in the same notation
// each instruction prints itself with String. Two printed forms do not parse
// back: a set_local term prints in write/1 form (unquoted strings, variables
// as _G<n>), and a put_var or get_var with an empty name prints no name.
func ParseInstruction(line string) (machine.Instruction, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.New("empty instruction")
	}
	opcode, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	// The expression of an is instruction is free-form text after the
	// target register; everything else tokenizes uniformly.
	if opcode == "is" {
		regText, exprText, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, errors.New("is: want target register and expression")
		}
		target, err := parseRegisterText(regText)
		if err != nil {
			return nil, err
		}
		expr, err := machine.ParseExpression(exprText)
		if err != nil {
			return nil, err
		}
		return machine.ArithmeticIs{Target: target, Expression: expr}, nil
	}

	p, err := newTokenParser(rest)
	if err != nil {
		return nil, err
	}
	instr, err := p.parseInstruction(opcode)
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, errors.New("%s: unexpected %q after instruction", opcode, p.peek().text)
	}
	return instr, nil
}

func (p *tokenParser) parseInstruction(opcode string) (machine.Instruction, error) {
	switch opcode {
	case "put_const":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		v, err := p.integer()
		if err != nil {
			return nil, err
		}
		return machine.PutConst{Register: r, Value: v}, nil
	case "put_str":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return machine.PutStr{Register: r, Value: s}, nil
	case "put_var":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		name, err := p.word()
		if err != nil {
			return nil, err
		}
		return machine.PutVar{Register: r, VarID: v, Name: name}, nil
	case "get_const":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		v, err := p.integer()
		if err != nil {
			return nil, err
		}
		return machine.GetConst{Register: r, Value: v}, nil
	case "get_str":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		return machine.GetStr{Register: r, Value: s}, nil
	case "get_var":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		name, err := p.word()
		if err != nil {
			return nil, err
		}
		return machine.GetVar{Register: r, VarID: v, Name: name}, nil
	case "move":
		src, err := p.register()
		if err != nil {
			return nil, err
		}
		dst, err := p.register()
		if err != nil {
			return nil, err
		}
		return machine.Move{Src: src, Dst: dst}, nil
	case "build_compound":
		target, err := p.register()
		if err != nil {
			return nil, err
		}
		functor, err := p.word()
		if err != nil {
			return nil, err
		}
		regs, err := p.registers()
		if err != nil {
			return nil, err
		}
		return machine.BuildCompound{Target: target, Functor: functor, ArgRegisters: regs}, nil
	case "get_structure":
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		functor, arity, err := p.indicator()
		if err != nil {
			return nil, err
		}
		return machine.GetStructure{Register: r, Functor: functor, Arity: arity}, nil
	case "allocate":
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		return machine.Allocate{N: int(n)}, nil
	case "deallocate":
		return machine.Deallocate{}, nil
	case "set_local":
		index, err := p.integer()
		if err != nil {
			return nil, err
		}
		value, err := p.term()
		if err != nil {
			return nil, err
		}
		return machine.SetLocal{Index: int(index), Value: value}, nil
	case "get_local":
		index, err := p.integer()
		if err != nil {
			return nil, err
		}
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		return machine.GetLocal{Index: int(index), Register: r}, nil
	case "call":
		pred, err := p.word()
		if err != nil {
			return nil, err
		}
		return machine.Call{Predicate: pred}, nil
	case "tail_call":
		pred, err := p.word()
		if err != nil {
			return nil, err
		}
		return machine.TailCall{Predicate: pred}, nil
	case "proceed":
		return machine.Proceed{}, nil
	case "choice":
		addr, err := p.integer()
		if err != nil {
			return nil, err
		}
		return machine.Choice{Alternative: int(addr)}, nil
	case "fail":
		return machine.Fail{}, nil
	case "indexed_call":
		pred, err := p.word()
		if err != nil {
			return nil, err
		}
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		return machine.IndexedCall{Predicate: pred, IndexRegister: r}, nil
	case "multi_indexed_call":
		pred, err := p.word()
		if err != nil {
			return nil, err
		}
		regs, err := p.registers()
		if err != nil {
			return nil, err
		}
		return machine.MultiIndexedCall{Predicate: pred, IndexRegisters: regs}, nil
	case "assert_clause":
		pred, err := p.word()
		if err != nil {
			return nil, err
		}
		addr, err := p.integer()
		if err != nil {
			return nil, err
		}
		return machine.AssertClause{Predicate: pred, Address: int(addr)}, nil
	case "retract_clause":
		pred, err := p.word()
		if err != nil {
			return nil, err
		}
		addr, err := p.integer()
		if err != nil {
			return nil, err
		}
		return machine.RetractClause{Predicate: pred, Address: int(addr)}, nil
	case "cut":
		return machine.Cut{}, nil
	case "halt":
		return machine.Halt{}, nil
	default:
		return nil, errors.New("unknown instruction %q", opcode)
	}
}

// ---- Tokenizer

type token struct {
	kind tokenKind
	text string
}

type tokenKind int

const (
	eofToken tokenKind = iota
	wordToken
	intToken
	stringToken
	lparenToken
	rparenToken
	commaToken
)

type tokenParser struct {
	tokens []token
	pos    int
}

func newTokenParser(src string) (*tokenParser, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &tokenParser{tokens: tokens}, nil
}

func tokenize(src string) ([]token, error) {
	var tokens []token
	rs := []rune(src)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{lparenToken, "("})
			i++
		case r == ')':
			tokens = append(tokens, token{rparenToken, ")"})
			i++
		case r == ',':
			tokens = append(tokens, token{commaToken, ","})
			i++
		case r == '"':
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(rs) {
				return nil, errors.New("unterminated string in %q", src)
			}
			unquoted, err := strconv.Unquote(string(rs[i : j+1]))
			if err != nil {
				return nil, errors.New("bad string literal %s: %v", string(rs[i:j+1]), err)
			}
			tokens = append(tokens, token{stringToken, unquoted})
			i = j + 1
		case r == '-' || unicode.IsDigit(r):
			j := i + 1
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			tokens = append(tokens, token{intToken, string(rs[i:j])})
			i = j
		default:
			j := i
			for j < len(rs) && !unicode.IsSpace(rs[j]) && !strings.ContainsRune("(),\"", rs[j]) {
				j++
			}
			tokens = append(tokens, token{wordToken, string(rs[i:j])})
			i = j
		}
	}
	tokens = append(tokens, token{eofToken, ""})
	return tokens, nil
}

func (p *tokenParser) peek() token {
	return p.tokens[p.pos]
}

func (p *tokenParser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != eofToken {
		p.pos++
	}
	return tok
}

func (p *tokenParser) atEOF() bool {
	return p.peek().kind == eofToken
}

func (p *tokenParser) word() (string, error) {
	tok := p.next()
	if tok.kind != wordToken {
		return "", errors.New("want word, got %q", tok.text)
	}
	return tok.text, nil
}

func (p *tokenParser) integer() (int64, error) {
	tok := p.next()
	if tok.kind != intToken {
		return 0, errors.New("want integer, got %q", tok.text)
	}
	return strconv.ParseInt(tok.text, 10, 64)
}

func (p *tokenParser) quoted() (string, error) {
	tok := p.next()
	if tok.kind != stringToken {
		return "", errors.New("want quoted string, got %q", tok.text)
	}
	return tok.text, nil
}

func (p *tokenParser) register() (int, error) {
	tok := p.next()
	if tok.kind != wordToken {
		return 0, errors.New("want register, got %q", tok.text)
	}
	return parseRegisterText(tok.text)
}

func parseRegisterText(text string) (int, error) {
	if !strings.HasPrefix(text, "X") {
		return 0, errors.New("want register X<n>, got %q", text)
	}
	n, err := strconv.Atoi(text[1:])
	if err != nil || n < 0 {
		return 0, errors.New("want register X<n>, got %q", text)
	}
	return n, nil
}

func (p *tokenParser) registers() ([]int, error) {
	var regs []int
	for p.peek().kind == wordToken {
		r, err := p.register()
		if err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, nil
}

func (p *tokenParser) variable() (logic.Var, error) {
	tok := p.next()
	if tok.kind != wordToken || !strings.HasPrefix(tok.text, "V") {
		return 0, errors.New("want variable V<n>, got %q", tok.text)
	}
	n, err := strconv.Atoi(tok.text[1:])
	if err != nil || n < 0 {
		return 0, errors.New("want variable V<n>, got %q", tok.text)
	}
	return logic.Var(n), nil
}

func (p *tokenParser) indicator() (string, int, error) {
	tok := p.next()
	if tok.kind != wordToken {
		return "", 0, errors.New("want functor/arity, got %q", tok.text)
	}
	name, arityText, ok := strings.Cut(tok.text, "/")
	if !ok {
		return "", 0, errors.New("want functor/arity, got %q", tok.text)
	}
	arity, err := strconv.Atoi(arityText)
	if err != nil || arity < 0 {
		return "", 0, errors.New("bad arity in %q", tok.text)
	}
	return name, arity, nil
}

// term parses a term literal: an integer, a quoted string, a variable
// V<id>, a bare word (read as a string constant), or a compound
// functor(arg1, arg2, ...).
func (p *tokenParser) term() (logic.Term, error) {
	tok := p.next()
	switch tok.kind {
	case intToken:
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, errors.New("bad integer %q", tok.text)
		}
		return logic.Const(n), nil
	case stringToken:
		return logic.Str(tok.text), nil
	case wordToken:
		if len(tok.text) > 1 && tok.text[0] == 'V' && isDigits(tok.text[1:]) {
			n, _ := strconv.Atoi(tok.text[1:])
			return logic.Var(n), nil
		}
		if p.peek().kind != lparenToken {
			return logic.Str(tok.text), nil
		}
		p.next()
		var args []logic.Term
		for {
			arg, err := p.term()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			sep := p.next()
			if sep.kind == rparenToken {
				break
			}
			if sep.kind != commaToken {
				return nil, errors.New("want , or ) in compound, got %q", sep.text)
			}
		}
		return logic.NewComp(tok.text, args...), nil
	default:
		return nil, errors.New("want term, got %q", tok.text)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
