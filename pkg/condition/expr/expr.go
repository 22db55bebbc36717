// Package expr compiles the small boolean language used by cross-field form
// rules, e.g. `newPassword || confirmPassword` or `role == "Admin" && !locked`.
//
// Grammar:
//
//	or      := and ( "||" and )*
//	and     := unary ( "&&" unary )*
//	unary   := "!" unary | primary
//	primary := "(" or ")" | ident [ ( "==" | "!=" ) operand ]
//	operand := string | number | true | false | null | ident
//
// A bare identifier is true when its value is present and non-blank. An
// identifier on the right of a comparison refers to another field.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Program is a compiled expression.
type Program struct {
	source string
	root   node
	idents []string
}

// Compile parses source. An empty source compiles to a program that always
// holds.
func Compile(source string) (*Program, error) {
	trimmed := strings.TrimSpace(source)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("condition: unexpected token %q", p.tokens[p.pos].text)
	}
	prog.root = root
	prog.idents = p.identifiers()
	return prog, nil
}

// MustCompile is Compile that panics on error, for rule tables declared at
// package level.
func MustCompile(source string) *Program {
	prog, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return prog
}

// String returns the trimmed source.
func (p *Program) String() string {
	return p.source
}

// Identifiers lists the field names the expression reads, sorted.
func (p *Program) Identifiers() []string {
	return append([]string(nil), p.idents...)
}

// Eval evaluates the program against values.
func (p *Program) Eval(values map[string]any) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(values)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokBool
	tokNull
	tokEq
	tokNeq
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '&', '|', '"', '\'':
		return true
	}
	return false
}

func lex(input string) ([]token, error) {
	var tokens []token
	pair := func(i int, want byte, kind tokenKind, text string) (int, error) {
		if i+1 >= len(input) || input[i+1] != want {
			return 0, fmt.Errorf("condition: unexpected %q at %d; use %q", input[i], i, text)
		}
		tokens = append(tokens, token{kind: kind, text: text})
		return i + 2, nil
	}

	for i := 0; i < len(input); {
		c := input[i]
		var err error
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case c == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokNeq, text: "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokNot, text: "!"})
			i++
		case c == '=':
			i, err = pair(i, '=', tokEq, "==")
		case c == '&':
			i, err = pair(i, '&', tokAnd, "&&")
		case c == '|':
			i, err = pair(i, '|', tokOr, "||")
		case c == '"' || c == '\'':
			end := i + 1
			for end < len(input) && input[end] != c {
				if input[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(input) {
				return nil, errors.New("condition: unterminated string literal")
			}
			raw := input[i+1 : end]
			if c == '"' {
				unquoted, uerr := strconv.Unquote(`"` + raw + `"`)
				if uerr != nil {
					return nil, fmt.Errorf("condition: invalid string literal: %w", uerr)
				}
				raw = unquoted
			}
			tokens = append(tokens, token{kind: tokString, text: raw})
			i = end + 1
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			word := input[start:i]
			switch strings.ToLower(word) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokBool, text: strings.ToLower(word)})
			case "null", "nil":
				tokens = append(tokens, token{kind: tokNull, text: "null"})
			default:
				if _, perr := strconv.ParseFloat(word, 64); perr == nil {
					tokens = append(tokens, token{kind: tokNumber, text: word})
				} else {
					tokens = append(tokens, token{kind: tokIdent, text: word})
				}
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
	seen   map[string]struct{}
}

func (p *parser) identifiers() []string {
	out := make([]string, 0, len(p.seen))
	for name := range p.seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *parser) record(name string) {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	p.seen[name] = struct{}{}
}

func (p *parser) accept(kind tokenKind) (token, bool) {
	if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != kind {
		return token{}, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokOr); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokAnd); !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if _, ok := p.accept(tokNot); ok {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if _, ok := p.accept(tokLParen); ok {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokRParen); !ok {
			return nil, errors.New("condition: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := p.accept(tokIdent)
	if !ok {
		if p.pos >= len(p.tokens) {
			return nil, errors.New("condition: unexpected end of expression")
		}
		return nil, fmt.Errorf("condition: expected field name, got %q", p.tokens[p.pos].text)
	}
	p.record(ident.text)

	for _, op := range []tokenKind{tokEq, tokNeq} {
		if _, ok := p.accept(op); !ok {
			continue
		}
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return compareNode{field: ident.text, negate: op == tokNeq, right: right}, nil
	}
	return presentNode{field: ident.text}, nil
}

func (p *parser) parseOperand() (operand, error) {
	if p.pos >= len(p.tokens) {
		return operand{}, errors.New("condition: missing right-hand operand")
	}
	tok := p.tokens[p.pos]
	p.pos++
	switch tok.kind {
	case tokIdent:
		p.record(tok.text)
		return operand{field: tok.text}, nil
	case tokString:
		return operand{value: tok.text}, nil
	case tokNumber:
		f, _ := strconv.ParseFloat(tok.text, 64)
		return operand{value: f}, nil
	case tokBool:
		return operand{value: tok.text == "true"}, nil
	case tokNull:
		return operand{isNull: true}, nil
	default:
		return operand{}, fmt.Errorf("condition: expected operand, got %q", tok.text)
	}
}
