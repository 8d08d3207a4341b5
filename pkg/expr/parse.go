package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/types"
)

// Parse reads an expression from its serialized form.
// Variables come out unrefined (type any); run a Refiner to type them.
// The empty string parses to the void expression.
func Parse(src string) (domain.Expression, error) {
	if strings.TrimSpace(src) == "" {
		return domain.Void(), nil
	}
	p := &exprParser{src: src}
	e, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and static tables.
func MustParse(src string) domain.Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("parse expression %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) parsePostfix() (domain.Expression, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '.':
			p.pos++
			name := p.ident()
			if name == "" {
				return nil, p.errorf("expected attribute name")
			}
			if p.peek() == '(' {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				e = NewCall(name, append([]domain.Expression{e}, args...)...)
				continue
			}
			e = GetAttr(e, name)
		case '[':
			p.pos++
			key, err := p.parsePostfix()
			if err != nil {
				return nil, err
			}
			if p.peek() != ']' {
				return nil, p.errorf("expected ']'")
			}
			p.pos++
			c, ok := key.(*Const)
			if !ok {
				return nil, p.errorf("subscript must be a literal")
			}
			switch c.val.(type) {
			case string:
				e = NewCall(OpPick, e, c)
			case int, float64:
				e = NewCall(OpIndex, e, c)
			default:
				return nil, p.errorf("subscript must be a string or a number")
			}
		default:
			return e, nil
		}
	}
}

func (p *exprParser) parsePrimary() (domain.Expression, error) {
	c := p.peek()
	switch {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '"':
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == '(':
		p.pos++
		e, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("expected ')'")
		}
		p.pos++
		return e, nil
	}

	name := p.ident()
	switch name {
	case "":
		return nil, p.errorf("unexpected %q", p.src[p.pos:p.pos+1])
	case "true":
		return NewConst(true, types.Boolean()), nil
	case "false":
		return NewConst(false, types.Boolean()), nil
	case "none":
		return NewConst(nil, types.None()), nil
	}
	if p.peek() == '(' {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return NewCall(name, args...), nil
	}
	return NewVar(name, nil), nil
}

func (p *exprParser) parseArgs() ([]domain.Expression, error) {
	p.pos++ // '('
	var args []domain.Expression
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		a, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return args, nil
		default:
			return nil, p.errorf("expected ',' or ')'")
		}
	}
}

func (p *exprParser) parseString() (domain.Expression, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return nil, p.errorf("invalid string literal: %v", err)
			}
			return NewConst(s, types.String()), nil
		}
		p.pos++
	}
	return nil, p.errorf("unterminated string")
}

func (p *exprParser) parseNumber() (domain.Expression, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || ((c == '+' || c == '-') && isFloat) {
			isFloat = true
			p.pos++
			continue
		}
		break
	}
	lit := p.src[start:p.pos]
	if !isFloat {
		n, err := strconv.Atoi(lit)
		if err != nil {
			return nil, p.errorf("invalid number %q", lit)
		}
		return NewConst(n, types.Number()), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", lit)
	}
	return NewConst(f, types.Number()), nil
}

func (p *exprParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || c == '_' || (p.pos > start && unicode.IsDigit(c)) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if !(unicode.IsLetter(c) || c == '_' || (i > 0 && unicode.IsDigit(c))) {
			return false
		}
	}
	return true
}

// IsIdent reports whether s is a valid variable name.
func IsIdent(s string) bool {
	if !isIdent(s) {
		return false
	}
	switch s {
	case "true", "false", "none":
		return false
	}
	return true
}
