package types

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/paneltree/pkg/domain"
)

// ParseType converts a type string to a Type.
// Supported forms:
//
//	string | number | boolean | date | none | any | void   primitives
//	int, float, bool                                       aliases
//	[T]                                                    list
//	A | B                                                  union
//	T?                                                     T | none
//	{a: T, b: U}                                           typed record
//	Object, Object<Name>, Object<Name>{a: T}               object
func ParseType(typeStr string) (domain.Type, error) {
	p := &parser{src: typeStr}
	t, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// MustParse is like ParseType but panics on error. Intended for static tables.
func MustParse(typeStr string) domain.Type {
	t, err := ParseType(typeStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
// Example: {"propLimit": "number", "expanded": "boolean"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("parse type %q at %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) parseUnion() (domain.Type, error) {
	first, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	members := []domain.Type{first}
	for p.peek() == '|' {
		p.pos++
		next, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		members = append(members, next)
	}
	if len(members) == 1 {
		return first, nil
	}
	return Union(members...), nil
}

func (p *parser) parsePostfix() (domain.Type, error) {
	t, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek() == '?' {
		p.pos++
		t = Maybe(t)
	}
	return t, nil
}

func (p *parser) parsePrimary() (domain.Type, error) {
	switch p.peek() {
	case '[':
		p.pos++
		elem, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return List(elem), nil
	case '(':
		p.pos++
		inner, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return inner, nil
	case '{':
		props, err := p.parseProps()
		if err != nil {
			return nil, err
		}
		return TypedDict(props), nil
	case 0:
		return nil, p.errorf("unexpected end of input")
	}

	ident := p.parseIdent()
	switch ident {
	case "":
		return nil, p.errorf("unexpected %q", p.src[p.pos:p.pos+1])
	case "string":
		return String(), nil
	case "number", "int", "float":
		return Number(), nil
	case "boolean", "bool":
		return Boolean(), nil
	case "date":
		return Date(), nil
	case "none":
		return None(), nil
	case "any":
		return Any(), nil
	case "void":
		return Void(), nil
	case "Object":
		return p.parseObject()
	default:
		return nil, fmt.Errorf("unsupported type: %s", ident)
	}
}

func (p *parser) parseObject() (domain.Type, error) {
	name := ""
	if p.peek() == '<' {
		p.pos++
		name = p.parseIdent()
		if name == "" {
			return nil, p.errorf("expected object name")
		}
		if err := p.expect('>'); err != nil {
			return nil, err
		}
	}
	var attrs map[string]domain.Type
	if p.peek() == '{' {
		var err error
		attrs, err = p.parseProps()
		if err != nil {
			return nil, err
		}
	}
	return Object(name, attrs), nil
}

func (p *parser) parseProps() (map[string]domain.Type, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	props := make(map[string]domain.Type)
	if p.peek() == '}' {
		p.pos++
		return props, nil
	}
	for {
		name := p.parseIdent()
		if name == "" {
			return nil, p.errorf("expected property name")
		}
		if _, dup := props[name]; dup {
			return nil, p.errorf("duplicate property %q", name)
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		t, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		props[name] = t
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return props, nil
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *parser) parseIdent() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' {
			p.pos++
			continue
		}
		break
	}
	return strings.Clone(p.src[start:p.pos])
}
