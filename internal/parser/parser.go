// Package parser implements a hand-written recursive-descent parser over a
// literal region (as produced by internal/extractor) into the internal/value
// tree. It accepts JSON-style object and array literals with either
// double-quoted or bareword keys, double-quoted strings with standard
// escapes, lexically-captured numbers, null/true/false, and trailing commas.
package parser

import (
	"fmt"
	"strings"

	"github.com/fellowapp/relay-dedup/internal/value"
)

// Parse parses the literal region src (the bytes between the opening and
// closing delimiter, inclusive) and returns the resulting Value tree. path
// is used only to annotate ParseErrors.
func Parse(src []byte, path string) (value.Value, error) {
	p := &parser{src: src, path: path}
	p.skipWhitespace()
	v, err := p.parseValue()
	if err != nil {
		return value.Value{}, err
	}
	p.skipWhitespace()
	if p.pos != len(p.src) {
		return value.Value{}, p.errorf("end of input", "trailing data")
	}
	return v, nil
}

type parser struct {
	src  []byte
	pos  int
	path string
}

func (p *parser) errorf(expected, got string) error {
	return &ParseError{Path: p.path, Offset: p.pos, Expected: expected, Got: got}
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseValue() (value.Value, error) {
	b, ok := p.peek()
	if !ok {
		return value.Value{}, p.errorf("a value", "end of input")
	}
	switch {
	case b == '{':
		return p.parseObject()
	case b == '[':
		return p.parseArray()
	case b == '"':
		s, err := p.parseString()
		if err != nil {
			return value.Value{}, err
		}
		return value.String(s), nil
	case b == 't' || b == 'f':
		return p.parseBool()
	case b == 'n':
		return p.parseNull()
	case b == '-' || (b >= '0' && b <= '9'):
		return p.parseNumber()
	default:
		return value.Value{}, p.errorf("a value", fmt.Sprintf("%q", b))
	}
}

func (p *parser) parseObject() (value.Value, error) {
	p.pos++ // consume '{'
	var members []value.Member
	p.skipWhitespace()
	if b, ok := p.peek(); ok && b == '}' {
		p.pos++
		return value.Object(members...), nil
	}
	for {
		p.skipWhitespace()
		key, err := p.parseKey()
		if err != nil {
			return value.Value{}, err
		}
		p.skipWhitespace()
		if b, ok := p.peek(); !ok || b != ':' {
			got := "end of input"
			if ok {
				got = fmt.Sprintf("%q", b)
			}
			return value.Value{}, p.errorf(`":"`, got)
		}
		p.pos++ // consume ':'
		p.skipWhitespace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		members = append(members, value.Member{Key: key, Value: v})

		p.skipWhitespace()
		b, ok := p.peek()
		if !ok {
			return value.Value{}, p.errorf(`"," or "}"`, "end of input")
		}
		if b == ',' {
			p.pos++
			p.skipWhitespace()
			// Tolerate a trailing comma before the closing brace.
			if b2, ok := p.peek(); ok && b2 == '}' {
				p.pos++
				return value.Object(members...), nil
			}
			continue
		}
		if b == '}' {
			p.pos++
			return value.Object(members...), nil
		}
		return value.Value{}, p.errorf(`"," or "}"`, fmt.Sprintf("%q", b))
	}
}

func (p *parser) parseArray() (value.Value, error) {
	p.pos++ // consume '['
	var elems []value.Value
	p.skipWhitespace()
	if b, ok := p.peek(); ok && b == ']' {
		p.pos++
		return value.Array(elems...), nil
	}
	for {
		p.skipWhitespace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, v)

		p.skipWhitespace()
		b, ok := p.peek()
		if !ok {
			return value.Value{}, p.errorf(`"," or "]"`, "end of input")
		}
		if b == ',' {
			p.pos++
			p.skipWhitespace()
			if b2, ok := p.peek(); ok && b2 == ']' {
				p.pos++
				return value.Array(elems...), nil
			}
			continue
		}
		if b == ']' {
			p.pos++
			return value.Array(elems...), nil
		}
		return value.Value{}, p.errorf(`"," or "]"`, fmt.Sprintf("%q", b))
	}
}

// parseKey parses an Object key: either a double-quoted string or a
// bareword identifier (letters, digits, '_', '$'; must not start with a
// digit).
func (p *parser) parseKey() (string, error) {
	b, ok := p.peek()
	if !ok {
		return "", p.errorf("an object key", "end of input")
	}
	if b == '"' {
		return p.parseString()
	}
	if !isIdentStart(b) {
		return "", p.errorf("an object key", fmt.Sprintf("%q", b))
	}
	start := p.pos
	p.pos++
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

func isIdentStart(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func (p *parser) parseString() (string, error) {
	if b, ok := p.peek(); !ok || b != '"' {
		return "", p.errorf(`'"'`, "missing opening quote")
	}
	p.pos++ // consume opening quote

	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("closing quote", "end of input")
		}
		b := p.src[p.pos]
		if b == '"' {
			p.pos++
			return sb.String(), nil
		}
		if b == '\\' {
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("escape sequence", "end of input")
			}
			esc := p.src[p.pos]
			switch esc {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
				continue
			default:
				return "", p.errorf(`a valid escape sequence`, fmt.Sprintf("%q", esc))
			}
			p.pos++
			continue
		}
		sb.WriteByte(b)
		p.pos++
	}
}

func (p *parser) parseUnicodeEscape() (rune, error) {
	// p.pos is at 'u'; four hex digits follow.
	if p.pos+4 >= len(p.src) {
		return 0, p.errorf("4 hex digits", "end of input")
	}
	digits := string(p.src[p.pos+1 : p.pos+5])
	var r rune
	for _, c := range digits {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			r |= rune(c-'A') + 10
		default:
			return 0, p.errorf("a hex digit", fmt.Sprintf("%q", c))
		}
	}
	p.pos += 5 // 'u' + 4 digits; the caller continues without its own p.pos++
	return r, nil
}

func (p *parser) parseBool() (value.Value, error) {
	if p.matchLiteral("true") {
		return value.Bool(true), nil
	}
	if p.matchLiteral("false") {
		return value.Bool(false), nil
	}
	return value.Value{}, p.errorf(`"true" or "false"`, "other identifier")
}

func (p *parser) parseNull() (value.Value, error) {
	if p.matchLiteral("null") {
		return value.Null(), nil
	}
	return value.Value{}, p.errorf(`"null"`, "other identifier")
}

func (p *parser) matchLiteral(lit string) bool {
	if p.pos+len(lit) > len(p.src) {
		return false
	}
	if string(p.src[p.pos:p.pos+len(lit)]) != lit {
		return false
	}
	p.pos += len(lit)
	return true
}

// parseNumber captures a number lexically: optional leading '-', digits,
// optional fractional part, optional exponent. The lexical form is
// preserved verbatim in the resulting Value to avoid
// float round-trip drift.
func (p *parser) parseNumber() (value.Value, error) {
	start := p.pos
	if b, ok := p.peek(); ok && b == '-' {
		p.pos++
	}
	if p.pos >= len(p.src) || !isDigit(p.src[p.pos]) {
		return value.Value{}, p.errorf("a digit", "other character")
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		if p.pos >= len(p.src) || !isDigit(p.src[p.pos]) {
			return value.Value{}, p.errorf("a digit after decimal point", "other character")
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		if p.pos >= len(p.src) || !isDigit(p.src[p.pos]) {
			return value.Value{}, p.errorf("a digit in exponent", "other character")
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	return value.Number(string(p.src[start:p.pos])), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
