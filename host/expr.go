// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"strconv"
)

var (
	errExprParse    = errors.New("expression syntax error")
	errDivideByZero = errors.New("division by zero")
)

type resolver interface {
	resolveIdentifier(s string) (int64, error)
}

type binaryOp struct {
	symbol     string
	precedence int
	eval       func(a, b int64) (int64, error)
}

// Two-character operators precede their one-character prefixes.
var binaryOps = []binaryOp{
	{"<<", 4, func(a, b int64) (int64, error) { return a << uint64(b&63), nil }},
	{">>", 4, func(a, b int64) (int64, error) { return a >> uint64(b&63), nil }},
	{"*", 6, func(a, b int64) (int64, error) { return a * b, nil }},
	{"/", 6, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivideByZero
		}
		return a / b, nil
	}},
	{"%", 6, func(a, b int64) (int64, error) {
		if b == 0 {
			return 0, errDivideByZero
		}
		return a % b, nil
	}},
	{"+", 5, func(a, b int64) (int64, error) { return a + b, nil }},
	{"-", 5, func(a, b int64) (int64, error) { return a - b, nil }},
	{"&", 3, func(a, b int64) (int64, error) { return a & b, nil }},
	{"^", 2, func(a, b int64) (int64, error) { return a ^ b, nil }},
	{"|", 1, func(a, b int64) (int64, error) { return a | b, nil }},
}

// An exprParser evaluates integer expressions by precedence climbing.
// Binary operators are left associative. Identifiers are resolved by the
// caller-supplied resolver.
type exprParser struct {
	hexMode bool
	s       string
	pos     int
	r       resolver
}

func newExprParser() *exprParser {
	return &exprParser{}
}

func (p *exprParser) Parse(expr string, r resolver) (int64, error) {
	p.s, p.pos, p.r = expr, 0, r
	defer func() { p.s, p.r = "", nil }()

	v, err := p.parseBinary(1)
	if err != nil {
		return 0, err
	}
	p.skipWhitespace()
	if p.pos < len(p.s) {
		return 0, errExprParse
	}
	return v, nil
}

func (p *exprParser) parseBinary(minPrecedence int) (int64, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		p.skipWhitespace()
		op := p.peekOp()
		if op == nil || op.precedence < minPrecedence {
			return lhs, nil
		}
		p.pos += len(op.symbol)

		rhs, err := p.parseBinary(op.precedence + 1)
		if err != nil {
			return 0, err
		}
		if lhs, err = op.eval(lhs, rhs); err != nil {
			return 0, err
		}
	}
}

func (p *exprParser) peekOp() *binaryOp {
	for i := range binaryOps {
		op := &binaryOps[i]
		if len(p.s)-p.pos >= len(op.symbol) && p.s[p.pos:p.pos+len(op.symbol)] == op.symbol {
			return op
		}
	}
	return nil
}

func (p *exprParser) parseUnary() (int64, error) {
	p.skipWhitespace()
	if p.pos >= len(p.s) {
		return 0, errExprParse
	}

	switch c := p.s[p.pos]; c {
	case '-', '+', '~':
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch c {
		case '-':
			return -v, nil
		case '~':
			return ^v, nil
		default:
			return v, nil
		}

	case '(':
		p.pos++
		v, err := p.parseBinary(1)
		if err != nil {
			return 0, err
		}
		p.skipWhitespace()
		if p.pos >= len(p.s) || p.s[p.pos] != ')' {
			return 0, errExprParse
		}
		p.pos++
		return v, nil

	default:
		return p.parseAtom()
	}
}

func (p *exprParser) parseAtom() (int64, error) {
	t := p.s[p.pos:]
	switch {
	case t[0] == '$':
		return p.parseNumber(1, 16, hexadecimal)
	case t[0] == '%':
		return p.parseNumber(1, 2, binaryDigit)
	case t[0] == '\'':
		if len(t) < 3 || t[2] != '\'' {
			return 0, errExprParse
		}
		p.pos += 3
		return int64(t[1]), nil
	case len(t) > 2 && t[0] == '0' && t[1] == 'x':
		return p.parseNumber(2, 16, hexadecimal)
	case len(t) > 2 && t[0] == '0' && t[1] == 'b':
		return p.parseNumber(2, 2, binaryDigit)
	case len(t) > 2 && t[0] == '0' && t[1] == 'd':
		return p.parseNumber(2, 10, decimal)
	case decimal(t[0]):
		if p.hexMode {
			return p.parseNumber(0, 16, hexadecimal)
		}
		return p.parseNumber(0, 10, decimal)
	case identifierStart(t[0]):
		n := scanWhile(t, identifier)
		id := t[:n]
		if p.hexMode && scanWhile(id, hexadecimal) == n {
			return p.parseNumber(0, 16, hexadecimal)
		}
		p.pos += n
		return p.r.resolveIdentifier(id)
	default:
		return 0, errExprParse
	}
}

// Parse a number whose digits begin after a prefix of the given length.
func (p *exprParser) parseNumber(prefix, base int, fn func(c byte) bool) (int64, error) {
	start := p.pos + prefix
	n := scanWhile(p.s[start:], fn)
	if n == 0 {
		return 0, errExprParse
	}
	v, err := strconv.ParseUint(p.s[start:start+n], base, 64)
	if err != nil {
		return 0, errExprParse
	}
	p.pos = start + n
	return int64(v), nil
}

func (p *exprParser) skipWhitespace() {
	p.pos += scanWhile(p.s[p.pos:], whitespace)
}

func scanWhile(s string, fn func(c byte) bool) int {
	i := 0
	for ; i < len(s) && fn(s[i]); i++ {
	}
	return i
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binaryDigit(c byte) bool {
	return c == '0' || c == '1'
}

func identifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.'
}

func identifier(c byte) bool {
	return identifierStart(c) || decimal(c)
}
