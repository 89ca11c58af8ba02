// Package eval implements the expression language: a single-pass recursive
// descent parser that computes a numeric result directly, with no retained
// syntax tree. Each call re-parses its input against the live environment.
//
// Grammar, lowest to highest precedence:
//
//	expr        := logical_or
//	logical_or  := logical_and ( "||" logical_and )*
//	logical_and := equality ( "&&" equality )*
//	equality    := comparison ( ("=="|"!=") comparison )*
//	comparison  := term ( (">"|"<"|">="|"<=") term )*
//	term        := factor ( ("+"|"-") factor )*
//	factor      := unary ( ("*"|"/"|"%") unary )*
//	unary       := ("+"|"-"|"!") unary | primary
//	primary     := number | identifier | identifier "(" [expr ("," expr)*] ")" | "(" expr ")"
package eval

import (
	"fmt"
	"math"
	"strconv"

	"nanlang/interpreter-go/pkg/runtime"
)

// Error is an evaluation failure. Label identifies the calling context (loop
// count, if condition, and so on); Rest is the unparsed remainder of the
// input at the point of failure.
type Error struct {
	Label   string
	Message string
	Rest    string
}

func (e *Error) Error() string {
	return e.Label + e.Message + " near: '" + e.Rest + "'"
}

// Evaluate parses and computes an expression against env. The label prefixes
// any resulting Error. Unconsumed non-whitespace input is a failure.
func Evaluate(input string, env *runtime.Environment, label string) (float64, error) {
	p := &parser{src: input, env: env, label: label}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipWS()
	if p.pos != len(p.src) {
		return 0, p.fail("Unexpected trailing characters")
	}
	return v, nil
}

type parser struct {
	src   string
	pos   int
	env   *runtime.Environment
	label string
}

func (p *parser) fail(msg string) error {
	return &Error{Label: p.label, Message: msg, Rest: p.src[p.pos:]}
}

func (p *parser) failf(format string, args ...any) error {
	return p.fail(fmt.Sprintf(format, args...))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentStart(c byte) bool { return isAlpha(c) || c == '_' }

func isIdentPart(c byte) bool { return isAlpha(c) || isDigit(c) || c == '_' }

func (p *parser) skipWS() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

// matchChar consumes c if it is the next non-whitespace byte.
func (p *parser) matchChar(c byte) bool {
	p.skipWS()
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

// matchStr consumes t if it is the next non-whitespace text.
func (p *parser) matchStr(t string) bool {
	p.skipWS()
	if p.pos+len(t) <= len(p.src) && p.src[p.pos:p.pos+len(t)] == t {
		p.pos += len(t)
		return true
	}
	return false
}

// peek returns the next non-whitespace byte without consuming it, or 0 at
// end of input.
func (p *parser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func truthy(v float64) bool { return v != 0.0 }

func boolValue(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func (p *parser) expr() (float64, error) { return p.logicalOr() }

func (p *parser) logicalOr() (float64, error) {
	v, err := p.logicalAnd()
	if err != nil {
		return 0, err
	}
	for p.matchStr("||") {
		r, err := p.logicalAnd()
		if err != nil {
			return 0, err
		}
		v = boolValue(truthy(v) || truthy(r))
	}
	return v, nil
}

func (p *parser) logicalAnd() (float64, error) {
	v, err := p.equality()
	if err != nil {
		return 0, err
	}
	for p.matchStr("&&") {
		r, err := p.equality()
		if err != nil {
			return 0, err
		}
		v = boolValue(truthy(v) && truthy(r))
	}
	return v, nil
}

func (p *parser) equality() (float64, error) {
	v, err := p.comparison()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.matchStr("=="):
			r, err := p.comparison()
			if err != nil {
				return 0, err
			}
			v = boolValue(v == r)
		case p.matchStr("!="):
			r, err := p.comparison()
			if err != nil {
				return 0, err
			}
			v = boolValue(v != r)
		default:
			return v, nil
		}
	}
}

func (p *parser) comparison() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		// Two-character operators first so ">=" is never read as ">".
		switch {
		case p.matchStr(">="):
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v = boolValue(v >= r)
		case p.matchStr("<="):
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v = boolValue(v <= r)
		case p.matchChar('>'):
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v = boolValue(v > r)
		case p.matchChar('<'):
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v = boolValue(v < r)
		default:
			return v, nil
		}
	}
}

func (p *parser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.matchChar('+'):
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			v += r
		case p.matchChar('-'):
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *parser) factor() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		switch {
		case p.matchChar('*'):
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			v *= r
		case p.matchChar('/'):
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			v /= r
		case p.matchChar('%'):
			r, err := p.unary()
			if err != nil {
				return 0, err
			}
			v = math.Mod(v, r)
		default:
			return v, nil
		}
	}
}

func (p *parser) unary() (float64, error) {
	p.skipWS()
	switch {
	case p.matchChar('+'):
		return p.unary()
	case p.matchChar('-'):
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case p.matchChar('!'):
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		return boolValue(!truthy(v)), nil
	default:
		return p.primary()
	}
}

func (p *parser) primary() (float64, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if !p.matchChar(')') {
			return 0, p.fail("Expected ')'")
		}
		return v, nil
	case isIdentStart(c):
		id := p.identifier()
		if p.matchChar('(') {
			return p.call(id)
		}
		if v, ok := p.env.Get(id); ok {
			return v, nil
		}
		return 0, p.failf("Unknown variable: %s", id)
	case isDigit(c) || c == '.':
		return p.number()
	default:
		return 0, p.fail("Expected primary expression")
	}
}

func (p *parser) call(name string) (float64, error) {
	var args []float64
	if !p.matchChar(')') {
		for {
			v, err := p.expr()
			if err != nil {
				return 0, err
			}
			args = append(args, v)
			if p.matchChar(')') {
				break
			}
			if !p.matchChar(',') {
				return 0, p.fail("Expected ',' or ')'")
			}
		}
	}
	fn, ok := runtime.LookupBuiltin(name)
	if !ok {
		return 0, p.failf("Unknown function: %s", name)
	}
	if len(args) != fn.Arity {
		plural := ""
		if fn.Arity != 1 {
			plural = "s"
		}
		return 0, p.failf("%s() expects %d arg%s", fn.Name, fn.Arity, plural)
	}
	return fn.Call(args), nil
}

func (p *parser) identifier() string {
	p.skipWS()
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		return ""
	}
	start := p.pos
	p.pos++
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) number() (float64, error) {
	p.skipWS()
	start := p.pos
	sawDigit := false

	if p.pos < len(p.src) && (p.src[p.pos] == '.' || isDigit(p.src[p.pos])) {
		if p.src[p.pos] == '.' {
			p.pos++
		}
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
			sawDigit = true
		}
		if p.pos < len(p.src) && p.src[p.pos] == '.' {
			p.pos++
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
				sawDigit = true
			}
		}
		// Exponent marker without digits is not part of the literal.
		if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
			markerPos := p.pos
			p.pos++
			if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
				p.pos++
			}
			expDigit := false
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
				expDigit = true
			}
			if !expDigit {
				p.pos = markerPos
			}
		}
	}

	if start == p.pos || !sawDigit {
		return 0, p.fail("Expected number")
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.fail("Expected number")
	}
	return v, nil
}
