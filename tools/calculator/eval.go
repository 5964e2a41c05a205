package calculator

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Evaluate parses and evaluates a pure arithmetic expression.
//
// Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/" | "%") factor }
//	factor = [ "+" | "-" ] primary
//	primary = number | "(" expr ")"
//
// Any token outside this grammar is an error.
func Evaluate(input string) (decimal.Decimal, error) {
	p := &parser{input: input}
	val, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return decimal.Zero, errors.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return val, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/' && op != '%') {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		switch op {
		case '*':
			left = left.Mul(right)
		case '/':
			if right.IsZero() {
				return decimal.Zero, errors.New("division by zero")
			}
			left = left.Div(right)
		case '%':
			if right.IsZero() {
				return decimal.Zero, errors.New("division by zero")
			}
			left = left.Mod(right)
		}
	}
}

func (p *parser) parseFactor() (decimal.Decimal, error) {
	c, ok := p.peek()
	if !ok {
		return decimal.Zero, errors.New("unexpected end of expression")
	}
	switch c {
	case '-':
		p.pos++
		val, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return val.Neg(), nil
	case '+':
		p.pos++
		return p.parseFactor()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (decimal.Decimal, error) {
	c, ok := p.peek()
	if !ok {
		return decimal.Zero, errors.New("unexpected end of expression")
	}
	if c == '(' {
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		c, ok = p.peek()
		if !ok || c != ')' {
			return decimal.Zero, errors.New("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	}
	return p.parseNumber()
}

func (p *parser) parseNumber() (decimal.Decimal, error) {
	p.skipSpaces()
	start := p.pos
	seenDot := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		if p.pos >= len(p.input) {
			return decimal.Zero, errors.New("unexpected end of expression")
		}
		return decimal.Zero, errors.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	lit := p.input[start:p.pos]
	if lit == "." || strings.HasSuffix(lit, ".") {
		return decimal.Zero, errors.Errorf("invalid number %q", lit)
	}
	val, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, errors.WithMessagef(err, "invalid number %q", lit)
	}
	return val, nil
}
