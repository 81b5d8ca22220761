package deps

import (
	"fmt"
	"strings"

	"github.com/probitylabs/probity/pkg/errors"
	"github.com/probitylabs/probity/pkg/pep440"
)

// Marker is a parsed environment marker expression, the predicate after
// ";" in a requirement: `python_version >= "3.8" and sys_platform != "win32"`.
type Marker struct {
	expr markerExpr
	raw  string
}

// ParseMarker parses a marker expression.
func ParseMarker(s string) (*Marker, error) {
	toks, err := lexMarker(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "marker %q", s)
	}
	p := &markerParser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "marker %q", s)
	}
	if p.pos != len(p.toks) {
		return nil, errors.New(errors.ErrCodeParse, "marker %q: trailing tokens", s)
	}
	return &Marker{expr: expr, raw: strings.TrimSpace(s)}, nil
}

func (m *Marker) String() string { return m.raw }

// Eval evaluates the marker against env. A comparison on the "extra"
// variable is true if it holds for any of extras; with no extras it
// evaluates against the empty string, so `extra == "socks"` is false for
// a plain install.
func (m *Marker) Eval(env map[string]string, extras []string) bool {
	return m.expr.eval(env, extras)
}

// ExtraEquals returns the extra name the marker gates on, if the
// expression contains an `extra == "name"` comparison. Setuptools only
// emits the == form for extras.
func (m *Marker) ExtraEquals() (string, bool) {
	return findExtraEquals(m.expr)
}

func findExtraEquals(e markerExpr) (string, bool) {
	switch x := e.(type) {
	case cmpExpr:
		if x.op == "==" {
			if x.lhs.isVar && x.lhs.text == "extra" && !x.rhs.isVar {
				return x.rhs.text, true
			}
			if x.rhs.isVar && x.rhs.text == "extra" && !x.lhs.isVar {
				return x.lhs.text, true
			}
		}
	case boolExpr:
		if name, ok := findExtraEquals(x.left); ok {
			return name, ok
		}
		return findExtraEquals(x.right)
	}
	return "", false
}

type markerExpr interface {
	eval(env map[string]string, extras []string) bool
}

type boolExpr struct {
	op          string // "and" | "or"
	left, right markerExpr
}

func (b boolExpr) eval(env map[string]string, extras []string) bool {
	if b.op == "and" {
		return b.left.eval(env, extras) && b.right.eval(env, extras)
	}
	return b.left.eval(env, extras) || b.right.eval(env, extras)
}

// operand is either a marker variable or a quoted literal.
type operand struct {
	text  string
	isVar bool
}

func (o operand) value(env map[string]string) string {
	if o.isVar {
		return env[o.text]
	}
	return o.text
}

type cmpExpr struct {
	lhs, rhs operand
	op       string
}

func (c cmpExpr) eval(env map[string]string, extras []string) bool {
	// The extra variable is plural in practice: evaluating for an
	// extras-bearing parent means "any requested extra matches".
	if len(extras) > 0 && ((c.lhs.isVar && c.lhs.text == "extra") || (c.rhs.isVar && c.rhs.text == "extra")) {
		for _, e := range extras {
			scoped := map[string]string{"extra": e}
			for k, v := range env {
				if k != "extra" {
					scoped[k] = v
				}
			}
			if c.compare(scoped) {
				return true
			}
		}
		return false
	}
	return c.compare(env)
}

func (c cmpExpr) compare(env map[string]string) bool {
	lhs, rhs := c.lhs.value(env), c.rhs.value(env)
	switch c.op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	}

	// Version comparison when both sides parse; PEP 440 ordering differs
	// from lexicographic ("3.10" > "3.9").
	if lv, err := pep440.Parse(lhs); err == nil {
		if set, err := pep440.ParseSpecifiers(c.op + rhs); err == nil {
			return set.Match(lv)
		}
	}

	switch c.op {
	case "==", "===":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	}
	return false
}

// --- lexer / parser ---

type tokenKind int

const (
	tokVar tokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokIn
	tokNot
)

type token struct {
	kind tokenKind
	text string
}

var markerOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

func lexMarker(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string at %d", i)
			}
			toks = append(toks, token{kind: tokString, text: s[i+1 : i+1+end]})
			i += end + 2
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			word := s[i:j]
			switch word {
			case "and":
				toks = append(toks, token{kind: tokAnd})
			case "or":
				toks = append(toks, token{kind: tokOr})
			case "in":
				toks = append(toks, token{kind: tokIn})
			case "not":
				toks = append(toks, token{kind: tokNot})
			default:
				toks = append(toks, token{kind: tokVar, text: word})
			}
			i = j
		default:
			matched := false
			for _, op := range markerOps {
				if strings.HasPrefix(s[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("unexpected character %q at %d", c, i)
			}
		}
	}
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

type markerParser struct {
	toks []token
	pos  int
}

func (p *markerParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *markerParser) parseOr() (markerExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = boolExpr{op: "or", left: left, right: right}
	}
}

func (p *markerParser) parseAnd() (markerExpr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = boolExpr{op: "and", left: left, right: right}
	}
}

func (p *markerParser) parseAtom() (markerExpr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	if t.kind == tokLParen {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		t, ok = p.peek()
		if !ok || t.kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return expr, nil
	}
	return p.parseComparison()
}

func (p *markerParser) parseComparison() (markerExpr, error) {
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("expected operator")
	}
	var op string
	switch t.kind {
	case tokOp:
		op = t.text
		p.pos++
	case tokIn:
		op = "in"
		p.pos++
	case tokNot:
		p.pos++
		t, ok = p.peek()
		if !ok || t.kind != tokIn {
			return nil, fmt.Errorf(`expected "in" after "not"`)
		}
		op = "not in"
		p.pos++
	default:
		return nil, fmt.Errorf("expected operator, got %v", t.text)
	}
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return cmpExpr{lhs: lhs, rhs: rhs, op: op}, nil
}

func (p *markerParser) parseOperand() (operand, error) {
	t, ok := p.peek()
	if !ok {
		return operand{}, fmt.Errorf("expected operand")
	}
	switch t.kind {
	case tokVar:
		p.pos++
		return operand{text: t.text, isVar: true}, nil
	case tokString:
		p.pos++
		return operand{text: t.text}, nil
	}
	return operand{}, fmt.Errorf("expected variable or string")
}
