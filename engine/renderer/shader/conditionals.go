package shader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/defines"
)

// condToken is one lexical token of a #if expression.
type condToken struct {
	kind  condTokenKind
	text  string
	value float64
}

type condTokenKind int

const (
	tokEOF condTokenKind = iota
	tokIdent
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

// twoCharOps are matched before single character operators.
var twoCharOps = []string{"&&", "||", "==", "!=", "<=", ">="}

func tokenizeCondition(expr string) ([]condToken, error) {
	var out []condToken
	for i := 0; i < len(expr); {
		c := rune(expr[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			out = append(out, condToken{kind: tokLParen, text: "("})
			i++
		case c == ')':
			out = append(out, condToken{kind: tokRParen, text: ")"})
			i++
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(expr) && (unicode.IsLetter(rune(expr[j])) || unicode.IsDigit(rune(expr[j])) || expr[j] == '_') {
				j++
			}
			out = append(out, condToken{kind: tokIdent, text: expr[i:j]})
			i = j
		case unicode.IsDigit(c) || c == '.':
			j := i
			for j < len(expr) && (unicode.IsDigit(rune(expr[j])) || expr[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", expr[i:j])
			}
			// integer suffixes such as 1u
			for j < len(expr) && (expr[j] == 'u' || expr[j] == 'U') {
				j++
			}
			out = append(out, condToken{kind: tokNumber, text: expr[i:j], value: v})
			i = j
		default:
			matched := false
			for _, op := range twoCharOps {
				if strings.HasPrefix(expr[i:], op) {
					out = append(out, condToken{kind: tokOp, text: op})
					i += 2
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if strings.ContainsRune("!<>", c) {
				out = append(out, condToken{kind: tokOp, text: string(c)})
				i++
				continue
			}
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return append(out, condToken{kind: tokEOF}), nil
}

// condParser evaluates a #if expression by recursive descent. Identifiers resolve to their define
// value; a flag define is 1, an undefined name is 0 and a define valued "true" is 1.
type condParser struct {
	toks []condToken
	pos  int
	set  *defines.Set
}

// evalCondition evaluates expr against set.
//
// Parameters:
//   - expr: the expression following #if or #elif
//   - set: the active define set
//
// Returns:
//   - bool: the truth of the expression
//   - error: a syntax error
func evalCondition(expr string, set *defines.Set) (bool, error) {
	toks, err := tokenizeCondition(expr)
	if err != nil {
		return false, err
	}
	p := &condParser{toks: toks, set: set}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.peek().kind != tokEOF {
		return false, fmt.Errorf("unexpected %q", p.peek().text)
	}
	return v != 0, nil
}

func (p *condParser) peek() condToken {
	return p.toks[p.pos]
}

func (p *condParser) next() condToken {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *condParser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *condParser) or() (float64, error) {
	l, err := p.and()
	if err != nil {
		return 0, err
	}
	for p.isOp("||") {
		p.next()
		r, err := p.and()
		if err != nil {
			return 0, err
		}
		l = boolNum(l != 0 || r != 0)
	}
	return l, nil
}

func (p *condParser) and() (float64, error) {
	l, err := p.compare()
	if err != nil {
		return 0, err
	}
	for p.isOp("&&") {
		p.next()
		r, err := p.compare()
		if err != nil {
			return 0, err
		}
		l = boolNum(l != 0 && r != 0)
	}
	return l, nil
}

func (p *condParser) compare() (float64, error) {
	l, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || t.text == "!" || t.text == "&&" || t.text == "||" {
			return l, nil
		}
		p.next()
		r, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch t.text {
		case "==":
			l = boolNum(l == r)
		case "!=":
			l = boolNum(l != r)
		case "<":
			l = boolNum(l < r)
		case ">":
			l = boolNum(l > r)
		case "<=":
			l = boolNum(l <= r)
		case ">=":
			l = boolNum(l >= r)
		}
	}
}

func (p *condParser) unary() (float64, error) {
	if p.isOp("!") {
		p.next()
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		return boolNum(v == 0), nil
	}
	return p.primary()
}

func (p *condParser) primary() (float64, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.value, nil
	case tokLParen:
		v, err := p.or()
		if err != nil {
			return 0, err
		}
		if p.next().kind != tokRParen {
			return 0, fmt.Errorf("missing )")
		}
		return v, nil
	case tokIdent:
		if t.text == "defined" {
			return p.defined()
		}
		return p.resolve(t.text), nil
	case tokEOF:
		return 0, fmt.Errorf("unexpected end of expression")
	}
	return 0, fmt.Errorf("unexpected %q", t.text)
}

// defined parses defined(NAME) or defined NAME.
func (p *condParser) defined() (float64, error) {
	paren := p.peek().kind == tokLParen
	if paren {
		p.next()
	}
	t := p.next()
	if t.kind != tokIdent {
		return 0, fmt.Errorf("defined requires a name")
	}
	if paren && p.next().kind != tokRParen {
		return 0, fmt.Errorf("missing ) after defined(%s", t.text)
	}
	return boolNum(p.set.Has(t.text)), nil
}

func (p *condParser) resolve(name string) float64 {
	value, ok := p.set.Value(name)
	if !ok {
		return 0
	}
	switch value {
	case "", "true":
		return 1
	case "false":
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimRight(value, "uU"), 64)
	if err != nil {
		return 0
	}
	return v
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
