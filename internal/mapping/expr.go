package mapping

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a compiled mapping expression.
type Expr interface {
	fmt.Stringer
	expr()
}

// PathExpr addresses a value in a parsed record.
type PathExpr struct {
	Relative bool // starts at the current node
	Steps    []Step
}

// CallExpr invokes a named transform.
type CallExpr struct {
	Func   string
	Args   []Expr
	Kwargs []Kwarg
}

// Kwarg is a named call argument.
type Kwarg struct {
	Name  string
	Value Expr
}

// AltExpr evaluates B only when A is absent or empty.
type AltExpr struct {
	A, B Expr
}

// PipeExpr evaluates Right starting at the result of Left.
type PipeExpr struct {
	Left  Expr
	Right *PathExpr
}

// LiteralExpr is a constant: string, float64, int or []string.
type LiteralExpr struct {
	Value any
}

func (*PathExpr) expr()    {}
func (*CallExpr) expr()    {}
func (*AltExpr) expr()     {}
func (*PipeExpr) expr()    {}
func (*LiteralExpr) expr() {}

// StepKind discriminates path steps.
type StepKind int

const (
	StepKey      StepKind = iota // .name or ."quoted"
	StepCurrent                  // @
	StepIndex                    // [n]
	StepWildcard                 // [*]
	StepFilter                   // [?key==literal]
)

// Step is one element of a path.
type Step struct {
	Kind  StepKind
	Key   string // StepKey, filter key for StepFilter
	Index int    // StepIndex
	Value any    // filter literal
}

// String renders the path in canonical form.
func (p *PathExpr) String() string {
	var b strings.Builder

	if p.Relative {
		b.WriteByte('.')
	}

	for i, s := range p.Steps {
		switch s.Kind {
		case StepKey, StepCurrent:
			if i > 0 {
				b.WriteByte('.')
			}

			if s.Kind == StepCurrent {
				b.WriteByte('@')
			} else {
				b.WriteString(quoteKey(s.Key))
			}
		case StepIndex:
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
		case StepWildcard:
			b.WriteString("[*]")
		case StepFilter:
			b.WriteString("[?" + quoteKey(s.Key) + "==" + formatLiteral(s.Value) + "]")
		}
	}

	if b.Len() == 0 {
		return "@"
	}

	return b.String()
}

// String renders the call in canonical form.
func (c *CallExpr) String() string {
	parts := make([]string, 0, len(c.Args)+len(c.Kwargs))
	for _, a := range c.Args {
		parts = append(parts, a.String())
	}

	for _, kw := range c.Kwargs {
		parts = append(parts, kw.Name+"="+kw.Value.String())
	}

	return c.Func + "(" + strings.Join(parts, ", ") + ")"
}

func (a *AltExpr) String() string {
	return a.A.String() + " || " + a.B.String()
}

func (p *PipeExpr) String() string {
	return p.Left.String() + " | " + p.Right.String()
}

func (l *LiteralExpr) String() string {
	return formatLiteral(l.Value)
}

func quoteKey(k string) string {
	if isIdent(k) {
		return k
	}

	return strconv.Quote(k)
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + x + "'"
	case []string:
		quoted := make([]string, len(x))
		for i, s := range x {
			quoted[i] = "'" + s + "'"
		}

		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// isIdent checks if a string is a plain identifier key.
func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			// First character must be letter or underscore
			if !isLetter(r) && r != '_' {
				return false
			}
		} else {
			// Subsequent characters can be letter, digit, or underscore
			if !isLetter(r) && !isDigit(r) && r != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Walk calls fn for e and every sub-expression, depth first.
func Walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}

	fn(e)

	switch x := e.(type) {
	case *CallExpr:
		for _, a := range x.Args {
			Walk(a, fn)
		}

		for _, kw := range x.Kwargs {
			Walk(kw.Value, fn)
		}
	case *AltExpr:
		Walk(x.A, fn)
		Walk(x.B, fn)
	case *PipeExpr:
		Walk(x.Left, fn)
		Walk(x.Right, fn)
	}
}
