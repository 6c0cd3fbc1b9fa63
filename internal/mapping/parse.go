package mapping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar nodes for participle. They are converted into the Expr tree right
// after parsing and never leave this file.

type altNode struct {
	Terms []*pipeNode `@@ ( "||" @@ )*`
}

type pipeNode struct {
	Head *termNode  `@@`
	Tail []*pathNode `( "|" @@ )*`
}

type termNode struct {
	Call    *callNode    `  @@`
	Literal *literalNode `| @@`
	Path    *pathNode    `| @@`
}

type callNode struct {
	Func string     `@Ident "("`
	Args []*argNode `( @@ ( "," @@ )* )? ")"`
}

type argNode struct {
	Name  string   `( @Ident "=" )?`
	Value *altNode `@@`
}

type literalNode struct {
	String *string  `  @String`
	Number *string  `| @Number`
	List   []string `| "[" @String ( "," @String )* "]"`
}

// pathNode always consumes at least its head, so an empty argument list
// is not mistaken for an empty path.
type pathNode struct {
	Head  *headNode   `@@`
	Steps []*stepNode `@@*`
}

type headNode struct {
	Dot   *dotNode   `  @@`
	First *segNode   `| @@`
	Index *indexNode `| "[" @@ "]"`
}

type dotNode struct {
	Dot   bool     `@"."`
	First *segNode `@@?`
}

type segNode struct {
	Current bool   `  @"@"`
	Name    string `| @Ident`
	Quoted  string `| @String`
}

type stepNode struct {
	Key   *segNode   `  "." @@`
	Index *indexNode `| "[" @@ "]"`
}

type indexNode struct {
	Wildcard bool        `  @"*"`
	Filter   *filterNode `| "?" @@`
	Number   string      `| @Number`
}

type filterNode struct {
	Key   *segNode     `@@ "=="`
	Value *literalNode `@@`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Number", Pattern: `[-+]?\d+(\.\d+)?([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Op", Pattern: `\|\||==|[.@\[\]()*?,=|]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[altNode](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(4),
)

// ErrEmptyExpr is returned when parsing an empty expression.
var ErrEmptyExpr = errors.New("empty expression")

// ParseExpr parses an expression string.
func ParseExpr(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmptyExpr
	}

	node, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}

	e, err := node.build()
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}

	return e, nil
}

// MustParseExpr is like ParseExpr but panics on error.
func MustParseExpr(src string) Expr {
	e, err := ParseExpr(src)
	if err != nil {
		panic(err)
	}

	return e
}

// alternation is right associative: a || b || c == a || (b || c).
func (n *altNode) build() (Expr, error) {
	var out Expr

	for i := len(n.Terms) - 1; i >= 0; i-- {
		e, err := n.Terms[i].build()
		if err != nil {
			return nil, err
		}

		if out == nil {
			out = e
		} else {
			out = &AltExpr{A: e, B: out}
		}
	}

	return out, nil
}

func (n *pipeNode) build() (Expr, error) {
	out, err := n.Head.build()
	if err != nil {
		return nil, err
	}

	for _, p := range n.Tail {
		right, err := p.buildPath()
		if err != nil {
			return nil, err
		}

		out = &PipeExpr{Left: out, Right: right}
	}

	return out, nil
}

func (n *termNode) build() (Expr, error) {
	switch {
	case n.Call != nil:
		return n.Call.build()
	case n.Literal != nil:
		return n.Literal.build()
	case n.Path != nil:
		return n.Path.build()
	default:
		return nil, ErrEmptyExpr
	}
}

func (n *callNode) build() (Expr, error) {
	c := &CallExpr{Func: n.Func}

	for _, a := range n.Args {
		v, err := a.Value.build()
		if err != nil {
			return nil, err
		}

		if a.Name == "" {
			if len(c.Kwargs) > 0 {
				return nil, fmt.Errorf("%s: positional argument after keyword argument", n.Func)
			}

			c.Args = append(c.Args, v)

			continue
		}

		c.Kwargs = append(c.Kwargs, Kwarg{Name: a.Name, Value: v})
	}

	return c, nil
}

func (n *literalNode) build() (Expr, error) {
	switch {
	case n.String != nil:
		return &LiteralExpr{Value: unquote(*n.String)}, nil
	case n.Number != nil:
		v, err := parseNumber(*n.Number)
		if err != nil {
			return nil, err
		}

		return &LiteralExpr{Value: v}, nil
	default:
		list := make([]string, len(n.List))
		for i, s := range n.List {
			list[i] = unquote(s)
		}

		return &LiteralExpr{Value: list}, nil
	}
}

func (n *pathNode) build() (Expr, error) {
	return n.buildPath()
}

func (n *pathNode) buildPath() (*PathExpr, error) {
	p := &PathExpr{}

	switch h := n.Head; {
	case h.Dot != nil:
		p.Relative = true

		if h.Dot.First != nil {
			p.Steps = append(p.Steps, h.Dot.First.step())
		}
	case h.First != nil:
		p.Steps = append(p.Steps, h.First.step())
	case h.Index != nil:
		st, err := h.Index.step()
		if err != nil {
			return nil, err
		}

		p.Steps = append(p.Steps, st)
	}

	for _, s := range n.Steps {
		switch {
		case s.Key != nil:
			p.Steps = append(p.Steps, s.Key.step())
		case s.Index != nil:
			st, err := s.Index.step()
			if err != nil {
				return nil, err
			}

			p.Steps = append(p.Steps, st)
		}
	}

	if !p.Relative && len(p.Steps) == 0 {
		return nil, ErrEmptyExpr
	}

	return p, nil
}

func (n *segNode) step() Step {
	switch {
	case n.Current:
		return Step{Kind: StepCurrent}
	case n.Quoted != "":
		return Step{Kind: StepKey, Key: unquote(n.Quoted)}
	default:
		return Step{Kind: StepKey, Key: n.Name}
	}
}

func (n *indexNode) step() (Step, error) {
	switch {
	case n.Wildcard:
		return Step{Kind: StepWildcard}, nil
	case n.Filter != nil:
		lit, err := n.Filter.Value.build()
		if err != nil {
			return Step{}, err
		}

		key := n.Filter.Key.step()
		if key.Kind == StepCurrent {
			key.Key = "@"
		}

		return Step{Kind: StepFilter, Key: key.Key, Value: lit.(*LiteralExpr).Value}, nil
	default:
		i, err := strconv.Atoi(n.Number)
		if err != nil {
			return Step{}, fmt.Errorf("index %q is not an integer", n.Number)
		}

		return Step{Kind: StepIndex, Index: i}, nil
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}

	return strconv.ParseFloat(s, 64)
}
