package mapping

import (
	"fmt"
	"reflect"

	"simulation-parsers/internal/common"
)

// Env is the evaluation environment of one mapper pass.
type Env struct {
	Root       any                // active parsed record of the source tag
	Transforms *TransformRegistry // may be nil when no calls are used
}

// UnknownTransformError is returned for a call to an unregistered function.
type UnknownTransformError struct {
	Name string
}

func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("unknown transform %q", e.Name)
}

// Eval evaluates e with cur as the current node. An absent value is returned
// as nil with a nil error; errors come from transforms only.
func (env *Env) Eval(e Expr, cur any) (any, error) {
	switch x := e.(type) {
	case *PathExpr:
		start := env.Root
		if x.Relative {
			start = cur
		}

		return evalPath(x, start), nil
	case *PipeExpr:
		left, err := env.Eval(x.Left, cur)
		if err != nil || left == nil {
			return nil, err
		}

		return evalPath(x.Right, left), nil
	case *AltExpr:
		a, err := env.Eval(x.A, cur)
		if err != nil {
			return nil, err
		}

		if !IsEmpty(a) {
			return a, nil
		}

		return env.Eval(x.B, cur)
	case *LiteralExpr:
		return x.Value, nil
	case *CallExpr:
		return env.call(x, cur)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
}

func (env *Env) call(c *CallExpr, cur any) (any, error) {
	args := make([]any, len(c.Args))

	for i, a := range c.Args {
		v, err := env.Eval(a, cur)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	kwargs := make(map[string]any, len(c.Kwargs))

	for _, kw := range c.Kwargs {
		v, err := env.Eval(kw.Value, cur)
		if err != nil {
			return nil, err
		}

		kwargs[kw.Name] = v
	}

	if c.Func == BuiltinLength {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects one argument, got %d", BuiltinLength, len(args))
		}

		return length(args[0]), nil
	}

	var t *Transform
	if env.Transforms != nil {
		t = env.Transforms.Get(c.Func)
	}

	if t == nil {
		return nil, &UnknownTransformError{Name: c.Func}
	}

	out, err := t.Func(args, kwargs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Func, err)
	}

	return out, nil
}

// BuiltinLength is the name of the built-in element count function.
const BuiltinLength = "length"

func length(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return len(x)
	case map[string]any:
		return len(x)
	}

	if list, ok := AsList(v); ok {
		return len(list)
	}

	return nil
}

// evalPath walks p from start. Projections started by [*] or a filter apply
// the following steps to each element and drop absent results.
func evalPath(p *PathExpr, start any) any {
	cur := start
	projecting := false

	for _, s := range p.Steps {
		if cur == nil {
			return nil
		}

		switch s.Kind {
		case StepCurrent:
		case StepWildcard:
			list, ok := AsList(cur)
			if !ok {
				list = []any{cur}
			}

			if projecting {
				list = flatten(list)
			}

			cur, projecting = list, true
		case StepFilter:
			list, ok := AsList(cur)
			if !ok {
				list = []any{cur}
			}

			out := []any{}

			for _, el := range list {
				if literalEqual(key(el, s.Key), s.Value) {
					out = append(out, el)
				}
			}

			cur, projecting = out, true
		case StepKey:
			if list, ok := AsList(cur); ok {
				cur, projecting = project(list, func(el any) any { return key(el, s.Key) }), true
			} else {
				cur = key(cur, s.Key)
			}
		case StepIndex:
			if projecting {
				list, _ := AsList(cur)
				cur = project(list, func(el any) any { return index(el, s.Index) })
			} else {
				cur = index(cur, s.Index)
			}
		}
	}

	return cur
}

func project(list []any, fn func(any) any) []any {
	out := make([]any, 0, len(list))

	for _, el := range list {
		if v := fn(el); v != nil {
			out = append(out, v)
		}
	}

	return out
}

func flatten(list []any) []any {
	out := make([]any, 0, len(list))

	for _, el := range list {
		if inner, ok := AsList(el); ok {
			out = append(out, inner...)
		} else {
			out = append(out, el)
		}
	}

	return out
}

func key(v any, k string) any {
	if k == "@" {
		return v
	}

	switch m := v.(type) {
	case map[string]any:
		return m[k]
	default:
		return nil
	}
}

// index indexes a sequence. A single record behaves like a one element
// sequence, so paths work whether an XML child occurred once or repeatedly.
func index(v any, i int) any {
	list, ok := AsList(v)
	if !ok {
		if _, isRecord := v.(map[string]any); isRecord && (i == 0 || i == -1) {
			return v
		}

		return nil
	}

	el, _ := common.At(list, i)

	return el
}

// AsList returns the elements of any slice value as []any.
func AsList(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []any:
		return x, true
	case string, []byte:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

// IsEmpty reports whether v counts as absent for alternation: nil, an empty
// string, an empty sequence or an empty record.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case map[string]any:
		return len(x) == 0
	}

	if list, ok := AsList(v); ok {
		return len(list) == 0
	}

	return false
}

func literalEqual(v, lit any) bool {
	if v == nil {
		return false
	}

	if a, ok := toNumber(v); ok {
		if b, ok := toNumber(lit); ok {
			return a == b
		}
	}

	return fmt.Sprint(v) == fmt.Sprint(lit)
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
