package mapping

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// --- RuleSpec YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for RuleSpec.
// Accepts a plain expression (string, call mapping or call triple) or the
// full form with expr/unit/search keys.
func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.SequenceNode:
		*r = RuleSpec{}
		return r.Expr.UnmarshalYAML(node)

	case yaml.MappingNode:
		var (
			out      RuleSpec
			callKeys []*yaml.Node
		)

		for i := 0; i+1 < len(node.Content); i += 2 {
			k, v := node.Content[i], node.Content[i+1]

			switch k.Value {
			case "expr":
				if err := out.Expr.UnmarshalYAML(v); err != nil {
					return err
				}
			case "unit":
				if err := v.Decode(&out.Unit); err != nil {
					return fmt.Errorf("invalid unit: %w", err)
				}
			case "search":
				if err := v.Decode(&out.Search); err != nil {
					return fmt.Errorf("invalid search: %w", err)
				}
			case "func", "args", "kwargs":
				callKeys = append(callKeys, k, v)
			default:
				return fmt.Errorf("line %d: unknown rule key %q", k.Line, k.Value)
			}
		}

		if len(callKeys) > 0 {
			if out.Expr.Source != "" || out.Expr.IsCall() {
				return fmt.Errorf("line %d: rule has both expr and func", node.Line)
			}

			call := &yaml.Node{Kind: yaml.MappingNode, Content: callKeys}
			if err := out.Expr.UnmarshalYAML(call); err != nil {
				return err
			}
		}

		*r = out

		return nil

	default:
		return fmt.Errorf("expected string, mapping or array, got %v", node.Kind)
	}
}

// MarshalYAML implements custom YAML marshaling for RuleSpec.
// Outputs the bare expression when there is no unit or search.
func (r RuleSpec) MarshalYAML() (any, error) {
	if r.Unit == "" && r.Search == "" {
		return r.Expr.MarshalYAML()
	}

	expr, err := r.Expr.MarshalYAML()
	if err != nil {
		return nil, err
	}

	out := map[string]any{"expr": expr}
	if r.Unit != "" {
		out["unit"] = r.Unit
	}

	if r.Search != "" {
		out["search"] = r.Search
	}

	return out, nil
}

// --- ExprSpec YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for ExprSpec.
// Accepts:
//   - String: "get_xc_functionals(.type)"
//   - Mapping: {func: get_xc_functionals, args: [.type], kwargs: {}}
//   - Triple: [get_xc_functionals, [.type], {}]
func (e *ExprSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		if err := node.Decode(&str); err != nil {
			return err
		}

		*e = ExprSpec{Source: str}

		return nil

	case yaml.SequenceNode:
		return e.fromTriple(node)

	case yaml.MappingNode:
		var call struct {
			Func   string         `yaml:"func"`
			Args   []string       `yaml:"args"`
			Kwargs map[string]any `yaml:"kwargs"`
		}

		if err := node.Decode(&call); err != nil {
			return fmt.Errorf("invalid call: %w", err)
		}

		if call.Func == "" {
			return fmt.Errorf("line %d: call without func", node.Line)
		}

		*e = ExprSpec{Func: call.Func, Args: call.Args, Kwargs: call.Kwargs}

		return nil

	default:
		return fmt.Errorf("expected string, mapping or array, got %v", node.Kind)
	}
}

// fromTriple parses [func, [args...], {kwargs}]; args and kwargs are optional.
func (e *ExprSpec) fromTriple(node *yaml.Node) error {
	if len(node.Content) == 0 || len(node.Content) > 3 {
		return fmt.Errorf("line %d: expected [func, [args], {kwargs}], got %d items", node.Line, len(node.Content))
	}

	out := ExprSpec{}

	if err := node.Content[0].Decode(&out.Func); err != nil || out.Func == "" {
		return errors.New("call triple: first item must be the function name")
	}

	if len(node.Content) > 1 {
		if err := node.Content[1].Decode(&out.Args); err != nil {
			return fmt.Errorf("call triple: args: %w", err)
		}
	}

	if len(node.Content) > 2 {
		if err := node.Content[2].Decode(&out.Kwargs); err != nil {
			return fmt.Errorf("call triple: kwargs: %w", err)
		}
	}

	*e = out

	return nil
}

// MarshalYAML implements custom YAML marshaling for ExprSpec.
func (e ExprSpec) MarshalYAML() (any, error) {
	if !e.IsCall() {
		return e.Source, nil
	}

	out := map[string]any{"func": e.Func}
	if len(e.Args) > 0 {
		out["args"] = e.Args
	}

	if len(e.Kwargs) > 0 {
		out["kwargs"] = e.Kwargs
	}

	return out, nil
}
