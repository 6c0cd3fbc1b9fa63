package mapping

import (
	"errors"
	"fmt"

	"simulation-parsers/internal/diagnostic"
	"simulation-parsers/internal/match"
	"simulation-parsers/internal/schema"
	"simulation-parsers/internal/units"
)

const maxSuggestions = 3

// Validate checks a rule set against the archive schema and the transforms
// of a reader. Rules are only checked structurally; paths into the parsed
// records cannot be verified before a file is read.
func Validate(rs *RuleSet, graph *schema.Graph, funcs *TransformRegistry) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if rs == nil {
		res.AddError("rules_are_nil", "rule set is nil", "", "")
		return res
	}

	if graph == nil {
		res.AddError("graph_is_nil", "schema graph is nil", "", "")
		return res
	}

	for _, tag := range rs.Tags() {
		for _, r := range rs.Rules(tag) {
			validateRule(res, r, graph, funcs)
		}
	}

	return res
}

func validateRule(res *diagnostic.Diagnostics, r *Rule, graph *schema.Graph, funcs *TransformRegistry) {
	sec := graph.Section(r.Section)
	if sec == nil {
		res.AddSuggested(
			diagnostic.CodeUnknownSection,
			fmt.Sprintf("unknown section %q", r.Section),
			r.Tag, r.Target,
			match.Suggest(r.Section, graph.Names(), maxSuggestions),
		)

		return
	}

	if !r.IsSectionRule() {
		fld := sec.Field(r.Field)
		if fld == nil {
			res.AddSuggested(
				diagnostic.CodeUnknownField,
				fmt.Sprintf("unknown field %q", r.Field),
				r.Tag, r.Target,
				match.Suggest(r.Field, sec.FieldNames(), maxSuggestions),
			)

			return
		}

		if r.Unit != "" && !fld.Unit {
			res.AddWarning(
				diagnostic.CodeInvalidUnit,
				fmt.Sprintf("unit %q given for %s which holds plain values", r.Unit, fld.Type),
				r.Tag, r.Target,
			)
		}
	} else if r.Unit != "" {
		res.AddWarning(diagnostic.CodeInvalidUnit, "unit given for a section rule", r.Tag, r.Target)
	}

	if r.Unit != "" && !units.Known(r.Unit) {
		res.AddError(diagnostic.CodeInvalidUnit, fmt.Sprintf("unknown unit %q", r.Unit), r.Tag, r.Target)
	}

	for _, e := range []Expr{r.Expr, r.Search} {
		if e == nil {
			continue
		}

		Walk(e, func(x Expr) {
			c, ok := x.(*CallExpr)
			if !ok || c.Func == BuiltinLength {
				return
			}

			if funcs == nil || !funcs.Has(c.Func) {
				var known []string
				if funcs != nil {
					known = funcs.Names()
				}

				res.AddSuggested(
					diagnostic.CodeUnknownTransform,
					(&UnknownTransformError{Name: c.Func}).Error(),
					r.Tag, r.Target,
					match.Suggest(c.Func, known, maxSuggestions),
				)
			}
		})
	}
}

// ValidateError runs Validate and returns its errors, if any, as one error.
func ValidateError(rs *RuleSet, graph *schema.Graph, funcs *TransformRegistry) error {
	d := Validate(rs, graph, funcs)
	if err := d.Error(); err != nil {
		return errors.Join(errors.New("invalid rules"), err)
	}

	return nil
}
