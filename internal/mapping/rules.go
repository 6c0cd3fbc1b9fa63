package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Rule is a compiled mapping rule.
type Rule struct {
	Tag     string // source tag
	Target  string // "Section.field" or "Section"
	Section string
	Field   string // empty for section rules
	Expr    Expr
	Unit    string
	Search  Expr // optional, applied to the value of Expr
}

// IsSectionRule returns true for "Section" targets.
func (r *Rule) IsSectionRule() bool {
	return r.Field == ""
}

// RuleSet holds the compiled rules of one rule file, by tag and target.
type RuleSet struct {
	Program string
	rules   map[string]map[string]*Rule
}

// NewRuleSet creates an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]map[string]*Rule)}
}

// Compile parses every expression of rf. All invalid rules are reported.
func Compile(rf *RuleFile) (*RuleSet, error) {
	rs := NewRuleSet()
	rs.Program = rf.Program

	var errs []error

	for tag, rules := range rf.Tags {
		for target, spec := range rules {
			r, err := CompileRule(tag, target, spec)
			if err != nil {
				errs = append(errs, fmt.Errorf("[%s] %s: %w", tag, target, err))
				continue
			}

			rs.Add(r)
		}
	}

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
		return nil, errors.Join(errs...)
	}

	return rs, nil
}

// CompileRule compiles a single rule.
func CompileRule(tag, target string, spec RuleSpec) (*Rule, error) {
	section, field, err := splitTarget(target)
	if err != nil {
		return nil, err
	}

	expr, err := spec.Expr.Compile()
	if err != nil {
		return nil, err
	}

	r := &Rule{
		Tag:     tag,
		Target:  target,
		Section: section,
		Field:   field,
		Expr:    expr,
		Unit:    spec.Unit,
	}

	if spec.Search != "" {
		if r.Search, err = ParseExpr(spec.Search); err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
	}

	return r, nil
}

// Compile turns the YAML expression into an Expr.
func (e ExprSpec) Compile() (Expr, error) {
	if !e.IsCall() {
		return ParseExpr(e.Source)
	}

	if !isIdent(e.Func) {
		return nil, fmt.Errorf("invalid function name %q", e.Func)
	}

	call := &CallExpr{Func: e.Func}

	for _, a := range e.Args {
		arg, err := ParseExpr(a)
		if err != nil {
			return nil, err
		}

		call.Args = append(call.Args, arg)
	}

	names := make([]string, 0, len(e.Kwargs))
	for k := range e.Kwargs {
		names = append(names, k)
	}

	sort.Strings(names)

	for _, k := range names {
		call.Kwargs = append(call.Kwargs, Kwarg{Name: k, Value: &LiteralExpr{Value: e.Kwargs[k]}})
	}

	return call, nil
}

func splitTarget(target string) (string, string, error) {
	section, field, _ := strings.Cut(target, ".")
	if !isIdent(section) {
		return "", "", fmt.Errorf("invalid target %q: section must be an identifier", target)
	}

	if strings.Contains(target, ".") && !isIdent(field) {
		return "", "", fmt.Errorf("invalid target %q: field must be an identifier", target)
	}

	return section, field, nil
}

// Add adds or replaces a rule.
func (rs *RuleSet) Add(r *Rule) {
	byTarget, ok := rs.rules[r.Tag]
	if !ok {
		byTarget = make(map[string]*Rule)
		rs.rules[r.Tag] = byTarget
	}

	byTarget[r.Target] = r
}

// Lookup returns the rule for target under tag, or nil.
func (rs *RuleSet) Lookup(tag, target string) *Rule {
	return rs.rules[tag][target]
}

// FieldRule returns the rule of section.field under tag, or nil.
func (rs *RuleSet) FieldRule(tag, section, field string) *Rule {
	return rs.Lookup(tag, section+"."+field)
}

// SectionRule returns the rule of a section definition under tag, or nil.
func (rs *RuleSet) SectionRule(tag, section string) *Rule {
	return rs.Lookup(tag, section)
}

// HasTag returns true if any rule is declared under tag.
func (rs *RuleSet) HasTag(tag string) bool {
	return len(rs.rules[tag]) > 0
}

// Tags returns the declared tags sorted.
func (rs *RuleSet) Tags() []string {
	tags := make([]string, 0, len(rs.rules))
	for t := range rs.rules {
		tags = append(tags, t)
	}

	sort.Strings(tags)

	return tags
}

// Rules returns the rules of tag sorted by target.
func (rs *RuleSet) Rules(tag string) []*Rule {
	out := make([]*Rule, 0, len(rs.rules[tag]))
	for _, r := range rs.rules[tag] {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })

	return out
}
