package mapper

import (
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"simulation-parsers/internal/diagnostic"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/schema"
)

// Mapper writes parsed records into archive sections following a rule set.
type Mapper struct {
	graph  *schema.Graph
	rules  *mapping.RuleSet
	funcs  *mapping.TransformRegistry
	config Config
}

// New creates a Mapper. funcs may be nil when the rules use no transforms.
func New(
	graph *schema.Graph,
	rules *mapping.RuleSet,
	funcs *mapping.TransformRegistry,
	config Config,
) *Mapper {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	return &Mapper{
		graph:  graph,
		rules:  rules,
		funcs:  funcs,
		config: config,
	}
}

// Rules returns the rule set of the mapper.
func (m *Mapper) Rules() *mapping.RuleSet {
	return m.rules
}

// Apply maps source, the parsed record of tag, into target. Target must be a
// pointer to a section of the mapper's schema graph. The returned diagnostics
// are never nil; per-field failures are warnings.
func (m *Mapper) Apply(target any, tag string, source any, mode Mode) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		res.AddError("invalid_target", fmt.Sprintf("target must be a non-nil pointer, got %T", target), tag, "")
		return res
	}

	sec := m.graph.Of(target)
	if sec == nil {
		res.AddError(diagnostic.CodeUnknownSection, fmt.Sprintf("%T is not a section of the schema", target), tag, "")
		return res
	}

	if source == nil || !m.rules.HasTag(tag) {
		return res
	}

	p := &pass{
		m:    m,
		tag:  tag,
		mode: mode,
		env:  &mapping.Env{Root: source, Transforms: m.funcs},
		res:  res,
		log:  m.config.Logger.WithField("tag", tag),
	}

	p.section(rv.Elem(), sec, source, sec.Name, 0)

	return res
}

// pass is the state of one Apply call.
type pass struct {
	m    *Mapper
	tag  string
	mode Mode
	env  *mapping.Env
	res  *diagnostic.Diagnostics
	log  logrus.FieldLogger
}

// section fills the declared fields of v and reports whether anything was
// written.
func (p *pass) section(v reflect.Value, sec *schema.Section, cur any, path string, depth int) bool {
	if limit := p.m.config.MaxDepth; limit > 0 && depth > limit {
		p.log.WithField("field", path).Debug("maximum section depth reached")
		return false
	}

	wrote := false

	for _, f := range sec.Fields {
		if p.field(v, f, cur, path+"."+f.Name, depth) {
			wrote = true
		}
	}

	return wrote
}

func (p *pass) field(v reflect.Value, f *schema.Field, cur any, path string, depth int) (wrote bool) {
	rule := p.m.rules.FieldRule(p.tag, f.Parent.Name, f.Name)
	if rule == nil && f.IsSection() {
		rule = p.m.rules.SectionRule(p.tag, f.Section.Name)
	}

	if rule == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			p.warn(diagnostic.CodeTransformFailed, path, fmt.Errorf("%s: panic: %v", rule.Target, r))

			wrote = false
		}
	}()

	val, err := p.eval(rule, cur)
	if err != nil {
		p.warn(diagnostic.CodeTransformFailed, path, err)
		return false
	}

	if mapping.IsEmpty(val) {
		return false
	}

	fv := v.FieldByIndex(f.Index)

	switch f.Kind {
	case schema.FieldKindQuantity:
		if err := assign(fv, val, f.Unit, rule.Unit); err != nil {
			p.warn(diagnostic.CodeMalformedValue, path, err)
			return false
		}

		return true
	case schema.FieldKindSection:
		return p.single(fv, f, val, path, depth)
	case schema.FieldKindRepeatedSection:
		return p.repeated(fv, f, val, path, depth)
	default:
		return false
	}
}

// eval evaluates the rule expression and applies its search expression to
// the result.
func (p *pass) eval(rule *mapping.Rule, cur any) (any, error) {
	val, err := p.env.Eval(rule.Expr, cur)
	if err != nil || rule.Search == nil || val == nil {
		return val, err
	}

	sub := &mapping.Env{Root: val, Transforms: p.env.Transforms}

	return sub.Eval(rule.Search, val)
}

// single fills a single sub-section. An existing sub-section is updated in
// place, a new one is only attached when something was written to it.
func (p *pass) single(fv reflect.Value, f *schema.Field, val any, path string, depth int) bool {
	if fv.Kind() != reflect.Pointer {
		return p.section(fv, f.Section, val, path, depth+1)
	}

	if !fv.IsNil() {
		return p.section(fv.Elem(), f.Section, val, path, depth+1)
	}

	nv := reflect.New(f.Section.Type)
	if !p.section(nv.Elem(), f.Section, val, path, depth+1) {
		return false
	}

	fv.Set(nv)

	return true
}

// repeated fans val out into one sub-section per element.
func (p *pass) repeated(fv reflect.Value, f *schema.Field, val any, path string, depth int) bool {
	elems, ok := mapping.AsList(val)
	if !ok {
		elems = []any{val}
	}

	byPointer := fv.Type().Elem().Kind() == reflect.Pointer
	wrote := false

	for i, el := range elems {
		if el == nil {
			continue
		}

		elPath := fmt.Sprintf("%s[%d]", path, i)

		if i == 0 && p.mode == ModeMergeLast && fv.Len() > 0 {
			last := fv.Index(fv.Len() - 1)
			if byPointer {
				if last.IsNil() {
					last.Set(reflect.New(f.Section.Type))
				}

				last = last.Elem()
			}

			if p.section(last, f.Section, el, elPath, depth+1) {
				wrote = true
			}

			continue
		}

		nv := reflect.New(f.Section.Type)
		if !p.section(nv.Elem(), f.Section, el, elPath, depth+1) {
			continue
		}

		if byPointer {
			fv.Set(reflect.Append(fv, nv))
		} else {
			fv.Set(reflect.Append(fv, nv.Elem()))
		}

		wrote = true
	}

	return wrote
}

func (p *pass) warn(code, path string, err error) {
	p.log.WithField("field", path).WithError(err).Warn("field not mapped")
	p.res.AddWarning(code, err.Error(), p.tag, path)
}
