package mapping

// RuleFile is the root structure of a mapping rule YAML file.
type RuleFile struct {
	// Version is the schema version (currently "1").
	Version string `yaml:"version,omitempty"`
	// Program is the simulation code the rules belong to.
	Program string `yaml:"program,omitempty"`
	// Tags maps a source tag to its rules.
	Tags map[string]TagRules `yaml:"tags"`
}

// TagRules maps a target ("Section.field" or "Section") to its rule.
type TagRules map[string]RuleSpec

// RuleSpec is one rule as written in YAML.
// Accepts:
//   - a string expression: ".final.energy_total || energy_total"
//   - a call mapping: {func: get_forces, args: [.@]}
//   - a call triple: [get_data, [.@], {path: .energy_total}]
//   - the full form: {expr: <any of the above>, unit: hartree, search: "@ | [0]"}
type RuleSpec struct {
	Expr   ExprSpec `yaml:"expr"`
	Unit   string   `yaml:"unit,omitempty"`
	Search string   `yaml:"search,omitempty"`
}

// ExprSpec is an expression as written in YAML: either Source (expression
// text) or a call given as Func/Args/Kwargs. Args are expression strings,
// kwargs are YAML literals.
type ExprSpec struct {
	Source string
	Func   string
	Args   []string
	Kwargs map[string]any
}

// IsCall returns true if the expression is given in call form.
func (e ExprSpec) IsCall() bool {
	return e.Func != ""
}
