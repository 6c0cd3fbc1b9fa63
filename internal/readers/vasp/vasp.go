// Package vasp reads VASP calculations from vasprun.xml or, when that is not
// available, from OUTCAR.
package vasp

import (
	_ "embed"
	"path/filepath"
	"strings"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/mapper"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/orchestrate"
	"simulation-parsers/internal/readers"
)

// Name of the code.
const Name = "VASP"

// Source tags of the rule file. TagXML2 is a second pass over vasprun.xml
// that merges the band data of the last ionic step into the last output.
const (
	TagXML    = "xml"
	TagXML2   = "xml2"
	TagOutcar = "outcar"
)

//go:embed rules.yaml
var rules []byte

// Rules returns the embedded rule file.
func Rules() []byte {
	return rules
}

// Parser reads one VASP calculation per Parse call.
type Parser struct {
	opts   readers.Options
	funcs  *mapping.TransformRegistry
	mapper *mapper.Mapper
}

// New creates a parser.
func New(opts readers.Options) (*Parser, error) {
	opts = opts.WithDefaults()
	funcs := Transforms()

	m, err := readers.NewMapper(rules, funcs, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Parser{opts: opts, funcs: funcs, mapper: m}, nil
}

// Transforms returns the transform registry of the parser.
func (p *Parser) Transforms() *mapping.TransformRegistry {
	return p.funcs
}

// RuleSet returns the compiled rules of the parser.
func (p *Parser) RuleSet() *mapping.RuleSet {
	return p.mapper.Rules()
}

// IsOutcar reports whether mainfile is read as OUTCAR rather than
// vasprun.xml.
func IsOutcar(mainfile string) bool {
	return strings.Contains(strings.ToLower(filepath.Base(mainfile)), "outcar")
}

// Parse reads mainfile, a vasprun.xml or OUTCAR file.
func (p *Parser) Parse(mainfile string) (*orchestrate.Result, error) {
	run := orchestrate.NewRun(mainfile, p.mapper, p.opts.RunOptions()...)
	run.Main().Program = &archive.Program{Name: Name}

	if IsOutcar(mainfile) {
		if err := run.ParseMain(TagOutcar, readers.Text(OutcarGrammar, p.opts.Evaluator())); err != nil {
			return nil, err
		}

		return run.Finish()
	}

	if err := run.ParseMain(TagXML, readers.XML()); err != nil {
		return nil, err
	}

	doc, _ := run.Sources().Get(TagXML)
	if err := run.MapSource(TagXML2, doc, mapper.ModeMergeLast); err != nil {
		return nil, err
	}

	return run.Finish()
}
