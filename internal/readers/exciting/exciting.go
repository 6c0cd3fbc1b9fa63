// Package exciting reads exciting calculations: the INFO.OUT main file and
// the input.xml, EIGVAL.OUT, bandstructure.xml and dos.xml files found next
// to it.
package exciting

import (
	_ "embed"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapper"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/orchestrate"
	"simulation-parsers/internal/readers"
)

// Name of the code.
const Name = "exciting"

// Source tags of the rule file.
const (
	TagInfo          = "info"
	TagInputXML      = "input_xml"
	TagEigval        = "eigval"
	TagBandstructure = "bandstructure_xml"
	TagDOS           = "dos_xml"
)

//go:embed rules.yaml
var rules []byte

// Rules returns the embedded rule file.
func Rules() []byte {
	return rules
}

// auxiliary is a file read after the main file.
type auxiliary struct {
	tag     string
	pattern string
	read    orchestrate.ReadFunc
}

// Parser reads one exciting calculation per Parse call.
type Parser struct {
	opts   readers.Options
	funcs  *mapping.TransformRegistry
	mapper *mapper.Mapper
	eigval *grammar.Grammar
}

// New creates a parser.
func New(opts readers.Options) (*Parser, error) {
	opts = opts.WithDefaults()
	funcs := Transforms()

	m, err := readers.NewMapper(rules, funcs, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Parser{
		opts:   opts,
		funcs:  funcs,
		mapper: m,
		eigval: EigvalGrammar(opts.SpinTolerance),
	}, nil
}

// Transforms returns the transform registry of the parser.
func (p *Parser) Transforms() *mapping.TransformRegistry {
	return p.funcs
}

// RuleSet returns the compiled rules of the parser.
func (p *Parser) RuleSet() *mapping.RuleSet {
	return p.mapper.Rules()
}

// Parse reads mainfile, an INFO.OUT file, and the auxiliary files of the
// calculation. Auxiliary files are searched in the directory of mainfile
// and below; missing ones leave their sections absent.
func (p *Parser) Parse(mainfile string) (*orchestrate.Result, error) {
	ev := p.opts.Evaluator()
	run := orchestrate.NewRun(mainfile, p.mapper, p.opts.RunOptions()...)
	run.Main().Program = &archive.Program{Name: Name}

	if err := run.ParseMain(TagInfo, readers.Text(InfoGrammar, ev)); err != nil {
		return nil, err
	}

	aux := []auxiliary{
		{TagEigval, "EIGVAL.OUT", readers.Text(p.eigval, ev)},
		{TagBandstructure, "bandstructure.xml", readers.XML()},
		{TagDOS, "dos.xml", readers.XML()},
	}

	if !hasXCFunctionals(run.Main()) {
		aux = append([]auxiliary{{TagInputXML, "input.xml", readers.XML()}}, aux...)
	}

	for _, a := range aux {
		path := p.opts.Find(a.pattern, run.Dir(), true)
		if err := run.ParseAux(a.tag, path, a.read, mapper.ModeMergeLast); err != nil {
			return nil, err
		}
	}

	return run.Finish()
}

func hasXCFunctionals(sim *archive.Simulation) bool {
	for _, m := range sim.ModelMethod {
		if m != nil && len(m.XCFunctionals) > 0 {
			return true
		}
	}

	return false
}
