// Package fhiaims reads FHI-aims calculations from aims.out and the raw DOS
// files written next to it. Runs with a qpe_calc GW setting produce a GW
// child entry and a DFT+GW workflow entry.
package fhiaims

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapper"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/numeric"
	"simulation-parsers/internal/orchestrate"
	"simulation-parsers/internal/readers"
)

// Name of the code.
const Name = "FHI-aims"

// Source tags of the rule file.
const (
	TagText = "text"
	TagDOS  = "text_dos"
	TagGW   = "text_gw"
)

// defaultTotalDOS is the total DOS file name used when aims.out does not
// print one.
const defaultTotalDOS = "KS_DOS_total_raw.dat"

//go:embed rules.yaml
var rules []byte

// Rules returns the embedded rule file.
func Rules() []byte {
	return rules
}

// Parser reads one FHI-aims calculation per Parse call.
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

// Parse reads mainfile, an aims.out file, and the DOS files it names.
func (p *Parser) Parse(mainfile string) (*orchestrate.Result, error) {
	run := orchestrate.NewRun(mainfile, p.mapper, p.opts.RunOptions()...)
	run.Main().Program = &archive.Program{Name: Name}

	if err := run.ParseMain(TagText, readers.Text(OutGrammar, p.opts.Evaluator())); err != nil {
		return nil, err
	}

	out, _ := run.Sources().Get(TagText)

	if dos := p.loadDOS(run, out); dos != nil {
		if err := run.MapSource(TagDOS, dos, mapper.ModeMergeLast); err != nil {
			return nil, err
		}
	}

	if flag, _ := out["gw_flag"].(string); IsGW(flag) {
		sim := &archive.Simulation{Program: &archive.Program{Name: Name}}

		gw, err := run.SpawnChild(orchestrate.EntryGW, sim, TagGW, out)
		if err != nil {
			return nil, err
		}

		if _, err := run.SpawnWorkflow(orchestrate.EntryGWWorkflow, archive.NewDFTGW(run.MainID(), gw.ID)); err != nil {
			return nil, err
		}
	}

	return run.Finish()
}

// loadDOS reads the DOS files named in out into a record of total, atom and
// species file lists, or returns nil when none could be read.
func (p *Parser) loadDOS(run *orchestrate.Run, out grammar.Record) grammar.Record {
	log := run.Logger()

	totals := dosNames(out["total_dos_files"])
	atoms := dosNames(out["atom_projected_dos_files"])
	species := dosNames(out["species_projected_dos_files"])

	if len(totals) == 0 {
		totals = [][2]string{{"", defaultTotalDOS}}
	}

	rec := grammar.Record{}
	found := false

	for key, names := range map[string][][2]string{"total": totals, "atom": atoms, "species": species} {
		var files []any

		for _, n := range names {
			f, err := p.readDOS(run, n[0], n[1])
			if err != nil {
				log.WithFields(logrus.Fields{"file": n[1]}).WithError(err).Debug("DOS file not loaded")
				continue
			}

			files = append(files, f)
		}

		if len(files) > 0 {
			rec[key] = files
			found = true
		}
	}

	if !found {
		return nil
	}

	return rec
}

// readDOS loads a DOS file found next to the main file. The first column is
// the energy, the remaining ones are DOS values.
func (p *Parser) readDOS(run *orchestrate.Run, label, name string) (grammar.Record, error) {
	path := p.opts.Find(name, run.Dir(), false)
	if path == "" {
		return nil, fmt.Errorf("%s not found", name)
	}

	data, err := afero.ReadFile(p.opts.Fs, path)
	if err != nil {
		return nil, err
	}

	m, err := numeric.LoadColumns(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return grammar.Record{
		"file":     name,
		"label":    label,
		"energies": numeric.Column(m, 0),
		"columns":  numeric.Columns(m, 1),
	}, nil
}

// dosNames returns (label, file name) pairs from a DOS file list of the out
// grammar. Total DOS files carry no label.
func dosNames(v any) [][2]string {
	list, _ := mapping.AsList(v)

	var out [][2]string

	for _, el := range list {
		switch x := el.(type) {
		case string:
			out = append(out, [2]string{"", x})
		case []string:
			if len(x) == 2 {
				out = append(out, [2]string{x[0], x[1]})
			}
		case []any:
			if len(x) == 2 {
				label, _ := x[0].(string)
				name, _ := x[1].(string)
				out = append(out, [2]string{label, name})
			}
		}
	}

	return out
}
