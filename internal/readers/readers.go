// Package readers holds what the per-code readers share: options, read
// functions for text grammars and XML documents, and mapper construction
// from embedded rule files.
package readers

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/discover"
	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapper"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/orchestrate"
	"simulation-parsers/internal/schema"
	"simulation-parsers/internal/units"
	"simulation-parsers/internal/xmltree"
)

// DefaultSpinTolerance is the occupation margin of the spin channel
// heuristic: a channel holding more than 1+tolerance electrons is spin
// degenerate.
const DefaultSpinTolerance = 0.1

// Graph is the schema graph of the archive all readers write into.
var Graph = schema.MustBuild(&archive.Simulation{})

// Options configure a reader.
type Options struct {
	Fs     afero.Fs
	Logger logrus.FieldLogger
	// SearchDepth is the number of directory levels searched for auxiliary
	// files (0 = discover.DefaultMaxDirs).
	SearchDepth int
	// Strict turns grammar conversion failures into read errors.
	Strict bool
	// SpinTolerance of the spin channel heuristic.
	SpinTolerance float64
}

// DefaultOptions returns options reading from the local file system.
func DefaultOptions() Options {
	return Options{
		Fs:            afero.NewOsFs(),
		Logger:        logrus.StandardLogger(),
		SearchDepth:   discover.DefaultMaxDirs,
		SpinTolerance: DefaultSpinTolerance,
	}
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()

	if o.Fs == nil {
		o.Fs = def.Fs
	}

	if o.Logger == nil {
		o.Logger = def.Logger
	}

	if o.SearchDepth <= 0 {
		o.SearchDepth = def.SearchDepth
	}

	if o.SpinTolerance <= 0 {
		o.SpinTolerance = def.SpinTolerance
	}

	return o
}

// Evaluator returns the grammar evaluator matching the options.
func (o Options) Evaluator() *grammar.Evaluator {
	policy := grammar.PolicySkip
	if o.Strict {
		policy = grammar.PolicyFail
	}

	return &grammar.Evaluator{Policy: policy, Logger: o.Logger}
}

// RunOptions returns the orchestrator options matching the options.
func (o Options) RunOptions() []orchestrate.Option {
	return []orchestrate.Option{orchestrate.WithFs(o.Fs), orchestrate.WithLogger(o.Logger)}
}

// Find returns the first file matching pattern near dir, or "".
func (o Options) Find(pattern, dir string, deep bool) string {
	return discover.First(o.Fs, pattern, dir, discover.Options{Deep: deep, MaxDirs: o.SearchDepth})
}

// Text returns a read function evaluating g.
func Text(g *grammar.Grammar, ev *grammar.Evaluator) orchestrate.ReadFunc {
	return func(data []byte) (grammar.Record, error) {
		return ev.Evaluate(g, string(data))
	}
}

// XML returns a read function converting an XML document with numeric
// conversion enabled.
func XML() orchestrate.ReadFunc {
	return func(data []byte) (grammar.Record, error) {
		return xmltree.ParseBytes(data, xmltree.Options{Convert: true})
	}
}

// NewMapper loads rules and checks them against the archive schema and
// funcs before building the mapper.
func NewMapper(rules []byte, funcs *mapping.TransformRegistry, log logrus.FieldLogger) (*mapper.Mapper, error) {
	rs, err := mapping.Load(rules)
	if err != nil {
		return nil, err
	}

	if err := mapping.ValidateError(rs, Graph, funcs); err != nil {
		return nil, fmt.Errorf("invalid %s rules: %w", rs.Program, err)
	}

	cfg := mapper.DefaultConfig()
	if log != nil {
		cfg.Logger = log
	}

	return mapper.New(Graph, rs, funcs, cfg), nil
}

// Magnitude returns the magnitude of a unit tagged value and the value
// itself otherwise.
func Magnitude(v any) any {
	switch q := v.(type) {
	case units.Quantity:
		return q.Magnitude
	case *units.Quantity:
		if q == nil {
			return nil
		}

		return q.Magnitude
	default:
		return v
	}
}

// Record returns v as a record, or an empty one.
func Record(v any) grammar.Record {
	if rec, ok := v.(grammar.Record); ok && rec != nil {
		return rec
	}

	return grammar.Record{}
}

// Records returns the records of a sequence value. A single record is
// returned as a one element sequence.
func Records(v any) []grammar.Record {
	if rec, ok := v.(grammar.Record); ok {
		return []grammar.Record{rec}
	}

	list, _ := mapping.AsList(v)

	out := make([]grammar.Record, 0, len(list))
	for _, el := range list {
		if rec, ok := el.(grammar.Record); ok {
			out = append(out, rec)
		}
	}

	return out
}
