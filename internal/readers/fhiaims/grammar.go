package fhiaims

import (
	"fmt"
	"regexp"
	"strings"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/units"
)

const reFloat = `[-+]?\d+\.\d*(?:[EeDd][-+]?\d+)?`

const sectionEnd = `Energy and forces in a compact form:[\s\S]+?\n[ \t]*-{20,}`

// reGWFlag finds the qpe_calc keyword echoed from control.in.
var reGWFlag = regexp.MustCompile(`\n\s*qpe_calc\s+(\w+)`)

// GWFlag returns the qpe_calc value of an aims.out text, or "".
func GWFlag(text string) string {
	if m := reGWFlag.FindStringSubmatch("\n" + text); m != nil {
		return m[1]
	}

	return ""
}

// inputStructureGrammar reads the "| 1: Species Si x y z" rows of the input
// geometry.
var inputStructureGrammar = grammar.MustNew(
	grammar.NewQuantity("labels", `Species\s+(\w+)`, grammar.Repeats()),
	grammar.NewQuantity("positions", `([\s\S]+)`, grammar.WithTransform(grammar.NumericRows(3))),
)

// structureGrammar reads the "atom x y z Si" rows of updated geometries.
var structureGrammar = grammar.MustNew(
	grammar.NewQuantity("labels", `atom\s+`+reFloat+`\s+`+reFloat+`\s+`+reFloat+`\s+(\w+)`, grammar.Repeats()),
	grammar.NewQuantity("positions", `([\s\S]+)`, grammar.WithTransform(grammar.NumericRows(3))),
)

var eigenvalueGrammar = grammar.MustNew(
	grammar.NewQuantity("kpoints", `K-point:\s*\d+\s+at\s+(`+reFloat+`)\s+(`+reFloat+`)\s+(`+reFloat+`)`,
		grammar.Repeats(), grammar.WithDType(grammar.DTypeFloat)),
	grammar.NewQuantity("occupation_eigenvalue", `(?m)^[ \t]*\d+[ \t]+(`+reFloat+`)[ \t]+(`+reFloat+`)[ \t]+`+reFloat,
		grammar.Repeats(), grammar.WithDType(grammar.DTypeFloat)),
)

// sectionGrammar reads one configuration: an SCF cycle with the geometry it
// was run on, when printed.
var sectionGrammar = grammar.MustNew(
	grammar.NewQuantity("lattice_vectors", `(?m)((?:^[ \t]*lattice_vector\s[^\n]+\n)+)`,
		grammar.WithTransform(grammar.NumericRows(3)), grammar.WithUnit(units.Angstrom)),
	grammar.NewQuantity("structure", `(?m)((?:^[ \t]*atom\s[^\n]+\n)+)`, grammar.WithSub(structureGrammar)),
	grammar.NewQuantity("energy_components", `Total energy components:\s*\n((?:[ \t]*\|[^\n]+\n)+)`,
		grammar.Repeats(), grammar.WithTransform(energyTable("Ha", units.Hartree))),
	grammar.NewQuantity("energy", `Energy and forces in a compact form:\s*\n((?:[ \t]*\|[^\n]+\n)+)`,
		grammar.WithTransform(energyTable("eV", units.ElectronVolt))),
	grammar.NewQuantity("forces", `Total atomic forces \(unitary forces cleaned\) \[eV/Ang\]:\s*\n((?:[ \t]*\|[^\n]+\n)+)`,
		grammar.WithTransform(grammar.NumericRows(3)), grammar.WithUnit(units.EVPerAngstrom)),
	grammar.NewQuantity("eigenvalues", `Writing Kohn-Sham eigenvalues\.([\s\S]+?)(?:Highest occupied state|\n[ \t]*\n[ \t]*\n)`,
		grammar.Repeats(), grammar.WithSub(eigenvalueGrammar)),
)

// OutGrammar reads aims.out.
var OutGrammar = grammar.MustNew(
	grammar.NewQuantity("version", `FHI-aims version\s*:\s*(\S+)`),
	grammar.NewQuantity("compilation_host", `Compiled on [^\n]*?at host\s+(\S+)`),
	grammar.NewQuantity("controlInOut_xc", `XC:\s*(?:Using\s+)?([^\n]+?)(?:\s+with\s[^\n]*)?\.?[ \t]*\n`),
	grammar.NewQuantity("hybrid_xc_coeff", `hybrid_xc_coeff:[^\n]*?(`+reFloat+`)\s*\.?[ \t]*\n`, grammar.WithDType(grammar.DTypeFloat)),
	grammar.NewQuantity("gw_flag", reGWFlag.String()),
	grammar.NewQuantity("array_size_parameters", `Basic array size parameters:\s*\n((?:[ \t]*\|[^\n]+\n)+)`,
		grammar.WithTransform(grammar.KeyValueFloats(""))),
	grammar.NewQuantity("lattice_vectors", `Input geometry:\s*\n\s*\|\s*Unit cell:\s*\n((?:[ \t]*\|(?:\s+`+reFloat+`){3}[ \t]*\n)+)`,
		grammar.WithTransform(grammar.NumericRows(3)), grammar.WithUnit(units.Angstrom)),
	grammar.NewQuantity("structure", `\|\s*Atomic structure:\s*\n[^\n]*\n((?:[ \t]*\|\s*\d+:\s*Species[^\n]+\n)+)`,
		grammar.WithSub(inputStructureGrammar)),
	grammar.NewQuantity("full_scf", `(Begin self-consistency loop: Initialization[\s\S]+?`+sectionEnd+`)`,
		grammar.Repeats(), grammar.WithSub(sectionGrammar)),
	grammar.NewQuantity("geometry_optimization", `(Updated atomic structure:[\s\S]+?`+sectionEnd+`)`,
		grammar.Repeats(), grammar.WithSub(sectionGrammar)),
	grammar.NewQuantity("molecular_dynamics", `(Molecular dynamics: Attempting to update all nuclear coordinates[\s\S]+?`+sectionEnd+`)`,
		grammar.Repeats(), grammar.WithSub(sectionGrammar)),
	grammar.NewQuantity("total_dos_files", `(?i)writing DOS \(raw data\) to file\s+(\S+)`, grammar.Repeats()),
	grammar.NewQuantity("species_projected_dos_files", `(?i)writing projected DOS \(raw data\) for species\s+(\w+)\s+to file\s+(\S+)`,
		grammar.Repeats()),
	grammar.NewQuantity("atom_projected_dos_files", `(?i)writing projected DOS \(raw data\) for atom\s+(\d+)\s+to file\s+(\S+)`,
		grammar.Repeats()),
)

// energyTable reads "| name : value label" rows into values tagged with
// unit.
func energyTable(label, unit string) grammar.TransformFunc {
	re := regexp.MustCompile(`^\s*\|\s*([^:]+?)\s*:\s*(` + reFloat + `)\s*` + regexp.QuoteMeta(label) + `\b`)

	return func(text string) (any, error) {
		out := grammar.Record{}

		for _, line := range strings.Split(text, "\n") {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}

			f, err := grammar.ParseFloat(m[2])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m[1], err)
			}

			out[m[1]] = units.New(f, unit)
		}

		if len(out) == 0 {
			return nil, fmt.Errorf("no %s values", label)
		}

		return out, nil
	}
}
