package vasp

import (
	"fmt"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/units"
)

const reFloat = `[-+]?(?:\d+\.\d*|\.\d+)(?:[EeDd][-+]?\d+)?`

// parametersGrammar reads the INCAR echo and array dimensions printed before
// the first ionic step.
var parametersGrammar = grammar.MustNew(
	grammar.NewQuantity("nkpts", `NKPTS\s*=\s*(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("nbands", `NBANDS\s*=\s*(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("nions", `NIONS\s*=\s*(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("ispin", `ISPIN\s*=\s*(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("encut", `ENCUT\s*=\s*(`+reFloat+`)\s*eV`, grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.ElectronVolt)),
	grammar.NewQuantity("gga", `\bGGA\s*=\s*(\S+)`),
	grammar.NewQuantity("lhfcalc", `LHFCALC\s*=\s*(\w+)`),
	grammar.NewQuantity("aexx", `AEXX\s*=\s*(`+reFloat+`)`, grammar.WithDType(grammar.DTypeFloat)),
)

var eigenvalueGrammar = grammar.MustNew(
	grammar.NewQuantity("kpoints", `k-point\s+\d+\s*:\s*(`+reFloat+`)\s+(`+reFloat+`)\s+(`+reFloat+`)`,
		grammar.Repeats(), grammar.WithDType(grammar.DTypeFloat)),
	grammar.NewQuantity("band_occupation", `(?m)^[ \t]+\d+[ \t]+(`+reFloat+`)[ \t]+(`+reFloat+`)[ \t]*$`,
		grammar.Repeats(), grammar.WithDType(grammar.DTypeFloat)),
)

var energyGrammar = grammar.MustNew(
	grammar.NewQuantity("energy_total", `free\s+energy\s+TOTEN\s*=\s*(`+reFloat+`)`,
		grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.ElectronVolt)),
	grammar.NewQuantity("energy_no_entropy", `energy\s+without\s+entropy\s*=\s*(`+reFloat+`)`,
		grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.ElectronVolt)),
	grammar.NewQuantity("energy_sigma_0", `energy\(sigma->0\)\s*=\s*(`+reFloat+`)`,
		grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.ElectronVolt)),
)

// calculationGrammar reads one ionic step, from the eigenvalues (or the
// geometry when eigenvalues are not written) to the free energy.
var calculationGrammar = grammar.MustNew(
	grammar.NewQuantity("fermi_energy", `E-fermi\s*:\s*(`+reFloat+`)`,
		grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.ElectronVolt)),
	grammar.NewQuantity("eigenvalues", `E-fermi[^\n]*\n([\s\S]+?)\n[ \t]*-{40,}`, grammar.WithSub(eigenvalueGrammar)),
	grammar.NewQuantity("lattice_vectors",
		`direct lattice vectors[^\n]*\n((?:[ \t]*`+reFloat+`[ \t]+`+reFloat+`[ \t]+`+reFloat+`[^\n]*\n){3})`,
		grammar.WithTransform(leadingColumns(3)), grammar.WithUnit(units.Angstrom)),
	grammar.NewQuantity("positions_forces",
		`POSITION\s+TOTAL-FORCE \(eV/Angst\)\s*\n[ \t]*-+[ \t]*\n((?:[ \t]*`+reFloat+`(?:[ \t]+`+reFloat+`){5}[ \t]*\n)+)`,
		grammar.WithTransform(grammar.NumericRows(6))),
	grammar.NewQuantity("energies", `FREE ENERGIE OF THE ION-ELECTRON SYSTEM \(eV\)([\s\S]+)`, grammar.WithSub(energyGrammar)),
)

// OutcarGrammar reads OUTCAR.
var OutcarGrammar = grammar.MustNew(
	grammar.NewQuantity("version", `(?m)^\s*vasp\.(\S+)`),
	grammar.NewQuantity("subversion", `(?m)^\s*vasp\.\S+\s+\((build [^)]+)\)`),
	grammar.NewQuantity("platform", `executed on\s+(\S+)`),
	grammar.NewQuantity("species", `VRHFIN\s*=\s*(\w+)\s*:`, grammar.Repeats()),
	grammar.NewQuantity("ions_per_type", `ions per type\s*=\s*([\d \t]+)`, grammar.WithDType(grammar.DTypeInts)),
	grammar.NewQuantity("parameters", `(Dimension of arrays:[\s\S]+?)-+\s*Iteration\s+1\s*\(`, grammar.WithSub(parametersGrammar)),
	grammar.NewQuantity("calculation",
		`((?:E-fermi|VOLUME and BASIS-vectors are now)[\s\S]+?energy\(sigma->0\)\s*=\s*`+reFloat+`)`,
		grammar.Repeats(), grammar.WithSub(calculationGrammar)),
)

// leadingColumns keeps the first n numbers of each numeric row. OUTCAR prints
// the direct and reciprocal lattice vectors side by side.
func leadingColumns(n int) grammar.TransformFunc {
	rows := grammar.NumericRows(0)

	return func(text string) (any, error) {
		v, err := rows(text)
		if err != nil {
			return nil, err
		}

		all, _ := v.([][]float64)
		out := make([][]float64, 0, len(all))

		for _, r := range all {
			if len(r) < n {
				return nil, fmt.Errorf("row with %d columns, want %d", len(r), n)
			}

			out = append(out, r[:n])
		}

		return out, nil
	}
}
