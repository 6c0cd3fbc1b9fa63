package exciting

import (
	"fmt"
	"regexp"
	"strings"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/numeric"
	"simulation-parsers/internal/units"
)

const reFloat = `[-+]?\d+\.\d*(?:[Ee][-+]\d+)?`

var reSymbol = regexp.MustCompile(`([A-Z][a-z]?)`)

// keyed is a "label : value" line of the initialization block.
type keyed struct {
	name  string
	label string
	unit  string
	dtype grammar.DType
}

var systemKeys = []keyed{
	{"x_exciting_unit_cell_volume", `Unit cell volume`, "bohr^3", grammar.DTypeFloat},
	{"x_exciting_brillouin_zone_volume", `Brillouin zone volume`, "1/bohr^3", grammar.DTypeFloat},
	{"x_exciting_number_of_atoms", `Total number of atoms per unit cell`, "", grammar.DTypeInt},
	{"x_exciting_spin_treatment", `Spin treatment`, "", grammar.DTypeString},
	{"x_exciting_number_of_bravais_lattice_symmetries", `Number of Bravais lattice symmetries`, "", grammar.DTypeInt},
	{"x_exciting_number_of_crystal_symmetries", `Number of crystal symmetries`, "", grammar.DTypeInt},
	{"kpoint_grid", `k\-point grid`, "", grammar.DTypeInts},
	{"kpoint_offset", `k\-point offset`, "", grammar.DTypeFloats},
	{"x_exciting_number_kpoints", `Total number of k\-points`, "", grammar.DTypeInt},
	{"x_exciting_rgkmax", `R\^MT\_min \* \|G\+k\|\_max \(rgkmax\)`, "", grammar.DTypeFloat},
	{"x_exciting_species_rtmin", `Species with R\^MT\_min`, "", grammar.DTypeString},
	{"x_exciting_gkmax", `Maximum \|G\+k\| for APW functions`, units.InverseBohr, grammar.DTypeFloat},
	{"x_exciting_gmaxvr", `Maximum \|G\| for potential and density`, units.InverseBohr, grammar.DTypeFloat},
	{"x_exciting_gvector_size", `G\-vector grid sizes`, "", grammar.DTypeInts},
	{"x_exciting_gvector_total", `Total number of G\-vectors`, "", grammar.DTypeInt},
	{"x_exciting_lmaxapw", `   APW functions`, "", grammar.DTypeInt},
	{"x_exciting_nuclear_charge", `Total nuclear charge`, units.Charge, grammar.DTypeFloat},
	{"x_exciting_electronic_charge", `Total electronic charge`, units.Charge, grammar.DTypeFloat},
	{"x_exciting_core_charge_initial", `Total core charge`, units.Charge, grammar.DTypeFloat},
	{"x_exciting_valence_charge_initial", `Total valence charge`, units.Charge, grammar.DTypeFloat},
	{"x_exciting_wigner_radius", `Effective Wigner radius, r\_s`, units.Bohr, grammar.DTypeFloat},
	{"x_exciting_empty_states", `Number of empty states`, "", grammar.DTypeInt},
	{"x_exciting_valence_states", `Total number of valence states`, "", grammar.DTypeInt},
	{"x_exciting_hamiltonian_size", `Maximum Hamiltonian size`, "", grammar.DTypeInt},
	{"x_exciting_pw", `Maximum number of plane\-waves`, "", grammar.DTypeInt},
	{"x_exciting_lo", `Total number of local\-orbitals`, "", grammar.DTypeInt},
	{"smearing_kind", `Smearing scheme`, "", grammar.DTypeString},
	{"smearing_width", `Smearing width`, units.Hartree, grammar.DTypeFloat},
}

var miscKeys = []keyed{
	{"x_exciting_gap", `Estimated fundamental gap`, units.Hartree, grammar.DTypeFloat},
	{"time_physical", `Wall time \(seconds\)`, units.Second, grammar.DTypeFloat},
}

var convergenceKeys = []keyed{
	{"x_exciting_effective_potential_convergence", `RMS change in effective potential \(target\)`, units.Hartree, 0},
	{"x_exciting_energy_convergence", `Absolute change in total energy\s*\(target\)`, units.Hartree, 0},
	{"x_exciting_charge_convergence", `Charge distance\s*\(target\)`, units.Charge, 0},
	{"x_exciting_IBS_force_convergence", `Abs\. change in max\-nonIBS\-force\s*\(target\)`, units.HartreePerBohr, 0},
}

func keyedQuantities(keys []keyed, pattern string, extra ...grammar.Option) []*grammar.Quantity {
	out := make([]*grammar.Quantity, 0, len(keys))

	for _, k := range keys {
		opts := append([]grammar.Option{grammar.WithDType(k.dtype)}, extra...)
		if k.unit != "" {
			opts = append(opts, grammar.WithUnit(k.unit))
		}

		out = append(out, grammar.NewQuantity(k.name, fmt.Sprintf(pattern, k.label), opts...))
	}

	return out
}

// positionsGrammar reads an "Atomic positions (lattice)" block; prefix is
// the text in front of "atomic positions".
func positionsGrammar(prefix string) *grammar.Grammar {
	return grammar.MustNew(
		grammar.NewQuantity("positions_format", prefix+`\s*\(([a-z]+)\)`),
		grammar.NewQuantity("symbols", `atom\s*\d+\s*(\w+)`, grammar.Repeats()),
		grammar.NewQuantity("positions", `\s*:\s*([\d\.\-]+\s*[\d\.\-]+\s*[\d\.\-]+)`, grammar.Repeats(), grammar.WithDType(grammar.DTypeFloats)),
	)
}

var speciesGrammar = grammar.MustNew(
	grammar.NewQuantity("number", `Species : *(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("symbol", `\((\w+)\)`),
	grammar.NewQuantity("file", `parameters loaded from *: *(.+)`),
	grammar.NewQuantity("name", `name *: *(.+)`),
	grammar.NewQuantity("nuclear_charge", `nuclear charge *: *(`+reFloat+`)`, grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Charge)),
	grammar.NewQuantity("electronic_charge", `electronic charge *: *(`+reFloat+`)`, grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Charge)),
	grammar.NewQuantity("atomic_mass", `atomic mass *: *(`+reFloat+`)`, grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit("electron_mass")),
	grammar.NewQuantity("muffin_tin_radius", `muffin-tin radius *: *(`+reFloat+`)`, grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Bohr)),
	grammar.NewQuantity("radial_points", `radial points in muffin-tin *: *(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("positions_format", `atomic positions \((.+?)\)`),
	grammar.NewQuantity("positions", `\d+ : *(`+reFloat+`) *(`+reFloat+`) *(`+reFloat+`)`, grammar.Repeats(), grammar.WithDType(grammar.DTypeFloat)),
)

var xcGrammar = grammar.MustNew(
	grammar.NewQuantity("type", `Exchange-correlation type +: +(\S+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("name_reference", `\n *(.+?,.+)`, grammar.WithTransform(grammar.SplitTrim(":"))),
	grammar.NewQuantity("parameters", `\n *(.+?:.+)`, grammar.Repeats(), grammar.WithTransform(grammar.SplitTrim(":"))),
)

var initializationGrammar = grammar.MustNew(initializationQuantities()...)

func initializationQuantities() []*grammar.Quantity {
	qs := []*grammar.Quantity{
		grammar.NewQuantity("lattice_vectors", `Lattice vectors\s*[\(cartesian\)]*\s*:\s*([\-0-9\.\s]+)\n`,
			grammar.WithTransform(grammar.FloatBlock), grammar.WithUnit(units.Bohr)),
		grammar.NewQuantity("lattice_vectors_reciprocal", `Reciprocal lattice vectors\s*[\(cartesian\)]*\s*:\s*([\-0-9\.\s]+)\n`,
			grammar.WithTransform(grammar.FloatBlock), grammar.WithUnit(units.InverseBohr)),
		grammar.NewQuantity("species", `(Species : *\d+ *\(\w+\)[\s\S]+?`+reFloat+` *`+reFloat+` *`+reFloat+`\n\s*\n)`,
			grammar.Repeats(), grammar.WithSub(speciesGrammar)),
		grammar.NewQuantity("xc_functional", `(Exchange-correlation type[\s\S]+?\n *\n)`, grammar.WithSub(xcGrammar)),
	}

	return append(qs, keyedQuantities(systemKeys, `%s\s*:\s*([^\n]*?)\n`)...)
}

var scfGrammar = grammar.MustNew(scfQuantities()...)

func scfQuantities() []*grammar.Quantity {
	qs := []*grammar.Quantity{
		grammar.NewQuantity("energy_total", `[Tt]*otal energy\s*:\s*([\-\d\.Ee]+)`,
			grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Hartree)),
		grammar.NewQuantity("energy_contributions", `(?:Energies|_)([\+\-\s\w\.\:]+?)\n *(?:DOS|Density)`,
			grammar.WithTransform(grammar.KeyValueFloats(units.Hartree))),
		grammar.NewQuantity("x_exciting_dos_fermi", `DOS at Fermi energy \(states\/Ha\/cell\)\s*:\s*([\-\d\.Ee]+)`,
			grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.InverseHartree)),
		grammar.NewQuantity("charge_contributions", `(?:Charges|Electron charges\s*\:*\s*)([\-\s\w\.\:\(\)]+?)\n *[A-Z\+]`,
			grammar.WithTransform(atomProperties)),
		grammar.NewQuantity("moment_contributions", `(?:Moments\s*\:*\s*)([\-\s\w\.\:\(\)]+?)\n *[A-Z\+]`,
			grammar.WithTransform(atomProperties)),
	}

	qs = append(qs, keyedQuantities(miscKeys, `%s\s*\:*\s*([\-\d\.Ee]+)`)...)

	return append(qs, keyedQuantities(convergenceKeys, `%s\s*\:*\s*([\(\)\d\.\-\+Ee ]+)`,
		grammar.WithTransform(grammar.StripParentheses))...)
}

const forcesPattern = `Total atomic forces including IBS \(\w+\)\s*\:(\s*atom[\-\s\w\.\:]*?)\n *`

var moduleGrammar = grammar.MustNew(
	grammar.NewQuantity("scf_iteration", `(?:I| i)teration number :([\s\S]+?)(?:\n *\n\+{10}|\+\-{10})`,
		grammar.Repeats(), grammar.WithSub(scfGrammar)),
	grammar.NewQuantity("final", `(?:Convergence targets achieved\. Performing final SCF iteration|Reached self-consistent loops maximum)([\s\S]+?)(\n *\n\+{10})`,
		grammar.WithSub(scfGrammar)),
	grammar.NewQuantity("atomic_positions", `(Atomic positions\s*\([\s\S]+?)\n\n`, grammar.WithSub(positionsGrammar(`Atomic positions`))),
	grammar.NewQuantity("forces", forcesPattern+`Atomic`, grammar.WithTransform(grammar.FloatBlock), grammar.WithUnit(units.HartreePerBohr)),
)

var optimizationStepGrammar = grammar.MustNew(
	grammar.NewQuantity("atomic_positions", `(Atomic positions at this step\s*\([\s\S]+?)\n\n`,
		grammar.WithSub(positionsGrammar(`Atomic positions at this step`))),
	grammar.NewQuantity("forces", forcesPattern+`Time`, grammar.WithTransform(grammar.FloatBlock), grammar.WithUnit(units.HartreePerBohr)),
	grammar.NewQuantity("step", `Optimization step\s*(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("method", `method\s*=\s*(\w+)`),
	grammar.NewQuantity("n_scf_iterations", `Number of (?:total)* scf iterations\s*\:\s*(\d+)`, grammar.WithDType(grammar.DTypeInt)),
	grammar.NewQuantity("force_convergence", `Maximum force magnitude\s*\(target\)\s*\:(\s*[\(\)\d\.\-\+Ee ]+)`,
		grammar.WithTransform(grammar.StripParentheses), grammar.WithUnit(units.HartreePerBohr)),
	grammar.NewQuantity("energy_total", `Total energy at this optimization step\s*\:\s*([\-\d\.Ee]+)`,
		grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Hartree)),
	grammar.NewQuantity("time_calculation", `Time spent in this optimization step\s*\:\s*([\-\d\.Ee]+)\s*seconds`,
		grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Second)),
)

var optimizationGrammar = grammar.MustNew(
	grammar.NewQuantity("optimization_step", `(Optimization step\s*\d+[\s\S]+?(?:\n *\n\-{10}|Time spent in this optimization step\s*:\s*[\d\.]+ seconds))`,
		grammar.Repeats(), grammar.WithSub(optimizationStepGrammar)),
	grammar.NewQuantity("final", `Force convergence target achieved([\s\S]+?Opt)`, grammar.WithSub(scfGrammar)),
	grammar.NewQuantity("atomic_positions", `(imized atomic positions\s*\([\s\S]+?)\n\n`,
		grammar.WithSub(positionsGrammar(`imized atomic positions`))),
	grammar.NewQuantity("forces", forcesPattern+`Atomic`, grammar.WithTransform(grammar.FloatBlock), grammar.WithUnit(units.HartreePerBohr)),
)

// InfoGrammar reads INFO.OUT.
var InfoGrammar = grammar.MustNew(
	grammar.NewQuantity("program_version", `\s*EXCITING\s*([\w\-\(\)\. ]+)\s*started`),
	grammar.NewQuantity("hash_id", `version hash id: +(\S+)`),
	grammar.NewQuantity("initialization", `(?:All units are atomic|Starting initialization)([\s\S]+?)(?:Using|Ending initialization)`,
		grammar.WithSub(initializationGrammar)),
	grammar.NewQuantity("potential_mixing", `Using ([\w ]+) potential mixing`),
	grammar.NewQuantity("groundstate", `(?:Self\-consistent loop started|Groundstate module started)([\s\S]+?)Groundstate module stopped`,
		grammar.WithSub(moduleGrammar)),
	grammar.NewQuantity("structure_optimization", `Structure\-optimization module started([\s\S]+?)Structure\-optimization module stopped`,
		grammar.WithSub(optimizationGrammar)),
	grammar.NewQuantity("hybrids", `Hybrids module started([\s\S]+?)Hybrids module stopped`, grammar.WithSub(moduleGrammar)),
	grammar.NewQuantity("total_time", ` Total time spent \(seconds\) +: +([\d\.]+)`, grammar.WithDType(grammar.DTypeFloat), grammar.WithUnit(units.Second)),
)

// EigvalGrammar reads EIGVAL.OUT. Each k-point block is split into spin
// channels with tolerance, see SpinChannels.
func EigvalGrammar(tolerance float64) *grammar.Grammar {
	return grammar.MustNew(
		grammar.NewQuantity("k_points", `\s*\d+\s*([\d\.Ee\-\+ ]+):\s*k\-point`, grammar.Repeats(), grammar.WithDType(grammar.DTypeFloats)),
		grammar.NewQuantity("eigenvalues_occupancies", `\(state\, eigenvalue and occupancy below\)\s*([\d\.Ee\-\+\s]+?(?:\n *\n))`,
			grammar.Repeats(), grammar.WithTransform(eigenvalueBlock(tolerance))),
		grammar.NewQuantity("n_k_points", `(\d+) +\: +nkpt`, grammar.WithDType(grammar.DTypeInt)),
		grammar.NewQuantity("n_states", `(\d+) +\: +nstsv`, grammar.WithDType(grammar.DTypeInt)),
	)
}

// SpinChannels returns the number of spin channels of a block of
// occupations: 1 when any state holds more than 1+tolerance electrons, 2
// otherwise. This is an approximation: a spin-unpolarised block whose
// occupancies never exceed 1+tolerance is reported as two channels.
func SpinChannels(occupations []float64, tolerance float64) int {
	for _, o := range occupations {
		if o > 1+tolerance {
			return 1
		}
	}

	return 2
}

// eigenvalueBlock reads "state eigenvalue occupancy" rows into eigenvalues
// and occupancies of shape (n_spin, n_states/n_spin).
func eigenvalueBlock(tolerance float64) grammar.TransformFunc {
	return func(text string) (any, error) {
		var rows [][]float64

		for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}

			row, err := grammar.ParseFloats(line)
			if err != nil {
				return nil, err
			}

			rows = append(rows, row)
		}

		cols, err := numeric.Transpose(rows)
		if err != nil {
			return nil, err
		}

		if len(cols) < 2 {
			return nil, fmt.Errorf("%w: need eigenvalue and occupancy columns", numeric.ErrShape)
		}

		occs, eigs := cols[len(cols)-1], cols[len(cols)-2]
		nspin := SpinChannels(occs, tolerance)

		occupancies, err := numeric.Reshape(occs, nspin, len(occs)/nspin)
		if err != nil {
			return nil, err
		}

		eigenvalues, err := numeric.Reshape(eigs, nspin, len(eigs)/nspin)
		if err != nil {
			return nil, err
		}

		return grammar.Record{"eigenvalues": eigenvalues, "occupancies": occupancies}, nil
	}
}

// atomProperties reads a charge or moment block: totals by name and the
// atom resolved values under "atom_resolved".
func atomProperties(text string) (any, error) {
	unit := ""

	switch {
	case strings.Contains(text, "charge"):
		unit = units.Charge
	case strings.Contains(text, "moment"):
		unit = units.Charge + "*" + units.Bohr
	}

	props := grammar.Record{}
	resolved := []any{}
	species := ""

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		parts := strings.Split(strings.TrimSpace(line), ":")
		if len(parts) < 2 {
			continue
		}

		head := strings.TrimSpace(parts[0])

		switch {
		case strings.HasPrefix(head, "species"):
			if m := reSymbol.FindStringSubmatch(parts[len(parts)-1]); m != nil {
				species = m[1]
			}
		case strings.HasPrefix(head, "atom"):
			vals, err := grammar.ParseFloats(parts[1])
			if err != nil {
				return nil, err
			}

			if fields := strings.Fields(head); species == "" && len(fields) > 2 {
				species = fields[2]
			}

			var v any = vals
			if len(vals) == 1 {
				v = vals[0]
			}

			resolved = append(resolved, grammar.Record{"species": species, "value": units.New(v, unit)})
		default:
			vals, err := grammar.ParseFloats(parts[1])
			if err != nil {
				return nil, err
			}

			props[head] = units.New(vals, unit)
		}
	}

	props["atom_resolved"] = resolved

	return props, nil
}
