package exciting

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/numeric"
	"simulation-parsers/internal/readers"
	"simulation-parsers/internal/units"
	"simulation-parsers/internal/xmltree"
)

// xcFunctionals maps the exciting xc type code to libxc names.
var xcFunctionals = map[int][]string{
	2:   {"LDA_C_PZ", "LDA_X_PZ"},
	3:   {"LDA_C_PW", "LDA_X_PZ"},
	4:   {"LDA_C_XALPHA"},
	5:   {"LDA_C_VBH"},
	20:  {"GGA_C_PBE", "GGA_X_PBE"},
	21:  {"GGA_C_PBE", "GGA_X_PBE_R"},
	22:  {"GGA_C_PBE_SOL", "GGA_X_PBE_SOL"},
	26:  {"GGA_C_PBE", "GGA_X_WC"},
	30:  {"GGA_C_AM05", "GGA_C_AM05"},
	300: {"GGA_C_BGCP", "GGA_X_PBE"},
	406: {"HYB_GGA_XC_PBEH"},
	408: {"HYB_GGA_XC_HSE03"},
}

// xcTypes maps the xctype attribute of input.xml to the xc type code.
var xcTypes = map[string]int{
	"LDA_PZ":      2,
	"LDA_PW":      3,
	"LDA_XALPHA":  4,
	"LDA_VBH":     5,
	"GGA_PBE":     20,
	"GGA_PBE_R":   21,
	"GGA_PBE_SOL": 22,
	"GGA_WC":      26,
	"GGA_AM05":    30,
	"GGA_AC":      300,
	"HYB_PBE0":    406,
	"HYB_HSE":     408,
}

// XCFunctionalNames returns the libxc names of an xc type code, nil for an
// unknown code.
func XCFunctionalNames(code int) []string {
	return append([]string(nil), xcFunctionals[code]...)
}

// Transforms returns the functions callable from the exciting rules.
func Transforms() *mapping.TransformRegistry {
	r := mapping.NewTransformRegistry()

	r.MustRegister("get_xc_functionals", "libxc components of an xc type code", getXCFunctionals)
	r.MustRegister("get_input_xc_functionals", "libxc components of the input.xml groundstate", getInputXCFunctionals)
	r.MustRegister("get_configurations", "groundstate, hybrids and optimization steps", getConfigurations)
	r.MustRegister("get_atoms", "cartesian positions and atoms of a configuration", getAtoms)
	r.MustRegister("get_forces", "forces with point count and rank", getForces)
	r.MustRegister("get_energy_contributions", "named energy terms", getEnergyContributions)
	r.MustRegister("get_eigenvalues", "EIGVAL.OUT blocks stacked by spin channel", getEigenvalues)
	r.MustRegister("get_bandstructures", "band energies per spin channel", getBandStructures)
	r.MustRegister("reshape_coords", "coordinate strings to rows", reshapeCoords)
	r.MustRegister("to_float", "numbers of a sequence", toFloat)
	r.MustRegister("get_partial_dos", "one record per projected DOS diagram", getPartialDOS)
	r.MustRegister("dos_label", "name of a projected DOS diagram", dosLabel)

	return r
}

func getXCFunctionals(args []any, kwargs map[string]any) (any, error) {
	v := mapping.Arg(args, kwargs, 0, "type")
	if v == nil {
		return nil, nil
	}

	code, err := toInt(v)
	if err != nil {
		return nil, err
	}

	return libxcRecords(XCFunctionalNames(code)), nil
}

// getInputXCFunctionals reads the libxc element of input.xml; without it
// the xctype kwarg is looked up.
func getInputXCFunctionals(args []any, kwargs map[string]any) (any, error) {
	libxc, _ := mapping.Arg(args, kwargs, 0, "libxc").(grammar.Record)

	if len(libxc) == 0 {
		xctype, _ := kwargs["xctype"].(string)
		if code, ok := xcTypes[strings.ToUpper(xctype)]; ok {
			return libxcRecords(XCFunctionalNames(code)), nil
		}

		return nil, nil
	}

	keys := make([]string, 0, len(libxc))
	for k := range libxc {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]any, 0, len(keys))

	for _, k := range keys {
		if name, ok := libxc[k].(string); ok && name != "" {
			out = append(out, grammar.Record{"libxc": name, "type": strings.TrimPrefix(k, "@")})
		}
	}

	return out, nil
}

func libxcRecords(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = grammar.Record{"libxc": n}
	}

	return out
}

func getConfigurations(args []any, kwargs map[string]any) (any, error) {
	root := readers.Record(mapping.Arg(args, kwargs, 0, "root"))

	var out []any

	for _, key := range []string{"groundstate", "hybrids"} {
		if rec, ok := root[key].(grammar.Record); ok && len(rec) > 0 {
			out = append(out, rec)
		}
	}

	if opt, ok := root["structure_optimization"].(grammar.Record); ok && len(opt) > 0 {
		for _, step := range readers.Records(opt["optimization_step"]) {
			out = append(out, step)
		}

		out = append(out, opt)
	}

	return out, nil
}

// getAtoms returns the cartesian positions (bohr) and the atoms of a
// configuration. Positions and formats missing from the configuration are
// taken from the species of the initialization block.
func getAtoms(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))
	initial := readers.Record(kwargs["initialization"])
	species := readers.Records(initial["species"])

	lattice, err := latticeRows(initial["lattice_vectors"])
	if err != nil {
		return nil, err
	}

	var positions [][]float64

	if pos, ok := source["positions"]; ok {
		rows, err := numeric.Matrix(pos)
		if err != nil {
			return nil, fmt.Errorf("positions: %w", err)
		}

		format, _ := source["positions_format"].(string)
		if format == "" {
			format = speciesFormat(species)
		}

		if positions, err = cartesian(rows, format, lattice); err != nil {
			return nil, err
		}
	} else {
		for _, s := range species {
			rows, err := numeric.Matrix(s["positions"])
			if err != nil {
				continue
			}

			format, _ := s["positions_format"].(string)

			rows, err = cartesian(rows, format, lattice)
			if err != nil {
				return nil, fmt.Errorf("species %v: %w", s["symbol"], err)
			}

			positions = append(positions, rows...)
		}
	}

	var atoms []any

	for _, s := range species {
		atom := grammar.Record{}

		for k, v := range s {
			switch k {
			case "positions", "positions_format", "radial_points":
			default:
				atom[k] = v
			}
		}

		rows, _ := numeric.Matrix(s["positions"])
		for range rows {
			atoms = append(atoms, atom)
		}
	}

	if len(atoms) == 0 {
		symbols, _ := mapping.AsList(source["symbols"])
		for _, sym := range symbols {
			atoms = append(atoms, grammar.Record{"symbol": sym})
		}
	}

	out := grammar.Record{"atoms": atoms}
	if len(positions) > 0 {
		out["positions"] = units.New(positions, units.Bohr)
	}

	return out, nil
}

func latticeRows(v any) ([][]float64, error) {
	if v == nil {
		return nil, nil
	}

	q, ok := v.(units.Quantity)
	if ok && q.Unit != "" && q.Unit != units.Bohr {
		conv, err := q.To(units.Bohr)
		if err != nil {
			return nil, fmt.Errorf("lattice vectors: %w", err)
		}

		v = conv
	}

	return numeric.Matrix(readers.Magnitude(v))
}

func cartesian(rows [][]float64, format string, lattice [][]float64) ([][]float64, error) {
	if format != "lattice" {
		return rows, nil
	}

	if lattice == nil {
		return nil, fmt.Errorf("lattice positions without lattice vectors")
	}

	return numeric.Cartesian(lattice, rows)
}

func speciesFormat(species []grammar.Record) string {
	for _, s := range species {
		if f, ok := s["positions_format"].(string); ok && f != "" {
			return f
		}
	}

	return ""
}

func getForces(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	forces, ok := source["forces"]
	if !ok {
		return nil, nil
	}

	// a single atom is read as one row
	if _, ok := readers.Magnitude(forces).([]float64); ok {
		return grammar.Record{"forces": forces, "n_points": 1, "rank": []int{3}}, nil
	}

	rows, err := numeric.Matrix(readers.Magnitude(forces))
	if err != nil {
		return nil, err
	}

	return grammar.Record{"forces": forces, "n_points": len(rows), "rank": []int{3}}, nil
}

func getEnergyContributions(args []any, kwargs map[string]any) (any, error) {
	contribs := readers.Record(mapping.Arg(args, kwargs, 0, "contributions"))

	names := make([]string, 0, len(contribs))
	for k := range contribs {
		names = append(names, k)
	}

	sort.Strings(names)

	out := make([]any, 0, len(names))
	for _, n := range names {
		out = append(out, grammar.Record{"name": n, "value": contribs[n]})
	}

	return out, nil
}

// getEigenvalues stacks the per k-point blocks of EIGVAL.OUT into (n_spin,
// n_k_points, n_states) arrays.
func getEigenvalues(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))
	blocks := readers.Records(source["eigenvalues_occupancies"])

	if len(blocks) == 0 {
		return nil, nil
	}

	var eigs, occs [][][]float64

	for k, b := range blocks {
		e, eok := b["eigenvalues"].([][]float64)
		o, ook := b["occupancies"].([][]float64)

		if !eok || !ook {
			return nil, fmt.Errorf("k-point %d: eigenvalues and occupancies missing", k+1)
		}

		if eigs == nil {
			eigs = make([][][]float64, len(e))
			occs = make([][][]float64, len(o))
		}

		if len(e) != len(eigs) || len(o) != len(occs) {
			return nil, fmt.Errorf("%w: k-point %d has %d spin channels, want %d", numeric.ErrShape, k+1, len(e), len(eigs))
		}

		for s := range e {
			eigs[s] = append(eigs[s], e[s])
			occs[s] = append(occs[s], o[s])
		}
	}

	out := grammar.Record{
		"eigenvalues": eigs,
		"occupancies": occs,
		"n_spin":      len(eigs),
		"n_states":    len(eigs[0][0]),
		"n_k_points":  len(blocks),
	}

	if kpts, err := numeric.Matrix(source["k_points"]); err == nil {
		for i, row := range kpts {
			if len(row) > 3 {
				kpts[i] = row[:3]
			}
		}

		out["k_points"] = kpts
	}

	return out, nil
}

// getBandStructures reads bandstructure.xml: bands of points with an
// "@eval" energy. Bands are split evenly into n_spin channels (kwarg,
// default 1); energies are (n_kpoints, n_states) in hartree.
func getBandStructures(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))
	bs := readers.Record(source["bandstructure"])
	bands := readers.Records(bs["band"])

	if len(bands) == 0 {
		return nil, nil
	}

	nspin := 1
	if v, ok := kwargs["n_spin"]; ok && v != nil {
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}

		nspin = n
	}

	if nspin <= 0 || len(bands)%nspin != 0 {
		return nil, fmt.Errorf("%w: %d bands for %d spin channels", numeric.ErrShape, len(bands), nspin)
	}

	nkpts := len(readers.Records(bands[0]["point"]))

	var flat []float64

	for i, b := range bands {
		points := readers.Records(b["point"])
		if len(points) != nkpts {
			return nil, fmt.Errorf("%w: band %d has %d points, want %d", numeric.ErrShape, i+1, len(points), nkpts)
		}

		for _, p := range points {
			vals, err := numeric.Flatten(p["@eval"])
			if err != nil || len(vals) != 1 {
				return nil, fmt.Errorf("band %d: invalid eval %v", i+1, p["@eval"])
			}

			flat = append(flat, vals[0])
		}
	}

	nband := len(bands) / nspin

	energies, err := numeric.Reshape3(flat, nspin, nband, nkpts)
	if err != nil {
		return nil, err
	}

	out := make([]any, nspin)

	for s, e := range energies {
		t, err := numeric.Transpose(e)
		if err != nil {
			return nil, err
		}

		out[s] = grammar.Record{
			"energies":     units.New(t, units.Hartree),
			"n_states":     nband,
			"n_kpoints":    nkpts,
			"spin_channel": s,
		}
	}

	return out, nil
}

func reshapeCoords(args []any, kwargs map[string]any) (any, error) {
	v := mapping.Arg(args, kwargs, 0, "source")
	if v == nil {
		return nil, nil
	}

	return numeric.Matrix(v)
}

func toFloat(args []any, kwargs map[string]any) (any, error) {
	v := mapping.Arg(args, kwargs, 0, "source")
	if v == nil {
		return nil, nil
	}

	return numeric.Flatten(readers.Magnitude(v))
}

// getPartialDOS flattens the partialdos elements of dos.xml, one per atom,
// into one record per diagram. Each record carries the attributes of its
// partialdos (species, atom) overlaid by those of the diagram (l, m) and the
// diagram points.
func getPartialDOS(args []any, kwargs map[string]any) (any, error) {
	var out []any

	for _, atom := range readers.Records(mapping.Arg(args, kwargs, 0, "source")) {
		for _, diagram := range readers.Records(atom["diagram"]) {
			rec := grammar.Record{"point": diagram["point"]}

			for _, attrs := range []grammar.Record{atom, diagram} {
				for k, v := range attrs {
					if strings.HasPrefix(k, xmltree.AttrPrefix) {
						rec[k] = v
					}
				}
			}

			out = append(out, rec)
		}
	}

	if len(out) == 0 {
		return nil, nil
	}

	return out, nil
}

// dosLabel names a partial DOS diagram after its species, atom and
// angular momentum attributes.
func dosLabel(args []any, kwargs map[string]any) (any, error) {
	diagram := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	var parts []string

	for _, attr := range []string{"speciessym", "speciesrn", "atom", "l", "m"} {
		if v, ok := diagram["@"+attr]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", attr, v))
		}
	}

	if len(parts) == 0 {
		return nil, nil
	}

	return strings.Join(parts, " "), nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}

		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("%T is not an integer", v)
	}
}
