package vasp

import (
	"fmt"
	"sort"
	"strings"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/numeric"
	"simulation-parsers/internal/readers"
	"simulation-parsers/internal/xmltree"
)

// xcFunctionals maps the GGA tag to libxc components. "--" is the LDA
// default of VASP.
var xcFunctionals = map[string][]string{
	"--": {"LDA_C_PZ", "LDA_X"},
	"PE": {"GGA_C_PBE", "GGA_X_PBE"},
	"PS": {"GGA_C_PBE_SOL", "GGA_X_PBE_SOL"},
	"RP": {"GGA_C_PBE", "GGA_X_RPBE"},
	"RE": {"GGA_C_PBE", "GGA_X_PBE_R"},
	"91": {"GGA_C_PW91", "GGA_X_PW91"},
	"AM": {"GGA_C_AM05", "GGA_X_AM05"},
}

// Transforms returns the functions callable from the VASP rules. They accept
// both vasprun.xml records and OUTCAR records.
func Transforms() *mapping.TransformRegistry {
	r := mapping.NewTransformRegistry()

	r.MustRegister("mix_alpha", "exact exchange fraction when hybrid functionals are on", mixAlpha)
	r.MustRegister("get_xc_functionals", "libxc components of the GGA tag", getXCFunctionals)
	r.MustRegister("get_eigenvalues", "eigenvalues and occupations by spin, k-point and band", getEigenvalues)
	r.MustRegister("get_energy_contributions", "named energy terms", getEnergyContributions)
	r.MustRegister("get_data", "text value of a record or the value at a path", getData)
	r.MustRegister("get_forces", "forces with point count and rank", getForces)
	r.MustRegister("get_positions", "cartesian positions of a structure", getPositions)
	r.MustRegister("get_varray", "rows of a named varray", getVarray)
	r.MustRegister("get_atom_labels", "chemical symbols from species and counts", getAtomLabels)
	r.MustRegister("get_dos", "total DOS per spin with projected DOS per ion", getDOS)

	return r
}

// first returns the first element of a projected path result, or v.
func first(v any) any {
	if list, ok := mapping.AsList(v); ok {
		if _, vec := v.([]float64); vec {
			return v
		}

		if len(list) == 0 {
			return nil
		}

		return list[0]
	}

	return v
}

// parseBool reads VASP logicals: T, F, .TRUE., .FALSE.
func parseBool(v any) bool {
	switch x := first(v).(type) {
	case bool:
		return x
	case string:
		s := strings.ToUpper(strings.Trim(strings.TrimSpace(x), "."))
		return s == "T" || s == "TRUE"
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := readers.Magnitude(first(v)).(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func mixAlpha(args []any, kwargs map[string]any) (any, error) {
	mix, ok := toFloat(mapping.Arg(args, kwargs, 0, "mix"))
	if !ok {
		return nil, nil
	}

	if !parseBool(mapping.Arg(args, kwargs, 1, "cond")) {
		return 0.0, nil
	}

	return mix, nil
}

// getXCFunctionals resolves the GGA tag. With LHFCALC on, PBE becomes PBE0
// style: the exchange is split between GGA_X_PBE and HF_X by AEXX.
func getXCFunctionals(args []any, kwargs map[string]any) (any, error) {
	tag, _ := first(mapping.Arg(args, kwargs, 0, "gga")).(string)
	tag = strings.ToUpper(strings.TrimSpace(tag))

	if tag == "" {
		tag = "--"
	}

	names, ok := xcFunctionals[tag]
	if !ok {
		return nil, nil
	}

	hybrid := parseBool(kwargs["lhfcalc"])
	exx, ok := toFloat(kwargs["aexx"])

	if !ok {
		exx = 0.25
	}

	var out []any

	for _, name := range names {
		rec := grammar.Record{"name": name}
		if hybrid && strings.Contains(name, "_X_") {
			rec["weight"] = 1 - exx
		}

		out = append(out, rec)
	}

	if hybrid {
		out = append(out, grammar.Record{"name": "HF_X", "weight": exx})
	}

	return out, nil
}

func sortedKeys(rec grammar.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// rows converts a vector or a list of vectors into rows.
func rows(v any) ([][]float64, error) {
	switch x := readers.Magnitude(v).(type) {
	case nil:
		return nil, nil
	case []float64:
		return [][]float64{x}, nil
	case []int:
		row := make([]float64, len(x))
		for i, n := range x {
			row[i] = float64(n)
		}

		return [][]float64{row}, nil
	default:
		return numeric.Matrix(x)
	}
}

// varray returns the rows of the varray child called name.
func varray(source grammar.Record, name string) ([][]float64, error) {
	for _, va := range readers.Records(source["varray"]) {
		if va[xmltree.AttrPrefix+"name"] == name {
			return rows(va["v"])
		}
	}

	return nil, nil
}

// getVarray returns the rows of a named varray, or one column of them with
// the column keyword.
func getVarray(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))
	name, _ := mapping.Arg(args, kwargs, 1, "name").(string)

	out, err := varray(source, name)
	if err != nil || out == nil {
		return nil, err
	}

	col, ok := kwargs["column"].(int)
	if !ok {
		return out, nil
	}

	column := make([]float64, 0, len(out))

	for _, r := range out {
		if col >= len(r) {
			return nil, fmt.Errorf("%w: column %d of %d", numeric.ErrShape, col, len(r))
		}

		column = append(column, r[col])
	}

	return column, nil
}

// getData returns the text value of an XML record, or the value at path
// from it.
func getData(args []any, kwargs map[string]any) (any, error) {
	source := mapping.Arg(args, kwargs, 0, "source")

	rec, ok := source.(grammar.Record)
	if !ok {
		return source, nil
	}

	if v, ok := rec[xmltree.ValueKey]; ok && v != nil {
		return v, nil
	}

	path, _ := kwargs["path"].(string)
	if path == "" {
		return nil, nil
	}

	expr, err := mapping.ParseExpr(path)
	if err != nil {
		return nil, err
	}

	env := &mapping.Env{Root: rec}

	return env.Eval(expr, rec)
}

// getEnergyContributions lists the energy terms of a vasprun.xml energy
// block (its "i" elements) or an OUTCAR energies record, without the exclude
// names.
func getEnergyContributions(args []any, kwargs map[string]any) (any, error) {
	source := mapping.Arg(args, kwargs, 0, "source")

	exclude := map[string]bool{}
	for _, name := range mapping.StringsArg(kwargs, "exclude") {
		exclude[name] = true
	}

	var out []any

	if rec, ok := source.(grammar.Record); ok && rec[xmltree.AttrPrefix+"name"] == nil {
		for _, name := range sortedKeys(rec) {
			if !exclude[name] {
				out = append(out, grammar.Record{"name": name, "value": rec[name]})
			}
		}

		return out, nil
	}

	for _, el := range readers.Records(source) {
		name, _ := el[xmltree.AttrPrefix+"name"].(string)
		if name == "" || exclude[name] {
			continue
		}

		out = append(out, grammar.Record{"name": name, "value": el[xmltree.ValueKey]})
	}

	return out, nil
}

// getForces reads the forces of a vasprun.xml calculation or an OUTCAR
// ionic step.
func getForces(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	var (
		forces [][]float64
		err    error
	)

	if pf, ok := source["positions_forces"]; ok {
		forces, err = columns(pf, 3, 6)
	} else {
		forces, err = varray(source, "forces")
	}

	if err != nil || len(forces) == 0 {
		return nil, err
	}

	return grammar.Record{"forces": forces, "n_points": len(forces), "rank": []int{3}}, nil
}

// getPositions returns cartesian positions. vasprun.xml structures hold
// fractional positions and the lattice basis; OUTCAR prints cartesian
// positions next to the forces.
func getPositions(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	if pf, ok := source["positions_forces"]; ok {
		return columns(pf, 0, 3)
	}

	frac, err := varray(source, "positions")
	if err != nil || frac == nil {
		return nil, err
	}

	basis, err := varray(readers.Record(source["crystal"]), "basis")
	if err != nil {
		return nil, err
	}

	if basis == nil {
		return nil, fmt.Errorf("fractional positions without a lattice basis")
	}

	return numeric.Cartesian(basis, frac)
}

func columns(v any, from, to int) ([][]float64, error) {
	all, err := rows(v)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(all))

	for i, r := range all {
		if len(r) < to {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", numeric.ErrShape, i, len(r), to)
		}

		out[i] = r[from:to]
	}

	return out, nil
}

// getAtomLabels expands species names by their ion counts.
func getAtomLabels(args []any, kwargs map[string]any) (any, error) {
	species, _ := mapping.AsList(mapping.Arg(args, kwargs, 0, "species"))

	counts, err := numeric.Flatten(mapping.Arg(args, kwargs, 1, "counts"))
	if err != nil {
		return nil, err
	}

	if len(species) != len(counts) {
		return nil, fmt.Errorf("%w: %d species for %d ion counts", numeric.ErrShape, len(species), len(counts))
	}

	var out []any

	for i, s := range species {
		for range int(counts[i]) {
			out = append(out, s)
		}
	}

	return out, nil
}

// getEigenvalues returns {eigenvalues, occupations} shaped (n_spin,
// n_k_points, n_bands) with the counts. The source is either the outer
// eigenvalue set of vasprun.xml or an OUTCAR eigenvalue record, which needs
// the parameters record for the number of spin channels.
func getEigenvalues(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))
	if len(source) == 0 {
		return nil, nil
	}

	var (
		blocks [][][][]float64
		err    error
	)

	if _, ok := source["set"]; ok {
		blocks, err = xmlEigenvalues(source)
	} else {
		params := readers.Record(mapping.Arg(args, kwargs, 1, "parameters"))
		blocks, err = outcarEigenvalues(source, params)
	}

	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		return nil, nil
	}

	nspin := len(blocks)
	nk := len(blocks[0])

	if nk == 0 {
		return nil, nil
	}

	nb := len(blocks[0][0])

	eig := make([][][]float64, nspin)
	occ := make([][][]float64, nspin)

	for s, spin := range blocks {
		if len(spin) != nk {
			return nil, fmt.Errorf("%w: spin channel %d has %d k-points, want %d", numeric.ErrShape, s, len(spin), nk)
		}

		eig[s] = make([][]float64, nk)
		occ[s] = make([][]float64, nk)

		for k, pairs := range spin {
			if len(pairs) != nb {
				return nil, fmt.Errorf("%w: k-point %d has %d bands, want %d", numeric.ErrShape, k, len(pairs), nb)
			}

			cols, err := numeric.Transpose(pairs)
			if err != nil {
				return nil, err
			}

			if len(cols) < 2 {
				return nil, fmt.Errorf("%w: k-point %d rows have %d columns", numeric.ErrShape, k, len(cols))
			}

			eig[s][k], occ[s][k] = cols[0], cols[1]
		}
	}

	out := grammar.Record{
		"eigenvalues": eig,
		"occupations": occ,
		"n_spin":      nspin,
		"n_points":    nk,
		"n_bands":     nb,
	}

	if kpts, err := rows(source["kpoints"]); err == nil && len(kpts) >= nk {
		out["k_points"] = kpts[:nk]
	}

	return out, nil
}

// xmlEigenvalues walks set (spin) > set (k-point) > r (band) rows of
// [eigenvalue, occupation].
func xmlEigenvalues(outer grammar.Record) ([][][][]float64, error) {
	var out [][][][]float64

	for s, spin := range readers.Records(outer["set"]) {
		var kpts [][][]float64

		for k, kpt := range readers.Records(spin["set"]) {
			r, err := rows(kpt["r"])
			if err != nil {
				return nil, fmt.Errorf("spin %d k-point %d: %w", s+1, k+1, err)
			}

			kpts = append(kpts, r)
		}

		out = append(out, kpts)
	}

	return out, nil
}

// outcarEigenvalues splits the band rows of OUTCAR into spin channels and
// k-points. Spin channels are printed one after the other.
func outcarEigenvalues(source, params grammar.Record) ([][][][]float64, error) {
	pairs, err := rows(source["band_occupation"])
	if err != nil || len(pairs) == 0 {
		return nil, err
	}

	nspin := 1
	if v, ok := params["ispin"].(int); ok && v > 0 {
		nspin = v
	}

	kpts, _ := mapping.AsList(source["kpoints"])
	if len(kpts) == 0 || len(kpts)%nspin != 0 {
		return nil, fmt.Errorf("%w: %d k-point headers for %d spin channels", numeric.ErrShape, len(kpts), nspin)
	}

	nk := len(kpts) / nspin
	if len(pairs)%(nk*nspin) != 0 {
		return nil, fmt.Errorf("%w: %d bands for %d k-points and %d spin channels", numeric.ErrShape, len(pairs), nk, nspin)
	}

	nb := len(pairs) / (nk * nspin)
	out := make([][][][]float64, nspin)

	for s := range out {
		out[s] = make([][][]float64, nk)
		for k := range nk {
			start := (s*nk + k) * nb
			out[s][k] = pairs[start : start+nb]
		}
	}

	return out, nil
}

// getDOS reads the dos element of vasprun.xml: one record per spin channel
// with the total DOS and the DOS of each ion and orbital.
func getDOS(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	total := readers.Record(readers.Record(readers.Record(source["total"])["array"])["set"])

	var out []any

	for s, spin := range readers.Records(total["set"]) {
		r, err := rows(spin["r"])
		if err != nil {
			return nil, fmt.Errorf("total DOS spin %d: %w", s+1, err)
		}

		cols, err := numeric.Transpose(r)
		if err != nil {
			return nil, err
		}

		if len(cols) < 2 {
			return nil, fmt.Errorf("%w: total DOS has %d columns", numeric.ErrShape, len(cols))
		}

		projected, err := partialDOS(readers.Record(source["partial"]), s)
		if err != nil {
			return nil, err
		}

		rec := grammar.Record{
			"spin":       s,
			"energies":   cols[0],
			"n_energies": len(cols[0]),
			"values":     cols[1],
		}

		if len(projected) > 0 {
			rec["projected_dos"] = projected
		}

		out = append(out, rec)
	}

	return out, nil
}

// partialDOS returns the profiles of spin channel s: set (ion) > set (spin)
// > r rows of [energy, orbitals...]. Orbital names come from the field
// elements.
func partialDOS(partial grammar.Record, s int) ([]any, error) {
	array := readers.Record(partial["array"])
	if len(array) == 0 {
		return nil, nil
	}

	fields, _ := mapping.AsList(array["field"])

	var out []any

	for ion, rec := range readers.Records(readers.Record(array["set"])["set"]) {
		spins := readers.Records(rec["set"])
		if s >= len(spins) {
			continue
		}

		r, err := rows(spins[s]["r"])
		if err != nil {
			return nil, fmt.Errorf("partial DOS ion %d: %w", ion+1, err)
		}

		cols, err := numeric.Transpose(r)
		if err != nil {
			return nil, err
		}

		for j := 1; j < len(cols); j++ {
			name := fmt.Sprintf("atom %d", ion+1)
			if j < len(fields) {
				field := fields[j]
				if rec, ok := field.(grammar.Record); ok {
					field = rec[xmltree.ValueKey]
				}

				name = fmt.Sprintf("%s %v", name, field)
			}

			out = append(out, grammar.Record{"name": name, "values": cols[j]})
		}
	}

	return out, nil
}
