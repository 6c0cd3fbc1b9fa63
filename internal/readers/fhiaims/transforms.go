package fhiaims

import (
	"fmt"
	"sort"
	"strings"

	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/numeric"
	"simulation-parsers/internal/readers"
)

// gwFlags maps qpe_calc values to GW flavours.
var gwFlags = map[string]string{
	"gw":       "G0W0",
	"gw_expt":  "G0W0",
	"ev_scgw0": "ev-scGW",
	"ev_scgw":  "ev-scGW",
	"scgw":     "scGW",
}

// IsGW reports whether a qpe_calc value starts a GW calculation.
func IsGW(flag string) bool {
	_, ok := gwFlags[flag]
	return ok
}

// functional is one libxc component of an xc description. Hybrid exchange
// components carry a weight depending on the exact exchange fraction.
type functional struct {
	name   string
	weight func(exx float64) float64
}

func pbeWeight(exx float64) float64 { return 1 - exx }
func hfWeight(exx float64) float64  { return exx }

// xcFunctionals maps the xc description of aims.out to libxc components.
var xcFunctionals = []struct {
	description string
	components  []functional
}{
	{"Perdew-Wang parametrisation of Ceperley-Alder LDA", []functional{{name: "LDA_C_PW"}, {name: "LDA_X"}}},
	{"Perdew-Zunger parametrisation of Ceperley-Alder LDA", []functional{{name: "LDA_C_PZ"}, {name: "LDA_X"}}},
	{"VWN-LDA parametrisation of VWN5 form", []functional{{name: "LDA_C_VWN"}, {name: "LDA_X"}}},
	{"VWN-LDA parametrisation of VWN-RPA form", []functional{{name: "LDA_C_VWN_RPA"}, {name: "LDA_X"}}},
	{"AM05 gradient-corrected functionals", []functional{{name: "GGA_C_AM05"}, {name: "GGA_X_AM05"}}},
	{"BLYP functional", []functional{{name: "GGA_C_LYP"}, {name: "GGA_X_B88"}}},
	{"PBE gradient-corrected functionals", []functional{{name: "GGA_C_PBE"}, {name: "GGA_X_PBE"}}},
	{"PBEint gradient-corrected functional", []functional{{name: "GGA_C_PBEINT"}, {name: "GGA_X_PBEINT"}}},
	{"PBEsol gradient-corrected functionals", []functional{{name: "GGA_C_PBE_SOL"}, {name: "GGA_X_PBE_SOL"}}},
	{"RPBE gradient-corrected functionals", []functional{{name: "GGA_C_PBE"}, {name: "GGA_X_RPBE"}}},
	{"revPBE gradient-corrected functionals", []functional{{name: "GGA_C_PBE"}, {name: "GGA_X_PBE_R"}}},
	{"PW91 gradient-corrected functionals", []functional{{name: "GGA_C_PW91"}, {name: "GGA_X_PW91"}}},
	{"M06-L gradient-corrected functionals", []functional{{name: "MGGA_C_M06_L"}, {name: "MGGA_X_M06_L"}}},
	{"M11-L gradient-corrected functionals", []functional{{name: "MGGA_C_M11_L"}, {name: "MGGA_X_M11_L"}}},
	{"TPSS gradient-corrected functionals", []functional{{name: "MGGA_C_TPSS"}, {name: "MGGA_X_TPSS"}}},
	{"TPSSloc gradient-corrected functionals", []functional{{name: "MGGA_C_TPSSLOC"}, {name: "MGGA_X_TPSS"}}},
	{"hybrid B3LYP functional", []functional{{name: "HYB_GGA_XC_B3LYP5"}}},
	{"Hartree-Fock", []functional{{name: "HF_X"}}},
	{"HSE", []functional{{name: "HYB_GGA_XC_HSE03"}}},
	{"HSE-functional", []functional{{name: "HYB_GGA_XC_HSE06"}}},
	{"hybrid-PBE0 functionals", []functional{{name: "GGA_C_PBE"}, {name: "GGA_X_PBE", weight: pbeWeight}, {name: "HF_X", weight: hfWeight}}},
	{"hybrid-PBEsol0 functionals", []functional{{name: "GGA_C_PBE_SOL"}, {name: "GGA_X_PBE_SOL", weight: pbeWeight}, {name: "HF_X", weight: hfWeight}}},
	{"Hybrid M06 gradient-corrected functionals", []functional{{name: "MGGA_C_M06"}, {name: "HYB_MGGA_X_M06"}}},
	{"Hybrid M06-2X gradient-corrected functionals", []functional{{name: "MGGA_C_M06_2X"}, {name: "HYB_MGGA_X_M06"}}},
	{"Hybrid M06-HF gradient-corrected functionals", []functional{{name: "MGGA_C_M06_HF"}, {name: "HYB_MGGA_X_M06"}}},
	{"Hybrid M08-HX gradient-corrected functionals", []functional{{name: "MGGA_C_M08_HX"}, {name: "HYB_MGGA_X_M08_HX"}}},
	{"Hybrid M08-SO gradient-corrected functionals", []functional{{name: "MGGA_C_M08_SO"}, {name: "HYB_MGGA_X_M08_SO"}}},
	{"Hybrid M11 gradient-corrected functionals", []functional{{name: "MGGA_C_M11"}, {name: "HYB_MGGA_X_M11"}}},
}

// defaultExactExchange is the exact exchange fraction of PBE0 style hybrids
// when hybrid_xc_coeff is not set.
const defaultExactExchange = 0.25

// totalEnergyKeys name the total energy in the compact energy block, in
// order of preference.
var totalEnergyKeys = []string{"Total energy uncorrected", "Total energy"}

// Transforms returns the functions callable from the FHI-aims rules.
func Transforms() *mapping.TransformRegistry {
	r := mapping.NewTransformRegistry()

	r.MustRegister("get_xc_functionals", "libxc components of an xc description", getXCFunctionals)
	r.MustRegister("get_eigenvalues", "eigenvalue blocks by spin, k-point and state", getEigenvalues)
	r.MustRegister("get_energies", "total energy and its contributions", getEnergies)
	r.MustRegister("get_forces", "forces with point count and rank", getForces)
	r.MustRegister("get_gw_flag", "GW flavour of a qpe_calc value", getGWFlag)
	r.MustRegister("get_sections", "configurations of SCF, relaxation and MD runs", getSections)
	r.MustRegister("get_dos", "total DOS per spin with projected DOS", getDOS)
	r.MustRegister("to_array", "nested numbers to rows", toArray)

	return r
}

func xcComponents(description string) []functional {
	for _, xc := range xcFunctionals {
		if xc.description == description {
			return xc.components
		}
	}

	return nil
}

func getXCFunctionals(args []any, kwargs map[string]any) (any, error) {
	xc, _ := mapping.Arg(args, kwargs, 0, "xc").(string)

	comps := xcComponents(strings.TrimSpace(xc))
	if comps == nil {
		return nil, nil
	}

	exx := defaultExactExchange
	if v, ok := readers.Magnitude(kwargs["hybrid_coeff"]).(float64); ok {
		exx = v
	}

	out := make([]any, len(comps))

	for i, c := range comps {
		rec := grammar.Record{"name": c.name}
		if c.weight != nil {
			rec["weight"] = c.weight(exx)
		}

		out[i] = rec
	}

	return out, nil
}

// getEigenvalues stacks each eigenvalue block into (n_spin, n_k_points,
// n_states) arrays. Occupation/eigenvalue pairs are printed per k-point and
// spin channel; k-points are printed once per spin channel.
func getEigenvalues(args []any, kwargs map[string]any) (any, error) {
	blocks := readers.Records(mapping.Arg(args, kwargs, 0, "source"))
	params := readers.Record(mapping.Arg(args, kwargs, 1, "params"))

	nspin := 1
	if v, ok := params["Number of spin channels"].(float64); ok && v >= 1 {
		nspin = int(v)
	}

	var out []any

	for i, b := range blocks {
		rec, err := eigenvalueBlock(b, nspin)
		if err != nil {
			return nil, fmt.Errorf("eigenvalue block %d: %w", i+1, err)
		}

		if rec != nil {
			out = append(out, rec)
		}
	}

	return out, nil
}

func eigenvalueBlock(b grammar.Record, nspin int) (grammar.Record, error) {
	pairs, err := numeric.Matrix(b["occupation_eigenvalue"])
	if err != nil || len(pairs) == 0 {
		return nil, nil
	}

	kpts, err := numeric.Matrix(b["kpoints"])
	if err != nil || len(kpts) < nspin {
		kpts = make([][]float64, nspin)
		for i := range kpts {
			kpts[i] = []float64{0, 0, 0}
		}
	}

	if len(kpts)%nspin != 0 {
		return nil, fmt.Errorf("%w: %d k-points for %d spin channels", numeric.ErrShape, len(kpts), nspin)
	}

	nk := len(kpts) / nspin
	if len(pairs)%(nk*nspin) != 0 {
		return nil, fmt.Errorf("%w: %d states for %d k-points and %d spin channels", numeric.ErrShape, len(pairs), nk, nspin)
	}

	nstates := len(pairs) / (nk * nspin)

	cols, err := numeric.Transpose(pairs)
	if err != nil {
		return nil, err
	}

	occs, err := numeric.Reshape3(cols[0], nk, nspin, nstates)
	if err != nil {
		return nil, err
	}

	eigs, err := numeric.Reshape3(cols[1], nk, nspin, nstates)
	if err != nil {
		return nil, err
	}

	points := make([][]float64, nk)
	for k := range points {
		points[k] = kpts[k*nspin]
	}

	return grammar.Record{
		"eigenvalues": spinFirst(eigs),
		"occupancies": spinFirst(occs),
		"n_spin":      nspin,
		"n_bands":     nstates,
		"n_points":    nk,
		"k_points":    points,
	}, nil
}

// spinFirst swaps the first two axes of a (k, spin, state) array.
func spinFirst(a [][][]float64) [][][]float64 {
	if len(a) == 0 {
		return nil
	}

	out := make([][][]float64, len(a[0]))
	for s := range out {
		out[s] = make([][]float64, len(a))
		for k := range a {
			out[s][k] = a[k][s]
		}
	}

	return out
}

// getEnergies splits the compact energy block into the total energy and
// contributions; the last energy components table adds the remaining
// contributions.
func getEnergies(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))
	energy := readers.Record(source["energy"])

	out := grammar.Record{}

	for _, k := range totalEnergyKeys {
		if v, ok := energy[k]; ok {
			out["value"] = v
			break
		}
	}

	var components []any

	for _, name := range sortedKeys(energy) {
		if name == totalEnergyKeys[0] || name == totalEnergyKeys[1] {
			continue
		}

		components = append(components, grammar.Record{"name": name, "value": energy[name]})
	}

	if tables := readers.Records(source["energy_components"]); len(tables) > 0 {
		last := tables[len(tables)-1]

		for _, name := range sortedKeys(last) {
			if strings.HasPrefix(name, "Total energy") {
				continue
			}

			components = append(components, grammar.Record{"name": name, "value": last[name]})
		}
	}

	if len(components) > 0 {
		out["components"] = components
	}

	if len(out) == 0 {
		return nil, nil
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

func getForces(args []any, kwargs map[string]any) (any, error) {
	source := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	forces, ok := source["forces"]
	if !ok {
		return nil, nil
	}

	rows, err := numeric.Matrix(readers.Magnitude(forces))
	if err != nil {
		return nil, err
	}

	return grammar.Record{"forces": forces, "n_points": len(rows), "rank": []int{3}}, nil
}

func getGWFlag(args []any, kwargs map[string]any) (any, error) {
	flag, _ := mapping.Arg(args, kwargs, 0, "flag").(string)

	if v, ok := gwFlags[flag]; ok {
		return v, nil
	}

	return nil, nil
}

// sectionNames are the configuration lists of aims.out in output order.
var sectionNames = []string{"full_scf", "geometry_optimization", "molecular_dynamics"}

// getSections returns one record per configuration holding the include
// keys. A key missing from a configuration is taken from the root record,
// so single point runs use the input geometry. Without configurations the
// root record alone is used.
func getSections(args []any, kwargs map[string]any) (any, error) {
	root := readers.Record(mapping.Arg(args, kwargs, 0, "source"))

	var include []string
	if v, ok := kwargs["include"]; ok {
		list, _ := mapping.AsList(v)
		for _, el := range list {
			if s, ok := el.(string); ok {
				include = append(include, s)
			}
		}
	}

	var out []any

	for _, name := range sectionNames {
		for _, sec := range readers.Records(root[name]) {
			res := grammar.Record{}

			keys := include
			if keys == nil {
				keys = sortedKeys(sec)
			}

			for _, k := range keys {
				v, ok := sec[k]
				if !ok {
					v, ok = root[k]
				}

				if ok && v != nil {
					res[k] = v
				}
			}

			if len(res) > 0 {
				out = append(out, res)
			}
		}
	}

	if len(out) == 0 && include != nil {
		res := grammar.Record{}

		for _, k := range include {
			if v, ok := root[k]; ok && v != nil {
				res[k] = v
			}
		}

		if len(res) > 0 {
			out = append(out, res)
		}
	}

	return out, nil
}

// getDOS builds the total DOS of each spin channel with the projected DOS of
// the same channel. Arguments are loaded DOS files (see dosFile): total,
// atom projected and species projected.
func getDOS(args []any, kwargs map[string]any) (any, error) {
	total := readers.Records(mapping.Arg(args, kwargs, 0, "total"))
	atoms := readers.Records(mapping.Arg(args, kwargs, 1, "atom"))
	species := readers.Records(mapping.Arg(args, kwargs, 2, "species"))

	projected := append(projectedDOS(atoms, "atom"), projectedDOS(species, "species")...)

	var out []any

	for _, f := range total {
		energies, _ := f["energies"].([]float64)
		columns, _ := f["columns"].([][]float64)

		for spin, values := range columns {
			var pdos []any

			for _, p := range projected {
				if p["spin"] == spin {
					pdos = append(pdos, p)
				}
			}

			out = append(out, grammar.Record{
				"spin":          spin,
				"energies":      energies,
				"n_energies":    len(energies),
				"values":        values,
				"projected_dos": pdos,
			})
		}
	}

	return out, nil
}

// projectedDOS splits projected DOS files into profiles: the first column
// is the total of the label, the following ones are angular momentum
// channels.
func projectedDOS(files []grammar.Record, kind string) []grammar.Record {
	var out []grammar.Record

	for _, f := range files {
		label, _ := f["label"].(string)
		columns, _ := f["columns"].([][]float64)

		spin := 0
		if name, _ := f["file"].(string); strings.Contains(name, "spin_dn") {
			spin = 1
		}

		for n, values := range columns {
			name := fmt.Sprintf("%s %s", kind, label)
			if n > 0 {
				name = fmt.Sprintf("%s l=%d", name, n-1)
			}

			out = append(out, grammar.Record{"name": name, "values": values, "spin": spin})
		}
	}

	return out
}

func toArray(args []any, kwargs map[string]any) (any, error) {
	v := mapping.Arg(args, kwargs, 0, "source")
	if v == nil {
		return nil, nil
	}

	return numeric.Matrix(readers.Magnitude(v))
}
