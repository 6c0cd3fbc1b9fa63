// Package archive defines the target data model the readers populate.
//
// Every field the mapper may write carries an `archive:"name"` tag. Fields of
// struct type (or pointer to struct) are sub-sections, slices of them are
// repeated sub-sections, everything else is a quantity. Physical quantities
// are *units.Quantity and keep the unit of the source.
package archive

import (
	"simulation-parsers/internal/units"
)

// Simulation is the root section of one entry.
type Simulation struct {
	Program     *Program       `archive:"program" json:"program,omitempty" yaml:"program,omitempty"`
	ModelMethod []*ModelMethod `archive:"model_method" json:"model_method,omitempty" yaml:"model_method,omitempty"`
	ModelSystem []*ModelSystem `archive:"model_system" json:"model_system,omitempty" yaml:"model_system,omitempty"`
	Outputs     []*Outputs     `archive:"outputs" json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Program identifies the code that produced the data.
type Program struct {
	Name            string `archive:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Version         string `archive:"version" json:"version,omitempty" yaml:"version,omitempty"`
	Subversion      string `archive:"subversion" json:"subversion,omitempty" yaml:"subversion,omitempty"`
	CompilationHost string `archive:"compilation_host" json:"compilation_host,omitempty" yaml:"compilation_host,omitempty"`
}

// ModelMethod describes the electronic structure method (DFT or GW).
type ModelMethod struct {
	Name                      string          `archive:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Type                      string          `archive:"type" json:"type,omitempty" yaml:"type,omitempty"`
	XCFunctionals             []*XCFunctional `archive:"xc_functionals" json:"xc_functionals,omitempty" yaml:"xc_functionals,omitempty"`
	ExactExchangeMixingFactor float64         `archive:"exact_exchange_mixing_factor" json:"exact_exchange_mixing_factor,omitempty" yaml:"exact_exchange_mixing_factor,omitempty"`
	KSpace                    *KSpace         `archive:"k_space" json:"k_space,omitempty" yaml:"k_space,omitempty"`
}

// XCFunctional is one exchange or correlation component.
type XCFunctional struct {
	LibxcName string  `archive:"libxc_name" json:"libxc_name,omitempty" yaml:"libxc_name,omitempty"`
	Weight    float64 `archive:"weight" json:"weight,omitempty" yaml:"weight,omitempty"`
}

// KSpace groups the reciprocal space sampling settings.
type KSpace struct {
	KMesh     []*KMesh   `archive:"k_mesh" json:"k_mesh,omitempty" yaml:"k_mesh,omitempty"`
	KLinePath *KLinePath `archive:"k_line_path" json:"k_line_path,omitempty" yaml:"k_line_path,omitempty"`
}

// KMesh is a regular reciprocal space grid.
type KMesh struct {
	Grid    []int       `archive:"grid" json:"grid,omitempty" yaml:"grid,omitempty"`
	Offset  []float64   `archive:"offset" json:"offset,omitempty" yaml:"offset,omitempty"`
	Points  [][]float64 `archive:"points" json:"points,omitempty" yaml:"points,omitempty"`
	Weights []float64   `archive:"weights" json:"weights,omitempty" yaml:"weights,omitempty"`
}

// KLinePath is a band structure path through high symmetry points.
type KLinePath struct {
	HighSymmetryPathNames  []string    `archive:"high_symmetry_path_names" json:"high_symmetry_path_names,omitempty" yaml:"high_symmetry_path_names,omitempty"`
	HighSymmetryPathValues [][]float64 `archive:"high_symmetry_path_values" json:"high_symmetry_path_values,omitempty" yaml:"high_symmetry_path_values,omitempty"`
}

// ModelSystem is one structure snapshot.
type ModelSystem struct {
	IsRepresentative bool          `archive:"is_representative" json:"is_representative,omitempty" yaml:"is_representative,omitempty"`
	Cell             []*AtomicCell `archive:"cell" json:"cell,omitempty" yaml:"cell,omitempty"`
}

// AtomicCell holds lattice and atom positions of a structure.
type AtomicCell struct {
	LatticeVectors             *units.Quantity `archive:"lattice_vectors" json:"lattice_vectors,omitempty" yaml:"lattice_vectors,omitempty"`
	Positions                  *units.Quantity `archive:"positions" json:"positions,omitempty" yaml:"positions,omitempty"`
	PeriodicBoundaryConditions []bool          `archive:"periodic_boundary_conditions" json:"periodic_boundary_conditions,omitempty" yaml:"periodic_boundary_conditions,omitempty"`
	AtomsState                 []*AtomsState   `archive:"atoms_state" json:"atoms_state,omitempty" yaml:"atoms_state,omitempty"`
}

// AtomsState describes one atom of a cell.
type AtomsState struct {
	ChemicalSymbol string `archive:"chemical_symbol" json:"chemical_symbol,omitempty" yaml:"chemical_symbol,omitempty"`
}

// Outputs holds the results computed for one configuration.
type Outputs struct {
	NPoints                  int                        `archive:"n_points" json:"n_points,omitempty" yaml:"n_points,omitempty"`
	TotalEnergy              *TotalEnergy               `archive:"total_energy" json:"total_energy,omitempty" yaml:"total_energy,omitempty"`
	TotalForce               *TotalForce                `archive:"total_force" json:"total_force,omitempty" yaml:"total_force,omitempty"`
	ElectronicEigenvalues    []*ElectronicEigenvalues   `archive:"electronic_eigenvalues" json:"electronic_eigenvalues,omitempty" yaml:"electronic_eigenvalues,omitempty"`
	ElectronicBandStructures []*ElectronicBandStructure `archive:"electronic_band_structures" json:"electronic_band_structures,omitempty" yaml:"electronic_band_structures,omitempty"`
	ElectronicDOS            []*ElectronicDOS           `archive:"electronic_dos" json:"electronic_dos,omitempty" yaml:"electronic_dos,omitempty"`
}

// TotalEnergy is the total energy with its decomposition.
type TotalEnergy struct {
	Value         *units.Quantity       `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
	Contributions []*EnergyContribution `archive:"contributions" json:"contributions,omitempty" yaml:"contributions,omitempty"`
}

// EnergyContribution is one named term of the total energy.
type EnergyContribution struct {
	Name  string          `archive:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Value *units.Quantity `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
}

// TotalForce holds the forces on all atoms.
type TotalForce struct {
	NPoints int             `archive:"n_points" json:"n_points,omitempty" yaml:"n_points,omitempty"`
	Rank    []int           `archive:"rank" json:"rank,omitempty" yaml:"rank,omitempty"`
	Value   *units.Quantity `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
}

// ElectronicEigenvalues are Kohn-Sham eigenvalues per spin, k-point and band.
type ElectronicEigenvalues struct {
	NPoints     int             `archive:"n_points" json:"n_points,omitempty" yaml:"n_points,omitempty"`
	NBands      int             `archive:"n_bands" json:"n_bands,omitempty" yaml:"n_bands,omitempty"`
	NSpin       int             `archive:"n_spin" json:"n_spin,omitempty" yaml:"n_spin,omitempty"`
	KPoints     [][]float64     `archive:"k_points" json:"k_points,omitempty" yaml:"k_points,omitempty"`
	Value       *units.Quantity `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
	Occupation  [][][]float64   `archive:"occupation" json:"occupation,omitempty" yaml:"occupation,omitempty"`
	SpinChannel int             `archive:"spin_channel" json:"spin_channel,omitempty" yaml:"spin_channel,omitempty"`
}

// ElectronicBandStructure is the band energy along a k-point path.
type ElectronicBandStructure struct {
	NPoints     int             `archive:"n_points" json:"n_points,omitempty" yaml:"n_points,omitempty"`
	NBands      int             `archive:"n_bands" json:"n_bands,omitempty" yaml:"n_bands,omitempty"`
	SpinChannel int             `archive:"spin_channel" json:"spin_channel,omitempty" yaml:"spin_channel,omitempty"`
	Value       *units.Quantity `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
}

// ElectronicDOS is the total density of states of one spin channel.
type ElectronicDOS struct {
	SpinChannel  int             `archive:"spin_channel" json:"spin_channel,omitempty" yaml:"spin_channel,omitempty"`
	Energies     *Energies       `archive:"energies" json:"energies,omitempty" yaml:"energies,omitempty"`
	Value        *units.Quantity `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
	ProjectedDOS []*DOSProfile   `archive:"projected_dos" json:"projected_dos,omitempty" yaml:"projected_dos,omitempty"`
}

// Energies is an energy grid.
type Energies struct {
	NPoints int             `archive:"n_points" json:"n_points,omitempty" yaml:"n_points,omitempty"`
	Points  *units.Quantity `archive:"points" json:"points,omitempty" yaml:"points,omitempty"`
}

// DOSProfile is a projected density of states.
type DOSProfile struct {
	Name  string          `archive:"name" json:"name,omitempty" yaml:"name,omitempty"`
	Value *units.Quantity `archive:"value" json:"value,omitempty" yaml:"value,omitempty"`
}
