package vasp

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/orchestrate"
	"simulation-parsers/internal/readers"
	"simulation-parsers/internal/units"
)

const vasprun = `<?xml version="1.0" encoding="ISO-8859-1"?>
<modeling>
 <generator>
  <i name="program" type="string">vasp </i>
  <i name="version" type="string">5.4.4.18Apr17-6-g9f103f2a35 </i>
  <i name="subversion" type="string">(build Apr 17 2018 16:37:21) complex  parallel </i>
  <i name="platform" type="string">LinuxIFC </i>
 </generator>
 <kpoints>
  <generation param="Gamma">
   <v type="int" name="divisions">       2        2        2 </v>
   <v name="usershift">      0.00000000      0.00000000      0.00000000 </v>
   <v name="shift">      0.00000000      0.00000000      0.00000000 </v>
  </generation>
  <varray name="kpointlist" >
   <v>       0.00000000       0.00000000       0.00000000 </v>
   <v>       0.50000000       0.00000000       0.00000000 </v>
  </varray>
  <varray name="weights" >
   <v>       0.25000000 </v>
   <v>       0.75000000 </v>
  </varray>
 </kpoints>
 <parameters>
  <separator name="electronic" >
   <i type="string" name="PREC">accurate</i>
   <i name="ENMAX">    400.00000000</i>
   <separator name="electronic spin" >
    <i type="int" name="ISPIN">     1</i>
   </separator>
   <separator name="electronic exchange-correlation" >
    <i type="string" name="GGA">PE</i>
    <i type="logical" name="LHFCALC"> T  </i>
    <i name="AEXX">      0.25000000</i>
   </separator>
  </separator>
 </parameters>
 <atominfo>
  <atoms>       2 </atoms>
  <types>       1 </types>
  <array name="atoms" >
   <dimension dim="1">ion</dimension>
   <field type="string">element</field>
   <field type="int">atomtype</field>
   <set>
    <rc><c>Si</c><c>   1</c></rc>
    <rc><c>Si</c><c>   1</c></rc>
   </set>
  </array>
  <array name="atomtypes" >
   <dimension dim="1">type</dimension>
   <field type="int">atomspertype</field>
   <field type="string">element</field>
   <set>
    <rc><c>   2</c><c>Si</c></rc>
   </set>
  </array>
 </atominfo>
 <calculation>
  <scstep>
   <energy>
    <i name="e_fr_energy">    -10.00000000 </i>
   </energy>
  </scstep>
  <structure>
   <crystal>
    <varray name="basis" >
     <v>       0.00000000       2.71500000       2.71500000 </v>
     <v>       2.71500000       0.00000000       2.71500000 </v>
     <v>       2.71500000       2.71500000       0.00000000 </v>
    </varray>
    <i name="volume">     40.02575175 </i>
   </crystal>
   <varray name="positions" >
    <v>       0.00000000       0.00000000       0.00000000 </v>
    <v>       0.25000000       0.25000000       0.25000000 </v>
   </varray>
  </structure>
  <varray name="forces" >
   <v>       0.01000000       0.00000000       0.00000000 </v>
   <v>      -0.01000000       0.00000000       0.00000000 </v>
  </varray>
  <energy>
   <i name="e_fr_energy">    -10.84561000 </i>
   <i name="e_wo_entrp">    -10.84000000 </i>
   <i name="e_0_energy">    -10.84280000 </i>
  </energy>
  <eigenvalues>
   <array>
    <dimension dim="1">band</dimension>
    <dimension dim="2">kpoint</dimension>
    <dimension dim="3">spin</dimension>
    <field>eigene</field>
    <field>occ</field>
    <set>
     <set comment="spin 1">
      <set comment="kpoint 1">
       <r>   -5.5000    1.0000 </r>
       <r>    6.2000    0.0000 </r>
      </set>
      <set comment="kpoint 2">
       <r>   -4.5000    1.0000 </r>
       <r>    7.2000    0.0000 </r>
      </set>
     </set>
    </set>
   </array>
  </eigenvalues>
  <dos>
   <i name="efermi">      5.00000000 </i>
   <total>
    <array>
     <dimension dim="1">gridpoints</dimension>
     <dimension dim="2">spin</dimension>
     <field>energy</field>
     <field>total</field>
     <field>integrated</field>
     <set>
      <set comment="spin 1">
       <r>    -6.0000     0.0000     0.0000 </r>
       <r>    -5.0000     0.5000     0.5000 </r>
       <r>    -4.0000     1.0000     1.5000 </r>
      </set>
     </set>
    </array>
   </total>
   <partial>
    <array>
     <dimension dim="1">gridpoints</dimension>
     <dimension dim="2">spin</dimension>
     <dimension dim="3">ion</dimension>
     <field>energy</field>
     <field>s</field>
     <field>p</field>
     <set>
      <set comment="ion 1">
       <set comment="spin 1">
        <r>    -6.0000     0.0000     0.0000 </r>
        <r>    -5.0000     0.2000     0.1000 </r>
        <r>    -4.0000     0.3000     0.2000 </r>
       </set>
      </set>
      <set comment="ion 2">
       <set comment="spin 1">
        <r>    -6.0000     0.0000     0.0000 </r>
        <r>    -5.0000     0.1000     0.1000 </r>
        <r>    -4.0000     0.2000     0.3000 </r>
       </set>
      </set>
     </set>
    </array>
   </partial>
  </dos>
 </calculation>
</modeling>
`

const outcar = ` vasp.5.4.4.18Apr17-6-g9f103f2a35 (build Apr 17 2018 16:37:21) complex
 executed on             LinuxIFC date 2021.05.13  10:00:00
 running on    4 total cores
 POTCAR:    PAW_PBE Si 05Jan2001
   VRHFIN =Si: s p
   TITEL  = PAW_PBE Si 05Jan2001
   ions per type =               2

 Dimension of arrays:
   k-points           NKPTS =      2   k-points in BZ     NKDIM =      2   number of bands    NBANDS=      2
   number of dos      NEDOS =    301   number of ions     NIONS =      2

 Electronic Relaxation 1
   ENCUT  =  400.0 eV  29.40 Ry    5.42 a.u.
   ISPIN  =      1    spin polarized calculation?
   GGA     =    PE    GGA type
   LHFCALC =      F    Hartree Fock is set to
   AEXX    =   0.0000    exact exchange contribution

--------------------------------------- Iteration    1(   1)  ---------------------------------------

 E-fermi :   5.0000     XC(G=0):  -0.8000     alpha+bet : -0.5000

 k-point     1 :       0.0000    0.0000    0.0000
  band No.  band energies     occupation
      1      -5.5000      2.00000
      2       6.2000      0.00000

 k-point     2 :       0.5000    0.0000    0.0000
  band No.  band energies     occupation
      1      -4.5000      2.00000
      2       7.2000      0.00000

 --------------------------------------------------------------------------------------------------------

 VOLUME and BASIS-vectors are now :
 -----------------------------------------------------------------------------
  energy-cutoff  :      400.00
  volume of cell :       40.03
  direct lattice vectors                 reciprocal lattice vectors
     0.000000000  2.715000000  2.715000000    -0.184162063  0.184162063  0.184162063
     2.715000000  0.000000000  2.715000000     0.184162063 -0.184162063  0.184162063
     2.715000000  2.715000000  0.000000000     0.184162063  0.184162063 -0.184162063

 POSITION                                       TOTAL-FORCE (eV/Angst)
 -----------------------------------------------------------------------------------
      0.00000      0.00000      0.00000         0.010000      0.000000      0.000000
      1.35750      1.35750      1.35750        -0.010000      0.000000      0.000000
 -----------------------------------------------------------------------------------
    total drift:                                0.000000      0.000000      0.000000

  FREE ENERGIE OF THE ION-ELECTRON SYSTEM (eV)
  ---------------------------------------------------
  free  energy   TOTEN  =       -10.84561000 eV

  energy  without entropy=      -10.84000000  energy(sigma->0) =      -10.84280000
`

func parse(t *testing.T, mainfile, content string) *orchestrate.Result {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, mainfile, []byte(content), 0o644))

	logger, _ := test.NewNullLogger()

	p, err := New(readers.Options{Fs: fs, Logger: logger})
	require.NoError(t, err)

	res, err := p.Parse(mainfile)
	require.NoError(t, err)

	return res
}

func TestParse_Vasprun(t *testing.T) {
	res := parse(t, "/calc/vasprun.xml", vasprun)

	require.Len(t, res.Entries, 1)
	sim := res.Main().Data

	assert.Equal(t, &archive.Program{
		Name:            Name,
		Version:         "5.4.4.18Apr17-6-g9f103f2a35",
		Subversion:      "(build Apr 17 2018 16:37:21) complex  parallel",
		CompilationHost: "LinuxIFC",
	}, sim.Program)

	require.Len(t, sim.ModelMethod, 1)
	method := sim.ModelMethod[0]
	assert.Equal(t, "DFT", method.Name)
	assert.InDelta(t, 0.25, method.ExactExchangeMixingFactor, 1e-12)
	require.Len(t, method.XCFunctionals, 3)
	assert.Equal(t, "GGA_C_PBE", method.XCFunctionals[0].LibxcName)
	assert.Equal(t, "GGA_X_PBE", method.XCFunctionals[1].LibxcName)
	assert.InDelta(t, 0.75, method.XCFunctionals[1].Weight, 1e-12)
	assert.Equal(t, "HF_X", method.XCFunctionals[2].LibxcName)

	require.NotNil(t, method.KSpace)
	require.Len(t, method.KSpace.KMesh, 1)
	mesh := method.KSpace.KMesh[0]
	assert.Equal(t, []int{2, 2, 2}, mesh.Grid)
	assert.Equal(t, []float64{0, 0, 0}, mesh.Offset)
	assert.Equal(t, [][]float64{{0, 0, 0}, {0.5, 0, 0}}, mesh.Points)
	assert.Equal(t, []float64{0.25, 0.75}, mesh.Weights)

	require.Len(t, sim.ModelSystem, 1)
	require.Len(t, sim.ModelSystem[0].Cell, 1)
	cell := sim.ModelSystem[0].Cell[0]
	require.NotNil(t, cell.LatticeVectors)
	assert.Equal(t, units.Angstrom, cell.LatticeVectors.Unit)
	assert.Equal(t, [][]float64{{0, 2.715, 2.715}, {2.715, 0, 2.715}, {2.715, 2.715, 0}}, cell.LatticeVectors.Magnitude)

	require.NotNil(t, cell.Positions)
	positions, ok := cell.Positions.Magnitude.([][]float64)
	require.True(t, ok)
	require.Len(t, positions, 2)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, positions[0], 1e-9)
	assert.InDeltaSlice(t, []float64{1.3575, 1.3575, 1.3575}, positions[1], 1e-9)

	require.Len(t, cell.AtomsState, 2)
	assert.Equal(t, "Si", cell.AtomsState[1].ChemicalSymbol)

	require.Len(t, sim.Outputs, 1)
	out := sim.Outputs[0]

	require.NotNil(t, out.TotalEnergy)
	assert.Equal(t, units.ElectronVolt, out.TotalEnergy.Value.Unit)
	assert.InDelta(t, -10.84561, out.TotalEnergy.Value.Magnitude, 1e-9)
	require.Len(t, out.TotalEnergy.Contributions, 2)
	assert.Equal(t, "e_wo_entrp", out.TotalEnergy.Contributions[0].Name)
	assert.Equal(t, "e_0_energy", out.TotalEnergy.Contributions[1].Name)

	require.NotNil(t, out.TotalForce)
	assert.Equal(t, 2, out.TotalForce.NPoints)
	assert.Equal(t, []int{3}, out.TotalForce.Rank)
	assert.Equal(t, units.EVPerAngstrom, out.TotalForce.Value.Unit)
	assert.Equal(t, [][]float64{{0.01, 0, 0}, {-0.01, 0, 0}}, out.TotalForce.Value.Magnitude)

	require.Len(t, out.ElectronicEigenvalues, 1)
	eig := out.ElectronicEigenvalues[0]
	assert.Equal(t, 1, eig.NSpin)
	assert.Equal(t, 2, eig.NPoints)
	assert.Equal(t, 2, eig.NBands)
	assert.Equal(t, [][]float64{{0, 0, 0}, {0.5, 0, 0}}, eig.KPoints)
	assert.Equal(t, units.ElectronVolt, eig.Value.Unit)
	assert.Equal(t, [][][]float64{{{-5.5, 6.2}, {-4.5, 7.2}}}, eig.Value.Magnitude)
	assert.Equal(t, [][][]float64{{{1, 0}, {1, 0}}}, eig.Occupation)

	require.Len(t, out.ElectronicDOS, 1)
	dos := out.ElectronicDOS[0]
	assert.Equal(t, 0, dos.SpinChannel)
	require.NotNil(t, dos.Energies)
	assert.Equal(t, 3, dos.Energies.NPoints)
	assert.Equal(t, []float64{-6, -5, -4}, dos.Energies.Points.Magnitude)
	assert.Equal(t, []float64{0, 0.5, 1}, dos.Value.Magnitude)

	var names []string
	for _, p := range dos.ProjectedDOS {
		names = append(names, p.Name)
	}

	assert.Equal(t, []string{"atom 1 s", "atom 1 p", "atom 2 s", "atom 2 p"}, names)

	assert.Equal(t, archive.NewSinglePoint(res.Main().ID), res.Main().Workflow)
	assert.Empty(t, res.Diagnostics.Warnings)
}

func TestParse_Outcar(t *testing.T) {
	res := parse(t, "/calc/OUTCAR", outcar)

	require.Len(t, res.Entries, 1)
	sim := res.Main().Data

	assert.Equal(t, &archive.Program{
		Name:            Name,
		Version:         "5.4.4.18Apr17-6-g9f103f2a35",
		Subversion:      "build Apr 17 2018 16:37:21",
		CompilationHost: "LinuxIFC",
	}, sim.Program)

	require.Len(t, sim.ModelMethod, 1)
	method := sim.ModelMethod[0]
	assert.Equal(t, "DFT", method.Name)
	assert.Zero(t, method.ExactExchangeMixingFactor)
	require.Len(t, method.XCFunctionals, 2)
	assert.Equal(t, "GGA_X_PBE", method.XCFunctionals[1].LibxcName)

	require.Len(t, sim.ModelSystem, 1)
	require.Len(t, sim.ModelSystem[0].Cell, 1)
	cell := sim.ModelSystem[0].Cell[0]
	require.NotNil(t, cell.LatticeVectors)
	assert.Equal(t, units.Angstrom, cell.LatticeVectors.Unit)
	assert.Equal(t, [][]float64{{0, 2.715, 2.715}, {2.715, 0, 2.715}, {2.715, 2.715, 0}}, cell.LatticeVectors.Magnitude)
	require.NotNil(t, cell.Positions)
	assert.Equal(t, [][]float64{{0, 0, 0}, {1.3575, 1.3575, 1.3575}}, cell.Positions.Magnitude)
	require.Len(t, cell.AtomsState, 2)
	assert.Equal(t, "Si", cell.AtomsState[0].ChemicalSymbol)

	require.Len(t, sim.Outputs, 1)
	out := sim.Outputs[0]

	require.NotNil(t, out.TotalEnergy)
	assert.InDelta(t, -10.84561, out.TotalEnergy.Value.Magnitude, 1e-9)
	require.Len(t, out.TotalEnergy.Contributions, 2)
	assert.Equal(t, "energy_no_entropy", out.TotalEnergy.Contributions[0].Name)
	assert.Equal(t, "energy_sigma_0", out.TotalEnergy.Contributions[1].Name)
	assert.InDelta(t, -10.8428, out.TotalEnergy.Contributions[1].Value.Magnitude, 1e-9)

	require.NotNil(t, out.TotalForce)
	assert.Equal(t, [][]float64{{0.01, 0, 0}, {-0.01, 0, 0}}, out.TotalForce.Value.Magnitude)

	require.Len(t, out.ElectronicEigenvalues, 1)
	eig := out.ElectronicEigenvalues[0]
	assert.Equal(t, 1, eig.NSpin)
	assert.Equal(t, 2, eig.NPoints)
	assert.Equal(t, 2, eig.NBands)
	assert.Equal(t, [][]float64{{0, 0, 0}, {0.5, 0, 0}}, eig.KPoints)
	assert.Equal(t, [][][]float64{{{-5.5, 6.2}, {-4.5, 7.2}}}, eig.Value.Magnitude)
	assert.Equal(t, [][][]float64{{{2, 0}, {2, 0}}}, eig.Occupation)

	assert.Equal(t, archive.NewSinglePoint(res.Main().ID), res.Main().Workflow)
}

func TestParse_MalformedXML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/calc/vasprun.xml", []byte("<modeling><generator>"), 0o644))

	p, err := New(readers.Options{Fs: fs})
	require.NoError(t, err)

	_, err = p.Parse("/calc/vasprun.xml")

	var fatal *orchestrate.FatalInputError
	require.ErrorAs(t, err, &fatal)
}

func TestIsOutcar(t *testing.T) {
	assert.True(t, IsOutcar("/calc/OUTCAR"))
	assert.True(t, IsOutcar("/calc/OUTCAR.relax"))
	assert.False(t, IsOutcar("/calc/vasprun.xml"))
}

func TestRules_Valid(t *testing.T) {
	p, err := New(readers.Options{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)

	assert.Equal(t, Name, p.RuleSet().Program)
	assert.ElementsMatch(t, []string{TagXML, TagXML2, TagOutcar}, p.RuleSet().Tags())
}
