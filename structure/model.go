// Package structure holds the host-side representations of atomic models and
// density volumes, together with readers for PDB and MRC files.
package structure

import (
	"fmt"
	"image/color"
)

// RGB is a display colour with 0-255 channels.
type RGB struct {
	R, G, B uint8
}

// Normalized returns the colour with channels scaled to 0-1.
func (c RGB) Normalized() [3]float64 {
	return [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
}

// NRGBA converts the colour for image and widget drawing.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Coord is a cartesian position in angstroms.
type Coord struct {
	X, Y, Z float64
}

// Atom is a single ATOM or HETATM record.
type Atom struct {
	Serial    int64
	Name      string
	AltLoc    string
	Element   string
	Coord     Coord
	Occupancy float64
	BFactor   float64
	Charge    string
	InChain   bool // false for HETATM records
	Selected  bool
}

// Residue groups the atoms sharing chain, residue number and insertion code.
type Residue struct {
	Chain         string
	Number        int64
	InsertionCode string
	Name          string
	Atoms         []*Atom

	Color   RGB
	Colored bool // Color overrides the model colour
}

// Label formats the residue the way it is reported in logs, e.g. "A 42 LEU".
func (r *Residue) Label() string {
	return fmt.Sprintf("%s %d%s %s", r.Chain, r.Number, r.InsertionCode, r.Name)
}

// Model is an atomic structure loaded into the session.
type Model struct {
	ID       string
	Name     string
	Path     string
	Color    RGB
	Residues []*Residue
}

func (m *Model) String() string {
	return fmt.Sprintf("%s #%s", m.Name, m.ID)
}

// Atoms returns every atom in residue order.
func (m *Model) Atoms() []*Atom {
	var atoms []*Atom
	for _, res := range m.Residues {
		atoms = append(atoms, res.Atoms...)
	}
	return atoms
}

// ResidueAt returns the residue at the given position in the model.
func (m *Model) ResidueAt(idx int) (*Residue, bool) {
	if idx < 0 || idx >= len(m.Residues) {
		return nil, false
	}
	return m.Residues[idx], true
}

// ResidueIndex finds the position of a residue by chain, number and insertion code.
func (m *Model) ResidueIndex(chain string, number int64, icode string) (int, bool) {
	for i, res := range m.Residues {
		if res.Chain == chain && res.Number == number && res.InsertionCode == icode {
			return i, true
		}
	}
	return -1, false
}

// Chains lists the chain identifiers in order of first appearance.
func (m *Model) Chains() []string {
	var chains []string
	seen := make(map[string]struct{})
	for _, res := range m.Residues {
		if _, ok := seen[res.Chain]; ok {
			continue
		}
		seen[res.Chain] = struct{}{}
		chains = append(chains, res.Chain)
	}
	return chains
}

// Volume is a density map on a regular grid. Data is stored x fastest.
type Volume struct {
	ID     string
	Name   string
	Path   string
	Size   [3]int     // nx, ny, nz
	Origin Coord      // position of voxel (0,0,0)
	Step   [3]float64 // voxel size along x, y, z
	Data   []float32
}

func (v *Volume) String() string {
	return fmt.Sprintf("%s #%s", v.Name, v.ID)
}

// At returns the density at voxel (x, y, z).
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[x+v.Size[0]*(y+v.Size[1]*z)]
}
