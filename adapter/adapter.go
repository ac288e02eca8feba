// Package adapter converts host structures and volumes into the flat
// representations the scoring engine consumes.
package adapter

import (
	"yashubustudio/densityfit/structure"
)

// atomicMasses is looked up by the first letter of the atom name.
var atomicMasses = map[byte]float64{'H': 1, 'C': 12, 'N': 14, 'O': 16, 'S': 32}

const (
	defaultMass       = 1.0
	vanDerWaalsRadius = 1.7
)

// AtomRecord is one atom in the engine's structure representation.
type AtomRecord struct {
	Serial        int        `json:"serial"`
	Name          string     `json:"name"`
	AltLoc        string     `json:"altLoc"`
	ResidueName   string     `json:"residueName"`
	ChainID       string     `json:"chainId"`
	ResidueNumber int64      `json:"residueNumber"`
	InsertionCode string     `json:"insertionCode"`
	Coord         [3]float64 `json:"coord"`
	Occupancy     float64    `json:"occupancy"`
	TempFactor    float64    `json:"tempFactor"`
	Element       string     `json:"element"`
	Charge        string     `json:"charge"`
	Hetero        bool       `json:"hetero"`
	Mass          float64    `json:"mass"`
	VDWRadius     float64    `json:"vdwRadius"`
	Terminal      bool       `json:"terminal"`
}

// Structure is an ordered list of atoms belonging to one model.
type Structure struct {
	Name  string       `json:"name"`
	Atoms []AtomRecord `json:"atoms"`
}

// Grid is a dense density map. Voxels are stored x fastest.
type Grid struct {
	Name    string     `json:"name"`
	Size    [3]int     `json:"size"`
	Origin  [3]float64 `json:"origin"`
	Spacing float64    `json:"spacing"`
	Voxels  []float32  `json:"voxels"`
}

// AdaptStructure flattens a model into atom records. Serial numbers are the
// atom's position in the model, not the file serial.
func AdaptStructure(m *structure.Model) Structure {
	s := Structure{Name: m.Name}
	for _, res := range m.Residues {
		for _, atom := range res.Atoms {
			s.Atoms = append(s.Atoms, AtomRecord{
				Serial:        len(s.Atoms),
				Name:          atom.Name,
				AltLoc:        atom.AltLoc,
				ResidueName:   res.Name,
				ChainID:       res.Chain,
				ResidueNumber: res.Number,
				InsertionCode: res.InsertionCode,
				Coord:         [3]float64{atom.Coord.X, atom.Coord.Y, atom.Coord.Z},
				Occupancy:     atom.Occupancy,
				TempFactor:    atom.BFactor,
				Element:       atom.Element,
				Charge:        atom.Charge,
				Hetero:        !atom.InChain,
				Mass:          massOf(atom.Name),
				VDWRadius:     vanDerWaalsRadius,
			})
		}
	}
	return s
}

// AdaptVolume copies the grid geometry of a volume. Only the x voxel size is
// kept; anisotropic sampling cannot be expressed in the engine's map type.
func AdaptVolume(v *structure.Volume) Grid {
	return Grid{
		Name:    v.Name,
		Size:    v.Size,
		Origin:  [3]float64{v.Origin.X, v.Origin.Y, v.Origin.Z},
		Spacing: v.Step[0],
		Voxels:  v.Data,
	}
}

func massOf(atomName string) float64 {
	if atomName == "" {
		return defaultMass
	}
	if m, ok := atomicMasses[atomName[0]]; ok {
		return m
	}
	return defaultMass
}
