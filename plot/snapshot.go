// Package plot draws SMOC score curves and maps clicks on them back to residues.
package plot

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"yashubustudio/densityfit/structure"
)

// ScoreTable holds one row of per-residue scores per scored model. Column i is
// the i-th residue in the flattened chain order of that model.
type ScoreTable [][]float64

// ChainSpan marks where a chain starts within a flattened row.
type ChainSpan struct {
	Chain string
	Start int
}

// Snapshot is the immutable result of one SMOC run. Models[i] produced Table[i].
type Snapshot struct {
	RunID   uuid.UUID
	Version uint64

	Models   []*structure.Model
	Table    ScoreTable
	Chains   [][]ChainSpan
	Residues [][]int64 // residue numbers, parallel to Table
}

// NewSnapshot starts a snapshot for a new run.
func NewSnapshot(models []*structure.Model, table ScoreTable) *Snapshot {
	return &Snapshot{RunID: uuid.New(), Models: models, Table: table}
}

// Validate checks that every model has a non-empty row and that the optional
// chain and residue annotations line up with the table.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	if len(s.Models) == 0 {
		return errors.New("snapshot has no models")
	}
	if len(s.Models) != len(s.Table) {
		return fmt.Errorf("snapshot has %d models but %d score rows", len(s.Models), len(s.Table))
	}
	for i, row := range s.Table {
		if len(row) == 0 {
			return fmt.Errorf("no scores for model %s", s.Models[i])
		}
	}
	if s.Residues != nil {
		if len(s.Residues) != len(s.Table) {
			return errors.New("residue numbers do not match the score rows")
		}
		for i := range s.Residues {
			if len(s.Residues[i]) != len(s.Table[i]) {
				return fmt.Errorf("model %s has %d residue numbers for %d scores", s.Models[i], len(s.Residues[i]), len(s.Table[i]))
			}
		}
	}
	if s.Chains != nil && len(s.Chains) != len(s.Table) {
		return errors.New("chain spans do not match the score rows")
	}
	return nil
}

// ChainAt returns the chain id of column idx in row model, or "" when chain
// spans are not recorded.
func (s *Snapshot) ChainAt(model, idx int) string {
	if model >= len(s.Chains) {
		return ""
	}
	chain := ""
	for _, span := range s.Chains[model] {
		if span.Start > idx {
			break
		}
		chain = span.Chain
	}
	return chain
}

// ResidueNumber returns the residue number of column idx in row model, or the
// column index itself when numbers are not recorded.
func (s *Snapshot) ResidueNumber(model, idx int) int64 {
	if model < len(s.Residues) && idx < len(s.Residues[model]) {
		return s.Residues[model][idx]
	}
	return int64(idx)
}

// Resolve finds the curve closest to (x, y). The residue column is floor(x);
// the click is rejected when that column is missing from any row. Ties go to
// the lower model index.
func Resolve(table ScoreTable, x, y float64) (model, residue int, ok bool) {
	if len(table) == 0 || !finite(x) || !finite(y) {
		return 0, 0, false
	}
	col := math.Floor(x)
	if col < 0 {
		return 0, 0, false
	}
	for _, row := range table {
		if col >= float64(len(row)) {
			return 0, 0, false
		}
	}
	r := int(col)

	best := 0
	bestDist := math.Abs(table[0][r] - y)
	for i, row := range table {
		if d := math.Abs(row[r] - y); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, r, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
