// Package engine defines the scoring engine contract and a bridge that runs an
// external scorer process.
package engine

import (
	"context"
	"fmt"
	"strconv"

	"yashubustudio/densityfit/adapter"
	"yashubustudio/densityfit/structure"
)

// Engine computes fit scores between adapted structures and density grids.
// Implementations report physically invalid parameters as errors.
type Engine interface {
	SCCC(ctx context.Context, in SCCCInput) (SCCCResult, error)
	SMOC(ctx context.Context, in SMOCInput) ([]ModelScores, error)
	NMI(ctx context.Context, in NMIInput) (float64, error)
}

// SCCCInput scores rigid segments of one model against a map. Model is the host
// model that is recoloured with the result; it is never sent to the scorer.
type SCCCInput struct {
	Model         *structure.Model  `json:"-"`
	Structure     adapter.Structure `json:"structure"`
	Map           adapter.Grid      `json:"map"`
	RigidBodyFile string            `json:"rigidBodyFile"`
	Resolution    float64           `json:"resolution"`
	Sigma         float64           `json:"sigma"`
}

// ResidueRef identifies a residue inside a scored structure.
type ResidueRef struct {
	Chain         string `json:"chain"`
	Number        int64  `json:"number"`
	InsertionCode string `json:"insertionCode,omitempty"`
}

// Segment is one rigid body and its SCCC score.
type Segment struct {
	Residues []ResidueRef `json:"residues"`
	Score    float64      `json:"score"`
}

type SCCCResult struct {
	Segments []Segment `json:"segments"`
}

// SMOCInput scores every residue of several models against one map. An empty
// RigidBodyFile means no rigid-body grouping.
type SMOCInput struct {
	Structures    []adapter.Structure `json:"structures"`
	Map           adapter.Grid        `json:"map"`
	RigidBodyFile string              `json:"rigidBodyFile,omitempty"`
	Resolution    float64             `json:"resolution"`
	Sigma         float64             `json:"sigma"`
	Window        int                 `json:"window"`
}

// ChainScores holds the ordered residues of a chain and their scores, keyed by
// ScoreKey. InsertionCodes runs parallel to Residues and may be omitted when no
// residue of the chain has one.
type ChainScores struct {
	Chain          string             `json:"chain"`
	Residues       []int64            `json:"residues"`
	InsertionCodes []string           `json:"insertionCodes,omitempty"`
	Scores         map[string]float64 `json:"scores"`
}

// ScoreKey is the score key of a residue, so 52 and 52A are scored apart.
func ScoreKey(number int64, icode string) string {
	return strconv.FormatInt(number, 10) + icode
}

// Residue returns the i-th residue of the chain and its score.
func (c ChainScores) Residue(i int) (ResidueRef, float64, bool) {
	ref := ResidueRef{Chain: c.Chain, Number: c.Residues[i]}
	if i < len(c.InsertionCodes) {
		ref.InsertionCode = c.InsertionCodes[i]
	}
	score, ok := c.Scores[ScoreKey(ref.Number, ref.InsertionCode)]
	return ref, score, ok
}

// ModelScores is the SMOC result for one input structure, chains in engine order.
type ModelScores struct {
	Chains []ChainScores `json:"chains"`
}

// NMIInput takes either a structure and a map, or two maps. Structure and Map2
// are mutually exclusive.
type NMIInput struct {
	Structure   *adapter.Structure `json:"structure,omitempty"`
	Map         adapter.Grid       `json:"map"`
	Map2        *adapter.Grid      `json:"map2,omitempty"`
	Resolution1 float64            `json:"resolution1"`
	Resolution2 float64            `json:"resolution2"`
	Contour1    float64            `json:"contour1"`
	Contour2    float64            `json:"contour2"`
}

// Error is a failure reported by the scorer itself, typically a parameter the
// scoring mathematics rejects.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}
