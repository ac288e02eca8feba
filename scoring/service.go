// Package scoring drives the SCCC, SMOC and NMI runs from panel input to
// engine call and result publication.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"yashubustudio/densityfit/adapter"
	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/plot"
	"yashubustudio/densityfit/selection"
	"yashubustudio/densityfit/structure"
)

// Host provides the current selection.
type Host interface {
	Selection() selection.Set
}

// Presenter displays a finished SMOC run.
type Presenter interface {
	Show(snap *plot.Snapshot) error
}

// Service orchestrates one scoring run at a time.
type Service struct {
	host      Host
	engine    engine.Engine
	presenter Presenter
	logger    *log.Logger

	busy atomic.Bool
}

// NewService wires the orchestrator. presenter may be nil, in which case SMOC
// results are only returned.
func NewService(host Host, eng engine.Engine, presenter Presenter, logger *log.Logger) (*Service, error) {
	if host == nil {
		return nil, errors.New("host is required")
	}
	if eng == nil {
		return nil, errors.New("scoring engine is required")
	}
	return &Service{host: host, engine: eng, presenter: presenter, logger: logger}, nil
}

// Busy reports whether a run is in flight.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

func (s *Service) acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (s *Service) release() {
	s.busy.Store(false)
}

// SCCCRun is a finished SCCC run: the engine result and the entities it
// resolved from the selection.
type SCCCRun struct {
	engine.SCCCResult
	Model  *structure.Model
	Volume *structure.Volume
}

// RunSCCC scores the rigid bodies of the first selected model against the
// first selected map. The engine recolours the model.
func (s *Service) RunSCCC(ctx context.Context, f Fields) (SCCCRun, error) {
	if err := s.acquire(); err != nil {
		return SCCCRun{}, err
	}
	defer s.release()

	req, err := ParseSCCC(f)
	if err != nil {
		return SCCCRun{}, err
	}
	if !isFile(req.RigidBodyFile) {
		return SCCCRun{}, &MissingFileError{Path: req.RigidBodyFile}
	}
	model, vol, err := selection.OneModelOneMap(s.host.Selection())
	if err != nil {
		return SCCCRun{}, err
	}

	res, err := s.engine.SCCC(ctx, engine.SCCCInput{
		Model:         model,
		Structure:     adapter.AdaptStructure(model),
		Map:           adapter.AdaptVolume(vol),
		RigidBodyFile: req.RigidBodyFile,
		Resolution:    req.Resolution,
		Sigma:         req.Sigma,
	})
	if err != nil {
		return SCCCRun{}, fmt.Errorf("sccc %s against %s: %w", model, vol, err)
	}
	s.logf("SCCC scored %d rigid bodies of %s against %s", len(res.Segments), model, vol)
	return SCCCRun{SCCCResult: res, Model: model, Volume: vol}, nil
}

// RunSMOC scores every selected model against the first selected map and
// publishes the per-residue curves. A rigid-body path that does not exist is
// dropped rather than reported.
func (s *Service) RunSMOC(ctx context.Context, f Fields) (*plot.Snapshot, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	req, err := ParseSMOC(f)
	if err != nil {
		return nil, err
	}
	if req.RigidBodyFile != "" && !isFile(req.RigidBodyFile) {
		s.logf("Rigid-body file %s not found, scoring without it", req.RigidBodyFile)
		req.RigidBodyFile = ""
	}
	models, vol, err := selection.ManyModelsOneMap(s.host.Selection())
	if err != nil {
		return nil, err
	}

	in := engine.SMOCInput{
		Map:           adapter.AdaptVolume(vol),
		RigidBodyFile: req.RigidBodyFile,
		Resolution:    req.Resolution,
		Sigma:         req.Sigma,
		Window:        req.Window,
	}
	for _, m := range models {
		in.Structures = append(in.Structures, adapter.AdaptStructure(m))
	}
	scores, err := s.engine.SMOC(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("smoc against %s: %w", vol, err)
	}
	snap, err := Flatten(models, scores)
	if err != nil {
		return nil, err
	}
	if s.presenter != nil {
		if err := s.presenter.Show(snap); err != nil {
			return nil, fmt.Errorf("show smoc scores: %w", err)
		}
	}
	s.logf("SMOC scored %d models against %s", len(models), vol)
	return snap, nil
}

// RunNMI scores a model against a map, or two maps against each other.
func (s *Service) RunNMI(ctx context.Context, f Fields) (float64, error) {
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.release()

	req, err := ParseNMI(f)
	if err != nil {
		return 0, err
	}
	a, b, err := selection.ExactlyTwo(s.host.Selection())
	if err != nil {
		return 0, err
	}

	in := engine.NMIInput{
		Resolution1: req.Resolution,
		Resolution2: req.Resolution2,
		Contour1:    req.Contour1,
		Contour2:    req.Contour2,
	}
	switch {
	case a.Kind == selection.KindAtomic && b.Kind == selection.KindVolume:
		st := adapter.AdaptStructure(a.Model)
		in.Structure = &st
		in.Map = adapter.AdaptVolume(b.Volume)
	case a.Kind == selection.KindVolume && b.Kind == selection.KindAtomic:
		st := adapter.AdaptStructure(b.Model)
		in.Structure = &st
		in.Map = adapter.AdaptVolume(a.Volume)
	case a.Kind == selection.KindVolume && b.Kind == selection.KindVolume:
		in.Map = adapter.AdaptVolume(a.Volume)
		second := adapter.AdaptVolume(b.Volume)
		in.Map2 = &second
	default:
		return 0, &selection.Error{Msg: "please provide a map and model, or two maps"}
	}

	score, err := s.engine.NMI(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("nmi %s and %s: %w", a.Name, b.Name, err)
	}
	s.logf("NMI score: %.4f", score)
	return score, nil
}

// Flatten concatenates the chains of every model, in engine order, into one
// score row per model.
func Flatten(models []*structure.Model, scores []engine.ModelScores) (*plot.Snapshot, error) {
	if len(scores) != len(models) {
		return nil, fmt.Errorf("engine returned scores for %d of %d models", len(scores), len(models))
	}
	table := make(plot.ScoreTable, len(models))
	chains := make([][]plot.ChainSpan, len(models))
	residues := make([][]int64, len(models))
	for i, ms := range scores {
		for _, ch := range ms.Chains {
			if len(ch.Residues) == 0 {
				continue
			}
			chains[i] = append(chains[i], plot.ChainSpan{Chain: ch.Chain, Start: len(table[i])})
			for j := range ch.Residues {
				ref, score, ok := ch.Residue(j)
				if !ok {
					return nil, fmt.Errorf("engine: missing score for residue %s %d%s of %s", ref.Chain, ref.Number, ref.InsertionCode, models[i])
				}
				table[i] = append(table[i], score)
				residues[i] = append(residues[i], ref.Number)
			}
		}
		if len(table[i]) == 0 {
			return nil, fmt.Errorf("engine: no residues scored for %s", models[i])
		}
	}
	snap := plot.NewSnapshot(models, table)
	snap.Chains = chains
	snap.Residues = residues
	return snap, nil
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
