package plot

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"yashubustudio/densityfit/structure"
)

// Axis labels of the SMOC plot.
const (
	XLabel = "Residue_num"
	YLabel = "SMOC"
)

// ClickEvent is a pointer press in data coordinates. InData is false when the
// pointer was outside the plotted region.
type ClickEvent struct {
	X, Y   float64
	InData bool
}

// Curve is one line on the surface. Color channels are in 0-1.
type Curve struct {
	Label string
	Color [3]float64
	X, Y  []float64
}

// Surface is something curves can be drawn on.
type Surface interface {
	Clear()
	SetLabels(x, y string)
	AddCurve(c Curve)
	Draw() error
	OnClick(fn func(ClickEvent))
}

// SurfaceFactory creates the plotting surface on first use.
type SurfaceFactory func() (Surface, error)

// Highlighter is the host side of a residue pick.
type Highlighter interface {
	ClearSelection()
	SelectResidue(m *structure.Model, idx int) bool
}

// Manager owns the plotting surface and the snapshot behind it.
type Manager struct {
	factory SurfaceFactory
	hl      Highlighter
	logger  *log.Logger

	mu      sync.Mutex
	surface Surface

	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// NewManager returns a manager that creates its surface lazily with factory.
func NewManager(factory SurfaceFactory, hl Highlighter, logger *log.Logger) *Manager {
	return &Manager{factory: factory, hl: hl, logger: logger}
}

// Show publishes snap and redraws the surface with one curve per model.
func (m *Manager) Show(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.surface == nil {
		if m.factory == nil {
			return errors.New("no plotting surface available")
		}
		s, err := m.factory()
		if err != nil {
			return err
		}
		s.OnClick(m.HandleClick)
		m.surface = s
	}

	// The published snapshot only changes once the surface shows it, so
	// clicks never resolve against curves that are not on screen.
	if err := m.render(snap); err != nil {
		if prev := m.current.Load(); prev != nil {
			if rerr := m.render(prev); rerr != nil {
				m.logf("Restoring plot of run %s failed: %v", prev.RunID, rerr)
			}
		}
		return err
	}
	snap.Version = m.version.Add(1)
	m.current.Store(snap)
	return nil
}

func (m *Manager) render(snap *Snapshot) error {
	m.surface.Clear()
	m.surface.SetLabels(XLabel, YLabel)
	for i, model := range snap.Models {
		row := snap.Table[i]
		xs := make([]float64, len(row))
		for j := range xs {
			xs[j] = float64(j)
		}
		m.surface.AddCurve(Curve{
			Label: model.Name,
			Color: model.Color.Normalized(),
			X:     xs,
			Y:     append([]float64(nil), row...),
		})
	}
	return m.surface.Draw()
}

// Snapshot returns the snapshot currently on screen, or nil before the first run.
func (m *Manager) Snapshot() *Snapshot {
	return m.current.Load()
}

// Surface returns the plotting surface, or nil before the first run.
func (m *Manager) Surface() Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface
}

// HandleClick selects the residue nearest to a click on the plot.
func (m *Manager) HandleClick(ev ClickEvent) {
	if !ev.InData {
		return
	}
	snap := m.current.Load()
	if snap == nil {
		return
	}
	idx, r, ok := Resolve(snap.Table, ev.X, ev.Y)
	if !ok {
		return
	}
	model := snap.Models[idx]
	m.logf("Clicked residue %d on model %s", r, model)
	if m.hl == nil {
		return
	}
	if _, ok := model.ResidueAt(r); !ok {
		m.logf("%s has no residue at position %d", model, r)
		return
	}
	m.hl.ClearSelection()
	m.hl.SelectResidue(model, r)
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
