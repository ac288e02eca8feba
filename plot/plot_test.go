package plot

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"yashubustudio/densityfit/structure"
)

func TestResolve(t *testing.T) {
	table := ScoreTable{{0.1, 0.5, 0.9}, {0.2, 0.6, 0.8}}

	tests := []struct {
		name    string
		x, y    float64
		model   int
		residue int
		ok      bool
	}{
		{"nearest curve wins", 1.4, 0.58, 1, 1, true},
		{"fraction rounds down", 0.99, 0.1, 0, 0, true},
		{"last column", 2.7, 0.95, 0, 2, true},
		{"past the end", 3.0, 0.5, 0, 0, false},
		{"left of the first residue", -0.2, 0.5, 0, 0, false},
		{"nan", math.NaN(), 0.5, 0, 0, false},
		{"inf", 1, math.Inf(1), 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, residue, ok := Resolve(table, tt.x, tt.y)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.model, model)
				assert.Equal(t, tt.residue, residue)
			}
		})
	}
}

func TestResolveTieKeepsEarliestModel(t *testing.T) {
	table := ScoreTable{{0.3, 0.4}, {0.9, 0.5}, {0.3, 0.5}}
	model, residue, ok := Resolve(table, 0.5, 0.3)
	require.True(t, ok)
	assert.Equal(t, 0, model)
	assert.Equal(t, 0, residue)

	model, _, ok = Resolve(table, 1.2, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1, model)
}

func TestResolveRaggedRows(t *testing.T) {
	table := ScoreTable{{0.1, 0.2, 0.3, 0.4}, {0.1, 0.2}}
	_, _, ok := Resolve(table, 3.1, 0.4)
	assert.False(t, ok, "column missing from a shorter row")
	_, _, ok = Resolve(table, 1.5, 0.2)
	assert.True(t, ok)
	_, _, ok = Resolve(nil, 0, 0)
	assert.False(t, ok)
}

type fakeSurface struct {
	clears  int
	draws   int
	xLabel  string
	yLabel  string
	curves  []Curve
	onClick func(ClickEvent)
	hooks   int
	drawErr error
}

func (f *fakeSurface) Clear() {
	f.clears++
	f.curves = nil
}

func (f *fakeSurface) SetLabels(x, y string) { f.xLabel, f.yLabel = x, y }

func (f *fakeSurface) AddCurve(c Curve) { f.curves = append(f.curves, c) }

func (f *fakeSurface) Draw() error {
	f.draws++
	err := f.drawErr
	f.drawErr = nil
	return err
}

func (f *fakeSurface) OnClick(fn func(ClickEvent)) {
	f.hooks++
	f.onClick = fn
}

type mockHighlighter struct {
	mock.Mock
}

func (m *mockHighlighter) ClearSelection() { m.Called() }

func (m *mockHighlighter) SelectResidue(model *structure.Model, idx int) bool {
	return m.Called(model, idx).Bool(0)
}

func scoredModel(id, name string, residues int, c structure.RGB) *structure.Model {
	m := &structure.Model{ID: id, Name: name, Color: c}
	for i := 0; i < residues; i++ {
		m.Residues = append(m.Residues, &structure.Residue{Chain: "A", Number: int64(i + 1), Name: "ALA"})
	}
	return m
}

func newTestManager(hl Highlighter) (*Manager, *fakeSurface, *int) {
	surface := &fakeSurface{}
	created := 0
	factory := func() (Surface, error) {
		created++
		return surface, nil
	}
	return NewManager(factory, hl, nil), surface, &created
}

func TestManagerShow(t *testing.T) {
	mgr, surface, created := newTestManager(nil)
	assert.Nil(t, mgr.Snapshot())
	assert.Nil(t, mgr.Surface())

	m0 := scoredModel("1", "modelX", 3, structure.RGB{R: 255, G: 51})
	m1 := scoredModel("2", "modelZ", 3, structure.RGB{B: 255})
	first := NewSnapshot([]*structure.Model{m0, m1}, ScoreTable{{0.1, 0.5, 0.9}, {0.2, 0.6, 0.8}})
	require.NoError(t, mgr.Show(first))

	assert.Equal(t, 1, *created)
	assert.Equal(t, 1, surface.hooks)
	assert.Equal(t, XLabel, surface.xLabel)
	assert.Equal(t, YLabel, surface.yLabel)
	require.Len(t, surface.curves, 2)
	assert.Equal(t, Curve{Label: "modelX", Color: [3]float64{1, 0.2, 0}, X: []float64{0, 1, 2}, Y: []float64{0.1, 0.5, 0.9}}, surface.curves[0])
	assert.Equal(t, [3]float64{0, 0, 1}, surface.curves[1].Color)
	assert.Same(t, first, mgr.Snapshot())

	second := NewSnapshot([]*structure.Model{m1}, ScoreTable{{0.4, 0.4}})
	require.NoError(t, mgr.Show(second))

	assert.Equal(t, 1, *created, "surface is reused")
	assert.Equal(t, 1, surface.hooks, "click handler is registered once")
	assert.Equal(t, 2, surface.clears)
	assert.Equal(t, 2, surface.draws)
	require.Len(t, surface.curves, 1, "curves are replaced, not accumulated")
	assert.Same(t, second, mgr.Snapshot())
	assert.Len(t, mgr.Snapshot().Models, 1)
	assert.Equal(t, ScoreTable{{0.4, 0.4}}, mgr.Snapshot().Table)
	assert.Greater(t, second.Version, first.Version)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestManagerShowRejectsInvalidSnapshot(t *testing.T) {
	mgr, _, created := newTestManager(nil)
	m0 := scoredModel("1", "modelX", 1, structure.RGB{})

	assert.Error(t, mgr.Show(NewSnapshot([]*structure.Model{m0}, ScoreTable{{}})))
	assert.Error(t, mgr.Show(NewSnapshot([]*structure.Model{m0}, nil)))
	assert.Equal(t, 0, *created)
	assert.Nil(t, mgr.Snapshot())

	failing := NewManager(func() (Surface, error) { return nil, errors.New("no display") }, nil, nil)
	assert.EqualError(t, failing.Show(NewSnapshot([]*structure.Model{m0}, ScoreTable{{1}})), "no display")
}

func TestManagerShowKeepsSnapshotWhenDrawFails(t *testing.T) {
	hl := &mockHighlighter{}
	mgr, surface, _ := newTestManager(hl)
	m0 := scoredModel("1", "modelX", 3, structure.RGB{})
	m1 := scoredModel("2", "modelZ", 3, structure.RGB{})

	surface.drawErr = errors.New("surface lost")
	assert.EqualError(t, mgr.Show(NewSnapshot([]*structure.Model{m0}, ScoreTable{{0.1, 0.5, 0.9}})), "surface lost")
	assert.Nil(t, mgr.Snapshot())

	first := NewSnapshot([]*structure.Model{m0}, ScoreTable{{0.1, 0.5, 0.9}})
	require.NoError(t, mgr.Show(first))
	assert.Equal(t, uint64(1), first.Version)

	surface.drawErr = errors.New("surface lost")
	second := NewSnapshot([]*structure.Model{m1}, ScoreTable{{0.2, 0.6, 0.8}})
	assert.Error(t, mgr.Show(second))
	assert.Same(t, first, mgr.Snapshot())
	assert.Zero(t, second.Version)
	require.Len(t, surface.curves, 1)
	assert.Equal(t, "modelX", surface.curves[0].Label, "previous run is drawn again")

	// Clicks still resolve against the run on screen.
	hl.On("ClearSelection").Once()
	hl.On("SelectResidue", m0, 2).Return(true).Once()
	surface.onClick(ClickEvent{X: 2, Y: 0.9, InData: true})
	hl.AssertExpectations(t)
}

func TestManagerHandleClick(t *testing.T) {
	hl := &mockHighlighter{}
	mgr, surface, _ := newTestManager(hl)

	m0 := scoredModel("1", "modelX", 3, structure.RGB{})
	m1 := scoredModel("2", "modelZ", 3, structure.RGB{})
	require.NoError(t, mgr.Show(NewSnapshot([]*structure.Model{m0, m1}, ScoreTable{{0.1, 0.5, 0.9}, {0.2, 0.6, 0.8}})))

	hl.On("ClearSelection").Once()
	hl.On("SelectResidue", m1, 1).Return(true).Once()
	surface.onClick(ClickEvent{X: 1.4, Y: 0.58, InData: true})
	hl.AssertExpectations(t)

	// Outside the axes, out of range and beyond the host model are all ignored.
	surface.onClick(ClickEvent{X: 1.4, Y: 0.58, InData: false})
	surface.onClick(ClickEvent{X: 5, Y: 0.5, InData: true})
	hl.AssertNumberOfCalls(t, "ClearSelection", 1)
	hl.AssertNumberOfCalls(t, "SelectResidue", 1)
}

func TestManagerHandleClickResidueMissingFromHost(t *testing.T) {
	hl := &mockHighlighter{}
	mgr, _, _ := newTestManager(hl)
	short := scoredModel("1", "modelX", 1, structure.RGB{})
	require.NoError(t, mgr.Show(NewSnapshot([]*structure.Model{short}, ScoreTable{{0.1, 0.2}})))

	mgr.HandleClick(ClickEvent{X: 1, Y: 0.2, InData: true})
	hl.AssertNotCalled(t, "ClearSelection")
}

func TestHandleClickBeforeFirstRun(t *testing.T) {
	hl := &mockHighlighter{}
	NewManager(nil, hl, nil).HandleClick(ClickEvent{X: 0, Y: 0, InData: true})
	hl.AssertNotCalled(t, "ClearSelection")
}

func TestPNGSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoc.png")
	s := NewPNGSurface(path)
	var got []ClickEvent
	s.OnClick(func(ev ClickEvent) { got = append(got, ev) })

	s.Click(0, 0)
	s.SetLabels(XLabel, YLabel)
	s.AddCurve(Curve{Label: "modelX", Color: [3]float64{1, 0, 0}, X: []float64{0, 1, 2}, Y: []float64{0.1, 0.5, 0.9}})
	require.NoError(t, s.Draw())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	s.Click(1.2, 0.4)
	s.Click(7, 0.4)
	require.Len(t, got, 3)
	assert.False(t, got[0].InData, "nothing drawn yet")
	assert.True(t, got[1].InData)
	assert.False(t, got[2].InData)

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf, "png"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	s.Clear()
	assert.Error(t, s.Encode(&buf, "png"))
}

func exportSnapshot() *Snapshot {
	m0 := scoredModel("1", "modelX", 3, structure.RGB{})
	snap := NewSnapshot([]*structure.Model{m0}, ScoreTable{{0.25, 0.5, 0.75}})
	snap.Chains = [][]ChainSpan{{{Chain: "A", Start: 0}, {Chain: "B", Start: 2}}}
	snap.Residues = [][]int64{{10, 11, 1}}
	return snap
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportSnapshot()))
	want := "model,model_id,chain,index,residue,score\n" +
		"modelX,1,A,0,10,0.25\n" +
		"modelX,1,A,1,11,0.5\n" +
		"modelX,1,B,2,1,0.75\n"
	assert.Equal(t, want, buf.String())

	assert.Error(t, WriteCSV(&buf, nil))
}

func TestWriteParquet(t *testing.T) {
	snap := exportSnapshot()
	path := filepath.Join(t.TempDir(), "smoc.parquet")
	require.NoError(t, WriteParquet(snap, path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	reader := parquet.NewGenericReader[ScoreRecord](file)
	defer reader.Close()
	rows := make([]ScoreRecord, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, snap.Records(), rows)
	assert.Equal(t, snap.RunID.String(), rows[0].RunID)
}

func TestSnapshotAnnotationsDefault(t *testing.T) {
	snap := NewSnapshot([]*structure.Model{scoredModel("1", "m", 2, structure.RGB{})}, ScoreTable{{1, 2}})
	assert.Equal(t, "", snap.ChainAt(0, 1))
	assert.Equal(t, int64(1), snap.ResidueNumber(0, 1))

	snap.Residues = [][]int64{{1}}
	assert.Error(t, snap.Validate())
}
