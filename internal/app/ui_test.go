package app

import (
	"bytes"
	"encoding/binary"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/plot"
	"yashubustudio/densityfit/scoring"
	"yashubustudio/densityfit/selection"
	"yashubustudio/densityfit/structure"
)

const threeResiduePDB = `ATOM      1  N   GLY A   1      11.104   6.134  -6.504  1.00 20.00           N
ATOM      2  CA  LEU A   2      11.639   6.071  -5.147  1.00 20.00           C
ATOM      3  N   SER A   3      12.000   7.000  -4.000  1.00 25.00           N
END
`

func tinyMap() []byte {
	buf := make([]byte, 1024+8)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], 2)
	le.PutUint32(buf[4:], 1)
	le.PutUint32(buf[8:], 1)
	le.PutUint32(buf[12:], 2)
	le.PutUint32(buf[40:], math.Float32bits(3))
	le.PutUint32(buf[44:], math.Float32bits(1.5))
	le.PutUint32(buf[48:], math.Float32bits(1.5))
	buf[212] = 0x44
	le.PutUint32(buf[1024:], math.Float32bits(0.25))
	le.PutUint32(buf[1028:], math.Float32bits(0.75))
	return buf
}

func newTestUI(t *testing.T, eng engine.Engine) *uiState {
	t.Helper()
	a := test.NewTempApp(t)
	var cfg scoring.Config
	cfg.ApplyDefaults()
	u, err := buildUI(a, cfg, func(engine.Colorer, *log.Logger) (engine.Engine, error) {
		return eng, nil
	})
	require.NoError(t, err)
	return u
}

func openFile(t *testing.T, u *uiState, name string, data []byte) selection.Entity {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	u.openPath(path)
	entities := u.session.Entities()
	require.NotEmpty(t, entities)
	return entities[len(entities)-1]
}

func TestSMOCRunShowsPlotAndTapSelectsResidue(t *testing.T) {
	eng := &engine.MockEngine{}
	eng.On("SMOC", mock.Anything, mock.Anything).Return([]engine.ModelScores{{
		Chains: []engine.ChainScores{{
			Chain:    "A",
			Residues: []int64{1, 2, 3},
			Scores:   map[string]float64{"1": 0.4, "2": 0.8, "3": 0.5},
		}},
	}}, nil)
	u := newTestUI(t, eng)

	model := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	vol := openFile(t, u, "mapY.mrc", tinyMap())
	assert.Len(t, u.entities, 2)
	require.NoError(t, u.session.Select(model.ID))
	require.NoError(t, u.session.Select(vol.ID))

	assert.False(t, u.plotBox.Visible())
	<-u.onRunSMOC()
	eng.AssertExpectations(t)

	assert.True(t, u.plotBox.Visible())
	curves := u.plotView.Curves()
	require.Len(t, curves, 1)
	assert.Equal(t, "modelX", curves[0].Label)
	assert.Equal(t, []float64{0.4, 0.8, 0.5}, curves[0].Y)
	assert.Same(t, u.plotView, u.plots.Surface())

	u.plotView.Resize(fyne.NewSize(400, 300))
	test.TapAt(u.plotView, u.plotView.toPixel(1.4, 0.8))

	assert.Equal(t, []int{1}, u.session.SelectedResidues(model.Model))
	assert.Equal(t, []string{model.ID}, ids(u.session.Selection()))
	status, _ := u.statusBind.Get()
	assert.Equal(t, "Selected A 2 LEU in modelX #1", status)
}

func TestSCCCRunListsRigidBodiesInTheirColours(t *testing.T) {
	green := structure.RGB{G: 255}
	red := structure.RGB{R: 255}
	eng := &engine.MockEngine{}
	u := newTestUI(t, eng)
	eng.On("SCCC", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(engine.SCCCInput)
		u.session.ColorResidues(in.Model, []int{0, 1}, green)
		u.session.ColorResidues(in.Model, []int{2}, red)
	}).Return(engine.SCCCResult{Segments: []engine.Segment{
		{Residues: []engine.ResidueRef{{Chain: "A", Number: 1}, {Chain: "A", Number: 2}}, Score: 0.7},
		{Residues: []engine.ResidueRef{{Chain: "A", Number: 3}}, Score: 0.2},
	}}, nil).Once()

	rigid := filepath.Join(t.TempDir(), "rigid.txt")
	require.NoError(t, os.WriteFile(rigid, []byte("1 2\n3 3\n"), 0o644))
	u.sccc.rigid.SetText(rigid)
	model := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	vol := openFile(t, u, "mapY.mrc", tinyMap())
	require.NoError(t, u.session.Select(model.ID))
	require.NoError(t, u.session.Select(vol.ID))

	<-u.onRunSCCC()
	eng.AssertExpectations(t)

	assert.Equal(t, []segmentRow{
		{Label: "1. A 1 - A 2 (2 residues)", Score: "0.7000", Color: green.NRGBA()},
		{Label: "2. A 3 - A 3 (1 residues)", Score: "0.2000", Color: red.NRGBA()},
	}, u.segmentRows)
	assert.Equal(t, 2, u.segments.Length())

	row := u.segments.CreateItem()
	u.segments.UpdateItem(1, row)
	box := row.(*fyne.Container)
	assert.Equal(t, red.NRGBA(), box.Objects[0].(*canvas.Rectangle).FillColor)
	assert.Equal(t, "2. A 3 - A 3 (1 residues)", box.Objects[1].(*widget.Label).Text)
	assert.Equal(t, "0.2000", box.Objects[3].(*widget.Label).Text)
}

func TestSegmentRowsWithoutRecolouring(t *testing.T) {
	u := newTestUI(t, &engine.MockEngine{})
	model := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	run := scoring.SCCCRun{Model: model.Model}
	run.Segments = []engine.Segment{
		{Residues: []engine.ResidueRef{{Chain: "B", Number: 9}}, Score: 0.5},
		{Score: 0.1},
	}
	rows := rigidBodyRows(u.session, run)
	require.Len(t, rows, 2)
	assert.Equal(t, uncolored, rows[0].Color)
	assert.Equal(t, "2. no residues", rows[1].Label)
}

func TestTapOutsidePlotAreaIsIgnored(t *testing.T) {
	eng := &engine.MockEngine{}
	eng.On("SMOC", mock.Anything, mock.Anything).Return([]engine.ModelScores{{
		Chains: []engine.ChainScores{{Chain: "A", Residues: []int64{1, 2}, Scores: map[string]float64{"1": 0.1, "2": 0.2}}},
	}}, nil)
	u := newTestUI(t, eng)
	model := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	vol := openFile(t, u, "mapY.mrc", tinyMap())
	require.NoError(t, u.session.Select(model.ID))
	require.NoError(t, u.session.Select(vol.ID))
	<-u.onRunSMOC()

	u.plotView.Resize(fyne.NewSize(400, 300))
	test.TapAt(u.plotView, fyne.NewPos(2, 2))

	assert.Empty(t, u.session.SelectedResidues(model.Model))
	assert.Len(t, u.session.Selection(), 2)
}

func TestRunNMIWithTwoModelsReportsError(t *testing.T) {
	eng := &engine.MockEngine{}
	u := newTestUI(t, eng)
	a := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	b := openFile(t, u, "modelZ.pdb", []byte(threeResiduePDB))
	require.NoError(t, u.session.Select(a.ID))
	require.NoError(t, u.session.Select(b.ID))

	<-u.onRunNMI()

	eng.AssertNotCalled(t, "NMI", mock.Anything, mock.Anything)
	assert.Contains(t, u.logText(), "TEMPy error: please provide a map and model, or two maps")
	status, _ := u.statusBind.Get()
	assert.Equal(t, "NMI failed", status)
	assert.False(t, u.nmiBtn.Disabled())
}

func TestRunNMIReportsScore(t *testing.T) {
	eng := &engine.MockEngine{}
	eng.On("NMI", mock.Anything, mock.Anything).Return(0.8125, nil)
	u := newTestUI(t, eng)
	a := openFile(t, u, "mapA.mrc", tinyMap())
	b := openFile(t, u, "mapB.mrc", tinyMap())
	require.NoError(t, u.session.Select(a.ID))
	require.NoError(t, u.session.Select(b.ID))

	<-u.onRunNMI()

	assert.Contains(t, u.logText(), "NMI score: 0.8125")
	status, _ := u.statusBind.Get()
	assert.Contains(t, status, "NMI score 0.8125")
}

func TestFailedSMOCKeepsPlotHidden(t *testing.T) {
	eng := &engine.MockEngine{}
	u := newTestUI(t, eng)
	model := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	vol := openFile(t, u, "mapY.mrc", tinyMap())
	require.NoError(t, u.session.Select(model.ID))
	require.NoError(t, u.session.Select(vol.ID))

	u.smoc.sigma.SetText("abc")
	<-u.onRunSMOC()

	eng.AssertNotCalled(t, "SMOC", mock.Anything, mock.Anything)
	assert.False(t, u.plotBox.Visible())
	assert.Nil(t, u.plots.Snapshot())
	assert.Contains(t, u.logText(), "TEMPy error: check the values for sigma")
}

func TestOpenUnsupportedFile(t *testing.T) {
	u := newTestUI(t, &engine.MockEngine{})
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	u.openPath(path)

	assert.Empty(t, u.entities)
	assert.Contains(t, u.logText(), "unsupported file type")
}

func TestCloseSelected(t *testing.T) {
	u := newTestUI(t, &engine.MockEngine{})
	a := openFile(t, u, "modelX.pdb", []byte(threeResiduePDB))
	openFile(t, u, "mapY.mrc", tinyMap())
	u.toggleEntity(a.ID, true)

	u.onCloseSelected()

	require.Len(t, u.entities, 1)
	assert.Equal(t, "mapY", u.entities[0].Name)
	assert.Contains(t, u.logText(), "Closed #1 modelX")
}

func TestCurrentConfigReflectsEntries(t *testing.T) {
	u := newTestUI(t, &engine.MockEngine{})
	assert.Equal(t, "9", u.smoc.window.Text)
	assert.Nil(t, u.nmi.sigma)

	u.smoc.window.SetText("11")
	u.sccc.rigid.SetText("/data/rigid.txt")
	u.nmi.contour2.SetText("0.5")
	cfg := u.currentConfig()

	assert.Equal(t, "11", cfg.SMOC.Window)
	assert.Equal(t, "/data/rigid.txt", cfg.SCCC.RigidBodyFile)
	assert.Equal(t, "0.5", cfg.NMI.Contour2)
	assert.Empty(t, cfg.NMI.Sigma)
}

func TestLogCaptureSplitsLines(t *testing.T) {
	u := &uiState{}
	u.logBind = binding.NewString()
	n, err := logCapture{u}.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
	assert.Len(t, u.logLines, 2)
	assert.Contains(t, u.logLines[1], "second")

	text, _ := u.logBind.Get()
	assert.Contains(t, text, "first")
}

func TestPlotViewZoomAndReplay(t *testing.T) {
	test.NewTempApp(t)
	p := NewPlotView()
	p.Resize(fyne.NewSize(400, 300))
	p.SetLabels(plot.XLabel, plot.YLabel)
	p.AddCurve(plot.Curve{Label: "m", Color: [3]float64{1, 0, 0}, X: seq(21), Y: seq(21)})
	require.NoError(t, p.Draw())

	lo, hi := p.VisibleRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 20.0, hi)

	p.Zoom(0.5)
	lo, hi = p.VisibleRange()
	assert.InDelta(t, 5, lo, 1e-9)
	assert.InDelta(t, 15, hi, 1e-9)

	p.Zoom(0.01)
	lo, hi = p.VisibleRange()
	assert.InDelta(t, minZoomSpan, hi-lo, 1e-9)

	p.Zoom(100)
	lo, hi = p.VisibleRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 20.0, hi)

	var clicks []plot.ClickEvent
	p.OnClick(func(ev plot.ClickEvent) { clicks = append(clicks, ev) })
	test.TapAt(p, p.toPixel(10, 10))
	require.Len(t, clicks, 1)
	assert.True(t, clicks[0].InData)
	assert.InDelta(t, 10, clicks[0].X, 0.1)

	png := plot.NewPNGSurface("")
	require.NoError(t, p.Replay(png))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, "png"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestPlotViewEmptyDraw(t *testing.T) {
	test.NewTempApp(t)
	p := NewPlotView()
	require.NoError(t, p.Draw())
	lo, hi := p.VisibleRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)

	var clicks []plot.ClickEvent
	p.OnClick(func(ev plot.ClickEvent) { clicks = append(clicks, ev) })
	p.Resize(fyne.NewSize(400, 300))
	test.TapAt(p, fyne.NewPos(200, 150))
	require.Len(t, clicks, 1)
	assert.False(t, clicks[0].InData)
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "12", formatTick(12))
	assert.Equal(t, "0.58", formatTick(0.5812))
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func ids(set selection.Set) []string {
	var out []string
	for _, e := range set {
		out = append(out, e.ID)
	}
	return out
}
