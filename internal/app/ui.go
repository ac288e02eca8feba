package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/host"
	"yashubustudio/densityfit/plot"
	"yashubustudio/densityfit/scoring"
	"yashubustudio/densityfit/selection"
	"yashubustudio/densityfit/structure"
)

const (
	fyneAppID           = "studio.yashubu.densityfit"
	logDebounceInterval = 150 * time.Millisecond
	maxLogLines         = 200
)

// EngineFactory builds the scoring engine once the session exists, so SCCC
// results can recolour its models.
type EngineFactory func(colorer engine.Colorer, logger *log.Logger) (engine.Engine, error)

type uiState struct {
	session *host.Session
	service *scoring.Service
	plots   *plot.Manager
	cfg     scoring.Config
	logger  *log.Logger

	w          fyne.Window
	models     *widget.List
	entities   []selection.Entity
	sccc       *modeForm
	smoc       *modeForm
	nmi        *modeForm
	segments   *widget.List
	plotView   *PlotView
	plotBox    *fyne.Container
	log        *widget.Entry
	status     *widget.Label
	statusBind binding.String
	logBind    binding.String

	segmentRows []segmentRow

	logLines    []string
	logMu       sync.Mutex
	logUpdateCh chan struct{}

	openBtn  *widget.Button
	closeBtn *widget.Button
	scccBtn  *widget.Button
	smocBtn  *widget.Button
	nmiBtn   *widget.Button
}

func buildUI(a fyne.App, cfg scoring.Config, newEngine EngineFactory) (*uiState, error) {
	u := &uiState{cfg: cfg}
	u.w = a.NewWindow("DensityFit - TEMPy scores")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("Ready")
	u.logBind = binding.NewString()
	u.startLogUpdater()
	u.logger = log.New(io.MultiWriter(os.Stdout, logCapture{u}), "", 0)

	u.session = host.NewSession(u.logger)
	eng, err := newEngine(u.session, u.logger)
	if err != nil {
		return nil, fmt.Errorf("start scoring engine: %w", err)
	}

	u.plotView = NewPlotView()
	u.plots = plot.NewManager(u.newSurface, uiHighlighter{u}, u.logger)
	u.service, err = scoring.NewService(u.session, eng, uiPresenter{u}, u.logger)
	if err != nil {
		return nil, err
	}

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.SetPlaceHolder("Log")
	u.log.Disable()
	u.status = widget.NewLabelWithData(u.statusBind)

	u.models = widget.NewList(
		func() int { return len(u.entities) },
		func() fyne.CanvasObject {
			swatch := canvas.NewRectangle(color.Gray{Y: 0x80})
			swatch.SetMinSize(fyne.NewSize(14, 14))
			return container.NewHBox(swatch, widget.NewCheck("", nil))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(u.entities) {
				return
			}
			e := u.entities[id]
			row := obj.(*fyne.Container)
			swatch := row.Objects[0].(*canvas.Rectangle)
			swatch.FillColor = entityColor(e)
			swatch.Refresh()
			check := row.Objects[1].(*widget.Check)
			check.OnChanged = nil
			check.Text = u.entityLabel(e)
			check.SetChecked(u.session.IsSelected(e.ID))
			check.OnChanged = func(on bool) { u.toggleEntity(e.ID, on) }
		},
	)

	u.openBtn = widget.NewButtonWithIcon("Open...", theme.FolderOpenIcon(), func() { u.onOpen() })
	u.closeBtn = widget.NewButtonWithIcon("Close selected", theme.DeleteIcon(), func() { u.onCloseSelected() })
	u.scccBtn = widget.NewButtonWithIcon("Run SCCC", theme.MediaPlayIcon(), func() { u.onRunSCCC() })
	u.smocBtn = widget.NewButtonWithIcon("Run SMOC", theme.MediaPlayIcon(), func() { u.onRunSMOC() })
	u.nmiBtn = widget.NewButtonWithIcon("Run NMI", theme.MediaPlayIcon(), func() { u.onRunNMI() })

	u.sccc = newModeForm(scoring.ModeSCCC, cfg.SCCC, u.browseRigidBody)
	u.smoc = newModeForm(scoring.ModeSMOC, cfg.SMOC, u.browseRigidBody)
	u.nmi = newModeForm(scoring.ModeNMI, cfg.NMI, u.browseRigidBody)

	u.segments = u.newSegmentList()
	scccTab := container.NewBorder(
		container.NewVBox(u.sccc.form, u.scccBtn, widget.NewLabelWithStyle("Rigid bodies", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})),
		nil, nil, nil, u.segments,
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("SCCC", scccTab),
		container.NewTabItem("SMOC", container.NewVBox(u.smoc.form, u.smocBtn)),
		container.NewTabItem("NMI", container.NewVBox(u.nmi.form, u.nmiBtn)),
	)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { u.plotView.Zoom(0.5) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { u.plotView.Zoom(2) }),
		widget.NewToolbarAction(theme.ViewRestoreIcon(), func() { u.plotView.ResetZoom() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { u.onExportCSV() }),
		widget.NewToolbarAction(theme.DownloadIcon(), func() { u.onExportParquet() }),
		widget.NewToolbarAction(theme.FileImageIcon(), func() { u.onSavePNG() }),
	)
	u.plotBox = container.NewBorder(toolbar, nil, nil, nil, u.plotView)
	u.plotBox.Hide()

	left := container.NewBorder(
		container.NewVBox(
			widget.NewLabelWithStyle("Models and maps", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			container.NewGridWithColumns(2, u.openBtn, u.closeBtn),
		),
		nil, nil, nil, u.models,
	)
	logBox := container.NewBorder(
		container.NewVBox(
			widget.NewSeparator(),
			u.status,
			widget.NewLabelWithStyle("Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		),
		nil, nil, nil, u.log,
	)
	right := container.NewVSplit(container.NewBorder(tabs, nil, nil, nil, u.plotBox), logBox)
	right.Offset = 0.7
	split := container.NewHSplit(left, right)
	split.Offset = 0.25

	u.w.SetContent(split)
	u.w.Resize(fyne.NewSize(1180, 760))
	return u, nil
}

// currentConfig returns the configuration with the entry texts as typed.
func (u *uiState) currentConfig() scoring.Config {
	cfg := u.cfg
	cfg.SCCC = u.sccc.fields()
	cfg.SMOC = u.smoc.fields()
	cfg.NMI = u.nmi.fields()
	return cfg
}

func (u *uiState) refreshModels() {
	u.entities = u.session.Entities()
	u.models.Refresh()
}

func (u *uiState) entityLabel(e selection.Entity) string {
	label := fmt.Sprintf("#%s %s (%s)", e.ID, e.Name, e.Kind)
	if e.Model != nil {
		if n := len(u.session.SelectedResidues(e.Model)); n > 0 {
			label += fmt.Sprintf(", %d residues picked", n)
		}
	}
	return label
}

func entityColor(e selection.Entity) color.Color {
	if e.Model != nil {
		return e.Model.Color.NRGBA()
	}
	return color.Gray{Y: 0x80}
}

func (u *uiState) toggleEntity(id string, on bool) {
	if !on {
		u.session.Deselect(id)
		return
	}
	if err := u.session.Select(id); err != nil {
		u.reportError(err)
	}
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		for _, btn := range []*widget.Button{u.openBtn, u.closeBtn, u.scccBtn, u.smocBtn, u.nmiBtn} {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
	})
}

func (u *uiState) setStatus(text string) {
	_ = u.statusBind.Set(text)
}

func (u *uiState) reportError(err error) {
	msg := scoring.Report(err)
	u.appendLog(msg)
	fyne.Do(func() {
		dialog.ShowError(errors.New(msg), u.w)
	})
}

// runAsync runs fn off the UI goroutine with the controls disabled. The
// returned channel closes when the run has finished.
func (u *uiState) runAsync(label string, fn func(ctx context.Context) (string, error)) <-chan struct{} {
	done := make(chan struct{})
	u.setBusy(true)
	u.setStatus(label + " running...")
	u.appendLog(label + " started")
	start := time.Now()

	go func() {
		defer close(done)
		defer u.setBusy(false)
		msg, err := fn(context.Background())
		if err != nil {
			u.setStatus(label + " failed")
			u.reportError(err)
			return
		}
		u.setStatus(fmt.Sprintf("%s (%.1fs)", msg, time.Since(start).Seconds()))
		fyne.Do(u.refreshModels)
	}()
	return done
}

func (u *uiState) onRunSCCC() <-chan struct{} {
	fields := u.sccc.fields()
	return u.runAsync("SCCC", func(ctx context.Context) (string, error) {
		res, err := u.service.RunSCCC(ctx, fields)
		if err != nil {
			return "", err
		}
		u.showSegments(rigidBodyRows(u.session, res))
		return fmt.Sprintf("SCCC scored %d rigid bodies", len(res.Segments)), nil
	})
}

func (u *uiState) onRunSMOC() <-chan struct{} {
	fields := u.smoc.fields()
	return u.runAsync("SMOC", func(ctx context.Context) (string, error) {
		snap, err := u.service.RunSMOC(ctx, fields)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SMOC scored %d models", len(snap.Models)), nil
	})
}

func (u *uiState) onRunNMI() <-chan struct{} {
	fields := u.nmi.fields()
	return u.runAsync("NMI", func(ctx context.Context) (string, error) {
		score, err := u.service.RunNMI(ctx, fields)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NMI score %.4f", score), nil
	})
}

// newSurface hands the embedded plot view to the manager on the first SMOC run.
func (u *uiState) newSurface() (plot.Surface, error) {
	u.plotBox.Show()
	return u.plotView, nil
}

func (u *uiState) onOpen() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		u.openPath(path)
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".pdb", ".ent", ".mrc", ".map", ".ccp4"}))
	u.setDialogLocation(fd)
	fd.Show()
}

func (u *uiState) openPath(path string) {
	e, err := u.session.Open(path)
	if err != nil {
		u.reportError(err)
		return
	}
	u.cfg.LastDir = filepath.Dir(path)
	u.appendLog(fmt.Sprintf("Opened %s as #%s", filepath.Base(path), e.ID))
	u.refreshModels()
}

func (u *uiState) onCloseSelected() {
	for _, e := range u.session.Selection() {
		if err := u.session.Close(e.ID); err != nil {
			u.reportError(err)
			continue
		}
		u.appendLog(fmt.Sprintf("Closed #%s %s", e.ID, e.Name))
	}
	u.refreshModels()
}

func (u *uiState) browseRigidBody(target *widget.Entry) {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		u.cfg.LastDir = filepath.Dir(path)
		target.SetText(path)
	}, u.w)
	u.setDialogLocation(fd)
	fd.Show()
}

func (u *uiState) setDialogLocation(fd *dialog.FileDialog) {
	if u.cfg.LastDir == "" {
		return
	}
	if lister, err := storage.ListerForURI(storage.NewFileURI(u.cfg.LastDir)); err == nil {
		fd.SetLocation(lister)
	}
}

func (u *uiState) onExportCSV() {
	snap := u.plots.Snapshot()
	if snap == nil {
		dialog.ShowInformation("Export", "Run SMOC first", u.w)
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := plot.WriteCSV(uc, snap); err != nil {
			u.reportError(err)
			return
		}
		u.appendLog("Scores exported to " + uc.URI().Path())
	}, u.w)
	fd.SetFileName("smoc_scores.csv")
	u.setDialogLocation(fd)
	fd.Show()
}

func (u *uiState) onExportParquet() {
	snap := u.plots.Snapshot()
	if snap == nil {
		dialog.ShowInformation("Export", "Run SMOC first", u.w)
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		path := uc.URI().Path()
		_ = uc.Close()
		if err := plot.WriteParquet(snap, path); err != nil {
			u.reportError(err)
			return
		}
		u.appendLog("Scores exported to " + path)
	}, u.w)
	fd.SetFileName("smoc_scores.parquet")
	u.setDialogLocation(fd)
	fd.Show()
}

func (u *uiState) onSavePNG() {
	if u.plots.Snapshot() == nil {
		dialog.ShowInformation("Save plot", "Run SMOC first", u.w)
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := u.writePNG(uc); err != nil {
			u.reportError(err)
			return
		}
		u.appendLog("Plot saved to " + uc.URI().Path())
	}, u.w)
	fd.SetFileName("smoc_scores.png")
	u.setDialogLocation(fd)
	fd.Show()
}

func (u *uiState) writePNG(w io.Writer) error {
	png := plot.NewPNGSurface("")
	if err := u.plotView.Replay(png); err != nil {
		return err
	}
	return png.Encode(w, "png")
}

func (u *uiState) appendLog(msg string) {
	now := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", now, msg)

	u.logMu.Lock()
	u.logLines = append(u.logLines, line)
	if len(u.logLines) > maxLogLines {
		u.logLines = u.logLines[len(u.logLines)-maxLogLines:]
	}
	u.logMu.Unlock()

	if u.logUpdateCh == nil {
		u.flushLog()
		return
	}
	select {
	case u.logUpdateCh <- struct{}{}:
	default:
	}
}

func (u *uiState) startLogUpdater() {
	if u.logUpdateCh != nil {
		return
	}
	u.logUpdateCh = make(chan struct{}, 1)
	go u.logUpdateLoop()
}

func (u *uiState) logUpdateLoop() {
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-u.logUpdateCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			u.flushLog()
		}
	}
}

func (u *uiState) flushLog() {
	_ = u.logBind.Set(u.logText())
}

func (u *uiState) logText() string {
	u.logMu.Lock()
	defer u.logMu.Unlock()
	return strings.Join(u.logLines, "\n")
}

// logCapture forwards logger output to the log panel line by line.
type logCapture struct {
	u *uiState
}

func (c logCapture) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			c.u.appendLog(line)
		}
	}
	return len(p), nil
}

// uiPresenter draws SMOC results on the UI goroutine and waits for the
// outcome, since the service runs on a worker.
type uiPresenter struct {
	u *uiState
}

func (p uiPresenter) Show(snap *plot.Snapshot) error {
	var err error
	fyne.DoAndWait(func() {
		err = p.u.plots.Show(snap)
	})
	return err
}

// uiHighlighter applies plot picks to the session and refreshes the list.
type uiHighlighter struct {
	u *uiState
}

func (h uiHighlighter) ClearSelection() {
	h.u.session.ClearSelection()
}

func (h uiHighlighter) SelectResidue(m *structure.Model, idx int) bool {
	if !h.u.session.SelectResidue(m, idx) {
		return false
	}
	if res, ok := m.ResidueAt(idx); ok {
		h.u.setStatus(fmt.Sprintf("Selected %s in %s", res.Label(), m))
	}
	h.u.refreshModels()
	return true
}
