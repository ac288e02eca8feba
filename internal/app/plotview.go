package app

import (
	"fmt"
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/densityfit/plot"
)

const (
	plotMarginLeft   = 56
	plotMarginRight  = 16
	plotMarginTop    = 16
	plotMarginBottom = 40
	minZoomSpan      = 4
)

// PlotView draws score curves inside the window and reports taps in data
// coordinates. It must only be used from the UI goroutine.
type PlotView struct {
	widget.BaseWidget

	curves         []plot.Curve
	xLabel, yLabel string

	xMin, xMax float64 // full data range
	yMin, yMax float64
	viewMin    float64 // visible x range
	viewMax    float64

	onClick func(plot.ClickEvent)
}

var _ plot.Surface = (*PlotView)(nil)
var _ fyne.Tappable = (*PlotView)(nil)

func NewPlotView() *PlotView {
	p := &PlotView{}
	p.ExtendBaseWidget(p)
	return p
}

func (p *PlotView) Clear() {
	p.curves = nil
}

func (p *PlotView) SetLabels(x, y string) {
	p.xLabel, p.yLabel = x, y
}

func (p *PlotView) AddCurve(c plot.Curve) {
	p.curves = append(p.curves, c)
}

func (p *PlotView) OnClick(fn func(plot.ClickEvent)) {
	p.onClick = fn
}

// Draw recomputes the axis ranges, resets the zoom and repaints.
func (p *PlotView) Draw() error {
	p.xMin, p.xMax = math.Inf(1), math.Inf(-1)
	p.yMin, p.yMax = math.Inf(1), math.Inf(-1)
	for _, c := range p.curves {
		for i := range c.X {
			p.xMin = math.Min(p.xMin, c.X[i])
			p.xMax = math.Max(p.xMax, c.X[i])
			p.yMin = math.Min(p.yMin, c.Y[i])
			p.yMax = math.Max(p.yMax, c.Y[i])
		}
	}
	if math.IsInf(p.xMin, 0) {
		p.xMin, p.xMax, p.yMin, p.yMax = 0, 1, 0, 1
	}
	if p.xMax == p.xMin {
		p.xMin, p.xMax = p.xMin-0.5, p.xMax+0.5
	}
	if p.yMax == p.yMin {
		p.yMin, p.yMax = p.yMin-0.5, p.yMax+0.5
	}
	pad := (p.yMax - p.yMin) * 0.05
	p.yMin, p.yMax = p.yMin-pad, p.yMax+pad
	p.ResetZoom()
	return nil
}

// Curves returns the curves currently drawn.
func (p *PlotView) Curves() []plot.Curve {
	return append([]plot.Curve(nil), p.curves...)
}

// Replay draws the same figure on another surface.
func (p *PlotView) Replay(dst plot.Surface) error {
	dst.Clear()
	dst.SetLabels(p.xLabel, p.yLabel)
	for _, c := range p.curves {
		dst.AddCurve(c)
	}
	return dst.Draw()
}

// ResetZoom shows the full residue range.
func (p *PlotView) ResetZoom() {
	p.viewMin, p.viewMax = p.xMin, p.xMax
	p.Refresh()
}

// Zoom scales the visible residue range around its centre. factor < 1 zooms in.
func (p *PlotView) Zoom(factor float64) {
	if len(p.curves) == 0 || factor <= 0 {
		return
	}
	centre := (p.viewMin + p.viewMax) / 2
	half := (p.viewMax - p.viewMin) * factor / 2
	full := p.xMax - p.xMin
	if half*2 < minZoomSpan && full > minZoomSpan {
		half = minZoomSpan / 2
	}
	if half*2 >= full {
		p.ResetZoom()
		return
	}
	lo, hi := centre-half, centre+half
	if lo < p.xMin {
		lo, hi = p.xMin, p.xMin+2*half
	}
	if hi > p.xMax {
		lo, hi = p.xMax-2*half, p.xMax
	}
	p.viewMin, p.viewMax = lo, hi
	p.Refresh()
}

// VisibleRange returns the x range on screen.
func (p *PlotView) VisibleRange() (float64, float64) {
	return p.viewMin, p.viewMax
}

// Tapped converts the tap to data coordinates and forwards it.
func (p *PlotView) Tapped(ev *fyne.PointEvent) {
	if p.onClick == nil {
		return
	}
	x, y, in := p.toData(ev.Position)
	p.onClick(plot.ClickEvent{X: x, Y: y, InData: in && len(p.curves) > 0})
}

func (p *PlotView) area() (fyne.Position, fyne.Size) {
	size := p.Size()
	w := size.Width - plotMarginLeft - plotMarginRight
	h := size.Height - plotMarginTop - plotMarginBottom
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return fyne.NewPos(plotMarginLeft, plotMarginTop), fyne.NewSize(w, h)
}

func (p *PlotView) toData(pos fyne.Position) (float64, float64, bool) {
	origin, size := p.area()
	fx := float64(pos.X-origin.X) / float64(size.Width)
	fy := float64(pos.Y-origin.Y) / float64(size.Height)
	x := p.viewMin + fx*(p.viewMax-p.viewMin)
	y := p.yMax - fy*(p.yMax-p.yMin)
	return x, y, fx >= 0 && fx <= 1 && fy >= 0 && fy <= 1
}

func (p *PlotView) toPixel(x, y float64) fyne.Position {
	origin, size := p.area()
	fx := (x - p.viewMin) / (p.viewMax - p.viewMin)
	fy := (p.yMax - y) / (p.yMax - p.yMin)
	return fyne.NewPos(origin.X+float32(fx)*size.Width, origin.Y+float32(fy)*size.Height)
}

func (p *PlotView) MinSize() fyne.Size {
	p.ExtendBaseWidget(p)
	return fyne.NewSize(320, 200)
}

func (p *PlotView) CreateRenderer() fyne.WidgetRenderer {
	r := &plotViewRenderer{
		view:   p,
		bg:     canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground)),
		frame:  canvas.NewRectangle(color.Transparent),
		xLabel: canvas.NewText("", theme.Color(theme.ColorNameForeground)),
		yLabel: canvas.NewText("", theme.Color(theme.ColorNameForeground)),
	}
	r.frame.StrokeColor = theme.Color(theme.ColorNameDisabled)
	r.frame.StrokeWidth = 1
	r.rebuild()
	return r
}

type plotViewRenderer struct {
	view   *PlotView
	bg     *canvas.Rectangle
	frame  *canvas.Rectangle
	xLabel *canvas.Text
	yLabel *canvas.Text
	ticks  []fyne.CanvasObject
	lines  []fyne.CanvasObject
	legend []fyne.CanvasObject
}

func (r *plotViewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	origin, area := r.view.area()
	r.frame.Move(origin)
	r.frame.Resize(area)
	r.rebuild()
}

func (r *plotViewRenderer) MinSize() fyne.Size {
	return r.view.MinSize()
}

func (r *plotViewRenderer) Refresh() {
	r.rebuild()
	canvas.Refresh(r.view)
}

func (r *plotViewRenderer) Objects() []fyne.CanvasObject {
	objs := []fyne.CanvasObject{r.bg, r.frame, r.xLabel, r.yLabel}
	objs = append(objs, r.ticks...)
	objs = append(objs, r.lines...)
	return append(objs, r.legend...)
}

func (r *plotViewRenderer) Destroy() {}

// rebuild regenerates the line segments, tick labels and legend for the
// current size and zoom.
func (r *plotViewRenderer) rebuild() {
	p := r.view
	origin, area := p.area()
	fg := theme.Color(theme.ColorNameForeground)

	r.xLabel.Text = p.xLabel
	r.xLabel.TextSize = theme.CaptionTextSize()
	r.xLabel.Move(fyne.NewPos(origin.X+area.Width/2-r.xLabel.MinSize().Width/2, origin.Y+area.Height+20))
	r.yLabel.Text = p.yLabel
	r.yLabel.TextSize = theme.CaptionTextSize()
	r.yLabel.Move(fyne.NewPos(4, origin.Y))

	r.ticks = r.ticks[:0]
	if len(p.curves) > 0 {
		tick := func(text string, pos fyne.Position) {
			t := canvas.NewText(text, fg)
			t.TextSize = theme.CaptionTextSize()
			t.Move(pos)
			r.ticks = append(r.ticks, t)
		}
		tick(formatTick(p.viewMin), fyne.NewPos(origin.X, origin.Y+area.Height+2))
		tick(formatTick(p.viewMax), fyne.NewPos(origin.X+area.Width-24, origin.Y+area.Height+2))
		tick(formatTick(p.yMax), fyne.NewPos(4, origin.Y+14))
		tick(formatTick(p.yMin), fyne.NewPos(4, origin.Y+area.Height-14))
	}

	r.lines = r.lines[:0]
	r.legend = r.legend[:0]
	for i, c := range p.curves {
		col := curveColor(c.Color)
		for j := 1; j < len(c.X); j++ {
			if c.X[j] < p.viewMin || c.X[j-1] > p.viewMax {
				continue
			}
			seg := canvas.NewLine(col)
			seg.StrokeWidth = 1.5
			seg.Position1 = p.toPixel(c.X[j-1], c.Y[j-1])
			seg.Position2 = p.toPixel(c.X[j], c.Y[j])
			r.lines = append(r.lines, seg)
		}
		label := canvas.NewText(c.Label, col)
		label.TextSize = theme.CaptionTextSize()
		label.Move(fyne.NewPos(origin.X+area.Width-label.MinSize().Width-6, origin.Y+4+float32(i)*(label.MinSize().Height+2)))
		r.legend = append(r.legend, label)
	}
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func curveColor(c [3]float64) color.Color {
	ch := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: 0xff}
}
