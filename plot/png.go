package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	gonum "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PNGSurface renders curves off-screen with gonum/plot. When Path is set every
// Draw also saves the figure there.
type PNGSurface struct {
	Width, Height vg.Length
	Path          string

	xLabel, yLabel string
	curves         []Curve
	last           *gonum.Plot
	onClick        func(ClickEvent)
}

var _ Surface = (*PNGSurface)(nil)

// NewPNGSurface returns a 8x4 inch surface saving to path.
func NewPNGSurface(path string) *PNGSurface {
	return &PNGSurface{Width: 8 * vg.Inch, Height: 4 * vg.Inch, Path: path}
}

func (s *PNGSurface) Clear() {
	s.curves = nil
	s.last = nil
}

func (s *PNGSurface) SetLabels(x, y string) {
	s.xLabel, s.yLabel = x, y
}

func (s *PNGSurface) AddCurve(c Curve) {
	s.curves = append(s.curves, c)
}

func (s *PNGSurface) OnClick(fn func(ClickEvent)) {
	s.onClick = fn
}

// Draw lays out the figure and saves it when Path is set.
func (s *PNGSurface) Draw() error {
	p := gonum.New()
	p.X.Label.Text = s.xLabel
	p.Y.Label.Text = s.yLabel
	p.Add(plotter.NewGrid())
	for _, c := range s.curves {
		pts := make(plotter.XYs, len(c.X))
		for i := range c.X {
			pts[i].X, pts[i].Y = c.X[i], c.Y[i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("curve %s: %w", c.Label, err)
		}
		line.LineStyle.Color = toColor(c.Color)
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(c.Label, line)
	}
	p.Legend.Top = true
	s.last = p
	if s.Path == "" {
		return nil
	}
	return p.Save(s.Width, s.Height, s.Path)
}

// Encode writes the last drawn figure. format is an image extension such as
// "png" or "svg".
func (s *PNGSurface) Encode(w io.Writer, format string) error {
	if s.last == nil {
		return errors.New("nothing has been drawn")
	}
	wt, err := s.last.WriterTo(s.Width, s.Height, strings.TrimPrefix(format, "."))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes the last drawn figure to path, choosing the format by extension.
func (s *PNGSurface) Save(path string) error {
	if s.last == nil {
		return errors.New("nothing has been drawn")
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	return s.last.Save(s.Width, s.Height, path)
}

// Click delivers a click at data coordinates (x, y) to the registered handler.
// Points outside the drawn axis ranges are reported as outside the data region.
func (s *PNGSurface) Click(x, y float64) {
	if s.onClick == nil {
		return
	}
	in := s.last != nil &&
		x >= s.last.X.Min && x <= s.last.X.Max &&
		y >= s.last.Y.Min && y <= s.last.Y.Max
	s.onClick(ClickEvent{X: x, Y: y, InData: in})
}

func toColor(c [3]float64) color.Color {
	ch := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: 0xff}
}
