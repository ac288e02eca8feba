package app

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/host"
	"yashubustudio/densityfit/scoring"
)

// segmentRow is one rigid body of the last SCCC run as listed in the SCCC tab.
type segmentRow struct {
	Label string
	Score string
	Color color.Color
}

var uncolored = color.Gray{Y: 0x80}

// rigidBodyRows reads back the colour the run painted on the first residue of
// each rigid body.
func rigidBodyRows(s *host.Session, run scoring.SCCCRun) []segmentRow {
	rows := make([]segmentRow, 0, len(run.Segments))
	for i, seg := range run.Segments {
		row := segmentRow{
			Label: fmt.Sprintf("%d. no residues", i+1),
			Score: fmt.Sprintf("%.4f", seg.Score),
			Color: uncolored,
		}
		if n := len(seg.Residues); n > 0 {
			first, last := seg.Residues[0], seg.Residues[n-1]
			row.Label = fmt.Sprintf("%d. %s - %s (%d residues)", i+1, refText(first), refText(last), n)
			if idx, ok := run.Model.ResidueIndex(first.Chain, first.Number, first.InsertionCode); ok {
				if c, ok := s.ResidueColor(run.Model, idx); ok {
					row.Color = c.NRGBA()
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func refText(r engine.ResidueRef) string {
	return fmt.Sprintf("%s %d%s", r.Chain, r.Number, r.InsertionCode)
}

func (u *uiState) newSegmentList() *widget.List {
	return widget.NewList(
		func() int { return len(u.segmentRows) },
		func() fyne.CanvasObject {
			swatch := canvas.NewRectangle(uncolored)
			swatch.SetMinSize(fyne.NewSize(14, 14))
			return container.NewHBox(swatch, widget.NewLabel(""), layout.NewSpacer(), widget.NewLabel(""))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(u.segmentRows) {
				return
			}
			row := u.segmentRows[id]
			box := obj.(*fyne.Container)
			swatch := box.Objects[0].(*canvas.Rectangle)
			swatch.FillColor = row.Color
			swatch.Refresh()
			box.Objects[1].(*widget.Label).SetText(row.Label)
			box.Objects[3].(*widget.Label).SetText(row.Score)
		},
	)
}

func (u *uiState) showSegments(rows []segmentRow) {
	fyne.Do(func() {
		u.segmentRows = rows
		u.segments.Refresh()
	})
}
