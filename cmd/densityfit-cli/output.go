package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"yashubustudio/densityfit/engine"
	"yashubustudio/densityfit/host"
	"yashubustudio/densityfit/plot"
	"yashubustudio/densityfit/structure"
)

var (
	labelColor = color.New(color.FgCyan, color.Bold)
	goodColor  = color.New(color.FgGreen)
	fairColor  = color.New(color.FgYellow)
	poorColor  = color.New(color.FgRed)
)

// scoreColor picks the colour band of a score relative to the run's range,
// matching the red to green recolouring of the model.
func scoreColor(score, lo, hi float64) *color.Color {
	t := 1.0
	if hi > lo {
		t = (score - lo) / (hi - lo)
	}
	switch {
	case t >= 2.0/3:
		return goodColor
	case t >= 1.0/3:
		return fairColor
	default:
		return poorColor
	}
}

func writeSegments(w io.Writer, m *structure.Model, res engine.SCCCResult) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, seg := range res.Segments {
		lo = math.Min(lo, seg.Score)
		hi = math.Max(hi, seg.Score)
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Segment", "Residues", "First", "Last", "SCCC"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, seg := range res.Segments {
		first, last := "-", "-"
		if n := len(seg.Residues); n > 0 {
			first = refLabel(seg.Residues[0])
			last = refLabel(seg.Residues[n-1])
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(len(seg.Residues)),
			first,
			last,
			scoreColor(seg.Score, lo, hi).Sprintf("%.4f", seg.Score),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %d rigid bodies of %s recoloured\n", labelColor.Sprint("SCCC:"), len(res.Segments), m)
	return err
}

func refLabel(r engine.ResidueRef) string {
	return fmt.Sprintf("%s %d%s", r.Chain, r.Number, r.InsertionCode)
}

// writeSMOCSummary prints one row per model with its score range.
func writeSMOCSummary(w io.Writer, snap *plot.Snapshot) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Model", "Chains", "Residues", "Mean", "Min", "Max"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, row := range snap.Table {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		chains := len(snap.Chains[i])
		data = append(data, []string{
			snap.Models[i].String(),
			strconv.Itoa(chains),
			strconv.Itoa(len(row)),
			fmt.Sprintf("%.4f", sum/float64(len(row))),
			poorColor.Sprintf("%.4f", lo),
			goodColor.Sprintf("%.4f", hi),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s run %s\n", labelColor.Sprint("SMOC:"), snap.RunID)
	return err
}

func writeCSVFile(path string, snap *plot.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := plot.WriteCSV(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writePick(w io.Writer, s *host.Session, snap *plot.Snapshot, x, y float64) {
	if label, ok := pickedResidue(s, snap); ok {
		fmt.Fprintf(w, "%s %s\n", labelColor.Sprint("Picked:"), label)
		return
	}
	fmt.Fprintf(w, "%s nothing at %g,%g\n", labelColor.Sprint("Picked:"), x, y)
}
