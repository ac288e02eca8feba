package plot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// ScoreRecord is one residue score in an exported SMOC run.
type ScoreRecord struct {
	RunID   string  `parquet:"run_id,snappy"`
	Model   string  `parquet:"model,snappy"`
	ModelID string  `parquet:"model_id,snappy"`
	Chain   string  `parquet:"chain,snappy"`
	Index   int32   `parquet:"index,snappy"`
	Residue int64   `parquet:"residue,snappy"`
	Score   float64 `parquet:"score,snappy"`
}

// Records flattens the snapshot into one record per plotted point.
func (s *Snapshot) Records() []ScoreRecord {
	var out []ScoreRecord
	runID := s.RunID.String()
	for i, row := range s.Table {
		for j, score := range row {
			out = append(out, ScoreRecord{
				RunID:   runID,
				Model:   s.Models[i].Name,
				ModelID: s.Models[i].ID,
				Chain:   s.ChainAt(i, j),
				Index:   int32(j),
				Residue: s.ResidueNumber(i, j),
				Score:   score,
			})
		}
	}
	return out
}

var csvHeader = []string{"model", "model_id", "chain", "index", "residue", "score"}

// WriteCSV writes the snapshot as CSV with a header row.
func WriteCSV(w io.Writer, snap *Snapshot) error {
	if snap == nil {
		return errors.New("no scores to export")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range snap.Records() {
		row := []string{
			rec.Model,
			rec.ModelID,
			rec.Chain,
			strconv.Itoa(int(rec.Index)),
			strconv.FormatInt(rec.Residue, 10),
			strconv.FormatFloat(rec.Score, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes the snapshot to a Parquet file at outputPath.
func WriteParquet(snap *Snapshot, outputPath string) error {
	if snap == nil {
		return errors.New("no scores to export")
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[ScoreRecord](file)
	if _, err := writer.Write(snap.Records()); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write scores to parquet file: %w", err)
	}
	return writer.Close()
}
