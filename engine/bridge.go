package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os/exec"
	"strings"
	"time"

	"yashubustudio/densityfit/structure"
)

// Colorer recolours residues of a host model.
type Colorer interface {
	ColorResidues(m *structure.Model, residues []int, c structure.RGB)
}

// Bridge runs an external scorer. Each call starts Command once, writes a JSON
// request on stdin and reads a JSON response from stdout.
type Bridge struct {
	Command string
	Args    []string
	Timeout time.Duration
	Colorer Colorer
	Logger  *log.Logger
}

type request struct {
	Op    string `json:"op"`
	Input any    `json:"input"`
}

type response struct {
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result"`
}

var _ Engine = (*Bridge)(nil)

// NewBridge returns a bridge for the given scorer command line.
func NewBridge(command string, args []string, colorer Colorer, logger *log.Logger) *Bridge {
	return &Bridge{Command: command, Args: args, Colorer: colorer, Logger: logger}
}

// SCCC scores the rigid segments and recolours the model from red (worst) to
// green (best) relative to the scores of this run.
func (b *Bridge) SCCC(ctx context.Context, in SCCCInput) (SCCCResult, error) {
	var res SCCCResult
	if err := b.call(ctx, "sccc", in, &res); err != nil {
		return SCCCResult{}, err
	}
	if in.Model != nil && b.Colorer != nil {
		b.paint(in.Model, res.Segments)
	}
	return res, nil
}

func (b *Bridge) SMOC(ctx context.Context, in SMOCInput) ([]ModelScores, error) {
	var res []ModelScores
	if err := b.call(ctx, "smoc", in, &res); err != nil {
		return nil, err
	}
	if len(res) != len(in.Structures) {
		return nil, fmt.Errorf("smoc: scorer returned %d models for %d structures", len(res), len(in.Structures))
	}
	return res, nil
}

func (b *Bridge) NMI(ctx context.Context, in NMIInput) (float64, error) {
	var score float64
	if err := b.call(ctx, "nmi", in, &score); err != nil {
		return 0, err
	}
	return score, nil
}

func (b *Bridge) call(ctx context.Context, op string, in, out any) error {
	if b.Command == "" {
		return errors.New("scoring engine command is not configured")
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	payload, err := json.Marshal(request{Op: op, Input: in})
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	cmd := exec.CommandContext(ctx, b.Command, b.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %s", op, msg)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	b.logf("%s finished in %s", op, time.Since(start).Round(time.Millisecond))

	var resp response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	if resp.Error != "" {
		return &Error{Op: op, Msg: resp.Error}
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", op, err)
	}
	return nil
}

func (b *Bridge) paint(m *structure.Model, segments []Segment) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, seg := range segments {
		lo = math.Min(lo, seg.Score)
		hi = math.Max(hi, seg.Score)
	}
	for _, seg := range segments {
		t := 1.0
		if hi > lo {
			t = (seg.Score - lo) / (hi - lo)
		}
		var idx []int
		for _, ref := range seg.Residues {
			if i, ok := m.ResidueIndex(ref.Chain, ref.Number, ref.InsertionCode); ok {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			b.logf("sccc: segment with score %.3f matches no residue of %s", seg.Score, m)
			continue
		}
		b.Colorer.ColorResidues(m, idx, Gradient(t))
	}
}

func (b *Bridge) logf(format string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, args...)
	}
}
