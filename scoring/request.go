package scoring

import (
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Mode selects the score to compute.
type Mode string

const (
	ModeSCCC Mode = "sccc"
	ModeSMOC Mode = "smoc"
	ModeNMI  Mode = "nmi"
)

// Fields is the raw text of the panel entries for one mode.
type Fields struct {
	Resolution    string `json:"resolution,omitempty"`
	Resolution2   string `json:"resolution2,omitempty"`
	Sigma         string `json:"sigma,omitempty"`
	Window        string `json:"window,omitempty"`
	Contour1      string `json:"contour1,omitempty"`
	Contour2      string `json:"contour2,omitempty"`
	RigidBodyFile string `json:"rigidBodyFile,omitempty"`
}

// Request is a validated set of scoring parameters.
type Request struct {
	Mode          Mode
	Resolution    float64
	Resolution2   float64
	Sigma         float64
	Window        int
	Contour1      float64
	Contour2      float64
	RigidBodyFile string
}

type fieldParser struct {
	bad []string
}

func (p *fieldParser) number(name, text string) float64 {
	v, err := strconv.ParseFloat(normalizeNumber(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.bad = append(p.bad, name)
		return 0
	}
	return v
}

// whole parses a float and truncates it toward zero, so "9.0" is a valid window.
func (p *fieldParser) whole(name, text string) int {
	v, err := strconv.ParseFloat(normalizeNumber(text), 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > math.MaxInt32 {
		p.bad = append(p.bad, name)
		return 0
	}
	return int(math.Trunc(v))
}

func (p *fieldParser) err(mode Mode) error {
	if len(p.bad) == 0 {
		return nil
	}
	return &ParameterError{Mode: mode, Fields: p.bad}
}

// normalizeNumber folds full-width digits and signs to ASCII and trims spaces.
func normalizeNumber(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

// ParseSCCC validates resolution and sigma. The rigid-body path is kept as
// given; its existence is checked when the run starts.
func ParseSCCC(f Fields) (Request, error) {
	var p fieldParser
	req := Request{
		Mode:          ModeSCCC,
		Resolution:    p.number("resolution", f.Resolution),
		Sigma:         p.number("sigma", f.Sigma),
		RigidBodyFile: strings.TrimSpace(f.RigidBodyFile),
	}
	return req, p.err(ModeSCCC)
}

// ParseSMOC validates resolution, sigma and window size.
func ParseSMOC(f Fields) (Request, error) {
	var p fieldParser
	req := Request{
		Mode:          ModeSMOC,
		Resolution:    p.number("resolution", f.Resolution),
		Sigma:         p.number("sigma", f.Sigma),
		Window:        p.whole("window", f.Window),
		RigidBodyFile: strings.TrimSpace(f.RigidBodyFile),
	}
	return req, p.err(ModeSMOC)
}

// ParseNMI validates the resolution and contour level of both entities.
func ParseNMI(f Fields) (Request, error) {
	var p fieldParser
	req := Request{
		Mode:        ModeNMI,
		Resolution:  p.number("resolution 1", f.Resolution),
		Resolution2: p.number("resolution 2", f.Resolution2),
		Contour1:    p.number("contour 1", f.Contour1),
		Contour2:    p.number("contour 2", f.Contour2),
	}
	return req, p.err(ModeNMI)
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
