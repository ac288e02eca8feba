package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBusy is returned when a scoring run is started while another is in flight.
var ErrBusy = errors.New("a scoring run is already in progress")

// ParameterError reports numeric fields whose text could not be parsed.
type ParameterError struct {
	Mode   Mode
	Fields []string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("check the values for %s", joinList(e.Fields))
}

// MissingFileError reports a required input file that does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	if e.Path == "" {
		return "no rigid-body file given"
	}
	return fmt.Sprintf("file %s does not exist", e.Path)
}

// Report formats an error for the log panel and the command line.
func Report(err error) string {
	return "TEMPy error: " + err.Error()
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
