package structure

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var atomRecord = regexp.MustCompile(`(?m)^(ATOM  |HETATM|ENDMDL).*$`)

// ParsePDB extracts the ATOM and HETATM records of the first model in raw PDB text.
// Residues keep the order in which they first appear in the file.
func ParsePDB(raw []byte) (*Model, error) {
	matches := atomRecord.FindAllString(string(raw), -1)
	if len(matches) == 0 {
		return nil, errors.New("atoms not found")
	}

	model := &Model{}
	byKey := make(map[string]*Residue)
	for _, line := range matches {
		if strings.HasPrefix(line, "ENDMDL") {
			break
		}
		line = strings.TrimRight(line, "\r")

		// https://www.wwpdb.org/documentation/file-format-content/format33/sect9.html#ATOM
		atom := &Atom{InChain: strings.HasPrefix(line, "ATOM")}
		atom.Serial, _ = strconv.ParseInt(column(line, 6, 11), 10, 64)
		atom.Name = column(line, 12, 16)
		atom.AltLoc = column(line, 16, 17)
		resName := column(line, 17, 20)
		chain := column(line, 21, 22)
		resNum, err := strconv.ParseInt(column(line, 22, 26), 10, 64)
		if err != nil {
			return nil, errors.New("bad residue number in record: " + line)
		}
		icode := column(line, 26, 27)
		atom.Coord.X, err = strconv.ParseFloat(column(line, 30, 38), 64)
		if err != nil {
			return nil, errors.New("bad x coordinate in record: " + line)
		}
		atom.Coord.Y, err = strconv.ParseFloat(column(line, 38, 46), 64)
		if err != nil {
			return nil, errors.New("bad y coordinate in record: " + line)
		}
		atom.Coord.Z, err = strconv.ParseFloat(column(line, 46, 54), 64)
		if err != nil {
			return nil, errors.New("bad z coordinate in record: " + line)
		}
		atom.Occupancy, _ = strconv.ParseFloat(column(line, 54, 60), 64)
		atom.BFactor, _ = strconv.ParseFloat(column(line, 60, 66), 64)
		atom.Element = column(line, 76, 78)
		atom.Charge = column(line, 78, 80)
		if atom.Element == "" {
			atom.Element = elementFromName(atom.Name)
		}

		key := chain + "|" + strconv.FormatInt(resNum, 10) + "|" + icode
		res, ok := byKey[key]
		if !ok {
			res = &Residue{Chain: chain, Number: resNum, InsertionCode: icode, Name: resName}
			byKey[key] = res
			model.Residues = append(model.Residues, res)
		}
		res.Atoms = append(res.Atoms, atom)
	}

	if len(model.Residues) == 0 {
		return nil, errors.New("atoms not found")
	}
	return model, nil
}

// NameFromPath derives a display name from a file path.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// column returns the trimmed fixed-width field [start, end) of a record,
// tolerating lines that were cut short.
func column(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}

func elementFromName(name string) string {
	name = strings.TrimLeft(name, "0123456789")
	if name == "" {
		return ""
	}
	return name[:1]
}
