// Package host is a minimal in-process molecular session: loaded models and
// maps, their display colours and the user's ordered selection.
package host

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"yashubustudio/densityfit/selection"
	"yashubustudio/densityfit/structure"
)

// palette holds the display colours handed out to models in load order.
var palette = []structure.RGB{
	{R: 210, G: 180, B: 140},
	{R: 135, G: 206, B: 235},
	{R: 221, G: 160, B: 221},
	{R: 144, G: 238, B: 144},
	{R: 250, G: 128, B: 114},
	{R: 211, G: 211, B: 211},
	{R: 240, G: 230, B: 140},
	{R: 176, G: 196, B: 222},
}

// ErrUnknownEntity is returned for ids that are not loaded in the session.
var ErrUnknownEntity = errors.New("no such model or map")

// Session owns the loaded entities. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	nextID   int
	entities []selection.Entity
	selected []string

	logger *log.Logger
}

// NewSession returns an empty session.
func NewSession(logger *log.Logger) *Session {
	return &Session{nextID: 1, logger: logger}
}

// Open loads a PDB model or an MRC/CCP4 map, chosen by file extension.
func (s *Session) Open(path string) (selection.Entity, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdb", ".ent":
		raw, err := os.ReadFile(path)
		if err != nil {
			return selection.Entity{}, err
		}
		m, err := structure.ParsePDB(raw)
		if err != nil {
			return selection.Entity{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		m.Name = structure.NameFromPath(path)
		m.Path = path
		return s.AddModel(m), nil
	case ".mrc", ".map", ".ccp4":
		f, err := os.Open(path)
		if err != nil {
			return selection.Entity{}, err
		}
		defer f.Close()
		v, err := structure.ReadMRC(f)
		if err != nil {
			return selection.Entity{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		v.Name = structure.NameFromPath(path)
		v.Path = path
		return s.AddVolume(v), nil
	default:
		return selection.Entity{}, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
}

// AddModel registers a model, assigning its id and display colour.
func (s *Session) AddModel(m *structure.Model) selection.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.allocID()
	models := 0
	for _, e := range s.entities {
		if e.Kind == selection.KindAtomic {
			models++
		}
	}
	m.Color = palette[models%len(palette)]
	e := selection.Atomic(m)
	s.entities = append(s.entities, e)
	s.logf("Opened %s: %d residues, %d atoms", m, len(m.Residues), len(m.Atoms()))
	return e
}

// AddVolume registers a map and assigns its id.
func (s *Session) AddVolume(v *structure.Volume) selection.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.allocID()
	e := selection.Map(v)
	s.entities = append(s.entities, e)
	s.logf("Opened %s: grid %dx%dx%d, step %.3g", v, v.Size[0], v.Size[1], v.Size[2], v.Step[0])
	return e
}

func (s *Session) allocID() string {
	id := strconv.Itoa(s.nextID)
	s.nextID++
	return id
}

// Close removes an entity and drops it from the selection.
func (s *Session) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: #%s", ErrUnknownEntity, id)
	}
	s.entities = append(s.entities[:i], s.entities[i+1:]...)
	s.deselect(id)
	return nil
}

// Entities lists every loaded entity in load order.
func (s *Session) Entities() []selection.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]selection.Entity(nil), s.entities...)
}

// Lookup finds a loaded entity by id.
func (s *Session) Lookup(id string) (selection.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.entities[i], true
	}
	return selection.Entity{}, false
}

// Select appends an entity to the selection. Selecting twice keeps the
// original position.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: #%s", ErrUnknownEntity, id)
	}
	for _, sel := range s.selected {
		if sel == id {
			return nil
		}
	}
	s.selected = append(s.selected, id)
	return nil
}

// Deselect removes an entity from the selection.
func (s *Session) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deselect(id)
}

func (s *Session) deselect(id string) {
	for i, sel := range s.selected {
		if sel == id {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
	}
}

// IsSelected reports whether the entity is part of the selection.
func (s *Session) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range s.selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Selection returns a snapshot of the selected entities in selection order.
func (s *Session) Selection() selection.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(selection.Set, 0, len(s.selected))
	for _, id := range s.selected {
		if i := s.indexOf(id); i >= 0 {
			set = append(set, s.entities[i])
		}
	}
	return set
}

// ClearSelection deselects every entity and every atom.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	for _, e := range s.entities {
		if e.Model == nil {
			continue
		}
		for _, atom := range e.Model.Atoms() {
			atom.Selected = false
		}
	}
}

// SelectResidue marks every atom of the residue at idx as selected, which also
// puts its model into the selection.
func (s *Session) SelectResidue(m *structure.Model, idx int) bool {
	res, ok := m.ResidueAt(idx)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, atom := range res.Atoms {
		atom.Selected = true
	}
	if s.indexOf(m.ID) >= 0 {
		found := false
		for _, sel := range s.selected {
			if sel == m.ID {
				found = true
				break
			}
		}
		if !found {
			s.selected = append(s.selected, m.ID)
		}
	}
	s.logf("Selected %s in %s", res.Label(), m)
	return true
}

// SelectedResidues lists the positions of residues with at least one selected atom.
func (s *Session) SelectedResidues(m *structure.Model) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for i, res := range m.Residues {
		for _, atom := range res.Atoms {
			if atom.Selected {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// ColorResidues overrides the display colour of the given residues.
func (s *Session) ColorResidues(m *structure.Model, residues []int, c structure.RGB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range residues {
		if res, ok := m.ResidueAt(idx); ok {
			res.Color = c
			res.Colored = true
		}
	}
}

// ResidueColor returns the colour a scoring run gave a residue. It reports
// false for residues that were never recoloured.
func (s *Session) ResidueColor(m *structure.Model, idx int) (structure.RGB, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := m.ResidueAt(idx)
	if !ok || !res.Colored {
		return structure.RGB{}, false
	}
	return res.Color, true
}

func (s *Session) indexOf(id string) int {
	for i, e := range s.entities {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
