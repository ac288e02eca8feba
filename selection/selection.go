// Package selection classifies the entities a user has selected in the host
// into the roles each scoring mode needs.
package selection

import (
	"yashubustudio/densityfit/structure"
)

// Kind tags the role of a selected entity.
type Kind int

const (
	KindOther Kind = iota
	KindAtomic
	KindVolume
)

func (k Kind) String() string {
	switch k {
	case KindAtomic:
		return "model"
	case KindVolume:
		return "map"
	default:
		return "other"
	}
}

// Entity is one selected host object. Exactly one of Model or Volume is set
// for the atomic and volume kinds; neither is set for KindOther.
type Entity struct {
	Kind   Kind
	ID     string
	Name   string
	Model  *structure.Model
	Volume *structure.Volume
}

// Atomic wraps an atomic model.
func Atomic(m *structure.Model) Entity {
	return Entity{Kind: KindAtomic, ID: m.ID, Name: m.Name, Model: m}
}

// Map wraps a density volume.
func Map(v *structure.Volume) Entity {
	return Entity{Kind: KindVolume, ID: v.ID, Name: v.Name, Volume: v}
}

func (e Entity) String() string {
	return e.Name + " #" + e.ID + " (" + e.Kind.String() + ")"
}

// Set is an ordered snapshot of the current selection.
type Set []Entity

// Error reports a selection that does not fit the requested scoring mode.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return e.Msg
}

// OneModelOneMap returns the first atomic model and the first map in selection order.
func OneModelOneMap(set Set) (*structure.Model, *structure.Volume, error) {
	var model *structure.Model
	var vol *structure.Volume
	for _, e := range set {
		if e.Kind == KindAtomic && model == nil {
			model = e.Model
		}
		if e.Kind == KindVolume && vol == nil {
			vol = e.Volume
		}
	}
	if model == nil || vol == nil {
		return nil, nil, &Error{Msg: "please select one model and one map"}
	}
	return model, vol, nil
}

// ManyModelsOneMap returns every atomic model, in order, and the first map.
func ManyModelsOneMap(set Set) ([]*structure.Model, *structure.Volume, error) {
	var models []*structure.Model
	var vol *structure.Volume
	for _, e := range set {
		switch e.Kind {
		case KindAtomic:
			models = append(models, e.Model)
		case KindVolume:
			if vol == nil {
				vol = e.Volume
			}
		}
	}
	if len(models) == 0 || vol == nil {
		return nil, nil, &Error{Msg: "please select one or more models and one map"}
	}
	return models, vol, nil
}

// ExactlyTwo returns the two selected entities whatever their kinds.
func ExactlyTwo(set Set) (Entity, Entity, error) {
	if len(set) != 2 {
		return Entity{}, Entity{}, &Error{Msg: "please select two and only two maps/models"}
	}
	return set[0], set[1], nil
}
