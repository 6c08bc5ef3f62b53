package models

import "slices"

// EntitySet is an insertion-ordered collection of entities keyed by entityID.
// At most one entity exists per identifier. It is not safe for concurrent use.
type EntitySet struct {
	order  []string
	byID   map[string]*Entity
	origin map[string]string
}

// NewEntitySet returns a set holding initial, first occurrence winning.
func NewEntitySet(initial ...*Entity) *EntitySet {
	s := &EntitySet{
		byID:   make(map[string]*Entity, len(initial)),
		origin: make(map[string]string),
	}
	for _, e := range initial {
		s.Add(e)
	}
	return s
}

// Add inserts e unless its identifier is already present.
// It reports whether e was inserted.
func (s *EntitySet) Add(e *Entity) bool {
	return s.AddFrom("", e)
}

// AddFrom is Add recording source as the origin of e.
func (s *EntitySet) AddFrom(source string, e *Entity) bool {
	if e == nil {
		return false
	}
	id := e.ID()
	if _, ok := s.byID[id]; ok {
		return false
	}
	s.byID[id] = e
	s.origin[id] = source
	s.order = append(s.order, id)
	return true
}

// Replace stores e, keeping the position of an existing entry with the same
// identifier or appending when there is none.
func (s *EntitySet) Replace(e *Entity) {
	if e == nil {
		return
	}
	s.ReplaceFrom(s.origin[e.ID()], e)
}

// ReplaceFrom is Replace recording source as the origin of e.
func (s *EntitySet) ReplaceFrom(source string, e *Entity) {
	if e == nil {
		return
	}
	id := e.ID()
	if _, ok := s.byID[id]; !ok {
		s.order = append(s.order, id)
	}
	s.byID[id] = e
	s.origin[id] = source
}

// Origin returns the source the entity with id was inserted from.
func (s *EntitySet) Origin(id string) (string, bool) {
	src, ok := s.origin[id]
	return src, ok
}

// Discard removes the entity with id. It reports whether one was removed.
func (s *EntitySet) Discard(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	delete(s.origin, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return true
}

// Get returns the entity with id.
func (s *EntitySet) Get(id string) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

func (s *EntitySet) Contains(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *EntitySet) Len() int {
	return len(s.order)
}

// Entities returns the members in insertion order.
func (s *EntitySet) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// IDs returns the identifiers in insertion order.
func (s *EntitySet) IDs() []string {
	return slices.Clone(s.order)
}
