package aggregate

import "metafed/internal/metadata/models"

// Ref selects records for an aggregate: either one entity directly or a
// named group resolved through a ports.GroupLookup.
type Ref struct {
	entity *models.Entity
	group  string
}

// Entity references e directly.
func Entity(e *models.Entity) Ref {
	return Ref{entity: e}
}

// Group references every entity the lookup returns for name.
func Group(name string) Ref {
	return Ref{group: name}
}

// IsGroup reports whether r names a group.
func (r Ref) IsGroup() bool {
	return r.entity == nil && r.group != ""
}

func (r Ref) String() string {
	if r.IsGroup() {
		return "group:" + r.group
	}
	if r.entity != nil {
		return "entity:" + r.entity.ID()
	}
	return "<empty>"
}
