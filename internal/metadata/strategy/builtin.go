package strategy

import (
	"github.com/beevik/etree"

	"metafed/internal/metadata/models"
)

// Built-in strategy names.
const (
	FirstSeen       = "first_seen"
	ReplaceExisting = "replace_existing"
	Remove          = "remove"
	UnionRoles      = "union_roles"
)

// perRecord builds a strategy that folds a batch one record at a time.
func perRecord(name string, fold func(set *models.EntitySet, source string, e *models.Entity)) Strategy {
	return New(name, func(existing *models.EntitySet, batch Batch) (*models.EntitySet, error) {
		for _, e := range batch.Entities {
			if e == nil {
				continue
			}
			fold(existing, batch.Source, e)
		}
		return existing, nil
	})
}

// firstSeen keeps the first record seen for an identifier and drops later
// duplicates, whichever source they come from.
func firstSeen() Strategy {
	return perRecord(FirstSeen, func(set *models.EntitySet, source string, e *models.Entity) {
		set.AddFrom(source, e)
	})
}

// replaceExisting lets a later record replace an earlier one in place.
func replaceExisting() Strategy {
	return perRecord(ReplaceExisting, func(set *models.EntitySet, source string, e *models.Entity) {
		set.ReplaceFrom(source, e)
	})
}

// remove drops an identifier from the set when it shows up again.
func remove() Strategy {
	return perRecord(Remove, func(set *models.EntitySet, source string, e *models.Entity) {
		if set.Discard(e.ID()) {
			return
		}
		set.AddFrom(source, e)
	})
}

// unionRoles adds to an existing record the role descriptors of a later
// record that it does not have yet. The existing record is copied before it
// is changed.
func unionRoles() Strategy {
	return perRecord(UnionRoles, func(set *models.EntitySet, source string, e *models.Entity) {
		existing, ok := set.Get(e.ID())
		if !ok {
			set.AddFrom(source, e)
			return
		}
		if merged := mergeRoles(existing, e); merged != nil {
			set.Replace(merged)
		}
	})
}

func roleKey(el *etree.Element) string {
	return el.Tag + "|" + el.SelectAttrValue("xsi:type", "")
}

func mergeRoles(existing, incoming *models.Entity) *models.Entity {
	have := map[string]bool{}
	for _, r := range existing.RoleDescriptors() {
		have[roleKey(r)] = true
	}
	var missing []*etree.Element
	for _, r := range incoming.RoleDescriptors() {
		if k := roleKey(r); !have[k] {
			have[k] = true
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	merged := existing.Copy()
	el := merged.Element()
	at := len(el.Child)
	if roles := merged.RoleDescriptors(); len(roles) > 0 {
		at = roles[len(roles)-1].Index() + 1
	}
	for i, r := range missing {
		el.InsertChildAt(at+i, models.CopyElement(r))
	}
	return merged
}

// PreferSource returns a strategy that resolves duplicates by source rank:
// a record from a source listed earlier in order replaces one from a source
// listed later or not at all. Ties keep the existing record.
func PreferSource(name string, order ...string) Strategy {
	rank := make(map[string]int, len(order))
	for i, src := range order {
		if _, ok := rank[src]; !ok {
			rank[src] = i
		}
	}
	rankOf := func(src string) int {
		if r, ok := rank[src]; ok {
			return r
		}
		return len(order)
	}
	return perRecord(name, func(set *models.EntitySet, source string, e *models.Entity) {
		current, ok := set.Origin(e.ID())
		if !ok {
			set.AddFrom(source, e)
			return
		}
		if rankOf(source) < rankOf(current) {
			set.ReplaceFrom(source, e)
		}
	})
}
