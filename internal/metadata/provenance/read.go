package provenance

import (
	"strings"
	"time"

	"github.com/beevik/etree"

	"metafed/internal/metadata/models"
)

// Well-known entity attribute names.
const (
	AttrRole           = "http://pyff.io/role"
	AttrEntityCategory = "http://macedir.org/entity-category"

	CategoryDiscoverable      = "http://pyff.io/category/discoverable"
	CategoryHideFromDiscovery = "http://refeds.org/category/hide-from-discovery"
)

// EntityAttributes collects the mdattr:EntityAttributes of an entity keyed by
// attribute name. Values are trimmed; empty and repeated values are dropped.
func EntityAttributes(e *models.Entity) map[string][]string {
	out := map[string][]string{}
	for _, ea := range models.Descendants(e.Element(), models.NSAttr, "EntityAttributes") {
		for _, attr := range models.Children(ea, models.NSAssertion, "Attribute") {
			name := attr.SelectAttrValue("Name", "")
			if name == "" {
				continue
			}
			for _, v := range models.Children(attr, models.NSAssertion, "AttributeValue") {
				out[name] = appendValue(out[name], models.Text(v))
			}
		}
	}
	return out
}

// AttributeIndex maps every entity of doc to its entity attributes, plus
// AttrRole listing its roles. Identity providers that are not hidden from
// discovery also carry CategoryDiscoverable.
func AttributeIndex(doc *models.Document) map[string]map[string][]string {
	index := map[string]map[string][]string{}
	for _, e := range doc.Entities() {
		attrs := EntityAttributes(e)
		for _, role := range e.Roles() {
			switch role {
			case models.RoleIDP, models.RoleSP, models.RoleAA:
				attrs[AttrRole] = appendValue(attrs[AttrRole], string(role))
			}
		}
		if e.IsIDP() && !contains(attrs[AttrEntityCategory], CategoryHideFromDiscovery) {
			attrs[AttrEntityCategory] = appendValue(attrs[AttrEntityCategory], CategoryDiscoverable)
		}
		index[e.ID()] = attrs
	}
	return index
}

// Annotations returns the atom:entry annotations of t in document order.
func Annotations(t Target) []Annotation {
	ext := existingExtensions(t.Element())
	if ext == nil {
		return nil
	}
	var out []Annotation
	for _, entry := range models.Children(ext, models.NSAtom, "entry") {
		note := Annotation{
			ID:      models.Text(models.Child(entry, models.NSAtom, "id")),
			Title:   models.Text(models.Child(entry, models.NSAtom, "title")),
			Message: models.Text(models.Child(entry, models.NSAtom, "content")),
		}
		if published := models.Child(entry, models.NSAtom, "published"); published != nil {
			note.Published, _ = time.Parse(time.RFC3339Nano, models.Text(published))
		}
		if cat := models.Child(entry, models.NSAtom, "category"); cat != nil {
			note.Category = cat.SelectAttrValue("term", "")
		}
		for _, link := range models.Children(entry, models.NSAtom, "link") {
			switch link.SelectAttrValue("rel", "") {
			case RelSubject:
				note.Subject = link.SelectAttrValue("href", "")
			case RelSource:
				note.Source = link.SelectAttrValue("href", "")
			}
		}
		out = append(out, note)
	}
	return out
}

// ReadPublicationInfo returns the mdrpi:PublicationInfo of t, if any.
func ReadPublicationInfo(t Target) (PublicationInfo, bool) {
	pi := rpiChild(t.Element(), "PublicationInfo")
	if pi == nil {
		return PublicationInfo{}, false
	}
	info := PublicationInfo{
		Publisher:     pi.SelectAttrValue("publisher", ""),
		PublicationID: pi.SelectAttrValue("publicationId", ""),
		UsagePolicies: localized(pi, "UsagePolicy"),
	}
	info.CreationInstant, _ = models.ParseDateTime(pi.SelectAttrValue("creationInstant", ""))
	return info, true
}

// ReadRegistrationInfo returns the mdrpi:RegistrationInfo of t, if any.
func ReadRegistrationInfo(t Target) (RegistrationInfo, bool) {
	ri := rpiChild(t.Element(), "RegistrationInfo")
	if ri == nil {
		return RegistrationInfo{}, false
	}
	info := RegistrationInfo{
		Authority: ri.SelectAttrValue("registrationAuthority", ""),
		Policies:  localized(ri, "RegistrationPolicy"),
	}
	info.Instant, _ = models.ParseDateTime(ri.SelectAttrValue("registrationInstant", ""))
	return info, true
}

func rpiChild(el *etree.Element, local string) *etree.Element {
	ext := existingExtensions(el)
	if ext == nil {
		return nil
	}
	return models.Child(ext, models.NSRPI, local)
}

func localized(el *etree.Element, local string) map[string]string {
	children := models.Children(el, models.NSRPI, local)
	if len(children) == 0 {
		return nil
	}
	out := make(map[string]string, len(children))
	for _, c := range children {
		out[models.Lang(c)] = models.Text(c)
	}
	return out
}

func appendValue(values []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" || contains(values, v) {
		return values
	}
	return append(values, v)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
