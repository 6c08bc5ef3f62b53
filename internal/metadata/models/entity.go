package models

import (
	"strings"
	"time"

	"github.com/beevik/etree"

	dErrors "metafed/pkg/domain-errors"
)

// Role names a functional role descriptor of an entity.
type Role string

const (
	RoleIDP   Role = "idp"
	RoleSP    Role = "sp"
	RoleAA    Role = "aa"
	RoleAuthn Role = "authn"
	RolePDP   Role = "pdp"
)

var roleTags = []struct {
	tag  string
	role Role
}{
	{TagIDPSSODescriptor, RoleIDP},
	{TagSPSSODescriptor, RoleSP},
	{TagAttributeAuthorityDescriptor, RoleAA},
	{TagAuthnAuthorityDescriptor, RoleAuthn},
	{TagPDPDescriptor, RolePDP},
}

// RoleDescriptorTags lists every md element that marks a functional role.
var RoleDescriptorTags = []string{
	TagIDPSSODescriptor,
	TagSPSSODescriptor,
	TagAttributeAuthorityDescriptor,
	TagAuthnAuthorityDescriptor,
	TagPDPDescriptor,
	TagRoleDescriptor,
}

// Entity is one md:EntityDescriptor and its subtree.
//
// Invariants:
//   - the element is an md:EntityDescriptor
//   - entityID is non-empty
type Entity struct {
	el *etree.Element
}

// NewEntity wraps an md:EntityDescriptor element.
func NewEntity(el *etree.Element) (*Entity, error) {
	if !Is(el, NSMetadata, TagEntityDescriptor) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "element is not an EntityDescriptor")
	}
	if strings.TrimSpace(el.SelectAttrValue(AttrEntityID, "")) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "EntityDescriptor has no entityID")
	}
	return &Entity{el: el}, nil
}

// ID returns the entityID.
func (e *Entity) ID() string {
	return e.el.SelectAttrValue(AttrEntityID, "")
}

// Element returns the underlying md:EntityDescriptor.
func (e *Entity) Element() *etree.Element {
	return e.el
}

// Copy returns a deep, independently owned copy.
func (e *Entity) Copy() *Entity {
	return &Entity{el: CopyElement(e.el)}
}

// ValidUntil returns the parsed validUntil attribute.
func (e *Entity) ValidUntil() (time.Time, bool) {
	return ParseDateTime(e.el.SelectAttrValue(AttrValidUntil, ""))
}

// CacheDuration returns the raw cacheDuration attribute.
func (e *Entity) CacheDuration() string {
	return e.el.SelectAttrValue(AttrCacheDuration, "")
}

// Roles returns the roles this entity declares, in a fixed order.
func (e *Entity) Roles() []Role {
	var roles []Role
	for _, rt := range roleTags {
		if Child(e.el, NSMetadata, rt.tag) != nil {
			roles = append(roles, rt.role)
		}
	}
	return roles
}

// HasRole reports whether the entity declares role.
func (e *Entity) HasRole(role Role) bool {
	for _, r := range e.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func (e *Entity) IsIDP() bool { return e.HasRole(RoleIDP) }
func (e *Entity) IsSP() bool  { return e.HasRole(RoleSP) }
func (e *Entity) IsAA() bool  { return e.HasRole(RoleAA) }

// RoleDescriptors returns the role descriptor children in document order.
func (e *Entity) RoleDescriptors() []*etree.Element {
	var out []*etree.Element
	for _, c := range e.el.ChildElements() {
		if NamespaceOf(c) != NSMetadata {
			continue
		}
		for _, tag := range RoleDescriptorTags {
			if c.Tag == tag {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Scopes returns the shibmd:Scope values of the IdP role, or nil.
func (e *Entity) Scopes() []string {
	var scopes []string
	for _, idp := range Children(e.el, NSMetadata, TagIDPSSODescriptor) {
		ext := Child(idp, NSMetadata, TagExtensions)
		if ext == nil {
			continue
		}
		for _, s := range Children(ext, NSShibMD, "Scope") {
			scopes = append(scopes, Text(s))
		}
	}
	return scopes
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseDateTime parses an xs:dateTime. Values without a zone are UTC.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatDateTime renders t as an xs:dateTime in UTC with second precision.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
