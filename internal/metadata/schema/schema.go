// Package schema validates SAML 2.0 metadata trees.
//
// Validator enforces the structural rules of saml-schema-metadata-2.0 and the
// mdui, mdrpi, mdattr and shibmd extension schemas that aggregation depends
// on: element order and cardinality, required attributes, and the lexical
// form of dateTime, duration, boolean and unsignedShort values. Elements in
// foreign namespaces inside md:Extensions are accepted (lax processing).
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/sosodev/duration"

	"metafed/internal/metadata/models"
)

// MaxEntityIDLength is the SAML limit for entityID.
const MaxEntityIDLength = 1024

// Problem is a single schema violation.
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// ValidationError lists every violation found in one validation pass.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, "; ")
}

// Validator validates metadata elements. The zero value is ready to use.
type Validator struct{}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// ValidateEntity validates a single md:EntityDescriptor subtree.
func (v *Validator) ValidateEntity(el *etree.Element) error {
	c := &checker{}
	if !models.Is(el, models.NSMetadata, models.TagEntityDescriptor) {
		c.report(describe(el), "expected md:EntityDescriptor")
		return c.result()
	}
	c.entity(el, "")
	return c.result()
}

// ValidateDocument validates a tree rooted at md:EntityDescriptor or
// md:EntitiesDescriptor.
func (v *Validator) ValidateDocument(root *etree.Element) error {
	c := &checker{}
	switch {
	case models.Is(root, models.NSMetadata, models.TagEntityDescriptor):
		c.entity(root, "")
	case models.Is(root, models.NSMetadata, models.TagEntitiesDescriptor):
		c.entities(root, "")
	default:
		c.report(describe(root), "root must be md:EntityDescriptor or md:EntitiesDescriptor")
	}
	return c.result()
}

type checker struct {
	problems []Problem
}

func (c *checker) report(path, format string, args ...any) {
	c.problems = append(c.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) result() error {
	if len(c.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: c.problems}
}

func describe(el *etree.Element) string {
	if el == nil {
		return "<nil>"
	}
	return el.Tag
}

func join(path, step string) string {
	if path == "" {
		return step
	}
	return path + "/" + step
}

func (c *checker) entities(el *etree.Element, path string) {
	path = join(path, models.TagEntitiesDescriptor)
	if name := el.SelectAttrValue(models.AttrName, ""); name != "" {
		path += "[" + name + "]"
	}
	c.validity(el, path)

	state, members := 0, 0
	for _, child := range el.ChildElements() {
		ns := models.NamespaceOf(child)
		switch {
		case ns == models.NSDSig && child.Tag == models.TagSignature:
			if state > 0 {
				c.report(path, "ds:Signature must be the first child")
			}
			state = 1
		case ns == models.NSMetadata && child.Tag == models.TagExtensions:
			if state > 1 {
				c.report(path, "md:Extensions must precede member descriptors")
			}
			c.extensions(child, path)
			state = 2
		case ns == models.NSMetadata && child.Tag == models.TagEntityDescriptor:
			c.entity(child, path)
			state, members = 2, members+1
		case ns == models.NSMetadata && child.Tag == models.TagEntitiesDescriptor:
			c.entities(child, path)
			state, members = 2, members+1
		default:
			c.report(path, "unexpected element {%s}%s", ns, child.Tag)
		}
	}
	if members == 0 {
		c.report(path, "must contain at least one EntityDescriptor or EntitiesDescriptor")
	}
}

func (c *checker) entity(el *etree.Element, path string) {
	entityID := el.SelectAttrValue(models.AttrEntityID, "")
	path = join(path, models.TagEntityDescriptor+"["+entityID+"]")

	switch {
	case el.SelectAttr(models.AttrEntityID) == nil:
		c.report(path, "missing required attribute entityID")
	case strings.TrimSpace(entityID) == "":
		c.report(path, "entityID must not be empty")
	case len(entityID) > MaxEntityIDLength:
		c.report(path, "entityID exceeds %d characters", MaxEntityIDLength)
	}
	c.validity(el, path)

	// 0 signature, 1 extensions, 2 roles, 3 organization/contacts, 4 additional locations
	state, roles, affiliation := 0, 0, false
	for _, child := range el.ChildElements() {
		ns := models.NamespaceOf(child)
		if ns == models.NSDSig && child.Tag == models.TagSignature {
			if state > 0 {
				c.report(path, "ds:Signature must be the first child")
			}
			state = 1
			continue
		}
		if ns != models.NSMetadata {
			c.report(path, "unexpected element {%s}%s", ns, child.Tag)
			continue
		}
		switch child.Tag {
		case models.TagExtensions:
			if state > 1 {
				c.report(path, "md:Extensions must precede role descriptors")
			}
			c.extensions(child, path)
			state = 2
		case models.TagIDPSSODescriptor, models.TagSPSSODescriptor, models.TagAttributeAuthorityDescriptor,
			models.TagAuthnAuthorityDescriptor, models.TagPDPDescriptor, models.TagRoleDescriptor:
			if affiliation {
				c.report(path, "role descriptors cannot be combined with md:AffiliationDescriptor")
			}
			if state > 2 {
				c.report(path, "%s out of order", child.Tag)
			}
			c.role(child, path)
			state, roles = 2, roles+1
		case models.TagAffiliationDescriptor:
			if roles > 0 || affiliation {
				c.report(path, "md:AffiliationDescriptor must be the only descriptor")
			}
			c.affiliation(child, path)
			state, affiliation = 2, true
		case "Organization":
			if state > 2 {
				c.report(path, "md:Organization out of order")
			}
			c.organization(child, path)
			state = 3
		case "ContactPerson":
			if state > 3 {
				c.report(path, "md:ContactPerson out of order")
			}
			c.contact(child, path)
			state = 3
		case "AdditionalMetadataLocation":
			if child.SelectAttr("namespace") == nil {
				c.report(join(path, child.Tag), "missing required attribute namespace")
			}
			state = 4
		default:
			c.report(path, "unexpected element md:%s", child.Tag)
		}
	}
	if roles == 0 && !affiliation {
		c.report(path, "must contain at least one role descriptor or an md:AffiliationDescriptor")
	}
}

func (c *checker) validity(el *etree.Element, path string) {
	if v := el.SelectAttr(models.AttrValidUntil); v != nil {
		if _, ok := models.ParseDateTime(v.Value); !ok {
			c.report(path, "validUntil %q is not an xs:dateTime", v.Value)
		}
	}
	if v := el.SelectAttr(models.AttrCacheDuration); v != nil {
		if _, err := duration.Parse(strings.TrimSpace(v.Value)); err != nil {
			c.report(path, "cacheDuration %q is not an xs:duration", v.Value)
		}
	}
}

var endpointTags = map[string]bool{
	"SingleSignOnService":       true,
	"SingleLogoutService":       true,
	"ArtifactResolutionService": true,
	"ManageNameIDService":       true,
	"NameIDMappingService":      true,
	"AssertionIDRequestService": true,
	"AssertionConsumerService":  true,
	"AttributeService":          true,
	"AuthnQueryService":         true,
	"AuthzService":              true,
}

var indexedEndpointTags = map[string]bool{
	"ArtifactResolutionService": true,
	"AssertionConsumerService":  true,
}

var requiredEndpoint = map[string]string{
	models.TagIDPSSODescriptor:             "SingleSignOnService",
	models.TagSPSSODescriptor:              "AssertionConsumerService",
	models.TagAttributeAuthorityDescriptor: "AttributeService",
	models.TagAuthnAuthorityDescriptor:     "AuthnQueryService",
	models.TagPDPDescriptor:                "AuthzService",
}

func (c *checker) role(el *etree.Element, path string) {
	path = join(path, el.Tag)
	if strings.TrimSpace(el.SelectAttrValue("protocolSupportEnumeration", "")) == "" {
		c.report(path, "missing required attribute protocolSupportEnumeration")
	}
	if el.Tag == models.TagRoleDescriptor && xsiType(el) == "" {
		c.report(path, "md:RoleDescriptor requires xsi:type")
	}
	c.validity(el, path)

	endpoints := map[string]int{}
	for _, child := range el.ChildElements() {
		ns := models.NamespaceOf(child)
		if ns == models.NSDSig && child.Tag == models.TagSignature {
			continue
		}
		if ns == models.NSAssertion && child.Tag == "Attribute" &&
			(el.Tag == models.TagIDPSSODescriptor || el.Tag == models.TagAttributeAuthorityDescriptor) {
			continue
		}
		if ns != models.NSMetadata {
			if el.Tag != models.TagRoleDescriptor {
				c.report(path, "unexpected element {%s}%s", ns, child.Tag)
			}
			continue
		}
		switch {
		case child.Tag == models.TagExtensions:
			c.extensions(child, path)
		case child.Tag == "KeyDescriptor":
			c.keyDescriptor(child, path)
		case child.Tag == "Organization":
			c.organization(child, path)
		case child.Tag == "ContactPerson":
			c.contact(child, path)
		case endpointTags[child.Tag]:
			endpoints[child.Tag]++
			c.endpoint(child, path, endpoints[child.Tag])
		case child.Tag == "AttributeConsumingService":
			c.attributeConsumingService(child, path)
		case child.Tag == "NameIDFormat", child.Tag == "AttributeProfile":
		default:
			if el.Tag != models.TagRoleDescriptor {
				c.report(path, "unexpected element md:%s", child.Tag)
			}
		}
	}
	if want, ok := requiredEndpoint[el.Tag]; ok && endpoints[want] == 0 {
		c.report(path, "must contain at least one md:%s", want)
	}
}

func xsiType(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "type" && a.Space != "" && models.ResolvePrefix(el, a.Space) == models.NSXMLSchemaIn {
			return a.Value
		}
	}
	return ""
}

func (c *checker) endpoint(el *etree.Element, path string, n int) {
	path = join(path, fmt.Sprintf("%s[%d]", el.Tag, n))
	if strings.TrimSpace(el.SelectAttrValue("Binding", "")) == "" {
		c.report(path, "missing required attribute Binding")
	}
	if strings.TrimSpace(el.SelectAttrValue("Location", "")) == "" {
		c.report(path, "missing required attribute Location")
	}
	if indexedEndpointTags[el.Tag] {
		c.unsignedShort(el, path, "index", true)
		c.boolean(el, path, "isDefault")
	}
}

func (c *checker) attributeConsumingService(el *etree.Element, path string) {
	path = join(path, "AttributeConsumingService")
	c.unsignedShort(el, path, "index", true)
	c.boolean(el, path, "isDefault")
	if len(models.Children(el, models.NSMetadata, "ServiceName")) == 0 {
		c.report(path, "must contain at least one md:ServiceName")
	}
	requested := models.Children(el, models.NSMetadata, "RequestedAttribute")
	if len(requested) == 0 {
		c.report(path, "must contain at least one md:RequestedAttribute")
	}
	for _, ra := range requested {
		if ra.SelectAttrValue("Name", "") == "" {
			c.report(join(path, "RequestedAttribute"), "missing required attribute Name")
		}
	}
}

func (c *checker) keyDescriptor(el *etree.Element, path string) {
	path = join(path, "KeyDescriptor")
	if use := el.SelectAttr("use"); use != nil && use.Value != "signing" && use.Value != "encryption" {
		c.report(path, "use %q must be signing or encryption", use.Value)
	}
	if models.Child(el, models.NSDSig, "KeyInfo") == nil {
		c.report(path, "must contain ds:KeyInfo")
	}
}

func (c *checker) affiliation(el *etree.Element, path string) {
	path = join(path, models.TagAffiliationDescriptor)
	if el.SelectAttrValue("affiliationOwnerID", "") == "" {
		c.report(path, "missing required attribute affiliationOwnerID")
	}
	if len(models.Children(el, models.NSMetadata, "AffiliateMember")) == 0 {
		c.report(path, "must contain at least one md:AffiliateMember")
	}
	c.validity(el, path)
}

func (c *checker) organization(el *etree.Element, path string) {
	path = join(path, "Organization")
	for _, tag := range []string{"OrganizationName", "OrganizationDisplayName", "OrganizationURL"} {
		elements := models.Children(el, models.NSMetadata, tag)
		if len(elements) == 0 {
			c.report(path, "must contain at least one md:%s", tag)
		}
		for _, e := range elements {
			if models.Lang(e) == "" {
				c.report(join(path, tag), "missing required attribute xml:lang")
			}
		}
	}
}

var contactTypes = map[string]bool{
	"technical": true, "support": true, "administrative": true, "billing": true, "other": true,
}

func (c *checker) contact(el *etree.Element, path string) {
	path = join(path, "ContactPerson")
	ct := el.SelectAttrValue("contactType", "")
	if !contactTypes[ct] {
		c.report(path, "contactType %q is not one of technical, support, administrative, billing, other", ct)
	}
}

var localizedUITags = map[string]bool{
	"DisplayName": true, "Description": true, "Keywords": true, "InformationURL": true, "PrivacyStatementURL": true,
}

func (c *checker) extensions(el *etree.Element, path string) {
	path = join(path, models.TagExtensions)
	children := el.ChildElements()
	if len(children) == 0 {
		c.report(path, "must contain at least one element")
	}
	for _, child := range children {
		switch ns := models.NamespaceOf(child); {
		case ns == models.NSMetadata:
			c.report(path, "md:%s is not allowed in md:Extensions", child.Tag)
		case ns == models.NSRPI && child.Tag == "RegistrationInfo":
			c.registrationInfo(child, path)
		case ns == models.NSRPI && child.Tag == "PublicationInfo":
			c.publicationInfo(child, path)
		case ns == models.NSAttr && child.Tag == "EntityAttributes":
			c.entityAttributes(child, path)
		case ns == models.NSUI && child.Tag == "UIInfo":
			c.uiInfo(child, path)
		case ns == models.NSShibMD && child.Tag == "Scope":
			if models.Text(child) == "" {
				c.report(join(path, "Scope"), "must not be empty")
			}
			c.boolean(child, join(path, "Scope"), "regexp")
		}
	}
}

func (c *checker) registrationInfo(el *etree.Element, path string) {
	path = join(path, "RegistrationInfo")
	if el.SelectAttrValue("registrationAuthority", "") == "" {
		c.report(path, "missing required attribute registrationAuthority")
	}
	c.dateTime(el, path, "registrationInstant")
	for _, p := range models.Children(el, models.NSRPI, "RegistrationPolicy") {
		if models.Lang(p) == "" {
			c.report(join(path, "RegistrationPolicy"), "missing required attribute xml:lang")
		}
	}
}

func (c *checker) publicationInfo(el *etree.Element, path string) {
	path = join(path, "PublicationInfo")
	if el.SelectAttrValue("publisher", "") == "" {
		c.report(path, "missing required attribute publisher")
	}
	c.dateTime(el, path, "creationInstant")
	for _, p := range models.Children(el, models.NSRPI, "UsagePolicy") {
		if models.Lang(p) == "" {
			c.report(join(path, "UsagePolicy"), "missing required attribute xml:lang")
		}
	}
}

func (c *checker) entityAttributes(el *etree.Element, path string) {
	path = join(path, "EntityAttributes")
	for _, child := range el.ChildElements() {
		if models.NamespaceOf(child) != models.NSAssertion || (child.Tag != "Attribute" && child.Tag != "Assertion") {
			c.report(path, "only saml:Attribute and saml:Assertion are allowed, found %s", child.Tag)
			continue
		}
		if child.Tag == "Attribute" && child.SelectAttrValue("Name", "") == "" {
			c.report(join(path, "Attribute"), "missing required attribute Name")
		}
	}
}

func (c *checker) uiInfo(el *etree.Element, path string) {
	path = join(path, "UIInfo")
	for _, child := range el.ChildElements() {
		if models.NamespaceOf(child) != models.NSUI {
			continue
		}
		switch {
		case child.Tag == "Logo":
			lp := join(path, "Logo")
			c.positiveInt(child, lp, "height")
			c.positiveInt(child, lp, "width")
		case localizedUITags[child.Tag]:
			if models.Lang(child) == "" {
				c.report(join(path, child.Tag), "missing required attribute xml:lang")
			}
		}
	}
}

func (c *checker) dateTime(el *etree.Element, path, attr string) {
	if v := el.SelectAttr(attr); v != nil {
		if _, ok := models.ParseDateTime(v.Value); !ok {
			c.report(path, "%s %q is not an xs:dateTime", attr, v.Value)
		}
	}
}

func (c *checker) boolean(el *etree.Element, path, attr string) {
	v := el.SelectAttr(attr)
	if v == nil {
		return
	}
	switch strings.TrimSpace(v.Value) {
	case "true", "false", "1", "0":
	default:
		c.report(path, "%s %q is not an xs:boolean", attr, v.Value)
	}
}

func (c *checker) unsignedShort(el *etree.Element, path, attr string, required bool) {
	v := el.SelectAttr(attr)
	if v == nil {
		if required {
			c.report(path, "missing required attribute %s", attr)
		}
		return
	}
	if _, err := strconv.ParseUint(strings.TrimSpace(v.Value), 10, 16); err != nil {
		c.report(path, "%s %q is not an xs:unsignedShort", attr, v.Value)
	}
}

func (c *checker) positiveInt(el *etree.Element, path, attr string) {
	v := el.SelectAttr(attr)
	if v == nil {
		c.report(path, "missing required attribute %s", attr)
		return
	}
	if n, err := strconv.ParseUint(strings.TrimSpace(v.Value), 10, 64); err != nil || n == 0 {
		c.report(path, "%s %q is not an xs:positiveInteger", attr, v.Value)
	}
}
