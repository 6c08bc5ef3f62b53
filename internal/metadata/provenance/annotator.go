// Package provenance writes and reads the registration, publication and
// annotation data carried in md:Extensions.
package provenance

import (
	"sort"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"metafed/internal/metadata/models"
	dErrors "metafed/pkg/domain-errors"
)

// Target is an element provenance can be attached to. *models.Entity and
// *models.Document satisfy it.
type Target interface {
	Element() *etree.Element
}

// Link relations used by annotations.
const (
	RelSubject = "saml-metadata-subject"
	RelSource  = "saml-metadata-source"
)

// PublicationInfo is the mdrpi:PublicationInfo of an aggregate.
type PublicationInfo struct {
	Publisher       string
	CreationInstant time.Time
	PublicationID   string

	// UsagePolicies maps xml:lang to a policy URL.
	UsagePolicies map[string]string
}

// RegistrationInfo is the mdrpi:RegistrationInfo of an entity.
type RegistrationInfo struct {
	Authority string
	Instant   time.Time

	// Policies maps xml:lang to a policy URL.
	Policies map[string]string
}

// Annotation is a free-text atom:entry.
type Annotation struct {
	ID        string
	Published time.Time
	Subject   string
	Source    string
	Category  string
	Title     string
	Message   string
}

// Annotator mutates the md:Extensions of entities and aggregates.
type Annotator struct {
	now   func() time.Time
	newID func() string
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithClock sets the time source for default instants and annotation
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Annotator) {
		a.now = now
	}
}

// WithIDGenerator sets the generator of atom:id values.
func WithIDGenerator(newID func() string) Option {
	return func(a *Annotator) {
		a.newID = newID
	}
}

// New returns an Annotator.
func New(opts ...Option) *Annotator {
	a := &Annotator{
		now:   time.Now,
		newID: func() string { return "urn:uuid:" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetPublicationInfo records who published an aggregate. It fails on
// anything but an md:EntitiesDescriptor, on an empty publisher and when
// publication info is already present. A zero CreationInstant is replaced
// by the current time.
func (a *Annotator) SetPublicationInfo(t Target, info PublicationInfo) error {
	el := t.Element()
	if !models.Is(el, models.NSMetadata, models.TagEntitiesDescriptor) {
		return dErrors.New(dErrors.CodePrecondition, "publication info can only be set on an EntitiesDescriptor")
	}
	if strings.TrimSpace(info.Publisher) == "" {
		return dErrors.New(dErrors.CodeValidation, "publisher is required")
	}
	if existing := existingExtensions(el); existing != nil && models.Child(existing, models.NSRPI, "PublicationInfo") != nil {
		return dErrors.New(dErrors.CodeAlreadyPresent, "a PublicationInfo element is already present")
	}

	instant := info.CreationInstant
	if instant.IsZero() {
		instant = a.now()
	}
	pi := models.NewElement(extensions(el), models.NSRPI, "PublicationInfo")
	pi.CreateAttr("publisher", info.Publisher)
	pi.CreateAttr("creationInstant", models.FormatDateTime(instant))
	if info.PublicationID != "" {
		pi.CreateAttr("publicationId", info.PublicationID)
	}
	for _, lang := range sortedKeys(info.UsagePolicies) {
		up := models.NewElement(pi, models.NSRPI, "UsagePolicy")
		up.CreateAttr("xml:lang", lang)
		up.SetText(info.UsagePolicies[lang])
	}
	return nil
}

// SetRegistrationInfo records the registrar of an entity. It fails on
// anything but an md:EntityDescriptor, on an empty authority and when
// registration info is already present. A zero Instant is omitted.
func (a *Annotator) SetRegistrationInfo(t Target, info RegistrationInfo) error {
	el := t.Element()
	if !models.Is(el, models.NSMetadata, models.TagEntityDescriptor) {
		return dErrors.New(dErrors.CodePrecondition, "registration info can only be set on an EntityDescriptor")
	}
	if strings.TrimSpace(info.Authority) == "" {
		return dErrors.New(dErrors.CodeValidation, "registration authority is required")
	}
	if existing := existingExtensions(el); existing != nil && models.Child(existing, models.NSRPI, "RegistrationInfo") != nil {
		return dErrors.New(dErrors.CodeAlreadyPresent, "a RegistrationInfo element is already present")
	}

	ri := models.NewElement(extensions(el), models.NSRPI, "RegistrationInfo")
	ri.CreateAttr("registrationAuthority", info.Authority)
	if !info.Instant.IsZero() {
		ri.CreateAttr("registrationInstant", models.FormatDateTime(info.Instant))
	}
	for _, lang := range sortedKeys(info.Policies) {
		rp := models.NewElement(ri, models.NSRPI, "RegistrationPolicy")
		rp.CreateAttr("xml:lang", lang)
		rp.SetText(info.Policies[lang])
	}
	return nil
}

// SetEntityAttributes appends values to the entity attributes of an
// md:EntityDescriptor. Attributes are matched by name and name format and
// created when missing, so repeated calls accumulate values. An empty
// nameFormat selects the URI name format.
func (a *Annotator) SetEntityAttributes(t Target, attrs map[string][]string, nameFormat string) error {
	el := t.Element()
	if !models.Is(el, models.NSMetadata, models.TagEntityDescriptor) {
		return dErrors.New(dErrors.CodePrecondition, "entity attributes can only be set on an EntityDescriptor")
	}
	if nameFormat == "" {
		nameFormat = models.NameFormatURI
	}
	if len(attrs) == 0 {
		return nil
	}

	ext := extensions(el)
	ea := models.Child(ext, models.NSAttr, "EntityAttributes")
	if ea == nil {
		ea = models.NewElement(ext, models.NSAttr, "EntityAttributes")
	}
	for _, name := range sortedKeys(attrs) {
		attr := findAttribute(ea, name, nameFormat)
		if attr == nil {
			attr = models.NewElement(ea, models.NSAssertion, "Attribute")
			attr.CreateAttr("Name", name)
			attr.CreateAttr("NameFormat", nameFormat)
		}
		for _, v := range attrs[name] {
			models.NewElement(attr, models.NSAssertion, "AttributeValue").SetText(v)
		}
	}
	return nil
}

func findAttribute(ea *etree.Element, name, nameFormat string) *etree.Element {
	for _, attr := range models.Children(ea, models.NSAssertion, "Attribute") {
		if attr.SelectAttrValue("Name", "") == name && attr.SelectAttrValue("NameFormat", "") == nameFormat {
			return attr
		}
	}
	return nil
}

// Annotate appends a new atom:entry to an entity or an aggregate. Entries
// are never merged: each call adds one.
func (a *Annotator) Annotate(t Target, note Annotation) error {
	el := t.Element()
	if !models.Is(el, models.NSMetadata, models.TagEntityDescriptor) &&
		!models.Is(el, models.NSMetadata, models.TagEntitiesDescriptor) {
		return dErrors.New(dErrors.CodePrecondition, "only EntityDescriptor or EntitiesDescriptor elements can be annotated")
	}

	subject := el.SelectAttrValue(models.AttrName, "")
	if subject == "" {
		subject = el.SelectAttrValue(models.AttrEntityID, "")
	}
	published := note.Published
	if published.IsZero() {
		published = a.now()
	}
	id := note.ID
	if id == "" {
		id = a.newID()
	}

	entry := models.NewElement(extensions(el), models.NSAtom, "entry")
	models.NewElement(entry, models.NSAtom, "id").SetText(id)
	models.NewElement(entry, models.NSAtom, "published").SetText(published.UTC().Format(time.RFC3339Nano))
	link := models.NewElement(entry, models.NSAtom, "link")
	link.CreateAttr("href", subject)
	link.CreateAttr("rel", RelSubject)
	if note.Source != "" {
		src := models.NewElement(entry, models.NSAtom, "link")
		src.CreateAttr("href", note.Source)
		src.CreateAttr("rel", RelSource)
	}
	models.NewElement(entry, models.NSAtom, "title").SetText(note.Title)
	models.NewElement(entry, models.NSAtom, "category").CreateAttr("term", note.Category)
	content := models.NewElement(entry, models.NSAtom, "content")
	content.CreateAttr("type", "text/plain")
	content.SetText(note.Message)
	return nil
}

func existingExtensions(el *etree.Element) *etree.Element {
	return models.Child(el, models.NSMetadata, models.TagExtensions)
}

// extensions returns the md:Extensions child of el, creating it right after
// ds:Signature (or first) when missing.
func extensions(el *etree.Element) *etree.Element {
	if ext := existingExtensions(el); ext != nil {
		return ext
	}
	at := 0
	if sig := models.Child(el, models.NSDSig, models.TagSignature); sig != nil {
		at = sig.Index() + 1
	}
	return models.NewElementAt(el, at, models.NSMetadata, models.TagExtensions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
