package models

import (
	"io"
	"time"

	"github.com/beevik/etree"
)

// Document is a metadata tree rooted at an md:EntityDescriptor or an
// md:EntitiesDescriptor.
type Document struct {
	doc *etree.Document
}

// NewDocument wraps an etree document.
func NewDocument(doc *etree.Document) *Document {
	return &Document{doc: doc}
}

// NewAggregate builds an empty md:EntitiesDescriptor declaring every metadata
// namespace. Empty name or cacheDuration and a zero validUntil are omitted.
func NewAggregate(name, cacheDuration string, validUntil time.Time) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("md:" + TagEntitiesDescriptor)
	for _, ns := range aggregateNamespaces {
		root.CreateAttr("xmlns:"+Prefixes[ns], ns)
	}
	if name != "" {
		root.CreateAttr(AttrName, name)
	}
	if cacheDuration != "" {
		root.CreateAttr(AttrCacheDuration, cacheDuration)
	}
	if !validUntil.IsZero() {
		root.CreateAttr(AttrValidUntil, FormatDateTime(validUntil))
	}
	return &Document{doc: doc}
}

// Tree returns the underlying etree document.
func (d *Document) Tree() *etree.Document {
	return d.doc
}

// Root returns the root element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Element returns the root element.
func (d *Document) Element() *etree.Element {
	return d.doc.Root()
}

// IsEntity reports whether the root is a single md:EntityDescriptor.
func (d *Document) IsEntity() bool {
	return Is(d.Root(), NSMetadata, TagEntityDescriptor)
}

// IsEntities reports whether the root is an md:EntitiesDescriptor.
func (d *Document) IsEntities() bool {
	return Is(d.Root(), NSMetadata, TagEntitiesDescriptor)
}

// Name returns the Name attribute of an aggregate root.
func (d *Document) Name() string {
	return d.Root().SelectAttrValue(AttrName, "")
}

// Append moves e to the end of the root. Namespace bindings e inherited
// from its previous parent are declared on e first.
func (d *Document) Append(e *Entity) {
	DeclareInScope(e.Element())
	d.Root().AddChild(e.Element())
}

// Entities returns every EntityDescriptor with a usable entityID in
// document order, including those nested in inner EntitiesDescriptor
// elements. A single-entity root yields itself.
func (d *Document) Entities() []*Entity {
	root := d.Root()
	if root == nil {
		return nil
	}
	if Is(root, NSMetadata, TagEntityDescriptor) {
		if e, err := NewEntity(root); err == nil {
			return []*Entity{e}
		}
		return nil
	}
	var out []*Entity
	for _, el := range Descendants(root, NSMetadata, TagEntityDescriptor) {
		if e, err := NewEntity(el); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// EntityElements returns every md:EntityDescriptor element in document
// order, including those lacking an entityID.
func (d *Document) EntityElements() []*etree.Element {
	root := d.Root()
	if root == nil {
		return nil
	}
	if Is(root, NSMetadata, TagEntityDescriptor) {
		return []*etree.Element{root}
	}
	return Descendants(root, NSMetadata, TagEntityDescriptor)
}

// FindEntity returns the first entity whose attr equals value.
func (d *Document) FindEntity(value, attr string) (*Entity, bool) {
	if attr == "" {
		attr = AttrEntityID
	}
	for _, el := range d.EntityElements() {
		if el.SelectAttrValue(attr, "") == value {
			if e, err := NewEntity(el); err == nil {
				return e, true
			}
		}
	}
	return nil, false
}

// Copy returns a deep copy of the document.
func (d *Document) Copy() *Document {
	return &Document{doc: d.doc.Copy()}
}

// Bytes serialises the document with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	cp := d.doc.Copy()
	cp.Indent(2)
	return cp.WriteToBytes()
}

// WriteTo serialises the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cp := d.doc.Copy()
	cp.Indent(2)
	return cp.WriteTo(w)
}
