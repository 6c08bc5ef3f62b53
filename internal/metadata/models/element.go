package models

import (
	"strings"

	"github.com/beevik/etree"
)

// NamespaceOf resolves the namespace URI of el by walking its xmlns
// declarations up to the root. The xml prefix is always bound.
func NamespaceOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return ResolvePrefix(el, el.Space)
}

// ResolvePrefix returns the namespace URI bound to prefix in scope at el.
// The empty prefix resolves the default namespace.
func ResolvePrefix(el *etree.Element, prefix string) string {
	if prefix == "xml" {
		return NSXML
	}
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if prefix == "" && a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
			if prefix != "" && a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// prefixFor returns a prefix bound to ns in scope at el.
func prefixFor(el *etree.Element, ns string) (string, bool) {
	seen := map[string]bool{}
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			var prefix string
			switch {
			case a.Space == "xmlns":
				prefix = a.Key
			case a.Space == "" && a.Key == "xmlns":
				prefix = ""
			default:
				continue
			}
			// an inner declaration shadows outer ones
			if seen[prefix] {
				continue
			}
			seen[prefix] = true
			if a.Value == ns {
				return prefix, true
			}
		}
	}
	return "", false
}

// Is reports whether el is the element {ns}local.
func Is(el *etree.Element, ns, local string) bool {
	return el != nil && el.Tag == local && NamespaceOf(el) == ns
}

// Children returns the direct children of el named {ns}local.
func Children(el *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if Is(c, ns, local) {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first direct child of el named {ns}local.
func Child(el *etree.Element, ns, local string) *etree.Element {
	for _, c := range el.ChildElements() {
		if Is(c, ns, local) {
			return c
		}
	}
	return nil
}

// Descendants returns every element below el named {ns}local in document order.
func Descendants(el *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(cur *etree.Element) {
		for _, c := range cur.ChildElements() {
			if Is(c, ns, local) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)
	return out
}

// NewElement creates {ns}local as the last child of parent. The canonical
// prefix is declared on the new element when it is not already bound.
func NewElement(parent *etree.Element, ns, local string) *etree.Element {
	el := etree.NewElement(local)
	if parent != nil {
		parent.AddChild(el)
	}
	bind(el, ns)
	return el
}

// NewElementAt is NewElement inserted at child token index i.
func NewElementAt(parent *etree.Element, i int, ns, local string) *etree.Element {
	el := etree.NewElement(local)
	parent.InsertChildAt(i, el)
	bind(el, ns)
	return el
}

func bind(el *etree.Element, ns string) {
	if prefix, ok := prefixFor(el, ns); ok {
		el.Space = prefix
		return
	}
	prefix := Prefixes[ns]
	if prefix == "" {
		el.CreateAttr("xmlns", ns)
		return
	}
	el.Space = prefix
	el.CreateAttr("xmlns:"+prefix, ns)
}

// Text returns the trimmed character data of el.
func Text(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// Lang returns the xml:lang attribute of el.
func Lang(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "lang" && a.Space == "xml" {
			return a.Value
		}
	}
	return ""
}

// CopyElement deep-copies el and re-declares every namespace binding that
// el inherited from its ancestors, so the copy is self-contained.
func CopyElement(el *etree.Element) *etree.Element {
	cp := el.Copy()
	inheritNamespaces(cp, el.Parent())
	return cp
}

// DeclareInScope adds to el the namespace declarations it inherits from its
// ancestors, so el stays well-formed after being moved to another tree.
func DeclareInScope(el *etree.Element) {
	inheritNamespaces(el, el.Parent())
}

func inheritNamespaces(dst, from *etree.Element) {
	declared := map[string]bool{}
	for _, a := range dst.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		}
		if a.Space == "" && a.Key == "xmlns" {
			declared[""] = true
		}
	}
	for cur := from; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			switch {
			case a.Space == "xmlns" && !declared[a.Key]:
				declared[a.Key] = true
				dst.CreateAttr("xmlns:"+a.Key, a.Value)
			case a.Space == "" && a.Key == "xmlns" && !declared[""]:
				declared[""] = true
				dst.CreateAttr("xmlns", a.Value)
			}
		}
	}
}
