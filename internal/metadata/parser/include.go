package parser

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"slices"

	"github.com/beevik/etree"

	"metafed/internal/metadata/models"
	"metafed/internal/metadata/ports"
	dErrors "metafed/pkg/domain-errors"
)

// MaxIncludeDepth bounds nested xi:include resolution.
const MaxIncludeDepth = 16

type includer struct {
	resolver ports.IncludeResolver
}

// resolve replaces every xi:include below el, recursing into included
// documents. chain holds the hrefs being resolved, outermost first.
func (in *includer) resolve(ctx context.Context, el *etree.Element, base string, chain []string) error {
	for _, child := range el.ChildElements() {
		if !models.Is(child, models.NSXInclude, "include") {
			if err := in.resolve(ctx, child, base, chain); err != nil {
				return err
			}
			continue
		}
		if err := in.expand(ctx, child, base, chain); err != nil {
			return err
		}
	}
	return nil
}

func (in *includer) expand(ctx context.Context, inc *etree.Element, base string, chain []string) error {
	href := inc.SelectAttrValue("href", "")
	if href == "" {
		return dErrors.New(dErrors.CodeParse, "xi:include without href is not supported")
	}
	target := ResolveHref(base, href)

	replacement, err := in.load(ctx, inc, target, chain)
	if err != nil {
		fallback := models.Child(inc, models.NSXInclude, "fallback")
		if fallback == nil {
			return err
		}
		replacement = make([]etree.Token, 0, len(fallback.Child))
		for _, tok := range fallback.Child {
			switch t := tok.(type) {
			case *etree.Element:
				cp := models.CopyElement(t)
				if err := in.resolve(ctx, cp, base, chain); err != nil {
					return err
				}
				replacement = append(replacement, cp)
			case *etree.CharData:
				replacement = append(replacement, etree.NewText(t.Data))
			}
		}
	}

	parent := inc.Parent()
	at := inc.Index()
	parent.RemoveChildAt(at)
	for i, tok := range replacement {
		parent.InsertChildAt(at+i, tok)
	}
	return nil
}

func (in *includer) load(ctx context.Context, inc *etree.Element, target string, chain []string) ([]etree.Token, error) {
	if in.resolver == nil {
		return nil, dErrors.Newf(dErrors.CodeParse, "cannot include %s: no include resolver configured", target)
	}
	if len(chain) >= MaxIncludeDepth {
		return nil, dErrors.Newf(dErrors.CodeParse, "include depth exceeds %d at %s", MaxIncludeDepth, target)
	}
	if slices.Contains(chain, target) {
		return nil, dErrors.Newf(dErrors.CodeParse, "recursive include of %s", target)
	}

	data, err := in.resolver.Resolve(ctx, target)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, fmt.Sprintf("cannot include %s", target))
	}

	switch mode := inc.SelectAttrValue("parse", "xml"); mode {
	case "text":
		return []etree.Token{etree.NewText(string(data))}, nil
	case "xml":
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeParse, fmt.Sprintf("included document %s is malformed", target))
		}
		root := doc.Root()
		if root == nil {
			return nil, dErrors.Newf(dErrors.CodeParse, "included document %s is empty", target)
		}
		if models.Is(root, models.NSXInclude, "include") {
			return nil, dErrors.Newf(dErrors.CodeParse, "included document %s is itself an include", target)
		}
		if err := in.resolve(ctx, root, target, append(slices.Clone(chain), target)); err != nil {
			return nil, err
		}
		doc.RemoveChild(root)
		return []etree.Token{root}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeParse, "unsupported xi:include parse mode %q", mode)
	}
}

// ResolveHref resolves href against base. URL bases follow RFC 3986
// reference resolution; other bases are treated as slash separated paths.
func ResolveHref(base, href string) string {
	if base == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.Scheme != "" {
		return href
	}
	if b, err := url.Parse(base); err == nil && b.Scheme != "" {
		return b.ResolveReference(ref).String()
	}
	if path.IsAbs(href) {
		return path.Clean(href)
	}
	return path.Join(path.Dir(base), href)
}
