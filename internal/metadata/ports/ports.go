// Package ports declares the collaborators the metadata core depends on but
// does not implement: signature verification, schema validation, include
// resolution and group lookup.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/beevik/etree"

	"metafed/internal/metadata/models"
)

// SignatureVerifier checks the enveloped signature of a metadata document
// against a key, which is either certificate material (PEM) or a certificate
// fingerprint. It returns the document processing should continue with.
type SignatureVerifier interface {
	Verify(ctx context.Context, doc *etree.Document, key string) (*etree.Document, error)
}

// SchemaValidator checks metadata against the SAML metadata schema family.
// ValidateEntity checks a single md:EntityDescriptor subtree; ValidateDocument
// checks a whole tree rooted at an EntityDescriptor or EntitiesDescriptor.
type SchemaValidator interface {
	ValidateEntity(el *etree.Element) error
	ValidateDocument(root *etree.Element) error
}

// IncludeResolver returns the bytes an xi:include href points to. href is
// already resolved against the document base.
type IncludeResolver interface {
	Resolve(ctx context.Context, href string) ([]byte, error)
}

// GroupLookup resolves a named group of entities.
type GroupLookup interface {
	Lookup(ctx context.Context, name string) ([]*models.Entity, error)
}

// GroupLookupFunc adapts a function to GroupLookup.
type GroupLookupFunc func(ctx context.Context, name string) ([]*models.Entity, error)

func (f GroupLookupFunc) Lookup(ctx context.Context, name string) ([]*models.Entity, error) {
	return f(ctx, name)
}
