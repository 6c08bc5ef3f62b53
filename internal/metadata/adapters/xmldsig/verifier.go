// Package xmldsig verifies enveloped XML signatures on metadata documents.
package xmldsig

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // sha1 fingerprints are still published by federations
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"metafed/internal/metadata/models"
)

var (
	ErrNoRoot           = errors.New("document has no root element")
	ErrNoCertificate    = errors.New("no embedded certificate matches the fingerprint")
	ErrInvalidKey       = errors.New("key is neither a PEM certificate nor a certificate fingerprint")
	ErrUnsupportedBlock = errors.New("PEM block is not a certificate")
)

// Key is a parsed verification key: either a trusted certificate or the
// fingerprint of one.
type Key struct {
	Certificate *x509.Certificate
	Fingerprint []byte
}

// ParseKey accepts a PEM certificate or a SHA-1/SHA-256 certificate
// fingerprint, optionally prefixed with "sha1:" or "sha256:" and separated by
// colons or spaces.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "-----BEGIN") {
		block, _ := pem.Decode([]byte(s))
		if block == nil {
			return Key{}, ErrInvalidKey
		}
		if block.Type != "CERTIFICATE" {
			return Key{}, ErrUnsupportedBlock
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return Key{}, fmt.Errorf("parse certificate: %w", err)
		}
		return Key{Certificate: cert}, nil
	}

	fp := strings.ToLower(s)
	want := 0
	switch {
	case strings.HasPrefix(fp, "sha1:"):
		fp, want = strings.TrimPrefix(fp, "sha1:"), sha1.Size
	case strings.HasPrefix(fp, "sha256:"):
		fp, want = strings.TrimPrefix(fp, "sha256:"), sha256.Size
	}
	fp = strings.NewReplacer(":", "", " ", "").Replace(fp)
	raw, err := hex.DecodeString(fp)
	if err != nil {
		return Key{}, ErrInvalidKey
	}
	if len(raw) != sha1.Size && len(raw) != sha256.Size || want != 0 && len(raw) != want {
		return Key{}, ErrInvalidKey
	}
	return Key{Fingerprint: raw}, nil
}

// Matches reports whether cert has the key's fingerprint or is the key's
// certificate.
func (k Key) Matches(cert *x509.Certificate) bool {
	if k.Certificate != nil {
		return k.Certificate.Equal(cert)
	}
	switch len(k.Fingerprint) {
	case sha1.Size:
		sum := sha1.Sum(cert.Raw) //nolint:gosec
		return bytes.Equal(sum[:], k.Fingerprint)
	case sha256.Size:
		sum := sha256.Sum256(cert.Raw)
		return bytes.Equal(sum[:], k.Fingerprint)
	}
	return false
}

// Verifier checks the signature over a document root.
type Verifier struct {
	logger *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// New creates a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates the enveloped signature of doc's root against key and
// returns a new document holding only what the signature covers, with the
// signature removed.
func (v *Verifier) Verify(ctx context.Context, doc *etree.Document, key string) (*etree.Document, error) {
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}

	trusted := k.Certificate
	if trusted == nil {
		for _, cert := range EmbeddedCertificates(root) {
			if k.Matches(cert) {
				trusted = cert
				break
			}
		}
		if trusted == nil {
			return nil, ErrNoCertificate
		}
	}

	vctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{trusted},
	})
	validated, err := vctx.Validate(root)
	if err != nil {
		return nil, fmt.Errorf("validate signature: %w", err)
	}
	v.logger.DebugContext(ctx, "signature verified",
		"subject", trusted.Subject.String(),
		"root", root.Tag,
	)

	out := etree.NewDocument()
	out.SetRoot(validated)
	return out, nil
}

// EmbeddedCertificates returns the certificates carried in the KeyInfo of
// the signature directly under root. Undecodable entries are skipped.
func EmbeddedCertificates(root *etree.Element) []*x509.Certificate {
	sig := models.Child(root, models.NSDSig, models.TagSignature)
	if sig == nil {
		return nil
	}
	var certs []*x509.Certificate
	for _, el := range models.Descendants(sig, models.NSDSig, "X509Certificate") {
		raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(el.Text()), ""))
		if err != nil {
			continue
		}
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}
	return certs
}
