// Package parser turns raw SAML metadata bytes into validated metadata
// documents with an expiration hint.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/etree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"metafed/internal/metadata/aggregate"
	"metafed/internal/metadata/metrics"
	"metafed/internal/metadata/models"
	"metafed/internal/metadata/ports"
	"metafed/internal/metadata/strategy"
	"metafed/internal/platform/config"
	dErrors "metafed/pkg/domain-errors"
)

// Source is one metadata input.
type Source struct {
	Data []byte

	// Key is the certificate (PEM) or certificate fingerprint the document
	// signature must verify against. Empty skips verification.
	Key string

	// BaseURL locates the document. Relative xi:include hrefs resolve
	// against it and it names the aggregate a lone EntityDescriptor is
	// wrapped into.
	BaseURL string
}

// Result is the outcome of a parse. Document is nil when nothing usable
// was produced.
type Result struct {
	Document         *models.Document
	Expiration       time.Duration
	HasExpiration    bool
	ValidationErrors map[string]string
}

// Parser runs the parse, verify, validate pipeline.
type Parser struct {
	cfg       config.Pipeline
	expiry    config.Expiry
	validator ports.SchemaValidator
	verifier  ports.SignatureVerifier
	includes  ports.IncludeResolver
	engine    *aggregate.Engine
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	tracer    trace.Tracer
}

// Option configures a Parser.
type Option func(*Parser)

// WithConfig sets the pipeline flags.
func WithConfig(cfg config.Pipeline) Option {
	return func(p *Parser) {
		p.cfg = cfg
	}
}

// WithExpiry sets the expiration policy.
func WithExpiry(cfg config.Expiry) Option {
	return func(p *Parser) {
		p.expiry = cfg
	}
}

// WithVerifier sets the signature verifier used for sources with a key.
func WithVerifier(v ports.SignatureVerifier) Option {
	return func(p *Parser) {
		p.verifier = v
	}
}

// WithIncludeResolver sets the resolver for xi:include hrefs.
func WithIncludeResolver(r ports.IncludeResolver) Option {
	return func(p *Parser) {
		p.includes = r
	}
}

// WithEngine sets the engine used to wrap single entities.
func WithEngine(e *aggregate.Engine) Option {
	return func(p *Parser) {
		p.engine = e
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Parser) {
		p.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithClock sets the time source for expiration hints.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// New creates a Parser validating through validator.
func New(validator ports.SchemaValidator, opts ...Option) (*Parser, error) {
	if validator == nil {
		return nil, fmt.Errorf("schema validator is required")
	}
	p := &Parser{
		cfg:       config.DefaultPipeline(),
		expiry:    config.DefaultExpiry(),
		validator: validator,
		logger:    slog.Default(),
		now:       time.Now,
		tracer:    otel.Tracer("metafed/internal/metadata/parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		engine, err := aggregate.New(strategy.Default(), validator,
			aggregate.WithLogger(p.logger), aggregate.WithMetrics(p.metrics))
		if err != nil {
			return nil, err
		}
		p.engine = engine
	}
	return p, nil
}

// WithPipeline returns a Parser sharing p's collaborators but using cfg.
func (p *Parser) WithPipeline(cfg config.Pipeline) *Parser {
	cp := *p
	cp.cfg = cfg
	return &cp
}

// Parse runs the pipeline over src.
//
// Unless the pipeline is configured with FailOnError, any failure is logged
// and reported as an empty Result with a nil error, so one broken source
// does not stop a caller working through many.
func (p *Parser) Parse(ctx context.Context, src Source) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "metadata.parse", trace.WithAttributes(
		attribute.String("metadata.base_url", src.BaseURL),
		attribute.Bool("metadata.verify", src.Key != ""),
	))
	defer span.End()

	start := time.Now()
	res, err := p.parse(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObserveParse("error", time.Since(start))
		if p.cfg.FailOnError {
			return Result{}, err
		}
		p.logger.ErrorContext(ctx, "failed to parse metadata",
			"base_url", src.BaseURL,
			"error", err,
		)
		return Result{}, nil
	}

	outcome := "ok"
	if res.Document == nil {
		outcome = "rejected"
	}
	p.metrics.ObserveParse(outcome, time.Since(start))
	if res.Document != nil {
		p.logger.DebugContext(ctx, "parsed metadata",
			"base_url", src.BaseURL,
			"entities", len(res.Document.EntityElements()),
			"invalid", len(res.ValidationErrors),
		)
	}
	return res, nil
}

func (p *Parser) parse(ctx context.Context, src Source) (Result, error) {
	res := Result{ValidationErrors: map[string]string{}}

	if len(bytes.TrimSpace(src.Data)) == 0 {
		return res, dErrors.New(dErrors.CodeParse, "empty metadata document")
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(src.Data); err != nil {
		return res, dErrors.Wrap(err, dErrors.CodeParse, "malformed metadata document")
	}
	if tree.Root() == nil {
		return res, dErrors.New(dErrors.CodeParse, "metadata document has no root element")
	}
	in := &includer{resolver: p.includes}
	if err := in.resolve(ctx, tree.Root(), src.BaseURL, nil); err != nil {
		return res, err
	}

	// before any mutation: later steps may drop the validity attributes
	res.Expiration, res.HasExpiration = Expiration(tree.Root(), p.expiry, p.now())

	if src.Key != "" {
		verified, err := p.verify(ctx, tree, src.Key)
		if err != nil {
			return res, err
		}
		tree = verified
	}

	doc := models.NewDocument(tree)
	// IDs are only unique within their source
	for _, el := range doc.EntityElements() {
		el.RemoveAttr(models.AttrID)
	}

	if !doc.IsEntity() && !doc.IsEntities() {
		root := doc.Root()
		return res, dErrors.Newf(dErrors.CodeParse, "unexpected root element {%s}%s",
			models.NamespaceOf(root), root.Tag)
	}

	if p.cfg.Validate {
		if p.cfg.FilterInvalid {
			doc = FilterInvalid(doc, src.BaseURL, p.validator, res.ValidationErrors, p.logger)
			p.metrics.AddInvalid(len(res.ValidationErrors))
		} else if err := p.validator.ValidateDocument(doc.Root()); err != nil {
			return res, dErrors.Wrap(err, dErrors.CodeSchemaValidation,
				fmt.Sprintf("schema validation failed: [%s]", src.BaseURL))
		}
	}

	if doc != nil && doc.IsEntity() {
		wrapped, err := p.wrap(ctx, doc, src.BaseURL)
		if err != nil {
			return res, err
		}
		doc = wrapped
	}
	res.Document = doc
	return res, nil
}

func (p *Parser) verify(ctx context.Context, tree *etree.Document, key string) (*etree.Document, error) {
	if p.verifier == nil {
		return nil, dErrors.New(dErrors.CodeSignature, "no signature verifier configured")
	}
	verified, err := p.verifier.Verify(ctx, tree, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSignature, "signature verification failed")
	}
	if verified == nil || verified.Root() == nil {
		return nil, dErrors.New(dErrors.CodeSignature, "signature verifier returned no document")
	}
	return verified, nil
}

// wrap turns a lone EntityDescriptor into a one-member aggregate named after
// its base URL. The entity is moved, not copied.
func (p *Parser) wrap(ctx context.Context, doc *models.Document, baseURL string) (*models.Document, error) {
	ent, err := models.NewEntity(doc.Root())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, "cannot wrap entity")
	}
	return p.engine.Aggregate(ctx, []aggregate.Ref{aggregate.Entity(ent)}, aggregate.Options{
		Name:   baseURL,
		Borrow: true,
	})
}
