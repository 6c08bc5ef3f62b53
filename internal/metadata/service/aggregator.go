// Package service refreshes the configured aggregate: it reads and parses
// every source, merges them, stamps provenance and publishes the result.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sosodev/duration"
	"golang.org/x/sync/errgroup"

	"metafed/internal/metadata/aggregate"
	"metafed/internal/metadata/metrics"
	"metafed/internal/metadata/models"
	"metafed/internal/metadata/parser"
	"metafed/internal/metadata/ports"
	"metafed/internal/metadata/provenance"
	"metafed/internal/metadata/store"
	"metafed/internal/platform/config"
	dErrors "metafed/pkg/domain-errors"
)

const (
	// MinRefreshInterval bounds how soon a refresh is rescheduled, however
	// close the earliest source expiry is.
	MinRefreshInterval = 30 * time.Second

	// DefaultRefreshInterval applies when neither the sources nor the
	// configuration give an expiry.
	DefaultRefreshInterval = time.Hour

	// CategoryValidation tags annotations describing dropped records.
	CategoryValidation = "validation"
)

// SourceReader returns the raw bytes of a configured source path.
type SourceReader interface {
	Resolve(ctx context.Context, name string) ([]byte, error)
}

// Store keeps published aggregates.
type Store interface {
	Save(ctx context.Context, p *store.Published) error
	Find(ctx context.Context, name string) (*store.Published, error)
}

// SourceReport summarizes one source in a refresh.
type SourceReport struct {
	Name     string
	Entities int
	Invalid  int

	// Expiration is the hint the source declared, if HasExpiration.
	Expiration    time.Duration
	HasExpiration bool
}

// Report is the outcome of one refresh.
type Report struct {
	RunID   string
	Sources []SourceReport

	// Published is nil when no source contributed a record.
	Published *store.Published

	// NextRefresh is when the aggregate should be rebuilt.
	NextRefresh time.Duration
}

// Aggregator rebuilds and publishes the configured aggregate.
type Aggregator struct {
	cfg       config.File
	parser    *parser.Parser
	engine    *aggregate.Engine
	reader    SourceReader
	store     Store
	annotator *provenance.Annotator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newRunID  func() string

	// one refresh at a time
	mu sync.Mutex
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithClock sets the time source for publication instants and expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithAnnotator sets the provenance annotator.
func WithAnnotator(an *provenance.Annotator) Option {
	return func(a *Aggregator) {
		a.annotator = an
	}
}

// WithRunIDs sets the generator of refresh run identifiers.
func WithRunIDs(next func() string) Option {
	return func(a *Aggregator) {
		a.newRunID = next
	}
}

// New creates an Aggregator for cfg.
func New(cfg config.File, p *parser.Parser, engine *aggregate.Engine, reader SourceReader, st Store, opts ...Option) (*Aggregator, error) {
	if p == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("aggregation engine is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("source reader is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &Aggregator{
		cfg:      cfg,
		parser:   p,
		engine:   engine,
		reader:   reader,
		store:    st,
		logger:   slog.Default(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.annotator == nil {
		a.annotator = provenance.New(provenance.WithClock(a.now))
	}
	return a, nil
}

// Name is the name the aggregate is published under.
func (a *Aggregator) Name() string {
	return a.cfg.Aggregate.Name
}

// Refresh rebuilds the aggregate from every source and publishes it.
//
// Sources are parsed concurrently and merged in configuration order. A
// source that cannot be read or parsed is skipped unless its pipeline sets
// fail_on_error.
func (a *Aggregator) Refresh(ctx context.Context) (Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	defer func() {
		a.metrics.ObserveRefresh(time.Since(start))
	}()

	report := Report{RunID: a.newRunID()}
	results, err := a.parseSources(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "refresh failed", "run_id", report.RunID, "error", err)
		return report, err
	}

	groups := make(map[string][]*models.Entity, len(results))
	refs := make([]aggregate.Ref, 0, len(results))
	for i, src := range a.cfg.Sources {
		res := results[i]
		sr := SourceReport{
			Name:          src.Name,
			Invalid:       len(res.ValidationErrors),
			Expiration:    res.Expiration,
			HasExpiration: res.HasExpiration,
		}
		if res.Document != nil {
			groups[src.Name] = res.Document.Entities()
			sr.Entities = len(groups[src.Name])
			refs = append(refs, aggregate.Group(src.Name))
		}
		report.Sources = append(report.Sources, sr)
	}
	report.NextRefresh = a.nextRefresh(report.Sources)

	now := a.now()
	opts := aggregate.Options{
		Name:          a.cfg.Aggregate.Name,
		CacheDuration: a.cfg.Aggregate.CacheDuration,
		Validate:      a.cfg.Pipeline.Validate,
		Borrow:        true,
		Strategy:      a.cfg.Aggregate.Strategy,
		Lookup: ports.GroupLookupFunc(func(_ context.Context, name string) ([]*models.Entity, error) {
			entities, ok := groups[name]
			if !ok {
				return nil, fmt.Errorf("unknown source %q", name)
			}
			return entities, nil
		}),
	}
	if a.cfg.Aggregate.ValidFor != "" {
		validFor, err := parseDuration(a.cfg.Aggregate.ValidFor)
		if err != nil {
			return report, dErrors.Wrap(err, dErrors.CodeValidation, "invalid aggregate.valid_for")
		}
		opts.ValidUntil = now.Add(validFor)
	}

	doc, err := a.engine.Aggregate(ctx, refs, opts)
	if err != nil {
		a.logger.ErrorContext(ctx, "aggregation failed", "run_id", report.RunID, "error", err)
		return report, err
	}
	if doc == nil {
		a.logger.WarnContext(ctx, "no entities to publish", "run_id", report.RunID, "aggregate", opts.Name)
		return report, nil
	}

	invalid := validationErrors(a.cfg.Sources, results)
	if err := a.stamp(doc, report.RunID, now, invalid); err != nil {
		return report, err
	}

	xml, err := doc.Bytes()
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "serialize aggregate")
	}
	published := &store.Published{
		Name:             opts.Name,
		XML:              xml,
		RunID:            report.RunID,
		PublishedAt:      now,
		Expires:          opts.ValidUntil,
		Entities:         provenance.AttributeIndex(doc),
		ValidationErrors: invalid,
	}
	if err := a.store.Save(ctx, published); err != nil {
		a.logger.ErrorContext(ctx, "failed to publish aggregate", "run_id", report.RunID, "error", err)
		return report, fmt.Errorf("publish aggregate: %w", err)
	}
	a.metrics.SetAggregateSize(opts.Name, len(published.Entities))
	report.Published = published

	a.logger.InfoContext(ctx, "aggregate published",
		"run_id", report.RunID,
		"aggregate", opts.Name,
		"entities", len(published.Entities),
		"next_refresh", report.NextRefresh,
	)
	return report, nil
}

func (a *Aggregator) parseSources(ctx context.Context) ([]parser.Result, error) {
	results := make([]parser.Result, len(a.cfg.Sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, src := range a.cfg.Sources {
		g.Go(func() error {
			res, err := a.parseSource(ctx, src)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Aggregator) parseSource(ctx context.Context, src config.Source) (parser.Result, error) {
	pipeline := a.cfg.PipelineFor(src)
	data, err := a.reader.Resolve(ctx, src.Path)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeParse, "failed to read source")
		if pipeline.FailOnError {
			return parser.Result{}, err
		}
		a.logger.ErrorContext(ctx, "skipping source", "source", src.Name, "error", err)
		return parser.Result{}, nil
	}
	return a.parser.WithPipeline(pipeline).Parse(ctx, parser.Source{
		Data:    data,
		Key:     src.Verify,
		BaseURL: src.Path,
	})
}

// stamp adds publication info and one annotation per dropped record.
func (a *Aggregator) stamp(doc *models.Document, runID string, now time.Time, invalid map[string]map[string]string) error {
	if a.cfg.Aggregate.Publisher != "" {
		err := a.annotator.SetPublicationInfo(doc, provenance.PublicationInfo{
			Publisher:       a.cfg.Aggregate.Publisher,
			CreationInstant: now,
			PublicationID:   runID,
		})
		if err != nil {
			return err
		}
	}
	for _, src := range a.cfg.Sources {
		errs := invalid[src.Name]
		ids := make([]string, 0, len(errs))
		for id := range errs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			err := a.annotator.Annotate(doc, provenance.Annotation{
				Category: CategoryValidation,
				Title:    id,
				Message:  errs[id],
				Source:   src.Path,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// nextRefresh is the earliest source expiry, or the configured default
// cache duration when no source declared one.
func (a *Aggregator) nextRefresh(sources []SourceReport) time.Duration {
	next, found := time.Duration(0), false
	for _, s := range sources {
		if s.HasExpiration && (!found || s.Expiration < next) {
			next, found = s.Expiration, true
		}
	}
	if !found {
		next = DefaultRefreshInterval
		if d, err := parseDuration(a.cfg.Expiry.DefaultCacheDuration); err == nil {
			next = d
		}
	}
	return max(next, MinRefreshInterval)
}

func validationErrors(sources []config.Source, results []parser.Result) map[string]map[string]string {
	out := map[string]map[string]string{}
	for i, src := range sources {
		if len(results[i].ValidationErrors) > 0 {
			out[src.Name] = results[i].ValidationErrors
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseDuration(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, err
	}
	return d.ToTimeDuration(), nil
}
