// Package aggregate assembles entity records from one or more sources into a
// single md:EntitiesDescriptor.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"metafed/internal/metadata/metrics"
	"metafed/internal/metadata/models"
	"metafed/internal/metadata/ports"
	"metafed/internal/metadata/strategy"
	dErrors "metafed/pkg/domain-errors"
)

// Options configures one aggregation.
type Options struct {
	// Name becomes the Name attribute of the aggregate.
	Name string

	// CacheDuration is an xs:duration; empty omits cacheDuration.
	CacheDuration string

	// ValidUntil is written as validUntil; the zero time omits it.
	ValidUntil time.Time

	// Validate runs whole-document schema validation on the result.
	Validate bool

	// Borrow inserts the referenced records themselves instead of deep
	// copies. Borrowed records are moved out of their source tree, and
	// mutating the source afterwards changes the aggregate.
	Borrow bool

	// Strategy names the merge strategy; empty selects first_seen.
	Strategy string

	// Lookup resolves group references.
	Lookup ports.GroupLookup
}

// Engine builds aggregates.
type Engine struct {
	strategies *strategy.Registry
	validator  ports.SchemaValidator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine resolving strategies from strategies and validating
// through validator.
func New(strategies *strategy.Registry, validator ports.SchemaValidator, opts ...Option) (*Engine, error) {
	if strategies == nil {
		return nil, fmt.Errorf("strategy registry is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("schema validator is required")
	}
	e := &Engine{
		strategies: strategies,
		validator:  validator,
		logger:     slog.Default(),
		tracer:     otel.Tracer("metafed/internal/metadata/aggregate"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Aggregate merges the records refs resolve to into a new aggregate
// document. It returns a nil document and a nil error when no record was
// selected.
func (e *Engine) Aggregate(ctx context.Context, refs []Ref, opts Options) (*models.Document, error) {
	st, err := e.strategies.Resolve(opts.Strategy)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "metadata.aggregate", trace.WithAttributes(
		attribute.String("metadata.aggregate.name", opts.Name),
		attribute.String("metadata.aggregate.strategy", st.Name()),
		attribute.Int("metadata.aggregate.refs", len(refs)),
	))
	defer span.End()

	doc, err := e.aggregate(ctx, st, refs, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return doc, nil
}

func (e *Engine) aggregate(ctx context.Context, st strategy.Strategy, refs []Ref, opts Options) (*models.Document, error) {
	set := models.NewEntitySet()
	for _, ref := range refs {
		batch, err := e.resolve(ctx, ref, opts)
		if err != nil {
			return nil, err
		}
		if len(batch.Entities) == 0 {
			continue
		}
		if !opts.Borrow {
			for i, ent := range batch.Entities {
				if ent != nil {
					batch.Entities[i] = ent.Copy()
				}
			}
		}

		before := set.Len()
		set, err = st.Combine(set, batch)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("merge strategy %s failed", st.Name()))
		}
		if set == nil {
			return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "merge strategy %s returned no set", st.Name())
		}
		added := max(set.Len()-before, 0)
		e.metrics.IncrementMerge(st.Name(), "added", added)
		e.metrics.IncrementMerge(st.Name(), "merged", len(batch.Entities)-added)
	}

	if set.Len() == 0 {
		e.logger.DebugContext(ctx, "no entities selected", "aggregate", opts.Name)
		return nil, nil
	}
	e.logger.DebugContext(ctx, "selected entities", "aggregate", opts.Name, "count", set.Len())

	doc := models.NewAggregate(opts.Name, opts.CacheDuration, opts.ValidUntil)
	for _, ent := range set.Entities() {
		doc.Append(ent)
	}

	if opts.Validate {
		if err := e.validator.ValidateDocument(doc.Root()); err != nil {
			e.logger.DebugContext(ctx, "aggregate failed validation", "aggregate", opts.Name, "error", err)
			return nil, dErrors.Wrap(err, dErrors.CodeMergeValidation,
				fmt.Sprintf("XML schema validation failed: %s", opts.Name))
		}
	}
	return doc, nil
}

// resolve turns ref into the batch of records it selects.
func (e *Engine) resolve(ctx context.Context, ref Ref, opts Options) (strategy.Batch, error) {
	if !ref.IsGroup() {
		if ref.entity == nil {
			return strategy.Batch{}, nil
		}
		return strategy.Batch{Entities: []*models.Entity{ref.entity}}, nil
	}
	if opts.Lookup == nil {
		return strategy.Batch{}, dErrors.Newf(dErrors.CodePrecondition,
			"group reference %q requires a lookup", ref.group)
	}
	entities, err := opts.Lookup.Lookup(ctx, ref.group)
	if err != nil {
		return strategy.Batch{}, dErrors.Wrap(err, dErrors.CodeNotFound,
			fmt.Sprintf("lookup of group %q failed", ref.group))
	}
	// the lookup owns its slice
	batch := make([]*models.Entity, 0, len(entities))
	for _, ent := range entities {
		if ent != nil {
			batch = append(batch, ent)
		}
	}
	return strategy.Batch{Source: ref.group, Entities: batch}, nil
}
