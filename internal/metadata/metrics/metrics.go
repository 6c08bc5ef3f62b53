package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the metadata pipeline.
type Metrics struct {
	// Parse latency by outcome
	ParseLatency *prometheus.HistogramVec

	// Entity records dropped by the filter engine
	InvalidEntities prometheus.Counter

	// Entity records in each published aggregate
	AggregateEntities *prometheus.GaugeVec

	// Records offered to a merge strategy, by strategy and outcome
	MergeDecisions *prometheus.CounterVec

	// Overall refresh latency
	RefreshLatency prometheus.Histogram
}

// New creates a Metrics instance registered with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ParseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metafed_parse_duration_seconds",
			Help:    "Duration of metadata parsing and validation by outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}), // outcome: "ok", "error", "rejected"

		InvalidEntities: factory.NewCounter(prometheus.CounterOpts{
			Name: "metafed_invalid_entities_total",
			Help: "Total entity records removed because they failed schema validation",
		}),

		AggregateEntities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "metafed_aggregate_entities",
			Help: "Number of entity records in the last published aggregate",
		}, []string{"aggregate"}),

		MergeDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "metafed_merge_records_total",
			Help: "Entity records offered to a merge strategy by outcome",
		}, []string{"strategy", "outcome"}), // outcome: "added", "merged"

		RefreshLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "metafed_refresh_duration_seconds",
			Help:    "Duration of a full aggregate refresh",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// ObserveParse records the duration of one parse call.
func (m *Metrics) ObserveParse(outcome string, d time.Duration) {
	if m != nil {
		m.ParseLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// AddInvalid counts n filtered entity records.
func (m *Metrics) AddInvalid(n int) {
	if m != nil && n > 0 {
		m.InvalidEntities.Add(float64(n))
	}
}

// SetAggregateSize records the number of entities published under name.
func (m *Metrics) SetAggregateSize(name string, n int) {
	if m != nil {
		m.AggregateEntities.WithLabelValues(name).Set(float64(n))
	}
}

// IncrementMerge records a merge decision.
func (m *Metrics) IncrementMerge(strategy, outcome string, n int) {
	if m != nil && n > 0 {
		m.MergeDecisions.WithLabelValues(strategy, outcome).Add(float64(n))
	}
}

// ObserveRefresh records the total refresh duration.
func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m != nil {
		m.RefreshLatency.Observe(d.Seconds())
	}
}
