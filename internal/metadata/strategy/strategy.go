// Package strategy holds the named merge strategies the aggregation engine
// uses to reconcile entity records that share an entityID.
package strategy

import (
	"metafed/internal/metadata/models"
)

// Batch is the group of records one reference resolved to.
type Batch struct {
	// Source names the group the records came from; empty for direct
	// references.
	Source   string
	Entities []*models.Entity
}

// Strategy folds a batch of incoming records into an existing set.
// Implementations may mutate and return existing.
type Strategy interface {
	Name() string
	Combine(existing *models.EntitySet, batch Batch) (*models.EntitySet, error)
}

// CombineFunc is the signature of a strategy body.
type CombineFunc func(existing *models.EntitySet, batch Batch) (*models.EntitySet, error)

type funcStrategy struct {
	name string
	fn   CombineFunc
}

// New returns a Strategy named name backed by fn.
func New(name string, fn CombineFunc) Strategy {
	return &funcStrategy{name: name, fn: fn}
}

func (s *funcStrategy) Name() string { return s.name }

func (s *funcStrategy) Combine(existing *models.EntitySet, batch Batch) (*models.EntitySet, error) {
	return s.fn(existing, batch)
}
