// Package storage defines the persistence boundary for the memory graph.
// The Driver is the single owner of Entity and Fact records; every other
// component reaches them through this interface.
package storage

import (
	"context"

	"github.com/memorygraphco/memorygraph/pkg/graph"
)

// FactSeed carries the caller-supplied fields for a new fact. The store
// assigns the id, creation time, and default weight.
type FactSeed struct {
	Who    string
	About  string
	Scene  string
	Type   string
	Intent graph.Intent
	Text   string
	Tags   []string

	// WeightSeed overrides the default initial weight when non-nil.
	// Values outside [0, 1] are clamped.
	WeightSeed *float64
}

// FactFilter selects the candidate set for ranking. Who and About are
// required equality filters; Scene and Intent narrow further when set.
type FactFilter struct {
	Who    string
	About  string
	Scene  string
	Intent graph.Intent
}

// Driver persists entities and facts and produces whole-store snapshots.
//
// Weight and pin mutations must be linearizable per fact id: concurrent
// feedback on the same fact must not lose an update. Reads need only
// read-committed isolation.
type Driver interface {
	// PutEntity registers an entity. Re-registering an existing id with
	// the same kind is a no-op; changing the kind is a ConflictError.
	PutEntity(ctx context.Context, entity graph.Entity) error

	// GetEntity retrieves an entity by id.
	GetEntity(ctx context.Context, id string) (graph.Entity, error)

	// ListEntities returns all registered entities.
	ListEntities(ctx context.Context) ([]graph.Entity, error)

	// CreateFact validates the seed, assigns a fresh fact id, and stores
	// the record. Fails with ValidationError if who/about are unknown
	// entities or text is empty.
	CreateFact(ctx context.Context, seed FactSeed) (graph.Fact, error)

	// GetFact retrieves a fact by id.
	GetFact(ctx context.Context, id string) (graph.Fact, error)

	// QueryFacts returns the unscored, unordered candidate set matching
	// the filter.
	QueryFacts(ctx context.Context, filter FactFilter) ([]graph.Fact, error)

	// SetPinned flips the pin flag. Idempotent.
	SetPinned(ctx context.Context, id string, pinned bool) error

	// SetWeight replaces the fact's weight, silently clamping to [0, 1].
	SetWeight(ctx context.Context, id string, weight float64) error

	// UpdateWeight atomically replaces the fact's weight with fn(current),
	// clamped to [0, 1], and returns the old and new weights. The read and
	// write form one critical section per fact id, so concurrent updates
	// never lose each other's results.
	UpdateWeight(ctx context.Context, id string, fn func(float64) float64) (old, updated float64, err error)

	// Export returns a full snapshot of entities and facts.
	Export(ctx context.Context) (graph.Snapshot, error)

	// Import replaces all store state with the snapshot's contents.
	Import(ctx context.Context, snap graph.Snapshot) error

	// Close releases any resources held by the store.
	Close() error
}
