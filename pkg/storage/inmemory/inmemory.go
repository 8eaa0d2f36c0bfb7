// Package inmemory provides a map-backed storage driver. It is the default
// for tests and for running the server without a database.
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps guarded by a
// read-write mutex. All mutations run under the write lock, which makes
// per-fact weight updates linearizable.
type Driver struct {
	mu       sync.RWMutex
	entities map[string]graph.Entity
	facts    map[string]graph.Fact

	// created preserves fact insertion order for stable exports
	created []string

	now func() time.Time
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		entities: make(map[string]graph.Entity),
		facts:    make(map[string]graph.Fact),
		now:      time.Now,
	}
}

// SetClock overrides the driver's clock. Test hook.
func (d *Driver) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// PutEntity registers an entity. Registering the same id with the same kind
// is a no-op; changing the kind of an existing entity is a conflict.
func (d *Driver) PutEntity(_ context.Context, entity graph.Entity) error {
	if strings.TrimSpace(entity.ID) == "" {
		return storage.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !entity.Kind.Valid() {
		return storage.ValidationError{Field: "kind", Reason: "must be npc or player"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.entities[entity.ID]; ok {
		if existing.Kind != entity.Kind {
			return storage.ConflictError{Reason: "entity " + entity.ID + " already registered as " + string(existing.Kind)}
		}
		return nil
	}

	d.entities[entity.ID] = entity
	return nil
}

// GetEntity retrieves an entity by id.
func (d *Driver) GetEntity(_ context.Context, id string) (graph.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entity, ok := d.entities[id]
	if !ok {
		return graph.Entity{}, storage.NotFoundError{Kind: "entity", ID: id}
	}
	return entity, nil
}

// ListEntities returns all entities sorted by id for deterministic output.
func (d *Driver) ListEntities(_ context.Context) ([]graph.Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entities := make([]graph.Entity, 0, len(d.entities))
	for _, e := range d.entities {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	return entities, nil
}

// CreateFact validates the seed and stores a new fact record.
func (d *Driver) CreateFact(_ context.Context, seed storage.FactSeed) (graph.Fact, error) {
	if strings.TrimSpace(seed.Text) == "" {
		return graph.Fact{}, storage.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if !seed.Intent.Valid() {
		return graph.Fact{}, storage.ValidationError{Field: "intent", Reason: "unknown intent " + string(seed.Intent)}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entities[seed.Who]; !ok {
		return graph.Fact{}, storage.ValidationError{Field: "who", Reason: "unknown entity " + seed.Who}
	}
	if _, ok := d.entities[seed.About]; !ok {
		return graph.Fact{}, storage.ValidationError{Field: "about", Reason: "unknown entity " + seed.About}
	}

	weight := graph.DefaultWeight
	if seed.WeightSeed != nil {
		weight = graph.Clamp01(*seed.WeightSeed)
	}

	fact := graph.Fact{
		ID:        uuid.NewString(),
		Who:       seed.Who,
		About:     seed.About,
		Scene:     seed.Scene,
		Type:      seed.Type,
		Intent:    seed.Intent,
		Text:      seed.Text,
		Tags:      append([]string(nil), seed.Tags...),
		Weight:    weight,
		CreatedAt: d.now().UTC(),
	}

	d.facts[fact.ID] = fact
	d.created = append(d.created, fact.ID)
	return fact.Clone(), nil
}

// GetFact retrieves a fact by id.
func (d *Driver) GetFact(_ context.Context, id string) (graph.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	fact, ok := d.facts[id]
	if !ok {
		return graph.Fact{}, storage.NotFoundError{Kind: "fact", ID: id}
	}
	return fact.Clone(), nil
}

// QueryFacts returns the candidate set matching the filter.
func (d *Driver) QueryFacts(_ context.Context, filter storage.FactFilter) ([]graph.Fact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var facts []graph.Fact
	for _, id := range d.created {
		fact := d.facts[id]
		if fact.Who != filter.Who || fact.About != filter.About {
			continue
		}
		if filter.Scene != "" && fact.Scene != filter.Scene {
			continue
		}
		if filter.Intent != graph.IntentNone && fact.Intent != filter.Intent {
			continue
		}
		facts = append(facts, fact.Clone())
	}
	return facts, nil
}

// SetPinned flips the pin flag on a fact. Idempotent.
func (d *Driver) SetPinned(_ context.Context, id string, pinned bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fact, ok := d.facts[id]
	if !ok {
		return storage.NotFoundError{Kind: "fact", ID: id}
	}
	fact.Pinned = pinned
	d.facts[id] = fact
	return nil
}

// SetWeight replaces the fact's weight, clamped to [0, 1].
func (d *Driver) SetWeight(_ context.Context, id string, weight float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fact, ok := d.facts[id]
	if !ok {
		return storage.NotFoundError{Kind: "fact", ID: id}
	}
	fact.Weight = graph.Clamp01(weight)
	d.facts[id] = fact
	return nil
}

// UpdateWeight applies fn to the fact's current weight under the write
// lock, so the read-modify-write is one critical section.
func (d *Driver) UpdateWeight(_ context.Context, id string, fn func(float64) float64) (float64, float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fact, ok := d.facts[id]
	if !ok {
		return 0, 0, storage.NotFoundError{Kind: "fact", ID: id}
	}

	old := fact.Weight
	fact.Weight = graph.Clamp01(fn(old))
	d.facts[id] = fact
	return old, fact.Weight, nil
}

// Export returns a full snapshot of entities and facts.
func (d *Driver) Export(ctx context.Context) (graph.Snapshot, error) {
	entities, err := d.ListEntities(ctx)
	if err != nil {
		return graph.Snapshot{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	facts := make([]graph.Fact, 0, len(d.created))
	for _, id := range d.created {
		facts = append(facts, d.facts[id].Clone())
	}

	return graph.Snapshot{
		SchemaVersion: graph.SnapshotSchemaV1,
		ExportedAt:    d.now().UTC(),
		Entities:      entities,
		Facts:         facts,
	}, nil
}

// Import replaces all store state with the snapshot's contents.
func (d *Driver) Import(_ context.Context, snap graph.Snapshot) error {
	if snap.SchemaVersion != 0 && snap.SchemaVersion != graph.SnapshotSchemaV1 {
		return storage.ValidationError{Field: "schema_version", Reason: "unsupported snapshot version"}
	}

	entities := make(map[string]graph.Entity, len(snap.Entities))
	for _, e := range snap.Entities {
		if !e.Kind.Valid() {
			return storage.ValidationError{Field: "entities", Reason: "unknown kind for entity " + e.ID}
		}
		entities[e.ID] = e
	}

	facts := make(map[string]graph.Fact, len(snap.Facts))
	created := make([]string, 0, len(snap.Facts))
	for _, f := range snap.Facts {
		if _, ok := entities[f.Who]; !ok {
			return storage.ValidationError{Field: "facts", Reason: "fact " + f.ID + " references unknown entity " + f.Who}
		}
		if _, ok := entities[f.About]; !ok {
			return storage.ValidationError{Field: "facts", Reason: "fact " + f.ID + " references unknown entity " + f.About}
		}
		f.Weight = graph.Clamp01(f.Weight)
		facts[f.ID] = f.Clone()
		created = append(created, f.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.entities = entities
	d.facts = facts
	d.created = created
	return nil
}

// Count returns the number of stored facts.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.facts)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
