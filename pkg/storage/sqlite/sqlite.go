// Package sqlite provides a SQLite-backed storage driver. The dbPath can be
// a file path or ":memory:" for an in-memory database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/memorygraphco/memorygraph/pkg/graph"
	"github.com/memorygraphco/memorygraph/pkg/storage"
)

// Driver implements storage.Driver on SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (or creates) the database at dbPath and migrates the schema.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection
	// serializes statements and transactions without lock upgrade errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &Driver{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id   TEXT PRIMARY KEY,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS facts (
		id         TEXT PRIMARY KEY,
		who        TEXT NOT NULL REFERENCES entities(id),
		about      TEXT NOT NULL REFERENCES entities(id),
		scene      TEXT NOT NULL DEFAULT '',
		type       TEXT NOT NULL DEFAULT '',
		intent     TEXT NOT NULL DEFAULT '',
		text       TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '[]',
		weight     REAL NOT NULL DEFAULT 0.5,
		pinned     INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facts_who_about ON facts(who, about);
	`

	_, err := d.db.Exec(schema)
	return err
}

// exec runs a statement with the transient-failure retry budget.
func (d *Driver) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := storage.Retry(ctx, func() error {
		var execErr error
		res, execErr = d.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}

// PutEntity registers an entity; re-registering with the same kind is a no-op.
func (d *Driver) PutEntity(ctx context.Context, entity graph.Entity) error {
	if entity.ID == "" {
		return storage.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !entity.Kind.Valid() {
		return storage.ValidationError{Field: "kind", Reason: "must be npc or player"}
	}

	existing, err := d.GetEntity(ctx, entity.ID)
	if err == nil {
		if existing.Kind != entity.Kind {
			return storage.ConflictError{Reason: "entity " + entity.ID + " already registered as " + string(existing.Kind)}
		}
		return nil
	}
	var notFound storage.NotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	_, err = d.exec(ctx,
		`INSERT OR IGNORE INTO entities (id, kind) VALUES (?, ?)`,
		entity.ID, string(entity.Kind),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by id.
func (d *Driver) GetEntity(ctx context.Context, id string) (graph.Entity, error) {
	var entity graph.Entity
	err := storage.Retry(ctx, func() error {
		row := d.db.QueryRowContext(ctx, `SELECT id, kind FROM entities WHERE id = ?`, id)

		var kind string
		if err := row.Scan(&entity.ID, &kind); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.NotFoundError{Kind: "entity", ID: id}
			}
			return fmt.Errorf("failed to scan entity: %w", err)
		}
		entity.Kind = graph.EntityKind(kind)
		return nil
	})
	if err != nil {
		return graph.Entity{}, err
	}
	return entity, nil
}

// ListEntities returns all registered entities ordered by id.
func (d *Driver) ListEntities(ctx context.Context) ([]graph.Entity, error) {
	var entities []graph.Entity
	err := storage.Retry(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, `SELECT id, kind FROM entities ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to query entities: %w", err)
		}
		defer rows.Close()

		entities = entities[:0]
		for rows.Next() {
			var entity graph.Entity
			var kind string
			if err := rows.Scan(&entity.ID, &kind); err != nil {
				return fmt.Errorf("failed to scan entity: %w", err)
			}
			entity.Kind = graph.EntityKind(kind)
			entities = append(entities, entity)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// CreateFact validates the seed and inserts a new fact record.
func (d *Driver) CreateFact(ctx context.Context, seed storage.FactSeed) (graph.Fact, error) {
	if seed.Text == "" {
		return graph.Fact{}, storage.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if !seed.Intent.Valid() {
		return graph.Fact{}, storage.ValidationError{Field: "intent", Reason: "unknown intent " + string(seed.Intent)}
	}
	if _, err := d.GetEntity(ctx, seed.Who); err != nil {
		return graph.Fact{}, storage.ValidationError{Field: "who", Reason: "unknown entity " + seed.Who}
	}
	if _, err := d.GetEntity(ctx, seed.About); err != nil {
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
		CreatedAt: time.Now().UTC(),
	}

	tagsJSON, err := json.Marshal(fact.Tags)
	if err != nil {
		return graph.Fact{}, fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = d.exec(ctx,
		`INSERT INTO facts (id, who, about, scene, type, intent, text, tags, weight, pinned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		fact.ID, fact.Who, fact.About, fact.Scene, fact.Type, string(fact.Intent),
		fact.Text, string(tagsJSON), fact.Weight, fact.CreatedAt,
	)
	if err != nil {
		return graph.Fact{}, fmt.Errorf("failed to insert fact: %w", err)
	}

	return fact, nil
}

const factColumns = `id, who, about, scene, type, intent, text, tags, weight, pinned, created_at`

// GetFact retrieves a fact by id.
func (d *Driver) GetFact(ctx context.Context, id string) (graph.Fact, error) {
	var fact graph.Fact
	err := storage.Retry(ctx, func() error {
		row := d.db.QueryRowContext(ctx, `SELECT `+factColumns+` FROM facts WHERE id = ?`, id)

		scanned, err := scanFact(row)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.NotFoundError{Kind: "fact", ID: id}
		}
		if err != nil {
			return err
		}
		fact = scanned
		return nil
	})
	if err != nil {
		return graph.Fact{}, err
	}
	return fact, nil
}

// QueryFacts returns the candidate set matching the filter.
func (d *Driver) QueryFacts(ctx context.Context, filter storage.FactFilter) ([]graph.Fact, error) {
	query := `SELECT ` + factColumns + ` FROM facts WHERE who = ? AND about = ?`
	args := []any{filter.Who, filter.About}

	if filter.Scene != "" {
		query += ` AND scene = ?`
		args = append(args, filter.Scene)
	}
	if filter.Intent != graph.IntentNone {
		query += ` AND intent = ?`
		args = append(args, string(filter.Intent))
	}
	query += ` ORDER BY created_at`

	var facts []graph.Fact
	err := storage.Retry(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query facts: %w", err)
		}
		defer rows.Close()

		facts, err = scanFacts(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// SetPinned flips the pin flag. Idempotent.
func (d *Driver) SetPinned(ctx context.Context, id string, pinned bool) error {
	res, err := d.exec(ctx, `UPDATE facts SET pinned = ? WHERE id = ?`, pinned, id)
	if err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}
	return requireRow(res, id)
}

// SetWeight replaces the fact's weight. Clamping happens in the statement so
// the update stays a single atomic write per row.
func (d *Driver) SetWeight(ctx context.Context, id string, weight float64) error {
	res, err := d.exec(ctx,
		`UPDATE facts SET weight = MIN(1.0, MAX(0.0, ?)) WHERE id = ?`, weight, id)
	if err != nil {
		return fmt.Errorf("failed to update weight: %w", err)
	}
	return requireRow(res, id)
}

// UpdateWeight applies fn to the current weight inside a transaction. The
// single pooled connection serializes transactions, so the read and write
// cannot interleave with another update on the same fact.
func (d *Driver) UpdateWeight(ctx context.Context, id string, fn func(float64) float64) (float64, float64, error) {
	var old, updated float64
	err := storage.Retry(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin weight update: %w", err)
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, `SELECT weight FROM facts WHERE id = ?`, id)
		if err := row.Scan(&old); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.NotFoundError{Kind: "fact", ID: id}
			}
			return fmt.Errorf("failed to read weight: %w", err)
		}

		updated = graph.Clamp01(fn(old))
		if _, err := tx.ExecContext(ctx,
			`UPDATE facts SET weight = ? WHERE id = ?`, updated, id); err != nil {
			return fmt.Errorf("failed to write weight: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, 0, err
	}
	return old, updated, nil
}

// Export returns a full snapshot of entities and facts.
func (d *Driver) Export(ctx context.Context) (graph.Snapshot, error) {
	entities, err := d.ListEntities(ctx)
	if err != nil {
		return graph.Snapshot{}, err
	}

	var facts []graph.Fact
	err = storage.Retry(ctx, func() error {
		rows, err := d.db.QueryContext(ctx, `SELECT `+factColumns+` FROM facts ORDER BY created_at`)
		if err != nil {
			return fmt.Errorf("failed to query facts: %w", err)
		}
		defer rows.Close()

		facts, err = scanFacts(rows)
		return err
	})
	if err != nil {
		return graph.Snapshot{}, err
	}

	return graph.Snapshot{
		SchemaVersion: graph.SnapshotSchemaV1,
		ExportedAt:    time.Now().UTC(),
		Entities:      entities,
		Facts:         facts,
	}, nil
}

// Import replaces all store state with the snapshot's contents in one
// transaction. The whole transaction is one retry attempt.
func (d *Driver) Import(ctx context.Context, snap graph.Snapshot) error {
	if snap.SchemaVersion != 0 && snap.SchemaVersion != graph.SnapshotSchemaV1 {
		return storage.ValidationError{Field: "schema_version", Reason: "unsupported snapshot version"}
	}

	return storage.Retry(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin import: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM facts`); err != nil {
			return fmt.Errorf("failed to clear facts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
			return fmt.Errorf("failed to clear entities: %w", err)
		}

		for _, e := range snap.Entities {
			if !e.Kind.Valid() {
				return storage.ValidationError{Field: "entities", Reason: "unknown kind for entity " + e.ID}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entities (id, kind) VALUES (?, ?)`, e.ID, string(e.Kind)); err != nil {
				return fmt.Errorf("failed to import entity %s: %w", e.ID, err)
			}
		}

		for _, f := range snap.Facts {
			tagsJSON, err := json.Marshal(f.Tags)
			if err != nil {
				return fmt.Errorf("failed to marshal tags for fact %s: %w", f.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO facts (id, who, about, scene, type, intent, text, tags, weight, pinned, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				f.ID, f.Who, f.About, f.Scene, f.Type, string(f.Intent),
				f.Text, string(tagsJSON), graph.Clamp01(f.Weight), f.Pinned, f.CreatedAt,
			); err != nil {
				return storage.ValidationError{Field: "facts", Reason: "fact " + f.ID + " references unknown entity"}
			}
		}

		return tx.Commit()
	})
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}

// requireRow converts a zero-row update into a fact NotFoundError.
func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Kind: "fact", ID: id}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanFact scans a single fact row.
func scanFact(row scanner) (graph.Fact, error) {
	var fact graph.Fact
	var intent, tagsJSON string

	err := row.Scan(&fact.ID, &fact.Who, &fact.About, &fact.Scene, &fact.Type,
		&intent, &fact.Text, &tagsJSON, &fact.Weight, &fact.Pinned, &fact.CreatedAt)
	if err != nil {
		return graph.Fact{}, err
	}

	fact.Intent = graph.Intent(intent)
	if err := json.Unmarshal([]byte(tagsJSON), &fact.Tags); err != nil {
		return graph.Fact{}, fmt.Errorf("failed to unmarshal tags: %w", err)
	}

	return fact, nil
}

// scanFacts scans multiple fact rows.
func scanFacts(rows *sql.Rows) ([]graph.Fact, error) {
	var facts []graph.Fact
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return facts, nil
}

var _ storage.Driver = (*Driver)(nil)
