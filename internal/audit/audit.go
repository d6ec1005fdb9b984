// Package audit keeps a history of match runs across separate invocations
// of the matcher. This is explicitly not the matcher's own live state —
// it stores run summaries only, never symbol bindings, relocation tables
// or safety records (spec §3, §6) — it is the record an operator consults to see
// which patches have previously been tried against which running images,
// backed by modernc.org/sqlite (pure Go, no cgo, as it appears pinned in
// the retrieval pack's own manifests).
package audit

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded match attempt.
type Run struct {
	ID             int64
	PatchName      string
	StartedAt      time.Time
	Succeeded      bool
	StageReached   int
	SectionsTotal  int
	SectionsMatch  int
	SafetyRecords  int
	FailureMessage string
}

// Store persists Run records in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite-backed audit store at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	patch_name      TEXT NOT NULL,
	started_at      DATETIME NOT NULL,
	succeeded       BOOLEAN NOT NULL,
	stage_reached   INTEGER NOT NULL,
	sections_total  INTEGER NOT NULL,
	sections_match  INTEGER NOT NULL,
	safety_records  INTEGER NOT NULL,
	failure_message TEXT NOT NULL DEFAULT ''
);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record inserts a completed run and returns its assigned ID.
func (s *Store) Record(ctx context.Context, r Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO runs (patch_name, started_at, succeeded, stage_reached, sections_total, sections_match, safety_records, failure_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PatchName, r.StartedAt, r.Succeeded, r.StageReached, r.SectionsTotal, r.SectionsMatch, r.SafetyRecords, r.FailureMessage)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns the most recent runs, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, patch_name, started_at, succeeded, stage_reached, sections_total, sections_match, safety_records, failure_message
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.PatchName, &r.StartedAt, &r.Succeeded, &r.StageReached,
			&r.SectionsTotal, &r.SectionsMatch, &r.SafetyRecords, &r.FailureMessage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns a single run by ID.
func (s *Store) Get(ctx context.Context, id int64) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
SELECT id, patch_name, started_at, succeeded, stage_reached, sections_total, sections_match, safety_records, failure_message
FROM runs WHERE id = ?`, id).Scan(&r.ID, &r.PatchName, &r.StartedAt, &r.Succeeded, &r.StageReached,
		&r.SectionsTotal, &r.SectionsMatch, &r.SafetyRecords, &r.FailureMessage)
	return r, err
}
