// Package eventdb persists scored event samples in SQLite so that repeated
// cut scans can query them without re-reading the source files.
package eventdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/cutscan/internal/events"
	"github.com/banshee-data/cutscan/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is an event database.
type Store struct {
	*sql.DB
}

// SampleMeta describes a sample as recorded in the samples table.
type SampleMeta struct {
	ID         int64       `json:"id"`
	Label      string      `json:"label"`
	Role       events.Role `json:"role"`
	Title      string      `json:"title,omitempty"`
	SourcePath string      `json:"source_path,omitempty"`
	Events     int64       `json:"events"`
	ImportedAt time.Time   `json:"imported_at"`
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	s := &Store{db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	version, dirty, err := s.MigrateVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	if dirty {
		db.Close()
		return nil, fmt.Errorf("event database %s: schema version %d is dirty", path, version)
	}
	monitoring.Logf("opened event database %s (schema version %d)", path, version)
	return s, nil
}

// MigrateUp runs all pending migrations up to the latest version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Not closing m: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state.
// Returns 0, false, nil if no migrations have been applied yet.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger on top of monitoring.Logf.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// ImportSample stores sample under meta.Label, replacing any sample already
// recorded with that label. Returns the new sample ID.
func (s *Store) ImportSample(ctx context.Context, meta SampleMeta, sample *events.Sample) (int64, error) {
	if sample == nil {
		return 0, fmt.Errorf("import %q: nil sample", meta.Label)
	}
	if meta.Label == "" {
		meta.Label = sample.Label()
	}
	if _, err := events.ParseRole(string(meta.Role)); err != nil {
		return 0, fmt.Errorf("import %q: %w", meta.Label, err)
	}
	scores, err := sample.Scores()
	if err != nil {
		return 0, fmt.Errorf("import %q: %w", meta.Label, err)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("import %q: begin: %w", meta.Label, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE sample_id IN (SELECT sample_id FROM samples WHERE label = ?)`, meta.Label); err != nil {
		return 0, fmt.Errorf("import %q: clear events: %w", meta.Label, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE label = ?`, meta.Label); err != nil {
		return 0, fmt.Errorf("import %q: clear sample: %w", meta.Label, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO samples (label, role, title, source_path)
		VALUES (?, ?, ?, ?)
	`, meta.Label, string(meta.Role), meta.Title, meta.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("import %q: insert sample: %w", meta.Label, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("import %q: sample id: %w", meta.Label, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (sample_id, score) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("import %q: prepare: %w", meta.Label, err)
	}
	defer stmt.Close()

	for _, score := range scores {
		if _, err := stmt.ExecContext(ctx, id, score); err != nil {
			return 0, fmt.Errorf("import %q: insert event: %w", meta.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("import %q: commit: %w", meta.Label, err)
	}
	monitoring.Logf("imported sample %s (%s): %d events", meta.Label, meta.Role, len(scores))
	return id, nil
}

// ListSamples returns every stored sample with its event count, ordered by
// role (signal first) then label.
func (s *Store) ListSamples(ctx context.Context) ([]SampleMeta, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT s.sample_id, s.label, s.role, s.title, s.source_path, s.imported_at,
		       (SELECT COUNT(*) FROM events e WHERE e.sample_id = s.sample_id)
		FROM samples s
		ORDER BY CASE s.role WHEN 'signal' THEN 0 ELSE 1 END, s.label
	`)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []SampleMeta
	for rows.Next() {
		var m SampleMeta
		var role string
		var importedAt int64
		if err := rows.Scan(&m.ID, &m.Label, &role, &m.Title, &m.SourcePath, &importedAt, &m.Events); err != nil {
			return nil, fmt.Errorf("list samples: %w", err)
		}
		m.Role = events.Role(role)
		m.ImportedAt = time.Unix(importedAt, 0).UTC()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return out, nil
}

// DeleteSample removes a sample and its events. Deleting an unknown label is
// not an error.
func (s *Store) DeleteSample(ctx context.Context, label string) error {
	if _, err := s.ExecContext(ctx, `DELETE FROM events WHERE sample_id IN (SELECT sample_id FROM samples WHERE label = ?)`, label); err != nil {
		return fmt.Errorf("delete %q: %w", label, err)
	}
	if _, err := s.ExecContext(ctx, `DELETE FROM samples WHERE label = ?`, label); err != nil {
		return fmt.Errorf("delete %q: %w", label, err)
	}
	return nil
}
