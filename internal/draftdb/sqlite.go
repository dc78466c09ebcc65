// Package draftdb provides the durable on-disk local tier for draft storage,
// backed by SQLite.
package draftdb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formstate/pkg/draft"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements draft.Local over a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

var _ draft.Local = (*Store)(nil)

// Open initializes the database at path, enables WAL mode, and runs the
// embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("draftdb: database path is required")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("draftdb: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("draftdb: ping database: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("draftdb: create migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("draftdb: create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("draftdb: create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("draftdb: run migrations: %w", err)
	}
	return nil
}

// Get returns the stored draft entry for formID.
func (s *Store) Get(ctx context.Context, formID string) (draft.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT form_id, data, saved_at FROM drafts WHERE form_id = ?`, formID)

	var (
		entry   draft.Entry
		rawData []byte
		savedAt string
	)
	if err := row.Scan(&entry.FormID, &rawData, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return draft.Entry{}, false, nil
		}
		return draft.Entry{}, false, fmt.Errorf("draftdb: read draft: %w", err)
	}

	if err := json.Unmarshal(rawData, &entry.Data); err != nil {
		return draft.Entry{}, false, fmt.Errorf("draftdb: decode draft data: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		entry.SavedAt = parsed
	}
	return entry, true, nil
}

// Put upserts the draft entry for its form.
func (s *Store) Put(ctx context.Context, entry draft.Entry) error {
	rawData, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("draftdb: encode draft data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (form_id, data, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT (form_id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at
	`, entry.FormID, rawData, entry.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("draftdb: write draft: %w", err)
	}
	return nil
}

// Delete removes the draft entry for formID.
func (s *Store) Delete(ctx context.Context, formID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE form_id = ?`, formID); err != nil {
		return fmt.Errorf("draftdb: delete draft: %w", err)
	}
	return nil
}
