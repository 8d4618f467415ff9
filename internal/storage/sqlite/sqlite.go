// Package sqlite implements the content store on SQLite. It is the only
// storage backend and the single synchronization point between bot processes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements the storage.Storage interface using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend. The schema is bootstrapped
// immediately; a bootstrap failure here is fatal to the caller because every
// bot assumes the shared tables exist before claiming work.
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode for better concurrency between overlapping bot runs
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := applyAdditiveMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// applyAdditiveMigrations brings databases created by older builds up to the
// current column set. Columns are only ever added, never renamed or dropped,
// and a "duplicate column name" outcome means a newer build already ran.
func applyAdditiveMigrations(db *sql.DB) error {
	additive := []string{
		`ALTER TABLE questions ADD COLUMN duplicate_of INTEGER`,
		`ALTER TABLE questions ADD COLUMN improvement_suggestions TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE run_stats ADD COLUMN skipped INTEGER NOT NULL DEFAULT 0`,
	}
	for _, stmt := range additive {
		if _, err := db.Exec(stmt); err != nil {
			if isDuplicateColumnError(err) {
				continue
			}
			return fmt.Errorf("migration %q failed: %w", stmt, err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate column name")
}

// Close closes the underlying database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// execAffectingOne runs a statement that must affect exactly one row.
// Zero affected rows is reported through the supplied sentinel so callers can
// distinguish "lost the race" or "not found" from real store failures.
func (s *SQLiteStorage) execAffectingOne(ctx context.Context, sentinel error, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
