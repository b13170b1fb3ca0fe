package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the sqlite connection backing one outline engine instance:
// every container's nodes and event log live in the same database, scoped
// by container_id.
type Store struct {
	db      *sql.DB
	queries *Queries
}

// Open opens or creates a SQLite database at the given path.
// If the existing database has an incompatible schema, it is deleted and recreated.
func Open(dbPath string) (*Store, error) {
	store, err := openDB(dbPath)
	if err != nil {
		// Check if this is a schema error (e.g., missing column)
		if strings.Contains(err.Error(), "no such column") ||
			strings.Contains(err.Error(), "no such table") ||
			strings.Contains(err.Error(), "SQL logic error") {
			// Schema mismatch - delete and recreate
			if removeErr := os.Remove(dbPath); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("remove incompatible database: %w", removeErr)
			}
			// Also remove WAL and SHM files
			os.Remove(dbPath + "-wal")
			os.Remove(dbPath + "-shm")
			// Retry with fresh database
			return openDB(dbPath)
		}
		return nil, err
	}
	return store, nil
}

// openDB is the internal function that opens the database
func openDB(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// Use file: URI format to properly handle paths with spaces and query params
	escapedPath := strings.ReplaceAll(dbPath, " ", "%20")
	connStr := "file:" + escapedPath + "?_time_format=sqlite"
	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Initialize schema
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{
		db:      conn,
		queries: New(conn),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Queries returns the query layer bound to the plain connection.
func (s *Store) Queries() *Queries {
	return s.queries
}

// DB returns the underlying database connection for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx executes fn with a Queries bound to a fresh transaction,
// committing on success and rolling back on error or panic. The Container
// Serializer uses this to make a mutation's node writes and its event-log
// append atomic.
func (s *Store) WithTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.queries.WithTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// NullString converts a *string into the sql.NullString the query layer
// expects: nil becomes NULL.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr is the inverse of NullString.
func StringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

// Now returns the current time in UTC with the monotonic reading stripped,
// so timestamps formatted with sqliteTimeLayout round-trip cleanly.
func Now() time.Time {
	return time.Now().UTC().Round(0)
}

// ToNullTime converts a time.Time to sql.NullTime, treating the zero value
// as NULL.
func ToNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// DefaultDBPath returns the default database path for the engine.
func DefaultDBPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	return filepath.Join(configDir, "outliner", "outline.db")
}
