// Package sqlite provides SQLite-backed persistence: the server's copy of
// every owner's recommendations, the enrichment cache, and the generic
// key-value table the client keeps its sync cursor in.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/listoapp/listo/internal/domain"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

//go:embed kv.sql
var kvSQL string

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    domain.Clock
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and applies the full server schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	return open(path, logger, kvSQL, schemaSQL)
}

// OpenKV opens a store holding only the key-value table. The client keeps
// its sync cursors in one; only the KV methods are usable on it.
func OpenKV(path string, logger *slog.Logger) (*Store, error) {
	return open(path, logger, kvSQL)
}

func open(path string, logger *slog.Logger, schemas ...string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema: %w", err)
		}
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("SQLite store opened", "path", path)

	return &Store{
		db:     db,
		logger: logger,
		now:    domain.SystemClock,
	}, nil
}

// SetClock overrides the clock used for cache timestamps.
func (s *Store) SetClock(clock domain.Clock) {
	if clock != nil {
		s.now = clock
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// nullString returns a sql.NullString, NULL for the empty string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt64 returns a sql.NullInt64 from an optional value.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// nullInt returns a sql.NullInt64 from an optional int.
func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// int64Ptr converts a nullable column back to an optional value.
func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

// intPtr converts a nullable column back to an optional int.
func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int64)
	return &out
}
