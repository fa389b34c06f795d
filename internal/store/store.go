// Package store is the client's Local Record Store: an embedded Badger
// database holding LocalRecommendation records, indexed by owner, by
// (owner, category) and by (owner, synced).
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/listoapp/listo/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    domain.Clock

	// Generic entities
	Recommendations *Entity[domain.LocalRecommendation]
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the mutation clock. Tests use it to pin updated_at.
func WithClock(clock domain.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New opens (or creates) the store at path.
func New(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	badgerOpts := badger.DefaultOptions(path)
	badgerOpts.Logger = nil            // Disable Badger's internal logging
	badgerOpts.SyncWrites = true       // Offline edits must survive a crash before they are pushed
	badgerOpts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		now:    domain.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.initRecommendations()

	if logger != nil {
		logger.Debug("Local record store opened", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Debug("Closing local record store")
	}
	return s.db.Close()
}

// Now returns the store clock's current time in Unix seconds.
func (s *Store) Now() int64 {
	return s.now()
}

// update runs fn in a read-write transaction, retrying when Badger reports
// a conflict with a concurrent transaction.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
