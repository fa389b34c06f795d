package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// GetCachedEnrichment returns the payload cached under key when it is
// younger than ttl. Returns nil, nil on a miss or an expired entry.
func (s *Store) GetCachedEnrichment(ctx context.Context, key string, ttl time.Duration) ([]byte, error) {
	var (
		payload   string
		fetchedAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM enrichment_cache WHERE key = ?`, cacheKey(key)).
		Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached enrichment: %w", err)
	}

	if ttl > 0 && s.now()-fetchedAt >= int64(ttl/time.Second) {
		return nil, nil
	}

	return []byte(payload), nil
}

// SetCachedEnrichment stores payload under key, stamped with the current
// time.
func (s *Store) SetCachedEnrichment(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrichment_cache (key, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`, cacheKey(key), string(payload), s.now())
	if err != nil {
		return fmt.Errorf("set cached enrichment: %w", err)
	}
	return nil
}

// PruneEnrichmentCache deletes entries older than ttl and returns how many
// were removed.
func (s *Store) PruneEnrichmentCache(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.now() - int64(ttl/time.Second)
	res, err := s.db.ExecContext(ctx, `DELETE FROM enrichment_cache WHERE fetched_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune enrichment cache: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("enrichment cache pruned", "removed", n)
	}
	return n, nil
}

// cacheKey keeps arbitrary query strings out of the primary key.
func cacheKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
