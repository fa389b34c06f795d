package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listoapp/listo/internal/domain"
	"github.com/listoapp/listo/internal/store"
	"github.com/listoapp/listo/internal/store/sqlite"
	"github.com/listoapp/listo/internal/validation"
)

type testClock struct {
	mu  sync.Mutex
	now int64
}

func newTestClock(now int64) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func setupLocalStore(t *testing.T, clock *testClock) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir(), nil, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupCursor(t *testing.T) *SyncCursor {
	t.Helper()
	kv, err := sqlite.OpenKV(filepath.Join(t.TempDir(), "cursor.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewSyncCursor(kv)
}

func setupRecommendationService(t *testing.T, clock *testClock) (*RecommendationService, *store.Store, *SyncCursor) {
	t.Helper()
	local := setupLocalStore(t, clock)
	cursor := setupCursor(t)
	return NewRecommendationService(local, cursor, validation.New(), testLogger()), local, cursor
}

func addLocal(t *testing.T, s *store.Store, id, owner, title string) *domain.LocalRecommendation {
	t.Helper()
	rec := &domain.LocalRecommendation{
		Recommendation: domain.Recommendation{
			Syncable: domain.Syncable{ID: id},
			OwnerID:  owner,
			Category: domain.CategoryMovie,
			Title:    title,
		},
	}
	require.NoError(t, s.Add(context.Background(), rec))
	return rec
}

func remoteRec(id, owner, title string, updatedAt int64) domain.Recommendation {
	return domain.Recommendation{
		Syncable: domain.Syncable{ID: id, CreatedAt: updatedAt, UpdatedAt: updatedAt},
		OwnerID:  owner,
		Category: domain.CategoryMovie,
		Title:    title,
	}
}

func ptr[T any](v T) *T {
	return &v
}
