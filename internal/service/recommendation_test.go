package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/id"
)

func TestRecommendationService_Create(t *testing.T) {
	clock := newTestClock(1_000)
	svc, _, _ := setupRecommendationService(t, clock)
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{
		Category: "movie",
		Title:    "  Arrival  ",
		Rating:   ptr(4),
	})
	require.NoError(t, err)

	assert.True(t, id.HasPrefix(rec.ID, id.PrefixRecommendation))
	assert.Equal(t, "Arrival", rec.Title)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, int64(1_000), rec.CreatedAt)
	assert.Equal(t, int64(1_000), rec.UpdatedAt)
	assert.False(t, rec.Synced)
}

func TestRecommendationService_CreateValidation(t *testing.T) {
	svc, _, _ := setupRecommendationService(t, newTestClock(1))
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateRecommendationRequest
	}{
		{name: "empty title", req: &CreateRecommendationRequest{Category: "movie", Title: ""}},
		{name: "blank title", req: &CreateRecommendationRequest{Category: "movie", Title: "   "}},
		{name: "unknown category", req: &CreateRecommendationRequest{Category: "opera", Title: "Tosca"}},
		{name: "rating too low", req: &CreateRecommendationRequest{Category: "movie", Title: "X", Rating: ptr(0)}},
		{name: "rating too high", req: &CreateRecommendationRequest{Category: "movie", Title: "X", Rating: ptr(6)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}

	list, err := svc.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecommendationService_UpdateAdvancesAndDirties(t *testing.T) {
	clock := newTestClock(1_000)
	svc, local, _ := setupRecommendationService(t, clock)
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "book", Title: "Dune"})
	require.NoError(t, err)
	require.NoError(t, local.MarkSynced(ctx, rec.ID))

	clock.Set(2_000)
	updated, err := svc.Update(ctx, "u1", rec.ID, &UpdateRecommendationRequest{
		Title:  ptr("Dune Messiah"),
		Rating: ptr(3),
	})
	require.NoError(t, err)

	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.GreaterOrEqual(t, updated.UpdatedAt, rec.UpdatedAt)
	assert.Equal(t, int64(2_000), updated.UpdatedAt)
	assert.Equal(t, int64(1_000), updated.CreatedAt)
	assert.False(t, updated.Synced)
}

func TestRecommendationService_UpdateValidation(t *testing.T) {
	svc, _, _ := setupRecommendationService(t, newTestClock(1))
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "book", Title: "Dune"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "u1", rec.ID, &UpdateRecommendationRequest{Title: ptr("  ")})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Update(ctx, "u1", rec.ID, &UpdateRecommendationRequest{Rating: ptr(9)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Update(ctx, "u1", rec.ID, &UpdateRecommendationRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRecommendationService_ForeignOwnerIsNotFound(t *testing.T) {
	svc, _, _ := setupRecommendationService(t, newTestClock(1))
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "book", Title: "Dune"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", rec.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.Update(ctx, "u2", rec.ID, &UpdateRecommendationRequest{Title: ptr("Mine now")})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", rec.ID), domainerrors.ErrNotFound)

	_, err = svc.Get(ctx, "u1", "rec-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRecommendationService_DeleteHidesButKeeps(t *testing.T) {
	clock := newTestClock(1_000)
	svc, local, _ := setupRecommendationService(t, clock)
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "song", Title: "Hurt"})
	require.NoError(t, err)
	require.NoError(t, local.MarkSynced(ctx, rec.ID))

	clock.Set(1_100)
	require.NoError(t, svc.Delete(ctx, "u1", rec.ID))

	active, err := svc.ListActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err := svc.Get(ctx, "u1", rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, int64(1_100), *got.DeletedAt)
	assert.False(t, got.Synced)
}

func TestRecommendationService_CompleteAndReopen(t *testing.T) {
	svc, _, _ := setupRecommendationService(t, newTestClock(1_000))
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "movie", Title: "Heat"})
	require.NoError(t, err)

	done, err := svc.Complete(ctx, "u1", rec.ID, &CompleteRecommendationRequest{Review: "Tense", Rating: ptr(5)})
	require.NoError(t, err)
	assert.True(t, done.IsCompleted())
	assert.Equal(t, "Tense", done.Review)
	require.NotNil(t, done.Rating)
	assert.Equal(t, 5, *done.Rating)

	_, err = svc.Complete(ctx, "u1", rec.ID, &CompleteRecommendationRequest{Rating: ptr(0)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	reopened, err := svc.Reopen(ctx, "u1", rec.ID)
	require.NoError(t, err)
	assert.False(t, reopened.IsCompleted())
}

func TestRecommendationService_CompleteUsesStoreClock(t *testing.T) {
	clock := newTestClock(1_000)
	svc, _, _ := setupRecommendationService(t, clock)
	ctx := context.Background()

	rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "movie", Title: "Heat"})
	require.NoError(t, err)

	clock.Set(2_500)
	done, err := svc.Complete(ctx, "u1", rec.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, int64(2_500), *done.CompletedAt)
	assert.Equal(t, int64(2_500), done.UpdatedAt)
}

func TestRecommendationService_ListAndSearch(t *testing.T) {
	clock := newTestClock(1_000)
	svc, _, _ := setupRecommendationService(t, clock)
	ctx := context.Background()

	mk := func(cat, title, tags string, at int64) *domain.LocalRecommendation {
		clock.Set(at)
		rec, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: cat, Title: title, Tags: tags})
		require.NoError(t, err)
		return rec
	}
	oldest := mk("movie", "Alien", "scifi", 10)
	book := mk("book", "Hyperion", "SciFi,classic", 20)
	newest := mk("movie", "Amélie", "romance", 30)

	active, err := svc.ListActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, newest.ID, active[0].ID)
	assert.Equal(t, oldest.ID, active[2].ID)

	movies, err := svc.ListByCategory(ctx, "u1", "movie")
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	_, err = svc.ListByCategory(ctx, "u1", "opera")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	hits, err := svc.Search(ctx, "u1", "SCIFI")
	require.NoError(t, err)
	ids := []string{}
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{oldest.ID, book.ID}, ids)

	hits, err = svc.Search(ctx, "u2", "scifi")
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = svc.Search(ctx, "u1", "  ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRecommendationService_Reset(t *testing.T) {
	svc, _, cursor := setupRecommendationService(t, newTestClock(1_000))
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", &CreateRecommendationRequest{Category: "movie", Title: "Heat"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", &CreateRecommendationRequest{Category: "book", Title: "Dune"})
	require.NoError(t, err)
	require.NoError(t, cursor.Set(ctx, "u1", 999))
	require.NoError(t, cursor.Set(ctx, "u2", 998))

	dirty, err := svc.Unsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dirty)

	require.NoError(t, svc.Reset(ctx))

	for _, owner := range []string{"u1", "u2"} {
		active, err := svc.ListActive(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, active, owner)

		ts, err := cursor.Get(ctx, owner)
		require.NoError(t, err)
		assert.Zero(t, ts, owner)
	}

	dirty, err = svc.Unsynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, dirty)
}
