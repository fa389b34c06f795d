package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
func i64Ptr(v int64) *int64   { return &v }

func TestRecommendation_Matches(t *testing.T) {
	r := &Recommendation{Title: "The Bear", Description: "Chicago kitchen drama", Tags: "food,fx"}

	assert.True(t, r.Matches("bear", strings.ToLower))
	assert.True(t, r.Matches("kitchen", strings.ToLower))
	assert.True(t, r.Matches("fx", strings.ToLower))
	assert.True(t, r.Matches("", strings.ToLower))
	assert.False(t, r.Matches("pizza", strings.ToLower))
}

func TestRecommendationPatch_Apply(t *testing.T) {
	r := &Recommendation{
		Syncable: Syncable{ID: "rec-1", CreatedAt: 1, UpdatedAt: 1},
		Title:    "Old",
		Rating:   intPtr(2),
	}
	cat := CategoryBook

	p := RecommendationPatch{
		Title:       strPtr("  New  "),
		Category:    &cat,
		CompletedAt: i64Ptr(50),
		Rating:      intPtr(5),
	}
	p.Apply(r)

	assert.Equal(t, "New", r.Title)
	assert.Equal(t, CategoryBook, r.Category)
	assert.Equal(t, int64(50), *r.CompletedAt)
	assert.Equal(t, 5, *r.Rating)
	assert.Equal(t, int64(1), r.UpdatedAt, "Apply must not touch timestamps")
}

func TestRecommendationPatch_Clear(t *testing.T) {
	r := &Recommendation{
		Rating:      intPtr(3),
		CompletedAt: i64Ptr(9),
		Metadata:    NewMetadata(&BookMetadata{ISBN: "1"}),
	}

	p := RecommendationPatch{ClearRating: true, ClearCompleted: true, ClearMetadata: true}
	assert.False(t, p.Empty())
	p.Apply(r)

	assert.Nil(t, r.Rating)
	assert.Nil(t, r.CompletedAt)
	assert.Nil(t, r.Metadata)
}

func TestRecommendationPatch_Empty(t *testing.T) {
	assert.True(t, (&RecommendationPatch{}).Empty())
	assert.False(t, (&RecommendationPatch{Review: strPtr("")}).Empty())
}

func TestFromRemote(t *testing.T) {
	local := FromRemote(Recommendation{Syncable: Syncable{ID: "rec-1"}})
	assert.True(t, local.Synced)
	assert.Empty(t, local.SyncError)

	local.MarkDirty()
	assert.False(t, local.Synced)
}
