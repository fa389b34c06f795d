package domain

import "strings"

// MinRating and MaxRating bound the optional star rating.
const (
	MinRating = 1
	MaxRating = 5
)

// Recommendation is the atomic unit of sync. The remote store holds exactly
// these fields; OwnerID travels as "user_id" to match the remote schema.
type Recommendation struct {
	Syncable
	OwnerID     string    `json:"user_id"`
	Category    Category  `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	Source      string    `json:"source,omitempty"`
	CompletedAt *int64    `json:"completed_at,omitempty"`
	Review      string    `json:"review,omitempty"`
	Rating      *int      `json:"rating,omitempty"`
}

// IsActive reports whether the record is visible to normal listings.
func (r *Recommendation) IsActive() bool {
	return !r.IsDeleted()
}

// IsCompleted reports whether the user marked the recommendation done.
func (r *Recommendation) IsCompleted() bool {
	return r.CompletedAt != nil
}

// Matches reports whether the folded query is a substring of the folded
// title, description or tags. fold must be the same normalization applied to
// the query.
func (r *Recommendation) Matches(foldedQuery string, fold func(string) string) bool {
	if foldedQuery == "" {
		return true
	}
	for _, field := range []string{r.Title, r.Description, r.Tags} {
		if field != "" && strings.Contains(fold(field), foldedQuery) {
			return true
		}
	}
	return false
}

// LocalRecommendation is a Recommendation plus the client-only sync state.
type LocalRecommendation struct {
	Recommendation
	// Synced is false while the record has local changes the remote has not
	// accepted yet.
	Synced bool `json:"synced"`
	// SyncError is the message from the last failed push, cleared on success.
	SyncError string `json:"sync_error,omitempty"`
}

// FromRemote wraps a remote record as an already-synced local record.
func FromRemote(r Recommendation) *LocalRecommendation {
	return &LocalRecommendation{Recommendation: r, Synced: true}
}

// MarkDirty flags local changes that still need to be pushed.
func (l *LocalRecommendation) MarkDirty() {
	l.Synced = false
}

// RecommendationPatch carries a partial update. Nil fields are left alone;
// the Clear flags remove optional values.
type RecommendationPatch struct {
	Category       *Category
	Title          *string
	Description    *string
	Tags           *string
	Source         *string
	Metadata       *Metadata
	ClearMetadata  bool
	CompletedAt    *int64
	ClearCompleted bool
	Review         *string
	Rating         *int
	ClearRating    bool
}

// Apply merges the patch into r. It does not touch timestamps or sync state.
func (p *RecommendationPatch) Apply(r *Recommendation) {
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Tags != nil {
		r.Tags = *p.Tags
	}
	if p.Source != nil {
		r.Source = *p.Source
	}
	switch {
	case p.ClearMetadata:
		r.Metadata = nil
	case p.Metadata != nil:
		r.Metadata = p.Metadata
	}
	switch {
	case p.ClearCompleted:
		r.CompletedAt = nil
	case p.CompletedAt != nil:
		v := *p.CompletedAt
		r.CompletedAt = &v
	}
	if p.Review != nil {
		r.Review = *p.Review
	}
	switch {
	case p.ClearRating:
		r.Rating = nil
	case p.Rating != nil:
		v := *p.Rating
		r.Rating = &v
	}
}

// Empty reports whether the patch changes nothing.
func (p *RecommendationPatch) Empty() bool {
	return p.Category == nil && p.Title == nil && p.Description == nil &&
		p.Tags == nil && p.Source == nil && p.Metadata == nil && !p.ClearMetadata &&
		p.CompletedAt == nil && !p.ClearCompleted && p.Review == nil &&
		p.Rating == nil && !p.ClearRating
}
