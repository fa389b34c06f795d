// Package enrichment looks up third-party metadata for recommendations.
// Each category maps to at most one Plugin; categories without one degrade
// to empty results.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/listoapp/listo/internal/domain"
)

// SearchSuggestion is one candidate returned by a plugin search.
type SearchSuggestion struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Year      int    `json:"year,omitempty"`
}

// Result is the outcome of enriching one item. Failures are reported in
// Error rather than as a Go error so callers can show them inline.
type Result struct {
	Success  bool             `json:"success"`
	Metadata *domain.Metadata `json:"metadata,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Plugin is a metadata source for one or more categories.
type Plugin interface {
	Name() string
	Categories() []domain.Category
	Search(ctx context.Context, query string, category domain.Category) ([]SearchSuggestion, error)
	Enrich(ctx context.Context, id string, category domain.Category) (*domain.Metadata, error)
}

// Cache stores raw plugin responses. The SQLite store satisfies it.
type Cache interface {
	GetCachedEnrichment(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
	SetCachedEnrichment(ctx context.Context, key string, payload []byte) error
}

// ErrNotFound is returned by plugins when the upstream has no such item.
var ErrNotFound = errors.New("item not found")

// upstreamError is a non-2xx answer from a third-party API.
type upstreamError struct {
	Service string
	Status  int
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s API error: status %d", e.Service, e.Status)
}
