package api

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/listoapp/listo/internal/domain"
)

// RecommendationBody is a recommendation on the wire. Metadata is carried
// raw so unknown variants pass through untouched. Client-only fields such as
// "synced" and "sync_error" are accepted on push and ignored.
type RecommendationBody struct {
	_           struct{}           `json:"-" additionalProperties:"true"`
	ID          string             `json:"id" minLength:"1" maxLength:"100" doc:"Record id, generated by the client"`
	UserID      string             `json:"user_id,omitempty" required:"false" doc:"Owner; ignored on push"`
	Category    string             `json:"category" required:"false" doc:"Recommendation category"`
	Title       string             `json:"title" required:"false" doc:"Title"`
	Description string             `json:"description,omitempty" required:"false"`
	Source      string             `json:"source,omitempty" required:"false" doc:"Who recommended it"`
	Metadata    stdjson.RawMessage `json:"metadata,omitempty" required:"false" doc:"Category-specific metadata, tagged by its type field"`
	Tags        string             `json:"tags,omitempty" required:"false" doc:"Comma-separated tags"`
	CreatedAt   int64              `json:"created_at" required:"false" doc:"Unix seconds"`
	UpdatedAt   int64              `json:"updated_at" required:"false" doc:"Unix seconds; last-write-wins key"`
	DeletedAt   *int64             `json:"deleted_at,omitempty" required:"false" doc:"Unix seconds; set when soft-deleted"`
	CompletedAt *int64             `json:"completed_at,omitempty" required:"false" doc:"Unix seconds; set when done"`
	Review      string             `json:"review,omitempty" required:"false"`
	Rating      *int               `json:"rating,omitempty" required:"false" doc:"1 to 5"`
}

func toRecommendationBody(r *domain.Recommendation) (RecommendationBody, error) {
	body := RecommendationBody{
		ID:          r.ID,
		UserID:      r.OwnerID,
		Category:    string(r.Category),
		Title:       r.Title,
		Description: r.Description,
		Source:      r.Source,
		Tags:        r.Tags,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
		CompletedAt: r.CompletedAt,
		Review:      r.Review,
		Rating:      r.Rating,
	}
	if r.Metadata != nil {
		raw, err := json.Marshal(r.Metadata)
		if err != nil {
			return body, fmt.Errorf("encode metadata of %s: %w", r.ID, err)
		}
		body.Metadata = raw
	}
	return body, nil
}

func fromRecommendationBody(b *RecommendationBody) (*domain.Recommendation, error) {
	meta, err := parseMetadata(b.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.Recommendation{
		Syncable: domain.Syncable{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			UpdatedAt: b.UpdatedAt,
			DeletedAt: b.DeletedAt,
		},
		OwnerID:     b.UserID,
		Category:    domain.Category(b.Category),
		Title:       b.Title,
		Description: b.Description,
		Source:      b.Source,
		Metadata:    meta,
		Tags:        b.Tags,
		CompletedAt: b.CompletedAt,
		Review:      b.Review,
		Rating:      b.Rating,
	}, nil
}

// parseMetadata decodes wire metadata. Older clients send it as a JSON
// encoded string, which is unwrapped first.
func parseMetadata(raw []byte) (*domain.Metadata, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("invalid metadata: %w", err)
		}
		if inner == "" {
			return nil, nil
		}
		trimmed = bytes.TrimSpace([]byte(inner))
	}

	var m domain.Metadata
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	return &m, nil
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
