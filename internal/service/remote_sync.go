package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/metrics"
	"github.com/listoapp/listo/internal/store/sqlite"
	"github.com/listoapp/listo/internal/validation"
)

// incomingRecord holds the fields of a pushed record the server checks
// before merging.
type incomingRecord struct {
	ID        string `json:"id" validate:"required,max=100"`
	Category  string `json:"category" validate:"category"`
	Title     string `json:"title" validate:"notblank,max=500"`
	Rating    *int   `json:"rating" validate:"omitnil,gte=1,lte=5"`
	CreatedAt int64  `json:"created_at" validate:"gte=0"`
	UpdatedAt int64  `json:"updated_at" validate:"gte=0,gtefield=CreatedAt"`
}

// ChangesResponse is what a pull returns.
type ChangesResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// RemoteSyncService is the server end of sync: it serves pulls and merges
// pushes into the owner's SQLite copy with the same last-write-wins rule
// the client applies.
type RemoteSyncService struct {
	store     *sqlite.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewRemoteSyncService creates a new remote sync service.
func NewRemoteSyncService(store *sqlite.Store, validator *validation.Validator, logger *slog.Logger) *RemoteSyncService {
	return &RemoteSyncService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Changes returns the owner's records with updated_at >= since.
func (s *RemoteSyncService) Changes(ctx context.Context, owner string, since int64) (*ChangesResponse, error) {
	if owner == "" {
		return nil, domainerrors.Unauthorized("owner is required")
	}
	if since < 0 {
		return nil, domainerrors.Validation("since must not be negative")
	}

	recs, err := s.store.ListRecommendationsSince(ctx, owner, since)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list recommendations")
	}

	metrics.RecordPull(len(recs))
	s.logger.Info("recommendations fetched for sync",
		"user_id", owner,
		"since", since,
		"count", len(recs),
	)

	return &ChangesResponse{Recommendations: recs}, nil
}

// Count returns how many records the server holds for owner, deleted
// included.
func (s *RemoteSyncService) Count(ctx context.Context, owner string) (int, error) {
	n, err := s.store.CountRecommendations(ctx, owner)
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to count recommendations")
	}
	return n, nil
}

// Merge validates and merges a pushed batch. Each record is accepted or
// rejected on its own; a same-or-older record is a no-op that still counts
// as accepted.
func (s *RemoteSyncService) Merge(ctx context.Context, owner string, recs []*domain.Recommendation) (*PushResult, error) {
	if owner == "" {
		return nil, domainerrors.Unauthorized("owner is required")
	}
	start := time.Now()

	result := &PushResult{
		Synced: make([]string, 0, len(recs)),
		Errors: make([]PushRejection, 0),
	}

	valid := make([]*domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if err := s.validate(rec); err != nil {
			result.Errors = append(result.Errors, PushRejection{ID: rec.ID, Message: err.Error()})
			continue
		}
		rec.Title = trimmed(rec.Title)
		rec.OwnerID = owner
		valid = append(valid, rec)
	}

	summary, err := s.store.MergeRecommendations(ctx, owner, valid)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "merge interrupted")
	}

	result.Synced = append(result.Synced, summary.Accepted...)
	for _, rej := range summary.Rejected {
		result.Errors = append(result.Errors, PushRejection{ID: rej.ID, Message: rej.Message})
	}

	metrics.RecordPush(time.Since(start), summary.Inserted, summary.Overwritten, summary.Ignored, len(result.Errors))
	s.logger.Info("push merged",
		"user_id", owner,
		"received", len(recs),
		"inserted", summary.Inserted,
		"overwritten", summary.Overwritten,
		"ignored", summary.Ignored,
		"rejected", len(result.Errors),
	)

	return result, nil
}

func (s *RemoteSyncService) validate(rec *domain.Recommendation) error {
	return s.validator.Validate(&incomingRecord{
		ID:        rec.ID,
		Category:  string(rec.Category),
		Title:     rec.Title,
		Rating:    rec.Rating,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	})
}
