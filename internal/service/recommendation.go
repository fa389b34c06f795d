package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/id"
	"github.com/listoapp/listo/internal/store"
	"github.com/listoapp/listo/internal/validation"
)

// CreateRecommendationRequest is the input for RecommendationService.Create.
type CreateRecommendationRequest struct {
	Category    string           `json:"category" validate:"required,category"`
	Title       string           `json:"title" validate:"notblank,max=500"`
	Description string           `json:"description,omitempty" validate:"max=10000"`
	Tags        string           `json:"tags,omitempty" validate:"max=1000"`
	Source      string           `json:"source,omitempty" validate:"max=200"`
	Metadata    *domain.Metadata `json:"metadata,omitempty" validate:"-"`
	Review      string           `json:"review,omitempty" validate:"max=10000"`
	Rating      *int             `json:"rating,omitempty" validate:"omitnil,gte=1,lte=5"`
}

// UpdateRecommendationRequest is a partial update. Nil fields are left
// unchanged.
type UpdateRecommendationRequest struct {
	Category      *string          `json:"category,omitempty" validate:"omitnil,category"`
	Title         *string          `json:"title,omitempty" validate:"omitnil,notblank,max=500"`
	Description   *string          `json:"description,omitempty" validate:"omitnil,max=10000"`
	Tags          *string          `json:"tags,omitempty" validate:"omitnil,max=1000"`
	Source        *string          `json:"source,omitempty" validate:"omitnil,max=200"`
	Metadata      *domain.Metadata `json:"metadata,omitempty" validate:"-"`
	ClearMetadata bool             `json:"clear_metadata,omitempty"`
	Review        *string          `json:"review,omitempty" validate:"omitnil,max=10000"`
	Rating        *int             `json:"rating,omitempty" validate:"omitnil,gte=1,lte=5"`
	ClearRating   bool             `json:"clear_rating,omitempty"`
}

// CompleteRecommendationRequest marks a recommendation done, optionally with
// a review and rating.
type CompleteRecommendationRequest struct {
	Review string `json:"review,omitempty" validate:"max=10000"`
	Rating *int   `json:"rating,omitempty" validate:"omitnil,gte=1,lte=5"`
}

// CursorResetter clears sync cursors on logout.
type CursorResetter interface {
	ResetAll(ctx context.Context) error
}

// RecommendationService is the validating layer over the local record
// store. User-facing code mutates records only through it.
type RecommendationService struct {
	store     *store.Store
	cursor    CursorResetter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(store *store.Store, cursor CursorResetter, validator *validation.Validator, logger *slog.Logger) *RecommendationService {
	return &RecommendationService{
		store:     store,
		cursor:    cursor,
		validator: validator,
		logger:    logger,
	}
}

// Create validates req and stores a new dirty record owned by owner.
func (s *RecommendationService) Create(ctx context.Context, owner string, req *CreateRecommendationRequest) (*domain.LocalRecommendation, error) {
	if owner == "" {
		return nil, domainerrors.Unauthorized("owner is required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	recID, err := id.NewRecommendation()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to generate id")
	}

	rec := &domain.LocalRecommendation{
		Recommendation: domain.Recommendation{
			Syncable:    domain.Syncable{ID: recID},
			OwnerID:     owner,
			Category:    domain.Category(req.Category),
			Title:       trimmed(req.Title),
			Description: req.Description,
			Tags:        req.Tags,
			Source:      req.Source,
			Metadata:    req.Metadata,
			Review:      req.Review,
			Rating:      req.Rating,
		},
	}

	if err := s.store.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("add recommendation: %w", err)
	}

	s.logger.Debug("recommendation created", "id", rec.ID, "owner", owner, "category", rec.Category)
	return rec, nil
}

// Update applies req to the owner's record.
func (s *RecommendationService) Update(ctx context.Context, owner, recID string, req *UpdateRecommendationRequest) (*domain.LocalRecommendation, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patch := &domain.RecommendationPatch{
		Title:         req.Title,
		Description:   req.Description,
		Tags:          req.Tags,
		Source:        req.Source,
		Metadata:      req.Metadata,
		ClearMetadata: req.ClearMetadata,
		Review:        req.Review,
		Rating:        req.Rating,
		ClearRating:   req.ClearRating,
	}
	if req.Category != nil {
		c := domain.Category(*req.Category)
		patch.Category = &c
	}
	if patch.Empty() {
		return nil, domainerrors.Validation("no changes provided")
	}

	return s.update(ctx, owner, recID, patch)
}

// Complete marks the owner's record done at the current time.
func (s *RecommendationService) Complete(ctx context.Context, owner, recID string, req *CompleteRecommendationRequest) (*domain.LocalRecommendation, error) {
	if req == nil {
		req = &CompleteRecommendationRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.store.Now()
	patch := &domain.RecommendationPatch{
		CompletedAt: &now,
		Rating:      req.Rating,
	}
	if req.Review != "" {
		patch.Review = &req.Review
	}
	return s.update(ctx, owner, recID, patch)
}

// Reopen clears the completion mark.
func (s *RecommendationService) Reopen(ctx context.Context, owner, recID string) (*domain.LocalRecommendation, error) {
	return s.update(ctx, owner, recID, &domain.RecommendationPatch{ClearCompleted: true})
}

func (s *RecommendationService) update(ctx context.Context, owner, recID string, patch *domain.RecommendationPatch) (*domain.LocalRecommendation, error) {
	if _, err := s.Get(ctx, owner, recID); err != nil {
		return nil, err
	}

	rec, err := s.store.Update(ctx, recID, patch)
	if err != nil {
		return nil, fmt.Errorf("update recommendation: %w", err)
	}

	s.logger.Debug("recommendation updated", "id", recID, "owner", owner, "updated_at", rec.UpdatedAt)
	return rec, nil
}

// Delete soft-deletes the owner's record.
func (s *RecommendationService) Delete(ctx context.Context, owner, recID string) error {
	if _, err := s.Get(ctx, owner, recID); err != nil {
		return err
	}
	if _, err := s.store.SoftDelete(ctx, recID); err != nil {
		return fmt.Errorf("delete recommendation: %w", err)
	}

	s.logger.Debug("recommendation deleted", "id", recID, "owner", owner)
	return nil
}

// Get returns the owner's record, deleted or not. Records of other owners
// are reported as not found.
func (s *RecommendationService) Get(ctx context.Context, owner, recID string) (*domain.LocalRecommendation, error) {
	rec, err := s.store.Get(ctx, recID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("recommendation %s not found", recID)
		}
		return nil, err
	}
	if rec.OwnerID != owner {
		return nil, domainerrors.NotFoundf("recommendation %s not found", recID)
	}
	return rec, nil
}

// ListActive returns the owner's visible records, newest first.
func (s *RecommendationService) ListActive(ctx context.Context, owner string) ([]*domain.LocalRecommendation, error) {
	return s.store.ListActive(ctx, owner)
}

// ListByCategory returns the owner's visible records in category, newest
// first.
func (s *RecommendationService) ListByCategory(ctx context.Context, owner, category string) ([]*domain.LocalRecommendation, error) {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	return s.store.ListByCategory(ctx, owner, c)
}

// Search matches query against title, description and tags.
func (s *RecommendationService) Search(ctx context.Context, owner, query string) ([]*domain.LocalRecommendation, error) {
	if trimmed(query) == "" {
		return nil, domainerrors.Validation("query is required")
	}
	return s.store.Search(ctx, owner, query)
}

// Stats counts the owner's records by state.
func (s *RecommendationService) Stats(ctx context.Context, owner string) (store.Stats, error) {
	return s.store.Stats(ctx, owner)
}

// Unsynced counts dirty records across every owner. Reset destroys all of
// them, not only the current owner's.
func (s *RecommendationService) Unsynced(ctx context.Context) (int, error) {
	return s.store.CountDirty(ctx)
}

// Reset wipes every local record and every owner's cursor. Used on logout.
// No cursor may outlive the records it describes.
func (s *RecommendationService) Reset(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	if s.cursor != nil {
		if err := s.cursor.ResetAll(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("local data reset")
	return nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
