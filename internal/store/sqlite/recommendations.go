package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
)

// MergeOutcome reports what MergeRecommendation did with an incoming record.
type MergeOutcome int

// Merge outcomes.
const (
	// MergeIgnored means the stored copy was same-or-newer.
	MergeIgnored MergeOutcome = iota
	// MergeInserted means the id was new.
	MergeInserted
	// MergeOverwritten means the incoming copy was strictly newer.
	MergeOverwritten
)

// ErrForeignOwner is returned when an incoming id already belongs to a
// different owner.
var ErrForeignOwner = domainerrors.Conflict("id belongs to another owner")

const recommendationColumns = `id, user_id, category, title, description, source, metadata, tags,
	created_at, updated_at, deleted_at, completed_at, review, rating`

// ListRecommendationsSince returns the owner's records with
// updated_at >= since, newest first. Deleted records are included so
// deletions reach other devices.
func (s *Store) ListRecommendationsSince(ctx context.Context, owner string, since int64) ([]domain.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recommendationColumns+`
		FROM recommendations
		WHERE user_id = ? AND updated_at >= ?
		ORDER BY updated_at DESC, id`, owner, since)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return out, nil
}

// MergeRecommendation applies last-write-wins for one incoming record owned
// by owner: insert when absent, overwrite when the incoming updated_at is
// strictly greater, otherwise ignore. The owner always comes from the
// caller's identity, never from the payload.
func (s *Store) MergeRecommendation(ctx context.Context, owner string, rec *domain.Recommendation) (MergeOutcome, error) {
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return MergeIgnored, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MergeIgnored, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op.

	var (
		storedOwner   string
		storedUpdated int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, updated_at FROM recommendations WHERE id = ?`, rec.ID).
		Scan(&storedOwner, &storedUpdated)

	outcome := MergeIgnored
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO recommendations (`+recommendationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, owner, string(rec.Category), rec.Title,
			nullString(rec.Description), nullString(rec.Source), meta, nullString(rec.Tags),
			rec.CreatedAt, rec.UpdatedAt, nullInt64(rec.DeletedAt), nullInt64(rec.CompletedAt),
			nullString(rec.Review), nullInt(rec.Rating))
		if err != nil {
			return MergeIgnored, fmt.Errorf("insert recommendation %s: %w", rec.ID, err)
		}
		outcome = MergeInserted

	case err != nil:
		return MergeIgnored, fmt.Errorf("lookup recommendation %s: %w", rec.ID, err)

	case storedOwner != owner:
		return MergeIgnored, ErrForeignOwner

	case rec.UpdatedAt > storedUpdated:
		// created_at is immutable and keeps the stored value.
		_, err = tx.ExecContext(ctx, `
			UPDATE recommendations
			SET category = ?, title = ?, description = ?, source = ?, metadata = ?, tags = ?,
			    updated_at = ?, deleted_at = ?, completed_at = ?, review = ?, rating = ?
			WHERE id = ?`,
			string(rec.Category), rec.Title,
			nullString(rec.Description), nullString(rec.Source), meta, nullString(rec.Tags),
			rec.UpdatedAt, nullInt64(rec.DeletedAt), nullInt64(rec.CompletedAt),
			nullString(rec.Review), nullInt(rec.Rating), rec.ID)
		if err != nil {
			return MergeIgnored, fmt.Errorf("update recommendation %s: %w", rec.ID, err)
		}
		outcome = MergeOverwritten
	}

	if err := tx.Commit(); err != nil {
		return MergeIgnored, fmt.Errorf("commit merge: %w", err)
	}
	return outcome, nil
}

// MergeRejection names a record MergeRecommendations refused and why.
type MergeRejection struct {
	ID      string
	Message string
}

// MergeSummary is the outcome of a batch merge.
type MergeSummary struct {
	Accepted    []string
	Rejected    []MergeRejection
	Inserted    int
	Overwritten int
	Ignored     int
}

// MergeRecommendations merges each record in its own transaction so one
// failure does not affect the others. Ignored records still count as
// accepted. The returned error is non-nil only when the context ends.
func (s *Store) MergeRecommendations(ctx context.Context, owner string, recs []*domain.Recommendation) (*MergeSummary, error) {
	summary := &MergeSummary{
		Accepted: make([]string, 0, len(recs)),
		Rejected: make([]MergeRejection, 0),
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := s.MergeRecommendation(ctx, owner, rec)
		if err != nil {
			msg := err.Error()
			if !errors.Is(err, ErrForeignOwner) {
				s.logger.Error("merge recommendation failed", "id", rec.ID, "owner", owner, "error", err)
				msg = "failed to store recommendation"
			}
			summary.Rejected = append(summary.Rejected, MergeRejection{ID: rec.ID, Message: msg})
			continue
		}

		switch outcome {
		case MergeInserted:
			summary.Inserted++
		case MergeOverwritten:
			summary.Overwritten++
		default:
			summary.Ignored++
		}
		summary.Accepted = append(summary.Accepted, rec.ID)
	}

	return summary, nil
}

// CountRecommendations returns how many records the owner has, deleted
// included.
func (s *Store) CountRecommendations(ctx context.Context, owner string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recommendations WHERE user_id = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recommendations: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (*domain.Recommendation, error) {
	var (
		rec                               domain.Recommendation
		category                          string
		description, source, meta, tags   sql.NullString
		review                            sql.NullString
		deletedAt, completedAt, ratingCol sql.NullInt64
	)

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &category, &rec.Title,
		&description, &source, &meta, &tags,
		&rec.CreatedAt, &rec.UpdatedAt, &deletedAt, &completedAt,
		&review, &ratingCol,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan recommendation: %w", err)
	}

	rec.Category = domain.Category(category)
	rec.Description = description.String
	rec.Source = source.String
	rec.Tags = tags.String
	rec.Review = review.String
	rec.DeletedAt = int64Ptr(deletedAt)
	rec.CompletedAt = int64Ptr(completedAt)
	rec.Rating = intPtr(ratingCol)

	if meta.Valid && meta.String != "" {
		var m domain.Metadata
		if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
			// Keep the record readable; a bad payload only loses its metadata.
			return &rec, nil
		}
		rec.Metadata = &m
	}

	return &rec, nil
}

func encodeMetadata(m *domain.Metadata) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode metadata: %w", err)
	}
	if string(data) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
