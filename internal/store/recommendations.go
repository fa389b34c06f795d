package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
)

const recommendationPrefix = "rec:"

// Recommendation index names.
const (
	indexOwner         = "owner"
	indexOwnerCategory = "owner_category"
	indexOwnerSynced   = "owner_synced"
)

// MergeOutcome reports what ApplyRemote did with an incoming record.
type MergeOutcome int

// Merge outcomes.
const (
	// MergeSkipped means the local copy was same-or-newer and kept.
	MergeSkipped MergeOutcome = iota
	// MergeInserted means the record was new to this store.
	MergeInserted
	// MergeUpdated means the remote copy was strictly newer and replaced the local one.
	MergeUpdated
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeInserted:
		return "inserted"
	case MergeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Stats summarizes an owner's records.
type Stats struct {
	Active  int `json:"active"`
	Deleted int `json:"deleted"`
	Dirty   int `json:"dirty"`
	Errored int `json:"errored"`
}

func syncedValue(synced bool) string {
	if synced {
		return "1"
	}
	return "0"
}

func (s *Store) initRecommendations() {
	s.Recommendations = NewEntity[domain.LocalRecommendation](s, recommendationPrefix).
		WithIndex(indexOwner, func(r *domain.LocalRecommendation) []string {
			return []string{r.OwnerID}
		}).
		WithIndex(indexOwnerCategory, func(r *domain.LocalRecommendation) []string {
			return []string{indexValue(r.OwnerID, string(r.Category))}
		}).
		WithIndex(indexOwnerSynced, func(r *domain.LocalRecommendation) []string {
			return []string{indexValue(r.OwnerID, syncedValue(r.Synced))}
		})
}

// Add inserts a new record. created_at and updated_at are set to now and
// the record starts dirty. Fails with ErrAlreadyExists when the id is taken
// under any owner.
func (s *Store) Add(ctx context.Context, rec *domain.LocalRecommendation) error {
	rec.InitTimestamps(s.now())
	rec.Synced = false
	rec.SyncError = ""

	if err := s.Recommendations.Create(ctx, rec.ID, rec); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return domainerrors.AlreadyExistsf("recommendation %s already exists", rec.ID)
		}
		return err
	}
	return nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.LocalRecommendation, error) {
	return s.Recommendations.Get(ctx, id)
}

// Update merges patch into the record, advances updated_at and marks it
// dirty.
func (s *Store) Update(ctx context.Context, id string, patch *domain.RecommendationPatch) (*domain.LocalRecommendation, error) {
	return s.Recommendations.Update(ctx, id, func(r *domain.LocalRecommendation) error {
		patch.Apply(&r.Recommendation)
		r.Touch(s.now())
		r.MarkDirty()
		return nil
	})
}

// SoftDelete sets deleted_at and marks the record dirty so the deletion is
// pushed. Deleting an already deleted record changes nothing.
func (s *Store) SoftDelete(ctx context.Context, id string) (*domain.LocalRecommendation, error) {
	var result *domain.LocalRecommendation
	_, err := s.Recommendations.Upsert(ctx, id, func(r *domain.LocalRecommendation) (*domain.LocalRecommendation, error) {
		if r == nil {
			return nil, ErrNotFound
		}
		result = r
		if r.IsDeleted() {
			return nil, nil
		}
		r.MarkDeleted(s.now())
		r.MarkDirty()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListActive returns the owner's non-deleted records, most recently
// updated first.
func (s *Store) ListActive(ctx context.Context, owner string) ([]*domain.LocalRecommendation, error) {
	recs, err := collect(s.Recommendations.ListByIndex(ctx, indexOwner, owner), isActive)
	if err != nil {
		return nil, err
	}
	sortByUpdatedDesc(recs)
	return recs, nil
}

// ListByCategory is ListActive restricted to one category.
func (s *Store) ListByCategory(ctx context.Context, owner string, category domain.Category) ([]*domain.LocalRecommendation, error) {
	recs, err := collect(
		s.Recommendations.ListByIndex(ctx, indexOwnerCategory, indexValue(owner, string(category))),
		isActive,
	)
	if err != nil {
		return nil, err
	}
	sortByUpdatedDesc(recs)
	return recs, nil
}

// Search returns active records whose title, description or tags contain
// query, ignoring case. Order is unspecified.
func (s *Store) Search(ctx context.Context, owner, query string) ([]*domain.LocalRecommendation, error) {
	fold := cases.Fold().String
	q := fold(strings.TrimSpace(query))

	return collect(s.Recommendations.ListByIndex(ctx, indexOwner, owner), func(r *domain.LocalRecommendation) bool {
		return r.IsActive() && r.Matches(q, fold)
	})
}

// ListDirty returns every record of the owner with synced=false, deleted or
// not.
func (s *Store) ListDirty(ctx context.Context, owner string) ([]*domain.LocalRecommendation, error) {
	return collect(s.Recommendations.ListByIndex(ctx, indexOwnerSynced, indexValue(owner, syncedValue(false))), nil)
}

// ListAllForSync returns every record of the owner regardless of sync or
// deletion state.
func (s *Store) ListAllForSync(ctx context.Context, owner string) ([]*domain.LocalRecommendation, error) {
	return collect(s.Recommendations.ListByIndex(ctx, indexOwner, owner), nil)
}

// MarkSynced sets synced=true and clears sync_error on each id. Every id is
// attempted; failures are joined into the returned error.
func (s *Store) MarkSynced(ctx context.Context, ids ...string) error {
	var errs []error
	for _, id := range ids {
		if _, err := s.markSynced(ctx, id, nil); err != nil {
			errs = append(errs, fmt.Errorf("mark %s synced: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// MarkSyncedVersions is MarkSynced guarded by the updated_at each record had
// when it was pushed. A record edited after the push stays dirty so the
// newer edit goes out with the next sync. Returns the ids actually marked.
func (s *Store) MarkSyncedVersions(ctx context.Context, versions map[string]int64) ([]string, error) {
	marked := make([]string, 0, len(versions))
	var errs []error
	for id, version := range versions {
		ok, err := s.markSynced(ctx, id, &version)
		if err != nil {
			errs = append(errs, fmt.Errorf("mark %s synced: %w", id, err))
			continue
		}
		if ok {
			marked = append(marked, id)
		}
	}
	slices.Sort(marked)
	return marked, errors.Join(errs...)
}

func (s *Store) markSynced(ctx context.Context, id string, version *int64) (bool, error) {
	return s.Recommendations.Upsert(ctx, id, func(r *domain.LocalRecommendation) (*domain.LocalRecommendation, error) {
		if r == nil {
			return nil, ErrNotFound
		}
		if version != nil && r.UpdatedAt != *version {
			return nil, nil
		}
		r.Synced = true
		r.SyncError = ""
		return r, nil
	})
}

// MarkSyncError records a failed push: synced=false, sync_error=message.
func (s *Store) MarkSyncError(ctx context.Context, id, message string) error {
	_, err := s.Recommendations.Update(ctx, id, func(r *domain.LocalRecommendation) error {
		r.Synced = false
		r.SyncError = message
		return nil
	})
	return err
}

// ApplyRemote merges a record received from the remote store. Absent
// records are inserted; present ones are replaced only when the remote
// updated_at is strictly greater. Stored copies are marked synced and keep
// the remote timestamps.
func (s *Store) ApplyRemote(ctx context.Context, rec domain.Recommendation) (MergeOutcome, error) {
	outcome := MergeSkipped
	_, err := s.Recommendations.Upsert(ctx, rec.ID, func(current *domain.LocalRecommendation) (*domain.LocalRecommendation, error) {
		switch {
		case current == nil:
			outcome = MergeInserted
		case rec.NewerThan(&current.Syncable):
			outcome = MergeUpdated
		default:
			outcome = MergeSkipped
			return nil, nil
		}
		return domain.FromRemote(rec), nil
	})
	if err != nil {
		return MergeSkipped, err
	}
	return outcome, nil
}

// Stats counts the owner's records by state.
func (s *Store) Stats(ctx context.Context, owner string) (Stats, error) {
	var st Stats
	for r, err := range s.Recommendations.ListByIndex(ctx, indexOwner, owner) {
		if err != nil {
			return Stats{}, err
		}
		if r.IsDeleted() {
			st.Deleted++
		} else {
			st.Active++
		}
		if !r.Synced {
			st.Dirty++
		}
		if r.SyncError != "" {
			st.Errored++
		}
	}
	return st, nil
}

// CountDirty counts records with unpushed changes across every owner.
func (s *Store) CountDirty(ctx context.Context) (int, error) {
	n := 0
	for r, err := range s.Recommendations.List(ctx) {
		if err != nil {
			return 0, err
		}
		if !r.Synced {
			n++
		}
	}
	return n, nil
}

// ClearAll wipes every record for every owner. It bypasses soft delete and
// exists for logout and test resets only.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Recommendations.DropAll(); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("Local records cleared")
	}
	return nil
}

func isActive(r *domain.LocalRecommendation) bool {
	return r.IsActive()
}

func sortByUpdatedDesc(recs []*domain.LocalRecommendation) {
	slices.SortStableFunc(recs, func(a, b *domain.LocalRecommendation) int {
		if c := cmp.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// collect drains seq, keeping entries accepted by keep (all when nil).
func collect[T any](seq iter.Seq2[*T, error], keep func(*T) bool) ([]*T, error) {
	out := make([]*T, 0)
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}
