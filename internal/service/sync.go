package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/listoapp/listo/internal/domain"
	domainerrors "github.com/listoapp/listo/internal/errors"
	"github.com/listoapp/listo/internal/store"
)

// SyncState is the phase an owner's sync is in.
type SyncState string

// Sync phases. A cycle runs Pulling, Merging, CursorAdvance, Pushing and
// returns to Idle whatever the outcome.
const (
	SyncIdle          SyncState = "idle"
	SyncPulling       SyncState = "pulling"
	SyncMerging       SyncState = "merging"
	SyncCursorAdvance SyncState = "cursor_advance"
	SyncPushing       SyncState = "pushing"
)

// PushRejection is a record the remote refused, with its reason.
type PushRejection struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// PushResult is the remote's answer to a push batch.
type PushResult struct {
	Synced []string        `json:"synced"`
	Errors []PushRejection `json:"errors"`
}

// RemoteStore is the server side of sync as the engine sees it.
type RemoteStore interface {
	// Pull returns the owner's records with updated_at >= since.
	Pull(ctx context.Context, owner string, since int64) ([]domain.Recommendation, error)
	// Push sends a batch of dirty records in one request.
	Push(ctx context.Context, owner string, recs []*domain.LocalRecommendation) (*PushResult, error)
}

// SyncReport counts what a sync did.
type SyncReport struct {
	Pulled   int   `json:"pulled"`
	Inserted int   `json:"inserted"`
	Updated  int   `json:"updated"`
	Skipped  int   `json:"skipped"`
	Pushed   int   `json:"pushed"`
	Accepted int   `json:"accepted"`
	Rejected int   `json:"rejected"`
	Cursor   int64 `json:"cursor"`
}

// SyncEngine reconciles the local record store with a remote store using
// last-write-wins on updated_at. At most one sync runs per owner; different
// owners sync independently.
type SyncEngine struct {
	store  *store.Store
	cursor *SyncCursor
	remote RemoteStore
	logger *slog.Logger
	now    domain.Clock

	mu     sync.Mutex
	states map[string]SyncState
}

// NewSyncEngine creates a new sync engine.
func NewSyncEngine(store *store.Store, cursor *SyncCursor, remote RemoteStore, logger *slog.Logger) *SyncEngine {
	return &SyncEngine{
		store:  store,
		cursor: cursor,
		remote: remote,
		logger: logger,
		now:    domain.SystemClock,
		states: make(map[string]SyncState),
	}
}

// SetClock overrides the clock the cursor is stamped with.
func (e *SyncEngine) SetClock(clock domain.Clock) {
	if clock != nil {
		e.now = clock
	}
}

// State returns the owner's current sync phase.
func (e *SyncEngine) State(owner string) SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[owner]; ok {
		return st
	}
	return SyncIdle
}

// acquire claims the owner's guard, failing with ErrSyncInProgress when a
// sync is already running for that owner.
func (e *SyncEngine) acquire(owner string, first SyncState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.states[owner]; busy {
		return domainerrors.ErrSyncInProgress
	}
	e.states[owner] = first
	return nil
}

func (e *SyncEngine) release(owner string) {
	e.mu.Lock()
	delete(e.states, owner)
	e.mu.Unlock()
}

func (e *SyncEngine) transition(owner string, st SyncState) {
	e.mu.Lock()
	e.states[owner] = st
	e.mu.Unlock()
	e.logger.Debug("sync state", "owner", owner, "state", st)
}

// Pull fetches remote changes since the owner's cursor (or everything when
// forceFull) and merges them locally.
func (e *SyncEngine) Pull(ctx context.Context, owner string, forceFull bool) (*SyncReport, error) {
	if err := e.acquire(owner, SyncPulling); err != nil {
		return nil, err
	}
	defer e.release(owner)

	report := &SyncReport{}
	if err := e.pull(ctx, owner, forceFull, report); err != nil {
		return report, err
	}
	return report, nil
}

// Push sends every dirty record of the owner in one batch.
func (e *SyncEngine) Push(ctx context.Context, owner string) (*SyncReport, error) {
	if err := e.acquire(owner, SyncPushing); err != nil {
		return nil, err
	}
	defer e.release(owner)

	report := &SyncReport{}
	if err := e.push(ctx, owner, report); err != nil {
		return report, err
	}
	return report, nil
}

// FullSync pulls and then, only if the pull succeeded, pushes. Both run
// under one guard acquisition.
func (e *SyncEngine) FullSync(ctx context.Context, owner string, forceFull bool) (*SyncReport, error) {
	if err := e.acquire(owner, SyncPulling); err != nil {
		return nil, err
	}
	defer e.release(owner)

	report := &SyncReport{}
	if err := e.pull(ctx, owner, forceFull, report); err != nil {
		return report, err
	}
	if err := e.push(ctx, owner, report); err != nil {
		return report, err
	}

	e.logger.Info("sync complete",
		"owner", owner,
		"pulled", report.Pulled,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"pushed", report.Pushed,
		"accepted", report.Accepted,
		"rejected", report.Rejected,
	)
	return report, nil
}

func (e *SyncEngine) pull(ctx context.Context, owner string, forceFull bool, report *SyncReport) error {
	e.transition(owner, SyncPulling)

	var boundary int64
	if !forceFull {
		var err error
		if boundary, err = e.cursor.Get(ctx, owner); err != nil {
			return err
		}
	}

	// Changes made remotely while this pull is in flight must be picked up
	// by the next one, so the cursor is the time the pull started.
	startedAt := e.now()

	remote, err := e.remote.Pull(ctx, owner, boundary)
	if err != nil {
		return asTransport(err, "pull")
	}
	report.Pulled = len(remote)

	e.transition(owner, SyncMerging)

	local, err := e.store.ListAllForSync(ctx, owner)
	if err != nil {
		return fmt.Errorf("load local records: %w", err)
	}
	versions := make(map[string]*domain.Syncable, len(local))
	for _, l := range local {
		versions[l.ID] = &l.Syncable
	}

	for i := range remote {
		r := remote[i]
		if r.OwnerID == "" {
			r.OwnerID = owner
		}
		if r.OwnerID != owner {
			e.logger.Warn("skipping remote record of another owner", "id", r.ID, "owner", owner, "record_owner", r.OwnerID)
			report.Skipped++
			continue
		}
		if cur, ok := versions[r.ID]; ok && !r.NewerThan(cur) {
			report.Skipped++
			continue
		}

		outcome, err := e.store.ApplyRemote(ctx, r)
		if err != nil {
			return fmt.Errorf("merge remote record %s: %w", r.ID, err)
		}
		switch outcome {
		case store.MergeInserted:
			report.Inserted++
		case store.MergeUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	e.transition(owner, SyncCursorAdvance)
	if err := e.cursor.Set(ctx, owner, startedAt); err != nil {
		return err
	}
	report.Cursor = startedAt

	e.logger.Debug("pull complete",
		"owner", owner,
		"since", boundary,
		"pulled", report.Pulled,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
	)
	return nil
}

func (e *SyncEngine) push(ctx context.Context, owner string, report *SyncReport) error {
	e.transition(owner, SyncPushing)

	dirty, err := e.store.ListDirty(ctx, owner)
	if err != nil {
		return fmt.Errorf("list dirty records: %w", err)
	}
	if len(dirty) == 0 {
		return nil
	}
	report.Pushed = len(dirty)

	// updated_at as sent; a record edited during the push stays dirty.
	sent := make(map[string]int64, len(dirty))
	for _, r := range dirty {
		sent[r.ID] = r.UpdatedAt
	}

	result, err := e.remote.Push(ctx, owner, dirty)
	if err != nil {
		terr := asTransport(err, "push")
		var markErrs []error
		for _, r := range dirty {
			if mErr := e.store.MarkSyncError(ctx, r.ID, terr.Error()); mErr != nil {
				markErrs = append(markErrs, mErr)
			}
		}
		if len(markErrs) > 0 {
			e.logger.Error("failed to record push failure", "owner", owner, "error", errors.Join(markErrs...))
		}
		return terr
	}
	if result == nil {
		result = &PushResult{}
	}

	accepted := make(map[string]int64, len(result.Synced))
	for _, recID := range result.Synced {
		if v, ok := sent[recID]; ok {
			accepted[recID] = v
		}
	}

	var errs []error
	marked, err := e.store.MarkSyncedVersions(ctx, accepted)
	if err != nil {
		errs = append(errs, err)
	}
	report.Accepted = len(accepted)
	if stale := len(accepted) - len(marked); stale > 0 {
		e.logger.Debug("records changed during push stay dirty", "owner", owner, "count", stale)
	}

	for _, rej := range result.Errors {
		if _, ok := sent[rej.ID]; !ok {
			continue
		}
		report.Rejected++
		if err := e.store.MarkSyncError(ctx, rej.ID, rej.Message); err != nil {
			errs = append(errs, fmt.Errorf("mark %s failed: %w", rej.ID, err))
		}
		e.logger.Warn("remote rejected record", "owner", owner, "id", rej.ID, "message", rej.Message)
	}

	if missing := report.Pushed - report.Accepted - report.Rejected; missing > 0 {
		e.logger.Warn("remote did not answer for some records", "owner", owner, "count", missing)
	}

	e.logger.Debug("push complete",
		"owner", owner,
		"pushed", report.Pushed,
		"accepted", report.Accepted,
		"rejected", report.Rejected,
	)
	return errors.Join(errs...)
}

// asTransport wraps err as a TRANSPORT error unless it already is one.
func asTransport(err error, op string) error {
	if domainerrors.CodeOf(err) == domainerrors.CodeTransport {
		return err
	}
	return domainerrors.Wrapf(err, domainerrors.CodeTransport, "%s failed", op)
}
