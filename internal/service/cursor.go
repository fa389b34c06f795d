package service

import (
	"context"
	"fmt"
	"strconv"
)

const cursorKeyPrefix = "lastPulledAt_"

// KV is the durable key-value table the cursor lives in. The SQLite store
// satisfies it.
type KV interface {
	KVGet(ctx context.Context, key string) (string, bool, error)
	KVSet(ctx context.Context, key, value string) error
	KVDelete(ctx context.Context, key string) error
	KVList(ctx context.Context, prefix string) (map[string]string, error)
}

// SyncCursor tracks, per owner, the time of the last successful pull.
type SyncCursor struct {
	kv KV
}

// NewSyncCursor creates a cursor over kv.
func NewSyncCursor(kv KV) *SyncCursor {
	return &SyncCursor{kv: kv}
}

func cursorKey(owner string) string {
	return cursorKeyPrefix + owner
}

// Get returns the owner's cursor, or 0 when none has been recorded.
func (c *SyncCursor) Get(ctx context.Context, owner string) (int64, error) {
	raw, found, err := c.kv.KVGet(ctx, cursorKey(owner))
	if err != nil {
		return 0, fmt.Errorf("read sync cursor: %w", err)
	}
	if !found || raw == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// A corrupt cursor only costs a full pull.
		return 0, nil
	}
	return ts, nil
}

// Set records ts as the owner's cursor.
func (c *SyncCursor) Set(ctx context.Context, owner string, ts int64) error {
	if err := c.kv.KVSet(ctx, cursorKey(owner), strconv.FormatInt(ts, 10)); err != nil {
		return fmt.Errorf("write sync cursor: %w", err)
	}
	return nil
}

// Reset forgets the owner's cursor so the next pull starts from 0.
func (c *SyncCursor) Reset(ctx context.Context, owner string) error {
	if err := c.kv.KVDelete(ctx, cursorKey(owner)); err != nil {
		return fmt.Errorf("reset sync cursor: %w", err)
	}
	return nil
}

// ResetAll forgets the cursor of every owner. Used when local records are
// wiped for all owners at once.
func (c *SyncCursor) ResetAll(ctx context.Context) error {
	keys, err := c.kv.KVList(ctx, cursorKeyPrefix)
	if err != nil {
		return fmt.Errorf("list sync cursors: %w", err)
	}
	for key := range keys {
		if err := c.kv.KVDelete(ctx, key); err != nil {
			return fmt.Errorf("reset sync cursor %s: %w", key, err)
		}
	}
	return nil
}
