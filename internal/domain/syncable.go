package domain

import "time"

// Clock returns the current time as integer Unix seconds. Stores and services
// take a Clock so tests can pin mutation timestamps.
type Clock func() int64

// SystemClock is the wall clock in Unix seconds.
func SystemClock() int64 {
	return time.Now().Unix()
}

// Syncable provides the identity and timestamp fields shared by every record
// that participates in last-write-wins synchronization. Timestamps are Unix
// seconds.
type Syncable struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (s *Syncable) InitTimestamps(now int64) {
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch advances UpdatedAt to now. UpdatedAt never moves backwards, so a
// clock that went back in time leaves the previous value in place.
func (s *Syncable) Touch(now int64) {
	if now > s.UpdatedAt {
		s.UpdatedAt = now
	}
}

// IsDeleted returns true if this record has been soft-deleted.
func (s *Syncable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted soft-deletes the record and touches it so the deletion is
// picked up by the next sync.
func (s *Syncable) MarkDeleted(now int64) {
	s.Touch(now)
	s.DeletedAt = &now
}

// NewerThan reports whether s wins a last-write-wins comparison against
// other. Equal timestamps are not newer.
func (s *Syncable) NewerThan(other *Syncable) bool {
	return s.UpdatedAt > other.UpdatedAt
}
