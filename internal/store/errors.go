package store

import domainerrors "github.com/listoapp/listo/internal/errors"

// Sentinel errors returned by the store. They carry domain error codes so
// callers can match them with errors.Is against either these values or the
// internal/errors sentinels.
var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = domainerrors.NotFound("record not found")

	// ErrAlreadyExists is returned when adding a record whose id is taken.
	ErrAlreadyExists = domainerrors.AlreadyExists("record already exists")
)
