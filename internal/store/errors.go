package store

import "errors"

// Sentinel errors of the persistence engine. Implementations wrap these
// with context; callers test with errors.Is.
var (
	// ErrStorageUnavailable marks a schema or open failure. It is fatal
	// to the store instance; no partial schema state is hidden behind it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrContentMissing marks an external blob that is absent although
	// the owning record says it should exist. A data-integrity fault,
	// surfaced to the caller rather than returned as empty content.
	ErrContentMissing = errors.New("content missing")

	// ErrConstraintViolation marks a duplicate unique key. Position
	// collisions should never occur under the append-only assignment
	// policy; duplicate tag names surface through it as well.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrIndexCorrupted marks a search-index failure. It is recovered
	// locally via substring fallback or index rebuild and never reaches
	// a search caller.
	ErrIndexCorrupted = errors.New("search index corrupted")

	// ErrNotFound marks a point lookup for an id that does not exist.
	ErrNotFound = errors.New("not found")
)
