// Package store defines the storage contracts for clipvault's persistence
// engine. It provides the record store (hybrid inline/external content,
// search, retention primitives) and the tag store (labels and the
// many-to-many item association).
package store

import "github.com/google/uuid"

// RecordStore manages clipboard record persistence and retrieval.
// All mutating methods execute serialized relative to each other; reads
// may run concurrently and observe a consistent snapshot.
type RecordStore interface {
	// Insert persists a new record, assigning its id and the next unique
	// ordering position. Payloads larger than the configured threshold
	// are written to the external blob directory when external storage
	// is enabled; the blob is durable before the row commits.
	Insert(in *InsertInput) (*Record, error)

	// Get returns a record's metadata by id. The Payload field is
	// populated only for inline records; use Retrieve for content.
	Get(id uuid.UUID) (*Record, error)

	// Retrieve returns the record's payload bytes regardless of storage
	// location. A missing external blob is ErrContentMissing.
	Retrieve(id uuid.UUID) ([]byte, error)

	// Delete removes the record row, its tag associations, its search
	// index entry, and its external blob in one logical operation.
	Delete(id uuid.UUID) error

	// SetFavorite and SetPinned toggle the record flags.
	SetFavorite(id uuid.UUID, favorite bool) error
	SetPinned(id uuid.UUID, pinned bool) error

	// MigrateToExternal moves an inline payload to the blob directory.
	// MigrateToInline moves it back. Both are ordered write-new,
	// commit-metadata, delete-old so a crash mid-migration leaves the
	// record pointing at a still-valid copy.
	MigrateToExternal(id uuid.UUID) error
	MigrateToInline(id uuid.UUID) error

	// Fetch runs a paginated scan ordered by descending position,
	// optionally filtered by keyword and/or tags. See FetchOptions.
	Fetch(opts FetchOptions) ([]*Record, error)

	// Count returns the total number of records.
	Count() (int64, error)

	// TotalContentSize returns the sum of ContentSize over all records.
	TotalContentSize() (int64, error)

	// ItemsLargerThan returns inline records whose content exceeds the
	// threshold, candidates for migration to external storage.
	ItemsLargerThan(threshold int64) ([]*Record, error)

	// ExternalItems returns every externally stored record.
	ExternalItems() ([]*Record, error)

	// ItemsOlderThan returns records captured before the cutoff (epoch
	// seconds), oldest first.
	ItemsOlderThan(cutoff float64) ([]*Record, error)

	// OldestItems returns the n oldest records, oldest first.
	OldestItems(n int) ([]*Record, error)

	// RankOf returns the 0-based offset of the record within the default
	// descending-position ordering. Used to resynchronize a caller's
	// scroll offset after deletions elsewhere.
	RankOf(id uuid.UUID) (int64, error)

	// PinnedItems returns every record that is directly pinned or
	// associated with a pinned tag, each exactly once, annotated with
	// its derived pin classification.
	PinnedItems() ([]*PinnedRecord, error)

	// SourceApps returns the distinct non-empty source application
	// names across all records.
	SourceApps() ([]string, error)

	// Stats returns aggregate counters.
	Stats() (*Stats, error)

	// Clear deletes every record through the full delete path, blobs
	// included.
	Clear() error
}

// TagStore manages tags and the item-tag association.
type TagStore interface {
	// Create rejects empty names after trimming and case-insensitive
	// duplicates, and appends at the next free position when position
	// is unspecified.
	Create(name, color string) (*Tag, error)

	// Rename applies the same duplicate validation, excluding the tag
	// being renamed.
	Rename(id uuid.UUID, name string) error

	SetColor(id uuid.UUID, color string) error

	// SetPinned marks or unmarks all records associated with the tag as
	// tag-pinned.
	SetPinned(id uuid.UUID, pinned bool) error

	// Delete removes the tag. With cascade, every associated record is
	// deleted through the record store's full delete path; otherwise
	// only the association rows are removed.
	Delete(id uuid.UUID, cascade bool) error

	// List returns all tags ordered by position.
	List() ([]*Tag, error)

	// ForItem returns the tags associated with a record.
	ForItem(itemID uuid.UUID) ([]*Tag, error)

	// SetForItem replaces the record's association set with exactly the
	// given tags. Callers pass the complete desired set, not a diff.
	SetForItem(itemID uuid.UUID, tagIDs []uuid.UUID) error

	// Add and Remove adjust a single association.
	Add(itemID, tagID uuid.UUID) error
	Remove(itemID, tagID uuid.UUID) error
}

// Store combines the record and tag stores over one schema and manages
// their lifecycle as a single unit.
type Store interface {
	Records() RecordStore
	Tags() TagStore

	// IndexHealth reports the outcome of the open-time full-text index
	// check.
	IndexHealth() IndexHealth

	// Close releases the underlying database connection.
	Close() error
}
