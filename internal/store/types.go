package store

import (
	"github.com/google/uuid"

	"github.com/yiblet/clipvault/internal/content"
)

// Record is a single persisted clipboard capture.
// Payload is nil when the content lives in the external blob directory;
// use RecordStore.Retrieve to get the payload regardless of location.
type Record struct {
	// ID is the stable 128-bit identifier, immutable for the record's
	// lifetime. External blobs are keyed by it.
	ID uuid.UUID

	// Type is the content type tag produced by the codec.
	Type content.Type

	// Payload holds the inline content bytes, or nil when IsExternal.
	Payload []byte

	// IsExternal is true iff the payload lives in the blob directory.
	IsExternal bool

	// ContentSize is the logical payload length in bytes, equal to the
	// codec-computed size regardless of storage location.
	ContentSize int64

	// SourceApp and SourceBundleID record optional capture provenance.
	SourceApp      string
	SourceBundleID string

	// IsFavorite exempts the record from retention deletion.
	IsFavorite bool

	// IsPinned surfaces the record in the always-visible pinned section.
	IsPinned bool

	// Position is the monotonically increasing, globally unique ordering
	// key. Assigned at insert as max+1 and never reused after delete.
	Position int64

	// CreatedAt is the capture time in seconds since the Unix epoch.
	CreatedAt float64
}

// InsertInput contains the data needed to persist a new record.
// The payload must already be codec-encoded.
type InsertInput struct {
	Type           content.Type
	Payload        []byte
	SourceApp      string
	SourceBundleID string

	// CreatedAt is the capture time in epoch seconds. Zero means "now".
	CreatedAt float64

	IsFavorite bool
	IsPinned   bool
}

// FetchOptions parameterizes a paginated scan. The zero value is a plain
// recency-ordered scan.
type FetchOptions struct {
	// Limit caps the number of returned records; 0 means no limit.
	Limit int

	// Offset skips the first N records of the ordering.
	Offset int

	// Keyword filters by full-text match when set. Keywords containing
	// characters reserved by the index query syntax fall back to a
	// substring match.
	Keyword string

	// TagIDs restricts results to records associated with at least one
	// of the given tags. A record matching several tags appears once.
	TagIDs []uuid.UUID
}

// Tag is a user-defined label attachable to records.
type Tag struct {
	ID       uuid.UUID
	Name     string
	Color    string
	Position int64

	// IsPinned marks every associated record as pinned via this tag.
	IsPinned bool

	CreatedAt float64
}

// PinType classifies why a record appears in the pinned section.
// It is derived at query time and never persisted.
type PinType int

const (
	PinNone PinType = iota
	PinDirect
	PinViaTag
	PinBoth
)

func (p PinType) String() string {
	switch p {
	case PinDirect:
		return "direct"
	case PinViaTag:
		return "via_tag"
	case PinBoth:
		return "both"
	default:
		return "none"
	}
}

// PinnedRecord is a record annotated with its derived pin classification.
type PinnedRecord struct {
	Record *Record
	Pin    PinType
}

// Stats aggregates store-wide counters for status displays.
type Stats struct {
	Count            int64
	TotalContentSize int64
	ExternalCount    int64
}

// IndexHealth is the outcome of the open-time full-text index check.
type IndexHealth int

const (
	// IndexHealthy means the probe query succeeded.
	IndexHealthy IndexHealth = iota

	// IndexRebuilt means the probe failed and the index was dropped and
	// recreated. Existing records are re-indexed incrementally by later
	// writes, not eagerly.
	IndexRebuilt
)

func (h IndexHealth) String() string {
	if h == IndexRebuilt {
		return "rebuilt"
	}
	return "healthy"
}
