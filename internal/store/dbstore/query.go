package dbstore

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yiblet/clipvault/internal/store"
)

// ftsReserved is the fixed set of characters with meaning in the FTS5
// query syntax. A keyword containing any of them is matched by substring
// instead, so user input can never raise an index syntax error.
const ftsReserved = `"*():^+-~{}`

// keywordMode selects how the keyword filter is expressed in SQL.
type keywordMode int

const (
	kwNone keywordMode = iota
	kwMatch       // FTS5 phrase-prefix MATCH
	kwPayloadLike // substring over raw inline content
)

// Fetch runs the paginated scan. Keyword handling: a clean keyword goes
// through the full-text index with phrase-prefix semantics; a keyword
// containing reserved syntax characters is matched as a substring over
// the raw content instead; and an index error at execution time falls
// back to the same raw-content scan transparently instead of surfacing
// to the caller.
func (r *recordStore) Fetch(opts store.FetchOptions) ([]*store.Record, error) {
	kw := strings.TrimSpace(opts.Keyword)
	if kw == "" {
		return r.fetch(opts, kwNone, "")
	}
	if !r.s.ftsOK || strings.ContainsAny(kw, ftsReserved) {
		return r.fetch(opts, kwPayloadLike, kw)
	}
	records, err := r.fetch(opts, kwMatch, kw)
	if err != nil {
		r.s.log.Warn("full-text query failed, scanning raw content",
			zap.String("keyword", kw),
			zap.Error(fmt.Errorf("%v: %w", err, store.ErrIndexCorrupted)))
		return r.fetch(opts, kwPayloadLike, kw)
	}
	return records, nil
}

func (r *recordStore) fetch(opts store.FetchOptions, mode keywordMode, kw string) ([]*store.Record, error) {
	q := r.s.db.Model(&clipboardItemModel{})

	if len(opts.TagIDs) > 0 {
		// A record carrying several of the requested tags must not
		// repeat, hence the DISTINCT projection over the join.
		q = q.Joins("JOIN clipboard_item_tags it ON it.item_id = clipboard_items.id").
			Where("it.tag_id IN ?", uuidStrings(opts.TagIDs)).
			Distinct("clipboard_items.*")
	}

	switch mode {
	case kwMatch:
		q = q.Where(
			"clipboard_items.id IN (SELECT item_id FROM clipboard_items_fts WHERE clipboard_items_fts MATCH ?)",
			ftsPrefixQuery(kw),
		)
	case kwPayloadLike:
		q = q.Where(`CAST(clipboard_items.payload AS TEXT) LIKE ? ESCAPE '\'`, "%"+escapeLike(kw)+"%")
	}

	q = q.Order("clipboard_items.position DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var models []*clipboardItemModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("dbstore: fetch: %w", err)
	}
	return toRecords(models)
}

// ftsPrefixQuery wraps a trimmed keyword as a phrase-prefix query, the
// fast path for as-you-type filtering.
func ftsPrefixQuery(kw string) string {
	return `"` + strings.ReplaceAll(kw, `"`, `""`) + `"*`
}

// escapeLike neutralizes LIKE wildcards so the keyword matches only as a
// literal substring. Pairs with the ESCAPE '\' clause above.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Count returns the total number of records.
func (r *recordStore) Count() (int64, error) {
	var n int64
	if err := r.s.db.Model(&clipboardItemModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("dbstore: count: %w", err)
	}
	return n, nil
}

// TotalContentSize sums the logical payload sizes across all records.
func (r *recordStore) TotalContentSize() (int64, error) {
	var total int64
	err := r.s.db.Raw(`SELECT COALESCE(SUM(content_size), 0) FROM clipboard_items`).Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("dbstore: total content size: %w", err)
	}
	return total, nil
}

// ItemsLargerThan returns inline records above the size threshold,
// the candidate set for migration to external storage.
func (r *recordStore) ItemsLargerThan(threshold int64) ([]*store.Record, error) {
	return r.findRecords(func(q *gorm.DB) *gorm.DB {
		return q.Where("content_size > ? AND is_external = ?", threshold, false).
			Order("position DESC")
	})
}

// ExternalItems returns every externally stored record.
func (r *recordStore) ExternalItems() ([]*store.Record, error) {
	return r.findRecords(func(q *gorm.DB) *gorm.DB {
		return q.Where("is_external = ?", true).Order("position DESC")
	})
}

// ItemsOlderThan returns records captured before cutoff, oldest first.
func (r *recordStore) ItemsOlderThan(cutoff float64) ([]*store.Record, error) {
	return r.findRecords(func(q *gorm.DB) *gorm.DB {
		return q.Where("created_at < ?", cutoff).Order("created_at ASC")
	})
}

// OldestItems returns the n oldest records, oldest first.
func (r *recordStore) OldestItems(n int) ([]*store.Record, error) {
	if n <= 0 {
		return nil, nil
	}
	return r.findRecords(func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at ASC").Limit(n)
	})
}

func (r *recordStore) findRecords(build func(*gorm.DB) *gorm.DB) ([]*store.Record, error) {
	var models []*clipboardItemModel
	if err := build(r.s.db.Model(&clipboardItemModel{})).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("dbstore: query records: %w", err)
	}
	return toRecords(models)
}

// RankOf returns the record's 0-based offset within the default
// descending-position ordering.
func (r *recordStore) RankOf(id uuid.UUID) (int64, error) {
	m, err := r.s.getModel(id)
	if err != nil {
		return 0, err
	}
	var rank int64
	err = r.s.db.Model(&clipboardItemModel{}).
		Where("position > ?", m.Position).
		Count(&rank).Error
	if err != nil {
		return 0, fmt.Errorf("dbstore: rank of %s: %w", id, err)
	}
	return rank, nil
}

// pinnedRow carries the record columns plus the derived tag-pin flag.
type pinnedRow struct {
	ID             string  `gorm:"column:id"`
	ContentType    string  `gorm:"column:content_type"`
	Payload        []byte  `gorm:"column:payload"`
	IsExternal     bool    `gorm:"column:is_external"`
	ContentSize    int64   `gorm:"column:content_size"`
	SourceApp      string  `gorm:"column:source_app"`
	SourceBundleID string  `gorm:"column:source_bundle_id"`
	IsFavorite     bool    `gorm:"column:is_favorite"`
	IsPinned       bool    `gorm:"column:is_pinned"`
	Position       int64   `gorm:"column:position"`
	CreatedAt      float64 `gorm:"column:created_at"`
	TagPinned      bool    `gorm:"column:tag_pinned"`
}

// PinnedItems resolves direct and via-tag pins in a single query: the
// tag-pin membership is an EXISTS probe, not a join, so a record pinned
// both ways still produces exactly one row. The classification is
// computed here and never persisted.
func (r *recordStore) PinnedItems() ([]*store.PinnedRecord, error) {
	const q = `
		SELECT ci.*, EXISTS(
			SELECT 1 FROM clipboard_item_tags it
			JOIN tags t ON t.id = it.tag_id
			WHERE it.item_id = ci.id AND t.is_pinned = 1
		) AS tag_pinned
		FROM clipboard_items ci
		WHERE ci.is_pinned = 1 OR EXISTS(
			SELECT 1 FROM clipboard_item_tags it
			JOIN tags t ON t.id = it.tag_id
			WHERE it.item_id = ci.id AND t.is_pinned = 1
		)
		ORDER BY ci.position DESC`

	var rows []pinnedRow
	if err := r.s.db.Raw(q).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("dbstore: pinned items: %w", err)
	}

	out := make([]*store.PinnedRecord, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		m := clipboardItemModel{
			ID:             row.ID,
			ContentType:    row.ContentType,
			Payload:        row.Payload,
			IsExternal:     row.IsExternal,
			ContentSize:    row.ContentSize,
			SourceApp:      row.SourceApp,
			SourceBundleID: row.SourceBundleID,
			IsFavorite:     row.IsFavorite,
			IsPinned:       row.IsPinned,
			Position:       row.Position,
			CreatedAt:      row.CreatedAt,
		}
		rec, err := m.toRecord()
		if err != nil {
			return nil, err
		}
		pin := store.PinNone
		switch {
		case row.IsPinned && row.TagPinned:
			pin = store.PinBoth
		case row.IsPinned:
			pin = store.PinDirect
		case row.TagPinned:
			pin = store.PinViaTag
		}
		out = append(out, &store.PinnedRecord{Record: rec, Pin: pin})
	}
	return out, nil
}

// SourceApps returns the distinct non-empty source application names.
func (r *recordStore) SourceApps() ([]string, error) {
	var apps []string
	err := r.s.db.Model(&clipboardItemModel{}).
		Distinct("source_app").
		Where("source_app <> ''").
		Order("source_app ASC").
		Pluck("source_app", &apps).Error
	if err != nil {
		return nil, fmt.Errorf("dbstore: source apps: %w", err)
	}
	return apps, nil
}

// Stats returns aggregate counters in one pass.
func (r *recordStore) Stats() (*store.Stats, error) {
	var st store.Stats
	err := r.s.db.Raw(`
		SELECT COUNT(*)                              AS count,
		       COALESCE(SUM(content_size), 0)        AS total_content_size,
		       COALESCE(SUM(is_external), 0)         AS external_count
		FROM clipboard_items`).
		Row().Scan(&st.Count, &st.TotalContentSize, &st.ExternalCount)
	if err != nil {
		return nil, fmt.Errorf("dbstore: stats: %w", err)
	}
	return &st, nil
}
