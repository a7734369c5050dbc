package dbstore

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yiblet/clipvault/internal/content"
	"github.com/yiblet/clipvault/internal/store"
)

// clipboardItemModel maps the clipboard_items table. CreatedAt is epoch
// seconds (REAL) so sub-second capture ordering survives round-trips.
type clipboardItemModel struct {
	ID             string  `gorm:"column:id;primaryKey;size:36"`
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
}

func (clipboardItemModel) TableName() string {
	return "clipboard_items"
}

func (m *clipboardItemModel) toRecord() (*store.Record, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("dbstore: corrupt record id %q: %w", m.ID, err)
	}
	ct, err := content.ParseType(m.ContentType)
	if err != nil {
		return nil, fmt.Errorf("dbstore: record %s: %w", m.ID, err)
	}
	return &store.Record{
		ID:             id,
		Type:           ct,
		Payload:        m.Payload,
		IsExternal:     m.IsExternal,
		ContentSize:    m.ContentSize,
		SourceApp:      m.SourceApp,
		SourceBundleID: m.SourceBundleID,
		IsFavorite:     m.IsFavorite,
		IsPinned:       m.IsPinned,
		Position:       m.Position,
		CreatedAt:      m.CreatedAt,
	}, nil
}

func toRecords(models []*clipboardItemModel) ([]*store.Record, error) {
	records := make([]*store.Record, len(models))
	for i, m := range models {
		rec, err := m.toRecord()
		if err != nil {
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// tagModel maps the tags table.
type tagModel struct {
	ID        string  `gorm:"column:id;primaryKey;size:36"`
	Name      string  `gorm:"column:name"`
	Color     string  `gorm:"column:color"`
	Position  int64   `gorm:"column:position"`
	IsPinned  bool    `gorm:"column:is_pinned"`
	CreatedAt float64 `gorm:"column:created_at"`
}

func (tagModel) TableName() string {
	return "tags"
}

func (m *tagModel) toTag() (*store.Tag, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("dbstore: corrupt tag id %q: %w", m.ID, err)
	}
	return &store.Tag{
		ID:        id,
		Name:      m.Name,
		Color:     m.Color,
		Position:  m.Position,
		IsPinned:  m.IsPinned,
		CreatedAt: m.CreatedAt,
	}, nil
}

// itemTagModel maps the clipboard_item_tags join table.
type itemTagModel struct {
	ItemID    string  `gorm:"column:item_id;primaryKey;size:36"`
	TagID     string  `gorm:"column:tag_id;primaryKey;size:36"`
	CreatedAt float64 `gorm:"column:created_at"`
}

func (itemTagModel) TableName() string {
	return "clipboard_item_tags"
}
