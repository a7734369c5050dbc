package dbstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yiblet/clipvault/internal/content"
	"github.com/yiblet/clipvault/internal/store"
)

// recordStore implements store.RecordStore.
type recordStore struct {
	s *SQLiteStore
}

// Insert persists a new record. The next ordering position is read and
// the row inserted inside the same write lock and transaction, so the
// position uniqueness invariant holds even if a second write path is
// ever added. For external payloads the blob is durable before the row
// commits; if the row fails, the blob is removed again.
func (r *recordStore) Insert(in *store.InsertInput) (*store.Record, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("dbstore: insert: unknown content type %q", in.Type)
	}
	s := r.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := uuid.New()
	size := int64(len(in.Payload))
	createdAt := in.CreatedAt
	if createdAt == 0 {
		createdAt = epochNow()
	}

	external := s.opts.EnableExternalStorage && size > s.opts.LargeFileThreshold
	if external {
		if err := s.blobs.Write(id, in.Payload); err != nil {
			return nil, fmt.Errorf("dbstore: insert %s: %w", id, err)
		}
	}

	model := &clipboardItemModel{
		ID:             id.String(),
		ContentType:    string(in.Type),
		ContentSize:    size,
		SourceApp:      in.SourceApp,
		SourceBundleID: in.SourceBundleID,
		IsFavorite:     in.IsFavorite,
		IsPinned:       in.IsPinned,
		CreatedAt:      createdAt,
	}
	if external {
		model.IsExternal = true
	} else {
		model.Payload = in.Payload
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxPos int64
		if err := tx.Raw(`SELECT COALESCE(MAX(position), 0) FROM clipboard_items`).Scan(&maxPos).Error; err != nil {
			return err
		}
		model.Position = maxPos + 1
		return wrapConstraint(tx.Create(model).Error)
	})
	if err != nil {
		if external {
			_ = s.blobs.Remove(id)
		}
		return nil, fmt.Errorf("dbstore: insert: %w", err)
	}

	s.indexText(model.ID, content.IndexableText(in.Type, in.Payload))
	return model.toRecord()
}

// Get returns record metadata by id.
func (r *recordStore) Get(id uuid.UUID) (*store.Record, error) {
	m, err := r.s.getModel(id)
	if err != nil {
		return nil, err
	}
	return m.toRecord()
}

func (s *SQLiteStore) getModel(id uuid.UUID) (*clipboardItemModel, error) {
	var m clipboardItemModel
	if err := s.db.First(&m, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("dbstore: record %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("dbstore: get record %s: %w", id, err)
	}
	return &m, nil
}

// Retrieve returns the payload bytes wherever they live.
func (r *recordStore) Retrieve(id uuid.UUID) ([]byte, error) {
	m, err := r.s.getModel(id)
	if err != nil {
		return nil, err
	}
	if m.IsExternal {
		return r.s.blobs.Read(id)
	}
	return m.Payload, nil
}

// Delete removes the record in one logical operation: row (with its
// associations and index entry) first, blob second. The row is the
// source of truth, so a crash in between leaves at worst a transient
// orphan file, never a record pointing at missing content.
func (r *recordStore) Delete(id uuid.UUID) error {
	r.s.writeMu.Lock()
	defer r.s.writeMu.Unlock()
	return r.s.deleteRecordLocked(id)
}

// deleteRecordLocked performs the full delete path. Caller holds writeMu.
func (s *SQLiteStore) deleteRecordLocked(id uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id.String()).Delete(&itemTagModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id.String()).Delete(&clipboardItemModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("dbstore: record %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("dbstore: delete record %s: %w", id, err)
	}

	s.unindex(id.String())
	if err := s.blobs.Remove(id); err != nil {
		return fmt.Errorf("dbstore: delete record %s: %w", id, err)
	}
	return nil
}

// SetFavorite toggles retention exemption.
func (r *recordStore) SetFavorite(id uuid.UUID, favorite bool) error {
	return r.s.updateRecordField(id, "is_favorite", favorite)
}

// SetPinned toggles direct pinning.
func (r *recordStore) SetPinned(id uuid.UUID, pinned bool) error {
	return r.s.updateRecordField(id, "is_pinned", pinned)
}

func (s *SQLiteStore) updateRecordField(id uuid.UUID, column string, value interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := s.db.Model(&clipboardItemModel{}).
		Where("id = ?", id.String()).
		Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("dbstore: update %s on %s: %w", column, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dbstore: record %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// MigrateToExternal moves an inline payload into the blob directory:
// write the blob, then flip the row. Never deletes the source before the
// destination write is confirmed; an inline row has no stale copy to
// remove afterwards.
func (r *recordStore) MigrateToExternal(id uuid.UUID) error {
	s := r.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := s.getModel(id)
	if err != nil {
		return err
	}
	if m.IsExternal {
		return nil
	}

	if err := s.blobs.Write(id, m.Payload); err != nil {
		return fmt.Errorf("dbstore: migrate %s to external: %w", id, err)
	}
	err = s.db.Model(&clipboardItemModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{"payload": nil, "is_external": true}).Error
	if err != nil {
		// Row still points inline; the blob is the stale copy.
		_ = s.blobs.Remove(id)
		return fmt.Errorf("dbstore: migrate %s to external: %w", id, err)
	}
	return nil
}

// MigrateToInline moves an external payload back into the row: read the
// blob, commit the row update, then remove the blob. A crash before the
// removal leaves a harmless leftover file behind an inline record, which
// the next delete or migration clears.
func (r *recordStore) MigrateToInline(id uuid.UUID) error {
	s := r.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	m, err := s.getModel(id)
	if err != nil {
		return err
	}
	if !m.IsExternal {
		return nil
	}

	payload, err := s.blobs.Read(id)
	if err != nil {
		return fmt.Errorf("dbstore: migrate %s to inline: %w", id, err)
	}
	err = s.db.Model(&clipboardItemModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]interface{}{"payload": payload, "is_external": false}).Error
	if err != nil {
		return fmt.Errorf("dbstore: migrate %s to inline: %w", id, err)
	}
	if err := s.blobs.Remove(id); err != nil {
		return fmt.Errorf("dbstore: migrate %s to inline: %w", id, err)
	}
	return nil
}

// Clear deletes every record through the full delete path so external
// blobs come down with their rows.
func (r *recordStore) Clear() error {
	s := r.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var ids []string
	if err := s.db.Model(&clipboardItemModel{}).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("dbstore: clear: %w", err)
	}
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.log.Warn("skipping record with corrupt id during clear", zap.String("id", raw))
			continue
		}
		if err := s.deleteRecordLocked(id); err != nil {
			return err
		}
	}
	return nil
}
