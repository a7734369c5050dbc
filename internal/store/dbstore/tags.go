package dbstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yiblet/clipvault/internal/store"
)

// tagStore implements store.TagStore.
type tagStore struct {
	s *SQLiteStore
}

// Create inserts a new tag at the next position. Names are trimmed and
// unique case-insensitively.
func (t *tagStore) Create(name, color string) (*store.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("dbstore: tag name must not be empty")
	}

	s := t.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkTagName(name, ""); err != nil {
		return nil, err
	}

	var maxPos int64
	if err := s.db.Raw(`SELECT COALESCE(MAX(position), 0) FROM tags`).Scan(&maxPos).Error; err != nil {
		return nil, fmt.Errorf("dbstore: create tag: %w", err)
	}

	model := &tagModel{
		ID:        uuid.New().String(),
		Name:      name,
		Color:     color,
		Position:  maxPos + 1,
		CreatedAt: epochNow(),
	}
	if err := s.db.Create(model).Error; err != nil {
		return nil, fmt.Errorf("dbstore: create tag: %w", wrapConstraint(err))
	}
	return model.toTag()
}

// checkTagName rejects case-insensitive duplicates, excluding excludeID
// (set during a rename).
func (s *SQLiteStore) checkTagName(name, excludeID string) error {
	q := s.db.Model(&tagModel{}).Where("name = ? COLLATE NOCASE", name)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("dbstore: check tag name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("dbstore: tag %q already exists: %w", name, store.ErrConstraintViolation)
	}
	return nil
}

// Rename changes the tag's name under the same duplicate validation,
// excluding the tag itself.
func (t *tagStore) Rename(id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("dbstore: tag name must not be empty")
	}

	s := t.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkTagName(name, id.String()); err != nil {
		return err
	}
	return s.updateTagFieldLocked(id, "name", name)
}

func (t *tagStore) SetColor(id uuid.UUID, color string) error {
	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()
	return t.s.updateTagFieldLocked(id, "color", color)
}

func (t *tagStore) SetPinned(id uuid.UUID, pinned bool) error {
	t.s.writeMu.Lock()
	defer t.s.writeMu.Unlock()
	return t.s.updateTagFieldLocked(id, "is_pinned", pinned)
}

func (s *SQLiteStore) updateTagFieldLocked(id uuid.UUID, column string, value interface{}) error {
	res := s.db.Model(&tagModel{}).Where("id = ?", id.String()).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("dbstore: update tag %s: %w", id, wrapConstraint(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("dbstore: tag %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// Delete removes the tag. Cascade additionally deletes every associated
// record through the full record delete path, external blobs included;
// otherwise only the association rows go.
func (t *tagStore) Delete(id uuid.UUID, cascade bool) error {
	s := t.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if cascade {
		var itemIDs []string
		err := s.db.Model(&itemTagModel{}).
			Where("tag_id = ?", id.String()).
			Pluck("item_id", &itemIDs).Error
		if err != nil {
			return fmt.Errorf("dbstore: delete tag %s: %w", id, err)
		}
		for _, raw := range itemIDs {
			itemID, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			if err := s.deleteRecordLocked(itemID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id.String()).Delete(&itemTagModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id.String()).Delete(&tagModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dbstore: delete tag %s: %w", id, err)
	}
	return nil
}

// List returns all tags in manual ordering.
func (t *tagStore) List() ([]*store.Tag, error) {
	var models []*tagModel
	if err := t.s.db.Order("position ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("dbstore: list tags: %w", err)
	}
	return toTags(models)
}

// ForItem returns the tags associated with a record.
func (t *tagStore) ForItem(itemID uuid.UUID) ([]*store.Tag, error) {
	var models []*tagModel
	err := t.s.db.Model(&tagModel{}).
		Select("tags.*").
		Joins("JOIN clipboard_item_tags it ON it.tag_id = tags.id").
		Where("it.item_id = ?", itemID.String()).
		Order("tags.position ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("dbstore: tags for %s: %w", itemID, err)
	}
	return toTags(models)
}

func toTags(models []*tagModel) ([]*store.Tag, error) {
	tags := make([]*store.Tag, len(models))
	for i, m := range models {
		tag, err := m.toTag()
		if err != nil {
			return nil, err
		}
		tags[i] = tag
	}
	return tags, nil
}

// SetForItem replaces the record's association set in one transaction:
// delete-all-then-insert, not a diff. Callers pass the complete desired
// set.
func (t *tagStore) SetForItem(itemID uuid.UUID, tagIDs []uuid.UUID) error {
	s := t.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.getModel(itemID); err != nil {
		return err
	}

	now := epochNow()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID.String()).Delete(&itemTagModel{}).Error; err != nil {
			return err
		}
		for _, tagID := range tagIDs {
			assoc := &itemTagModel{
				ItemID:    itemID.String(),
				TagID:     tagID.String(),
				CreatedAt: now,
			}
			if err := tx.Create(assoc).Error; err != nil {
				return wrapConstraint(err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dbstore: set tags for %s: %w", itemID, err)
	}
	return nil
}

// Add associates a tag with a record; adding an existing association is
// a no-op.
func (t *tagStore) Add(itemID, tagID uuid.UUID) error {
	s := t.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	assoc := &itemTagModel{
		ItemID:    itemID.String(),
		TagID:     tagID.String(),
		CreatedAt: epochNow(),
	}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(assoc).Error
	if err != nil {
		return fmt.Errorf("dbstore: tag %s on %s: %w", tagID, itemID, wrapConstraint(err))
	}
	return nil
}

// Remove drops a single association; removing one that does not exist
// is a no-op.
func (t *tagStore) Remove(itemID, tagID uuid.UUID) error {
	s := t.s
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Where("item_id = ? AND tag_id = ?", itemID.String(), tagID.String()).
		Delete(&itemTagModel{}).Error
	if err != nil {
		return fmt.Errorf("dbstore: untag %s from %s: %w", tagID, itemID, err)
	}
	return nil
}
