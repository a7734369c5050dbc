// Package legacy imports the flat serialized history list written by
// versions that predate the relational store. The import is one-shot:
// every entry is re-inserted through the normal insert path, and the
// legacy file is removed only after the whole list succeeds, so a
// failed run can be retried or inspected.
package legacy

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yiblet/clipvault/internal/content"
	"github.com/yiblet/clipvault/internal/store"
)

// Item is one entry of the legacy flat list.
type Item struct {
	Type           string  `yaml:"type"`
	Payload        []byte  `yaml:"payload"`
	SourceApp      string  `yaml:"source_app,omitempty"`
	SourceBundleID string  `yaml:"source_bundle_id,omitempty"`
	IsFavorite     bool    `yaml:"is_favorite,omitempty"`
	IsPinned       bool    `yaml:"is_pinned,omitempty"`
	CreatedAt      float64 `yaml:"created_at"`
}

// Import reads the legacy file at path, if present, and inserts its
// entries oldest-first so assigned positions preserve the original
// order. Returns the number of imported records; (0, nil) when there is
// no legacy file.
func Import(path string, records store.RecordStore, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("legacy: read %s: %w", path, err)
	}

	var items []Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("legacy: parse %s: %w", path, err)
	}

	for i, item := range items {
		ct, err := content.ParseType(item.Type)
		if err != nil {
			return 0, fmt.Errorf("legacy: entry %d: %w", i, err)
		}
		_, err = records.Insert(&store.InsertInput{
			Type:           ct,
			Payload:        item.Payload,
			SourceApp:      item.SourceApp,
			SourceBundleID: item.SourceBundleID,
			IsFavorite:     item.IsFavorite,
			IsPinned:       item.IsPinned,
			CreatedAt:      item.CreatedAt,
		})
		if err != nil {
			// Leave the file intact for retry and debugging.
			return 0, fmt.Errorf("legacy: import entry %d: %w", i, err)
		}
	}

	if err := os.Remove(path); err != nil {
		return len(items), fmt.Errorf("legacy: remove %s after import: %w", path, err)
	}
	log.Info("legacy history imported", zap.Int("records", len(items)), zap.String("path", path))
	return len(items), nil
}
