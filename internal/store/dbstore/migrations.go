package dbstore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yiblet/clipvault/internal/store"
)

// The schema evolves through an explicit version ledger: each step runs
// exactly once, in order, inside its own transaction, and is recorded in
// schema_migrations. Steps only ever add tables, columns, or indexes;
// nothing is dropped, so old data always survives an upgrade.

const ledgerSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at REAL NOT NULL
);`

type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "core tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS clipboard_items (
				id           TEXT PRIMARY KEY,
				content_type TEXT NOT NULL,
				payload      BLOB,
				is_external  INTEGER NOT NULL DEFAULT 0,
				content_size INTEGER NOT NULL DEFAULT 0,
				is_favorite  INTEGER NOT NULL DEFAULT 0,
				position     INTEGER NOT NULL UNIQUE,
				created_at   REAL NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clipboard_items_position ON clipboard_items(position DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_clipboard_items_created_at ON clipboard_items(created_at)`,
			// Reserved for grouped favorites; no reads yet.
			`CREATE TABLE IF NOT EXISTS favorite_groups (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				created_at REAL NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tags (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				color      TEXT NOT NULL DEFAULT '',
				position   INTEGER NOT NULL DEFAULT 0,
				is_pinned  INTEGER NOT NULL DEFAULT 0,
				created_at REAL NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name_nocase ON tags(name COLLATE NOCASE)`,
			`CREATE TABLE IF NOT EXISTS clipboard_item_tags (
				item_id    TEXT NOT NULL REFERENCES clipboard_items(id) ON DELETE CASCADE,
				tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				created_at REAL NOT NULL,
				PRIMARY KEY (item_id, tag_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_clipboard_item_tags_tag ON clipboard_item_tags(tag_id)`,
		},
	},
	{
		version: 2,
		name:    "capture provenance and direct pinning",
		stmts: []string{
			`ALTER TABLE clipboard_items ADD COLUMN source_app TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE clipboard_items ADD COLUMN source_bundle_id TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE clipboard_items ADD COLUMN is_pinned INTEGER NOT NULL DEFAULT 0`,
		},
	},
}

// migrate brings the schema to the latest version. Any failure is fatal
// to store initialization and wraps store.ErrStorageUnavailable.
func migrate(db *gorm.DB) error {
	if err := db.Exec(ledgerSQL).Error; err != nil {
		return fmt.Errorf("dbstore: create migration ledger: %v: %w", err, store.ErrStorageUnavailable)
	}

	var current int
	if err := db.Raw(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current).Error; err != nil {
		return fmt.Errorf("dbstore: read schema version: %v: %w", err, store.ErrStorageUnavailable)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, stmt := range m.stmts {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("step %q: %w", m.name, err)
				}
			}
			return tx.Exec(
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.version, m.name, epochNow(),
			).Error
		})
		if err != nil {
			return fmt.Errorf("dbstore: migrate to v%d: %v: %w", m.version, err, store.ErrStorageUnavailable)
		}
	}
	return nil
}
