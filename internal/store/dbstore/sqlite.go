// Package dbstore implements store.Store on SQLite via GORM, with a
// hybrid inline/external content layout and an FTS5 full-text index.
package dbstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yiblet/clipvault/internal/blob"
	"github.com/yiblet/clipvault/internal/store"
)

// DefaultLargeFileThreshold is the inline/external cutoff when the
// caller does not configure one: 1 MiB.
const DefaultLargeFileThreshold = 1 << 20

// Options configures a SQLiteStore.
type Options struct {
	// EnableExternalStorage routes payloads above the threshold to the
	// blob directory. When off, everything is stored inline.
	EnableExternalStorage bool

	// LargeFileThreshold is the inline/external cutoff in bytes.
	// Zero means DefaultLargeFileThreshold.
	LargeFileThreshold int64

	// Logger receives index-fallback and cleanup diagnostics.
	// Nil means no logging.
	Logger *zap.Logger
}

// SQLiteStore is the SQLite-backed implementation of store.Store.
// Mutating operations serialize on writeMu (single logical writer);
// reads go straight to the connection and see committed state only.
type SQLiteStore struct {
	db    *gorm.DB
	blobs *blob.Dir
	log   *zap.Logger
	opts  Options

	health store.IndexHealth
	ftsOK  bool

	writeMu sync.Mutex
}

// Open opens (or creates) the database, applies pending migrations, and
// checks the full-text index, rebuilding it if the probe fails.
func Open(dbPath string, blobs *blob.Dir, opts Options) (*SQLiteStore, error) {
	if opts.LargeFileThreshold <= 0 {
		opts.LargeFileThreshold = DefaultLargeFileThreshold
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("dbstore: open database: %v: %w", err, store.ErrStorageUnavailable)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	s := &SQLiteStore{
		db:    db,
		blobs: blobs,
		log:   opts.Logger,
		opts:  opts,
	}
	s.health, s.ftsOK = initSearchIndex(db, opts.Logger)
	return s, nil
}

// Records returns the record store.
func (s *SQLiteStore) Records() store.RecordStore {
	return &recordStore{s: s}
}

// Tags returns the tag store.
func (s *SQLiteStore) Tags() store.TagStore {
	return &tagStore{s: s}
}

// IndexHealth reports the outcome of the open-time index check.
func (s *SQLiteStore) IndexHealth() store.IndexHealth {
	return s.health
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const (
	ftsCreateSQL = `CREATE VIRTUAL TABLE IF NOT EXISTS clipboard_items_fts
		USING fts5(item_id UNINDEXED, content, tokenize = 'unicode61 remove_diacritics 2')`
	ftsDropSQL = `DROP TABLE IF EXISTS clipboard_items_fts`

	// The probe must exercise MATCH: a plain count succeeds even when the
	// virtual table has been replaced or its shadow tables are broken.
	ftsProbeSQL = `SELECT count(*) FROM clipboard_items_fts WHERE clipboard_items_fts MATCH '"health"'`
)

// initSearchIndex creates the FTS table if needed and probes it with a
// match query. A failing probe drops and recreates the index; records
// written before the rebuild are re-indexed lazily by later writes.
// Returns the health verdict and whether the index is usable at all
// (it is not when FTS5 is missing from the build).
func initSearchIndex(db *gorm.DB, log *zap.Logger) (store.IndexHealth, bool) {
	if err := db.Exec(ftsCreateSQL).Error; err != nil {
		log.Warn("full-text index unavailable, keyword search will use substring scan",
			zap.Error(err))
		return store.IndexHealthy, false
	}

	var n int64
	if err := db.Raw(ftsProbeSQL).Scan(&n).Error; err == nil {
		return store.IndexHealthy, true
	} else {
		log.Warn("full-text index probe failed, rebuilding", zap.Error(err))
	}

	if err := db.Exec(ftsDropSQL).Error; err != nil {
		log.Error("dropping corrupted full-text index failed", zap.Error(err))
		return store.IndexRebuilt, false
	}
	if err := db.Exec(ftsCreateSQL).Error; err != nil {
		log.Error("recreating full-text index failed", zap.Error(err))
		return store.IndexRebuilt, false
	}
	return store.IndexRebuilt, true
}

// indexText replaces the index entry for a record. Index failures are
// logged, never propagated: the index is a cache over the rows and is
// rebuilt on the next open if it breaks.
func (s *SQLiteStore) indexText(id string, text string) {
	if !s.ftsOK {
		return
	}
	if err := s.db.Exec(`DELETE FROM clipboard_items_fts WHERE item_id = ?`, id).Error; err != nil {
		s.log.Warn("full-text index delete failed", zap.String("id", id), zap.Error(err))
		return
	}
	if text == "" {
		return
	}
	if err := s.db.Exec(`INSERT INTO clipboard_items_fts (item_id, content) VALUES (?, ?)`, id, text).Error; err != nil {
		s.log.Warn("full-text index insert failed", zap.String("id", id), zap.Error(err))
	}
}

func (s *SQLiteStore) unindex(id string) {
	if !s.ftsOK {
		return
	}
	if err := s.db.Exec(`DELETE FROM clipboard_items_fts WHERE item_id = ?`, id).Error; err != nil {
		s.log.Warn("full-text index delete failed", zap.String("id", id), zap.Error(err))
	}
}

// wrapConstraint maps SQLite unique/foreign-key violations onto the
// store's error taxonomy.
func wrapConstraint(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%v: %w", err, store.ErrConstraintViolation)
	}
	return err
}

func epochNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
