// Package retention implements the policy-driven cleanup and bulk
// storage-migration jobs that run over the record store, typically once
// per process start. Jobs only ever delete or migrate; they never alter
// the ordering of surviving records, so they are safe to run alongside
// normal read/write traffic.
package retention

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yiblet/clipvault/internal/store"
)

// limitMargin is how many extra oldest records EnforceItemLimit fetches
// beyond the excess, to absorb favorites that must be skipped.
const limitMargin = 50

// Policy describes which retention rules are active.
type Policy struct {
	// MaxAgeDays deletes non-favorite records older than this many days
	// when AgeEnabled.
	MaxAgeDays int
	AgeEnabled bool

	// MaxItems caps the total record count when CountEnabled.
	MaxItems     int
	CountEnabled bool
}

// Jobs runs retention and bulk migration over a store.
type Jobs struct {
	records store.RecordStore
	log     *zap.Logger
	now     func() time.Time
}

// New returns Jobs over the given record store.
func New(records store.RecordStore, log *zap.Logger) *Jobs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jobs{records: records, log: log, now: time.Now}
}

// DeleteExpired removes every non-favorite record captured more than
// olderThanDays days ago and returns how many were deleted. Favorites
// are always kept. A failure on one record is logged and skipped, never
// aborting the batch.
func (j *Jobs) DeleteExpired(olderThanDays int) (int, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("retention: olderThanDays must be positive, got %d", olderThanDays)
	}

	cutoff := float64(j.now().Add(-time.Duration(olderThanDays)*24*time.Hour).UnixNano()) / 1e9
	expired, err := j.records.ItemsOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention: list expired: %w", err)
	}

	deleted := 0
	for _, rec := range expired {
		if rec.IsFavorite {
			continue
		}
		if err := j.records.Delete(rec.ID); err != nil {
			j.log.Warn("retention: delete failed, skipping record",
				zap.String("id", rec.ID.String()), zap.Error(err))
			continue
		}
		deleted++
	}
	j.log.Info("retention: age cleanup done",
		zap.Int("deleted", deleted), zap.Int("older_than_days", olderThanDays))
	return deleted, nil
}

// EnforceItemLimit deletes oldest-first non-favorite records until the
// total count is back under maxItems, or the fetched batch is exhausted.
func (j *Jobs) EnforceItemLimit(maxItems int) (int, error) {
	if maxItems <= 0 {
		return 0, fmt.Errorf("retention: maxItems must be positive, got %d", maxItems)
	}

	total, err := j.records.Count()
	if err != nil {
		return 0, fmt.Errorf("retention: count: %w", err)
	}
	excess := int(total) - maxItems
	if excess <= 0 {
		return 0, nil
	}

	oldest, err := j.records.OldestItems(excess + limitMargin)
	if err != nil {
		return 0, fmt.Errorf("retention: list oldest: %w", err)
	}

	deleted := 0
	for _, rec := range oldest {
		if deleted >= excess {
			break
		}
		if rec.IsFavorite {
			continue
		}
		if err := j.records.Delete(rec.ID); err != nil {
			j.log.Warn("retention: delete failed, skipping record",
				zap.String("id", rec.ID.String()), zap.Error(err))
			continue
		}
		deleted++
	}
	j.log.Info("retention: count cleanup done",
		zap.Int("deleted", deleted), zap.Int("max_items", maxItems))
	return deleted, nil
}

// RunRetentionCleanup applies the age policy, then the count policy,
// each only when enabled. Returns the total number of deleted records.
func (j *Jobs) RunRetentionCleanup(p Policy) (int, error) {
	total := 0
	if p.AgeEnabled && p.MaxAgeDays > 0 {
		n, err := j.DeleteExpired(p.MaxAgeDays)
		if err != nil {
			return total, err
		}
		total += n
	}
	if p.CountEnabled && p.MaxItems > 0 {
		n, err := j.EnforceItemLimit(p.MaxItems)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// MigrateLargeToExternal moves every inline record above threshold into
// the blob directory. Best effort: a failure on one record is logged and
// the rest are still attempted; the returned count is the successes.
func (j *Jobs) MigrateLargeToExternal(threshold int64) (int, error) {
	candidates, err := j.records.ItemsLargerThan(threshold)
	if err != nil {
		return 0, fmt.Errorf("retention: list large items: %w", err)
	}

	migrated := 0
	for _, rec := range candidates {
		if err := j.records.MigrateToExternal(rec.ID); err != nil {
			j.log.Warn("bulk migration to external failed, skipping record",
				zap.String("id", rec.ID.String()), zap.Error(err))
			continue
		}
		migrated++
	}
	j.log.Info("bulk migration to external done",
		zap.Int("migrated", migrated), zap.Int("candidates", len(candidates)))
	return migrated, nil
}

// MigrateExternalToDatabase moves every external payload back inline,
// with the same best-effort semantics.
func (j *Jobs) MigrateExternalToDatabase() (int, error) {
	candidates, err := j.records.ExternalItems()
	if err != nil {
		return 0, fmt.Errorf("retention: list external items: %w", err)
	}

	migrated := 0
	for _, rec := range candidates {
		if err := j.records.MigrateToInline(rec.ID); err != nil {
			j.log.Warn("bulk migration to inline failed, skipping record",
				zap.String("id", rec.ID.String()), zap.Error(err))
			continue
		}
		migrated++
	}
	j.log.Info("bulk migration to inline done",
		zap.Int("migrated", migrated), zap.Int("candidates", len(candidates)))
	return migrated, nil
}
