// Package cli wires the persistence engine to its command-line surface.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yiblet/clipvault/internal/blob"
	"github.com/yiblet/clipvault/internal/config"
	"github.com/yiblet/clipvault/internal/content"
	"github.com/yiblet/clipvault/internal/legacy"
	"github.com/yiblet/clipvault/internal/logger"
	"github.com/yiblet/clipvault/internal/retention"
	"github.com/yiblet/clipvault/internal/store"
	"github.com/yiblet/clipvault/internal/store/dbstore"
)

// CLI handles the command-line interface.
type CLI struct {
	cfg     *config.Config
	manager *config.Manager
	store   store.Store
	jobs    *retention.Jobs
	log     *zap.Logger
}

// NewWithArgs builds the engine from the configuration referenced by
// args (flag-provided path or the default location).
func NewWithArgs(args *Args) (*CLI, error) {
	var manager *config.Manager
	if args != nil && args.ConfigPath != nil {
		manager = config.NewManagerWithPath(*args.ConfigPath)
	} else {
		var err error
		manager, err = config.NewManager()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, true)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	blobs, err := blob.New(cfg.BlobDir())
	if err != nil {
		return nil, err
	}
	st, err := dbstore.Open(cfg.DatabasePath(), blobs, dbstore.Options{
		EnableExternalStorage: cfg.EnableExternalStorage,
		LargeFileThreshold:    cfg.LargeFileThreshold,
		Logger:                log,
	})
	if err != nil {
		return nil, err
	}
	if st.IndexHealth() == store.IndexRebuilt {
		log.Warn("search index was rebuilt; results are sparse until records are re-indexed")
	}

	return &CLI{
		cfg:     cfg,
		manager: manager,
		store:   st,
		jobs:    retention.New(st.Records(), log),
		log:     log,
	}, nil
}

// Close releases the store.
func (c *CLI) Close() error {
	return c.store.Close()
}

// Execute runs the command selected by args.
func (c *CLI) Execute(args *Args) error {
	if err := args.Validate(); err != nil {
		return err
	}

	switch {
	case args.Add != nil:
		return c.runAdd(args.Add)
	case args.List != nil:
		return c.runList(args.List)
	case args.Search != nil:
		return c.runSearch(args.Search)
	case args.Stats != nil:
		return c.runStats()
	case args.Cleanup != nil:
		return c.runCleanup()
	case args.Migrate != nil:
		return c.runMigrate(args.Migrate)
	case args.Tag != nil:
		return c.runTag(args.Tag)
	case args.ImportLegacy != nil:
		return c.runImportLegacy(args.ImportLegacy)
	case args.Watch != nil:
		return c.runWatch()
	default:
		return fmt.Errorf("no command specified")
	}
}

func (c *CLI) runAdd(cmd *AddCmd) error {
	ct, err := content.ParseType(cmd.Type)
	if err != nil {
		return err
	}

	var data []byte
	if cmd.File != nil {
		data, err = os.ReadFile(*cmd.File)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	payload, err := content.Encode(content.Value{Type: ct, Text: string(data), Data: data})
	if err != nil {
		return err
	}
	rec, err := c.store.Records().Insert(&store.InsertInput{
		Type:       ct,
		Payload:    payload,
		SourceApp:  cmd.SourceApp,
		IsFavorite: cmd.Favorite,
		IsPinned:   cmd.Pin,
	})
	if err != nil {
		return err
	}
	fmt.Printf("stored %s (%d bytes, position %d)\n", rec.ID, rec.ContentSize, rec.Position)
	return nil
}

func (c *CLI) runList(cmd *ListCmd) error {
	if cmd.Pinned {
		pinned, err := c.store.Records().PinnedItems()
		if err != nil {
			return err
		}
		for _, p := range pinned {
			printRecord(p.Record, p.Pin.String())
		}
		return nil
	}

	var tagIDs []uuid.UUID
	for _, name := range cmd.Tags {
		tag, err := c.findTag(name)
		if err != nil {
			return err
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	records, err := c.store.Records().Fetch(store.FetchOptions{
		Limit:  cmd.Limit,
		Offset: cmd.Offset,
		TagIDs: tagIDs,
	})
	if err != nil {
		return err
	}
	for _, rec := range records {
		printRecord(rec, "")
	}
	return nil
}

func (c *CLI) runSearch(cmd *SearchCmd) error {
	records, err := c.store.Records().Fetch(store.FetchOptions{
		Limit:   cmd.Limit,
		Keyword: cmd.Keyword,
	})
	if err != nil {
		return err
	}
	for _, rec := range records {
		printRecord(rec, "")
	}
	return nil
}

func printRecord(rec *store.Record, note string) {
	location := "inline"
	if rec.IsExternal {
		location = "external"
	}
	line := fmt.Sprintf("%6d  %s  %-14s %8dB  %s", rec.Position, rec.ID, rec.Type, rec.ContentSize, location)
	if note != "" {
		line += "  [" + note + "]"
	}
	fmt.Println(line)
}

func (c *CLI) runStats() error {
	st, err := c.store.Records().Stats()
	if err != nil {
		return err
	}
	apps, err := c.store.Records().SourceApps()
	if err != nil {
		return err
	}
	fmt.Printf("records:        %d\n", st.Count)
	fmt.Printf("content bytes:  %d\n", st.TotalContentSize)
	fmt.Printf("external blobs: %d\n", st.ExternalCount)
	fmt.Printf("source apps:    %s\n", strings.Join(apps, ", "))
	return nil
}

func (c *CLI) runCleanup() error {
	deleted, err := c.jobs.RunRetentionCleanup(retention.Policy{
		MaxAgeDays:   c.cfg.MaxAgeDays,
		AgeEnabled:   c.cfg.AgeCleanupEnabled,
		MaxItems:     c.cfg.MaxHistoryCount,
		CountEnabled: c.cfg.CountCleanupEnabled,
	})
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d records\n", deleted)
	return nil
}

func (c *CLI) runMigrate(cmd *MigrateCmd) error {
	var migrated int
	var err error
	if cmd.ToExternal {
		migrated, err = c.jobs.MigrateLargeToExternal(c.cfg.LargeFileThreshold)
	} else {
		migrated, err = c.jobs.MigrateExternalToDatabase()
	}
	if err != nil {
		return err
	}
	fmt.Printf("migrated %d records\n", migrated)
	return nil
}

func (c *CLI) runTag(cmd *TagCmd) error {
	switch {
	case cmd.List != nil:
		tags, err := c.store.Tags().List()
		if err != nil {
			return err
		}
		for _, tag := range tags {
			pin := ""
			if tag.IsPinned {
				pin = "  [pinned]"
			}
			fmt.Printf("%3d  %s  %s%s\n", tag.Position, tag.ID, tag.Name, pin)
		}
		return nil
	case cmd.Add != nil:
		tag, err := c.store.Tags().Create(cmd.Add.Name, cmd.Add.Color)
		if err != nil {
			return err
		}
		fmt.Printf("created tag %s (%s)\n", tag.Name, tag.ID)
		return nil
	case cmd.Rm != nil:
		tag, err := c.findTag(cmd.Rm.Name)
		if err != nil {
			return err
		}
		return c.store.Tags().Delete(tag.ID, cmd.Rm.Cascade)
	case cmd.Pin != nil:
		tag, err := c.findTag(cmd.Pin.Name)
		if err != nil {
			return err
		}
		return c.store.Tags().SetPinned(tag.ID, !cmd.Pin.Unpin)
	}
	return nil
}

func (c *CLI) findTag(name string) (*store.Tag, error) {
	tags, err := c.store.Tags().List()
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if strings.EqualFold(tag.Name, name) {
			return tag, nil
		}
	}
	return nil, fmt.Errorf("tag %q: %w", name, store.ErrNotFound)
}

func (c *CLI) runImportLegacy(cmd *ImportLegacyCmd) error {
	path := c.cfg.LegacyHistoryPath()
	if cmd.File != nil {
		path = *cmd.File
	}
	n, err := legacy.Import(path, c.store.Records(), c.log)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d records\n", n)
	return nil
}

// runWatch blocks on the config watcher and reacts to hybrid-storage
// changes with the corresponding bulk migration pass.
func (c *CLI) runWatch() error {
	watcher, err := config.NewWatcher(c.manager, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer watcher.Close()

	for change := range watcher.Changes() {
		if !change.New.StorageSettingsChanged(change.Old) {
			continue
		}
		c.cfg = change.New
		if change.New.EnableExternalStorage {
			_, err = c.jobs.MigrateLargeToExternal(change.New.LargeFileThreshold)
		} else {
			_, err = c.jobs.MigrateExternalToDatabase()
		}
		if err != nil {
			c.log.Error("bulk migration after config change failed", zap.Error(err))
		}
	}
	return nil
}
