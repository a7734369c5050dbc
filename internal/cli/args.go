package cli

import "fmt"

// Args represents the top-level command structure
type Args struct {
	Add          *AddCmd          `arg:"subcommand:add" help:"Insert a record from stdin or a file"`
	List         *ListCmd         `arg:"subcommand:list" help:"List records, newest first"`
	Search       *SearchCmd       `arg:"subcommand:search" help:"Keyword search over record content"`
	Stats        *StatsCmd        `arg:"subcommand:stats" help:"Show store statistics"`
	Cleanup      *CleanupCmd      `arg:"subcommand:cleanup" help:"Run the retention policies"`
	Migrate      *MigrateCmd      `arg:"subcommand:migrate" help:"Bulk-migrate payloads between inline and external storage"`
	Tag          *TagCmd          `arg:"subcommand:tag" help:"Manage tags"`
	ImportLegacy *ImportLegacyCmd `arg:"subcommand:import-legacy" help:"Import a legacy flat history file"`
	Watch        *WatchCmd        `arg:"subcommand:watch" help:"Watch the config file and apply storage changes"`

	ConfigPath *string `arg:"--config" help:"Path to config.yaml (default: ~/.config/clipvault/config.yaml)"`
}

// AddCmd inserts a new record through the normal insert path.
type AddCmd struct {
	File      *string `arg:"positional" help:"File to read from (default: stdin)"`
	Type      string  `arg:"-t,--type" default:"text" help:"Content type: text, rich_text, image, file_reference"`
	SourceApp string  `arg:"--source-app" help:"Capture provenance"`
	Favorite  bool    `arg:"--favorite" help:"Exempt from retention"`
	Pin       bool    `arg:"--pin" help:"Pin the record"`
}

// ListCmd pages through records.
type ListCmd struct {
	Limit  int      `arg:"-n,--limit" default:"20" help:"Maximum records to print"`
	Offset int      `arg:"--offset" help:"Records to skip"`
	Tags   []string `arg:"--tag,separate" help:"Only records carrying one of these tags"`
	Pinned bool     `arg:"--pinned" help:"Show the pinned section instead"`
}

// SearchCmd runs a keyword-filtered scan.
type SearchCmd struct {
	Keyword string `arg:"positional,required" help:"Keyword (prefix match; special characters fall back to substring)"`
	Limit   int    `arg:"-n,--limit" default:"20" help:"Maximum records to print"`
}

// StatsCmd prints aggregate counters.
type StatsCmd struct{}

// CleanupCmd applies the configured retention policies.
type CleanupCmd struct{}

// MigrateCmd runs a bulk storage migration pass.
type MigrateCmd struct {
	ToExternal bool `arg:"--to-external" help:"Move large inline payloads to the blob directory"`
	ToInline   bool `arg:"--to-inline" help:"Move external payloads back into the database"`
}

// TagCmd groups the tag operations.
type TagCmd struct {
	List *TagListCmd `arg:"subcommand:list" help:"List tags"`
	Add  *TagAddCmd  `arg:"subcommand:add" help:"Create a tag"`
	Rm   *TagRmCmd   `arg:"subcommand:rm" help:"Delete a tag"`
	Pin  *TagPinCmd  `arg:"subcommand:pin" help:"Pin or unpin a tag"`
}

type TagListCmd struct{}

type TagAddCmd struct {
	Name  string `arg:"positional,required" help:"Tag name"`
	Color string `arg:"--color" help:"Display color"`
}

type TagRmCmd struct {
	Name    string `arg:"positional,required" help:"Tag name"`
	Cascade bool   `arg:"--cascade" help:"Also delete every associated record"`
}

type TagPinCmd struct {
	Name  string `arg:"positional,required" help:"Tag name"`
	Unpin bool   `arg:"--unpin" help:"Unpin instead"`
}

// ImportLegacyCmd imports the pre-relational flat history list.
type ImportLegacyCmd struct {
	File *string `arg:"positional" help:"Legacy file (default: <data-dir>/history.yaml)"`
}

// WatchCmd blocks, reloading the config on change and running the bulk
// migration pass whenever the hybrid-storage settings flip.
type WatchCmd struct{}

// Description returns the program description
func (Args) Description() string {
	return "clipvault - persistent clipboard history with search, tags, and retention"
}

// Version returns the program version
func (Args) Version() string {
	return "clipvault 0.1.0"
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	if args.Migrate != nil {
		if args.Migrate.ToExternal == args.Migrate.ToInline {
			return fmt.Errorf("migrate: specify exactly one of --to-external or --to-inline")
		}
	}
	if args.Tag != nil {
		if args.Tag.List == nil && args.Tag.Add == nil && args.Tag.Rm == nil && args.Tag.Pin == nil {
			return fmt.Errorf("tag: missing subcommand (list, add, rm, pin)")
		}
	}
	return nil
}
