package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	_ "github.com/joho/godotenv/autoload"

	"github.com/yiblet/clipvault/internal/cli"
)

func main() {
	var args cli.Args
	parser := arg.MustParse(&args)

	// No subcommand: show the most recent records.
	if args.Add == nil && args.List == nil && args.Search == nil && args.Stats == nil &&
		args.Cleanup == nil && args.Migrate == nil && args.Tag == nil &&
		args.ImportLegacy == nil && args.Watch == nil {
		args.List = &cli.ListCmd{Limit: 20}
	}

	handler, err := cli.NewWithArgs(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer handler.Close()

	if err := handler.Execute(&args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr)
		parser.WriteUsage(os.Stderr)
		os.Exit(1)
	}
}
