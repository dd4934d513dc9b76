// CLAUDE:SUMMARY CLI subcommands that import files into the dataset store and list what is stored.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hazyhaar/accent-atlas/pkg/importer"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

func cmdImport(args []string) (err error) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	format := fs.String("format", "", "import format (default: from the file extension)")
	name := fs.String("name", "", "dataset name (default: file name)")
	encoding := fs.String("encoding", "", "CSV character set (default: import.encoding)")
	list := fs.Bool("list", false, "list stored datasets")
	fs.Parse(args)

	cfg, logger, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := openDatasets(cfg)
	if err != nil {
		return err
	}
	defer closeDatasets(db, &err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if *list {
		return printDatasets(ctx, db)
	}
	if fs.NArg() == 0 {
		fmt.Println("Formats:")
		fmt.Println()
		for _, a := range importer.All() {
			fmt.Printf("  %-20s  %-11s  %v  %s\n", a.ID(), a.Kind(), a.Extensions(), a.Description())
		}
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  atlas import [--format <id>] [--name <name>] [--encoding <charset>] <path|url|zip>...")
		fmt.Println("  atlas import --list")
		return nil
	}

	enc := *encoding
	if enc == "" {
		enc = cfg.Import.Encoding
	}
	reg, err := loadRules(cfg, logger)
	if err != nil {
		return err
	}
	opts := importer.ImportOptions{
		Format: *format,
		Name:   *name,
		Decode: importer.DecodeOptions{
			Builder: survey.NewBuilder(survey.WithRegistry(reg)),
			CSV:     importer.CSVOptions{Encoding: enc},
		},
	}

	failed := 0
	for _, location := range fs.Args() {
		info, err := importer.Import(ctx, db, location, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", location, err)
			failed++
			continue
		}
		fmt.Printf("[%s] OK -> %s (%s, %s %s)\n", location, info.ID, info.Format,
			humanize.Comma(int64(info.RecordCount)), unit(info.Kind))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, fs.NArg())
	}
	return nil
}

func printDatasets(ctx context.Context, db *importer.DatasetDB) error {
	list, err := db.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("list datasets: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No datasets.")
		return nil
	}
	for _, d := range list {
		status := ""
		if d.LastStatus != nil {
			status = fmt.Sprintf("  [%d]", *d.LastStatus)
		}
		fmt.Printf("  %s  %-20s  %-17s  %8s %-12s  imported %s%s\n",
			d.ID, d.Name, d.Format, humanize.Comma(int64(d.RecordCount)), unit(d.Kind),
			humanize.Time(time.Unix(d.ImportedAt, 0)), status)
	}
	return nil
}

func unit(kind string) string {
	if kind == importer.KindMentalMaps {
		return "polygons"
	}
	return "participants"
}
