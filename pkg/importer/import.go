package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImportOptions select how a file is imported.
type ImportOptions struct {
	Format string // adapter ID; empty picks one from the file extension
	Name   string // dataset name; empty uses the file name
	Decode DecodeOptions
}

// Import fetches location (path, URL or ZIP archive), decodes it with the
// chosen adapter and stores the result in db.
func Import(ctx context.Context, db *DatasetDB, location string, opts ImportOptions) (DatasetInfo, error) {
	workDir, err := os.MkdirTemp("", "atlas-import-*")
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	path, err := Fetch(ctx, location, workDir)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("fetch %s: %w", location, err)
	}

	var a Adapter
	if opts.Format != "" {
		a, err = Get(opts.Format)
	} else {
		a, err = ForPath(path)
	}
	if err != nil {
		return DatasetInfo{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return DatasetInfo{}, err
	}
	defer f.Close()

	ds, err := a.Decode(ctx, f, opts.Decode)
	if err != nil {
		return DatasetInfo{}, fmt.Errorf("%s: %w", a.ID(), err)
	}

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	source := location
	if !IsURL(location) {
		if abs, err := filepath.Abs(location); err == nil {
			source = abs
		}
	}
	return db.Save(ctx, name, a.ID(), source, ds)
}
