// CLAUDE:SUMMARY Offline analysis subcommands: heatmap rasterization to JSON/CSV, region co-occurrence edges, and a QUIC MCP ping.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/hazyhaar/accent-atlas/pkg/analysis"
	"github.com/hazyhaar/accent-atlas/pkg/importer"
	"github.com/hazyhaar/accent-atlas/pkg/mcpquic"
	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/raster"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

func cmdHeatmap(args []string) (err error) {
	fs := flag.NewFlagSet("heatmap", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	dataset := fs.String("dataset", "", "stored mental-map dataset ID (instead of a GeoJSON file)")
	question := fs.String("question", "all", "question ID to rasterize")
	participant := fs.String("participant", "", "keep the maps of one participant code")
	cellSize := fs.Float64("cell-size", 0, "cell size in degrees (default raster.cell_size)")
	radius := fs.Int("radius", -1, "smoothing radius 0..3 (default raster.smooth_radius)")
	format := fs.String("format", "json", "output format: json or csv")
	out := fs.String("o", "-", "output file")
	fs.Parse(args)

	if *format != "json" && *format != "csv" {
		return fmt.Errorf("unknown format %q (want json or csv)", *format)
	}
	cfg, logger, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	ctx, stop := context.WithTimeout(context.Background(), 10*time.Minute)
	defer stop()

	var features []mentalmap.Feature
	switch {
	case *dataset != "":
		var db *importer.DatasetDB
		if db, err = openDatasets(cfg); err != nil {
			return err
		}
		defer closeDatasets(db, &err)
		if features, err = db.LoadFeatures(ctx, *dataset, *question); err != nil {
			return fmt.Errorf("load features: %w", err)
		}
	case fs.NArg() == 1:
		if features, err = readGeoJSON(fs.Arg(0)); err != nil {
			return err
		}
		features = mentalmap.ForQuestion(features, *question)
	default:
		fmt.Fprintln(os.Stderr, "Usage: atlas heatmap [flags] <file.geojson> | --dataset <id>")
		return errUsage
	}
	if *participant != "" {
		features = mentalmap.ForParticipant(features, *participant)
	}

	opts := rasterOptions(cfg)
	if *cellSize > 0 {
		opts.CellSize = *cellSize
	}
	if *radius >= 0 {
		opts.Radius = *radius
	}
	opts.Progress = func(stage raster.Stage, done, total int) {
		logger.Debug("rasterize", "stage", stage, "done", done, "total", total)
	}

	start := time.Now()
	res, err := raster.Rasterize(ctx, mentalmap.Polygons(features), opts)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	logger.Info("heatmap ready", "polygons", len(features), "width", res.Grid.Width,
		"height", res.Grid.Height, "max", res.Max, "duration", time.Since(start))

	return withOutput(*out, func(w io.Writer) error {
		if *format == "csv" {
			return writeCellsCSV(w, res.Grid)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"question": *question,
			"polygons": len(features),
			"max":      res.Max,
			"grid":     res.Grid,
			"cells":    res.Grid.Cells(),
		})
	})
}

func readGeoJSON(path string) ([]mentalmap.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := mentalmap.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return c.Features, nil
}

// writeCellsCSV writes the non-empty cells, semicolon separated like the
// co-occurrence export.
func writeCellsCSV(w io.Writer, g *raster.Grid) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.Write([]string{"lat_index", "lon_index", "lat", "lng", "value", "intensity", "color"})
	for _, c := range g.Cells() {
		cw.Write([]string{
			strconv.Itoa(c.LatIndex),
			strconv.Itoa(c.LonIndex),
			strconv.FormatFloat(c.Lat, 'f', -1, 64),
			strconv.FormatFloat(c.Lon, 'f', -1, 64),
			strconv.FormatFloat(c.Value, 'f', -1, 64),
			strconv.FormatFloat(c.Intensity, 'f', 4, 64),
			raster.HeatColor(c.Intensity),
		})
	}
	cw.Flush()
	return cw.Error()
}

func cmdCoOccurrence(args []string) (err error) {
	fs := flag.NewFlagSet("cooccurrence", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	dataset := fs.String("dataset", "", "stored survey dataset ID")
	region := fs.String("region", string(survey.RegionSud), "region: sud, canada, nord or paris")
	gender := fs.String("gender", "", "keep participants whose gender contains this text")
	out := fs.String("o", "-", "output CSV file")
	fs.Parse(args)

	if *dataset == "" {
		fmt.Fprintln(os.Stderr, "Usage: atlas cooccurrence --dataset <id> [--region sud] [--gender f] [-o edges.csv]")
		return errUsage
	}
	key := survey.RegionKey(*region)
	if !key.Known() {
		return fmt.Errorf("unknown region %q (want sud, canada, nord or paris)", *region)
	}
	cfg, logger, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := openDatasets(cfg)
	if err != nil {
		return err
	}
	defer closeDatasets(db, &err)

	recs, err := db.LoadParticipants(context.Background(), *dataset)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	recs = analysis.FilterByGender(recs, *gender)
	m := analysis.BuildCoOccurrence(analysis.AlsoTermLists(recs, key))
	logger.Info("co-occurrence", "region", key, "participants", len(recs), "labels", len(m.Labels))

	return withOutput(*out, func(w io.Writer) error {
		return analysis.WriteEdgesCSV(w, m)
	})
}

func cmdPing(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	addr := fs.String("addr", "localhost:8430", "server address (UDP)")
	insecure := fs.Bool("insecure", true, "accept self-signed certificates")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c := mcpquic.NewClient(*addr, mcpquic.ClientTLSConfig(*insecure))
	if err := c.Connect(ctx, "atlas-ping", version); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Close()

	tools, err := c.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	fmt.Printf("%s: %d tools\n", *addr, len(tools.Tools))
	for _, t := range tools.Tools {
		fmt.Printf("  %-22s  %s\n", t.Name, t.Description)
	}
	return nil
}

// withOutput runs write against path ("-" is stdout) and reports the first
// of the write and close errors.
func withOutput(path string, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
