// CLAUDE:SUMMARY atlas entry point: serve (HTTP/HTTP3 + MCP over QUIC), mcp (stdio), import, heatmap, cooccurrence and ping subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/accent-atlas/pkg/api"
	"github.com/hazyhaar/accent-atlas/pkg/chassis"
	"github.com/hazyhaar/accent-atlas/pkg/config"
	"github.com/hazyhaar/accent-atlas/pkg/dict"
	"github.com/hazyhaar/accent-atlas/pkg/importer"
	"github.com/hazyhaar/accent-atlas/pkg/raster"
)

const version = "0.3.0"

// errUsage is returned by a subcommand that already printed its usage.
var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "heatmap":
		err = cmdHeatmap(os.Args[2:])
	case "cooccurrence":
		err = cmdCoOccurrence(os.Args[2:])
	case "ping":
		err = cmdPing(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "atlas %s: %v\n", os.Args[1], err)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: atlas <command> [flags]

Commands:
  serve          Start the HTTP API (plus HTTP/3 and MCP over QUIC with TLS)
  mcp            Serve the MCP tools on stdin/stdout
  import         Import a survey export or mental-map GeoJSON into the dataset store
  heatmap        Rasterize a GeoJSON file or stored dataset
  cooccurrence   Export the label co-occurrence edges of a region
  ping           List the MCP tools of a running server over QUIC
`)
}

// loadConfig loads the configuration and the logger it describes.
func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func rasterOptions(cfg *config.Config) raster.Options {
	return raster.Options{
		CellSize:     cfg.Raster.CellSize,
		Radius:       cfg.Raster.SmoothRadius,
		PolygonBatch: cfg.Raster.PolygonBatch,
		RowBatch:     cfg.Raster.RowBatch,
		MaxCells:     cfg.Raster.MaxCells,
	}
}

func loadRules(cfg *config.Config, logger *slog.Logger) (*dict.Registry, error) {
	reg := dict.NewRegistry(cfg.Data.RulesDir)
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("load rule tables: %w", err)
	}
	logger.Info("rule tables loaded", "count", reg.Count(), "dir", cfg.Data.RulesDir)
	return reg, nil
}

func openDatasets(cfg *config.Config) (*importer.DatasetDB, error) {
	db, err := importer.OpenDatasetDB(cfg.Data.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open dataset store %s: %w", cfg.Data.DBPath, err)
	}
	return db, nil
}

// closeDatasets closes db, keeping the first error of the subcommand.
func closeDatasets(db *importer.DatasetDB, err *error) {
	if cerr := db.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("close dataset store: %w", cerr)
	}
}

func newMCPServer(svc *api.Service) *server.MCPServer {
	srv := server.NewMCPServer("accent-atlas", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, svc)
	return srv
}

func cmdServe(args []string) (err error) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file (default $ATLAS_CONFIG or ./atlas.yaml)")
	fs.Parse(args)

	cfg, logger, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	reg, err := loadRules(cfg, logger)
	if err != nil {
		return err
	}
	db, err := openDatasets(cfg)
	if err != nil {
		return err
	}
	defer closeDatasets(db, &err)

	svc := api.NewService(reg, db, api.Options{
		Raster:       rasterOptions(cfg),
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Timeout:      cfg.Server.WriteTimeout,
	})

	srv, err := chassis.New(chassis.Config{
		Addr:         cfg.Server.Addr,
		TLS:          cfg.Server.TLS.Enabled,
		CertFile:     cfg.Server.TLS.CertFile,
		KeyFile:      cfg.Server.TLS.KeyFile,
		Handler:      api.NewRouter(svc),
		MCPServer:    newMCPServer(svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("server setup: %w", err)
	}

	// SIGHUP: reload rule tables.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading rule tables")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
			} else {
				logger.Info("rule tables reloaded", "count", reg.Count())
			}
		}
	}()

	if cfg.Import.CheckInterval > 0 {
		go importer.NewChecker(db, logger, cfg.Import.CheckInterval).Start(ctx)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	return nil
}

func cmdMCP(args []string) (err error) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	noDB := fs.Bool("no-db", false, "run without the dataset store")
	fs.Parse(args)

	cfg, logger, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	reg, err := loadRules(cfg, logger)
	if err != nil {
		return err
	}
	var db *importer.DatasetDB
	if !*noDB {
		if db, err = openDatasets(cfg); err != nil {
			return err
		}
		defer closeDatasets(db, &err)
	}

	svc := api.NewService(reg, db, api.Options{
		Raster:  rasterOptions(cfg),
		Logger:  logger,
		Timeout: cfg.Server.WriteTimeout,
	})
	if err := server.ServeStdio(newMCPServer(svc)); err != nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}
