package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atlas.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ATLAS_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8430" {
		t.Errorf("Addr = %q, want :8430", cfg.Server.Addr)
	}
	if cfg.Data.RulesDir != "rules" || cfg.Data.DBPath != "atlas.db" {
		t.Errorf("Data = %+v", cfg.Data)
	}
	want := RasterConfig{CellSize: 0.5, SmoothRadius: 0, PolygonBatch: 64, RowBatch: 32, MaxCells: 4_000_000}
	if cfg.Raster != want {
		t.Errorf("Raster = %+v, want %+v", cfg.Raster, want)
	}
	if cfg.Log.Level != "info" || cfg.Import.CheckInterval != 0 {
		t.Errorf("Log = %+v, Import = %+v", cfg.Log, cfg.Import)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  addr: "127.0.0.1:9000"
raster:
  cell_size: 0.25
  smooth_radius: 2
import:
  check_interval: "1h"
log:
  level: "debug"
`)
	t.Setenv("ATLAS_DB_PATH", "/var/lib/atlas/atlas.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Raster.CellSize != 0.25 || cfg.Raster.SmoothRadius != 2 || cfg.Raster.RowBatch != 32 {
		t.Errorf("Raster = %+v", cfg.Raster)
	}
	if cfg.Data.DBPath != "/var/lib/atlas/atlas.db" {
		t.Errorf("DBPath = %q, env should override", cfg.Data.DBPath)
	}
	if cfg.Import.CheckInterval != time.Hour {
		t.Errorf("CheckInterval = %v", cfg.Import.CheckInterval)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative cell size", "raster:\n  cell_size: -0.5\n"},
		{"radius too large", "raster:\n  smooth_radius: 4\n"},
		{"negative max cells", "raster:\n  max_cells: -1\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"cert without key", "server:\n  tls:\n    enabled: true\n    cert_file: a.pem\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeYAML(t, tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "": slog.LevelInfo,
		"warn": slog.LevelWarn, "error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
