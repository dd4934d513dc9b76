// CLAUDE:SUMMARY Application configuration: YAML file plus ATLAS_* environment overrides, defaults and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Raster RasterConfig `yaml:"raster"`
	Import ImportConfig `yaml:"import"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"ATLAS_ADDR"             env-default:":8430"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"ATLAS_READ_TIMEOUT"     env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"ATLAS_WRITE_TIMEOUT"    env-default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ATLAS_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"   env:"ATLAS_MAX_BODY_BYTES"   env-default:"67108864"`
	TLS             TLSConfig     `yaml:"tls"`
}

// TLSConfig switches the server to the dual TCP/QUIC transport. With Enabled
// and no cert files, a self-signed development certificate is generated.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"   env:"ATLAS_TLS"           env-default:"false"`
	CertFile string `yaml:"cert_file" env:"ATLAS_TLS_CERT_FILE"`
	KeyFile  string `yaml:"key_file"  env:"ATLAS_TLS_KEY_FILE"`
}

// DataConfig locates rule tables and the dataset database.
type DataConfig struct {
	RulesDir string `yaml:"rules_dir" env:"ATLAS_RULES_DIR" env-default:"rules"`
	DBPath   string `yaml:"db_path"   env:"ATLAS_DB_PATH"   env-default:"atlas.db"`
}

// RasterConfig holds heatmap defaults and limits.
type RasterConfig struct {
	CellSize     float64 `yaml:"cell_size"     env:"ATLAS_CELL_SIZE"     env-default:"0.5"`
	SmoothRadius int     `yaml:"smooth_radius" env:"ATLAS_SMOOTH_RADIUS" env-default:"0"`
	PolygonBatch int     `yaml:"polygon_batch" env:"ATLAS_POLYGON_BATCH" env-default:"64"`
	RowBatch     int     `yaml:"row_batch"     env:"ATLAS_ROW_BATCH"     env-default:"32"`
	MaxCells     int     `yaml:"max_cells"     env:"ATLAS_MAX_CELLS"     env-default:"4000000"`
}

// ImportConfig holds dataset import settings.
type ImportConfig struct {
	Encoding      string        `yaml:"encoding"       env:"ATLAS_IMPORT_ENCODING"       env-default:"utf-8"`
	CheckInterval time.Duration `yaml:"check_interval" env:"ATLAS_IMPORT_CHECK_INTERVAL" env-default:"0s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"ATLAS_LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// An empty path falls back to ATLAS_CONFIG, then "./atlas.yaml"; the
// fallback file is optional, an explicit one is not.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = os.Getenv("ATLAS_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = "./atlas.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges. Load calls it automatically.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be > 0 (got %d)", c.Server.MaxBodyBytes))
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls: cert_file and key_file go together"))
	}
	if c.Data.DBPath == "" {
		errs = append(errs, errors.New("data.db_path is empty"))
	}
	if c.Raster.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("raster.cell_size must be > 0 (got %v)", c.Raster.CellSize))
	}
	if c.Raster.SmoothRadius < 0 || c.Raster.SmoothRadius > 3 {
		errs = append(errs, fmt.Errorf("raster.smooth_radius must be in [0,3] (got %d)", c.Raster.SmoothRadius))
	}
	if c.Raster.PolygonBatch <= 0 || c.Raster.RowBatch <= 0 {
		errs = append(errs, errors.New("raster batch sizes must be > 0"))
	}
	if c.Raster.MaxCells < 0 {
		errs = append(errs, fmt.Errorf("raster.max_cells must be >= 0 (got %d)", c.Raster.MaxCells))
	}
	if c.Import.CheckInterval < 0 {
		errs = append(errs, fmt.Errorf("import.check_interval must be >= 0 (got %s)", c.Import.CheckInterval))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
}
