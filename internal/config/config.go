// Package config loads the tilearchive configuration through viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/tilearchive/internal/archive"
	"github.com/MeKo-Tech/tilearchive/internal/fetch"
	"github.com/MeKo-Tech/tilearchive/internal/logging"
	"github.com/MeKo-Tech/tilearchive/internal/mbtiles"
)

// EnvPrefix prefixes environment overrides, e.g. TILEARCHIVE_DOWNLOAD_WORKERS.
const EnvPrefix = "TILEARCHIVE"

// Config holds all application configuration.
type Config struct {
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Download DownloadConfig `mapstructure:"download"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ArchiveConfig describes the archive to build.
type ArchiveConfig struct {
	Path        string `mapstructure:"path"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Attribution string `mapstructure:"attribution"`
	Author      string `mapstructure:"author"`
	Type        string `mapstructure:"type"`   // baselayer, overlay
	Format      string `mapstructure:"format"` // png, jpg
	Version     string `mapstructure:"version"`
	Bounds      string `mapstructure:"bounds"` // minLng,minLat,maxLng,maxLat
	Center      string `mapstructure:"center"` // lng,lat[,zoom]
	MinZoom     int    `mapstructure:"min_zoom"`
	MaxZoom     int    `mapstructure:"max_zoom"`
	URL         string `mapstructure:"url"` // tile URL scheme
	BatchSize   int    `mapstructure:"batch_size"`
}

// DownloadConfig tunes tile downloads.
type DownloadConfig struct {
	Workers     int           `mapstructure:"workers"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Progress    bool          `mapstructure:"progress"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"` // console output when false
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	File      string `mapstructure:"file"` // node exporter textfile, empty to disable
}

// SetDefaults registers the default configuration values on v.
func SetDefaults(v *viper.Viper) {
	ad := archive.DefaultConfig()
	fd := fetch.DefaultConfig()

	// Archive defaults
	v.SetDefault("archive.path", "tiles.mbtiles")
	v.SetDefault("archive.name", "")
	v.SetDefault("archive.description", "")
	v.SetDefault("archive.attribution", "")
	v.SetDefault("archive.author", "")
	v.SetDefault("archive.bounds", "")
	v.SetDefault("archive.center", "")
	v.SetDefault("archive.url", "")
	v.SetDefault("archive.type", mbtiles.DefaultType)
	v.SetDefault("archive.format", mbtiles.DefaultFormat)
	v.SetDefault("archive.version", mbtiles.DefaultVersion)
	v.SetDefault("archive.min_zoom", 0)
	v.SetDefault("archive.max_zoom", 0)
	v.SetDefault("archive.batch_size", ad.BatchSize)

	// Download defaults
	v.SetDefault("download.workers", ad.Workers)
	v.SetDefault("download.timeout", fd.Timeout)
	v.SetDefault("download.retries", fd.Retries)
	v.SetDefault("download.backoff", fd.Backoff)
	v.SetDefault("download.user_agent", fd.UserAgent)
	v.SetDefault("download.max_attempts", ad.MaxAttempts)
	v.SetDefault("download.progress", true)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	// Metrics defaults
	v.SetDefault("metrics.namespace", "tilearchive")
	v.SetDefault("metrics.file", "")
}

// Setup registers defaults and environment overrides on v.
func Setup(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values that cannot be checked later by the archive
// metadata and grid validation.
func (c *Config) Validate() error {
	if c.Download.Workers < 1 {
		return fmt.Errorf("invalid download workers: %d", c.Download.Workers)
	}
	if c.Download.Timeout <= 0 {
		return fmt.Errorf("invalid download timeout: %s", c.Download.Timeout)
	}
	if c.Download.Retries < 0 {
		return fmt.Errorf("invalid download retries: %d", c.Download.Retries)
	}
	if c.Download.MaxAttempts < 1 {
		return fmt.Errorf("invalid download max attempts: %d", c.Download.MaxAttempts)
	}
	if c.Archive.BatchSize < 1 {
		return fmt.Errorf("invalid archive batch size: %d", c.Archive.BatchSize)
	}
	if c.Archive.Path == "" {
		return errors.New("archive path is required")
	}
	return nil
}

// Metadata builds the archive metadata. Bounds and center strings are parsed
// here; everything else is validated by the archive writer.
func (c *Config) Metadata() (mbtiles.Metadata, error) {
	a := c.Archive
	meta := mbtiles.Metadata{
		Name:        a.Name,
		Description: a.Description,
		Attribution: a.Attribution,
		Author:      a.Author,
		Type:        a.Type,
		Format:      a.Format,
		Version:     a.Version,
		Scheme:      a.URL,
		MinZoom:     a.MinZoom,
		MaxZoom:     a.MaxZoom,
	}

	if a.Bounds != "" {
		b, err := mbtiles.ParseBounds(a.Bounds)
		if err != nil {
			return meta, fmt.Errorf("%w: %w", mbtiles.ErrInvalidMetadata, err)
		}
		meta.Bounds = &b
	}
	if a.Center != "" {
		center, err := mbtiles.ParseCenter(a.Center)
		if err != nil {
			return meta, fmt.Errorf("%w: %w", mbtiles.ErrInvalidMetadata, err)
		}
		meta.Center = &center
	}
	return meta, nil
}

// ArchiveWriter returns the download loop settings.
func (c *Config) ArchiveWriter() archive.Config {
	cfg := archive.DefaultConfig()
	cfg.BatchSize = c.Archive.BatchSize
	cfg.Workers = c.Download.Workers
	cfg.MaxAttempts = c.Download.MaxAttempts
	return cfg
}

// Fetcher returns the HTTP fetcher settings.
func (c *Config) Fetcher(logger *slog.Logger) fetch.Config {
	cfg := fetch.DefaultConfig()
	cfg.Timeout = c.Download.Timeout
	cfg.Retries = c.Download.Retries
	cfg.Backoff = c.Download.Backoff
	if c.Download.UserAgent != "" {
		cfg.UserAgent = c.Download.UserAgent
	}
	if c.Download.Workers > cfg.MaxConnsPerHost {
		cfg.MaxConnsPerHost = c.Download.Workers
	}
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Console: !c.Log.JSON}
}
