// Package config loads and persists ceridwen.toml: the list of ingester
// targets, server and crawler tuning knobs, and the last time the whole
// configuration was saved.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	pkgconfig "github.com/emilyselwood/ceridwen/internal/pkg/config"
)

// Environment variables that override the persisted configuration at load
// time, following the same getEnvOrDefault/getEnvDuration shape as the env
// helpers they call.
const (
	envLogLevel        = "CERIDWEN_LOG_LEVEL"
	envServerWorkers   = "CERIDWEN_SERVER_WORKERS"
	envCrawlerWorkers  = "CERIDWEN_CRAWLER_WORKERS"
	envRequestTimeout  = "CERIDWEN_HTTP_TIMEOUT"
	configMetricsOwner = "ceridwen"
)

// configMetrics tracks configuration loads and env-override fallbacks. It
// is a package-level singleton since promauto panics on duplicate
// registration and Load may be called more than once per process.
var configMetrics = pkgconfig.NewConfigMetrics(configMetricsOwner)

// Ingester is one configured crawl target.
type Ingester struct {
	Name           string            `toml:"name"`
	IngesterType   string            `toml:"ingester_type"`
	UpdateInterval time.Duration     `toml:"update_interval"`
	BaseURL        string            `toml:"base_url,omitempty"`
	LastUpdate     time.Time         `toml:"last_update"`
	Options        map[string]string `toml:"options,omitempty"`
}

// ServerConfig tunes the HTTP search surface.
type ServerConfig struct {
	LogLevel       string        `toml:"log_level,omitempty"`
	Port           int           `toml:"port"`
	Workers        int           `toml:"workers"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

// CrawlerConfig tunes ingestion.
type CrawlerConfig struct {
	LogLevel          string        `toml:"log_level,omitempty"`
	Workers           int           `toml:"workers"`
	MinUpdateInterval time.Duration `toml:"min_update_interval"`
}

// Config is the full persisted application configuration.
type Config struct {
	Targets    []Ingester    `toml:"targets"`
	Server     ServerConfig  `toml:"server"`
	Crawler    CrawlerConfig `toml:"crawler"`
	LastUpdate time.Time     `toml:"last_update"`

	// path is where this Config was loaded from, used by Save. Not
	// persisted itself.
	path string `toml:"-"`
}

// DefaultPath is the conventional configuration file name. Load does not
// consult it; callers pass Load the full path.
const DefaultPath = "ceridwen.toml"

// defaultConfig seeds a fresh install with a single target, the Wikipedia
// ingester.
func defaultConfig() Config {
	return Config{
		Targets: []Ingester{
			{
				Name:           "wikipedia",
				IngesterType:   "wikipedia",
				UpdateInterval: 30 * 24 * time.Hour,
				Options:        map[string]string{},
			},
		},
		Server: ServerConfig{
			Port:           8080,
			Workers:        4,
			RequestTimeout: 30 * time.Second,
		},
		Crawler: CrawlerConfig{
			Workers:           4,
			MinUpdateInterval: 24 * time.Hour,
		},
	}
}

// Load reads the TOML configuration at path, creating and saving a default
// configuration if no file exists yet. Env-var overrides are applied on
// top of the persisted values before validation, the same getEnvOrDefault
// shape the original used for ambient knobs that don't belong in the TOML
// file's own defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := defaultConfig()
		cfg.path = path
		applyEnvOverrides(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("config: write default config to %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.path = path
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// applyEnvOverrides layers CERIDWEN_* environment variables on top of the
// values loaded from TOML. Each override falls back to the existing value
// on a missing, unparseable, or out-of-range setting; configMetrics records
// when that happens in the default Prometheus registry instead of silently
// reverting.
func applyEnvOverrides(cfg *Config) {
	logLevel := pkgconfig.LoadEnvString(envLogLevel, cfg.Server.LogLevel)
	cfg.Server.LogLevel = logLevel
	cfg.Crawler.LogLevel = logLevel

	workers := func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 256) }

	serverWorkers := pkgconfig.LoadEnvInt(envServerWorkers, cfg.Server.Workers, workers)
	recordOverride("server.workers", serverWorkers)
	cfg.Server.Workers = serverWorkers.Value.(int)

	crawlerWorkers := pkgconfig.LoadEnvInt(envCrawlerWorkers, cfg.Crawler.Workers, workers)
	recordOverride("crawler.workers", crawlerWorkers)
	cfg.Crawler.Workers = crawlerWorkers.Value.(int)

	timeout := pkgconfig.LoadEnvDuration(envRequestTimeout, cfg.Server.RequestTimeout, pkgconfig.ValidatePositiveDuration)
	recordOverride("server.request_timeout", timeout)
	cfg.Server.RequestTimeout = timeout.Value.(time.Duration)

	configMetrics.RecordLoadTimestamp()
}

// recordOverride logs and records a fallback for an env override that did
// not take effect, and leaves the metric untouched otherwise.
func recordOverride(field string, result pkgconfig.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	for _, warning := range result.Warnings {
		slog.Warn("config env override fell back to existing value", slog.String("field", field), slog.String("detail", warning))
	}
	configMetrics.RecordFallback(field, "default")
	configMetrics.SetFallbackActive(field, true)
}

// Validate rejects configuration values that would make the crawler or
// server misbehave rather than fail fast.
func (c *Config) Validate() error {
	if err := pkgconfig.ValidatePositiveDuration(c.Crawler.MinUpdateInterval); err != nil {
		return fmt.Errorf("crawler.min_update_interval: %w", err)
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be positive, got %d", c.Crawler.Workers)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	for _, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("target with empty name")
		}
		if err := pkgconfig.ValidatePositiveDuration(target.UpdateInterval); err != nil {
			return fmt.Errorf("target %s update_interval: %w", target.Name, err)
		}
	}
	return nil
}

// Save writes the configuration back to its source path, via a temp file
// plus rename so a crash mid-write can never leave a truncated config on
// disk.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config: save called on a config with no path")
	}
	encoded, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".ceridwen-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// FindTarget returns a pointer to the Ingester named name, for mutation in
// place (recording LastUpdate after a run) followed by Save.
func (c *Config) FindTarget(name string) *Ingester {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i]
		}
	}
	return nil
}
