// Package config loads the engine configuration from YAML or JSON files and
// fills in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loglens/loglens/pkg/domain"
)

// Config is the full engine configuration.
type Config struct {
	Ingest    IngestConfig           `yaml:"ingest" json:"ingest"`
	Alerts    AlertsConfig           `yaml:"alerts" json:"alerts"`
	Retention domain.RetentionPolicy `yaml:"retention" json:"retention"`
	Server    ServerConfig           `yaml:"server" json:"server"`
}

// IngestConfig controls discovery, tailing, and the store bound.
type IngestConfig struct {
	Directory          string        `yaml:"directory" json:"directory"`
	PollInterval       time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxEntries         int           `yaml:"max_entries" json:"max_entries"`
	RetentionDays      int           `yaml:"retention_days" json:"retention_days"`
	HistoricalDays     int           `yaml:"historical_days" json:"historical_days"`
	ClearOnStartup     bool          `yaml:"clear_on_startup" json:"clear_on_startup"`
	DeleteOldOnStartup bool          `yaml:"delete_old_on_startup" json:"delete_old_on_startup"`
	SignatureCache     string        `yaml:"signature_cache" json:"signature_cache"`
	Patterns           []string      `yaml:"patterns" json:"patterns"`
}

// AlertsConfig controls the alert engine.
type AlertsConfig struct {
	AlertFile    string `yaml:"alert_file" json:"alert_file"`
	SeedDefaults bool   `yaml:"seed_defaults" json:"seed_defaults"`
}

// ServerConfig controls the HTTP query API.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// Load reads a config file, picking the format by extension (YAML first for
// unknown extensions), and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			err = json.Unmarshal(data, cfg)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.Ingest.PollInterval <= 0 {
		c.Ingest.PollInterval = time.Second
	}
	if c.Ingest.MaxEntries <= 0 {
		c.Ingest.MaxEntries = 10000
	}
	if c.Ingest.RetentionDays <= 0 {
		c.Ingest.RetentionDays = 30
	}
	if c.Ingest.SignatureCache == "" && c.Ingest.Directory != "" {
		c.Ingest.SignatureCache = filepath.Join(c.Ingest.Directory, ".loglens-signatures.json")
	}
	if c.Retention == (domain.RetentionPolicy{}) {
		c.Retention = domain.DefaultRetentionPolicy()
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8440"
	}
}
