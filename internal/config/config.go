package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all daemon configuration loaded from config.yaml.
type Config struct {
	ScanPath   string `yaml:"scan_path"   json:"scan_path"`
	Top        int    `yaml:"top"         json:"top"`
	Workers    int    `yaml:"workers"     json:"workers"` // 0 = number of CPUs
	Schedule   string `yaml:"schedule"    json:"schedule"`
	ScanPaused bool   `yaml:"scan_paused" json:"scan_paused"`
	DBPath     string `yaml:"db_path"     json:"-"`
	HTTPAddr   string `yaml:"http_addr"   json:"-"`
	LogLevel   string `yaml:"log_level"   json:"-"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.ScanPath == "" {
		c.ScanPath = "."
	}
	if c.Top == 0 {
		c.Top = 10
	}
	if c.Schedule == "" {
		c.Schedule = "0 2 * * *"
	}
	if c.DBPath == "" {
		c.DBPath = "bfinder.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the daemon
// can start without one.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
