package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// Config struct to hold configuration from toml file
type Config struct {
	Topology TopologyConfig `toml:"topology"`
	Routing  RoutingConfig  `toml:"routing"`
	Log      LogConfig      `toml:"log"`
}

type TopologyConfig struct {
	ChannelsPerFPGA int `toml:"channels_per_fpga"`
}

type RoutingConfig struct {
	Precompute bool `toml:"precompute"`
	Workers    int  `toml:"workers"` // 0 means one per logical CPU
}

type LogConfig struct {
	Level      string `toml:"level"`
	Dir        string `toml:"dir"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

const (
	DefaultPath            = "smiroute.toml"
	DefaultChannelsPerFPGA = 4
)

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Compress = true
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration at path. A missing file yields Default();
// a file that exists but cannot be decoded or validated is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debugf("Load: config file %s not found, using defaults", path)
		return Default(), nil
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Topology.ChannelsPerFPGA == 0 {
		c.Topology.ChannelsPerFPGA = DefaultChannelsPerFPGA
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "./logs"
	}
	if c.Log.File == "" {
		c.Log.File = "smiroute.log"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 7
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
}

// Validate rejects values that cannot describe a fabric
func (c *Config) Validate() error {
	if c.Topology.ChannelsPerFPGA < 1 {
		return fmt.Errorf("topology.channels_per_fpga must be at least 1, got %d", c.Topology.ChannelsPerFPGA)
	}
	if c.Routing.Workers < 0 {
		return fmt.Errorf("routing.workers must not be negative, got %d", c.Routing.Workers)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
