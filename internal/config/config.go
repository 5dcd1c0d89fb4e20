// Package config loads node configuration from an optional TOML file and
// fills the gaps with defaults derived at startup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds node configuration knobs. Zero values are filled by
// applyDefaults; flags may override individual fields after loading.
type Config struct {
	Username    string `toml:"username"`
	DisplayName string `toml:"display_name"`
	Status      string `toml:"status"`
	Port        int    `toml:"port"`
	DataDir     string `toml:"data_dir"`
	AvatarPath  string `toml:"avatar_path"`
	LogLevel    string `toml:"log_level"`
}

// applyDefaults fills zero values with sensible defaults. An unconfigured
// username becomes User<n> with n derived from the clock, matching what
// peers expect from an anonymous node.
func (c *Config) applyDefaults() {
	if c.Username == "" {
		c.Username = fmt.Sprintf("User%d", time.Now().Unix()%1000)
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Username
	}
	if c.Status == "" {
		c.Status = "Available"
	}
	if c.Port == 0 {
		c.Port = 50999
	}
	if c.DataDir == "" {
		c.DataDir = "lsnp-data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads path (when non-empty) and returns the merged configuration.
// A missing file is an error; an empty path just yields defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyDefaults()
	if c.Port < 1 || c.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", c.Port)
	}
	return &c, nil
}
