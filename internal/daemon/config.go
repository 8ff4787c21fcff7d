// Package daemon holds process-level configuration for taskmint.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the taskmint configuration, loaded from
// ~/.taskmint/config.toml when present.
type Config struct {
	API     APIConfig     `toml:"api"`
	Data    DataConfig    `toml:"data"`
	Economy EconomyConfig `toml:"economy"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// DataConfig controls storage placement.
type DataConfig struct {
	Dir string `toml:"dir"` // database directory; default ~/.taskmint
}

// EconomyConfig carries the reward tunables.
type EconomyConfig struct {
	BasePoints        int64   `toml:"base_points"`
	ConsolationPoints int64   `toml:"consolation_points"`
	WinProbability    float64 `toml:"win_probability"`
	Top3Slots         int     `toml:"top3_slots"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Pretty bool   `toml:"pretty"` // console writer instead of JSON
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    7433,
			Metrics: true,
		},
		Data: DataConfig{
			Dir: defaultDataDir(),
		},
		Economy: EconomyConfig{
			BasePoints:        2,
			ConsolationPoints: 100,
			WinProbability:    0.5,
			Top3Slots:         3,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads the config file at path, falling back to defaults for any
// missing key. A missing file is not an error — defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the host:port the API server binds.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// DefaultConfigPath returns ~/.taskmint/config.toml.
func DefaultConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskmint"
	}
	return filepath.Join(home, ".taskmint")
}
