package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Home          string `toml:"home"`
	StoreRoot     string `toml:"store"`
	DocKey        string `toml:"doc"`
	SampleRates   []int  `toml:"sample_rates"`
	BlockSize     int    `toml:"block_size"`
	RingBlocks    int    `toml:"ring_blocks"`
	PollInterval  string `toml:"poll_interval"`
	SnapshotEvery int    `toml:"snapshot_every"`
	LogLevel      string `toml:"log_level"`
	LogJSON       *bool  `toml:"log_json"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.wasmix/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".wasmix", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("home", fc.Home, &cfg.Home)
	s.setString("store", fc.StoreRoot, &cfg.StoreRoot)
	s.setString("doc", fc.DocKey, &cfg.DocKey)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInts("rates", fc.SampleRates, &cfg.SampleRates)
	s.setInt("block-size", fc.BlockSize, &cfg.BlockSize)
	s.setInt("ring-blocks", fc.RingBlocks, &cfg.RingBlocks)
	s.setInt("snapshot-every", fc.SnapshotEvery, &cfg.SnapshotEvery)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
