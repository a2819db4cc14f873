package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yukihamada/wasmix-sub003/internal/capture"
	"github.com/yukihamada/wasmix-sub003/internal/domain"
)

// DefaultDocKey is the journal document the CLI records session history to.
const DefaultDocKey = "session"

// Config holds CLI configuration for wasmix.
type Config struct {
	Home      string
	StoreRoot string
	DocKey    string

	SampleRates []int
	BlockSize   int
	RingBlocks  int

	PollInterval  time.Duration
	SnapshotEvery int

	LogLevel string
	LogJSON  bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	cc := capture.DefaultConfig()
	return Config{
		Home:         defaultHome(),
		DocKey:       DefaultDocKey,
		SampleRates:  cc.SampleRates,
		BlockSize:    cc.BlockSize,
		RingBlocks:   cc.RingBlocks,
		PollInterval: cc.PollInterval,
		LogLevel:     "info",
	}
}

func defaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".wasmix")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StoreRoot == "" {
		if c.Home == "" {
			return fmt.Errorf("store root is required (or home)")
		}
		// fallback derived layout
		c.StoreRoot = filepath.Join(c.Home, "store")
	}

	if c.DocKey == "" {
		c.DocKey = DefaultDocKey
	}
	if _, err := domain.CleanDocKey(c.DocKey); err != nil {
		return fmt.Errorf("doc key: %w", err)
	}

	if len(c.SampleRates) == 0 {
		c.SampleRates = capture.DefaultConfig().SampleRates
	}
	for _, r := range c.SampleRates {
		if r <= 0 {
			return fmt.Errorf("sample rate must be positive, got %d", r)
		}
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive")
	}
	if c.RingBlocks <= 0 {
		return fmt.Errorf("ring blocks must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("snapshot-every must not be negative")
	}

	return nil
}

// Capture returns the engine settings carried by this config.
func (c Config) Capture() capture.Config {
	return capture.Config{
		SampleRates:  c.SampleRates,
		BlockSize:    c.BlockSize,
		RingBlocks:   c.RingBlocks,
		PollInterval: c.PollInterval,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInts copies an int slice if non-empty and flag not changed.
func (s *configSetter) setInts(flag string, value []int, dst *[]int) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]int(nil), value...)
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setIntsFromString parses a comma-separated list of ints and sets the
// destination. Used for environment variables that come as strings.
func (s *configSetter) setIntsFromString(flag, value string, dst *[]int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		out = append(out, i)
	}
	*dst = out
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
