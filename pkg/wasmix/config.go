package wasmix

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/yukihamada/wasmix-sub003/internal/capture"
	"github.com/yukihamada/wasmix-sub003/internal/domain"
)

// Config holds configuration for a Wasmix instance.
// Create one, set the fields you need, and pass it to New; zero fields
// receive defaults via SetDefaults.
type Config struct {
	// StoreRoot is the directory renders and the session journal live
	// under. Derived from Home when empty.
	StoreRoot string

	// Home is an optional base directory. When StoreRoot is empty it
	// defaults to Home/store.
	Home string

	// DocKey is the journal document session history is written to.
	// Default: "session".
	DocKey string

	// SampleRates is the device negotiation ladder, tried in order.
	// Default: 48000, 44100, 16000.
	SampleRates []int

	// BlockSize is the number of samples per device block. Default: 1024.
	BlockSize int

	// RingBlocks is the capture ring capacity in blocks. Default: 64.
	RingBlocks int

	// PollInterval is the drain cadence of the capture consumer.
	// Default: 25ms.
	PollInterval time.Duration

	// SnapshotEvery folds the journal into a snapshot after this many
	// saves, bounding replay work. Zero disables folding.
	SnapshotEvery int

	// ConfigPath optionally records the file this configuration was
	// loaded from, so plugins such as configwatch can find it.
	ConfigPath string
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.DocKey == "" {
		c.DocKey = "session"
	}

	d := capture.DefaultConfig()
	if len(c.SampleRates) == 0 {
		c.SampleRates = d.SampleRates
	}
	if c.BlockSize <= 0 {
		c.BlockSize = d.BlockSize
	}
	if c.RingBlocks <= 0 {
		c.RingBlocks = d.RingBlocks
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StoreRoot == "" {
		if c.Home == "" {
			return fmt.Errorf("wasmix: store root is required (or home): %w", domain.ErrInvalidConfig)
		}
		c.StoreRoot = filepath.Join(c.Home, "store")
	}

	if _, err := domain.CleanDocKey(c.DocKey); err != nil {
		return fmt.Errorf("wasmix: doc key: %w", err)
	}

	for _, r := range c.SampleRates {
		if r <= 0 {
			return fmt.Errorf("wasmix: sample rate must be positive, got %d: %w", r, domain.ErrInvalidConfig)
		}
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("wasmix: snapshot-every must not be negative: %w", domain.ErrInvalidConfig)
	}

	return nil
}

func (c Config) captureConfig() capture.Config {
	return capture.Config{
		SampleRates:  c.SampleRates,
		BlockSize:    c.BlockSize,
		RingBlocks:   c.RingBlocks,
		PollInterval: c.PollInterval,
	}
}
