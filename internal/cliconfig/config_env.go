package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (WASMIX_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("home", os.Getenv("WASMIX_HOME"), &cfg.Home)
	s.setString("store", os.Getenv("WASMIX_STORE"), &cfg.StoreRoot)
	s.setString("doc", os.Getenv("WASMIX_DOC"), &cfg.DocKey)
	s.setString("log-level", os.Getenv("WASMIX_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntsFromString("rates", os.Getenv("WASMIX_RATES"), &cfg.SampleRates); err != nil {
		return err
	}
	if err := s.setIntFromString("block-size", os.Getenv("WASMIX_BLOCK_SIZE"), &cfg.BlockSize); err != nil {
		return err
	}
	if err := s.setIntFromString("ring-blocks", os.Getenv("WASMIX_RING_BLOCKS"), &cfg.RingBlocks); err != nil {
		return err
	}
	if err := s.setIntFromString("snapshot-every", os.Getenv("WASMIX_SNAPSHOT_EVERY"), &cfg.SnapshotEvery); err != nil {
		return err
	}

	if err := s.setDuration("poll", os.Getenv("WASMIX_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}

	s.setBoolFromString("log-json", os.Getenv("WASMIX_LOG_JSON"), &cfg.LogJSON)

	return nil
}
