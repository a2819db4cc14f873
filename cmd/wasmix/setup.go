package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yukihamada/wasmix-sub003/internal/cliconfig"
	wlog "github.com/yukihamada/wasmix-sub003/pkg/log"
	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
	"github.com/yukihamada/wasmix-sub003/plugins/configwatch"
)

// buildInstance resolves the effective configuration and creates a wasmix
// instance wired with the CLI logger. When watch is true and a config file
// exists, the configwatch plugin follows log-level edits at runtime.
func buildInstance(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string, watch bool) (*wasmix.Wasmix, zerolog.Logger, error) {
	if err := loadConfig(cmd, cfg, cfgPath); err != nil {
		return nil, zerolog.Logger{}, err
	}

	logger := cliconfig.Logger(*cfg)
	opts := []wasmix.Option{
		wasmix.WithLogger(wlog.NewZerologAdapterWithLogger(logger)),
	}

	lib := libConfig(*cfg, cfgPath)
	if watch && lib.ConfigPath != "" {
		opts = append(opts, configwatch.WithDefaultConfigWatch())
	}

	w, err := wasmix.New(lib, opts...)
	if err != nil {
		return nil, logger, fmt.Errorf("create wasmix: %w", err)
	}
	return w, logger, nil
}
