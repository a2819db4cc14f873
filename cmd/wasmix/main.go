package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/yukihamada/wasmix-sub003/internal/cliconfig"
	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

const helpBanner = `
__        ___    ____  __  __ _____  __
\ \      / / \  / ___||  \/  |_ _\ \/ /
 \ \ /\ / / _ \ \___ \| |\/| || | \  /
  \ V  V / ___ \ ___) | |  | || | /  \
   \_/\_/_/   \_\____/|_|  |_|___/_/\_\
`

const helpDescription = `
Capture microphone audio into a local, crash-safe store.

Highlights:
  - Wait-free capture ring keeps the audio callback real-time safe.
  - Renders are committed atomically; session history is journaled.
  - Recovers cleanly after a crash by replaying the journal.
  - Configure via file, environment, or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  wasmix record --duration 10s --out takes/first.wav
  wasmix renders --store ~/.wasmix/store
  wasmix journal
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// loadConfig resolves the effective configuration: file first, then
// environment, then flags. Flags set on the command line win; the changed
// map records which ones were.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

// libConfig converts the CLI configuration into the library form.
func libConfig(cfg cliconfig.Config, cfgPath string) wasmix.Config {
	path := cfgPath
	if path == "" {
		path = cliconfig.DefaultConfigPath()
	}
	lib := wasmix.Config{
		StoreRoot:     cfg.StoreRoot,
		Home:          cfg.Home,
		DocKey:        cfg.DocKey,
		SampleRates:   cfg.SampleRates,
		BlockSize:     cfg.BlockSize,
		RingBlocks:    cfg.RingBlocks,
		PollInterval:  cfg.PollInterval,
		SnapshotEvery: cfg.SnapshotEvery,
	}
	// Only hand the config path to plugins when there is a file to watch.
	if cliconfig.FileExists(path) {
		lib.ConfigPath = path
	}
	return lib
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger(cfg)

	root := &cobra.Command{
		Use:     "wasmix",
		Short:   "Capture microphone audio into a local, crash-safe store",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}

	// Flags shared by every subcommand
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.wasmix/config.toml)")
	root.PersistentFlags().StringVar(&cfg.Home, "home", cfg.Home, "wasmix home directory")
	root.PersistentFlags().StringVar(&cfg.StoreRoot, "store", cfg.StoreRoot, "store directory for renders and the journal")
	root.PersistentFlags().StringVar(&cfg.DocKey, "doc", cfg.DocKey, "journal document for session history")
	root.PersistentFlags().IntSliceVar(&cfg.SampleRates, "rates", cfg.SampleRates, "sample rate ladder, tried in order")
	root.PersistentFlags().IntVar(&cfg.BlockSize, "block-size", cfg.BlockSize, "samples per device block")
	root.PersistentFlags().IntVar(&cfg.RingBlocks, "ring-blocks", cfg.RingBlocks, "capture ring capacity in blocks")
	root.PersistentFlags().DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "drain interval of the capture consumer")
	root.PersistentFlags().IntVar(&cfg.SnapshotEvery, "snapshot-every", cfg.SnapshotEvery, "fold the journal after this many saves (0 disables)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace|debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "force JSON log output")

	root.AddCommand(
		newRecordCommand(&cfg, &cfgPath),
		newRendersCommand(&cfg, &cfgPath),
		newJournalCommand(&cfg, &cfgPath),
		newSnapshotCommand(&cfg, &cfgPath),
		newStatusCommand(&cfg, &cfgPath),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("wasmix")
		os.Exit(1)
	}
}
