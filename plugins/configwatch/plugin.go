// Package configwatch provides config file monitoring for wasmix.
// When enabled, it watches the wasmix config file for changes and applies
// logging settings to the running process.
package configwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

// Plugin implements config watching functionality.
// It monitors the config file the instance was loaded from and applies
// the log level when it changes.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	debounceDelay time.Duration

	// Runtime state
	configPath string
	logger     wasmix.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
}

// Config holds configuration options for the config watch plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before
	// reloading. Editors often produce bursts of write events.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watch plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}

	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatch"
}

// Initialize sets up the plugin and starts the file watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg wasmix.PluginConfig) error {
	p.mu.Lock()
	p.configPath = cfg.ConfigPath
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.configPath == "" {
		p.logger.Warn("config watch disabled: no config path configured")
		return nil
	}

	// Create cancellable context for the watcher loop
	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watch plugin initialized")

	// Start watcher loop
	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the file watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("config watch: failed to create watcher")
		return
	}
	defer watcher.Close()

	// Watch the directory: editors typically replace the file on save,
	// which would silently drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(p.configPath)); err != nil {
		p.logger.Error("config watch: failed to watch directory")
		// Still apply whatever the file says right now
		p.reload(ctx)
		return
	}

	// Apply current file settings
	p.reload(ctx)

	name := filepath.Base(p.configPath)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx, p.debounceDelay)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watch: watcher error")
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, func() {
		p.reload(ctx)
	})
}

// reloadable holds the subset of the config file that can be applied to a
// running process.
type reloadable struct {
	LogLevel string `toml:"log_level"`
}

// reload re-reads the config file and applies runtime-adjustable settings.
func (p *Plugin) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	data, err := os.ReadFile(p.configPath)
	if err != nil {
		p.logger.Error("config watch: read failed")
		return
	}

	var settings reloadable
	if err := toml.Unmarshal(data, &settings); err != nil {
		p.logger.Error("config watch: parse failed")
		return
	}

	if settings.LogLevel == "" {
		return
	}
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		p.logger.Error("config watch: unknown log level")
		return
	}
	if level == zerolog.GlobalLevel() {
		return
	}
	zerolog.SetGlobalLevel(level)
	p.logger.Info("config watch: log level updated")
}

// Ensure Plugin implements wasmix.Plugin.
var _ wasmix.Plugin = (*Plugin)(nil)
