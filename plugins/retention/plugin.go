// Package retention provides automatic store pruning for wasmix.
// When enabled, it periodically checks the store size and removes the
// oldest renders to keep disk usage under a configured watermark.
package retention

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

// Plugin implements render retention functionality.
// It periodically checks the store size and removes the oldest renders
// when it exceeds the high watermark.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	checkInterval  time.Duration
	highWatermark  int64
	lowWatermark   int64
	keepLatest     int
	runImmediately bool

	// Runtime state
	storeRoot string
	logger    wasmix.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Config holds configuration options for the retention plugin.
type Config struct {
	// CheckInterval is how often to check the store size.
	// Default: 12 hours
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which pruning begins.
	// Default: 2 GiB
	HighWatermark int64

	// LowWatermark is the target size in bytes after pruning.
	// Default: 1.5 GiB
	LowWatermark int64

	// KeepLatest is the number of newest renders that are never pruned.
	// Default: 1
	KeepLatest int

	// RunImmediately if true, runs a pruning check on startup.
	// Default: true
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  12 * time.Hour,
		HighWatermark:  2 << 30, // 2 GiB
		LowWatermark:   3 << 29, // 1.5 GiB
		KeepLatest:     1,
		RunImmediately: true,
	}
}

// New creates a new retention plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 12 * time.Hour
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 2 << 30
	}
	if cfg.LowWatermark <= 0 {
		cfg.LowWatermark = 3 << 29
	}
	if cfg.KeepLatest < 0 {
		cfg.KeepLatest = 0
	}

	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		keepLatest:     cfg.KeepLatest,
		runImmediately: cfg.RunImmediately,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "retention"
}

// Initialize sets up the plugin and starts the pruning loop.
func (p *Plugin) Initialize(ctx context.Context, cfg wasmix.PluginConfig) error {
	p.mu.Lock()
	p.storeRoot = cfg.StoreRoot
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.storeRoot == "" {
		p.logger.Warn("retention disabled: no store root configured")
		return nil
	}

	// Create cancellable context for the pruning loop
	pruneCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("retention plugin initialized")

	// Start pruning loop
	p.wg.Add(1)
	go p.pruneLoop(pruneCtx)

	return nil
}

// Shutdown stops the pruning loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// pruneLoop runs periodic pruning checks.
func (p *Plugin) pruneLoop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.pruneOnce(ctx)
	}

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pruneOnce(ctx)
		}
	}
}

// pruneOnce performs a single pruning check.
func (p *Plugin) pruneOnce(ctx context.Context) {
	p.mu.RLock()
	root := p.storeRoot
	p.mu.RUnlock()

	renders, total, err := scanRenders(root)
	if err != nil {
		p.logger.Error("retention: store scan failed")
		return
	}
	if total <= p.highWatermark {
		return
	}

	// Oldest first; the newest keepLatest renders are off limits.
	sort.Slice(renders, func(i, j int) bool {
		return renders[i].modTime.Before(renders[j].modTime)
	})
	if p.keepLatest > 0 {
		if len(renders) <= p.keepLatest {
			return
		}
		renders = renders[:len(renders)-p.keepLatest]
	}

	removed := int64(0)
	for _, r := range renders {
		if ctx.Err() != nil {
			return
		}
		if total <= p.lowWatermark {
			break
		}

		if err := os.Remove(r.path); err != nil {
			p.logger.Error("retention: remove failed")
			continue
		}
		total -= r.size
		removed += r.size
	}

	if removed > 0 {
		p.logger.Info("retention pruned old renders")
	}
}

// render is a store file considered for pruning.
type render struct {
	path    string
	size    int64
	modTime time.Time
}

// scanRenders walks the store accumulating render files and their total
// size. Dot-entries (the journal directory, the lock file) and in-flight
// temp files are not render data and are skipped.
func scanRenders(root string) ([]render, int64, error) {
	var out []render
	var total int64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || strings.HasSuffix(name, ".tmp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, render{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Ensure Plugin implements wasmix.Plugin.
var _ wasmix.Plugin = (*Plugin)(nil)
