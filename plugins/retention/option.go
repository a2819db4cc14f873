package retention

import "github.com/yukihamada/wasmix-sub003/pkg/wasmix"

// WithRetention returns a wasmix Option that enables automatic store pruning.
// When enabled, the plugin periodically checks the store size and removes
// the oldest renders when it exceeds the configured high watermark.
//
// Usage:
//
//	w, err := wasmix.New(cfg,
//	    retention.WithRetention(retention.Config{
//	        CheckInterval: 12 * time.Hour,
//	        HighWatermark: 2 << 30, // 2 GiB
//	        LowWatermark:  3 << 29, // 1.5 GiB
//	    }),
//	)
func WithRetention(cfg Config) wasmix.Option {
	plugin := New(cfg)
	return wasmix.WithPlugin(plugin)
}

// WithDefaultRetention returns a wasmix Option that enables store pruning
// with default settings (check every 12h, high watermark 2GiB, low
// watermark 1.5GiB, newest render kept).
//
// Usage:
//
//	w, err := wasmix.New(cfg, retention.WithDefaultRetention())
func WithDefaultRetention() wasmix.Option {
	return WithRetention(DefaultConfig())
}
