package configwatch

import "github.com/yukihamada/wasmix-sub003/pkg/wasmix"

// WithConfigWatch returns a wasmix Option that enables config file watching.
// When enabled, the plugin monitors the config file named by
// Config.ConfigPath and applies the log level when it changes.
//
// Usage:
//
//	w, err := wasmix.New(cfg,
//	    configwatch.WithConfigWatch(configwatch.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatch(cfg Config) wasmix.Option {
	plugin := New(cfg)
	return wasmix.WithPlugin(plugin)
}

// WithDefaultConfigWatch returns a wasmix Option that enables config
// watching with default settings (debounce 100ms).
//
// Usage:
//
//	w, err := wasmix.New(cfg, configwatch.WithDefaultConfigWatch())
func WithDefaultConfigWatch() wasmix.Option {
	return WithConfigWatch(DefaultConfig())
}
