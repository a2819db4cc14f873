package wasmix

import "context"

// Plugin extends a Wasmix instance with optional functionality.
// Plugins are initialized in registration order when the session opens
// and shut down in reverse order when it closes.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. The context is canceled when the
	// session closes.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// PluginConfig carries the session settings plugins may need.
type PluginConfig struct {
	// StoreRoot is the directory renders and the journal live under.
	StoreRoot string

	// DocKey is the journal document for session history.
	DocKey string

	// Home is the configured base directory, possibly empty.
	Home string

	// ConfigPath is the file the configuration was loaded from, possibly
	// empty.
	ConfigPath string

	// Logger is the instance logger.
	Logger Logger
}

// BasePlugin provides default no-op implementations of the Plugin interface.
// Embed it to implement only the methods you need.
type BasePlugin struct {
	name string
}

// NewBasePlugin creates a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin identifier.
func (p BasePlugin) Name() string { return p.name }

// Initialize is a no-op.
func (p BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }

// Shutdown is a no-op.
func (p BasePlugin) Shutdown(ctx context.Context) error { return nil }
