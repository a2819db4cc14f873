package wasmix

import (
	"github.com/yukihamada/wasmix-sub003/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// DeviceSource is the interface to an audio input device.
// The bundled PortAudio adapter satisfies it; tests and embedders can
// substitute their own.
type DeviceSource = ports.DeviceSource

// DeviceConfig describes a requested device configuration.
type DeviceConfig = ports.DeviceConfig

// BlockHandler receives sample blocks from a device.
type BlockHandler = ports.BlockHandler

// Option configures optional behavior of Wasmix.
type Option func(*options)

// options holds the optional configuration for a Wasmix instance.
type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	device       ports.DeviceSource
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for wasmix events.
// Events are called synchronously. If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the session opens.
// Plugins are initialized in registration order and shut down in reverse
// order. For built-in plugins, use their package options such as
// retention.WithRetention() or configwatch.WithConfigWatch().
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithDeviceSource sets a custom audio device source.
// If not provided, the default PortAudio input device is used.
func WithDeviceSource(device DeviceSource) Option {
	return func(o *options) {
		o.device = device
	}
}
