package ports

import "context"

// DeviceConfig describes one attempted device configuration.
type DeviceConfig struct {
	// SampleRate is the requested capture rate in hertz.
	SampleRate int

	// BlockSize is the number of samples delivered per callback.
	BlockSize int
}

// BlockHandler receives one block of mono samples from the device callback.
// The slice is owned by the device and is only valid for the duration of the
// call; handlers must copy anything they keep. Handlers run on the audio
// callback goroutine and must not block.
type BlockHandler func(samples []float32)

// DeviceSource provides access to an audio capture device.
// Implementations wrap a host audio API (portaudio) or a test fake.
type DeviceSource interface {
	// Open claims the device with the given configuration and registers the
	// handler for sample delivery. Returns domain.ErrDeviceConfigRejected
	// when the device refuses the configuration (the caller may retry with
	// another rate) and domain.ErrDeviceUnavailable when no device can be
	// claimed at all.
	Open(ctx context.Context, cfg DeviceConfig, h BlockHandler) error

	// Start begins delivering blocks to the registered handler.
	Start() error

	// Stop halts delivery. It does not return until the last callback has
	// completed, so the handler never runs after Stop.
	Stop() error

	// Close releases the device. Open may be called again afterwards.
	Close() error
}
