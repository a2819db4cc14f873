package domain

import "errors"

// Domain errors represent error conditions in the wasmix domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrDeviceUnavailable is returned when no capture device can be opened.
	ErrDeviceUnavailable = errors.New("wasmix: device unavailable")

	// ErrDeviceConfigRejected is returned when the device rejects every
	// requested sample rate.
	ErrDeviceConfigRejected = errors.New("wasmix: device config rejected")

	// ErrInvalidState is returned when a capture transition is requested from
	// a state that does not permit it.
	ErrInvalidState = errors.New("wasmix: invalid state")

	// ErrNotFound is returned when a document key has no stored value.
	ErrNotFound = errors.New("wasmix: not found")

	// ErrBadPath is returned when a document key is empty, absolute, or would
	// escape the store root.
	ErrBadPath = errors.New("wasmix: bad path")

	// ErrStoreLocked is returned when another process holds the store lock.
	ErrStoreLocked = errors.New("wasmix: store locked")

	// ErrAlreadyRunning is returned when a session is opened on an instance
	// that already has one.
	ErrAlreadyRunning = errors.New("wasmix: already running")

	// ErrNotRunning is returned by session operations when no session is open.
	ErrNotRunning = errors.New("wasmix: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("wasmix: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("wasmix: invalid configuration")
)
