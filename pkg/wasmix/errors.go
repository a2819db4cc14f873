package wasmix

import "github.com/yukihamada/wasmix-sub003/internal/domain"

// Sentinel errors returned by Wasmix operations. Match with errors.Is;
// returned errors may wrap these with additional context.
var (
	// ErrAlreadyRunning is returned by Start when a session is already open.
	ErrAlreadyRunning = domain.ErrAlreadyRunning

	// ErrNotRunning is returned by session operations when no session is open.
	ErrNotRunning = domain.ErrNotRunning

	// ErrShutdownTimeout is returned by Stop when graceful shutdown times out.
	ErrShutdownTimeout = domain.ErrShutdownTimeout

	// ErrStoreLocked is returned by Start when another process holds the store.
	ErrStoreLocked = domain.ErrStoreLocked

	// ErrInvalidConfig is returned by New when configuration is invalid.
	ErrInvalidConfig = domain.ErrInvalidConfig

	// ErrInvalidState is returned when an operation is not valid in the
	// current capture state, for example Record before Monitor.
	ErrInvalidState = domain.ErrInvalidState

	// ErrDeviceUnavailable is returned by Monitor when no input device can
	// be acquired at any configured sample rate.
	ErrDeviceUnavailable = domain.ErrDeviceUnavailable

	// ErrDeviceConfigRejected is returned when the device refuses a specific
	// capture configuration. Monitor retries the next rate on it.
	ErrDeviceConfigRejected = domain.ErrDeviceConfigRejected

	// ErrNotFound is returned by LoadRender for keys with no stored render.
	ErrNotFound = domain.ErrNotFound

	// ErrBadPath is returned for render keys that would escape the store root.
	ErrBadPath = domain.ErrBadPath
)
