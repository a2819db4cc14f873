package wasmix

// State represents the lifecycle state of a Wasmix instance.
type State int

const (
	// StateStopped means no session is open.
	StateStopped State = iota
	// StateStarting means a session is being opened.
	StateStarting
	// StateRunning means the session is open: the store is locked and
	// capture operations are available.
	StateRunning
	// StateStopping means the session is shutting down.
	StateStopping
	// StateCrashed means the instance hit an unrecoverable error.
	StateCrashed
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// CanStart returns true if Start() can be called from this state.
func (s State) CanStart() bool {
	return s == StateStopped || s == StateCrashed
}

// CanStop returns true if Stop() can be called from this state.
func (s State) CanStop() bool {
	return s == StateRunning || s == StateStarting
}

// IsRunning returns true if a session is open.
func (s State) IsRunning() bool {
	return s == StateRunning
}
