package capture

// State represents the capture session state.
type State int

const (
	// StateIdle means no device is held and nothing was ever started.
	StateIdle State = iota

	// StateMonitoring means the device is live and blocks are drained for
	// level metering but discarded.
	StateMonitoring

	// StateRecording means drained blocks accumulate into the current take.
	StateRecording

	// StateStopped means a session ran and ended; the device is released and
	// the finished take is available.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMonitoring:
		return "monitoring"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
