package wasmix

import "time"

// StateChangeEvent is emitted when the lifecycle state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// RenderSavedEvent is emitted after a render is committed to the store.
type RenderSavedEvent struct {
	// Key is the store key the render was saved under.
	Key string
	// Bytes is the encoded size of the saved file.
	Bytes int
}

// JournalErrorEvent is emitted when the journal side-write of a committed
// save fails. The save itself already succeeded; this is diagnostic.
type JournalErrorEvent struct {
	// Doc is the journal document that rejected the append.
	Doc string
	// Error is the failure reported by the journal.
	Error error
}

// EventHandler receives notifications about Wasmix operations.
// Handlers are called synchronously; implementations should return
// quickly to avoid blocking capture work.
//
// Embed BaseEventHandler to get no-op defaults for events you do not
// care about.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnRenderSaved(event RenderSavedEvent)
	OnJournalError(event JournalErrorEvent)
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it and override the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(event StateChangeEvent)   {}
func (BaseEventHandler) OnRenderSaved(event RenderSavedEvent)   {}
func (BaseEventHandler) OnJournalError(event JournalErrorEvent) {}

// Render describes a saved render.
type Render struct {
	// Path is the store key, slash-separated.
	Path string
	// Bytes is the size of the encoded file.
	Bytes uint64
	// SavedAt is when the save committed.
	SavedAt time.Time
}

// SessionState is the folded journal history of a session document.
type SessionState struct {
	// LastSeq is the highest journal sequence observed.
	LastSeq uint64
	// Renders lists every journaled save in append order.
	Renders []Render
}

// HistoryEntry is one journal record.
type HistoryEntry struct {
	Seq     uint64
	Time    time.Time
	Kind    string
	Payload []byte
}

// CaptureStatus is a point-in-time view of the capture engine.
type CaptureStatus struct {
	// State is the capture state name: idle, monitoring, recording or
	// stopped.
	State string
	// SampleRate is the negotiated device rate, zero before the first
	// session.
	SampleRate int
	// TakeSamples is the current accumulated take length.
	TakeSamples int
	// Overruns counts blocks dropped because the ring was full.
	Overruns uint64
	// Level is the peak amplitude of the most recent drain, 0 to 1.
	Level float64
}
