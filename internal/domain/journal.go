package domain

import (
	"encoding/json"
	"fmt"
)

// Journal entry kinds understood by the current build. Replay skips kinds it
// does not recognize so that journals written by newer builds stay readable.
const (
	// KindSaveRender records that a render artifact was committed to the store.
	KindSaveRender = "save-render"

	// KindSnapshot records a full fold of the journal state at a point in
	// time. Replay discards everything accumulated before it.
	KindSnapshot = "snapshot"
)

// JournalEntry is a single append-only journal record. Entries are immutable
// once written; Seq is unique and strictly increasing within one document.
type JournalEntry struct {
	// Seq is the entry sequence number, starting at 1.
	Seq uint64 `json:"seq"`

	// TS is the entry timestamp in unix milliseconds.
	TS int64 `json:"ts"`

	// Kind discriminates the payload schema.
	Kind string `json:"kind"`

	// Payload is the kind-specific body, kept raw so unknown kinds survive
	// a decode/re-encode round trip.
	Payload json.RawMessage `json:"payload"`
}

// SaveRenderPayload is the payload carried by save-render entries.
type SaveRenderPayload struct {
	// Path is the store key the render was committed under.
	Path string `json:"path"`

	// Bytes is the committed artifact size.
	Bytes uint64 `json:"bytes"`
}

// RenderRecord is one committed render as accumulated by journal replay.
type RenderRecord struct {
	Path    string `json:"path"`
	Bytes   uint64 `json:"bytes"`
	SavedAt int64  `json:"saved_at"`
}

// JournalState is the fold of a document's journal entries. It doubles as the
// payload schema of snapshot entries.
type JournalState struct {
	// LastSeq is the sequence number of the last entry folded in.
	LastSeq uint64 `json:"last_seq"`

	// Renders lists committed renders in append order.
	Renders []RenderRecord `json:"renders"`
}

// Apply folds a single entry into the state. Snapshot entries replace the
// accumulated state wholesale. Unknown kinds advance LastSeq and are otherwise
// ignored.
func (s *JournalState) Apply(e JournalEntry) error {
	switch e.Kind {
	case KindSaveRender:
		var p SaveRenderPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return fmt.Errorf("save-render payload: %w", err)
		}
		s.Renders = append(s.Renders, RenderRecord{
			Path:    p.Path,
			Bytes:   p.Bytes,
			SavedAt: e.TS,
		})
	case KindSnapshot:
		var snap JournalState
		if err := json.Unmarshal(e.Payload, &snap); err != nil {
			return fmt.Errorf("snapshot payload: %w", err)
		}
		*s = snap
	}
	s.LastSeq = e.Seq
	return nil
}

// Clone returns a deep copy of the state so callers can hold it across
// further appends.
func (s JournalState) Clone() JournalState {
	out := s
	out.Renders = make([]RenderRecord, len(s.Renders))
	copy(out.Renders, s.Renders)
	return out
}
