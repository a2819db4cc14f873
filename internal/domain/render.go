package domain

import "time"

// MIMETypeWAV is the media type of every exported render artifact.
const MIMETypeWAV = "audio/wav"

// DefaultRenderName is the filename used when a render is exported without an
// explicit destination name.
const DefaultRenderName = "wasmix-recording.wav"

// RenderArtifact is a finalized take encoded as a complete RIFF/WAVE byte
// sequence. Artifacts are immutable once rendered.
type RenderArtifact struct {
	// Data is the complete WAV byte sequence, 44-byte header included.
	Data []byte

	// SampleRate is the rate the take was captured at, in hertz.
	SampleRate uint32

	// SampleCount is the number of PCM samples encoded in Data.
	SampleCount int

	// CreatedAt is the wall-clock time the render was produced.
	CreatedAt time.Time
}

// Bytes returns the encoded length of the artifact in bytes.
func (a RenderArtifact) Bytes() int {
	return len(a.Data)
}

// Empty reports whether the artifact carries no samples. An empty artifact is
// still a valid WAV file consisting of the header alone.
func (a RenderArtifact) Empty() bool {
	return a.SampleCount == 0
}

// Duration returns the playing time of the artifact.
func (a RenderArtifact) Duration() time.Duration {
	if a.SampleRate == 0 {
		return 0
	}
	return time.Duration(a.SampleCount) * time.Second / time.Duration(a.SampleRate)
}
