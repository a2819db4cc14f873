package domain

import "time"

// FrameBlock is a fixed-size block of normalized PCM samples handed off from
// the capture callback to the session goroutine. A block is the atomic unit
// of transfer through the ring buffer.
type FrameBlock struct {
	// Seq is the block sequence number assigned by the producer. Gaps in the
	// sequence indicate blocks discarded under overrun.
	Seq uint64

	// Time is the producer-side timestamp of the first sample in the block.
	Time time.Time

	// Samples holds mono samples normalized to [-1.0, 1.0].
	Samples []float32
}

// Clone returns a deep copy of the block. The capture callback reuses its
// sample buffers, so anything crossing a goroutine boundary must be cloned.
func (b FrameBlock) Clone() FrameBlock {
	out := b
	out.Samples = make([]float32, len(b.Samples))
	copy(out.Samples, b.Samples)
	return out
}

// Peak returns the largest absolute sample amplitude in the block.
func (b FrameBlock) Peak() float32 {
	var peak float32
	for _, s := range b.Samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
