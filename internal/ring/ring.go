// Package ring implements the bounded block ring that hands sample blocks
// from the audio callback to the session goroutine.
//
// The ring is wait-free for the producer: Push never blocks on the consumer
// and never allocates. When the ring is full the oldest block is discarded to
// make room for the newest one, and the discard is counted as an overrun.
package ring

import (
	"sync/atomic"
	"time"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
)

// cell is one slot of the ring. seq carries the slot's turn number in the
// bounded-queue protocol: seq == head means free for the writer at position
// head, seq == head+1 means occupied for the reader at position head.
type cell struct {
	seq     atomic.Uint64
	blkSeq  uint64
	blkTime time.Time
	n       int
	buf     []float32
}

// Buffer is a fixed-capacity block ring. One producer pushes, one consumer
// drains; the producer additionally discards the oldest block when full, so
// the dequeue side is guarded by compare-and-swap.
type Buffer struct {
	capacity uint64
	cells    []cell
	head     atomic.Uint64
	tail     atomic.Uint64
	overruns atomic.Uint64
}

// New creates a ring holding at most capacity blocks of up to blockSize
// samples each. All storage is allocated up front. Panics if capacity or
// blockSize is not positive; both come from validated configuration.
func New(capacity, blockSize int) *Buffer {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	if blockSize <= 0 {
		panic("ring: block size must be positive")
	}
	b := &Buffer{
		capacity: uint64(capacity),
		cells:    make([]cell, capacity),
	}
	for i := range b.cells {
		b.cells[i].seq.Store(uint64(i))
		b.cells[i].buf = make([]float32, blockSize)
	}
	return b
}

// Capacity returns the fixed block capacity of the ring.
func (b *Buffer) Capacity() int {
	return int(b.capacity)
}

// Len returns the current number of buffered blocks. The value is a snapshot
// and may be stale by the time it is read.
func (b *Buffer) Len() int {
	t := b.tail.Load()
	h := b.head.Load()
	if t < h {
		return 0
	}
	n := t - h
	if n > b.capacity {
		n = b.capacity
	}
	return int(n)
}

// Overruns returns the total number of blocks discarded because the ring was
// full at push time.
func (b *Buffer) Overruns() uint64 {
	return b.overruns.Load()
}

// Push copies samples into the ring under the given block sequence number and
// timestamp. When the ring is full, the oldest buffered block is discarded
// first and dropped reports true. Push never blocks on the consumer; samples
// longer than the configured block size are truncated to it.
func (b *Buffer) Push(samples []float32, seq uint64, ts time.Time) (dropped bool) {
	for {
		pos := b.tail.Load()
		c := &b.cells[pos%b.capacity]
		cseq := c.seq.Load()
		switch d := int64(cseq) - int64(pos); {
		case d == 0:
			if !b.tail.CompareAndSwap(pos, pos+1) {
				continue
			}
			n := copy(c.buf[:cap(c.buf)], samples)
			c.n = n
			c.blkSeq = seq
			c.blkTime = ts
			c.seq.Store(pos + 1)
			return dropped
		case d < 0:
			// Full. Discard the oldest block and try again.
			if b.discardOldest() {
				b.overruns.Add(1)
				dropped = true
			}
		default:
			// Stale tail read. Loop and re-read.
		}
	}
}

// Pop removes and returns the oldest buffered block, cloning its samples out
// of the ring's storage. ok is false when the ring is empty.
func (b *Buffer) Pop() (blk domain.FrameBlock, ok bool) {
	for {
		pos := b.head.Load()
		c := &b.cells[pos%b.capacity]
		cseq := c.seq.Load()
		switch d := int64(cseq) - int64(pos+1); {
		case d == 0:
			if !b.head.CompareAndSwap(pos, pos+1) {
				continue
			}
			blk = domain.FrameBlock{
				Seq:     c.blkSeq,
				Time:    c.blkTime,
				Samples: append([]float32(nil), c.buf[:c.n]...),
			}
			c.seq.Store(pos + b.capacity)
			return blk, true
		case d < 0:
			return domain.FrameBlock{}, false
		default:
			continue
		}
	}
}

// DrainAll removes every buffered block in order, oldest first. It returns
// nil when the ring is empty.
func (b *Buffer) DrainAll() []domain.FrameBlock {
	var out []domain.FrameBlock
	for {
		blk, ok := b.Pop()
		if !ok {
			return out
		}
		out = append(out, blk)
	}
}

// discardOldest advances past the oldest block without copying it out.
// Returns false when the ring emptied before the discard (the consumer won
// the race), in which case no overrun occurred.
func (b *Buffer) discardOldest() bool {
	for {
		pos := b.head.Load()
		c := &b.cells[pos%b.capacity]
		cseq := c.seq.Load()
		switch d := int64(cseq) - int64(pos+1); {
		case d == 0:
			if !b.head.CompareAndSwap(pos, pos+1) {
				continue
			}
			c.seq.Store(pos + b.capacity)
			return true
		case d < 0:
			return false
		default:
			continue
		}
	}
}
