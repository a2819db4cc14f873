// Package capture implements the audio capture engine: device negotiation,
// the monitoring/recording state machine, and the drain loop that moves
// blocks from the ring into the accumulated take.
//
// The engine spans the two timing domains of the pipeline. The device
// callback is the hard-real-time producer; its only work is one ring push.
// Everything else (level metering, take accumulation, overrun accounting)
// happens on the drain goroutine or under user-triggered transitions.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/internal/ports"
	"github.com/yukihamada/wasmix-sub003/internal/ring"
)

// Config holds capture engine settings.
type Config struct {
	// SampleRates is the negotiation ladder, tried in order until the device
	// accepts one.
	SampleRates []int

	// BlockSize is the number of samples per callback block.
	BlockSize int

	// RingBlocks is the ring capacity in blocks.
	RingBlocks int

	// PollInterval is the drain cadence of the consumer goroutine.
	PollInterval time.Duration
}

// DefaultConfig returns the stock engine configuration: studio, CD, and
// speech rates in preference order, with roughly 1.4s of ring headroom at
// 48kHz.
func DefaultConfig() Config {
	return Config{
		SampleRates:  []int{48000, 44100, 16000},
		BlockSize:    1024,
		RingBlocks:   64,
		PollInterval: 25 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.SampleRates) == 0 {
		c.SampleRates = d.SampleRates
	}
	if c.BlockSize <= 0 {
		c.BlockSize = d.BlockSize
	}
	if c.RingBlocks <= 0 {
		c.RingBlocks = d.RingBlocks
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// session is the per-start capture context shared with the device callback.
// The handler closure owns seq; the ring is shared with the drain goroutine.
type session struct {
	ring *ring.Buffer
	seq  atomic.Uint64
}

// Status is a point-in-time view of the engine for diagnostics.
type Status struct {
	State       State
	SampleRate  int
	TakeSamples int
	Overruns    uint64
	Level       float64
}

// Engine owns the device connection and the capture state machine:
// Idle -> (Start) -> Monitoring -> (Record) -> Recording -> (Stop) -> Stopped,
// with Stopped -> (Start) -> Monitoring for subsequent sessions.
type Engine struct {
	cfg    Config
	dev    ports.DeviceSource
	logger ports.Logger

	// transMu serializes state transitions; it is held across device calls.
	transMu sync.Mutex

	// mu guards the fields below and is never held while blocking.
	mu           sync.Mutex
	state        State
	sess         *session
	rate         int
	take         []float32
	level        float64
	lastOverruns uint64
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewEngine creates an engine using the given device source. Zero fields of
// cfg take their defaults.
func NewEngine(cfg Config, dev ports.DeviceSource, logger ports.Logger) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		dev:    dev,
		logger: logger,
		state:  StateIdle,
	}
}

// Start acquires the device and begins monitoring. The sample rate is
// negotiated by walking the configured ladder until the device accepts one.
// Valid from Idle and Stopped. ctx covers the start call only; the running
// session is ended with Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.transMu.Lock()
	defer e.transMu.Unlock()

	e.mu.Lock()
	st := e.state
	e.mu.Unlock()
	if st != StateIdle && st != StateStopped {
		return fmt.Errorf("start from %s: %w", st, domain.ErrInvalidState)
	}

	sess := &session{ring: ring.New(e.cfg.RingBlocks, e.cfg.BlockSize)}
	handler := func(samples []float32) {
		sess.ring.Push(samples, sess.seq.Add(1), time.Now())
	}

	rate := 0
	var openErr error
	for _, r := range e.cfg.SampleRates {
		err := e.dev.Open(ctx, ports.DeviceConfig{SampleRate: r, BlockSize: e.cfg.BlockSize}, handler)
		if err == nil {
			rate = r
			break
		}
		if errors.Is(err, domain.ErrDeviceConfigRejected) {
			e.logger.Debug("sample rate rejected", ports.Int("rate", r))
			openErr = err
			continue
		}
		return err
	}
	if rate == 0 {
		if openErr == nil {
			openErr = fmt.Errorf("empty sample rate ladder: %w", domain.ErrDeviceConfigRejected)
		}
		return openErr
	}

	if err := e.dev.Start(); err != nil {
		if cerr := e.dev.Close(); cerr != nil {
			e.logger.Warn("closing device after failed start", ports.Err(cerr))
		}
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.sess = sess
	e.rate = rate
	e.level = 0
	e.lastOverruns = 0
	e.cancel = cancel
	e.done = done
	e.state = StateMonitoring
	e.mu.Unlock()

	go e.drainLoop(loopCtx, sess, done)

	e.logger.Info("capture started",
		ports.Int("sample_rate", rate),
		ports.Int("block_size", e.cfg.BlockSize))
	return nil
}

// Record switches from Monitoring to Recording and starts a fresh take.
// Blocks still buffered from the monitoring phase are discarded so the take
// begins at the record mark.
func (e *Engine) Record() error {
	e.transMu.Lock()
	defer e.transMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateMonitoring {
		return fmt.Errorf("record from %s: %w", e.state, domain.ErrInvalidState)
	}

	e.sess.ring.DrainAll()
	e.take = nil
	e.state = StateRecording
	e.logger.Info("recording")
	return nil
}

// Stop ends the session, flushing still-buffered blocks into the take when
// recording, and releases the device. Valid from Monitoring and Recording.
func (e *Engine) Stop() error {
	e.transMu.Lock()
	defer e.transMu.Unlock()

	e.mu.Lock()
	if e.state != StateMonitoring && e.state != StateRecording {
		st := e.state
		e.mu.Unlock()
		return fmt.Errorf("stop from %s: %w", st, domain.ErrInvalidState)
	}
	wasRecording := e.state == StateRecording
	sess := e.sess
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	if err := e.dev.Stop(); err != nil {
		e.logger.Warn("device stop", ports.Err(err))
	}
	cancel()
	<-done

	// The callback has quiesced and the drain goroutine has exited; whatever
	// is left in the ring is the tail of the session.
	e.mu.Lock()
	for _, blk := range sess.ring.DrainAll() {
		if wasRecording {
			e.take = append(e.take, blk.Samples...)
		}
	}
	e.lastOverruns = sess.ring.Overruns()
	e.state = StateStopped
	e.sess = nil
	e.cancel = nil
	e.done = nil
	takeLen := len(e.take)
	e.mu.Unlock()

	if err := e.dev.Close(); err != nil {
		e.logger.Warn("device close", ports.Err(err))
	}

	e.logger.Info("capture stopped",
		ports.Int("take_samples", takeLen),
		ports.Uint64("overruns", sess.ring.Overruns()))
	return nil
}

// Take returns a copy of the accumulated take samples.
func (e *Engine) Take() []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float32(nil), e.take...)
}

// SampleRate returns the negotiated rate of the current or last session.
// Zero before the first successful Start.
func (e *Engine) SampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Level returns the peak amplitude of the most recently drained blocks,
// in [0, 1].
func (e *Engine) Level() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// Overruns returns the number of blocks dropped by the current session's
// ring. Zero when no session is live.
func (e *Engine) Overruns() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return e.lastOverruns
	}
	return e.sess.ring.Overruns()
}

// Status returns a point-in-time view of the engine.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var overruns uint64
	if e.sess != nil {
		overruns = e.sess.ring.Overruns()
	} else {
		overruns = e.lastOverruns
	}
	return Status{
		State:       e.state,
		SampleRate:  e.rate,
		TakeSamples: len(e.take),
		Overruns:    overruns,
		Level:       e.level,
	}
}

func (e *Engine) drainLoop(ctx context.Context, sess *session, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(e.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.drainOnce(sess)
		}
	}
}

// drainOnce empties the ring, folds the batch into the take when recording,
// and refreshes the level meter.
func (e *Engine) drainOnce(sess *session) {
	blocks := sess.ring.DrainAll()
	if len(blocks) == 0 {
		return
	}

	var peak float32
	for _, blk := range blocks {
		if p := blk.Peak(); p > peak {
			peak = p
		}
	}

	e.mu.Lock()
	if e.state == StateRecording {
		for _, blk := range blocks {
			e.take = append(e.take, blk.Samples...)
		}
	}
	e.level = float64(peak)

	overruns := sess.ring.Overruns()
	logOverrun := overruns > e.lastOverruns
	e.lastOverruns = overruns
	e.mu.Unlock()

	if logOverrun {
		e.logger.Warn("ring overrun, oldest blocks dropped",
			ports.Uint64("total_dropped", overruns))
	}
}
