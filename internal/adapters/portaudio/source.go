// Package portaudio adapts the default PortAudio input device to the
// ports.DeviceSource interface. Blocks arrive on a PortAudio-owned
// callback goroutine; the handler must copy out anything it keeps.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/internal/ports"
)

// Source captures mono float32 blocks from the default input device.
// The zero value is not usable; construct with NewSource.
type Source struct {
	mu     sync.Mutex
	stream *pa.Stream
}

// NewSource creates an unopened source.
func NewSource() *Source {
	return &Source{}
}

// Open initializes the PortAudio runtime and claims the default input
// device at the requested rate and block size. A configuration the device
// cannot honor reports ErrDeviceConfigRejected, leaving the source ready
// for another attempt at a different rate.
func (s *Source) Open(ctx context.Context, cfg ports.DeviceConfig, h ports.BlockHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return fmt.Errorf("wasmix: device already open: %w", domain.ErrInvalidState)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Pa_Initialize is reference counted, so pairing it with Terminate in
	// Close keeps the runtime alive exactly as long as the stream.
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("wasmix: portaudio init: %w", classify(err))
	}

	stream, err := pa.OpenDefaultStream(1, 0, float64(cfg.SampleRate), cfg.BlockSize, func(in []float32) {
		h(in)
	})
	if err != nil {
		_ = pa.Terminate()
		return fmt.Errorf("wasmix: open input stream: %w", classify(err))
	}

	s.stream = stream
	return nil
}

// Start begins delivering blocks to the handler.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return fmt.Errorf("wasmix: device not open: %w", domain.ErrInvalidState)
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("wasmix: start input stream: %w", classify(err))
	}
	return nil
}

// Stop halts delivery. It blocks until the callback has drained, so no
// handler invocation is in flight once it returns.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("wasmix: stop input stream: %w", classify(err))
	}
	return nil
}

// Close releases the stream and the PortAudio runtime.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	if terr := pa.Terminate(); err == nil {
		err = terr
	}
	if err != nil {
		return fmt.Errorf("wasmix: close input stream: %w", err)
	}
	return nil
}

// classify maps PortAudio error codes onto the domain sentinels callers
// dispatch on. Codes with no mapping pass through unchanged.
func classify(err error) error {
	var code pa.Error
	if !errors.As(err, &code) {
		return err
	}
	switch code {
	case pa.InvalidSampleRate, pa.SampleFormatNotSupported, pa.InvalidChannelCount, pa.BadIODeviceCombination:
		return fmt.Errorf("%w: %v", domain.ErrDeviceConfigRejected, err)
	case pa.InvalidDevice, pa.DeviceUnavailable:
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}
	return err
}
