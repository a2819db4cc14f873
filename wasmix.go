// Package wasmix provides a local-first audio capture recorder: it captures
// monophonic audio in real time, encodes takes to PCM WAV, and commits them
// to a private journaled store that recovers cleanly after a crash.
//
// Example usage:
//
//	cfg := wasmix.Config{Home: os.ExpandEnv("$HOME/.wasmix")}
//	w, err := wasmix.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
//	_ = w.Monitor()
//	_ = w.Record()
//	time.Sleep(5 * time.Second)
//	_ = w.StopCapture()
//	render, _ := w.SaveRender("renders/take-1.wav")
//	fmt.Println(render.Path, render.Bytes)
//
// This file re-exports the embeddable API from pkg/wasmix so applications
// can depend on the module root alone.
package wasmix

import (
	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

// Wasmix is an audio capture recorder instance. Use New() to create one.
type Wasmix = wasmix.Wasmix

// Config holds the configuration for a recorder instance.
// Zero fields receive defaults; see pkg/wasmix.Config for the full list.
type Config = wasmix.Config

// Option configures optional behavior such as logging, event handling,
// plugins, and device injection.
type Option = wasmix.Option

// EventHandler receives notifications about recorder operations.
type EventHandler = wasmix.EventHandler

// Render describes a saved render artifact.
type Render = wasmix.Render

// SessionState is the folded journal history of a session document.
type SessionState = wasmix.SessionState

// New creates a recorder instance with the given configuration.
func New(cfg Config, opts ...Option) (*Wasmix, error) {
	return wasmix.New(cfg, opts...)
}

// Re-exported functional options.
var (
	WithLogger       = wasmix.WithLogger
	WithEventHandler = wasmix.WithEventHandler
	WithPlugin       = wasmix.WithPlugin
	WithDeviceSource = wasmix.WithDeviceSource
)

// Sentinel errors. Match with errors.Is.
var (
	ErrAlreadyRunning       = wasmix.ErrAlreadyRunning
	ErrNotRunning           = wasmix.ErrNotRunning
	ErrStoreLocked          = wasmix.ErrStoreLocked
	ErrInvalidState         = wasmix.ErrInvalidState
	ErrDeviceUnavailable    = wasmix.ErrDeviceUnavailable
	ErrDeviceConfigRejected = wasmix.ErrDeviceConfigRejected
	ErrNotFound             = wasmix.ErrNotFound
)
