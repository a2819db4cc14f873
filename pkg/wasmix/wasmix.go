package wasmix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/yukihamada/wasmix-sub003/internal/adapters/fs"
	paAdapter "github.com/yukihamada/wasmix-sub003/internal/adapters/portaudio"
	"github.com/yukihamada/wasmix-sub003/internal/app"
	"github.com/yukihamada/wasmix-sub003/internal/capture"
	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/internal/journal"
	"github.com/yukihamada/wasmix-sub003/internal/ports"
	wlog "github.com/yukihamada/wasmix-sub003/pkg/log"
)

// LockFileName is the advisory lock file under the store root. Dot-prefixed
// so store listings never show it.
const LockFileName = ".wasmix.lock"

// Wasmix is a local-first audio capture recorder that can be embedded in
// other applications. Use New() to create an instance, then Start() to
// open a session.
type Wasmix struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	recorder  *app.Recorder
	engine    *capture.Engine
	store     ports.Store
	journal   ports.Journal
	logger    ports.Logger

	// Plugin support
	plugins []Plugin

	flk *flock.Flock

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Wasmix instance with the given configuration.
// The instance is created in StateStopped; call Start() to open a session.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Wasmix, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger
	var logger ports.Logger
	if o.logger != nil {
		logger = o.logger
	} else {
		logger = wlog.NewNoopLogger()
	}

	// Create event emitter wrapper
	var emitter eventEmitterWrapper
	if o.eventHandler != nil {
		emitter = eventEmitterWrapper{handler: o.eventHandler}
	}

	// Create lifecycle manager
	lifecycle := app.NewLifecycle(logger, &emitter)

	// Create adapters
	device := o.device
	if device == nil {
		device = paAdapter.NewSource()
	}
	store := fs.NewStore(cfg.StoreRoot)
	jm := journal.NewManager(cfg.StoreRoot, logger)

	// Create the capture engine and the recorder orchestrating it
	engine := capture.NewEngine(cfg.captureConfig(), device, logger)
	recorder := app.NewRecorder(app.RecorderConfig{
		DocKey:        cfg.DocKey,
		SnapshotEvery: cfg.SnapshotEvery,
	}, engine, store, jm, logger, &emitter)

	return &Wasmix{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle,
		recorder:  recorder,
		engine:    engine,
		store:     store,
		journal:   jm,
		logger:    logger,
		plugins:   o.plugins,
	}, nil
}

// Start opens a capture session: it locks the store, initializes plugins,
// and replays the session journal so history survives crashes.
// Returns ErrStoreLocked when another process holds the store, and
// ErrAlreadyRunning when a session is already open.
// The provided context bounds the session lifetime.
func (w *Wasmix) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	// Transition to starting
	if err := w.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	// The lock file lives under the store root, so the root must exist
	// before the first save.
	if err := os.MkdirAll(w.config.StoreRoot, 0o700); err != nil {
		_ = w.lifecycle.TransitionTo(app.StateCrashed, "store unavailable")
		return fmt.Errorf("wasmix: create store root: %w", err)
	}

	flk := flock.New(filepath.Join(w.config.StoreRoot, LockFileName))
	locked, err := flk.TryLock()
	if err != nil {
		_ = w.lifecycle.TransitionTo(app.StateCrashed, "store lock failed")
		return fmt.Errorf("wasmix: acquire store lock: %w", err)
	}
	if !locked {
		_ = w.lifecycle.TransitionTo(app.StateStopping, "store locked")
		_ = w.lifecycle.TransitionTo(app.StateStopped, "store locked")
		return fmt.Errorf("wasmix: store %q is in use: %w", w.config.StoreRoot, domain.ErrStoreLocked)
	}
	w.flk = flk

	// Create cancellable context
	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.lifecycle.SetCancel(cancel)

	// Initialize plugins
	pluginCfg := PluginConfig{
		StoreRoot:  w.config.StoreRoot,
		DocKey:     w.config.DocKey,
		Home:       w.config.Home,
		ConfigPath: w.config.ConfigPath,
		Logger:     w.logger,
	}
	for _, p := range w.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			w.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			w.abortStart(cancel)
			_ = w.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		w.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	// Replay the journal so the session starts from the last known-good
	// history.
	if _, err := w.recorder.Recover(runCtx); err != nil {
		w.abortStart(cancel)
		_ = w.lifecycle.TransitionTo(app.StateCrashed, "journal recovery failed")
		return err
	}

	return w.lifecycle.TransitionTo(app.StateRunning, "session open")
}

// Stop closes the session: it ends any live capture, shuts down plugins,
// and releases the store lock.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
// The instance remains usable for reads (Renders, History, SessionState)
// after Stop, and Start may be called again for a new session.
func (w *Wasmix) Stop() error {
	w.mu.Lock()

	if !w.lifecycle.CanStop() {
		w.mu.Unlock()
		return domain.ErrNotRunning
	}

	// Transition to stopping
	if err := w.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		w.mu.Unlock()
		return err
	}

	// Cancel the context
	if w.cancel != nil {
		w.cancel()
	}

	w.mu.Unlock()

	// End any live capture so its drain goroutine is joined before the
	// worker wait.
	switch w.recorder.Status().State {
	case capture.StateMonitoring, capture.StateRecording:
		if err := w.recorder.StopCapture(); err != nil {
			w.logger.Warn("capture stop during shutdown failed", ports.Err(err))
		}
		w.lifecycle.WorkerDone()
	}

	// Wait for workers with timeout
	err := w.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	// Shutdown plugins (in reverse order)
	shutdownCtx := context.Background()
	for i := len(w.plugins) - 1; i >= 0; i-- {
		p := w.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			w.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			w.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	w.mu.Lock()
	w.unlockStore()
	w.ctx = nil
	w.cancel = nil
	w.mu.Unlock()

	// Transition to stopped
	if err != nil {
		_ = w.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = w.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (w *Wasmix) Status() State {
	return convertState(w.lifecycle.State())
}

// SessionID returns the identifier correlating this session's log lines.
func (w *Wasmix) SessionID() string {
	return w.recorder.SessionID()
}

// Monitor acquires the audio device and starts monitoring. The device is
// negotiated down the configured rate ladder; ErrDeviceUnavailable means
// no rung was accepted. Requires an open session.
func (w *Wasmix) Monitor() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.lifecycle.State() != app.StateRunning {
		return domain.ErrNotRunning
	}
	if err := w.recorder.Monitor(w.ctx); err != nil {
		return err
	}
	w.lifecycle.AddWorker()
	return nil
}

// Record begins accumulating a fresh take. Valid only while monitoring.
func (w *Wasmix) Record() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.lifecycle.State() != app.StateRunning {
		return domain.ErrNotRunning
	}
	return w.recorder.Record()
}

// StopCapture ends monitoring or recording and releases the device.
// The accumulated take stays available for ExportWAV and SaveRender.
func (w *Wasmix) StopCapture() error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.lifecycle.State() != app.StateRunning {
		return domain.ErrNotRunning
	}
	if err := w.recorder.StopCapture(); err != nil {
		return err
	}
	w.lifecycle.WorkerDone()
	return nil
}

// ExportWAV renders the accumulated take as a canonical WAV file.
// An empty take yields a valid header-only file. Fails with
// ErrInvalidState before the first capture session.
func (w *Wasmix) ExportWAV() ([]byte, error) {
	art, err := w.recorder.Export()
	if err != nil {
		return nil, err
	}
	return art.Data, nil
}

// SaveRender exports the take and commits it to the store under key.
// The journal side-write follows the committed save; its failure is
// reported through OnJournalError but never fails the save.
// Requires an open session.
func (w *Wasmix) SaveRender(key string) (Render, error) {
	w.mu.RLock()
	ctx := w.ctx
	running := w.lifecycle.State() == app.StateRunning
	w.mu.RUnlock()

	if !running {
		return Render{}, domain.ErrNotRunning
	}
	rec, err := w.recorder.SaveRender(ctx, key)
	if err != nil {
		return Render{}, err
	}
	return renderFromRecord(rec), nil
}

// SnapshotJournal folds the session journal into a snapshot entry,
// bounding future replay work. Requires an open session.
func (w *Wasmix) SnapshotJournal() (HistoryEntry, error) {
	w.mu.RLock()
	ctx := w.ctx
	running := w.lifecycle.State() == app.StateRunning
	w.mu.RUnlock()

	if !running {
		return HistoryEntry{}, domain.ErrNotRunning
	}
	entry, err := w.recorder.SnapshotJournal(ctx)
	if err != nil {
		return HistoryEntry{}, err
	}
	return historyFromEntry(entry), nil
}

// Renders lists every stored render key in lexicographic order.
func (w *Wasmix) Renders() ([]string, error) {
	return w.recorder.Renders(w.opCtx(), "")
}

// LoadRender retrieves a stored render by key.
func (w *Wasmix) LoadRender(key string) ([]byte, error) {
	return w.recorder.LoadRender(w.opCtx(), key)
}

// History returns the session document's journal entries in append order.
func (w *Wasmix) History() ([]HistoryEntry, error) {
	entries, err := w.recorder.History(w.opCtx())
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = historyFromEntry(e)
	}
	return out, nil
}

// SessionState replays the session journal and returns the folded state.
func (w *Wasmix) SessionState() (SessionState, error) {
	st, err := w.recorder.SessionState(w.opCtx())
	if err != nil {
		return SessionState{}, err
	}
	return sessionStateFrom(st), nil
}

// CaptureStatus returns a point-in-time view of the capture engine.
func (w *Wasmix) CaptureStatus() CaptureStatus {
	st := w.recorder.Status()
	return CaptureStatus{
		State:       st.State.String(),
		SampleRate:  st.SampleRate,
		TakeSamples: st.TakeSamples,
		Overruns:    st.Overruns,
		Level:       st.Level,
	}
}

// Level returns the peak amplitude of the most recent drain, 0 to 1.
func (w *Wasmix) Level() float64 {
	return w.recorder.Status().Level
}

// Overruns returns how many blocks the capture ring has dropped.
func (w *Wasmix) Overruns() uint64 {
	return w.recorder.Status().Overruns
}

// opCtx returns the session context while a session is open, falling back
// to the background context so reads keep working after Stop.
func (w *Wasmix) opCtx() context.Context {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.ctx != nil {
		return w.ctx
	}
	return context.Background()
}

// abortStart unwinds a partially opened session: the canceled session
// context must not leak into later reads. Callers hold w.mu.
func (w *Wasmix) abortStart(cancel context.CancelFunc) {
	cancel()
	w.ctx = nil
	w.cancel = nil
	w.unlockStore()
}

// unlockStore releases the store lock. Callers hold w.mu.
func (w *Wasmix) unlockStore() {
	if w.flk == nil {
		return
	}
	if err := w.flk.Unlock(); err != nil {
		w.logger.Warn("store unlock failed", ports.Err(err))
	}
	w.flk = nil
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnRenderSaved(key string, bytes int) {
	if e.handler == nil {
		return
	}
	e.handler.OnRenderSaved(RenderSavedEvent{
		Key:   key,
		Bytes: bytes,
	})
}

func (e *eventEmitterWrapper) OnJournalError(doc string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnJournalError(JournalErrorEvent{
		Doc:   doc,
		Error: err,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

func renderFromRecord(rec domain.RenderRecord) Render {
	return Render{
		Path:    rec.Path,
		Bytes:   rec.Bytes,
		SavedAt: time.UnixMilli(rec.SavedAt),
	}
}

func historyFromEntry(e domain.JournalEntry) HistoryEntry {
	return HistoryEntry{
		Seq:     e.Seq,
		Time:    time.UnixMilli(e.TS),
		Kind:    e.Kind,
		Payload: append([]byte(nil), e.Payload...),
	}
}

func sessionStateFrom(st domain.JournalState) SessionState {
	out := SessionState{
		LastSeq: st.LastSeq,
		Renders: make([]Render, len(st.Renders)),
	}
	for i, r := range st.Renders {
		out.Renders[i] = Render{
			Path:    r.Path,
			Bytes:   r.Bytes,
			SavedAt: time.UnixMilli(r.SavedAt),
		}
	}
	return out
}
