package wasmix_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yukihamada/wasmix-sub003/pkg/wasmix"
)

// =============================================================================
// Test Utilities
// =============================================================================

// testLogger implements wasmix.Logger for capturing log output in tests.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func newTestLogger() *testLogger {
	return &testLogger{messages: make([]string, 0)}
}

func (l *testLogger) Debug(msg string, fields ...wasmix.LogField) {
	l.log("DEBUG", msg)
}

func (l *testLogger) Info(msg string, fields ...wasmix.LogField) {
	l.log("INFO", msg)
}

func (l *testLogger) Warn(msg string, fields ...wasmix.LogField) {
	l.log("WARN", msg)
}

func (l *testLogger) Error(msg string, fields ...wasmix.LogField) {
	l.log("ERROR", msg)
}

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *testLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]string, len(l.messages))
	copy(cp, l.messages)
	return cp
}

// scriptedDevice implements wasmix.DeviceSource. The test drives it by
// calling emit; nothing is delivered on its own.
type scriptedDevice struct {
	mu          sync.Mutex
	handler     wasmix.BlockHandler
	accept      []int // rates accepted by Open; empty accepts any
	unavailable bool
	opened      bool
	started     bool
	rate        int
}

func (d *scriptedDevice) Open(ctx context.Context, cfg wasmix.DeviceConfig, h wasmix.BlockHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unavailable {
		return fmt.Errorf("no input device: %w", wasmix.ErrDeviceUnavailable)
	}
	if len(d.accept) > 0 {
		ok := false
		for _, r := range d.accept {
			if r == cfg.SampleRate {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("rate %d: %w", cfg.SampleRate, wasmix.ErrDeviceConfigRejected)
		}
	}
	d.handler = h
	d.opened = true
	d.rate = cfg.SampleRate
	return nil
}

func (d *scriptedDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *scriptedDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	return nil
}

func (d *scriptedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	d.handler = nil
	return nil
}

// emit delivers one block to the registered handler, as the audio callback
// would.
func (d *scriptedDevice) emit(samples []float32) {
	d.mu.Lock()
	h := d.handler
	started := d.started
	d.mu.Unlock()
	if started && h != nil {
		h(samples)
	}
}

func block(v float32, n int) []float32 {
	b := make([]float32, n)
	for i := range b {
		b[i] = v
	}
	return b
}

// trackingPlugin tracks initialization and shutdown calls for testing.
type trackingPlugin struct {
	name          string
	initOrder     *[]string
	shutdownOrder *[]string
	initError     error
	shutdownError error
	mu            sync.Mutex
	initialized   bool
	shutdown      bool
}

func newTrackingPlugin(name string, initOrder, shutdownOrder *[]string) *trackingPlugin {
	return &trackingPlugin{
		name:          name,
		initOrder:     initOrder,
		shutdownOrder: shutdownOrder,
	}
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg wasmix.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initError != nil {
		return p.initError
	}

	*p.initOrder = append(*p.initOrder, p.name)
	p.initialized = true
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	*p.shutdownOrder = append(*p.shutdownOrder, p.name)
	p.shutdown = true

	if p.shutdownError != nil {
		return p.shutdownError
	}
	return nil
}

func (p *trackingPlugin) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

func (p *trackingPlugin) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// eventTracker records every event the instance raises.
type eventTracker struct {
	wasmix.BaseEventHandler
	mu           sync.Mutex
	stateChanges []wasmix.StateChangeEvent
	saved        []wasmix.RenderSavedEvent
	journalErrs  []wasmix.JournalErrorEvent
}

func newEventTracker() *eventTracker {
	return &eventTracker{
		stateChanges: make([]wasmix.StateChangeEvent, 0),
		saved:        make([]wasmix.RenderSavedEvent, 0),
		journalErrs:  make([]wasmix.JournalErrorEvent, 0),
	}
}

func (e *eventTracker) OnStateChange(event wasmix.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanges = append(e.stateChanges, event)
}

func (e *eventTracker) OnRenderSaved(event wasmix.RenderSavedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = append(e.saved, event)
}

func (e *eventTracker) OnJournalError(event wasmix.JournalErrorEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.journalErrs = append(e.journalErrs, event)
}

func (e *eventTracker) StateChanges() []wasmix.StateChangeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]wasmix.StateChangeEvent, len(e.stateChanges))
	copy(cp, e.stateChanges)
	return cp
}

func (e *eventTracker) Saved() []wasmix.RenderSavedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]wasmix.RenderSavedEvent, len(e.saved))
	copy(cp, e.saved)
	return cp
}

// createTestConfig creates a minimal valid config for testing.
func createTestConfig(t *testing.T) wasmix.Config {
	t.Helper()
	return wasmix.Config{
		StoreRoot:    t.TempDir(),
		BlockSize:    128,
		PollInterval: 5 * time.Millisecond,
	}
}

// =============================================================================
// Capture Round Trip Tests
// =============================================================================

func TestCaptureRoundTrip(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{}
	tracker := newEventTracker()

	w, err := wasmix.New(cfg,
		wasmix.WithDeviceSource(dev),
		wasmix.WithEventHandler(tracker),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := w.Monitor(); err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	if got := w.CaptureStatus().SampleRate; got != 48000 {
		t.Errorf("SampleRate = %d, want 48000 (first ladder rung)", got)
	}

	if err := w.Record(); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		dev.emit(block(0.5, 128))
	}

	// StopCapture folds still-buffered blocks into the take, so no waiting
	// on the drain cadence is needed.
	if err := w.StopCapture(); err != nil {
		t.Fatalf("StopCapture() failed: %v", err)
	}

	status := w.CaptureStatus()
	if status.TakeSamples != 384 {
		t.Fatalf("TakeSamples = %d, want 384", status.TakeSamples)
	}
	if status.Overruns != 0 {
		t.Errorf("Overruns = %d, want 0", status.Overruns)
	}
	if status.State != "stopped" {
		t.Errorf("capture state = %q, want stopped", status.State)
	}

	data, err := w.ExportWAV()
	if err != nil {
		t.Fatalf("ExportWAV() failed: %v", err)
	}
	wantBytes := 44 + 384*2
	if len(data) != wantBytes {
		t.Fatalf("ExportWAV() length = %d, want %d", len(data), wantBytes)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("ExportWAV() did not produce a RIFF/WAVE header")
	}
	if got := int16(binary.LittleEndian.Uint16(data[44:46])); got != 16384 {
		t.Errorf("first sample = %d, want 16384", got)
	}

	rec, err := w.SaveRender("takes/mix.wav")
	if err != nil {
		t.Fatalf("SaveRender() failed: %v", err)
	}
	if rec.Path != "takes/mix.wav" {
		t.Errorf("render path = %q, want takes/mix.wav", rec.Path)
	}
	if rec.Bytes != uint64(wantBytes) {
		t.Errorf("render bytes = %d, want %d", rec.Bytes, wantBytes)
	}

	// Rejected keys must not reach the store or the journal.
	if _, err := w.SaveRender("../escape.wav"); !errors.Is(err, wasmix.ErrBadPath) {
		t.Errorf("SaveRender(../escape.wav) error = %v, want ErrBadPath", err)
	}

	hist, err := w.History()
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("History() returned %d entries, want 1", len(hist))
	}
	if hist[0].Kind != "save-render" {
		t.Errorf("entry kind = %q, want save-render", hist[0].Kind)
	}
	var payload struct {
		Path  string `json:"path"`
		Bytes uint64 `json:"bytes"`
	}
	if err := json.Unmarshal(hist[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal journal payload: %v", err)
	}
	if payload.Path != "takes/mix.wav" || payload.Bytes != uint64(wantBytes) {
		t.Errorf("journal payload = %+v, want {takes/mix.wav %d}", payload, wantBytes)
	}

	st, err := w.SessionState()
	if err != nil {
		t.Fatalf("SessionState() failed: %v", err)
	}
	if st.LastSeq != 1 || len(st.Renders) != 1 {
		t.Errorf("SessionState() = {LastSeq:%d Renders:%d}, want {1 1}", st.LastSeq, len(st.Renders))
	}

	loaded, err := w.LoadRender("takes/mix.wav")
	if err != nil {
		t.Fatalf("LoadRender() failed: %v", err)
	}
	if len(loaded) != len(data) {
		t.Errorf("LoadRender() length = %d, want %d", len(loaded), len(data))
	}

	saved := tracker.Saved()
	if len(saved) != 1 || saved[0].Key != "takes/mix.wav" || saved[0].Bytes != wantBytes {
		t.Errorf("OnRenderSaved events = %+v, want one for takes/mix.wav", saved)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

func TestMonitorNegotiatesDownLadder(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{accept: []int{16000}}

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Monitor(); err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	if got := w.CaptureStatus().SampleRate; got != 16000 {
		t.Errorf("SampleRate = %d, want 16000 after walking the ladder", got)
	}
}

func TestMonitorDeviceUnavailable(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{unavailable: true}

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	err = w.Monitor()
	if !errors.Is(err, wasmix.ErrDeviceUnavailable) {
		t.Errorf("Monitor() error = %v, want ErrDeviceUnavailable", err)
	}

	// A device failure must not take the session down.
	if w.Status() != wasmix.StateRunning {
		t.Errorf("Status = %v, want Running after device failure", w.Status())
	}
	if got := w.CaptureStatus().State; got != "idle" {
		t.Errorf("capture state = %q, want idle", got)
	}
}

func TestRecordBeforeMonitorFails(t *testing.T) {
	cfg := createTestConfig(t)
	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Record(); !errors.Is(err, wasmix.ErrInvalidState) {
		t.Errorf("Record() before Monitor() error = %v, want ErrInvalidState", err)
	}
}

func TestExportEmptyTakeHeaderOnly(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{}
	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Monitor(); err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	if err := w.StopCapture(); err != nil {
		t.Fatalf("StopCapture() failed: %v", err)
	}

	data, err := w.ExportWAV()
	if err != nil {
		t.Fatalf("ExportWAV() failed: %v", err)
	}
	if len(data) != 44 {
		t.Errorf("empty take export length = %d, want 44", len(data))
	}
}

func TestStopEndsLiveCapture(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{}
	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := w.Monitor(); err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	if err := w.Record(); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	dev.emit(block(0.25, 128))

	// Stop without StopCapture: the session shutdown ends the live capture.
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	if w.Status() != wasmix.StateStopped {
		t.Errorf("Status = %v, want Stopped", w.Status())
	}
	if got := w.CaptureStatus().State; got != "stopped" {
		t.Errorf("capture state = %q, want stopped", got)
	}

	// The take survives shutdown for a final export.
	data, err := w.ExportWAV()
	if err != nil {
		t.Fatalf("ExportWAV() after Stop failed: %v", err)
	}
	if len(data) != 44+128*2 {
		t.Errorf("export length = %d, want %d", len(data), 44+128*2)
	}
}

// =============================================================================
// Session Guard Tests
// =============================================================================

func TestCaptureOpsRequireSession(t *testing.T) {
	cfg := createTestConfig(t)
	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := w.Monitor(); !errors.Is(err, wasmix.ErrNotRunning) {
		t.Errorf("Monitor() error = %v, want ErrNotRunning", err)
	}
	if err := w.Record(); !errors.Is(err, wasmix.ErrNotRunning) {
		t.Errorf("Record() error = %v, want ErrNotRunning", err)
	}
	if err := w.StopCapture(); !errors.Is(err, wasmix.ErrNotRunning) {
		t.Errorf("StopCapture() error = %v, want ErrNotRunning", err)
	}
	if _, err := w.SaveRender("a.wav"); !errors.Is(err, wasmix.ErrNotRunning) {
		t.Errorf("SaveRender() error = %v, want ErrNotRunning", err)
	}
	if _, err := w.SnapshotJournal(); !errors.Is(err, wasmix.ErrNotRunning) {
		t.Errorf("SnapshotJournal() error = %v, want ErrNotRunning", err)
	}

	// Export is in-memory only, but there is no take before the first
	// capture session.
	if _, err := w.ExportWAV(); !errors.Is(err, wasmix.ErrInvalidState) {
		t.Errorf("ExportWAV() error = %v, want ErrInvalidState", err)
	}
}

func TestInspectionWorksWithoutSession(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{}

	// Seed the store through a full session.
	w1, err := wasmix.New(cfg, wasmix.WithDeviceSource(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ctx := context.Background()
	if err := w1.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := w1.Monitor(); err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	if err := w1.Record(); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	dev.emit(block(0.5, 128))
	if err := w1.StopCapture(); err != nil {
		t.Fatalf("StopCapture() failed: %v", err)
	}
	if _, err := w1.SaveRender("seed.wav"); err != nil {
		t.Fatalf("SaveRender() failed: %v", err)
	}
	if err := w1.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	// A second instance can inspect the store without opening a session.
	w2, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	keys, err := w2.Renders()
	if err != nil {
		t.Fatalf("Renders() failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "seed.wav" {
		t.Errorf("Renders() = %v, want [seed.wav]", keys)
	}

	hist, err := w2.History()
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(hist) != 1 {
		t.Errorf("History() returned %d entries, want 1", len(hist))
	}

	st, err := w2.SessionState()
	if err != nil {
		t.Fatalf("SessionState() failed: %v", err)
	}
	if st.LastSeq != 1 {
		t.Errorf("SessionState().LastSeq = %d, want 1", st.LastSeq)
	}

	if _, err := w2.LoadRender("seed.wav"); err != nil {
		t.Errorf("LoadRender() failed: %v", err)
	}
}

func TestInspectionOnColdStore(t *testing.T) {
	cfg := createTestConfig(t)
	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	keys, err := w.Renders()
	if err != nil {
		t.Fatalf("Renders() on cold store failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Renders() = %v, want empty", keys)
	}

	st, err := w.SessionState()
	if err != nil {
		t.Fatalf("SessionState() on cold store failed: %v", err)
	}
	if st.LastSeq != 0 || len(st.Renders) != 0 {
		t.Errorf("SessionState() = %+v, want zero state", st)
	}
}

// =============================================================================
// Store Lock Tests
// =============================================================================

func TestStoreLockRejectsSecondInstance(t *testing.T) {
	cfg := createTestConfig(t)

	w1, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	w2, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w1.Start(ctx); err != nil {
		t.Fatalf("first Start() failed: %v", err)
	}

	err = w2.Start(ctx)
	if !errors.Is(err, wasmix.ErrStoreLocked) {
		t.Fatalf("second Start() error = %v, want ErrStoreLocked", err)
	}
	// Contention is an orderly refusal, not a crash.
	if w2.Status() != wasmix.StateStopped {
		t.Errorf("second instance Status = %v, want Stopped", w2.Status())
	}

	if err := w1.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	// The lock is released on Stop, so the second instance can now open.
	if err := w2.Start(ctx); err != nil {
		t.Fatalf("Start() after release failed: %v", err)
	}
	if err := w2.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

func TestRestartSameInstance(t *testing.T) {
	cfg := createTestConfig(t)
	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := w.Start(ctx); err != nil {
			t.Fatalf("Start() iteration %d failed: %v", i, err)
		}
		if err := w.Stop(); err != nil {
			t.Fatalf("Stop() iteration %d failed: %v", i, err)
		}
	}

	if w.Status() != wasmix.StateStopped {
		t.Errorf("final Status = %v, want Stopped", w.Status())
	}
}

func TestJournalSurvivesRestart(t *testing.T) {
	cfg := createTestConfig(t)
	dev := &scriptedDevice{}

	w1, err := wasmix.New(cfg, wasmix.WithDeviceSource(dev))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ctx := context.Background()
	if err := w1.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := w1.Monitor(); err != nil {
		t.Fatalf("Monitor() failed: %v", err)
	}
	if err := w1.Record(); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	dev.emit(block(0.5, 128))
	if err := w1.StopCapture(); err != nil {
		t.Fatalf("StopCapture() failed: %v", err)
	}
	if _, err := w1.SaveRender("a.wav"); err != nil {
		t.Fatalf("SaveRender(a.wav) failed: %v", err)
	}
	if _, err := w1.SaveRender("b.wav"); err != nil {
		t.Fatalf("SaveRender(b.wav) failed: %v", err)
	}
	if err := w1.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}

	// A fresh instance on the same store recovers the full history.
	w2, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w2.Start(ctx); err != nil {
		t.Fatalf("Start() on existing store failed: %v", err)
	}
	defer func() { _ = w2.Stop() }()

	st, err := w2.SessionState()
	if err != nil {
		t.Fatalf("SessionState() failed: %v", err)
	}
	if st.LastSeq != 2 || len(st.Renders) != 2 {
		t.Fatalf("SessionState() = {LastSeq:%d Renders:%d}, want {2 2}", st.LastSeq, len(st.Renders))
	}
	if st.Renders[0].Path != "a.wav" || st.Renders[1].Path != "b.wav" {
		t.Errorf("recovered renders = %v, want [a.wav b.wav] in append order", st.Renders)
	}
}

// =============================================================================
// Plugin Lifecycle Tests
// =============================================================================

func TestPlugin_InitializationOrder(t *testing.T) {
	cfg := createTestConfig(t)
	logger := newTestLogger()

	var initOrder []string
	var shutdownOrder []string

	plugin1 := newTrackingPlugin("plugin1", &initOrder, &shutdownOrder)
	plugin2 := newTrackingPlugin("plugin2", &initOrder, &shutdownOrder)
	plugin3 := newTrackingPlugin("plugin3", &initOrder, &shutdownOrder)

	w, err := wasmix.New(cfg,
		wasmix.WithLogger(logger),
		wasmix.WithDeviceSource(&scriptedDevice{}),
		wasmix.WithPlugin(plugin1),
		wasmix.WithPlugin(plugin2),
		wasmix.WithPlugin(plugin3),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if len(initOrder) != 3 {
		t.Errorf("Expected 3 plugins initialized, got %d", len(initOrder))
	}
	if initOrder[0] != "plugin1" || initOrder[1] != "plugin2" || initOrder[2] != "plugin3" {
		t.Errorf("Unexpected init order: %v", initOrder)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	// Shutdown runs in reverse of init
	if len(shutdownOrder) != 3 {
		t.Errorf("Expected 3 plugins shutdown, got %d", len(shutdownOrder))
	}
	if shutdownOrder[0] != "plugin3" || shutdownOrder[1] != "plugin2" || shutdownOrder[2] != "plugin1" {
		t.Errorf("Unexpected shutdown order: %v (expected reverse of init)", shutdownOrder)
	}
}

func TestPlugin_InitializationFailure_PreventsStart(t *testing.T) {
	cfg := createTestConfig(t)

	var initOrder []string
	var shutdownOrder []string

	plugin1 := newTrackingPlugin("plugin1", &initOrder, &shutdownOrder)
	plugin2 := newTrackingPlugin("plugin2", &initOrder, &shutdownOrder)
	plugin2.initError = errors.New("intentional init failure")
	plugin3 := newTrackingPlugin("plugin3", &initOrder, &shutdownOrder)

	w, err := wasmix.New(cfg,
		wasmix.WithDeviceSource(&scriptedDevice{}),
		wasmix.WithPlugin(plugin1),
		wasmix.WithPlugin(plugin2),
		wasmix.WithPlugin(plugin3),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	err = w.Start(ctx)
	if err == nil {
		t.Fatal("Start() should have failed due to plugin init error")
	}

	if len(initOrder) != 1 || initOrder[0] != "plugin1" {
		t.Errorf("Expected only plugin1 to init before failure, got: %v", initOrder)
	}
	if plugin3.IsInitialized() {
		t.Error("plugin3 should not have been initialized after plugin2 failed")
	}
	if w.Status() != wasmix.StateCrashed {
		t.Errorf("Status = %v, want Crashed", w.Status())
	}

	// The failed Start released the store lock, so a fresh instance can open.
	w2, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w2.Start(ctx); err != nil {
		t.Fatalf("Start() after failed init should succeed, got: %v", err)
	}
	_ = w2.Stop()
}

func TestPlugin_ShutdownFailure_ContinuesOtherPlugins(t *testing.T) {
	cfg := createTestConfig(t)

	var initOrder []string
	var shutdownOrder []string

	plugin1 := newTrackingPlugin("plugin1", &initOrder, &shutdownOrder)
	plugin2 := newTrackingPlugin("plugin2", &initOrder, &shutdownOrder)
	plugin2.shutdownError = errors.New("intentional shutdown failure")
	plugin3 := newTrackingPlugin("plugin3", &initOrder, &shutdownOrder)

	w, err := wasmix.New(cfg,
		wasmix.WithDeviceSource(&scriptedDevice{}),
		wasmix.WithPlugin(plugin1),
		wasmix.WithPlugin(plugin2),
		wasmix.WithPlugin(plugin3),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	_ = w.Stop()

	if len(shutdownOrder) != 3 {
		t.Errorf("Expected all 3 plugins to attempt shutdown, got: %v", shutdownOrder)
	}
	if !plugin1.IsShutdown() {
		t.Error("plugin1 should have been shutdown")
	}
	if !plugin3.IsShutdown() {
		t.Error("plugin3 should have been shutdown")
	}
}

func TestPlugin_EmptyPluginList(t *testing.T) {
	cfg := createTestConfig(t)

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	if w.Status() != wasmix.StateStopped {
		t.Errorf("Status = %v, want Stopped", w.Status())
	}
}

func TestStartAlreadyRunning(t *testing.T) {
	cfg := createTestConfig(t)

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}

	if err := w.Start(ctx); !errors.Is(err, wasmix.ErrAlreadyRunning) {
		t.Errorf("Second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

func TestStopAlreadyStopped(t *testing.T) {
	cfg := createTestConfig(t)

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := w.Stop(); !errors.Is(err, wasmix.ErrNotRunning) {
		t.Errorf("Stop() without Start() error = %v, want ErrNotRunning", err)
	}
}

// =============================================================================
// Event Handler Tests
// =============================================================================

func TestEventHandlerReceivesStateChanges(t *testing.T) {
	cfg := createTestConfig(t)
	tracker := newEventTracker()

	w, err := wasmix.New(cfg,
		wasmix.WithDeviceSource(&scriptedDevice{}),
		wasmix.WithEventHandler(tracker),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	changes := tracker.StateChanges()
	if len(changes) != 4 {
		t.Fatalf("Expected 4 state changes, got %d: %v", len(changes), changes)
	}
	if changes[0].Previous != wasmix.StateStopped || changes[0].Current != wasmix.StateStarting {
		t.Errorf("First transition = %v -> %v, want Stopped -> Starting",
			changes[0].Previous, changes[0].Current)
	}
	if changes[1].Current != wasmix.StateRunning {
		t.Errorf("Second transition lands in %v, want Running", changes[1].Current)
	}
	if changes[3].Current != wasmix.StateStopped {
		t.Errorf("Last transition lands in %v, want Stopped", changes[3].Current)
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestConcurrentStatusCalls(t *testing.T) {
	cfg := createTestConfig(t)

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Status()
			_ = w.CaptureStatus()
		}()
	}
	wg.Wait()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

func TestConcurrentStartAttempts(t *testing.T) {
	cfg := createTestConfig(t)

	w, err := wasmix.New(cfg, wasmix.WithDeviceSource(&scriptedDevice{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()

	var successCount int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Start(ctx); err == nil {
				atomic.AddInt32(&successCount, 1)
			}
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&successCount) != 1 {
		t.Errorf("Expected exactly 1 successful Start(), got %d", successCount)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

// =============================================================================
// BasePlugin and State Tests
// =============================================================================

func TestBasePlugin_DefaultBehavior(t *testing.T) {
	bp := wasmix.NewBasePlugin("test-base")

	if bp.Name() != "test-base" {
		t.Errorf("Name() = %v, want test-base", bp.Name())
	}

	ctx := context.Background()
	cfg := wasmix.PluginConfig{}

	if err := bp.Initialize(ctx, cfg); err != nil {
		t.Errorf("Initialize() = %v, want nil", err)
	}
	if err := bp.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestBaseEventHandler_DefaultBehavior(t *testing.T) {
	beh := wasmix.BaseEventHandler{}

	// All methods should be no-ops (not panic)
	beh.OnStateChange(wasmix.StateChangeEvent{})
	beh.OnRenderSaved(wasmix.RenderSavedEvent{})
	beh.OnJournalError(wasmix.JournalErrorEvent{})
}

func TestState_StringRepresentation(t *testing.T) {
	tests := []struct {
		state    wasmix.State
		expected string
	}{
		{wasmix.StateStopped, "Stopped"},
		{wasmix.StateStarting, "Starting"},
		{wasmix.StateRunning, "Running"},
		{wasmix.StateStopping, "Stopping"},
		{wasmix.StateCrashed, "Crashed"},
		{wasmix.State(99), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.expected {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.expected)
		}
	}
}

func TestState_CanStart(t *testing.T) {
	if !wasmix.StateStopped.CanStart() {
		t.Error("StateStopped.CanStart() should be true")
	}
	if !wasmix.StateCrashed.CanStart() {
		t.Error("StateCrashed.CanStart() should be true")
	}
	if wasmix.StateRunning.CanStart() {
		t.Error("StateRunning.CanStart() should be false")
	}
	if wasmix.StateStarting.CanStart() {
		t.Error("StateStarting.CanStart() should be false")
	}
	if wasmix.StateStopping.CanStart() {
		t.Error("StateStopping.CanStart() should be false")
	}
}

func TestState_CanStop(t *testing.T) {
	if !wasmix.StateRunning.CanStop() {
		t.Error("StateRunning.CanStop() should be true")
	}
	if !wasmix.StateStarting.CanStop() {
		t.Error("StateStarting.CanStop() should be true")
	}
	if wasmix.StateStopped.CanStop() {
		t.Error("StateStopped.CanStop() should be false")
	}
	if wasmix.StateCrashed.CanStop() {
		t.Error("StateCrashed.CanStop() should be false")
	}
	if wasmix.StateStopping.CanStop() {
		t.Error("StateStopping.CanStop() should be false")
	}
}

func TestState_IsRunning(t *testing.T) {
	if !wasmix.StateRunning.IsRunning() {
		t.Error("StateRunning.IsRunning() should be true")
	}
	if wasmix.StateStopped.IsRunning() {
		t.Error("StateStopped.IsRunning() should be false")
	}
	if wasmix.StateStarting.IsRunning() {
		t.Error("StateStarting.IsRunning() should be false")
	}
}
