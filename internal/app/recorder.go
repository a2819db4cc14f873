package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yukihamada/wasmix-sub003/internal/capture"
	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/internal/ports"
	"github.com/yukihamada/wasmix-sub003/internal/wav"
)

// CaptureEngine is the slice of the capture engine the recorder drives.
// *capture.Engine satisfies it; tests substitute scripted stand-ins.
type CaptureEngine interface {
	Start(ctx context.Context) error
	Record() error
	Stop() error
	Take() []float32
	SampleRate() int
	State() capture.State
	Status() capture.Status
}

// RecorderEvents is called on recorder milestones. Callbacks run
// synchronously on the calling goroutine.
type RecorderEvents interface {
	// OnRenderSaved fires after a render is committed to the store.
	OnRenderSaved(key string, bytes int)

	// OnJournalError fires when the journal side-write of a committed save
	// fails. The save itself already succeeded.
	OnJournalError(doc string, err error)
}

// RecorderConfig contains configuration for the recorder.
type RecorderConfig struct {
	// DocKey is the journal document the session writes its history to.
	DocKey string

	// SnapshotEvery folds the journal into a snapshot after this many
	// journaled saves, bounding replay work. Zero disables folding.
	SnapshotEvery int
}

// DefaultDocKey is the journal document used when none is configured.
const DefaultDocKey = "session"

// Recorder orchestrates the pipeline: capture engine to WAV encoder to store,
// with the journal recording every committed save. It is the application
// service behind the public facade.
type Recorder struct {
	cfg     RecorderConfig
	engine  CaptureEngine
	store   ports.Store
	journal ports.Journal
	logger  ports.Logger
	events  RecorderEvents
	session string
	saves   atomic.Uint64
}

// NewRecorder creates a recorder with the given dependencies.
func NewRecorder(
	cfg RecorderConfig,
	engine CaptureEngine,
	store ports.Store,
	journal ports.Journal,
	logger ports.Logger,
	events RecorderEvents,
) *Recorder {
	if cfg.DocKey == "" {
		cfg.DocKey = DefaultDocKey
	}
	return &Recorder{
		cfg:     cfg,
		engine:  engine,
		store:   store,
		journal: journal,
		logger:  logger,
		events:  events,
		session: uuid.NewString(),
	}
}

// SessionID returns the identifier correlating this recorder's log lines.
func (r *Recorder) SessionID() string {
	return r.session
}

// Recover replays the session document's journal and returns the folded
// state. It runs before any new capture begins so the application starts
// from the last known-good history.
func (r *Recorder) Recover(ctx context.Context) (domain.JournalState, error) {
	st, err := r.journal.Replay(ctx, r.cfg.DocKey)
	if err != nil {
		return domain.JournalState{}, err
	}
	r.logger.Info("journal replayed",
		ports.String("session", r.session),
		ports.String("doc", r.cfg.DocKey),
		ports.Uint64("last_seq", st.LastSeq),
		ports.Int("renders", len(st.Renders)))
	return st, nil
}

// SessionState replays the session document on demand, without the
// recovery logging. Status surfaces use it for point-in-time reads.
func (r *Recorder) SessionState(ctx context.Context) (domain.JournalState, error) {
	return r.journal.Replay(ctx, r.cfg.DocKey)
}

// Monitor acquires the audio device and starts monitoring.
func (r *Recorder) Monitor(ctx context.Context) error {
	return r.engine.Start(ctx)
}

// Record begins accumulating a fresh take. Valid only while monitoring.
func (r *Recorder) Record() error {
	return r.engine.Record()
}

// StopCapture ends the capture session and releases the device.
func (r *Recorder) StopCapture() error {
	return r.engine.Stop()
}

// Export renders the accumulated take as a WAV artifact. An empty take
// yields a valid header-only file. Fails with ErrInvalidState before the
// first capture session, when no sample rate was ever negotiated.
func (r *Recorder) Export() (domain.RenderArtifact, error) {
	rate := r.engine.SampleRate()
	if rate == 0 {
		return domain.RenderArtifact{}, fmt.Errorf("no capture session has run: %w", domain.ErrInvalidState)
	}

	take := r.engine.Take()
	return domain.RenderArtifact{
		Data:        wav.Encode(take, uint32(rate)),
		SampleRate:  uint32(rate),
		SampleCount: len(take),
		CreatedAt:   time.Now(),
	}, nil
}

// SaveRender exports the current take and commits it to the store under key.
// The journal side-write happens after the save commits; it is an audit
// trail layered on top, so its failure is reported but never undoes or
// fails the save.
func (r *Recorder) SaveRender(ctx context.Context, key string) (domain.RenderRecord, error) {
	art, err := r.Export()
	if err != nil {
		return domain.RenderRecord{}, err
	}
	if err := r.store.Save(ctx, key, art.Data); err != nil {
		return domain.RenderRecord{}, err
	}

	rel, err := domain.CleanDocKey(key)
	if err != nil {
		// Save validated the key already.
		rel = key
	}
	rec := domain.RenderRecord{
		Path:    rel,
		Bytes:   uint64(art.Bytes()),
		SavedAt: time.Now().UnixMilli(),
	}

	r.logger.Info("render saved",
		ports.String("session", r.session),
		ports.String("key", rel),
		ports.Int("bytes", art.Bytes()),
		ports.Duration("duration", art.Duration()))
	if r.events != nil {
		r.events.OnRenderSaved(rel, art.Bytes())
	}

	payload := domain.SaveRenderPayload{Path: rel, Bytes: uint64(art.Bytes())}
	if _, err := r.journal.Append(ctx, r.cfg.DocKey, domain.KindSaveRender, payload); err != nil {
		r.logger.Error("journal append failed",
			ports.String("doc", r.cfg.DocKey),
			ports.String("key", rel),
			ports.Err(err))
		if r.events != nil {
			r.events.OnJournalError(r.cfg.DocKey, err)
		}
	} else if r.cfg.SnapshotEvery > 0 && r.saves.Add(1)%uint64(r.cfg.SnapshotEvery) == 0 {
		if _, err := r.journal.Snapshot(ctx, r.cfg.DocKey); err != nil {
			r.logger.Warn("journal snapshot failed",
				ports.String("doc", r.cfg.DocKey),
				ports.Err(err))
		}
	}

	return rec, nil
}

// Renders lists the stored keys beginning with prefix in lexicographic
// order. An empty prefix lists everything.
func (r *Recorder) Renders(ctx context.Context, prefix string) ([]string, error) {
	return r.store.List(ctx, prefix)
}

// LoadRender retrieves a stored render by key.
func (r *Recorder) LoadRender(ctx context.Context, key string) ([]byte, error) {
	return r.store.Load(ctx, key)
}

// History returns the session document's journal entries in append order.
func (r *Recorder) History(ctx context.Context) ([]domain.JournalEntry, error) {
	return r.journal.Entries(ctx, r.cfg.DocKey)
}

// SnapshotJournal folds the session document's journal into a snapshot
// entry, bounding future replay work.
func (r *Recorder) SnapshotJournal(ctx context.Context) (domain.JournalEntry, error) {
	return r.journal.Snapshot(ctx, r.cfg.DocKey)
}

// Status returns a point-in-time view of the capture engine.
func (r *Recorder) Status() capture.Status {
	return r.engine.Status()
}
