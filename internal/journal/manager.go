package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/internal/ports"
)

// Manager implements ports.Journal over a directory of per-document logs.
// Logs live under <storeRoot>/.journal, mirroring the document key layout,
// and are opened lazily on first use.
type Manager struct {
	dir    string
	logger ports.Logger

	mu     sync.Mutex
	open   map[string]*Journal
	closed bool
}

// NewManager creates a Manager for the store rooted at storeRoot.
func NewManager(storeRoot string, logger ports.Logger) *Manager {
	return &Manager{
		dir:    filepath.Join(storeRoot, dirName),
		logger: logger,
		open:   make(map[string]*Journal),
	}
}

// journalFor returns the open journal for key, opening it on first use.
func (m *Manager) journalFor(key string) (*Journal, error) {
	rel, err := domain.CleanDocKey(key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("journal manager: %w", os.ErrClosed)
	}
	if j, ok := m.open[rel]; ok {
		return j, nil
	}

	j, err := OpenFile(filepath.Join(m.dir, filepath.FromSlash(rel)+logSuffix), m.logger)
	if err != nil {
		return nil, err
	}
	m.open[rel] = j
	return j, nil
}

// Append writes one entry to the document's log.
func (m *Manager) Append(ctx context.Context, key, kind string, payload any) (domain.JournalEntry, error) {
	j, err := m.journalFor(key)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	return j.Append(ctx, kind, payload)
}

// Snapshot folds the document's log into a snapshot entry and appends it.
func (m *Manager) Snapshot(ctx context.Context, key string) (domain.JournalEntry, error) {
	j, err := m.journalFor(key)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	return j.Snapshot(ctx)
}

// Replay folds the document's log into a state.
func (m *Manager) Replay(ctx context.Context, key string) (domain.JournalState, error) {
	j, err := m.journalFor(key)
	if err != nil {
		return domain.JournalState{}, err
	}
	return j.Replay(ctx)
}

// Entries returns the document's readable entries in append order.
func (m *Manager) Entries(ctx context.Context, key string) ([]domain.JournalEntry, error) {
	j, err := m.journalFor(key)
	if err != nil {
		return nil, err
	}
	return j.Entries(ctx)
}

// Close closes every open log. The manager cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, j := range m.open {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.open = nil
	return errors.Join(errs...)
}
