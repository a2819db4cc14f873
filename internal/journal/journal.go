// Package journal persists per-document history as append-only JSONL logs.
//
// Each document key gets its own log file under the store's .journal
// directory. One entry is one JSON object on one line; appends are fsynced
// before they return, so a returned append survives a crash. A torn final
// line, the footprint of a crash mid-append, is detected on open and
// discarded before new entries are written.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
	"github.com/yukihamada/wasmix-sub003/internal/ports"
)

const (
	dirName   = ".journal"
	logSuffix = ".log"
)

// Journal is the append-only history log of a single document.
type Journal struct {
	mu      sync.Mutex
	path    string
	w       *os.File
	nextSeq uint64
	wErr    error
	logger  ports.Logger
}

// OpenFile opens (or creates) the log at path, recovering the next sequence
// number from the existing entries. A torn trailing record is truncated away
// so the next append starts on a clean line boundary.
func OpenFile(path string, logger ports.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	_, lastSeq, goodOff, err := scan(path)
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(path); err == nil && fi.Size() > goodOff {
		logger.Warn("discarding torn journal tail",
			ports.String("path", path),
			ports.Int64("bytes", fi.Size()-goodOff))
		if err := os.Truncate(path, goodOff); err != nil {
			return nil, err
		}
	}

	w, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &Journal{path: path, w: w, nextSeq: lastSeq + 1, logger: logger}, nil
}

// Append writes one entry with the given kind and JSON-marshaled payload,
// assigning the next sequence number. The entry is durable when Append
// returns nil.
func (j *Journal) Append(ctx context.Context, kind string, payload any) (domain.JournalEntry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.appendLocked(kind, body)
}

func (j *Journal) appendLocked(kind string, body json.RawMessage) (domain.JournalEntry, error) {
	if j.w == nil {
		return domain.JournalEntry{}, fmt.Errorf("journal append: %w", os.ErrClosed)
	}
	if j.wErr != nil {
		// A failed write may have left a partial line; refuse further
		// appends until the journal is reopened and repaired.
		return domain.JournalEntry{}, fmt.Errorf("journal unusable after write error: %w", j.wErr)
	}

	e := domain.JournalEntry{
		Seq:     j.nextSeq,
		TS:      time.Now().UnixMilli(),
		Kind:    kind,
		Payload: body,
	}
	line, err := json.Marshal(e)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	line = append(line, '\n')

	if _, err := j.w.Write(line); err != nil {
		j.wErr = err
		return domain.JournalEntry{}, err
	}
	if err := j.w.Sync(); err != nil {
		j.wErr = err
		return domain.JournalEntry{}, err
	}
	j.nextSeq++
	return e, nil
}

// Snapshot folds the current log into one snapshot entry and appends it.
// Replay then starts from the snapshot instead of the full history.
func (j *Journal) Snapshot(ctx context.Context) (domain.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, _, _, err := scan(j.path)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	st := foldEntries(entries, j.logger)

	body, err := json.Marshal(st)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	return j.appendLocked(domain.KindSnapshot, body)
}

// Replay folds all readable entries into a state. A torn trailing record
// ends the fold without error.
func (j *Journal) Replay(ctx context.Context) (domain.JournalState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, _, _, err := scan(j.path)
	if err != nil {
		return domain.JournalState{}, err
	}
	return foldEntries(entries, j.logger), nil
}

// Entries returns all readable entries in append order.
func (j *Journal) Entries(ctx context.Context) ([]domain.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, _, _, err := scan(j.path)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the log file. Further appends fail.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.w == nil {
		return nil
	}
	err := j.w.Close()
	j.w = nil
	return err
}

// scan reads the log at path and returns every decodable entry, the last
// good sequence number, and the byte offset just past the last good line.
// Scanning stops at the first record that is torn, corrupt, or out of
// sequence; everything from there on is treated as a lost tail.
func scan(path string) (entries []domain.JournalEntry, lastSeq uint64, goodOff int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, 0, nil
		}
		return nil, 0, 0, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A partial line without a newline is a torn tail.
				return entries, lastSeq, goodOff, nil
			}
			return nil, 0, 0, err
		}
		var e domain.JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return entries, lastSeq, goodOff, nil
		}
		if e.Seq == 0 || e.Seq <= lastSeq {
			return entries, lastSeq, goodOff, nil
		}
		entries = append(entries, e)
		lastSeq = e.Seq
		goodOff += int64(len(line))
	}
}

// foldEntries applies entries in order. An entry whose payload no longer
// decodes is skipped with a warning; its sequence number still counts.
func foldEntries(entries []domain.JournalEntry, logger ports.Logger) domain.JournalState {
	var st domain.JournalState
	for _, e := range entries {
		if err := st.Apply(e); err != nil {
			logger.Warn("skipping undecodable journal entry",
				ports.Uint64("seq", e.Seq),
				ports.String("kind", e.Kind),
				ports.Err(err))
			st.LastSeq = e.Seq
		}
	}
	return st
}
