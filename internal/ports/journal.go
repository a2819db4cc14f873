package ports

import (
	"context"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
)

// Journal records per-document history as append-only, sequence-numbered
// entry logs, one log per document key. Appends are durable once they return.
type Journal interface {
	// Append writes one entry to the document's log with the given kind and
	// JSON-marshaled payload, assigning the next sequence number. The
	// returned entry carries the assigned seq and timestamp.
	Append(ctx context.Context, key, kind string, payload any) (domain.JournalEntry, error)

	// Snapshot folds the document's log into a single snapshot entry and
	// appends it, bounding future replay work.
	Snapshot(ctx context.Context, key string) (domain.JournalEntry, error)

	// Replay folds all readable entries of the document's log into a state.
	// A torn trailing record ends the fold without error.
	Replay(ctx context.Context, key string) (domain.JournalState, error)

	// Entries returns all readable entries of the document's log in append
	// order.
	Entries(ctx context.Context, key string) ([]domain.JournalEntry, error)

	// Close releases all open log files.
	Close() error
}
