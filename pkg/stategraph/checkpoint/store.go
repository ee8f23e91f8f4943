// Package checkpoint provides persistent checkpoint storage for
// suspension, crash recovery and thread history.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists checkpoints keyed by (thread ID, step).
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores a checkpoint. Checkpoints are immutable: storing a second
	// checkpoint for the same (thread, step) returns ErrConflict.
	Put(ctx context.Context, cp *Checkpoint) error

	// Get retrieves the checkpoint for a thread at a step.
	// Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, threadID string, step int) (*Checkpoint, error)

	// Latest retrieves the highest-step checkpoint of a thread.
	// Returns ErrNotFound if the thread has no checkpoints.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)

	// List returns checkpoint metadata for a thread, ordered by step.
	// An empty threadID lists every thread, grouped by thread in the order
	// threads were first written.
	// Returns empty slice (not error) if nothing matches.
	List(ctx context.Context, threadID string) ([]Info, error)

	// DeleteThread removes all checkpoints for a thread.
	// Returns nil if the thread has no checkpoints.
	DeleteThread(ctx context.Context, threadID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	ThreadID  string
	Step      int
	Status    Status
	Source    Source
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrConflict indicates a checkpoint already exists for (thread, step).
	ErrConflict = errors.New("checkpoint already exists")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)

// Threads returns the distinct thread IDs in store, in first-written order.
func Threads(ctx context.Context, s Store) ([]string, error) {
	infos, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	threads := []string{}
	for _, info := range infos {
		if !seen[info.ThreadID] {
			seen[info.ThreadID] = true
			threads = append(threads, info.ThreadID)
		}
	}
	return threads, nil
}
