package stategraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Snapshot is the decoded view of one checkpoint of a thread.
type Snapshot[S any] struct {
	State     S
	ThreadID  string
	Step      int
	RunID     string
	Status    Status
	Source    checkpoint.Source
	Timestamp time.Time

	// Frontier lists the nodes that ran in the step.
	Frontier []string
	// Next lists the nodes that run next; empty once the thread is done
	// or while it is suspended.
	Next []string
	// Interrupts are the pending interrupts of a suspended snapshot.
	Interrupts []Interrupt
}

// GetState returns the latest snapshot of a thread.
// Returns ErrNoCheckpoints if the thread has none.
func (cg *CompiledGraph[S]) GetState(ctx context.Context, store checkpoint.Store, threadID string) (Snapshot[S], error) {
	cp, err := store.Latest(ctx, threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return Snapshot[S]{}, fmt.Errorf("%w: %s", ErrNoCheckpoints, threadID)
	}
	if err != nil {
		return Snapshot[S]{}, fmt.Errorf("load latest checkpoint: %w", err)
	}
	return newSnapshot[S](cp)
}

// History returns every snapshot of a thread in step order.
// Returns an empty slice for an unknown thread.
func (cg *CompiledGraph[S]) History(ctx context.Context, store checkpoint.Store, threadID string) ([]Snapshot[S], error) {
	infos, err := store.List(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	snapshots := make([]Snapshot[S], 0, len(infos))
	for _, info := range infos {
		cp, err := store.Get(ctx, threadID, info.Step)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint %d: %w", info.Step, err)
		}
		snap, err := newSnapshot[S](cp)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// Threads lists the IDs of every thread in store, in first-written order.
func Threads(ctx context.Context, store checkpoint.Store) ([]string, error) {
	return checkpoint.Threads(ctx, store)
}

func newSnapshot[S any](cp *checkpoint.Checkpoint) (Snapshot[S], error) {
	if cp.Version != checkpoint.Version {
		return Snapshot[S]{}, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}
	state, err := decodeState[S](cp)
	if err != nil {
		return Snapshot[S]{}, err
	}
	return Snapshot[S]{
		State:      state,
		ThreadID:   cp.ThreadID,
		Step:       cp.Step,
		RunID:      cp.RunID,
		Status:     cp.Status,
		Source:     cp.Source,
		Timestamp:  cp.Timestamp,
		Frontier:   cp.Frontier,
		Next:       cp.Next,
		Interrupts: cp.Interrupts,
	}, nil
}
