package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory checkpoint store for tests and short-lived
// processes. Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]map[int][]byte // threadID -> step -> checkpoint
	threads []string
	closed  bool
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int][]byte),
	}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, cp *Checkpoint) error {
	data, err := cp.Marshal()
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	thread, ok := m.data[cp.ThreadID]
	if !ok {
		thread = make(map[int][]byte)
		m.data[cp.ThreadID] = thread
		m.threads = append(m.threads, cp.ThreadID)
	}
	if _, exists := thread[cp.Step]; exists {
		return fmt.Errorf("%w: thread %s step %d", ErrConflict, cp.ThreadID, cp.Step)
	}

	thread[cp.Step] = data
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, threadID string, step int) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	data, ok := m.data[threadID][step]
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(data)
}

// Latest implements Store.
func (m *MemoryStore) Latest(_ context.Context, threadID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread, ok := m.data[threadID]
	if !ok || len(thread) == 0 {
		return nil, ErrNotFound
	}

	latest := -1
	for step := range thread {
		if step > latest {
			latest = step
		}
	}
	return Unmarshal(thread[latest])
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, threadID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	threads := []string{threadID}
	if threadID == "" {
		threads = m.threads
	}

	infos := []Info{}
	for _, id := range threads {
		thread := m.data[id]
		steps := make([]int, 0, len(thread))
		for step := range thread {
			steps = append(steps, step)
		}
		sort.Ints(steps)

		for _, step := range steps {
			data := thread[step]
			cp, err := Unmarshal(data)
			if err != nil {
				return nil, fmt.Errorf("decode checkpoint %s/%d: %w", id, step, err)
			}
			infos = append(infos, cp.Info(int64(len(data))))
		}
	}

	return infos, nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if _, ok := m.data[threadID]; !ok {
		return nil
	}
	delete(m.data, threadID)
	for i, id := range m.threads {
		if id == threadID {
			m.threads = append(m.threads[:i], m.threads[i+1:]...)
			break
		}
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	m.threads = nil
	return nil
}

// Len returns the total number of checkpoints stored (for testing).
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, thread := range m.data {
		count += len(thread)
	}
	return count
}
