package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	batches map[string]Batch
	tasks   map[string]map[int]Task
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches: make(map[string]Batch),
		tasks:   make(map[string]map[int]Task),
	}
}

// SaveBatch upserts a batch.
func (m *MemoryStore) SaveBatch(ctx context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *b
	if existing, ok := m.batches[b.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	m.batches[b.ID] = stored
	return nil
}

// LoadBatch fetches one batch by ID.
func (m *MemoryStore) LoadBatch(ctx context.Context, id string) (*Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := b
	return &out, nil
}

// SaveTask upserts a task.
func (m *MemoryStore) SaveTask(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID, ok := m.tasks[t.BatchID]
	if !ok {
		byID = make(map[int]Task)
		m.tasks[t.BatchID] = byID
	}
	byID[t.TaskID] = *t
	return nil
}

// LoadTasks fetches all tasks of a batch in task ID order.
func (m *MemoryStore) LoadTasks(ctx context.Context, batchID string) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.tasks[batchID]
	tasks := make([]*Task, 0, len(byID))
	for _, t := range byID {
		out := t
		tasks = append(tasks, &out)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskID < tasks[j].TaskID })
	return tasks, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
