// Package store persists batch checkpoints so interrupted batches can
// resume without reprocessing finished accounts.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("batch not found")

// Task statuses.
const (
	TaskPending = "pending"
	TaskRunning = "running"
	TaskSuccess = "success"
	TaskFailed  = "failed"
)

// Batch is the durable summary of one batch run.
type Batch struct {
	ID              string
	FlowName        string
	LastProcessedID int // Highest finished task ID; never decreases
	Total           int
	Completed       int
	Success         int
	Failed          int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Task is the durable record of one account within a batch.
type Task struct {
	BatchID   string
	TaskID    int
	Email     string
	Password  string
	FirstName string
	LastName  string
	Status    string
	Attempts  int
	Error     string
}

// Store persists batches and their tasks. SaveBatch and SaveTask are
// upserts keyed by ID.
type Store interface {
	SaveBatch(ctx context.Context, b *Batch) error
	LoadBatch(ctx context.Context, id string) (*Batch, error)
	SaveTask(ctx context.Context, t *Task) error
	LoadTasks(ctx context.Context, batchID string) ([]*Task, error)
	Close() error
}
