package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations.sql
var migrations string

// SQLiteStore persists batches in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Option configures a SQLiteStore.
type Option func(*options)

type options struct {
	dsn string
}

// WithDSN sets the SQLite data source name. The default is
// ./data/regrunner.db.
func WithDSN(dsn string) Option {
	return func(o *options) { o.dsn = dsn }
}

// NewSQLiteStore opens (or creates) the database and applies the
// schema.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	o := options{dsn: filepath.Join("data", "regrunner.db")}
	for _, opt := range opts {
		opt(&o)
	}

	if dir := filepath.Dir(o.dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", o.dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if _, err := db.Exec(migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveBatch upserts a batch row.
func (s *SQLiteStore) SaveBatch(ctx context.Context, b *Batch) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, flow_name, last_processed_id, total, completed, success, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			flow_name         = excluded.flow_name,
			last_processed_id = excluded.last_processed_id,
			total             = excluded.total,
			completed         = excluded.completed,
			success           = excluded.success,
			failed            = excluded.failed,
			updated_at        = CURRENT_TIMESTAMP`,
		b.ID, b.FlowName, b.LastProcessedID, b.Total, b.Completed, b.Success, b.Failed)
	if err != nil {
		return fmt.Errorf("failed to save batch %s: %w", b.ID, err)
	}
	return nil
}

// LoadBatch fetches one batch by ID.
func (s *SQLiteStore) LoadBatch(ctx context.Context, id string) (*Batch, error) {
	b := &Batch{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, flow_name, last_processed_id, total, completed, success, failed, created_at, updated_at
		FROM batches WHERE id = ?`, id).
		Scan(&b.ID, &b.FlowName, &b.LastProcessedID, &b.Total, &b.Completed, &b.Success, &b.Failed,
			&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", id, err)
	}
	return b, nil
}

// SaveTask upserts a task row.
func (s *SQLiteStore) SaveTask(ctx context.Context, t *Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (batch_id, task_id, email, password, first_name, last_name, status, attempts, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id, task_id) DO UPDATE SET
			email      = excluded.email,
			password   = excluded.password,
			first_name = excluded.first_name,
			last_name  = excluded.last_name,
			status     = excluded.status,
			attempts   = excluded.attempts,
			error      = excluded.error`,
		t.BatchID, t.TaskID, t.Email, t.Password, t.FirstName, t.LastName, t.Status, t.Attempts, t.Error)
	if err != nil {
		return fmt.Errorf("failed to save task %d in batch %s: %w", t.TaskID, t.BatchID, err)
	}
	return nil
}

// LoadTasks fetches all tasks of a batch in task ID order.
func (s *SQLiteStore) LoadTasks(ctx context.Context, batchID string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, task_id, email, password, first_name, last_name, status, attempts, error
		FROM tasks WHERE batch_id = ? ORDER BY task_id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.BatchID, &t.TaskID, &t.Email, &t.Password, &t.FirstName, &t.LastName,
			&t.Status, &t.Attempts, &t.Error); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
