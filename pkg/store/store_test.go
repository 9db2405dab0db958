package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// The two implementations must behave the same; run the suite on both.
func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	st, err := NewSQLiteStore(WithDSN(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	defer st.Close()
	runStoreTests(t, st)
}

func runStoreTests(t *testing.T, st Store) {
	ctx := context.Background()

	if _, err := st.LoadBatch(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadBatch(missing) = %v, want ErrNotFound", err)
	}

	b := &Batch{ID: "b1", FlowName: "signup", Total: 2}
	if err := st.SaveBatch(ctx, b); err != nil {
		t.Fatalf("SaveBatch() error: %v", err)
	}

	loaded, err := st.LoadBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("LoadBatch() error: %v", err)
	}
	if loaded.FlowName != "signup" || loaded.Total != 2 {
		t.Errorf("loaded batch = %+v", loaded)
	}

	// Upsert moves the counters forward.
	b.Completed, b.Success, b.LastProcessedID = 1, 1, 1
	if err := st.SaveBatch(ctx, b); err != nil {
		t.Fatalf("SaveBatch() update error: %v", err)
	}
	loaded, _ = st.LoadBatch(ctx, "b1")
	if loaded.Completed != 1 || loaded.Success != 1 || loaded.LastProcessedID != 1 {
		t.Errorf("updated batch = %+v", loaded)
	}

	tasks := []*Task{
		{BatchID: "b1", TaskID: 2, Email: "b@x.com", Status: TaskPending},
		{BatchID: "b1", TaskID: 1, Email: "a@x.com", Status: TaskSuccess, Attempts: 1},
	}
	for _, task := range tasks {
		if err := st.SaveTask(ctx, task); err != nil {
			t.Fatalf("SaveTask() error: %v", err)
		}
	}

	got, err := st.LoadTasks(ctx, "b1")
	if err != nil {
		t.Fatalf("LoadTasks() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(got))
	}
	// Ordered by task ID regardless of insertion order.
	if got[0].TaskID != 1 || got[1].TaskID != 2 {
		t.Errorf("task order = [%d %d], want [1 2]", got[0].TaskID, got[1].TaskID)
	}
	if got[0].Status != TaskSuccess || got[0].Email != "a@x.com" {
		t.Errorf("task 1 = %+v", got[0])
	}

	// Task upsert.
	tasks[0].Status = TaskFailed
	tasks[0].Error = "boom"
	if err := st.SaveTask(ctx, tasks[0]); err != nil {
		t.Fatalf("SaveTask() update error: %v", err)
	}
	got, _ = st.LoadTasks(ctx, "b1")
	if got[1].Status != TaskFailed || got[1].Error != "boom" {
		t.Errorf("updated task = %+v", got[1])
	}

	if tasks, _ := st.LoadTasks(ctx, "other"); len(tasks) != 0 {
		t.Errorf("LoadTasks(other) = %v, want none", tasks)
	}
}
