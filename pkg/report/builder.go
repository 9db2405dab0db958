package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Builder accumulates task results and persists the report after each
// change. Writes go through a temp file and rename so readers never
// see a partial document.
type Builder struct {
	mu     sync.Mutex
	path   string
	report Report

	taskStart time.Time
	steps     []StepResult
}

// NewBuilder creates a builder writing to path.
func NewBuilder(path, batchID, flowName, flowFile, mode string, total int) *Builder {
	return &Builder{
		path: path,
		report: Report{
			Version:   Version,
			BatchID:   batchID,
			FlowName:  flowName,
			FlowFile:  flowFile,
			Mode:      mode,
			StartTime: time.Now(),
			Summary:   Summary{Total: total},
		},
	}
}

// BeginTask resets per-task state before an account runs.
func (b *Builder) BeginTask() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taskStart = time.Now()
	b.steps = nil
}

// RecordStep appends one executed step of the current attempt. A retry
// starts the step list over.
func (b *Builder) RecordStep(index int, action, detail string, err error, took time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index == 0 {
		b.steps = nil
	}
	step := StepResult{
		Index:    index,
		Action:   action,
		Detail:   detail,
		Passed:   err == nil,
		Duration: took.Milliseconds(),
	}
	if err != nil {
		step.Error = err.Error()
	}
	b.steps = append(b.steps, step)
}

// EndTask folds a finished account into the report and persists it.
func (b *Builder) EndTask(taskID int, email, status string, attempts int, taskErr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	duration := time.Since(b.taskStart).Milliseconds()
	entry := TaskEntry{
		TaskID:   taskID,
		Email:    email,
		Status:   status,
		Attempts: attempts,
		Error:    taskErr,
		Duration: &duration,
		Steps:    b.steps,
	}
	b.report.Tasks = append(b.report.Tasks, entry)
	b.report.Summary.Completed++
	switch status {
	case "success":
		b.report.Summary.Success++
	case "failed":
		b.report.Summary.Failed++
	}
	return b.write()
}

// Finish stamps the end time and persists the final report.
func (b *Builder) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.report.EndTime = &now
	return b.write()
}

func (b *Builder) write() error {
	b.report.LastUpdated = time.Now()

	data, err := json.MarshalIndent(&b.report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(b.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return os.Rename(tmp, b.path)
}
