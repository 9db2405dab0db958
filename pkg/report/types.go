// Package report writes a JSON summary of a batch run: one file,
// updated after every account, safe to tail from another process.
package report

import "time"

// Version is the report schema version.
const Version = "1.0.0"

// Report is the batch summary written to disk.
type Report struct {
	Version     string      `json:"version"`
	BatchID     string      `json:"batchId"`
	FlowName    string      `json:"flowName"`
	FlowFile    string      `json:"flowFile"`
	Mode        string      `json:"mode"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	LastUpdated time.Time   `json:"lastUpdated"`
	Summary     Summary     `json:"summary"`
	Tasks       []TaskEntry `json:"tasks"`
}

// Summary contains aggregated counts.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
}

// TaskEntry records one account's outcome.
type TaskEntry struct {
	TaskID   int          `json:"taskId"`
	Email    string       `json:"email"`
	Status   string       `json:"status"`
	Attempts int          `json:"attempts"`
	Error    string       `json:"error,omitempty"`
	Duration *int64       `json:"duration,omitempty"` // milliseconds
	Steps    []StepResult `json:"steps,omitempty"`
}

// StepResult records one executed step of the last attempt.
type StepResult struct {
	Index    int    `json:"index"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration"` // milliseconds
}
