package session

import (
	"fmt"
	"math"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

// Valid task status values. Transitions are one-way:
// pending → completed or pending → blocked.
const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusBlocked   TaskStatus = "blocked"
)

// validTaskStatuses contains all valid status values for quick lookup.
var validTaskStatuses = map[TaskStatus]bool{
	StatusPending:   true,
	StatusCompleted: true,
	StatusBlocked:   true,
}

// IsValid returns true if the status is a valid TaskStatus value.
func (s TaskStatus) IsValid() bool {
	return validTaskStatuses[s]
}

// Terminal returns true if the status is a terminal status.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusBlocked
}

// Task is one entry of the session task list, persisted in tasks.json.
type Task struct {
	// ID is the unique identifier within the session (e.g. "task_001").
	ID string `json:"id"`

	// Title is the short summary of the task.
	Title string `json:"title"`

	// Description is the detailed standalone description of the task.
	Description string `json:"description"`

	// Dependencies lists task IDs that must be completed before this task.
	Dependencies []string `json:"dependencies"`

	// Status is the current state of the task.
	Status TaskStatus `json:"status"`

	// Priority orders eligible tasks; higher runs first.
	Priority int `json:"priority"`

	// StartedAt is set when the task is handed to the worker.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is set on the pending → completed transition.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// BlockedAt is set on the pending → blocked transition.
	BlockedAt *time.Time `json:"blocked_at,omitempty"`

	// Duration is the seconds between StartedAt and the terminal timestamp,
	// rounded to two decimals.
	Duration float64 `json:"duration,omitempty"`

	// Error records why the task was blocked.
	Error string `json:"error,omitempty"`
}

// Validate checks that the task has all required fields and valid values.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}

	if t.Title == "" {
		return fmt.Errorf("task title is required: %s", t.ID)
	}

	if !t.Status.IsValid() {
		return fmt.Errorf("task status is invalid: %q", t.Status)
	}

	return nil
}

// MarkStarted records the start timestamp. The task must be pending.
func (t *Task) MarkStarted(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("task %s is %s, cannot start", t.ID, t.Status)
	}
	started := now
	t.StartedAt = &started
	return nil
}

// MarkCompleted transitions the task to completed and computes its duration.
func (t *Task) MarkCompleted(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("task %s is %s, cannot complete", t.ID, t.Status)
	}
	completed := now
	t.Status = StatusCompleted
	t.CompletedAt = &completed
	t.Duration = elapsedSeconds(t.StartedAt, now)
	return nil
}

// MarkBlocked transitions the task to blocked, recording the reason.
func (t *Task) MarkBlocked(now time.Time, reason string) error {
	if t.Status != StatusPending {
		return fmt.Errorf("task %s is %s, cannot block", t.ID, t.Status)
	}
	blocked := now
	t.Status = StatusBlocked
	t.BlockedAt = &blocked
	t.Duration = elapsedSeconds(t.StartedAt, now)
	t.Error = reason
	return nil
}

// elapsedSeconds returns seconds between start and end, two decimals.
// Returns 0 if the task was never started.
func elapsedSeconds(start *time.Time, end time.Time) float64 {
	if start == nil {
		return 0
	}
	// Round the duration to centiseconds first so halfway values such as
	// 2.345s round up instead of losing to float representation error.
	secs := end.Sub(*start).Round(10 * time.Millisecond).Seconds()
	return math.Round(secs*100) / 100
}
