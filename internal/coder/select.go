package coder

import "github.com/yarlson/autodev/internal/session"

// SelectNext picks the next task to attempt: the highest-priority pending
// task whose dependencies are all completed. Ties break by array order.
// Returns nil when no task is eligible.
func SelectNext(tasks []*session.Task) *session.Task {
	statusByID := make(map[string]session.TaskStatus, len(tasks))
	for _, t := range tasks {
		statusByID[t.ID] = t.Status
	}

	var best *session.Task
	for _, t := range tasks {
		if t.Status != session.StatusPending {
			continue
		}
		if !depsCompleted(t, statusByID) {
			continue
		}
		if best == nil || t.Priority > best.Priority {
			best = t
		}
	}
	return best
}

// depsCompleted reports whether every dependency of the task is completed.
// An unknown dependency id keeps the task ineligible.
func depsCompleted(task *session.Task, statusByID map[string]session.TaskStatus) bool {
	for _, dep := range task.Dependencies {
		status, exists := statusByID[dep]
		if !exists || status != session.StatusCompleted {
			return false
		}
	}
	return true
}
