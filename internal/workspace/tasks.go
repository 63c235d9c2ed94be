package workspace

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yarlson/autodev/internal/session"
)

// LoadTasks reads the ordered task list from tasks.json. The file on disk is
// the source of truth across process restarts.
func LoadTasks(path string) ([]*session.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}

	var tasks []*session.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: task file is malformed: %v", session.ErrValidation, err)
	}

	return tasks, nil
}

// SaveTasks atomically writes the ordered task list to tasks.json.
func SaveTasks(root, path string, tasks []*session.Task) error {
	return WriteJSON(root, path, tasks)
}

// ValidateTasks checks a freshly produced task list: ids unique and
// non-empty, dependencies refer to declared ids, no dependency cycles, and
// every status is pending.
func ValidateTasks(tasks []*session.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[string]*session.Task, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %v", session.ErrValidation, err)
		}
		if t.Status != session.StatusPending {
			return fmt.Errorf("%w: task %s created with status %q, want pending", session.ErrValidation, t.ID, t.Status)
		}
		if _, exists := byID[t.ID]; exists {
			return fmt.Errorf("%w: duplicate task id %q", session.ErrValidation, t.ID)
		}
		byID[t.ID] = t
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("%w: task %q depends on %q, which does not exist", session.ErrValidation, t.ID, dep)
			}
			if dep == t.ID {
				return fmt.Errorf("%w: task %q depends on itself", session.ErrValidation, t.ID)
			}
		}
	}

	if cycle := findCycle(tasks); cycle != "" {
		return fmt.Errorf("%w: dependency cycle through task %q", session.ErrValidation, cycle)
	}

	return nil
}

// findCycle runs a three-color DFS over the dependency edges and returns the
// id of a task on a cycle, or empty string if the graph is acyclic.
func findCycle(tasks []*session.Task) string {
	deps := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		deps[t.ID] = t.Dependencies
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for _, t := range tasks {
		if color[t.ID] == white {
			if hit := visit(t.ID); hit != "" {
				return hit
			}
		}
	}
	return ""
}
