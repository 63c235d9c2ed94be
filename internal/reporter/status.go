// Package reporter formats session status and artifact output for the CLI.
package reporter

import (
	"fmt"
	"strings"

	"github.com/yarlson/autodev/internal/session"
)

// TaskCounts holds the count of tasks in each status.
type TaskCounts struct {
	// Total is the number of tasks in the session.
	Total int

	// Pending, Completed and Blocked count tasks by status.
	Pending   int
	Completed int
	Blocked   int
}

// Status contains the status information displayed for a session.
type Status struct {
	// SessionID identifies the session.
	SessionID string

	// Stage is the current workflow stage.
	Stage session.Stage

	// Counts holds the task counts by status.
	Counts TaskCounts

	// Iterations is the number of tasks the coder has handed to the worker.
	Iterations int

	// LastError is the most recent recorded failure, if any.
	LastError *session.EngineError
}

// BuildStatus derives the status view from a session state.
func BuildStatus(st *session.State) Status {
	status := Status{
		SessionID:  st.SessionID,
		Stage:      st.Stage,
		Iterations: st.Iterations,
		LastError:  st.LastError,
	}

	for _, t := range st.Tasks {
		status.Counts.Total++
		switch t.Status {
		case session.StatusPending:
			status.Counts.Pending++
		case session.StatusCompleted:
			status.Counts.Completed++
		case session.StatusBlocked:
			status.Counts.Blocked++
		}
	}

	return status
}

// Format renders the status for terminal display.
func (s Status) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session: %s\n", s.SessionID)
	fmt.Fprintf(&b, "Stage:   %s\n", s.Stage)

	if s.Counts.Total > 0 {
		fmt.Fprintf(&b, "Tasks:   %d total, %d completed, %d pending, %d blocked\n",
			s.Counts.Total, s.Counts.Completed, s.Counts.Pending, s.Counts.Blocked)
		fmt.Fprintf(&b, "Iterations: %d\n", s.Iterations)
	}

	if s.LastError != nil {
		fmt.Fprintf(&b, "Last error: [%s] %s\n", s.LastError.Kind, s.LastError.Message)
	}

	return b.String()
}
