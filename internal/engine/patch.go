// Package engine drives the workflow graph: node execution, partial-state
// merge, checkpointing, and the interrupt/resume protocol.
package engine

import "github.com/yarlson/autodev/internal/session"

// Patch is a typed partial state update returned by a node. Zero-value
// fields leave the state untouched; Reviews merges by key so concurrent
// reviewer patches compose in any order.
type Patch struct {
	// Stage, when set, becomes the new workflow stage.
	Stage session.Stage

	// Artifact paths; empty strings leave the current value.
	PRDPath     string
	DesignPath  string
	TasksPath   string
	ReviewsPath string

	// Reviews entries are merged into the state by role key.
	Reviews map[string]string

	// Tasks replaces the task list when ReplaceTasks is set. The flag keeps
	// an intentional empty list distinct from "unchanged".
	Tasks        []*session.Task
	ReplaceTasks bool

	// CurrentTaskIndex and Iterations update the counters when non-nil.
	CurrentTaskIndex *int
	Iterations       *int

	// ClearFeedback marks human feedback as consumed.
	ClearFeedback bool
}

// Apply merges the patch into the state.
func (p *Patch) Apply(st *session.State) {
	if p == nil {
		return
	}

	if p.Stage != "" {
		st.Stage = p.Stage
	}
	if p.PRDPath != "" {
		st.PRDPath = p.PRDPath
	}
	if p.DesignPath != "" {
		st.DesignPath = p.DesignPath
	}
	if p.TasksPath != "" {
		st.TasksPath = p.TasksPath
	}
	if p.ReviewsPath != "" {
		st.ReviewsPath = p.ReviewsPath
	}

	if len(p.Reviews) > 0 {
		if st.Reviews == nil {
			st.Reviews = make(map[string]string, len(p.Reviews))
		}
		for role, text := range p.Reviews {
			st.Reviews[role] = text
		}
	}

	if p.ReplaceTasks {
		st.Tasks = p.Tasks
	}
	if p.CurrentTaskIndex != nil {
		st.CurrentTaskIndex = *p.CurrentTaskIndex
	}
	if p.Iterations != nil {
		st.Iterations = *p.Iterations
	}
	if p.ClearFeedback {
		st.Feedback = ""
	}
}

// IntPtr returns a pointer to v, for the counter fields.
func IntPtr(v int) *int {
	return &v
}
