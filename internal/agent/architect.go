package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/prompt"
	"github.com/yarlson/autodev/internal/session"
	"github.com/yarlson/autodev/internal/workspace"
)

// Architect returns the node that produces Design.md and tasks.json from the
// revised PRD. The task list is validated before it reaches the coder.
func Architect(deps Deps) engine.NodeFunc {
	return func(ctx context.Context, st *session.State) (*engine.Patch, error) {
		prd, err := workspace.ReadText(st.PRDPath)
		if err != nil {
			return nil, err
		}

		design, err := deps.complete(ctx, prompt.RoleArchitect, "architect",
			prompt.ArchitectDesign(prd, st.Feedback))
		if err != nil {
			return nil, err
		}

		designPath := workspace.DesignPath(st.WorkspacePath)
		if err := workspace.WriteText(st.WorkspacePath, designPath, design); err != nil {
			return nil, err
		}

		reply, err := deps.complete(ctx, prompt.RoleArchitect, "architect",
			prompt.ArchitectTasks(prd, design))
		if err != nil {
			return nil, err
		}

		tasks, err := ParseTasks(reply)
		if err != nil {
			return nil, err
		}
		if err := workspace.ValidateTasks(tasks); err != nil {
			return nil, err
		}

		tasksPath := workspace.TasksPath(st.WorkspacePath)
		if err := workspace.SaveTasks(st.WorkspacePath, tasksPath, tasks); err != nil {
			return nil, err
		}

		return &engine.Patch{
			Stage:            session.StageCoding,
			DesignPath:       designPath,
			TasksPath:        tasksPath,
			Tasks:            tasks,
			ReplaceTasks:     true,
			CurrentTaskIndex: engine.IntPtr(0),
			ClearFeedback:    true,
		}, nil
	}
}

// ParseTasks extracts the task array from a model reply. It accepts a fenced
// ```json block or, failing that, the first top-level JSON array in the text.
func ParseTasks(reply string) ([]*session.Task, error) {
	raw := extractJSONArray(reply)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON task array in architect output", session.ErrValidation)
	}

	var tasks []*session.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("%w: task array is malformed: %v", session.ErrValidation, err)
	}

	for _, t := range tasks {
		if t.Status == "" {
			t.Status = session.StatusPending
		}
		if t.Dependencies == nil {
			t.Dependencies = []string{}
		}
	}

	return tasks, nil
}

// extractJSONArray finds the task array in free-form model output.
func extractJSONArray(reply string) string {
	// Prefer a fenced block.
	for _, fence := range []string{"```json", "```"} {
		if start := strings.Index(reply, fence); start >= 0 {
			rest := reply[start+len(fence):]
			if end := strings.Index(rest, "```"); end >= 0 {
				candidate := strings.TrimSpace(rest[:end])
				if strings.HasPrefix(candidate, "[") {
					return candidate
				}
			}
		}
	}

	// Fall back to bracket matching from the first '['.
	start := strings.Index(reply, "[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '[':
			if !inString {
				depth++
			}
		case ']':
			if !inString {
				depth--
				if depth == 0 {
					return reply[start : i+1]
				}
			}
		}
	}
	return ""
}
