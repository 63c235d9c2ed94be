// Package session defines the state record carried through the workflow graph.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage represents the coarse workflow phase of a session.
type Stage string

// Valid stage values, in workflow order.
const (
	StagePMDraft   Stage = "pm_draft"
	StagePMReview  Stage = "pm_review"
	StagePMRevise  Stage = "pm_revise"
	StageArchitect Stage = "architect"
	StageCoding    Stage = "coding"
	StageDone      Stage = "done"
)

// validStages contains all valid stage values for quick lookup.
var validStages = map[Stage]bool{
	StagePMDraft:   true,
	StagePMReview:  true,
	StagePMRevise:  true,
	StageArchitect: true,
	StageCoding:    true,
	StageDone:      true,
}

// IsValid returns true if the stage is a valid Stage value.
func (s Stage) IsValid() bool {
	return validStages[s]
}

// Reviewer roles used as keys in State.Reviews.
const (
	RolePM  = "pm"
	RoleDev = "dev"
	RoleQA  = "qa"
)

// ReviewerRoles lists all reviewer roles in their canonical order.
var ReviewerRoles = []string{RolePM, RoleDev, RoleQA}

// State is the session record carried through the graph. Nodes receive the
// current state and return partial updates; the engine owns merging and
// checkpointing.
type State struct {
	// SessionID is the stable identifier, used as checkpoint key and
	// artifact subdirectory name.
	SessionID string `json:"session_id"`

	// Requirement is the immutable original user text.
	Requirement string `json:"requirement"`

	// WorkspacePath is the absolute path of the per-session artifact root.
	WorkspacePath string `json:"workspace_path"`

	// ProjectDir is the directory generated code is written to.
	// Defaults to WorkspacePath/code.
	ProjectDir string `json:"project_dir,omitempty"`

	// HumanInLoop selects whether interrupt points fire.
	HumanInLoop bool `json:"human_in_loop"`

	// BatchCoding makes a single coder invocation drain all eligible tasks.
	BatchCoding bool `json:"batch_coding,omitempty"`

	// Stage is the current workflow phase.
	Stage Stage `json:"stage"`

	// Artifact paths, set once produced.
	PRDPath     string `json:"prd_path,omitempty"`
	DesignPath  string `json:"design_path,omitempty"`
	TasksPath   string `json:"tasks_path,omitempty"`
	ReviewsPath string `json:"reviews_path,omitempty"`

	// Reviews maps reviewer role to review text.
	Reviews map[string]string `json:"reviews,omitempty"`

	// Feedback is optional human feedback injected on resume. It is consumed
	// by the next executing node and then cleared.
	Feedback string `json:"feedback,omitempty"`

	// Tasks is the ordered task list produced by the architect.
	Tasks []*Task `json:"tasks,omitempty"`

	// CurrentTaskIndex is the next task to attempt.
	CurrentTaskIndex int `json:"current_task_index"`

	// Iterations counts the tasks the coder has handed to the worker,
	// guarding against runaway loops.
	Iterations int `json:"iterations"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// LastError is the structured error from the most recent failure.
	LastError *EngineError `json:"last_error,omitempty"`
}

// NewState creates a session state for the given requirement. The workspace
// path is derived from the workspace root and the generated session ID.
func NewState(requirement, workspaceRoot string) *State {
	id := NewSessionID()
	return &State{
		SessionID:     id,
		Requirement:   requirement,
		WorkspacePath: filepath.Join(workspaceRoot, id),
		Stage:         StagePMDraft,
		Reviews:       make(map[string]string),
		CreatedAt:     time.Now().Truncate(time.Second),
	}
}

// NewSessionID generates a short session identifier (ses_ prefix plus the
// first eight hex characters of a UUID).
func NewSessionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ses_" + raw[:8]
}

// TaskByID returns the task with the given ID, or nil if not present.
func (s *State) TaskByID(id string) *Task {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// PendingCount returns the number of tasks still in pending status.
func (s *State) PendingCount() int {
	n := 0
	for _, t := range s.Tasks {
		if t.Status == StatusPending {
			n++
		}
	}
	return n
}

// Validate checks the state invariants. Artifact paths recorded in state must
// refer to files that exist on disk.
func (s *State) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session id is required")
	}

	if !s.Stage.IsValid() {
		return fmt.Errorf("stage is invalid: %q", s.Stage)
	}

	if s.CurrentTaskIndex < 0 || s.CurrentTaskIndex > len(s.Tasks) {
		return fmt.Errorf("current task index %d out of range [0,%d]", s.CurrentTaskIndex, len(s.Tasks))
	}

	if s.Stage == StageDone && !s.drained() {
		return fmt.Errorf("stage is done but pending tasks remain")
	}

	for _, path := range []string{s.PRDPath, s.DesignPath, s.TasksPath, s.ReviewsPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("artifact path does not exist: %s", path)
		}
	}

	return nil
}

// drained reports whether the task list has no pending work left: every task
// reached a terminal status (completed or blocked). The coder marks tasks
// that are unreachable behind blocked dependencies as blocked before it sets
// the done stage.
func (s *State) drained() bool {
	for _, t := range s.Tasks {
		if t.Status == StatusPending {
			return false
		}
	}
	return true
}
