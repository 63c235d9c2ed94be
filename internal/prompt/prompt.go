// Package prompt builds the role prompts for the planner agents and the
// coding worker.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yarlson/autodev/internal/session"
)

// Role keys for template lookup and overrides.
const (
	RolePMDraft     = "pm_draft"
	RolePMRevise    = "pm_revise"
	RoleReviewerPM  = "reviewer_pm"
	RoleReviewerDev = "reviewer_dev"
	RoleReviewerQA  = "reviewer_qa"
	RoleArchitect   = "architect"
	RoleCoder       = "coder"
)

// defaultSystems holds the built-in system prompt per role. Each reviewer
// carries a distinct persona so the three critiques do not collapse into one
// voice.
var defaultSystems = map[string]string{
	RolePMDraft: `You are a senior product manager. You turn a raw requirement into a
clear, complete Product Requirements Document (PRD) in Markdown. Cover goals,
user stories, functional requirements, and acceptance criteria. Be concrete;
do not pad.`,

	RolePMRevise: `You are a senior product manager revising a PRD after review. Address
every substantive review point and any human feedback. Output the full revised
PRD in Markdown, not a diff.`,

	RoleReviewerPM: `You are a product reviewer. Review the PRD for product soundness:
unclear goals, missing user stories, scope creep, requirements no user asked
for. Be direct and specific. Output your review as Markdown bullet points.`,

	RoleReviewerDev: `You are an engineering reviewer. Review the PRD for technical
feasibility: hidden complexity, missing constraints, dependencies, anything
underspecified for implementation. Be direct and specific. Output your review
as Markdown bullet points.`,

	RoleReviewerQA: `You are a QA reviewer. Review the PRD for testability: missing
acceptance criteria, undefined edge cases, ambiguous behavior that cannot be
verified. Be direct and specific. Output your review as Markdown bullet
points.`,

	RoleArchitect: `You are a software architect. From a PRD you produce a technical
design and an ordered task breakdown suitable for one coding agent working
task by task.`,

	RoleCoder: `You are a coding agent. Implement exactly one task in the project
directory, following the PRD and the technical design. When finished, state
what you completed and which files you wrote.`,
}

// Templates resolves system prompts per role, with optional overrides.
type Templates struct {
	systems map[string]string
}

// NewTemplates returns the built-in templates.
func NewTemplates() *Templates {
	systems := make(map[string]string, len(defaultSystems))
	for role, text := range defaultSystems {
		systems[role] = text
	}
	return &Templates{systems: systems}
}

// LoadTemplates returns the built-in templates merged with overrides from a
// YAML file mapping role keys to system prompt text. An empty path returns
// the defaults.
func LoadTemplates(path string) (*Templates, error) {
	t := NewTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading prompt overrides: %v", session.ErrConfig, err)
	}

	overrides := make(map[string]string)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("%w: parsing prompt overrides: %v", session.ErrConfig, err)
	}

	for role, text := range overrides {
		if _, known := t.systems[role]; !known {
			return nil, fmt.Errorf("%w: unknown prompt role %q", session.ErrConfig, role)
		}
		t.systems[role] = text
	}

	return t, nil
}

// System returns the system prompt for a role.
func (t *Templates) System(role string) string {
	return t.systems[role]
}

// ReviewerRole maps a reviewer state key (pm/dev/qa) to its template role.
func ReviewerRole(role string) string {
	switch role {
	case session.RoleDev:
		return RoleReviewerDev
	case session.RoleQA:
		return RoleReviewerQA
	default:
		return RoleReviewerPM
	}
}

// PMDraft builds the user prompt for the initial PRD.
func PMDraft(requirement string) string {
	var b strings.Builder
	b.WriteString("## Requirement\n\n")
	b.WriteString(requirement)
	b.WriteString("\n\nWrite the PRD now.\n")
	return b.String()
}

// Review builds the user prompt for a reviewer.
func Review(prd string) string {
	var b strings.Builder
	b.WriteString("## PRD under review\n\n")
	b.WriteString(prd)
	b.WriteString("\n\nWrite your review now.\n")
	return b.String()
}

// PMRevise builds the user prompt for the PRD revision.
func PMRevise(requirement, prd string, reviews map[string]string, feedback string) string {
	var b strings.Builder
	b.WriteString("## Original requirement\n\n")
	b.WriteString(requirement)
	b.WriteString("\n\n## Current PRD\n\n")
	b.WriteString(prd)

	for _, role := range session.ReviewerRoles {
		if review := reviews[role]; review != "" {
			fmt.Fprintf(&b, "\n\n## Review (%s)\n\n%s", role, review)
		}
	}

	if feedback != "" {
		b.WriteString("\n\n## Human feedback\n\n")
		b.WriteString(feedback)
	}

	b.WriteString("\n\nWrite the full revised PRD now.\n")
	return b.String()
}

// ArchitectDesign builds the user prompt for the technical design document.
func ArchitectDesign(prd, feedback string) string {
	var b strings.Builder
	b.WriteString("## PRD\n\n")
	b.WriteString(prd)
	if feedback != "" {
		b.WriteString("\n\n## Human feedback\n\n")
		b.WriteString(feedback)
	}
	b.WriteString("\n\nWrite the technical design document in Markdown now.\n")
	return b.String()
}

// ArchitectTasks builds the user prompt for the task breakdown. The reply
// must contain a JSON array of task objects.
func ArchitectTasks(prd, design string) string {
	var b strings.Builder
	b.WriteString("## PRD\n\n")
	b.WriteString(prd)
	b.WriteString("\n\n## Technical design\n\n")
	b.WriteString(design)
	b.WriteString(`

Break the design into implementation tasks. Reply with a JSON array inside a
` + "```json" + ` fence. Each element:

  {
    "id": "task_001",
    "title": "...",
    "description": "...",
    "dependencies": [],
    "status": "pending",
    "priority": 1
  }

Rules: ids unique, dependencies only reference listed ids, no cycles, every
status "pending". Higher priority runs first. Order the array so dependencies
come before dependents.
`)
	return b.String()
}

// CoderTask builds the single prompt handed to the coding worker for one task.
func CoderTask(prd, design string, task *session.Task, projectDir string) string {
	var b strings.Builder
	b.WriteString("Implement exactly one task in ")
	b.WriteString(projectDir)
	b.WriteString(". Do not work on other tasks.\n\n")

	fmt.Fprintf(&b, "## Task %s: %s\n\n%s\n", task.ID, task.Title, task.Description)

	b.WriteString("\n## PRD\n\n")
	b.WriteString(prd)
	b.WriteString("\n\n## Technical design\n\n")
	b.WriteString(design)
	b.WriteString("\n\nWhen finished, state what you completed and which files you wrote.\n")
	return b.String()
}
