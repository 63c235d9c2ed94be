// Package agent implements the planner nodes: PM draft and revision, the
// three reviewers, and the architect.
package agent

import (
	"context"
	"fmt"

	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/llm"
	"github.com/yarlson/autodev/internal/prompt"
	"github.com/yarlson/autodev/internal/session"
	"github.com/yarlson/autodev/internal/workspace"
)

// Deps contains the collaborators shared by all planner nodes.
type Deps struct {
	// LLM is the completion client.
	LLM llm.Client

	// Templates resolves the system prompt per role.
	Templates *prompt.Templates

	// Model maps a role ("pm", "architect", "coder") to a model id.
	Model func(role string) string
}

// complete performs one LLM call for a template role.
func (d Deps) complete(ctx context.Context, templateRole, modelRole, userPrompt string) (string, error) {
	text, err := d.LLM.Complete(ctx, llm.Request{
		Model:  d.Model(modelRole),
		System: d.Templates.System(templateRole),
		Prompt: userPrompt,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: %s produced empty output", session.ErrLLM, templateRole)
	}
	return text, nil
}

// PMDraft returns the node that turns the requirement into the initial PRD.
func PMDraft(deps Deps) engine.NodeFunc {
	return func(ctx context.Context, st *session.State) (*engine.Patch, error) {
		text, err := deps.complete(ctx, prompt.RolePMDraft, "pm", prompt.PMDraft(st.Requirement))
		if err != nil {
			return nil, err
		}

		prdPath := workspace.PRDPath(st.WorkspacePath)
		if err := workspace.WriteText(st.WorkspacePath, prdPath, text); err != nil {
			return nil, err
		}

		return &engine.Patch{
			Stage:   session.StagePMReview,
			PRDPath: prdPath,
		}, nil
	}
}

// Reviewer returns the node for one reviewer role (pm, dev or qa). Each
// reviewer sees only the PRD; its patch touches only its own review key.
func Reviewer(deps Deps, role string) engine.NodeFunc {
	templateRole := prompt.ReviewerRole(role)
	return func(ctx context.Context, st *session.State) (*engine.Patch, error) {
		prd, err := workspace.ReadText(st.PRDPath)
		if err != nil {
			return nil, err
		}

		text, err := deps.complete(ctx, templateRole, "pm", prompt.Review(prd))
		if err != nil {
			return nil, err
		}

		return &engine.Patch{
			Reviews: map[string]string{role: text},
		}, nil
	}
}

// PMRevise returns the node that rewrites the PRD from the three reviews and
// any human feedback, and records the review audit file.
func PMRevise(deps Deps) engine.NodeFunc {
	return func(ctx context.Context, st *session.State) (*engine.Patch, error) {
		prd, err := workspace.ReadText(st.PRDPath)
		if err != nil {
			return nil, err
		}

		text, err := deps.complete(ctx, prompt.RolePMRevise, "pm",
			prompt.PMRevise(st.Requirement, prd, st.Reviews, st.Feedback))
		if err != nil {
			return nil, err
		}

		if err := workspace.WriteText(st.WorkspacePath, st.PRDPath, text); err != nil {
			return nil, err
		}

		reviewsPath := workspace.ReviewsPath(st.WorkspacePath)
		if err := workspace.WriteText(st.WorkspacePath, reviewsPath, reviewsDocument(st.Reviews)); err != nil {
			return nil, err
		}

		return &engine.Patch{
			Stage:         session.StageArchitect,
			ReviewsPath:   reviewsPath,
			ClearFeedback: true,
		}, nil
	}
}

// reviewsDocument concatenates the reviews with role headers.
func reviewsDocument(reviews map[string]string) string {
	doc := "# PRD Reviews\n"
	for _, role := range session.ReviewerRoles {
		if text := reviews[role]; text != "" {
			doc += fmt.Sprintf("\n## %s review\n\n%s\n", role, text)
		}
	}
	return doc
}
