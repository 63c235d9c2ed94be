// Package workflow wires the development workflow graph: PM draft, reviewer
// fan-out, PM revision, architect, and the coding loop.
package workflow

import (
	"io"

	"github.com/yarlson/autodev/internal/agent"
	"github.com/yarlson/autodev/internal/checkpoint"
	"github.com/yarlson/autodev/internal/coder"
	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/session"
)

// Graph node names.
const (
	NodePMDraft   = "pm_draft"
	NodeReviewPM  = "review_pm"
	NodeReviewDev = "review_dev"
	NodeReviewQA  = "review_qa"
	NodePMRevise  = "pm_revise"
	NodeArchitect = "architect"
	NodeCoder     = "coder"
)

// Deps contains everything needed to assemble the engine.
type Deps struct {
	// Agents supplies the planner node collaborators.
	Agents agent.Deps

	// Coder supplies the coding node collaborators.
	Coder coder.Deps

	// Store persists checkpoints.
	Store checkpoint.Store

	// Out receives engine progress output (nil = disabled).
	Out io.Writer

	// Verbose enables node-transition tracing.
	Verbose bool
}

// New assembles the workflow graph and returns the engine driving it.
//
// Interrupts fire before architect and before coder when the session runs
// with human_in_loop. Feedback given on resume routes to the producer of the
// artifact about to be consumed: pm_revise for the pending architect,
// architect for the pending coder.
func New(deps Deps) *engine.Engine {
	g := engine.NewGraph(NodePMDraft)

	g.AddNode(NodePMDraft, agent.PMDraft(deps.Agents))
	g.AddNode(NodeReviewPM, agent.Reviewer(deps.Agents, session.RolePM))
	g.AddNode(NodeReviewDev, agent.Reviewer(deps.Agents, session.RoleDev))
	g.AddNode(NodeReviewQA, agent.Reviewer(deps.Agents, session.RoleQA))
	g.AddNode(NodePMRevise, agent.PMRevise(deps.Agents))
	g.AddNode(NodeArchitect, agent.Architect(deps.Agents))
	g.AddNode(NodeCoder, coder.Node(deps.Coder))

	// pm_draft fans out to the three reviewers.
	g.SetRouter(NodePMDraft, func(st *session.State) []string {
		return []string{NodeReviewPM, NodeReviewDev, NodeReviewQA}
	})

	// Each reviewer routes to the pm_revise join; the join fires only once
	// all three reviews are present, so completion order does not matter.
	reviewJoin := func(st *session.State) []string {
		for _, role := range session.ReviewerRoles {
			if st.Reviews[role] == "" {
				return nil
			}
		}
		return []string{NodePMRevise}
	}
	g.SetRouter(NodeReviewPM, reviewJoin)
	g.SetRouter(NodeReviewDev, reviewJoin)
	g.SetRouter(NodeReviewQA, reviewJoin)

	g.SetRouter(NodePMRevise, func(st *session.State) []string {
		return []string{NodeArchitect}
	})
	g.SetRouter(NodeArchitect, func(st *session.State) []string {
		return []string{NodeCoder}
	})

	// The coder loops on itself until the task list is drained.
	g.SetRouter(NodeCoder, func(st *session.State) []string {
		if st.Stage == session.StageDone {
			return nil
		}
		return []string{NodeCoder}
	})

	g.InterruptBefore(NodeArchitect)
	g.InterruptBefore(NodeCoder)

	g.SetProducer(NodeArchitect, NodePMRevise)
	g.SetProducer(NodeCoder, NodeArchitect)

	return engine.New(g, deps.Store, deps.Out, deps.Verbose)
}
