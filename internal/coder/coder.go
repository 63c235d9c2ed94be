// Package coder implements the iterative coding node: select the next
// eligible task, hand it to the worker CLI, and commit the outcome.
package coder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/prompt"
	"github.com/yarlson/autodev/internal/session"
	"github.com/yarlson/autodev/internal/worker"
	"github.com/yarlson/autodev/internal/workspace"
)

// Deps contains the collaborators of the coder node.
type Deps struct {
	// Worker runs the coding CLI.
	Worker worker.Runner

	// PermissionMode is passed through to the worker CLI.
	PermissionMode string

	// Timeout is the per-task wall-clock limit.
	Timeout time.Duration

	// MaxIterations caps the tasks handed to the worker per session.
	MaxIterations int

	// Out receives progress and warnings (nil = disabled).
	Out io.Writer

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) writeProgress(format string, args ...interface{}) {
	if d.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(d.Out, format, args...)
}

// Node returns the coder node. In default mode one invocation advances the
// loop by exactly one task; with batch coding it drains every eligible task.
// The task file on disk is persisted before and after each transition, so a
// crash mid-task leaves the task pending and it is retried on resume.
func Node(deps Deps) engine.NodeFunc {
	return func(ctx context.Context, st *session.State) (*engine.Patch, error) {
		// Disk is authoritative: reconcile the in-memory copy.
		tasks, err := workspace.LoadTasks(st.TasksPath)
		if err != nil {
			return nil, err
		}
		st.Tasks = tasks

		prd, err := workspace.ReadText(st.PRDPath)
		if err != nil {
			return nil, err
		}
		design, err := workspace.ReadText(st.DesignPath)
		if err != nil {
			return nil, err
		}

		projectDir, err := workspace.ResolveProjectDir(st.WorkspacePath, st.ProjectDir)
		if err != nil {
			return nil, err
		}

		iterations := st.Iterations
		for {
			next := SelectNext(tasks)

			if next == nil {
				if pendingCount(tasks) > 0 {
					// Pending tasks remain but none is eligible: their
					// dependency chains are blocked. Surface that and end.
					blockUnreachable(tasks, deps.now())
					if err := workspace.SaveTasks(st.WorkspacePath, st.TasksPath, tasks); err != nil {
						return nil, err
					}
					deps.writeProgress("warning: %d tasks unreachable behind blocked dependencies\n", terminalBlockedUnreachable(tasks))
				}
				return donePatch(tasks, iterations), nil
			}

			if iterations >= deps.MaxIterations {
				st.Iterations = iterations
				return nil, session.NewEngineError(session.KindIterationCap, "coder",
					fmt.Sprintf("iteration cap %d reached with %d tasks pending", deps.MaxIterations, pendingCount(tasks)))
			}

			if err := runTask(ctx, deps, st, tasks, next, prd, design, projectDir); err != nil {
				return nil, err
			}
			iterations++

			if !st.BatchCoding {
				break
			}
		}

		patch := progressPatch(tasks, iterations)
		if pendingCount(tasks) == 0 {
			patch.Stage = session.StageDone
		}
		return patch, nil
	}
}

// runTask executes one task through the worker and commits its transition.
// The completion write to tasks.json is the commit point: a crash before it
// leaves the task pending for retry.
func runTask(ctx context.Context, deps Deps, st *session.State, tasks []*session.Task, task *session.Task, prd, design, projectDir string) error {
	if err := task.MarkStarted(deps.now()); err != nil {
		return err
	}
	if err := workspace.SaveTasks(st.WorkspacePath, st.TasksPath, tasks); err != nil {
		return err
	}

	deps.writeProgress("Running %s: %s\n", task.ID, task.Title)

	outcome, err := deps.Worker.Run(ctx, worker.Request{
		Prompt:         prompt.CoderTask(prd, design, task, projectDir),
		WorkDir:        projectDir,
		AddDir:         projectDir,
		PermissionMode: deps.PermissionMode,
		Timeout:        deps.Timeout,
	})
	if err != nil {
		return err
	}

	if outcome.Success {
		if err := task.MarkCompleted(deps.now()); err != nil {
			return err
		}
		deps.writeProgress("✓ %s completed in %.2fs\n", task.ID, task.Duration)
	} else {
		reason := fmt.Sprintf("worker failed: %s", outcome.Reason)
		if err := task.MarkBlocked(deps.now(), reason); err != nil {
			return err
		}
		deps.writeProgress("✗ %s blocked (%s)\n", task.ID, outcome.Reason)
	}

	return workspace.SaveTasks(st.WorkspacePath, st.TasksPath, tasks)
}

// donePatch builds the terminal patch once no pending work remains.
func donePatch(tasks []*session.Task, iterations int) *engine.Patch {
	patch := progressPatch(tasks, iterations)
	patch.Stage = session.StageDone
	return patch
}

// progressPatch records the task list and counters after a coder invocation.
func progressPatch(tasks []*session.Task, iterations int) *engine.Patch {
	return &engine.Patch{
		Stage:            session.StageCoding,
		Tasks:            tasks,
		ReplaceTasks:     true,
		Iterations:       engine.IntPtr(iterations),
		CurrentTaskIndex: engine.IntPtr(terminalCount(tasks)),
	}
}

// pendingCount returns how many tasks are still pending.
func pendingCount(tasks []*session.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status == session.StatusPending {
			n++
		}
	}
	return n
}

// terminalCount returns how many tasks reached a terminal status.
func terminalCount(tasks []*session.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status.Terminal() {
			n++
		}
	}
	return n
}

// blockUnreachable marks every remaining pending task blocked; it is only
// called when no pending task is eligible, which means each one sits behind a
// blocked dependency chain.
func blockUnreachable(tasks []*session.Task, now time.Time) {
	for _, t := range tasks {
		if t.Status == session.StatusPending {
			_ = t.MarkBlocked(now, "unreachable: dependency blocked")
		}
	}
}

// terminalBlockedUnreachable counts tasks blocked for unreachability.
func terminalBlockedUnreachable(tasks []*session.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status == session.StatusBlocked && t.Error == "unreachable: dependency blocked" {
			n++
		}
	}
	return n
}
