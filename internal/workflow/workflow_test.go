package workflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/autodev/internal/agent"
	"github.com/yarlson/autodev/internal/checkpoint"
	"github.com/yarlson/autodev/internal/coder"
	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/llm"
	"github.com/yarlson/autodev/internal/prompt"
	"github.com/yarlson/autodev/internal/session"
	"github.com/yarlson/autodev/internal/worker"
	"github.com/yarlson/autodev/internal/workspace"
)

// scriptedLLM answers planner calls by inspecting the system prompt, so the
// same client works across interrupted and resumed runs.
type scriptedLLM struct {
	tasksJSON string
	calls     []string
}

func (f *scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	switch {
	case strings.Contains(req.System, "senior product manager revising"):
		f.calls = append(f.calls, "pm_revise")
		return "# PRD (revised)", nil
	case strings.Contains(req.System, "senior product manager"):
		f.calls = append(f.calls, "pm_draft")
		return "# PRD (draft)", nil
	case strings.Contains(req.System, "product reviewer"):
		f.calls = append(f.calls, "review_pm")
		return "pm review", nil
	case strings.Contains(req.System, "engineering reviewer"):
		f.calls = append(f.calls, "review_dev")
		return "dev review", nil
	case strings.Contains(req.System, "QA reviewer"):
		f.calls = append(f.calls, "review_qa")
		return "qa review", nil
	case strings.Contains(req.System, "software architect"):
		if strings.Contains(req.Prompt, "Break the design") {
			f.calls = append(f.calls, "architect_tasks")
			return f.tasksJSON, nil
		}
		f.calls = append(f.calls, "architect_design")
		return "# Design", nil
	default:
		return "", fmt.Errorf("%w: unexpected system prompt", session.ErrLLM)
	}
}

// scriptedWorker completes or fails tasks by id.
type scriptedWorker struct {
	failing map[string]bool
	calls   []string
}

func (f *scriptedWorker) Run(ctx context.Context, req worker.Request) (*worker.Outcome, error) {
	id := ""
	for _, line := range strings.Split(req.Prompt, "\n") {
		if strings.HasPrefix(line, "## Task ") {
			id = strings.SplitN(strings.TrimPrefix(line, "## Task "), ":", 2)[0]
		}
	}
	f.calls = append(f.calls, id)

	if f.failing[id] {
		return &worker.Outcome{Success: false, Reason: worker.ReasonNoMarker}, nil
	}
	return &worker.Outcome{Success: true, ExitCode: 0, Stdout: "done"}, nil
}

func tasksJSON(entries ...string) string {
	return "```json\n[" + strings.Join(entries, ",") + "]\n```"
}

func taskEntry(id string, priority int, deps ...string) string {
	depList := "[]"
	if len(deps) > 0 {
		depList = `["` + strings.Join(deps, `","`) + `"]`
	}
	return fmt.Sprintf(`{"id":%q,"title":%q,"description":"d","dependencies":%s,"status":"pending","priority":%d}`,
		id, "do "+id, depList, priority)
}

type harness struct {
	llm    *scriptedLLM
	worker *scriptedWorker
	store  *checkpoint.FileStore
	eng    *engine.Engine
	st     *session.State
}

func newHarness(t *testing.T, tasks string, maxIterations int, failing map[string]bool) *harness {
	t.Helper()

	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	client := &scriptedLLM{tasksJSON: tasks}
	wrk := &scriptedWorker{failing: failing}

	eng := New(Deps{
		Agents: agent.Deps{
			LLM:       client,
			Templates: prompt.NewTemplates(),
			Model:     func(role string) string { return "test-model" },
		},
		Coder: coder.Deps{
			Worker:         wrk,
			PermissionMode: "acceptEdits",
			Timeout:        time.Minute,
			MaxIterations:  maxIterations,
			Out:            &bytes.Buffer{},
		},
		Store: store,
		Out:   &bytes.Buffer{},
	})

	st := session.NewState("build a counter with inc/dec/reset", t.TempDir())
	require.NoError(t, workspace.Ensure(st.WorkspacePath))

	return &harness{llm: client, worker: wrk, store: store, eng: eng, st: st}
}

func TestWorkflow_HappyPathAutoMode(t *testing.T) {
	h := newHarness(t, tasksJSON(taskEntry("task_001", 1), taskEntry("task_002", 1, "task_001")), 50, nil)

	result := h.eng.Run(context.Background(), h.st)

	require.Equal(t, engine.StatusDone, result.Status)
	assert.Equal(t, session.StageDone, h.st.Stage)

	// All artifacts exist on disk.
	for _, path := range []string{h.st.PRDPath, h.st.ReviewsPath, h.st.DesignPath, h.st.TasksPath} {
		require.NotEmpty(t, path)
		_, err := workspace.ReadText(path)
		require.NoError(t, err)
	}

	// Every task completed; iterations bounded by the task count.
	loaded, err := workspace.LoadTasks(h.st.TasksPath)
	require.NoError(t, err)
	for _, tk := range loaded {
		assert.Equal(t, session.StatusCompleted, tk.Status)
	}
	assert.LessOrEqual(t, h.st.Iterations, len(loaded))

	// Dependency ran before its dependent.
	assert.Equal(t, []string{"task_001", "task_002"}, h.worker.calls)

	// The full planner sequence ran exactly once.
	assert.Equal(t, []string{
		"pm_draft", "review_pm", "review_dev", "review_qa",
		"pm_revise", "architect_design", "architect_tasks",
	}, h.llm.calls)
}

func TestWorkflow_HumanInLoop(t *testing.T) {
	t.Run("halts exactly twice in a successful run", func(t *testing.T) {
		h := newHarness(t, tasksJSON(taskEntry("task_001", 1)), 50, nil)
		h.st.HumanInLoop = true

		first := h.eng.Run(context.Background(), h.st)
		require.Equal(t, engine.StatusInterrupted, first.Status)
		assert.Equal(t, session.StageArchitect, first.Stage)

		second := h.eng.Resume(context.Background(), h.st.SessionID, "")
		require.Equal(t, engine.StatusInterrupted, second.Status)
		assert.Equal(t, session.StageCoding, second.Stage)

		third := h.eng.Resume(context.Background(), h.st.SessionID, "")
		require.Equal(t, engine.StatusDone, third.Status)
	})

	t.Run("feedback before architect re-runs pm revision", func(t *testing.T) {
		h := newHarness(t, tasksJSON(taskEntry("task_001", 1)), 50, nil)
		h.st.HumanInLoop = true

		first := h.eng.Run(context.Background(), h.st)
		require.Equal(t, engine.StatusInterrupted, first.Status)

		reviseCalls := func() int {
			n := 0
			for _, c := range h.llm.calls {
				if c == "pm_revise" {
					n++
				}
			}
			return n
		}
		require.Equal(t, 1, reviseCalls())

		// Feedback targets the PRD producer, not the architect.
		second := h.eng.Resume(context.Background(), h.st.SessionID, "Use SQLite not JSON")
		require.Equal(t, engine.StatusInterrupted, second.Status)
		assert.Equal(t, session.StageArchitect, second.Stage, "next interrupt is again before architect")
		assert.Equal(t, 2, reviseCalls())
		assert.NotContains(t, h.llm.calls, "architect_design")
	})
}

func TestWorkflow_WorkerFailureThenSkip(t *testing.T) {
	// A fails; B depends on A; C is independent.
	tasks := tasksJSON(
		taskEntry("task_a", 3),
		taskEntry("task_b", 2, "task_a"),
		taskEntry("task_c", 1),
	)
	h := newHarness(t, tasks, 50, map[string]bool{"task_a": true})

	result := h.eng.Run(context.Background(), h.st)
	require.Equal(t, engine.StatusDone, result.Status)

	loaded, err := workspace.LoadTasks(h.st.TasksPath)
	require.NoError(t, err)
	byID := make(map[string]*session.Task)
	for _, tk := range loaded {
		byID[tk.ID] = tk
	}

	assert.Equal(t, session.StatusBlocked, byID["task_a"].Status)
	assert.Equal(t, session.StatusBlocked, byID["task_b"].Status)
	assert.Equal(t, session.StatusCompleted, byID["task_c"].Status)
}

func TestWorkflow_CrashRecovery(t *testing.T) {
	h := newHarness(t, tasksJSON(taskEntry("task_001", 1), taskEntry("task_002", 1)), 50, nil)
	h.st.HumanInLoop = true

	// Run to the pre-coder interrupt, then pretend the process died while
	// coding: the checkpoint still points at the coder node and task_001 is
	// pending on disk.
	require.Equal(t, engine.StatusInterrupted, h.eng.Run(context.Background(), h.st).Status)
	record, err := h.store.Load(h.st.SessionID)
	require.NoError(t, err)
	require.Equal(t, NodeArchitect, record.NextNode)

	require.Equal(t, engine.StatusInterrupted, h.eng.Resume(context.Background(), h.st.SessionID, "").Status)
	record, err = h.store.Load(h.st.SessionID)
	require.NoError(t, err)
	require.Equal(t, NodeCoder, record.NextNode)

	result := h.eng.Resume(context.Background(), h.st.SessionID, "")
	require.Equal(t, engine.StatusDone, result.Status)

	loaded, err := workspace.LoadTasks(record.State.TasksPath)
	require.NoError(t, err)
	require.Len(t, loaded, 2, "no duplicate tasks")
	for _, tk := range loaded {
		assert.Equal(t, session.StatusCompleted, tk.Status)
		assert.NotNil(t, tk.CompletedAt)
	}
}

func TestWorkflow_PriorityOrdering(t *testing.T) {
	tasks := tasksJSON(
		taskEntry("task_a", 1),
		taskEntry("task_b", 10),
		taskEntry("task_c", 5),
	)
	h := newHarness(t, tasks, 50, nil)

	result := h.eng.Run(context.Background(), h.st)
	require.Equal(t, engine.StatusDone, result.Status)
	assert.Equal(t, []string{"task_b", "task_c", "task_a"}, h.worker.calls)
}

func TestWorkflow_EmptyTaskList(t *testing.T) {
	h := newHarness(t, "```json\n[]\n```", 50, nil)

	result := h.eng.Run(context.Background(), h.st)
	require.Equal(t, engine.StatusDone, result.Status)
	assert.Equal(t, session.StageDone, h.st.Stage)
	assert.Empty(t, h.worker.calls, "coder never invoked the worker")
}

func TestWorkflow_IterationCap(t *testing.T) {
	tasks := tasksJSON(
		taskEntry("t1", 1), taskEntry("t2", 1), taskEntry("t3", 1),
		taskEntry("t4", 1), taskEntry("t5", 1),
	)
	h := newHarness(t, tasks, 2, nil)

	result := h.eng.Run(context.Background(), h.st)

	require.Equal(t, engine.StatusFailed, result.Status)
	require.NotNil(t, result.Err)
	assert.Equal(t, session.KindIterationCap, result.Err.Kind)

	record, err := h.store.Load(h.st.SessionID)
	require.NoError(t, err)
	loaded, err := workspace.LoadTasks(record.State.TasksPath)
	require.NoError(t, err)

	completed, pending := 0, 0
	for _, tk := range loaded {
		switch tk.Status {
		case session.StatusCompleted:
			completed++
		case session.StatusPending:
			pending++
		}
	}
	assert.Equal(t, 2, completed)
	assert.Equal(t, 3, pending)
}

func TestWorkflow_ArchitectValidationFailure(t *testing.T) {
	// Cyclic dependencies: the architect node must fail with a validation
	// error, and resume must re-run the architect.
	cyclic := tasksJSON(taskEntry("a", 1, "b"), taskEntry("b", 1, "a"))
	h := newHarness(t, cyclic, 50, nil)

	result := h.eng.Run(context.Background(), h.st)
	require.Equal(t, engine.StatusFailed, result.Status)
	require.NotNil(t, result.Err)
	assert.Equal(t, session.KindValidation, result.Err.Kind)

	record, err := h.store.Load(h.st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, NodeArchitect, record.NextNode)

	// Fix the architect output and resume: the same node re-runs.
	h.llm.tasksJSON = tasksJSON(taskEntry("a", 1), taskEntry("b", 1, "a"))
	resumed := h.eng.Resume(context.Background(), h.st.SessionID, "")
	assert.Equal(t, engine.StatusDone, resumed.Status)
}

func TestWorkflow_CheckpointRoundTrip(t *testing.T) {
	h := newHarness(t, tasksJSON(taskEntry("task_001", 1)), 50, nil)

	result := h.eng.Run(context.Background(), h.st)
	require.Equal(t, engine.StatusDone, result.Status)

	record, err := h.store.Load(h.st.SessionID)
	require.NoError(t, err)
	assert.Equal(t, h.st.SessionID, record.State.SessionID)
	assert.Equal(t, h.st.Stage, record.State.Stage)
	assert.Equal(t, h.st.Iterations, record.State.Iterations)
	assert.NoError(t, record.State.Validate())
}
