package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/yarlson/autodev/internal/checkpoint"
	"github.com/yarlson/autodev/internal/session"
)

// Status is the terminal status of one engine invocation.
type Status string

const (
	// StatusDone indicates the workflow reached its terminal node.
	StatusDone Status = "done"
	// StatusInterrupted indicates execution stopped at a pre-node pause point.
	StatusInterrupted Status = "interrupted"
	// StatusFailed indicates a node error was recorded in last_error.
	StatusFailed Status = "failed"
)

// Result is what an engine invocation returns to the CLI.
type Result struct {
	// Status is the terminal status of this invocation.
	Status Status

	// SessionID identifies the session for later inspection.
	SessionID string

	// Stage is the workflow stage at return time.
	Stage session.Stage

	// Err carries the recorded failure when Status is StatusFailed.
	Err *session.EngineError
}

// Engine executes a graph over a session state, checkpointing after every
// node completion.
type Engine struct {
	graph   *Graph
	store   checkpoint.Store
	out     io.Writer // progress output (nil = disabled)
	verbose bool
}

// New creates an engine for the given graph and checkpoint store.
func New(graph *Graph, store checkpoint.Store, out io.Writer, verbose bool) *Engine {
	return &Engine{
		graph:   graph,
		store:   store,
		out:     out,
		verbose: verbose,
	}
}

func (e *Engine) writeProgress(format string, args ...interface{}) {
	if e.out == nil {
		return
	}
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func (e *Engine) trace(format string, args ...interface{}) {
	if !e.verbose {
		return
	}
	e.writeProgress(format, args...)
}

// Run executes the graph from its start node for a fresh session.
func (e *Engine) Run(ctx context.Context, st *session.State) Result {
	return e.run(ctx, st, []string{e.graph.Start()}, false)
}

// Resume loads the checkpoint for a session and continues from the node that
// was about to run. Non-empty feedback re-enters the producer of the artifact
// the pending node would consume; empty feedback advances past the interrupt.
func (e *Engine) Resume(ctx context.Context, sessionID, feedback string) Result {
	record, err := e.store.Load(sessionID)
	if err != nil {
		engineErr := session.Classify("", err)
		return Result{Status: StatusFailed, SessionID: sessionID, Err: engineErr}
	}

	st := record.State
	if err := st.Validate(); err != nil {
		engineErr := session.NewEngineError(session.KindState, "", err.Error())
		return Result{Status: StatusFailed, SessionID: sessionID, Stage: st.Stage, Err: engineErr}
	}

	if record.NextNode == "" {
		// Session already reached its terminal state.
		return Result{Status: StatusDone, SessionID: sessionID, Stage: st.Stage}
	}

	st.LastError = nil
	target := record.NextNode
	if feedback != "" {
		st.Feedback = feedback
		target = e.graph.Producer(record.NextNode)
		e.trace("feedback routes to %s\n", target)
	}

	return e.run(ctx, st, []string{target}, true)
}

// run drives the frontier until it drains, a pause point fires, or a node
// fails. skipFirstInterrupt suppresses the pause check for the node being
// resumed into, so resume makes progress.
func (e *Engine) run(ctx context.Context, st *session.State, frontier []string, skipFirstInterrupt bool) Result {
	skipInterrupt := skipFirstInterrupt
	lastExecuted := ""

	for len(frontier) > 0 {
		name := frontier[0]
		frontier = frontier[1:]

		if ctx.Err() != nil {
			engineErr := session.NewEngineError(session.KindState, name, "run cancelled")
			return e.fail(st, name, engineErr)
		}

		// A node looping on itself does not re-fire its pause point; the
		// interrupt is a pre-node review gate, not a per-iteration one.
		selfLoop := name == lastExecuted

		if e.graph.interruptBefore[name] && st.HumanInLoop && !skipInterrupt && !selfLoop {
			if err := e.save(st, name); err != nil {
				return e.fail(st, name, session.Classify(name, err))
			}
			e.writeProgress("Interrupted before %s. Resume with: autodev continue %s\n", name, st.SessionID)
			return Result{Status: StatusInterrupted, SessionID: st.SessionID, Stage: st.Stage}
		}
		skipInterrupt = false

		fn, err := e.graph.node(name)
		if err != nil {
			return e.fail(st, name, session.Classify(name, err))
		}

		e.trace("→ %s\n", name)
		patch, err := fn(ctx, st)
		if err != nil {
			return e.fail(st, name, session.Classify(name, err))
		}
		patch.Apply(st)
		lastExecuted = name

		frontier = append(frontier, e.graph.successors(st, name)...)

		next := ""
		if len(frontier) > 0 {
			next = frontier[0]
		}
		if err := e.save(st, next); err != nil {
			return e.fail(st, name, session.Classify(name, err))
		}
	}

	return Result{Status: StatusDone, SessionID: st.SessionID, Stage: st.Stage}
}

// fail records the error in state, checkpoints with the failed node as the
// next node so resume re-executes it, and returns a failed result.
func (e *Engine) fail(st *session.State, node string, engineErr *session.EngineError) Result {
	st.LastError = engineErr
	if err := e.save(st, node); err != nil {
		e.writeProgress("warning: failed to checkpoint after error: %v\n", err)
	}
	return Result{Status: StatusFailed, SessionID: st.SessionID, Stage: st.Stage, Err: engineErr}
}

// save writes the post-node checkpoint.
func (e *Engine) save(st *session.State, nextNode string) error {
	return e.store.Save(&checkpoint.Record{NextNode: nextNode, State: st})
}
