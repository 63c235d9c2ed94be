package worker

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// maxCaptureBytes caps the captured stdout/stderr size.
const maxCaptureBytes = 256 * 1024

// SubprocessRunner executes the coding CLI as a child process.
type SubprocessRunner struct {
	// command is the path to the CLI binary (e.g. "claude").
	command    string
	classifier *Classifier
}

// NewSubprocessRunner creates a runner for the given command and classifier.
func NewSubprocessRunner(command string, classifier *Classifier) *SubprocessRunner {
	return &SubprocessRunner{
		command:    command,
		classifier: classifier,
	}
}

// buildArgs constructs the fixed CLI argument pattern:
// --add-dir <dir> --permission-mode <mode> -p <prompt>.
func buildArgs(req Request) []string {
	var args []string

	if req.AddDir != "" {
		args = append(args, "--add-dir", req.AddDir)
	}
	if req.PermissionMode != "" {
		args = append(args, "--permission-mode", req.PermissionMode)
	}

	// Prompt must be last with -p flag
	args = append(args, "-p", req.Prompt)

	return args
}

// Run executes the CLI, enforcing the wall-clock timeout by killing the
// child's process group, and classifies the captured output.
func (r *SubprocessRunner) Run(ctx context.Context, req Request) (*Outcome, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.command, buildArgs(req)...)
	if req.WorkDir != "" {
		cmd.Dir = req.WorkDir
	}

	// Run the child in its own process group so a timeout kills its
	// descendants too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	stdout := newCappedBuffer(maxCaptureBytes)
	stderr := newCappedBuffer(maxCaptureBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	outcome := &Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Elapsed:  elapsed,
	}

	// Timeout beats any exit status the kill produced.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		outcome.Reason = ReasonTimeout
		return outcome, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("worker cancelled: %w", ctx.Err())
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			outcome.Reason = ReasonNonzeroExit
			return outcome, nil
		}
		// The binary could not be spawned at all.
		outcome.Reason = ReasonSpawn
		outcome.Stderr = runErr.Error()
		return outcome, nil
	}

	outcome.ExitCode = 0
	r.classifier.Classify(outcome)
	return outcome, nil
}
