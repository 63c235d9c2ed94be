package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCLI writes a shell script standing in for the worker binary.
func fakeCLI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-claude")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs(Request{
		Prompt:         "implement task_001",
		AddDir:         "/work/code",
		PermissionMode: "acceptEdits",
	})

	assert.Equal(t, []string{
		"--add-dir", "/work/code",
		"--permission-mode", "acceptEdits",
		"-p", "implement task_001",
	}, args)
}

func TestSubprocessRunner_Run(t *testing.T) {
	t.Run("zero exit with completion marker succeeds in strict mode", func(t *testing.T) {
		cli := fakeCLI(t, `echo "Task completed. Wrote main.go."`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeStrict, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 10 * time.Second})
		require.NoError(t, err)

		assert.True(t, outcome.Success)
		assert.Equal(t, 0, outcome.ExitCode)
		assert.Contains(t, outcome.Stdout, "Task completed")
		assert.Empty(t, outcome.Reason)
		assert.Greater(t, outcome.Elapsed, time.Duration(0))
	})

	t.Run("zero exit with empty stdout fails in strict mode", func(t *testing.T) {
		cli := fakeCLI(t, `true`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeStrict, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 10 * time.Second})
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Equal(t, ReasonNoMarker, outcome.Reason)
	})

	t.Run("zero exit with ambiguous stdout succeeds in lenient mode", func(t *testing.T) {
		cli := fakeCLI(t, `echo "made some progress"`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 10 * time.Second})
		require.NoError(t, err)
		assert.True(t, outcome.Success)
	})

	t.Run("nonzero exit fails regardless of output", func(t *testing.T) {
		cli := fakeCLI(t, `echo "done"; exit 3`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 10 * time.Second})
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Equal(t, 3, outcome.ExitCode)
		assert.Equal(t, ReasonNonzeroExit, outcome.Reason)
	})

	t.Run("stderr is captured", func(t *testing.T) {
		cli := fakeCLI(t, `echo "boom" >&2; exit 1`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 10 * time.Second})
		require.NoError(t, err)
		assert.Contains(t, outcome.Stderr, "boom")
	})

	t.Run("timeout kills the child and reports timeout", func(t *testing.T) {
		cli := fakeCLI(t, `sleep 30`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		start := time.Now()
		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 200 * time.Millisecond})
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Equal(t, ReasonTimeout, outcome.Reason)
		assert.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("runs in the requested working directory", func(t *testing.T) {
		workDir := t.TempDir()
		cli := fakeCLI(t, `pwd`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", WorkDir: workDir, Timeout: 10 * time.Second})
		require.NoError(t, err)
		assert.Contains(t, outcome.Stdout, filepath.Base(workDir))
	})

	t.Run("missing binary reports spawn failure", func(t *testing.T) {
		runner := NewSubprocessRunner(filepath.Join(t.TempDir(), "nope"), NewClassifier(ModeLenient, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 10 * time.Second})
		require.NoError(t, err)
		assert.False(t, outcome.Success)
		assert.Equal(t, ReasonSpawn, outcome.Reason)
		assert.Equal(t, -1, outcome.ExitCode)
	})

	t.Run("cancelled context returns an error", func(t *testing.T) {
		cli := fakeCLI(t, `sleep 30`)
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		_, err := runner.Run(ctx, Request{Prompt: "go", Timeout: time.Minute})
		assert.Error(t, err)
	})

	t.Run("stdout capture is capped", func(t *testing.T) {
		cli := fakeCLI(t, fmt.Sprintf(`head -c %d /dev/zero | tr '\0' 'x'`, maxCaptureBytes*2))
		runner := NewSubprocessRunner(cli, NewClassifier(ModeLenient, nil, nil))

		outcome, err := runner.Run(context.Background(), Request{Prompt: "go", Timeout: 30 * time.Second})
		require.NoError(t, err)
		assert.Len(t, outcome.Stdout, maxCaptureBytes)
	})
}
