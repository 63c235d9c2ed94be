package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/yarlson/autodev/internal/checkpoint"
	"github.com/yarlson/autodev/internal/coder"
	"github.com/yarlson/autodev/internal/config"
	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/llm"
	"github.com/yarlson/autodev/internal/prompt"
	"github.com/yarlson/autodev/internal/session"
	"github.com/yarlson/autodev/internal/worker"
	"github.com/yarlson/autodev/internal/workflow"

	agentpkg "github.com/yarlson/autodev/internal/agent"
)

// loadConfig reads configuration from the working directory and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the checkpoint store under the configured data root.
func openStore(cfg *config.Config) (*checkpoint.FileStore, error) {
	if err := cfg.EnsureRoots(); err != nil {
		return nil, err
	}
	return checkpoint.NewFileStore(cfg.DataRoot)
}

// buildEngine assembles the workflow engine from configuration. The config
// must already be validated; this is where the fail-fast ConfigError surface
// ends and node execution begins.
func buildEngine(cfg *config.Config, store checkpoint.Store, out io.Writer) (*engine.Engine, error) {
	templates, err := prompt.LoadTemplates(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}

	mode, err := worker.NormalizeMode(cfg.ValidationMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrConfig, err)
	}

	classifier := worker.NewClassifier(mode, cfg.CompletionMarkers, cfg.FailureMarkers)

	return workflow.New(workflow.Deps{
		Agents: agentpkg.Deps{
			LLM:       llm.NewAnthropicClient(cfg.APIKey, cfg.BaseURL),
			Templates: templates,
			Model:     cfg.ModelFor,
		},
		Coder: coder.Deps{
			Worker:         worker.NewSubprocessRunner(cfg.ClaudeCommand, classifier),
			PermissionMode: cfg.PermissionMode,
			Timeout:        time.Duration(cfg.ClaudeCLITimeout) * time.Second,
			MaxIterations:  cfg.MaxCodingIterations,
			Out:            out,
		},
		Store:   store,
		Out:     out,
		Verbose: cfg.Verbose(),
	}), nil
}

// resultToExit maps an engine result to the command error driving the
// process exit code. State errors (unknown session, checkpoint schema
// mismatch) exit 3; other failures exit 1.
func resultToExit(result engine.Result) error {
	switch result.Status {
	case engine.StatusDone:
		return nil
	case engine.StatusInterrupted:
		return exitWith(ExitInterrupted,
			"interrupted at stage %s; resume with: autodev continue %s", result.Stage, result.SessionID)
	default:
		code := ExitFailed
		message := "run failed"
		if result.Err != nil {
			message = fmt.Sprintf("[%s] %s", result.Err.Kind, result.Err.Message)
			if result.Err.Kind == session.KindState {
				code = ExitUnknown
			}
		}
		if result.SessionID != "" {
			message = fmt.Sprintf("%s (session %s)", message, result.SessionID)
		}
		return exitWith(code, "%s", message)
	}
}
