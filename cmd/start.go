package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yarlson/autodev/internal/engine"
	"github.com/yarlson/autodev/internal/session"
	"github.com/yarlson/autodev/internal/workspace"
)

func newStartCmd() *cobra.Command {
	var humanLoop bool
	var projectDir string
	var batchCoding bool

	cmd := &cobra.Command{
		Use:   "start <requirement>",
		Short: "Create a session and run the workflow",
		Long: `Create a new session for the given requirement and run the workflow until
completion or the first interrupt point. With --human-loop, execution pauses
before the architect and before the coding loop for review.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, strings.Join(args, " "), humanLoop, projectDir, batchCoding)
		},
	}

	cmd.Flags().BoolVar(&humanLoop, "human-loop", false, "pause before architect and coding for human review")
	cmd.Flags().StringVar(&projectDir, "project-dir", "", "existing directory to write generated code to (default: <workspace>/code)")
	cmd.Flags().BoolVar(&batchCoding, "batch-coding", false, "drain all eligible tasks in one coder invocation")

	return cmd
}

func runStart(cmd *cobra.Command, requirement string, humanLoop bool, projectDir string, batchCoding bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	workspaceRoot, err := filepath.Abs(cfg.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	st := session.NewState(requirement, workspaceRoot)
	st.HumanInLoop = humanLoop || cfg.HumanInLoop
	st.BatchCoding = batchCoding

	if projectDir != "" {
		resolved, err := workspace.ResolveProjectDir(st.WorkspacePath, projectDir)
		if err != nil {
			return fmt.Errorf("%w: %v", session.ErrConfig, err)
		}
		st.ProjectDir = resolved
	}

	if err := workspace.Ensure(st.WorkspacePath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	eng, err := buildEngine(cfg, store, out)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Session %s created\n", st.SessionID)

	result := eng.Run(cmd.Context(), st)
	if result.Status == engine.StatusDone {
		_, _ = fmt.Fprintf(out, "Session %s finished at stage %s\n", result.SessionID, result.Stage)
	}
	return resultToExit(result)
}
