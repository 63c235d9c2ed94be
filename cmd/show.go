package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yarlson/autodev/internal/checkpoint"
	"github.com/yarlson/autodev/internal/workspace"
)

func newShowCmd() *cobra.Command {
	var artifact string

	cmd := &cobra.Command{
		Use:   "show <session_id>",
		Short: "Print a session artifact",
		Long:  "Print the contents of a session artifact file (prd, design or tasks).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], artifact)
		},
	}

	cmd.Flags().StringVar(&artifact, "artifact", "prd", "artifact to print: prd, design or tasks")

	return cmd
}

func runShow(cmd *cobra.Command, sessionID, artifact string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := checkpoint.NewFileStore(cfg.DataRoot)
	if err != nil {
		return err
	}

	record, err := store.Load(sessionID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return exitWith(ExitUnknown, "unknown session: %s", sessionID)
		}
		return exitWith(ExitUnknown, "%v", err)
	}

	st := record.State

	var path string
	switch artifact {
	case "prd":
		path = st.PRDPath
	case "design":
		path = st.DesignPath
	case "tasks":
		path = st.TasksPath
	default:
		return fmt.Errorf("unknown artifact %q: want prd, design or tasks", artifact)
	}

	if path == "" {
		return exitWith(ExitNoArtifact, "artifact %s not yet produced for session %s", artifact, sessionID)
	}

	content, err := workspace.ReadText(path)
	if err != nil {
		return exitWith(ExitNoArtifact, "artifact %s missing on disk: %v", artifact, err)
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), content)
	return nil
}
