package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yarlson/autodev/internal/checkpoint"
	"github.com/yarlson/autodev/internal/reporter"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session_id>",
		Short: "Show session status",
		Long:  "Display the current stage, task counts by status, and the last error. Read-only.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0])
		},
	}
}

func runStatus(cmd *cobra.Command, sessionID string) error {
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

	status := reporter.BuildStatus(record.State)
	_, _ = fmt.Fprint(cmd.OutOrStdout(), status.Format())
	return nil
}
