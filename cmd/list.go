package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yarlson/autodev/internal/checkpoint"
)

func newListSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-sessions",
		Short: "List all sessions",
		Long:  "Print session id, stage and creation time for every stored session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListSessions(cmd)
		},
	}
}

func runListSessions(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := checkpoint.NewFileStore(cfg.DataRoot)
	if err != nil {
		return err
	}

	summaries, err := store.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(out, "No sessions found.")
		return nil
	}

	for _, s := range summaries {
		_, _ = fmt.Fprintf(out, "%s  %-10s  %s\n", s.SessionID, s.Stage, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
