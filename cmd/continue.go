package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yarlson/autodev/internal/engine"
)

func newContinueCmd() *cobra.Command {
	var feedback string

	cmd := &cobra.Command{
		Use:   "continue <session_id>",
		Short: "Resume a session from its checkpoint",
		Long: `Resume an interrupted or failed session from its last checkpoint.

Feedback always targets the producer of the artifact under review, not the
node about to run: feedback given before the architect re-runs the PRD
revision, feedback given before the coding loop re-runs the architect. With
no feedback, execution continues past the interrupt point.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContinue(cmd, args[0], feedback)
		},
	}

	cmd.Flags().StringVar(&feedback, "feedback", "", "human feedback routed to the most recent producer")

	return cmd
}

func runContinue(cmd *cobra.Command, sessionID, feedback string) error {
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

	out := cmd.OutOrStdout()
	eng, err := buildEngine(cfg, store, out)
	if err != nil {
		return err
	}

	result := eng.Resume(cmd.Context(), sessionID, feedback)
	if result.Status == engine.StatusDone {
		_, _ = fmt.Fprintf(out, "Session %s finished at stage %s\n", result.SessionID, result.Stage)
	}
	return resultToExit(result)
}
