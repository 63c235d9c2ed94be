// Package cmd implements the autodev command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes of the command surface.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitInterrupted = 2
	ExitUnknown     = 3
	ExitNoArtifact  = 4
)

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

// exitWith builds an exitError with a formatted message.
func exitWith(code int, format string, args ...interface{}) error {
	return &exitError{code: code, message: fmt.Sprintf(format, args...)}
}

// NewRootCmd creates the root command for the autodev CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "autodev",
		Short: "Multi-agent development workflow driven by Claude Code",
		Long: `AutoDev orchestrates LLM agents through a fixed development workflow:
requirement analysis, PRD drafting, multi-reviewer critique, technical design,
task decomposition, and an iterative coding loop executed by the Claude Code
CLI. Sessions are checkpointed after every step and can be interrupted for
human review and resumed later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newContinueCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newListSessionsCmd())

	return rootCmd
}

// Execute runs the root command and maps command results to exit codes.
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.message != "" {
			fmt.Fprintln(os.Stderr, exitErr.message)
		}
		os.Exit(exitErr.code)
	}

	fmt.Fprintln(os.Stderr, err)
	os.Exit(ExitFailed)
}
