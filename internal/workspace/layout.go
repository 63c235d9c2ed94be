// Package workspace manages the per-session artifact directory and its files.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact file names under the session workspace.
const (
	PRDFile     = "PRD.md"
	ReviewsFile = "PRD_Reviews.md"
	DesignFile  = "Design.md"
	TasksFile   = "tasks.json"
	CodeDir     = "code"
)

// PRDPath returns the path to the PRD document.
func PRDPath(workspacePath string) string {
	return filepath.Join(workspacePath, PRDFile)
}

// ReviewsPath returns the path to the concatenated review record.
func ReviewsPath(workspacePath string) string {
	return filepath.Join(workspacePath, ReviewsFile)
}

// DesignPath returns the path to the technical design document.
func DesignPath(workspacePath string) string {
	return filepath.Join(workspacePath, DesignFile)
}

// TasksPath returns the path to the task list file.
func TasksPath(workspacePath string) string {
	return filepath.Join(workspacePath, TasksFile)
}

// CodeDirPath returns the default generated-code directory.
func CodeDirPath(workspacePath string) string {
	return filepath.Join(workspacePath, CodeDir)
}

// Ensure creates the session workspace and its code directory.
// The function is idempotent.
func Ensure(workspacePath string) error {
	dirs := []string{
		workspacePath,
		CodeDirPath(workspacePath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ResolveProjectDir validates an external project directory. The directory
// must already exist; generated code bypasses workspace confinement only for
// a directory the user explicitly pointed at.
func ResolveProjectDir(workspacePath, projectDir string) (string, error) {
	if projectDir == "" {
		return CodeDirPath(workspacePath), nil
	}

	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project dir: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project dir does not exist: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project dir is not a directory: %s", abs)
	}

	return abs, nil
}
