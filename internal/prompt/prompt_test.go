package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarlson/autodev/internal/session"
)

func TestTemplates(t *testing.T) {
	t.Run("defaults cover every role", func(t *testing.T) {
		templates := NewTemplates()
		for _, role := range []string{RolePMDraft, RolePMRevise, RoleReviewerPM, RoleReviewerDev, RoleReviewerQA, RoleArchitect, RoleCoder} {
			assert.NotEmpty(t, templates.System(role), "role %s", role)
		}
	})

	t.Run("reviewer personas are distinct", func(t *testing.T) {
		templates := NewTemplates()
		pm := templates.System(RoleReviewerPM)
		dev := templates.System(RoleReviewerDev)
		qa := templates.System(RoleReviewerQA)

		assert.NotEqual(t, pm, dev)
		assert.NotEqual(t, dev, qa)
		assert.NotEqual(t, pm, qa)
	})
}

func TestLoadTemplates(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		templates, err := LoadTemplates("")
		require.NoError(t, err)
		assert.Equal(t, NewTemplates().System(RolePMDraft), templates.System(RolePMDraft))
	})

	t.Run("overrides replace known roles", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pm_draft: You write haiku PRDs.\n"), 0644))

		templates, err := LoadTemplates(path)
		require.NoError(t, err)
		assert.Equal(t, "You write haiku PRDs.", templates.System(RolePMDraft))
		assert.NotEmpty(t, templates.System(RoleArchitect))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.yaml")
		require.NoError(t, os.WriteFile(path, []byte("intern: fetch coffee\n"), 0644))

		_, err := LoadTemplates(path)
		assert.ErrorIs(t, err, session.ErrConfig)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, session.ErrConfig)
	})
}

func TestReviewerRole(t *testing.T) {
	assert.Equal(t, RoleReviewerPM, ReviewerRole(session.RolePM))
	assert.Equal(t, RoleReviewerDev, ReviewerRole(session.RoleDev))
	assert.Equal(t, RoleReviewerQA, ReviewerRole(session.RoleQA))
}

func TestBuilders(t *testing.T) {
	t.Run("pm draft includes requirement", func(t *testing.T) {
		out := PMDraft("build a todo CLI")
		assert.Contains(t, out, "build a todo CLI")
	})

	t.Run("revise includes reviews in canonical order", func(t *testing.T) {
		reviews := map[string]string{
			"qa":  "qa notes",
			"pm":  "pm notes",
			"dev": "dev notes",
		}
		out := PMRevise("req", "# PRD", reviews, "use sqlite")

		assert.Contains(t, out, "## Review (pm)")
		assert.Contains(t, out, "## Review (dev)")
		assert.Contains(t, out, "## Review (qa)")
		assert.Contains(t, out, "use sqlite")
		assert.Less(t, strings.Index(out, "pm notes"), strings.Index(out, "dev notes"))
		assert.Less(t, strings.Index(out, "dev notes"), strings.Index(out, "qa notes"))
	})

	t.Run("revise omits feedback section when empty", func(t *testing.T) {
		out := PMRevise("req", "# PRD", map[string]string{}, "")
		assert.NotContains(t, out, "Human feedback")
	})

	t.Run("architect tasks prompt demands json", func(t *testing.T) {
		out := ArchitectTasks("# PRD", "# Design")
		assert.Contains(t, out, "```json")
		assert.Contains(t, out, `"dependencies"`)
	})

	t.Run("coder prompt names exactly one task", func(t *testing.T) {
		task := &session.Task{ID: "task_007", Title: "wire the API", Description: "do it"}
		out := CoderTask("# PRD", "# Design", task, "/work/code")

		assert.Contains(t, out, "## Task task_007: wire the API")
		assert.Contains(t, out, "/work/code")
		assert.Contains(t, out, "# PRD")
		assert.Contains(t, out, "# Design")
	})
}
