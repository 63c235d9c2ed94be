// Package config loads engine configuration from the environment and an
// optional autodev.yaml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yarlson/autodev/internal/session"
)

// Config holds all AutoDev engine configuration.
type Config struct {
	// APIKey is the Anthropic API key used by the planner agents.
	APIKey string `mapstructure:"anthropic_api_key"`

	// BaseURL overrides the Anthropic API endpoint.
	BaseURL string `mapstructure:"anthropic_base_url"`

	// DefaultModel is used when no per-role model is set.
	DefaultModel string `mapstructure:"default_model"`

	// PMModel, ArchitectModel and CoderModel override the model per role.
	PMModel        string `mapstructure:"pm_model"`
	ArchitectModel string `mapstructure:"architect_model"`
	CoderModel     string `mapstructure:"coder_model"`

	// WorkspaceRoot is the parent directory of per-session workspaces.
	WorkspaceRoot string `mapstructure:"workspace_root"`

	// DataRoot is the parent directory of checkpoint records.
	DataRoot string `mapstructure:"data_root"`

	// MaxCodingIterations caps the tasks the coder hands to the worker per
	// session.
	MaxCodingIterations int `mapstructure:"max_coding_iterations"`

	// HumanInLoop enables the pre-architect and pre-coder interrupt points.
	HumanInLoop bool `mapstructure:"human_in_loop"`

	// ClaudeCommand is the worker CLI binary.
	ClaudeCommand string `mapstructure:"claude_command"`

	// ClaudeCLITimeout is the per-task wall-clock timeout in seconds.
	ClaudeCLITimeout int `mapstructure:"claude_cli_timeout"`

	// ValidationMode selects worker output classification strictness
	// ("lenient" or "strict").
	ValidationMode string `mapstructure:"claude_cli_validation_mode"`

	// PermissionMode is passed to the worker CLI via --permission-mode.
	PermissionMode string `mapstructure:"claude_permission_mode"`

	// CompletionMarkers and FailureMarkers override the classification
	// substrings (via autodev.yaml).
	CompletionMarkers []string `mapstructure:"completion_markers"`
	FailureMarkers    []string `mapstructure:"failure_markers"`

	// PromptsFile is an optional YAML file overriding agent prompt templates.
	PromptsFile string `mapstructure:"autodev_prompts"`

	// LogLevel gates verbose engine output ("debug" enables node tracing).
	LogLevel string `mapstructure:"log_level"`
}

// envKeys lists the environment variables bound to config keys.
var envKeys = []string{
	"anthropic_api_key",
	"anthropic_base_url",
	"default_model",
	"pm_model",
	"architect_model",
	"coder_model",
	"workspace_root",
	"data_root",
	"max_coding_iterations",
	"human_in_loop",
	"claude_command",
	"claude_cli_timeout",
	"claude_cli_validation_mode",
	"claude_permission_mode",
	"autodev_prompts",
	"log_level",
}

// Load reads configuration from the environment, with an optional
// autodev.yaml in the given directory providing file-level overrides of the
// defaults. Environment variables win over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("autodev")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("%w: reading autodev.yaml: %v", session.ErrConfig, err)
		}
	}

	for _, key := range envKeys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("%w: binding %s: %v", session.ErrConfig, key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrConfig, err)
	}

	return cfg, nil
}

// setDefaults installs the default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic_base_url", "https://api.anthropic.com")
	v.SetDefault("default_model", "claude-sonnet-4-5")
	v.SetDefault("workspace_root", filepath.Join(".autodev", "workspace"))
	v.SetDefault("data_root", filepath.Join(".autodev", "data"))
	v.SetDefault("max_coding_iterations", 50)
	v.SetDefault("human_in_loop", false)
	v.SetDefault("claude_command", "claude")
	v.SetDefault("claude_cli_timeout", 300)
	v.SetDefault("claude_cli_validation_mode", "lenient")
	v.SetDefault("claude_permission_mode", "acceptEdits")
	v.SetDefault("completion_markers", []string{"done", "completed", "created file", "wrote"})
	v.SetDefault("failure_markers", []string{"error", "failed", "cannot"})
	v.SetDefault("log_level", "info")
}

// Validate fails fast on configuration the engine cannot run with.
// It is called before any node executes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", session.ErrConfig)
	}

	if c.MaxCodingIterations <= 0 {
		return fmt.Errorf("%w: MAX_CODING_ITERATIONS must be positive", session.ErrConfig)
	}

	if c.ClaudeCLITimeout <= 0 {
		return fmt.Errorf("%w: CLAUDE_CLI_TIMEOUT must be positive", session.ErrConfig)
	}

	mode := strings.ToLower(strings.TrimSpace(c.ValidationMode))
	if mode != "" && mode != "lenient" && mode != "strict" {
		return fmt.Errorf("%w: CLAUDE_CLI_VALIDATION_MODE must be lenient or strict, got %q", session.ErrConfig, c.ValidationMode)
	}

	return nil
}

// ModelFor returns the model for a role, falling back to the default model.
func (c *Config) ModelFor(role string) string {
	var model string
	switch role {
	case "pm":
		model = c.PMModel
	case "architect":
		model = c.ArchitectModel
	case "coder":
		model = c.CoderModel
	}
	if model == "" {
		return c.DefaultModel
	}
	return model
}

// EnsureRoots creates the workspace and data root directories.
func (c *Config) EnsureRoots() error {
	for _, dir := range []string{c.WorkspaceRoot, c.DataRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", session.ErrConfig, dir, err)
		}
	}
	return nil
}

// Verbose returns true when node-level tracing should be printed.
func (c *Config) Verbose() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}
