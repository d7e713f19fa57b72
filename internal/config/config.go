// Package config loads and saves the agent configuration. Files ending in
// .toml are read with go-toml, everything else as JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/codefionn/selenai/internal/consts"
)

const (
	// WorkspaceConfigName is picked up from the workspace before the user config.
	WorkspaceConfigName = "selenai.toml"
	defaultModelID      = "gpt-4o-mini"
	defaultLogDir       = ".selenai/logs"
	appName             = "selenai"
)

// ProviderSection holds per-provider endpoint overrides.
type ProviderSection struct {
	BaseURL string `json:"base_url,omitempty" toml:"base_url,omitempty"`
}

// Config represents application configuration
type Config struct {
	Provider              string          `json:"provider" toml:"provider"` // openai, anthropic, google, stub
	Model                 string          `json:"model" toml:"model"`
	Streaming             bool            `json:"streaming" toml:"streaming"`
	AllowToolWrites       bool            `json:"allow_tool_writes" toml:"allow_tool_writes"`
	WorkspaceRoot         string          `json:"workspace_root,omitempty" toml:"workspace_root,omitempty"`
	ScriptTimeoutSeconds  int             `json:"script_timeout_seconds" toml:"script_timeout_seconds"`
	HTTPTimeoutSeconds    int             `json:"http_timeout_seconds" toml:"http_timeout_seconds"`
	CommandTimeoutSeconds int             `json:"command_timeout_seconds" toml:"command_timeout_seconds"`
	AllowedCommands       []string        `json:"allowed_commands,omitempty" toml:"allowed_commands,omitempty"` // exact command prefixes, e.g. "go test"
	SandboxCommands       bool            `json:"sandbox_commands" toml:"sandbox_commands"`                     // landlock re-exec on linux
	MaxTokens             int             `json:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Temperature           float64         `json:"temperature,omitempty" toml:"temperature,omitempty"`
	LogLevel              string          `json:"log_level" toml:"log_level"` // debug, info, warn, error, none
	LogPath               string          `json:"log_path,omitempty" toml:"log_path,omitempty"`
	LogDir                string          `json:"log_dir,omitempty" toml:"log_dir,omitempty"` // transcripts; relative to the workspace
	OpenAI                ProviderSection `json:"openai" toml:"openai"`
	Anthropic             ProviderSection `json:"anthropic" toml:"anthropic"`
	Google                ProviderSection `json:"google" toml:"google"`
}

// CapabilityConfig is the policy the script runtime enforces.
type CapabilityConfig struct {
	WorkspaceRoot string
	WritesEnabled bool
}

func defaultConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appName)
		}
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", appName)
}

func defaultStateDir() string {
	if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
		return filepath.Join(stateHome, appName)
	}
	if runtime.GOOS == "windows" {
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, appName)
		}
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "state", appName)
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:              "stub",
		Model:                 defaultModelID,
		Streaming:             true,
		ScriptTimeoutSeconds:  int(consts.DefaultScriptTimeout / time.Second),
		HTTPTimeoutSeconds:    int(consts.DefaultHTTPTimeout / time.Second),
		CommandTimeoutSeconds: int(consts.DefaultCommandTimeout / time.Second),
		SandboxCommands:       true,
		MaxTokens:             consts.DefaultMaxTokens,
		LogLevel:              "info",
		LogPath:               filepath.Join(defaultStateDir(), appName+".log"),
	}
}

// GetConfigPath returns the default user config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// ResolvePath picks the config file: $SELENAI_CONFIG, then selenai.toml in
// the workspace, then the user config.
func ResolvePath(workspace string) string {
	if p := strings.TrimSpace(os.Getenv("SELENAI_CONFIG")); p != "" {
		return p
	}
	local := filepath.Join(workspace, WorkspaceConfigName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	return GetConfigPath()
}

// Load loads configuration from file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Unmarshal into the defaults so only provided fields override them.
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config format in %s: %w", path, err)
	}

	cfg.normalize()
	cfg.applyEnv()
	return cfg, nil
}

// Save saves configuration to file in the format implied by its extension.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaults.Model
	}
	if c.ScriptTimeoutSeconds <= 0 {
		c.ScriptTimeoutSeconds = defaults.ScriptTimeoutSeconds
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = defaults.HTTPTimeoutSeconds
	}
	if c.CommandTimeoutSeconds <= 0 {
		c.CommandTimeoutSeconds = defaults.CommandTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogPath == "" {
		c.LogPath = defaults.LogPath
	}
}

// applyEnv lets SELENAI_* variables override logging and write policy.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("SELENAI_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("SELENAI_LOG_PATH")); v != "" {
		c.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv("SELENAI_PROVIDER")); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("SELENAI_ALLOW_TOOL_WRITES")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowToolWrites = b
		}
	}
}

// Workspace returns the absolute workspace root, defaulting to cwd.
func (c *Config) Workspace() (string, error) {
	root := strings.TrimSpace(c.WorkspaceRoot)
	if root == "" {
		root = "."
	}
	return filepath.Abs(root)
}

// ResolveLogDir returns the transcript directory. Relative paths are
// anchored at the workspace.
func (c *Config) ResolveLogDir(workspace string) string {
	dir := strings.TrimSpace(c.LogDir)
	if dir == "" {
		dir = defaultLogDir
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(workspace, dir)
}

// ToCapabilityConfig produces the runtime policy.
func (c *Config) ToCapabilityConfig() (CapabilityConfig, error) {
	root, err := c.Workspace()
	if err != nil {
		return CapabilityConfig{}, err
	}
	return CapabilityConfig{WorkspaceRoot: root, WritesEnabled: c.AllowToolWrites}, nil
}

func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.ScriptTimeoutSeconds) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// BaseURL returns the endpoint override for the configured provider.
func (c *Config) BaseURL() string {
	switch c.Provider {
	case "openai":
		return c.OpenAI.BaseURL
	case "anthropic":
		return c.Anthropic.BaseURL
	case "google":
		return c.Google.BaseURL
	}
	return ""
}

// Settable lists the keys accepted by Set.
var Settable = []string{"allow_tool_writes", "streaming", "model", "provider"}

// Set updates one key from its textual value.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "allow_tool_writes", "streaming":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s (expected true or false)", value, key)
		}
		if key == "streaming" {
			c.Streaming = b
		} else {
			c.AllowToolWrites = b
		}
	case "model":
		if value == "" {
			return fmt.Errorf("model cannot be empty")
		}
		c.Model = value
	case "provider":
		c.Provider = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q (supported: %s)", key, strings.Join(Settable, ", "))
	}
	return nil
}

// Display renders the configuration as TOML for /config show.
func (c *Config) Display() string {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
