package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanftoml "github.com/knadh/koanf/parsers/toml/v2"
	koanfenv "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"

	"genshell/internal/llm"
	"genshell/pkg/schema"
)

// EnvPrefix prefixes environment overrides, e.g. GENSHELL_AI_PROVIDER=offline.
const EnvPrefix = "GENSHELL_"

// Config holds the application configuration.
type Config struct {
	Log   LogConfig   `koanf:"log"`
	Shell ShellConfig `koanf:"shell"`
	AI    AIConfig    `koanf:"ai"`
	UI    UIConfig    `koanf:"ui"`
}

// LogConfig controls the log file. The terminal is in raw mode, so logs
// never go to stderr.
type LogConfig struct {
	Level      string `koanf:"level"` // debug, info, warn, error
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// ShellConfig describes the shell subprocess.
type ShellConfig struct {
	Path string   `koanf:"path"`
	Args []string `koanf:"args"`
	Cols int      `koanf:"cols"`
	Rows int      `koanf:"rows"`
}

// AIConfig selects the AI backend and the initial session settings.
type AIConfig struct {
	Provider     string   `koanf:"provider"`
	APIKey       string   `koanf:"api_key"`
	Language     string   `koanf:"language"`
	Model        string   `koanf:"model"` // model name or 1-based catalog index
	Models       []string `koanf:"models"`
	HistoryLimit int      `koanf:"history_limit"`
}

type UIConfig struct {
	Markdown bool `koanf:"markdown"`
}

// ConfigDir returns the directory holding config.toml and preferences.yaml.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", filepath.Join(home, ".config")), "genshell")
}

// StateDir returns the directory holding the log file.
func StateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(getEnvOrDefault("XDG_STATE_HOME", filepath.Join(home, ".local", "state")), "genshell")
}

// DefaultConfigPath returns the user config file location.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultPreferencesPath returns the preferences file location.
func DefaultPreferencesPath() string {
	return filepath.Join(ConfigDir(), "preferences.yaml")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(StateDir(), "genshell.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Shell: ShellConfig{
			Path: "bash",
			Cols: 80,
			Rows: 24,
		},
		AI: AIConfig{
			Provider:     llm.ProviderGoogleAI,
			Language:     schema.DefaultLanguageCode,
			HistoryLimit: schema.DefaultHistoryLimit,
		},
	}
}

// LoadConfig layers the built-in defaults, the TOML file at path, and
// GENSHELL_* environment variables, in that order. An empty path means
// DefaultConfigPath; a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), koanftoml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := k.Load(koanfenv.Provider(".", koanfenv.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		cfg.Log.Level = "debug"
	}

	cfg.SetDefaults()
	return cfg, nil
}

// envKey maps GENSHELL_AI_HISTORY_LIMIT to "ai.history_limit". Only the
// first underscore after the prefix separates section from key. List
// values are comma- or space-separated.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, name, ok := strings.Cut(key, "_")
	if !ok {
		return key, value
	}
	key = section + "." + name

	switch key {
	case "ai.models":
		return key, strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	case "shell.args":
		return key, strings.Fields(value)
	}
	return key, value
}

// SetDefaults fills zero values left by partial config files.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Shell.Path == "" {
		c.Shell.Path = d.Shell.Path
	}
	if c.Shell.Cols <= 0 {
		c.Shell.Cols = d.Shell.Cols
	}
	if c.Shell.Rows <= 0 {
		c.Shell.Rows = d.Shell.Rows
	}
	if c.AI.Provider == "" {
		c.AI.Provider = d.AI.Provider
	}
	if c.AI.Language == "" {
		c.AI.Language = d.AI.Language
	}
	if c.AI.HistoryLimit <= 0 {
		c.AI.HistoryLimit = d.AI.HistoryLimit
	}
	if len(c.AI.Models) == 0 {
		llmCfg := c.LLMConfig()
		llmCfg.SetDefaults()
		c.AI.Models = llmCfg.Models
	}
}

// Validate checks values that would otherwise fail later at runtime.
// The API key is checked by the gateway, since it may come from the keyring.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	switch c.AI.Provider {
	case llm.ProviderGoogleAI, llm.ProviderOffline:
	default:
		return &ValidationError{Field: "ai.provider", Message: fmt.Sprintf("unknown provider %q", c.AI.Provider)}
	}
	if _, err := schema.ParseLanguage(c.AI.Language); err != nil {
		return &ValidationError{Field: "ai.language", Message: err.Error(), Err: err}
	}
	if len(c.AI.Models) == 0 {
		return &ValidationError{Field: "ai.models", Message: "at least one model is required"}
	}
	if c.AI.Model != "" {
		if _, err := ResolveModel(c.Catalog(), c.AI.Model); err != nil {
			return &ValidationError{Field: "ai.model", Message: err.Error(), Err: err}
		}
	}
	return nil
}

// Catalog returns the selectable models.
func (c *Config) Catalog() schema.ModelCatalog {
	return schema.NewModelCatalog(c.AI.Models...)
}

// LLMConfig returns the gateway configuration.
func (c *Config) LLMConfig() *llm.Config {
	return &llm.Config{
		Provider:     c.AI.Provider,
		APIKey:       c.AI.APIKey,
		Models:       c.AI.Models,
		HistoryLimit: c.AI.HistoryLimit,
	}
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
