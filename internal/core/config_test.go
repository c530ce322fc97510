package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genshell/internal/llm"
)

// isolateEnv clears every variable LoadConfig reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
	t.Setenv("DEBUG", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_STATE_HOME"), "genshell", "genshell.log"), cfg.Log.File)
	assert.Equal(t, "bash", cfg.Shell.Path)
	assert.Equal(t, 80, cfg.Shell.Cols)
	assert.Equal(t, 24, cfg.Shell.Rows)
	assert.Equal(t, llm.ProviderGoogleAI, cfg.AI.Provider)
	assert.Equal(t, "EN", cfg.AI.Language)
	assert.Equal(t, 20, cfg.AI.HistoryLimit)
	assert.Equal(t, llm.DefaultModels(), cfg.AI.Models)
	assert.False(t, cfg.UI.Markdown)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Layering(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		env    map[string]string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "file overrides defaults",
			file: `
[log]
level = "warn"

[shell]
path = "/bin/zsh"
args = ["-l", "-i"]

[ai]
provider = "offline"
language = "de"

[ui]
markdown = true
`,
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "warn", cfg.Log.Level)
				assert.Equal(t, "/bin/zsh", cfg.Shell.Path)
				assert.Equal(t, []string{"-l", "-i"}, cfg.Shell.Args)
				assert.Equal(t, 80, cfg.Shell.Cols, "untouched keys keep defaults")
				assert.Equal(t, llm.ProviderOffline, cfg.AI.Provider)
				assert.Equal(t, llm.OfflineModels(), cfg.AI.Models)
				assert.Equal(t, "de", cfg.AI.Language)
				assert.True(t, cfg.UI.Markdown)
			},
		},
		{
			name: "env overrides file",
			file: `
[ai]
provider = "offline"
history_limit = 5
`,
			env: map[string]string{
				"GENSHELL_AI_PROVIDER":      "googleai",
				"GENSHELL_AI_HISTORY_LIMIT": "8",
				"GENSHELL_AI_MODELS":        "googleai/a,googleai/b",
				"GENSHELL_SHELL_ARGS":       "--noediting -i",
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, llm.ProviderGoogleAI, cfg.AI.Provider)
				assert.Equal(t, 8, cfg.AI.HistoryLimit)
				assert.Equal(t, []string{"googleai/a", "googleai/b"}, cfg.AI.Models)
				assert.Equal(t, []string{"--noediting", "-i"}, cfg.Shell.Args)
			},
		},
		{
			name: "debug flag overrides log level",
			file: "[log]\nlevel = \"error\"\n",
			env:  map[string]string{"DEBUG": "1"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
		{
			name: "api key from env",
			env:  map[string]string{"GENSHELL_AI_API_KEY": "test-key"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "test-key", cfg.AI.APIKey)
				assert.Equal(t, "test-key", cfg.LLMConfig().APIKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "missing.toml")
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	isolateEnv(t)

	_, err := LoadConfig(writeConfig(t, "[ai\nprovider = "))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		env   string
		value string
		key   string
		want  any
	}{
		{"GENSHELL_LOG_LEVEL", "debug", "log.level", "debug"},
		{"GENSHELL_AI_HISTORY_LIMIT", "5", "ai.history_limit", "5"},
		{"GENSHELL_LOG_MAX_SIZE_MB", "3", "log.max_size_mb", "3"},
		{"GENSHELL_AI_MODELS", "a/b, c/d", "ai.models", []string{"a/b", "c/d"}},
		{"GENSHELL_SHELL_ARGS", "-l  -i", "shell.args", []string{"-l", "-i"}},
		{"GENSHELL_DEBUG", "1", "debug", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			key, value := envKey(tt.env, tt.value)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.want, value)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad provider", func(c *Config) { c.AI.Provider = "openrouter" }, "ai.provider"},
		{"bad language", func(c *Config) { c.AI.Language = "XX" }, "ai.language"},
		{"no models", func(c *Config) { c.AI.Models = nil }, "ai.models"},
		{"model by index", func(c *Config) { c.AI.Model = "2" }, ""},
		{"model by name", func(c *Config) { c.AI.Model = "googleai/gemini-2.5-pro" }, ""},
		{"unknown model", func(c *Config) { c.AI.Model = "openai/gpt" }, "ai.model"},
		{"index out of range", func(c *Config) { c.AI.Model = "9" }, "ai.model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SetDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "DEBUG"}}
	cfg.SetDefaults()

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "bash", cfg.Shell.Path)
	assert.Equal(t, llm.ProviderGoogleAI, cfg.AI.Provider)
	assert.NotEmpty(t, cfg.AI.Models)
	assert.Equal(t, 20, cfg.AI.HistoryLimit)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("GENSHELL_TEST_VALUE", "set")
	assert.Equal(t, "set", getEnvOrDefault("GENSHELL_TEST_VALUE", "fallback"))

	t.Setenv("GENSHELL_TEST_VALUE", "")
	assert.Equal(t, "fallback", getEnvOrDefault("GENSHELL_TEST_VALUE", "fallback"))
}
