package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/permits.db", cfg.Database.Path)
	assert.Equal(t, "data/documents", cfg.Storage.DocumentsDir)
	assert.Equal(t, int64(25<<20), cfg.Documents.MaxSizeBytes)
	assert.Equal(t, 30*24*time.Hour, cfg.Worker.ExpiryReminderAhead)
	assert.Equal(t, 4, cfg.Chat.TopK)
	assert.Equal(t, "chat_id", cfg.Lark.ReceiveIDType)
	assert.False(t, cfg.Lark.Enabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9090
  allowed_origins: ["https://app.example.com"]
database:
  path: /var/lib/permits/permits.db
worker:
  expiry_reminder_ahead: 336h
openai:
  model: gpt-4o
`)
	envFile := writeFile(t, dir, ".env", "OPENAI_API_KEY=sk-from-dotenv\n")
	t.Setenv("PERMITS_SERVER_HOST", "127.0.0.1")
	t.Setenv("OPENAI_API_KEY", "")
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))

	cfg, err := Load(path, envFile)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/var/lib/permits/permits.db", cfg.Database.Path)
	assert.Equal(t, 14*24*time.Hour, cfg.Worker.ExpiryReminderAhead)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "sk-from-dotenv", cfg.OpenAI.APIKey)
	assert.True(t, cfg.OpenAI.Enabled())
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "OPENAI_API_KEY=sk-from-dotenv\n")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFile(t))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("", noEnvFile(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no database path", func(c *Config) { c.Database.Path = "" }},
		{"no documents dir", func(c *Config) { c.Storage.DocumentsDir = "" }},
		{"overlap too large", func(c *Config) { c.Documents.ChunkOverlap = c.Documents.ChunkSize }},
		{"partial lark", func(c *Config) { c.Lark.AppID = "cli_a" }},
		{"zero poll interval", func(c *Config) { c.Worker.IndexPollInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	full := *base
	full.Lark = LarkConfig{AppID: "cli_a", AppSecret: "s", ReceiveID: "oc_1"}
	assert.NoError(t, full.Validate())
}
