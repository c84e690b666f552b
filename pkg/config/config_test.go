package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"OLLAMA_BASE_URL", "OLLAMA_CHAT_MODEL", "OLLAMA_EMBED_MODEL",
		"PORT", "DATABASE_URL", "DB_PATH", "DB_DRIVER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "shopsage.yaml")

	configData := `
server:
  port: 9000
  default_shop: "acme.myshopify.com"
  cors_origins:
    - "http://localhost:5173"

ollama:
  base_url: "http://ollama:11434"
  backend: "langchaingo"
  chat_model: "mistral"
  embed_model: "mxbai-embed-large"
  temperature: 0.2
  timeout: 45s
  max_retries: 3
  backoff: 1s

database:
  driver: "postgres"
  url: "postgres://localhost:5432/shopsage"

cache:
  path: "/tmp/embeddings.db"

shopify:
  api_version: "2024-10"
  rate_limit: 1.5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "acme.myshopify.com", config.Server.DefaultShop)
	assert.Equal(t, []string{"http://localhost:5173"}, config.Server.CORSOrigins)
	assert.Equal(t, "http://ollama:11434", config.Ollama.BaseURL)
	assert.Equal(t, "langchaingo", config.Ollama.Backend)
	assert.Equal(t, "mistral", config.Ollama.ChatModel)
	assert.Equal(t, "mxbai-embed-large", config.Ollama.EmbedModel)
	assert.Equal(t, 0.2, config.Ollama.Temperature)
	assert.Equal(t, 45*time.Second, config.Ollama.Timeout)
	assert.Equal(t, 3, config.Ollama.MaxRetries)
	assert.Equal(t, time.Second, config.Ollama.Backoff)
	assert.Equal(t, DriverPostgres, config.Database.Driver)
	assert.Equal(t, "postgres://localhost:5432/shopsage", config.Database.URL)
	assert.Equal(t, "/tmp/embeddings.db", config.Cache.Path)
	assert.Equal(t, "2024-10", config.Shopify.APIVersion)
	assert.Equal(t, 1.5, config.Shopify.RateLimit)

	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, 8787, config.Server.Port)
	assert.Equal(t, "demo-shop", config.Server.DefaultShop)
	assert.Equal(t, "http://localhost:11434", config.Ollama.BaseURL)
	assert.Equal(t, "ollama", config.Ollama.Backend)
	assert.Equal(t, "llama3", config.Ollama.ChatModel)
	assert.Equal(t, "nomic-embed-text", config.Ollama.EmbedModel)
	assert.Zero(t, config.Ollama.MaxRetries)
	assert.Equal(t, DriverSQLite, config.Database.Driver)
	assert.Equal(t, "./data.sqlite", config.Database.Path)
	assert.Empty(t, config.Cache.Path)
	assert.Equal(t, "2025-01", config.Shopify.APIVersion)

	assert.Empty(t, config.Validate())
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("OLLAMA_CHAT_MODEL", "qwen2")
	t.Setenv("OLLAMA_EMBED_MODEL", "all-minilm")
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "postgres://db/shopsage")

	configPath := filepath.Join(t.TempDir(), "shopsage.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ollama:\n  chat_model: ignored\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:11434", config.Ollama.BaseURL)
	assert.Equal(t, "qwen2", config.Ollama.ChatModel)
	assert.Equal(t, "all-minilm", config.Ollama.EmbedModel)
	assert.Equal(t, 9999, config.Server.Port)
	// A database URL without an explicit driver selects postgres.
	assert.Equal(t, DriverPostgres, config.Database.Driver)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [unclosed"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"base url", func(c *Config) { c.Ollama.BaseURL = "not a url" }, "ollama.base_url"},
		{"backend", func(c *Config) { c.Ollama.Backend = "openai" }, "ollama.backend"},
		{"temperature", func(c *Config) { c.Ollama.Temperature = 2.5 }, "ollama.temperature"},
		{"retries", func(c *Config) { c.Ollama.MaxRetries = -1 }, "ollama.max_retries"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres url", func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.URL = "" }, "database.url"},
		{"rate limit", func(c *Config) { c.Shopify.RateLimit = -1 }, "shopify.rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errs := config.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}
