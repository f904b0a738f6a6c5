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
		"OLLAMA_BASE_URL", "OPENAI_API_KEY", "DATABASE_URL",
		"QDRANT_HOST", "OTEL_EXPORTER_OTLP_ENDPOINT", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.5

embedding:
  model: "nomic-embed-text:latest"
  dimensions: 768

store:
  backend: pgvector
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"

server:
  port: 9090
  ingest_timeout: 90s
  allowed_origins:
    - "http://localhost:3000"

ingest:
  batch_size: 25
  cache_ttl: 10m

tracing:
  sample_rate: 0.5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, "pgvector", config.Store.Backend)
	assert.Equal(t, "postgres://localhost:5432/test", config.Store.URL)
	assert.Equal(t, "test_chunks", config.Store.TableName)
	assert.Equal(t, 768, config.Store.VectorDim)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 90*time.Second, config.Server.IngestTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	assert.Equal(t, 25, config.Ingest.BatchSize)
	assert.Equal(t, 10*time.Minute, config.Ingest.CacheTTL)
	assert.Equal(t, 0.5, config.Tracing.SampleRate)

	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 0.3, config.LLM.Temperature)
	assert.Equal(t, "nomic-embed-text:latest", config.Embedding.Model)
	assert.Equal(t, "chromem", config.Store.Backend)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 50, config.Ingest.BatchSize)
	assert.Equal(t, 30*time.Minute, config.Ingest.CacheTTL)
	assert.Equal(t, 500, config.Ingest.CacheMaxEntries)
	assert.Equal(t, time.Second, config.Ingest.MinInterval)
	assert.Equal(t, "sourcebook", config.Tracing.ServiceName)
	assert.Empty(t, config.Tracing.Endpoint)

	assert.Empty(t, config.Validate())
}

func TestOpenAIDefaults(t *testing.T) {
	clearEnv(t)

	config := &Config{
		LLM:       LLMConfig{Provider: "openai"},
		Embedding: EmbeddingConfig{Provider: "openai"},
	}
	applyDefaults(config)

	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", config.Embedding.Model)
	assert.Empty(t, config.LLM.BaseURL)

	errs := config.Validate()
	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"llm.api_key", "embedding.api_key"}, fields)
}

func TestMergeWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://db:5432/rag")
	t.Setenv("QDRANT_HOST", "qdrant")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("PORT", "3001")

	config := &Config{LLM: LLMConfig{APIKey: "from-file"}}
	mergeWithEnv(config)

	assert.Equal(t, "http://ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "http://ollama:11434", config.Embedding.BaseURL)
	assert.Equal(t, "from-file", config.LLM.APIKey)
	assert.Equal(t, "sk-test", config.Embedding.APIKey)
	assert.Equal(t, "postgres://db:5432/rag", config.Store.URL)
	assert.Equal(t, "qdrant", config.Store.QdrantHost)
	assert.Equal(t, "otel:4317", config.Tracing.Endpoint)
	assert.Equal(t, 3001, config.Server.Port)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedErrs  int
		errorMessages []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "invalid llm values",
			mutate: func(c *Config) {
				c.LLM.MaxTokens = 10000
				c.LLM.Temperature = 1.5
			},
			expectedErrs: 2,
			errorMessages: []string{
				"max_tokens must be between 1 and 8192",
				"temperature must be between 0 and 1",
			},
		},
		{
			name: "pgvector without url",
			mutate: func(c *Config) {
				c.Store.Backend = "pgvector"
			},
			expectedErrs:  1,
			errorMessages: []string{"database URL is required for the pgvector backend"},
		},
		{
			name: "unknown backend and provider",
			mutate: func(c *Config) {
				c.Store.Backend = "redis"
				c.Embedding.Provider = "cohere"
			},
			expectedErrs: 2,
			errorMessages: []string{
				`unknown provider "cohere"`,
				`unknown backend "redis"`,
			},
		},
		{
			name: "invalid server and ingest",
			mutate: func(c *Config) {
				c.Server.Port = 70000
				c.Ingest.BatchSize = -1
				c.Tracing.SampleRate = 2
			},
			expectedErrs: 3,
			errorMessages: []string{
				"port must be between 1 and 65535",
				"batch_size must be positive",
				"sample_rate must be between 0 and 1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errs := config.Validate()
			assert.Len(t, errs, tt.expectedErrs)

			for i, msg := range tt.errorMessages {
				assert.Equal(t, msg, errs[i].Message)
			}
		})
	}
}
