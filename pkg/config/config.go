package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`

	// chromem
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`

	// pgvector
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`

	// qdrant
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	IngestTimeout  time.Duration `yaml:"ingest_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	// WSRate is the sustained number of websocket messages per second
	// accepted from one connection.
	WSRate  float64 `yaml:"ws_rate"`
	WSBurst int     `yaml:"ws_burst"`
}

type IngestConfig struct {
	BatchSize       int           `yaml:"batch_size"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	MinInterval     time.Duration `yaml:"min_interval"`
	TempDir         string        `yaml:"temp_dir"`
	GitBinary       string        `yaml:"git_binary"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/sourcebook/config.yaml"),
			"/etc/sourcebook/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "openai" {
			config.LLM.Model = "gpt-4o-mini"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "ollama"
	}
	if config.Embedding.Model == "" {
		if config.Embedding.Provider == "openai" {
			config.Embedding.Model = "text-embedding-3-small"
		} else {
			config.Embedding.Model = "nomic-embed-text:latest"
		}
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == "ollama" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "chromem"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "chunks"
	}
	if config.Store.VectorDim == 0 {
		if config.Embedding.Dimensions > 0 {
			config.Store.VectorDim = config.Embedding.Dimensions
		} else {
			config.Store.VectorDim = 768
		}
	}
	if config.Store.QdrantHost == "" {
		config.Store.QdrantHost = "localhost"
	}
	if config.Store.QdrantPort == 0 {
		config.Store.QdrantPort = 6334
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "sourcebook"
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
	if config.Server.IngestTimeout == 0 {
		config.Server.IngestTimeout = 120 * time.Second
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 60 * time.Second
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 32
	}
	if config.Server.WSRate == 0 {
		config.Server.WSRate = 1
	}
	if config.Server.WSBurst == 0 {
		config.Server.WSBurst = 3
	}

	if config.Ingest.BatchSize == 0 {
		config.Ingest.BatchSize = 50
	}
	if config.Ingest.CacheTTL == 0 {
		config.Ingest.CacheTTL = 30 * time.Minute
	}
	if config.Ingest.CacheMaxEntries == 0 {
		config.Ingest.CacheMaxEntries = 500
	}
	if config.Ingest.MinInterval == 0 {
		config.Ingest.MinInterval = time.Second
	}
	if config.Ingest.GitBinary == "" {
		config.Ingest.GitBinary = "git"
	}

	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = "sourcebook"
	}
	if config.Tracing.Environment == "" {
		config.Tracing.Environment = "development"
	}
	if config.Tracing.SampleRate == 0 {
		config.Tracing.SampleRate = 1.0
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if config.LLM.Provider == "" || config.LLM.Provider == "ollama" {
			config.LLM.BaseURL = baseURL
		}
		if config.Embedding.Provider == "" || config.Embedding.Provider == "ollama" {
			config.Embedding.BaseURL = baseURL
		}
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		config.Store.QdrantHost = host
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		config.Tracing.Endpoint = endpoint
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
}
