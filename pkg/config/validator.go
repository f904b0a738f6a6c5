package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validProvider(p string) bool {
	return p == "ollama" || p == "openai"
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if !validProvider(c.LLM.Provider) {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "api_key is required for the openai provider",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid base URL",
			})
		}
	}

	// Validate Embedding config
	if !validProvider(c.Embedding.Provider) {
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q", c.Embedding.Provider),
		})
	}

	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.api_key",
			Message: "api_key is required for the openai provider",
		})
	}

	if c.Embedding.Dimensions < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.dimensions",
			Message: "dimensions cannot be negative",
		})
	}

	// Validate Store config
	switch c.Store.Backend {
	case "chromem":
	case "pgvector":
		if c.Store.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "database URL is required for the pgvector backend",
			})
		} else if _, err := url.Parse(c.Store.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "invalid database URL",
			})
		}
		if c.Store.VectorDim < 1 {
			errors = append(errors, ValidationError{
				Field:   "store.vector_dim",
				Message: "vector_dim must be positive",
			})
		}
	case "qdrant":
		if c.Store.QdrantPort < 1 || c.Store.QdrantPort > 65535 {
			errors = append(errors, ValidationError{
				Field:   "store.qdrant_port",
				Message: "qdrant_port must be a valid port",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend %q", c.Store.Backend),
		})
	}

	// Validate Server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if c.Server.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	if c.Server.WSRate <= 0 || c.Server.WSBurst < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.ws_rate",
			Message: "ws_rate and ws_burst must be positive",
		})
	}

	// Validate Ingest config
	if c.Ingest.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Ingest.CacheMaxEntries < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.cache_max_entries",
			Message: "cache_max_entries must be positive",
		})
	}

	if c.Ingest.CacheTTL < 0 || c.Ingest.MinInterval < 0 {
		errors = append(errors, ValidationError{
			Field:   "ingest.cache_ttl",
			Message: "durations cannot be negative",
		})
	}

	// Validate Tracing config
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errors = append(errors, ValidationError{
			Field:   "tracing.sample_rate",
			Message: "sample_rate must be between 0 and 1",
		})
	}

	return errors
}
