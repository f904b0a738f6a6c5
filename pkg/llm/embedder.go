package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// EmbedderConfig represents the configuration for an embedding model.
type EmbedderConfig struct {
	Provider string
	Model    string
	BaseURL  string // Ollama server URL or OpenAI-compatible API base
	APIKey   string
}

// Embedder embeds text through the configured provider and classifies
// provider failures.
type Embedder struct {
	Config   EmbedderConfig
	embedder embeddings.Embedder
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}

	var client embeddings.EmbedderClient

	switch config.Provider {
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}

		emb, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		client = emb

	case ProviderOpenAI:
		if config.Model == "" {
			config.Model = string(openai.SmallEmbedding3)
		}
		client = openAIEmbeddingClient(newOpenAIClient(config.APIKey, config.BaseURL), config.Model)

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}

	// keep newlines: code chunks depend on them
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{Config: config, embedder: emb}, nil
}

// NewEmbedderFrom wraps an existing langchaingo embedder.
func NewEmbedderFrom(config EmbedderConfig, emb embeddings.Embedder) *Embedder {
	return &Embedder{Config: config, embedder: emb}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	// the langchaingo embedder may rewrite its input in place
	in := append([]string(nil), texts...)

	vectors, err := e.embedder.EmbedDocuments(ctx, in)
	if err != nil {
		return nil, classify("embed documents", err)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, classify("embed query", err)
	}
	return vector, nil
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func openAIEmbeddingClient(client *openai.Client, model string) embeddings.EmbedderClientFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedding request failed: %w", err)
		}

		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("openai returned %d embeddings, expected %d", len(resp.Data), len(texts))
		}

		vectors := make([][]float32, len(texts))
		for i, emb := range resp.Data {
			idx := emb.Index
			if idx < 0 || idx >= len(vectors) {
				idx = i
			}
			vectors[idx] = emb.Embedding
		}
		return vectors, nil
	}
}
