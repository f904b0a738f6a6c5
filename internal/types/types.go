package types

import (
	"context"

	"github.com/xhad/sourcebook/internal/models"
)

// Core interfaces

// Embedder turns text into vectors. The method set matches langchaingo's
// embeddings.Embedder so its implementations plug in directly.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Completer produces a single completion for a system prompt and user text.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// Record is one vector written to a workspace partition.
type Record struct {
	ID       string
	Vector   []float32
	Metadata models.Metadata
}

// Match is one nearest-neighbour hit, most similar first.
type Match struct {
	ID       string
	Score    float32
	Metadata models.Metadata
}

// VectorStore is a similarity index partitioned by workspace id.
type VectorStore interface {
	Upsert(ctx context.Context, partition string, records []Record) error
	Query(ctx context.Context, partition string, vector []float32, topK int) ([]Match, error)
	Close() error
}
