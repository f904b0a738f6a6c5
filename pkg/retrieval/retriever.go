// Package retrieval runs top-K similarity search in a workspace and renders
// the hits as a citation-labeled context block.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/apperr"
	"github.com/xhad/sourcebook/pkg/embedcache"
	"github.com/xhad/sourcebook/pkg/tracing"
)

// Result sizes per call site.
const (
	ChatTopK     = 7
	OverviewTopK = 20
	MindMapTopK  = 30
)

// Separator joins rendered matches in a context block.
const Separator = "\n\n---\n\n"

// InsufficientInformation is the answer given when a workspace has nothing
// relevant to a question.
const InsufficientInformation = "I don't have enough information in this notebook to answer that question. Please upload some relevant documents."

// ErrNoMatches is returned when the workspace has no relevant chunks. The
// completion model must not be called in that case.
var ErrNoMatches = errors.New("no matching chunks in workspace")

type RetrieverConfig struct {
	Embedder types.Embedder
	Store    types.VectorStore
	Cache    *embedcache.Cache
}

type Retriever struct {
	config RetrieverConfig
}

func NewWithConfig(config RetrieverConfig) (*Retriever, error) {
	if config.Embedder == nil {
		return nil, fmt.Errorf("retriever requires an embedder")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("retriever requires a vector store")
	}
	if config.Cache == nil {
		config.Cache = embedcache.New(embedcache.Config{})
	}
	return &Retriever{config: config}, nil
}

// Context is the outcome of one retrieval.
type Context struct {
	Block   string
	Matches []types.Match
}

// Chunks returns the matched chunks in ranking order.
func (c Context) Chunks() []models.Chunk {
	out := make([]models.Chunk, len(c.Matches))
	for i, m := range c.Matches {
		out[i] = m.Metadata.Chunk()
	}
	return out
}

// Sources returns the payload of every match.
func (c Context) Sources() []models.Metadata {
	out := make([]models.Metadata, len(c.Matches))
	for i, m := range c.Matches {
		out[i] = m.Metadata
	}
	return out
}

func (r *Retriever) Retrieve(ctx context.Context, workspaceID, query string, topK int) (_ Context, err error) {
	if workspaceID == "" {
		return Context{}, apperr.Validation("retrieval", "Workspace ID is required")
	}

	ctx, span := tracing.StartRetrieveSpan(ctx, workspaceID, topK)
	defer func() {
		if !errors.Is(err, ErrNoMatches) {
			tracing.RecordError(span, err)
		}
		span.End()
	}()

	vector, err := r.queryVector(ctx, query)
	if err != nil {
		return Context{}, err
	}

	matches, err := r.config.Store.Query(ctx, workspaceID, vector, topK)
	if err != nil {
		return Context{}, apperr.Upstream("retrieval", fmt.Errorf("failed to query vector store: %w", err))
	}
	if len(matches) == 0 {
		return Context{}, ErrNoMatches
	}

	return Context{Block: Render(matches), Matches: matches}, nil
}

func (r *Retriever) queryVector(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := r.config.Cache.Lookup(query); ok {
		return vec, nil
	}

	if err := r.config.Cache.Throttle(ctx); err != nil {
		return nil, err
	}

	vec, err := r.config.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, apperr.Upstream("retrieval", fmt.Errorf("failed to embed query: %w", err))
	}
	if len(vec) == 0 {
		return nil, apperr.Upstream("retrieval", fmt.Errorf("embedding API returned an empty query vector"))
	}

	r.config.Cache.Store(query, vec)
	return vec, nil
}

// Render formats matches as "[Source: label, Page ref]\ntext" blocks.
func Render(matches []types.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("[Source: %s, Page %s]\n%s", m.Metadata.Source, m.Metadata.Page, m.Metadata.Text)
	}
	return strings.Join(parts, Separator)
}
