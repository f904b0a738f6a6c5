package main

import (
	"context"
	"fmt"
	"log"

	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/chat"
	cfgPkg "github.com/xhad/sourcebook/pkg/config"
	"github.com/xhad/sourcebook/pkg/embedcache"
	"github.com/xhad/sourcebook/pkg/ingest"
	"github.com/xhad/sourcebook/pkg/insights"
	"github.com/xhad/sourcebook/pkg/llm"
	"github.com/xhad/sourcebook/pkg/repoloader"
	"github.com/xhad/sourcebook/pkg/retrieval"
	"github.com/xhad/sourcebook/pkg/store"
	"github.com/xhad/sourcebook/pkg/tracing"
)

// app holds the components shared by every command.
type app struct {
	config   *cfgPkg.Config
	tracing  *tracing.Provider
	store    types.VectorStore
	ingest   *ingest.Service
	chat     *chat.Service
	insights *insights.Service
}

type appOptions struct {
	onProgress func(done, total int)
	onFile     func(relPath string, chunks int)
}

func newApp(ctx context.Context, cfg *cfgPkg.Config, opts appOptions) (*app, error) {
	tp, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	vectorStore, err := store.New(ctx, store.Config{
		Backend:    cfg.Store.Backend,
		Path:       cfg.Store.Path,
		Compress:   cfg.Store.Compress,
		ConnString: cfg.Store.URL,
		TableName:  cfg.Store.TableName,
		VectorDim:  cfg.Store.VectorDim,
		Host:       cfg.Store.QdrantHost,
		Port:       cfg.Store.QdrantPort,
		Collection: cfg.Store.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %v", err)
	}

	cache := embedcache.New(embedcache.Config{
		TTL:         cfg.Ingest.CacheTTL,
		MaxEntries:  cfg.Ingest.CacheMaxEntries,
		MinInterval: cfg.Ingest.MinInterval,
	})

	pipeline, err := ingest.NewWithConfig(ingest.PipelineConfig{
		Embedder:   embedder,
		Store:      vectorStore,
		Cache:      cache,
		BatchSize:  cfg.Ingest.BatchSize,
		Dimensions: cfg.Embedding.Dimensions,
		OnProgress: opts.onProgress,
	})
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %v", err)
	}

	ingestSvc, err := ingest.NewService(ingest.ServiceConfig{
		Pipeline: pipeline,
		Repos: repoloader.NewWithConfig(repoloader.LoaderConfig{
			Cloner:  repoloader.GitCloner{Binary: cfg.Ingest.GitBinary},
			TempDir: cfg.Ingest.TempDir,
			OnFile:  opts.onFile,
		}),
	})
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to initialize ingest service: %v", err)
	}

	retriever, err := retrieval.NewWithConfig(retrieval.RetrieverConfig{
		Embedder: embedder,
		Store:    vectorStore,
		Cache:    cache,
	})
	if err != nil {
		vectorStore.Close()
		return nil, fmt.Errorf("failed to initialize retriever: %v", err)
	}

	return &app{
		config:   cfg,
		tracing:  tp,
		store:    vectorStore,
		ingest:   ingestSvc,
		chat:     chat.New(retriever, chatEngine),
		insights: insights.New(retriever, chatEngine),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("Failed to close vector store: %v", err)
	}
	if err := a.tracing.Shutdown(context.Background()); err != nil {
		log.Printf("Failed to shut down tracing: %v", err)
	}
}
