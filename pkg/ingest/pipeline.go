// Package ingest embeds chunks and writes them into a workspace partition of
// a vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/apperr"
	"github.com/xhad/sourcebook/pkg/embedcache"
	"github.com/xhad/sourcebook/pkg/tracing"
)

// BatchSize is the number of chunks embedded and upserted together.
const BatchSize = 50

var ErrEmptyEmbeddings = errors.New("embedding API returned empty/invalid vectors")

type PipelineConfig struct {
	Embedder types.Embedder
	Store    types.VectorStore
	Cache    *embedcache.Cache

	BatchSize int
	// Dimensions is the expected vector length. 0 takes it from the first
	// vector of each job.
	Dimensions int

	Now        func() time.Time
	OnProgress func(done, total int)
}

type Pipeline struct {
	config PipelineConfig
}

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if config.Embedder == nil {
		return nil, fmt.Errorf("ingest pipeline requires an embedder")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("ingest pipeline requires a vector store")
	}
	if config.Cache == nil {
		config.Cache = embedcache.New(embedcache.Config{})
	}
	if config.BatchSize <= 0 {
		config.BatchSize = BatchSize
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Pipeline{config: config}, nil
}

// Job is one ingestion request.
type Job struct {
	WorkspaceID string
	SourceLabel string
	SourceType  models.SourceType
	Chunks      []models.Chunk

	// Stamp fixes the id timestamp. Reusing the stamp of a failed job
	// rewrites the same ids. 0 stamps the job with the current time.
	Stamp int64
}

type Result struct {
	Chunks      int
	SourceLabel string
	SourceType  models.SourceType
	Batches     int
	Stamp       int64
}

// BatchError reports the batch that failed and how many chunks were
// already committed before it.
type BatchError struct {
	Batch     int // 1-based
	Committed int
	Total     int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d failed after %d/%d chunks committed: %v", e.Batch, e.Committed, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// RecordID is the vector id of the chunk at seq within a job.
func RecordID(workspaceID string, stamp int64, seq int) string {
	return fmt.Sprintf("%s-%d-%d", workspaceID, stamp, seq)
}

// Run embeds and upserts job.Chunks batch by batch, in order. The first
// failing batch stops the run; earlier batches stay in the store.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	if job.WorkspaceID == "" {
		return nil, apperr.Validation("ingest", "Workspace ID is required")
	}

	stamp := job.Stamp
	if stamp == 0 {
		stamp = p.config.Now().UnixMilli()
	}

	result := &Result{
		SourceLabel: job.SourceLabel,
		SourceType:  job.SourceType,
		Stamp:       stamp,
	}

	total := len(job.Chunks)
	log.Printf("Total chunks to process: %d", total)

	dim := p.config.Dimensions
	size := p.config.BatchSize

	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		batchNum := start/size + 1

		vectors, err := p.runBatch(ctx, job.WorkspaceID, stamp, start, job.Chunks[start:end], batchNum, &dim)
		if err != nil {
			return result, &BatchError{Batch: batchNum, Committed: start, Total: total, Err: err}
		}

		result.Chunks = end
		result.Batches++
		log.Printf("Upserted batch %d (%d chunks)", batchNum, vectors)

		if p.config.OnProgress != nil {
			p.config.OnProgress(end, total)
		}
	}

	return result, nil
}

func (p *Pipeline) runBatch(ctx context.Context, workspaceID string, stamp int64, offset int, batch []models.Chunk, batchNum int, dim *int) (n int, err error) {
	ctx, span := tracing.StartBatchSpan(ctx, workspaceID, batchNum, len(batch))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	vectors, err := p.embed(ctx, batch)
	if err != nil {
		return 0, err
	}

	if err := validate(vectors, len(batch), dim); err != nil {
		return 0, apperr.Upstream("ingest", err)
	}

	records := make([]types.Record, len(batch))
	for i, chunk := range batch {
		chunk.WorkspaceID = workspaceID
		records[i] = types.Record{
			ID:       RecordID(workspaceID, stamp, offset+i),
			Vector:   vectors[i],
			Metadata: chunk.Metadata(),
		}
	}

	if err := p.config.Store.Upsert(ctx, workspaceID, records); err != nil {
		return 0, apperr.Upstream("ingest", fmt.Errorf("failed to upsert vectors: %w", err))
	}
	return len(records), nil
}

// embed fills each text from the cache and embeds the misses in one call.
// Document vectors are not written back to the cache.
func (p *Pipeline) embed(ctx context.Context, batch []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(batch))

	var (
		missTexts []string
		missIdx   []int
	)
	for i, chunk := range batch {
		if vec, ok := p.config.Cache.Lookup(chunk.Text); ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, chunk.Text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	if err := p.config.Cache.Throttle(ctx); err != nil {
		return nil, err
	}

	log.Printf("Generating embeddings for %d chunks...", len(missTexts))
	embedded, err := p.config.Embedder.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, apperr.Upstream("ingest", fmt.Errorf("failed to create embeddings: %w", err))
	}
	if len(embedded) != len(missTexts) {
		return nil, apperr.Upstream("ingest", fmt.Errorf("%w: got %d vectors for %d texts", ErrEmptyEmbeddings, len(embedded), len(missTexts)))
	}

	for j, i := range missIdx {
		vectors[i] = embedded[j]
	}
	return vectors, nil
}

// validate checks that every text got a vector of the job's dimension. The
// first vector seen fixes the dimension when none is configured.
func validate(vectors [][]float32, want int, dim *int) error {
	if len(vectors) == 0 || len(vectors) != want {
		return ErrEmptyEmbeddings
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrEmptyEmbeddings, i)
		}
		if *dim == 0 {
			*dim = len(vec)
		}
		if len(vec) != *dim {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrEmptyEmbeddings, i, len(vec), *dim)
		}
	}
	return nil
}
