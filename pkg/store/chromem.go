package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
)

const collectionPrefix = "workspace-"

var errPrecomputed = errors.New("embeddings must be supplied by the caller")

type ChromemConfig struct {
	// Path persists collections under this directory when set.
	Path     string
	Compress bool
}

// ChromemStore keeps one chromem collection per workspace.
type ChromemStore struct {
	db *chromem.DB
}

func NewChromem(config ChromemConfig) (*ChromemStore, error) {
	if config.Path == "" {
		return &ChromemStore{db: chromem.NewDB()}, nil
	}

	db, err := chromem.NewPersistentDB(config.Path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem db at %s: %w", config.Path, err)
	}
	return &ChromemStore{db: db}, nil
}

// noEmbed is the collection embedding function. Records always carry their
// vector, so it is never expected to run.
func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errPrecomputed
}

func (s *ChromemStore) collection(partition string) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(collectionPrefix+partition, map[string]string{"workspaceId": partition}, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection for workspace %s: %w", partition, err)
	}
	return col, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, partition string, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	col, err := s.collection(partition)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  r.Metadata.StringFields(),
			Embedding: append([]float32(nil), r.Vector...),
			Content:   r.Metadata.Text,
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, partition string, vector []float32, topK int) ([]types.Match, error) {
	col := s.db.GetCollection(collectionPrefix+partition, noEmbed)
	if col == nil || topK <= 0 {
		return nil, nil
	}

	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace %s: %w", partition, err)
	}

	matches := make([]types.Match, 0, len(results))
	for _, r := range results {
		meta, err := models.MetadataFromStrings(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("corrupt metadata on %s: %w", r.ID, err)
		}
		matches = append(matches, types.Match{ID: r.ID, Score: r.Similarity, Metadata: meta})
	}
	return matches, nil
}

func (s *ChromemStore) Close() error {
	return nil
}
