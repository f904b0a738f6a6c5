// Package store holds the vector store backends. Every backend partitions
// its records by workspace id.
package store

import (
	"context"
	"fmt"

	"github.com/xhad/sourcebook/internal/types"
)

const (
	BackendChromem  = "chromem"
	BackendPgVector = "pgvector"
	BackendQdrant   = "qdrant"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// chromem
	Path     string // empty keeps everything in memory
	Compress bool

	// pgvector
	ConnString string
	TableName  string
	VectorDim  int

	// qdrant
	Host       string
	Port       int
	Collection string
}

// New opens the configured backend.
func New(ctx context.Context, config Config) (types.VectorStore, error) {
	switch config.Backend {
	case "", BackendChromem:
		return NewChromem(ChromemConfig{Path: config.Path, Compress: config.Compress})
	case BackendPgVector:
		return NewPgVector(ctx, PgVectorConfig{
			ConnString: config.ConnString,
			TableName:  config.TableName,
			VectorDim:  config.VectorDim,
		})
	case BackendQdrant:
		return NewQdrant(ctx, QdrantConfig{
			Host:       config.Host,
			Port:       config.Port,
			Collection: config.Collection,
		})
	}
	return nil, fmt.Errorf("unknown vector store backend %q", config.Backend)
}
