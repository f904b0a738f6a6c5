package processor

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/sourcebook/internal/models"
)

// Document chunking policy.
const (
	ChunkSize    = 1000
	ChunkOverlap = 200
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Processor splits loaded documents into overlapping text chunks,
// preferring paragraph, line and word boundaries before hard cuts.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = ChunkSize
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = ChunkOverlap
	}

	return Processor{
		config: config,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// Process chunks every document independently, so overlap never crosses a
// document boundary, and returns the chunks in document order.
func (p *Processor) Process(workspaceID string, docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for _, doc := range docs {
		parts, err := p.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", doc.Label, err)
		}

		for _, part := range parts {
			chunks = append(chunks, models.Chunk{
				WorkspaceID: workspaceID,
				Sequence:    len(chunks),
				Text:        part,
				SourceType:  doc.SourceType,
				SourceLabel: doc.Label,
				PageNumber:  doc.PageNumber,
			})
		}
	}

	return chunks, nil
}
