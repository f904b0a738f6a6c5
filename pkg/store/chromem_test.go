package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/store"
)

func record(id, ws, text string, vec ...float32) types.Record {
	return types.Record{
		ID:     id,
		Vector: vec,
		Metadata: models.Metadata{
			Text:        text,
			Source:      "doc.pdf",
			SourceType:  models.SourceTypePDF,
			Page:        "1",
			WorkspaceID: ws,
		},
	}
}

func TestChromemStore(t *testing.T) {
	s, err := store.NewChromem(store.ChromemConfig{})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestChromemClampsTopK(t *testing.T) {
	s, err := store.NewChromem(store.ChromemConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "ws", []types.Record{record("ws-1-0", "ws", "only", 0, 1)}))

	matches, err := s.Query(ctx, "ws", []float32{0, 1}, 30)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestChromemKeepsCodeMetadata(t *testing.T) {
	s, err := store.NewChromem(store.ChromemConfig{})
	require.NoError(t, err)

	chunk := models.Chunk{
		WorkspaceID: "ws",
		Text:        "package main",
		SourceType:  models.SourceTypeGitHub,
		SourceLabel: "acme/repo",
		FilePath:    "cmd/main.go",
		LineStart:   101,
		LineEnd:     150,
		RepoLabel:   "acme/repo",
	}

	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "ws", []types.Record{{ID: "ws-1-0", Vector: []float32{1, 1}, Metadata: chunk.Metadata()}}))

	matches, err := s.Query(ctx, "ws", []float32{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, chunk.Metadata(), matches[0].Metadata)
}

func TestChromemPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := store.NewChromem(store.ChromemConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, "ws", []types.Record{record("ws-1-0", "ws", "kept", 1, 0)}))

	reopened, err := store.NewChromem(store.ChromemConfig{Path: dir})
	require.NoError(t, err)

	matches, err := reopened.Query(ctx, "ws", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "kept", matches[0].Metadata.Text)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := store.New(context.Background(), store.Config{Backend: "faiss"})
	assert.Error(t, err)

	s, err := store.New(context.Background(), store.Config{})
	require.NoError(t, err)
	assert.IsType(t, &store.ChromemStore{}, s)
}
