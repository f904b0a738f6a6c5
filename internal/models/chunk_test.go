package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentMetadataOmitsOptionalFields(t *testing.T) {
	c := Chunk{
		WorkspaceID: "ws1",
		Text:        "hello",
		SourceType:  SourceTypePDF,
		SourceLabel: "paper.pdf",
		PageNumber:  3,
	}

	raw, err := json.Marshal(c.Metadata())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Len(t, decoded, 5)
	assert.Equal(t, "paper.pdf", decoded["source"])
	assert.Equal(t, "3", decoded["page"])
	for _, key := range []string{"filePath", "lineStart", "lineEnd", "repoUrl"} {
		assert.NotContains(t, decoded, key)
	}
	assert.NotContains(t, c.Metadata().Fields(), "filePath")
}

func TestCodeMetadataRoundTrip(t *testing.T) {
	c := Chunk{
		WorkspaceID: "ws1",
		Text:        "package main",
		SourceType:  SourceTypeGitHub,
		SourceLabel: "acme/widgets",
		FilePath:    "cmd/main.go",
		LineStart:   101,
		LineEnd:     150,
		RepoLabel:   "acme/widgets",
	}

	m := c.Metadata()
	assert.Equal(t, "acme/widgets/cmd/main.go", m.Source)
	assert.Equal(t, "L101-L150", m.Page)

	fields := m.StringFields()
	assert.Equal(t, "101", fields["lineStart"])

	back, err := MetadataFromStrings(fields)
	require.NoError(t, err)
	assert.Equal(t, c, back.Chunk())
}

func TestMetadataFromStringsRejectsBadLines(t *testing.T) {
	_, err := MetadataFromStrings(map[string]string{"lineStart": "ten"})
	assert.Error(t, err)
}
