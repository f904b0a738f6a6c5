package citation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/citation"
)

func codeChunk(path string, start, end int) models.Chunk {
	return models.Chunk{
		WorkspaceID: "ws",
		Text:        "code",
		SourceType:  models.SourceTypeGitHub,
		SourceLabel: "owner/repo",
		FilePath:    path,
		LineStart:   start,
		LineEnd:     end,
		RepoLabel:   "owner/repo",
	}
}

func pdfChunk(label string, page int) models.Chunk {
	return models.Chunk{WorkspaceID: "ws", Text: "prose", SourceType: models.SourceTypePDF, SourceLabel: label, PageNumber: page}
}

func matchesOf(chunks ...models.Chunk) []types.Match {
	out := make([]types.Match, len(chunks))
	for i, c := range chunks {
		out[i] = types.Match{ID: c.FilePath, Metadata: c.Metadata()}
	}
	return out
}

func TestParse(t *testing.T) {
	answer := "Go is fast [Source: a.pdf, Page 3]. See [Source: owner/repo/x.go, Page L1-L100] and [Source: Raw Text, Page 0]."

	tokens := citation.Parse(answer)
	require.Len(t, tokens, 3)
	assert.Equal(t, citation.Token{Raw: "[Source: a.pdf, Page 3]", Label: "a.pdf", Page: "3"}, tokens[0])
	assert.Equal(t, "owner/repo/x.go", tokens[1].Label)
	assert.Equal(t, "L1-L100", tokens[1].Page)
	assert.Equal(t, "Raw Text", tokens[2].Label)

	assert.Empty(t, citation.Parse("no citations here [Source: missing page]"))
}

func TestResolveRepoRelativeLabel(t *testing.T) {
	target := codeChunk("path.go", 10, 50)
	matches := matchesOf(codeChunk("path.go", 51, 100), codeChunk("other/path.go", 10, 50), target)

	res := citation.Resolve("It works [Source: repo/path.go, Page L10-L50].", matches)
	require.Len(t, res, 1)
	assert.True(t, res[0].Found)
	assert.Equal(t, target, res[0].Chunk)
	assert.Equal(t, "path.go", res[0].Chunk.FilePath)
	assert.Equal(t, 10, res[0].Chunk.LineStart)
	assert.Equal(t, 50, res[0].Chunk.LineEnd)
}

func TestResolveLabelForms(t *testing.T) {
	chunks := []models.Chunk{codeChunk("src/app/main.go", 101, 200)}

	tests := []struct {
		name  string
		token citation.Token
		found bool
	}{
		{"full label", citation.Token{Label: "owner/repo/src/app/main.go", Page: "L101-L200"}, true},
		{"file path", citation.Token{Label: "src/app/main.go", Page: "L101-L200"}, true},
		{"path suffix", citation.Token{Label: "main.go", Page: "101-200"}, true},
		{"single line inside", citation.Token{Label: "main.go", Page: "L150"}, true},
		{"single line outside", citation.Token{Label: "main.go", Page: "L99"}, false},
		{"range mismatch", citation.Token{Label: "main.go", Page: "L101-L150"}, false},
		{"partial name", citation.Token{Label: "ain.go", Page: "L101-L200"}, false},
		{"other file", citation.Token{Label: "owner/repo/src/app/util.go", Page: "L101-L200"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := citation.ResolveToken(tt.token, chunks)
			assert.Equal(t, tt.found, res.Found)
		})
	}
}

func TestResolveDocuments(t *testing.T) {
	matches := matchesOf(pdfChunk("report.pdf", 2), pdfChunk("report.pdf", 3), pdfChunk(models.RawTextLabel, 0))

	res := citation.Resolve("[Source: report.pdf, Page 3] and [Source: Raw Text, Page 0]", matches)
	require.Len(t, res, 2)
	assert.True(t, res[0].Found)
	assert.Equal(t, 3, res[0].Chunk.PageNumber)
	assert.True(t, res[1].Found)
	assert.Equal(t, models.RawTextLabel, res[1].Chunk.SourceLabel)
}

func TestResolveNotFoundGivesPlaceholder(t *testing.T) {
	res := citation.Resolve("[Source: missing.pdf, Page 9]", matchesOf(pdfChunk("report.pdf", 9)))
	require.Len(t, res, 1)
	assert.False(t, res[0].Found)
	assert.Equal(t, "missing.pdf", res[0].Chunk.SourceLabel)
	assert.Equal(t, 9, res[0].Chunk.PageNumber)
	assert.Equal(t, citation.NotFoundText, res[0].Chunk.Text)

	res = citation.Resolve("[Source: x.go, Page L1-L5]", nil)
	require.Len(t, res, 1)
	assert.False(t, res[0].Found)
}

func TestPlaceholderKeepsPage(t *testing.T) {
	tests := []struct {
		name      string
		token     citation.Token
		wantRef   string
		wantStart int
		wantEnd   int
	}{
		{"line range", citation.Token{Label: "acme/repo/x.go", Page: "L10-L50"}, "L10-L50", 10, 50},
		{"single line", citation.Token{Label: "acme/repo/x.go", Page: "L42"}, "L42", 42, 42},
		{"document page", citation.Token{Label: "missing.pdf", Page: "7"}, "7", 0, 0},
		{"free text page", citation.Token{Label: "notes.txt", Page: "iv"}, "iv", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := citation.ResolveToken(tt.token, nil)
			require.False(t, res.Found)
			assert.Equal(t, tt.wantStart, res.Chunk.LineStart)
			assert.Equal(t, tt.wantEnd, res.Chunk.LineEnd)

			meta := res.Metadata()
			assert.Equal(t, tt.token.Label, meta.Source)
			assert.Equal(t, tt.wantRef, meta.Page)
			assert.Equal(t, citation.NotFoundText, meta.Text)
		})
	}
}

func TestFormatRoundTrips(t *testing.T) {
	chunks := []models.Chunk{pdfChunk("a.pdf", 4), codeChunk("cmd/main.go", 1, 100)}
	for _, c := range chunks {
		tokens := citation.Parse("x " + citation.Format(c) + " y")
		require.Len(t, tokens, 1)
		res := citation.ResolveToken(tokens[0], chunks)
		require.True(t, res.Found)
		assert.Equal(t, c.CitationLabel(), res.Chunk.CitationLabel())
	}
}

func TestPromptExamplesParse(t *testing.T) {
	tokens := citation.Parse(citation.PromptInstruction)
	require.Len(t, tokens, 2)
	assert.Equal(t, "filename.pdf", tokens[0].Label)
	assert.Equal(t, "L10-L50", tokens[1].Page)

	prompt := citation.SystemPrompt("[Source: a.pdf, Page 1]\ntext")
	assert.Contains(t, prompt, citation.PromptInstruction)
	assert.Contains(t, prompt, "CONTEXT:\n[Source: a.pdf, Page 1]\ntext")
}
