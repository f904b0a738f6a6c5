package processor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/pkg/apperr"
)

func TestProcessShortTextIsOneChunk(t *testing.T) {
	p := New()

	chunks, err := p.Process("ws1", RawText("Hello world"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Hello world", chunks[0].Text)
	assert.Equal(t, models.SourceTypeText, chunks[0].SourceType)
	assert.Equal(t, models.RawTextLabel, chunks[0].SourceLabel)
	assert.Equal(t, "ws1", chunks[0].WorkspaceID)
}

// unbroken text has no boundaries to prefer, so chunks are hard cuts
func TestProcessHardCutStartsAdvanceBySizeMinusOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2600; i++ {
		b.WriteByte(byte('a' + (i*7+i/26)%26))
	}
	text := b.String()

	p := New()
	chunks, err := p.Process("ws1", RawText(text))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	step := ChunkSize - ChunkOverlap
	for i, c := range chunks {
		start := i * step
		end := start + ChunkSize
		if end > len(text) {
			end = len(text)
		}
		assert.Equal(t, text[start:end], c.Text, "chunk %d", i)
		assert.Equal(t, i, c.Sequence)
	}

	rebuilt := chunks[0].Text
	for _, c := range chunks[1:] {
		rebuilt += c.Text[ChunkOverlap:]
	}
	assert.Equal(t, text, rebuilt)
}

func TestProcessPrefersWordBoundaries(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "lorem"
	}
	text := strings.Join(words, " ")

	p := New()
	chunks, err := p.Process("ws1", RawText(text))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), ChunkSize)
		assert.False(t, strings.HasPrefix(c.Text, " "))
		for _, w := range strings.Fields(c.Text) {
			assert.Equal(t, "lorem", w)
		}
	}
}

func TestProcessKeepsDocumentsIndependent(t *testing.T) {
	docs := []models.Document{
		{Label: "a.pdf", SourceType: models.SourceTypePDF, PageNumber: 1, Content: "first page"},
		{Label: "a.pdf", SourceType: models.SourceTypePDF, PageNumber: 2, Content: "second page"},
		{Label: "b.txt", SourceType: models.SourceTypeText, Content: "other file"},
	}

	p := New()
	chunks, err := p.Process("ws1", docs)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "first page", chunks[0].Text)
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Equal(t, "b.txt", chunks[2].SourceLabel)
	assert.Equal(t, 2, chunks[2].Sequence)
}

func TestProcessSkipsEmptyDocuments(t *testing.T) {
	p := New()
	chunks, err := p.Process("ws1", RawText("   "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLoadHTMLExtractsMainContent(t *testing.T) {
	html := `<html><head><script>var x = 1;</script></head><body>
		<nav>Menu</nav>
		<main><h1>Guide</h1> <p>Install the tool.</p> <p>Accept Cookies</p></main>
	</body></html>`

	docs, err := Load(context.Background(), Upload{Name: "guide.html", Data: []byte(html)})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Guide Install the tool.", docs[0].Content)
	assert.Equal(t, models.SourceTypeText, docs[0].SourceType)
	assert.Equal(t, "guide.html", docs[0].Label)
}

func TestLoadHTMLFallsBackToBody(t *testing.T) {
	docs, err := LoadHTML("page.htm", strings.NewReader(`<body><div>Just   some text</div></body>`))
	require.NoError(t, err)
	assert.Equal(t, "Just some text", docs[0].Content)
}

func TestLoadText(t *testing.T) {
	docs, err := Load(context.Background(), Upload{Name: "notes.md", Data: []byte("# Notes\n\nbody")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "# Notes\n\nbody", docs[0].Content)
	assert.Equal(t, 0, docs[0].PageNumber)
}

func TestSourceTypeOf(t *testing.T) {
	tests := []struct {
		upload Upload
		want   models.SourceType
	}{
		{Upload{Name: "paper.pdf"}, models.SourceTypePDF},
		{Upload{Name: "blob", Data: []byte("%PDF-1.7 ...")}, models.SourceTypePDF},
		{Upload{Name: "upload", ContentType: "application/pdf"}, models.SourceTypePDF},
		{Upload{Name: "index.html"}, models.SourceTypeText},
		{Upload{Name: "readme.md"}, models.SourceTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.upload.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceTypeOf(tt.upload))
		})
	}
}

func TestLoadRejectsBinary(t *testing.T) {
	_, err := Load(context.Background(), Upload{Name: "image.bin", Data: []byte{0x89, 0x00, 0xff}})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestLoadPDFRejectsCorruptFile(t *testing.T) {
	_, err := Load(context.Background(), Upload{Name: "broken.pdf", Data: []byte("not a pdf")})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}
