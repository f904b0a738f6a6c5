package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/pkg/apperr"
)

// Upload is one submitted file.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type fileKind int

const (
	kindUnsupported fileKind = iota
	kindPDF
	kindHTML
	kindText
)

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".mdx": true, ".rst": true, ".csv": true,
	".json": true, ".yaml": true, ".yml": true, ".xml": true, ".log": true,
}

func detect(u Upload) fileKind {
	ext := strings.ToLower(filepath.Ext(u.Name))
	ct := strings.ToLower(u.ContentType)

	switch {
	case ext == ".pdf" || strings.HasPrefix(ct, "application/pdf") || bytes.HasPrefix(u.Data, []byte("%PDF-")):
		return kindPDF
	case ext == ".html" || ext == ".htm" || strings.HasPrefix(ct, "text/html"):
		return kindHTML
	case textExtensions[ext] || strings.HasPrefix(ct, "text/"):
		return kindText
	case utf8.Valid(u.Data) && bytes.IndexByte(u.Data, 0) < 0:
		return kindText
	default:
		return kindUnsupported
	}
}

// SourceTypeOf reports the source type an upload is ingested as.
func SourceTypeOf(u Upload) models.SourceType {
	if detect(u) == kindPDF {
		return models.SourceTypePDF
	}
	return models.SourceTypeText
}

// Load turns an upload into documents: one per page for PDFs, one for
// text and HTML files.
func Load(ctx context.Context, u Upload) ([]models.Document, error) {
	switch detect(u) {
	case kindPDF:
		return LoadPDF(ctx, u.Name, u.Data)
	case kindHTML:
		return LoadHTML(u.Name, bytes.NewReader(u.Data))
	case kindText:
		return LoadText(ctx, u.Name, bytes.NewReader(u.Data))
	default:
		return nil, apperr.Validation("load", fmt.Sprintf("unsupported file type: %s", u.Name))
	}
}

// LoadPDF reads a PDF one page at a time. Page numbers are 1-based.
func LoadPDF(ctx context.Context, label string, data []byte) (docs []models.Document, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = apperr.Validation("load", fmt.Sprintf("failed to read PDF %s: %v", label, r))
		}
	}()

	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))

	pages, err := loader.Load(ctx)
	if err != nil {
		return nil, apperr.Validation("load", fmt.Sprintf("failed to read PDF %s: %v", label, err))
	}

	docs = make([]models.Document, 0, len(pages))
	for i, page := range pages {
		pageNumber := i + 1
		if n, ok := page.Metadata["page"].(int); ok {
			pageNumber = n
		}
		docs = append(docs, models.Document{
			Label:      label,
			SourceType: models.SourceTypePDF,
			PageNumber: pageNumber,
			Content:    page.PageContent,
		})
	}
	return docs, nil
}

// LoadText reads a plain text file as a single document.
func LoadText(ctx context.Context, label string, r io.Reader) ([]models.Document, error) {
	loaded, err := documentloaders.NewText(r).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", label, err)
	}

	docs := make([]models.Document, 0, len(loaded))
	for _, d := range loaded {
		docs = append(docs, models.Document{
			Label:      label,
			SourceType: models.SourceTypeText,
			Content:    d.PageContent,
		})
	}
	return docs, nil
}

// RawText wraps pasted text as a document.
func RawText(text string) []models.Document {
	return []models.Document{{
		Label:      models.RawTextLabel,
		SourceType: models.SourceTypeText,
		Content:    text,
	}}
}
