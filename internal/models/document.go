package models

// SourceType identifies how a source was ingested.
type SourceType string

const (
	SourceTypePDF    SourceType = "pdf"
	SourceTypeText   SourceType = "text"
	SourceTypeGitHub SourceType = "github"
)

// RawTextLabel is the source label given to pasted text.
const RawTextLabel = "Raw Text"

// Document is one loaded unit of a source before chunking: a PDF page,
// an uploaded text or HTML file, or pasted text.
type Document struct {
	Label      string
	SourceType SourceType
	PageNumber int
	Content    string
}
