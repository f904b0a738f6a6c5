package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Chunk is the smallest retrievable unit of content.
type Chunk struct {
	WorkspaceID string
	// Sequence is the chunk's position within its ingestion job.
	Sequence int

	Text        string
	SourceType  SourceType
	SourceLabel string

	// Document chunks only. 0 when unknown.
	PageNumber int

	// Code chunks only.
	FilePath  string
	LineStart int
	LineEnd   int
	RepoLabel string
}

// IsCode reports whether the chunk is a line window of a repository file.
func (c Chunk) IsCode() bool {
	return c.FilePath != "" && c.LineStart > 0
}

// CitationLabel is the label rendered inside "[Source: ...]" tokens.
func (c Chunk) CitationLabel() string {
	if c.IsCode() && c.RepoLabel != "" {
		return c.RepoLabel + "/" + c.FilePath
	}
	if c.IsCode() {
		return c.FilePath
	}
	return c.SourceLabel
}

// PageRef is the page part of a citation: "L10-L50" for code, the page
// number otherwise.
func (c Chunk) PageRef() string {
	if c.IsCode() {
		return fmt.Sprintf("L%d-L%d", c.LineStart, c.LineEnd)
	}
	return strconv.Itoa(c.PageNumber)
}

// Metadata converts the chunk into its vector-store payload.
func (c Chunk) Metadata() Metadata {
	m := Metadata{
		Text:        c.Text,
		Source:      c.CitationLabel(),
		SourceType:  c.SourceType,
		Page:        c.PageRef(),
		WorkspaceID: c.WorkspaceID,
	}
	if c.IsCode() {
		m.FilePath = c.FilePath
		m.LineStart = c.LineStart
		m.LineEnd = c.LineEnd
		m.RepoURL = c.RepoLabel
	}
	return m
}

// Metadata is the payload stored next to each vector. Optional fields are
// left at their zero value when absent and are never serialized.
type Metadata struct {
	Text        string     `json:"text"`
	Source      string     `json:"source"`
	SourceType  SourceType `json:"sourceType"`
	Page        string     `json:"page"`
	WorkspaceID string     `json:"workspaceId"`

	FilePath  string `json:"filePath,omitempty"`
	LineStart int    `json:"lineStart,omitempty"`
	LineEnd   int    `json:"lineEnd,omitempty"`
	RepoURL   string `json:"repoUrl,omitempty"`
}

// Fields returns the payload as a map, omitting absent optional fields.
func (m Metadata) Fields() map[string]any {
	out := map[string]any{
		"text":        m.Text,
		"source":      m.Source,
		"sourceType":  string(m.SourceType),
		"page":        m.Page,
		"workspaceId": m.WorkspaceID,
	}
	if m.FilePath != "" {
		out["filePath"] = m.FilePath
	}
	if m.LineStart > 0 {
		out["lineStart"] = m.LineStart
	}
	if m.LineEnd > 0 {
		out["lineEnd"] = m.LineEnd
	}
	if m.RepoURL != "" {
		out["repoUrl"] = m.RepoURL
	}
	return out
}

// StringFields is Fields with every value rendered as a string, for stores
// that only accept string metadata.
func (m Metadata) StringFields() map[string]string {
	fields := m.Fields()
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// MetadataFromStrings rebuilds a Metadata from StringFields output.
func MetadataFromStrings(fields map[string]string) (Metadata, error) {
	m := Metadata{
		Text:        fields["text"],
		Source:      fields["source"],
		SourceType:  SourceType(fields["sourceType"]),
		Page:        fields["page"],
		WorkspaceID: fields["workspaceId"],
		FilePath:    fields["filePath"],
		RepoURL:     fields["repoUrl"],
	}

	var err error
	if v := fields["lineStart"]; v != "" {
		if m.LineStart, err = strconv.Atoi(v); err != nil {
			return Metadata{}, fmt.Errorf("invalid lineStart %q: %w", v, err)
		}
	}
	if v := fields["lineEnd"]; v != "" {
		if m.LineEnd, err = strconv.Atoi(v); err != nil {
			return Metadata{}, fmt.Errorf("invalid lineEnd %q: %w", v, err)
		}
	}
	return m, nil
}

// Chunk reverses Chunk.Metadata.
func (m Metadata) Chunk() Chunk {
	c := Chunk{
		WorkspaceID: m.WorkspaceID,
		Text:        m.Text,
		SourceType:  m.SourceType,
		SourceLabel: m.Source,
	}

	if m.FilePath != "" && m.LineStart > 0 {
		c.FilePath = m.FilePath
		c.LineStart = m.LineStart
		c.LineEnd = m.LineEnd
		c.RepoLabel = m.RepoURL
		if m.RepoURL != "" {
			c.SourceLabel = m.RepoURL
		}
		return c
	}

	if page, err := strconv.Atoi(strings.TrimSpace(m.Page)); err == nil {
		c.PageNumber = page
	}
	return c
}
