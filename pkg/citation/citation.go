// Package citation parses "[Source: label, Page ref]" tokens out of
// generated answers and resolves them against retrieved chunks.
//
// The token grammar and the prompt text that asks the model to emit it both
// live here and change together. Bump GrammarVersion when either changes.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
)

const GrammarVersion = 1

// NotFoundText is the body of the placeholder chunk returned for a token
// that matches nothing in the retrieved context.
const NotFoundText = "Specific text chunk not found in context metadata."

var (
	tokenPattern = regexp.MustCompile(`\[Source: (.*?), Page ([^\]]+)\]`)
	rangePattern = regexp.MustCompile(`^(?i:L)?(\d+)\s*[-–]\s*(?i:L)?(\d+)$`)
	linePattern  = regexp.MustCompile(`^(?i:L)?(\d+)$`)
)

// Token is one citation found in an answer.
type Token struct {
	Raw   string
	Label string
	Page  string
}

// Parse returns every citation token in answer, in order of appearance.
func Parse(answer string) []Token {
	found := tokenPattern.FindAllStringSubmatch(answer, -1)
	tokens := make([]Token, 0, len(found))
	for _, m := range found {
		tokens = append(tokens, Token{
			Raw:   m[0],
			Label: strings.TrimSpace(m[1]),
			Page:  strings.TrimSpace(m[2]),
		})
	}
	return tokens
}

// Format renders the token for chunk c.
func Format(c models.Chunk) string {
	return fmt.Sprintf("[Source: %s, Page %s]", c.CitationLabel(), c.PageRef())
}

// Resolution pairs a token with the chunk it points at. When Found is false
// Chunk is a placeholder carrying the token's label, its page or line
// range, and NotFoundText.
type Resolution struct {
	Token Token
	Chunk models.Chunk
	Found bool
}

// Metadata is the payload shown for the resolution. A placeholder keeps the
// token's page text verbatim.
func (r Resolution) Metadata() models.Metadata {
	m := r.Chunk.Metadata()
	if !r.Found {
		m.Page = r.Token.Page
	}
	return m
}

// Resolve resolves every token in answer against the matches of the
// retrieval that produced it.
func Resolve(answer string, matches []types.Match) []Resolution {
	chunks := make([]models.Chunk, len(matches))
	for i, m := range matches {
		chunks[i] = m.Metadata.Chunk()
	}

	tokens := Parse(answer)
	out := make([]Resolution, len(tokens))
	for i, tok := range tokens {
		out[i] = ResolveToken(tok, chunks)
	}
	return out
}

// ResolveToken returns the first chunk, in ranking order, whose label and
// page both match tok.
func ResolveToken(tok Token, chunks []models.Chunk) Resolution {
	for _, c := range chunks {
		if labelMatches(tok.Label, c) && pageMatches(tok.Page, c) {
			return Resolution{Token: tok, Chunk: c, Found: true}
		}
	}
	return Resolution{Token: tok, Chunk: placeholder(tok), Found: false}
}

func placeholder(tok Token) models.Chunk {
	c := models.Chunk{
		SourceLabel: tok.Label,
		Text:        NotFoundText,
	}

	if m := rangePattern.FindStringSubmatch(tok.Page); m != nil && isLineRef(tok.Page) {
		c.FilePath = tok.Label
		c.LineStart, _ = strconv.Atoi(m[1])
		c.LineEnd, _ = strconv.Atoi(m[2])
		return c
	}
	if m := linePattern.FindStringSubmatch(tok.Page); m != nil && isLineRef(tok.Page) {
		c.FilePath = tok.Label
		c.LineStart, _ = strconv.Atoi(m[1])
		c.LineEnd = c.LineStart
		return c
	}

	if page, err := strconv.Atoi(tok.Page); err == nil {
		c.PageNumber = page
	}
	return c
}

func isLineRef(page string) bool {
	return strings.HasPrefix(page, "L") || strings.HasPrefix(page, "l")
}

// labelMatches accepts the chunk's citation label, source label or file
// path, either verbatim or as a path suffix of one another.
func labelMatches(label string, c models.Chunk) bool {
	if label == "" {
		return false
	}
	for _, candidate := range []string{c.CitationLabel(), c.SourceLabel, c.FilePath} {
		if candidate == "" {
			continue
		}
		if label == candidate ||
			strings.HasSuffix(candidate, "/"+label) ||
			strings.HasSuffix(label, "/"+candidate) {
			return true
		}
	}
	return false
}

func pageMatches(page string, c models.Chunk) bool {
	if page == c.PageRef() {
		return true
	}

	if !c.IsCode() {
		n, err := strconv.Atoi(page)
		return err == nil && n == c.PageNumber
	}

	if m := rangePattern.FindStringSubmatch(page); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		return start == c.LineStart && end == c.LineEnd
	}

	// a single line inside the window
	if m := linePattern.FindStringSubmatch(page); m != nil {
		line, _ := strconv.Atoi(m[1])
		return line >= c.LineStart && line <= c.LineEnd
	}
	return false
}
