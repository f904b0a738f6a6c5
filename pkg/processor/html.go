package processor

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/sourcebook/internal/models"
)

// Selectors tried in order when looking for the main content of a page.
var mainContentSelectors = []string{
	"main",
	"article",
	".content",
	"#content",
	".documentation",
	"#documentation",
}

var noisePatterns = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
}

// LoadHTML extracts the readable main content of an HTML page.
func LoadHTML(label string, r io.Reader) ([]models.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML %s: %w", label, err)
	}

	return []models.Document{{
		Label:      label,
		SourceType: models.SourceTypeText,
		Content:    extractMainContent(doc),
	}}, nil
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	var content string
	for _, selector := range mainContentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if strings.TrimSpace(content) == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
