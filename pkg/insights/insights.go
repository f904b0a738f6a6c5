// Package insights produces a workspace overview and a mind-map outline from
// a sample of the workspace's chunks.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/retrieval"
)

const (
	overviewQuery = "summarize the main topics and concepts"
	mindMapQuery  = "main concepts topics structure"

	overviewRequest = "Analyze this workspace and provide the JSON synthesis."
	mindMapRequest  = "Create the mind map JSON structure."

	// mindMapExcerpt caps each chunk's text in the mind-map prompt.
	mindMapExcerpt = 500
)

type Narrative struct {
	Act1 string `json:"act1"`
	Act2 string `json:"act2"`
	Act3 string `json:"act3"`
}

type Overview struct {
	Narrative          Narrative `json:"narrative"`
	SuggestedQuestions []string  `json:"suggestedQuestions"`
}

type Branch struct {
	Name     string   `json:"name"`
	Children []string `json:"children"`
}

type MindMap struct {
	Central  string   `json:"central"`
	Branches []Branch `json:"branches"`
}

// EmptyOverview is returned for a workspace with no content.
func EmptyOverview() *Overview {
	return &Overview{
		Narrative: Narrative{
			Act1: "No content found in this workspace.",
			Act2: "Add some sources (PDFs or GitHub repos) to get started.",
			Act3: "Once you add sources, I'll analyze them and provide insights.",
		},
		SuggestedQuestions: []string{},
	}
}

// FallbackOverview is returned when the model reply cannot be parsed.
func FallbackOverview(reply string) *Overview {
	return &Overview{
		Narrative: Narrative{
			Act1: truncate(reply, 200) + "...",
			Act2: "Analysis generated but couldn't be structured properly.",
			Act3: "Try asking specific questions in the chat.",
		},
		SuggestedQuestions: []string{
			"What are the main topics covered?",
			"What are the key concepts?",
			"How do the different sources connect?",
			"What practical insights can be drawn?",
		},
	}
}

// EmptyMindMap is returned for a workspace with no content.
func EmptyMindMap() *MindMap {
	return &MindMap{Central: "No sources yet", Branches: []Branch{}}
}

// FallbackMindMap is returned when the model reply cannot be parsed.
func FallbackMindMap() *MindMap {
	return &MindMap{
		Central:  "Workspace",
		Branches: []Branch{{Name: "Sources", Children: []string{"PDF Documents", "GitHub Repos"}}},
	}
}

// Retriever is the retrieval dependency.
type Retriever interface {
	Retrieve(ctx context.Context, workspaceID, query string, topK int) (retrieval.Context, error)
}

type Service struct {
	retriever Retriever
	completer types.Completer
}

func New(retriever Retriever, completer types.Completer) *Service {
	return &Service{retriever: retriever, completer: completer}
}

// Overview summarizes a workspace. Unparseable model output yields
// FallbackOverview rather than an error.
func (s *Service) Overview(ctx context.Context, workspaceID string) (*Overview, error) {
	rc, err := s.retriever.Retrieve(ctx, workspaceID, overviewQuery, retrieval.OverviewTopK)
	if errors.Is(err, retrieval.ErrNoMatches) {
		return EmptyOverview(), nil
	}
	if err != nil {
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, overviewPrompt(overviewSamples(rc)), overviewRequest)
	if err != nil {
		return nil, err
	}

	overview, err := ParseOverview(reply)
	if err != nil {
		log.Printf("Failed to parse synthesis JSON: %v", err)
		return FallbackOverview(reply), nil
	}
	return overview, nil
}

// MindMap outlines a workspace's main themes. Unparseable model output
// yields FallbackMindMap rather than an error.
func (s *Service) MindMap(ctx context.Context, workspaceID string) (*MindMap, error) {
	rc, err := s.retriever.Retrieve(ctx, workspaceID, mindMapQuery, retrieval.MindMapTopK)
	if errors.Is(err, retrieval.ErrNoMatches) {
		return EmptyMindMap(), nil
	}
	if err != nil {
		return nil, err
	}

	reply, err := s.completer.Complete(ctx, mindMapPrompt(mindMapSamples(rc)), mindMapRequest)
	if err != nil {
		return nil, err
	}

	mindMap, err := ParseMindMap(reply)
	if err != nil {
		log.Printf("Failed to parse mindmap JSON: %v", err)
		return FallbackMindMap(), nil
	}
	return mindMap, nil
}

func overviewSamples(rc retrieval.Context) string {
	parts := make([]string, len(rc.Matches))
	for i, m := range rc.Matches {
		meta := m.Metadata

		sourceType := string(meta.SourceType)
		if sourceType == "" {
			sourceType = "unknown"
		}
		info := fmt.Sprintf("[%s] %s", sourceType, meta.Source)
		if meta.FilePath != "" {
			info += " - " + meta.FilePath
		}
		if meta.Page != "" && meta.Page != "0" {
			info += " (" + meta.Page + ")"
		}
		parts[i] = fmt.Sprintf("--- %s ---\n%s", info, meta.Text)
	}
	return strings.Join(parts, "\n\n")
}

func mindMapSamples(rc retrieval.Context) string {
	parts := make([]string, len(rc.Matches))
	for i, m := range rc.Matches {
		meta := m.Metadata

		sourceType := string(meta.SourceType)
		if sourceType == "" {
			sourceType = "unknown"
		}
		label := meta.FilePath
		if label == "" {
			label = meta.Source
		}
		parts[i] = fmt.Sprintf("[%s] %s: %s", sourceType, label, truncate(meta.Text, mindMapExcerpt))
	}
	return strings.Join(parts, "\n\n")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func overviewPrompt(samples string) string {
	return `You are an expert research analyst. Analyze the following content samples from a research workspace and provide a structured synthesis.

Your response MUST be valid JSON with this exact structure:
{
    "narrative": {
        "act1": "High-level overview of what this workspace contains (2-3 sentences)",
        "act2": "Key themes, concepts, and patterns you've identified (2-3 sentences)",
        "act3": "Potential knowledge gaps or areas worth exploring further (2-3 sentences)"
    },
    "suggestedQuestions": [
        "Question 1 that would help explore the content",
        "Question 2 about a specific concept found",
        "Question 3 about connections between topics",
        "Question 4 about practical applications"
    ]
}

Be specific and reference actual topics from the content. Do not be generic.

CONTENT SAMPLES:
` + samples
}

func mindMapPrompt(samples string) string {
	return `Analyze the following content and create a mind map structure.

Return ONLY valid JSON with this structure:
{
    "central": "Main Topic Name",
    "branches": [
        {
            "name": "Branch 1 Name",
            "children": ["Sub-topic 1", "Sub-topic 2", "Sub-topic 3"]
        },
        {
            "name": "Branch 2 Name",
            "children": ["Sub-topic 1", "Sub-topic 2"]
        }
    ]
}

Rules:
- Create 3-6 main branches representing key themes
- Each branch should have 2-4 specific children
- Use concise labels (2-4 words each)
- Be specific based on actual content, not generic

CONTENT:
` + samples
}
