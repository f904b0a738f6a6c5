// Package chat answers a question from a workspace's sources.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
	"github.com/xhad/sourcebook/pkg/apperr"
	"github.com/xhad/sourcebook/pkg/citation"
	"github.com/xhad/sourcebook/pkg/retrieval"
)

type Retriever interface {
	Retrieve(ctx context.Context, workspaceID, query string, topK int) (retrieval.Context, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation is a resolved inline citation in an answer.
type Citation struct {
	Raw    string          `json:"raw"`
	Label  string          `json:"label"`
	Page   string          `json:"page"`
	Found  bool            `json:"found"`
	Source models.Metadata `json:"source"`
}

type Answer struct {
	Response  string            `json:"response"`
	Sources   []models.Metadata `json:"sources"`
	Citations []Citation        `json:"citations,omitempty"`
}

type Service struct {
	retriever Retriever
	completer types.Completer
	topK      int
}

func New(retriever Retriever, completer types.Completer) *Service {
	return &Service{retriever: retriever, completer: completer, topK: retrieval.ChatTopK}
}

// Reply answers the last message of a conversation. Earlier turns are not
// sent to the model.
func (s *Service) Reply(ctx context.Context, workspaceID string, messages []Message) (*Answer, error) {
	if len(messages) == 0 {
		return nil, apperr.Validation("chat", "At least one message is required")
	}
	return s.Ask(ctx, workspaceID, messages[len(messages)-1].Content)
}

// Ask retrieves context for question and completes an answer grounded in
// it. An empty workspace gets retrieval.InsufficientInformation without a
// completion call.
func (s *Service) Ask(ctx context.Context, workspaceID, question string) (*Answer, error) {
	if workspaceID == "" {
		return nil, apperr.Validation("chat", "Workspace ID is required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, apperr.Validation("chat", "Question is required")
	}

	rc, err := s.retriever.Retrieve(ctx, workspaceID, question, s.topK)
	if errors.Is(err, retrieval.ErrNoMatches) {
		return &Answer{Response: retrieval.InsufficientInformation, Sources: []models.Metadata{}}, nil
	}
	if err != nil {
		return nil, err
	}

	response, err := s.completer.Complete(ctx, citation.SystemPrompt(rc.Block), question)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Response: response, Sources: rc.Sources()}
	for _, r := range citation.Resolve(response, rc.Matches) {
		answer.Citations = append(answer.Citations, Citation{
			Raw:    r.Token.Raw,
			Label:  r.Token.Label,
			Page:   r.Token.Page,
			Found:  r.Found,
			Source: r.Metadata(),
		})
	}
	return answer, nil
}
