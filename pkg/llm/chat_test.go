package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/sourcebook/pkg/apperr"
	"github.com/xhad/sourcebook/pkg/llm"
)

// fakeModel records the last request and replies with a canned answer.
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  llm.ChatConfig
		wantErr bool
	}{
		{"ollama defaults", llm.ChatConfig{}, false},
		{"openai", llm.ChatConfig{Provider: llm.ProviderOpenAI, APIKey: "sk-test"}, false},
		{"temperature too high", llm.ChatConfig{Temperature: 1.5}, true},
		{"negative max tokens", llm.ChatConfig{MaxTokens: -1}, true},
		{"unknown provider", llm.ChatConfig{Provider: "nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := llm.NewWithConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, engine)
		})
	}
}

func TestComplete(t *testing.T) {
	model := &fakeModel{reply: "The answer [Source: a.pdf, Page 1]"}
	engine, err := llm.NewWithModel(llm.ChatConfig{Temperature: 0.2, MaxTokens: 500}, model)
	require.NoError(t, err)

	answer, err := engine.Complete(context.Background(), "system rules", "what is it?")
	require.NoError(t, err)
	assert.Equal(t, "The answer [Source: a.pdf, Page 1]", answer)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.TextContent{Text: "system rules"}, model.messages[0].Parts[0])
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "what is it?"}, model.messages[1].Parts[0])
	assert.InDelta(t, 0.2, model.options.Temperature, 1e-9)
	assert.Equal(t, 500, model.options.MaxTokens)
}

func TestCompleteClassifiesErrors(t *testing.T) {
	engine, err := llm.NewWithModel(llm.ChatConfig{}, &fakeModel{err: errors.New("API returned unexpected status code: 429")})
	require.NoError(t, err)

	_, err = engine.Complete(context.Background(), "s", "u")
	assert.True(t, apperr.IsRateLimited(err))

	engine, err = llm.NewWithModel(llm.ChatConfig{}, &fakeModel{err: errors.New("model not found")})
	require.NoError(t, err)

	_, err = engine.Complete(context.Background(), "s", "u")
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}
