package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/xhad/sourcebook/pkg/tracing"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL or OpenAI-compatible API base
	APIKey      string
}

func (c *ChatConfig) applyDefaults() error {
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = openai.GPT4oMini
		default:
			c.Model = "mistral"
		}
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	} else if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	return nil
}

// ChatEngine sends a system prompt and one user message to a langchaingo
// model and returns the first choice.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ProviderOllama:
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		llm, err := ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		return &ChatEngine{config: config, llm: llm}, nil

	case ProviderOpenAI:
		return &ChatEngine{
			config: config,
			llm:    &openAIModel{client: newOpenAIClient(config.APIKey, config.BaseURL), model: config.Model},
		}, nil
	}

	return nil, fmt.Errorf("unknown chat provider %q", config.Provider)
}

// NewWithModel wraps an existing model.
func NewWithModel(config ChatConfig, model llms.Model) (*ChatEngine, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	return &ChatEngine{config: config, llm: model}, nil
}

func (ce *ChatEngine) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userText),
	}

	ctx, span := tracing.StartLLMSpan(ctx, ce.config.Provider, ce.config.Model)
	defer span.End()

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		tracing.RecordError(span, err)
		return "", classify("chat", fmt.Errorf("chat error: %w", err))
	}

	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		err := fmt.Errorf("no response from LLM")
		tracing.RecordError(span, err)
		return "", classify("chat", err)
	}

	return response.Choices[0].Content, nil
}

// openAIModel adapts the go-openai chat API to llms.Model.
type openAIModel struct {
	client *openai.Client
	model  string
}

func (m *openAIModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	req := openai.ChatCompletionRequest{
		Model:       m.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			role = openai.ChatMessageRoleSystem
		case llms.ChatMessageTypeAI:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}

		var text strings.Builder
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				text.WriteString(tc.Text)
			}
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: text.String()})
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &llms.ContentResponse{}
	for _, choice := range resp.Choices {
		out.Choices = append(out.Choices, &llms.ContentChoice{
			Content:    choice.Message.Content,
			StopReason: string(choice.FinishReason),
		})
	}
	return out, nil
}

func (m *openAIModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
