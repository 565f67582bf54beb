package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAI is the chat-completions backed provider. A custom base URL makes
// it work against any OpenAI-compatible endpoint.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int64
	temp      float64
}

// NewOpenAI builds an OpenAI provider from config.
func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIBase != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIBase))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAI{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		temp:      cfg.Temp,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, systemPrompt string, messages []Message, languageInstruction string) (string, error) {
	var parts []openai.ChatCompletionMessageParamUnion
	if sys := composeSystem(systemPrompt, languageInstruction); sys != "" {
		parts = append(parts, openai.SystemMessage(sys))
	}
	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			parts = append(parts, openai.AssistantMessage(msg.Content))
		default:
			parts = append(parts, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(o.model),
		Messages:            parts,
		MaxCompletionTokens: openai.Int(o.maxTokens),
	}
	if o.temp > 0 {
		params.Temperature = openai.Float(o.temp)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completions call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
