package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultBaseURL = "https://api.anthropic.com"

// Anthropic is the Claude-backed provider.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	temp      float64
}

// NewAnthropic builds a Claude provider from config.
func NewAnthropic(cfg Config) *Anthropic {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(normalizeAnthropicBaseURL(cfg.APIBase)),
	)

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4.6"
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &Anthropic{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		temp:      cfg.Temp,
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Generate(ctx context.Context, systemPrompt string, messages []Message, languageInstruction string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
	}
	if sys := composeSystem(systemPrompt, languageInstruction); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if a.temp > 0 {
		params.Temperature = anthropic.Float(a.temp)
	}

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			params.Messages = append(params.Messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func normalizeAnthropicBaseURL(apiBase string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		return anthropicDefaultBaseURL
	}
	base = strings.TrimRight(base, "/")
	if b, ok := strings.CutSuffix(base, "/v1"); ok {
		base = b
	}
	if base == "" {
		return anthropicDefaultBaseURL
	}
	return base
}
