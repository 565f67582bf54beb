// Package providers abstracts the text-generation backends. The pipeline
// only sees the Provider interface; concrete clients live in this package
// and are chosen at startup from config.
package providers

import (
	"context"
	"fmt"
	"strings"
)

// Message is one turn of conversation history handed to a provider,
// oldest first.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider generates a reply from a system prompt and bounded history.
// An empty reply with a nil error means the model chose not to answer;
// the pipeline treats it as a no-op.
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt string, messages []Message, languageInstruction string) (string, error)
}

// Config selects and parameterizes a provider.
type Config struct {
	Name      string  `json:"name" env:"NAME"`
	APIKey    string  `json:"api_key" env:"API_KEY"`
	APIBase   string  `json:"api_base" env:"API_BASE"`
	Model     string  `json:"model" env:"MODEL"`
	MaxTokens int     `json:"max_tokens" env:"MAX_TOKENS"`
	Temp      float64 `json:"temperature" env:"TEMPERATURE"`
}

// New builds the provider named in config.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Name) {
	case "openai", "":
		return NewOpenAI(cfg), nil
	case "anthropic", "claude":
		return NewAnthropic(cfg), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Name)
}

// composeSystem appends the language instruction to the system prompt when
// one is present.
func composeSystem(systemPrompt, languageInstruction string) string {
	if languageInstruction == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + languageInstruction
}
