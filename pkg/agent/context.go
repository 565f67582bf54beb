package agent

import (
	"fmt"
	"strings"

	"github.com/tinyland-inc/wingmate/pkg/providers"
	"github.com/tinyland-inc/wingmate/pkg/store"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

// historyReader is the slice of the message store the context builder
// needs.
type historyReader interface {
	Recent(chatID string, limit int) ([]store.Message, error)
}

// ContextBuilder assembles the bounded conversation window handed to a
// provider, with self messages tagged as the assistant and everything
// else tagged by sender name.
type ContextBuilder struct {
	history historyReader
	window  int
	botName string
}

func NewContextBuilder(history historyReader, window int, botName string) *ContextBuilder {
	if window <= 0 {
		window = 30
	}
	return &ContextBuilder{history: history, window: window, botName: botName}
}

// Build returns the chat's recent history oldest first, with the current
// event appended last.
func (b *ContextBuilder) Build(ev transport.Event) ([]providers.Message, error) {
	msgs, err := b.history.Recent(ev.ChatID, b.window)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	var out []providers.Message
	for _, msg := range msgs {
		if msg.IsFromSelf {
			out = append(out, providers.Message{Role: "assistant", Content: msg.Text})
		} else {
			out = append(out, providers.Message{Role: "user", Content: tagSender(msg.SenderName, msg.Text)})
		}
	}

	out = append(out, providers.Message{Role: "user", Content: tagSender(ev.SenderName, ev.Text)})
	return out, nil
}

func tagSender(name, text string) string {
	if name == "" {
		name = "User"
	}
	return "[" + name + "]: " + text
}

// hinglishMarkers are romanized Hindi tokens common in mixed-script chat.
var hinglishMarkers = []string{
	"hai", "hain", "kya", "nahi", "aur", "bhi",
	"kaise", "kaisa", "accha", "theek", "yaar",
	"bhai", "arre", "haan", "matlab", "wala",
	"kar", "karo", "karna", "raha", "rahi",
}

// DetectLanguage classifies text as "hindi", "hinglish" or "english".
// Devanagari above 30% of the runes means Hindi; two or more marker
// tokens mean Hinglish; everything else is English.
func DetectLanguage(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return "english"
	}

	devanagari := 0
	for _, r := range runes {
		if r >= 0x0900 && r <= 0x097F {
			devanagari++
		}
	}
	if float64(devanagari) > float64(len(runes))*0.3 {
		return "hindi"
	}

	lower := strings.ToLower(text)
	markers := 0
	for _, marker := range hinglishMarkers {
		if strings.Contains(lower, marker) {
			markers++
		}
	}
	if markers >= 2 {
		return "hinglish"
	}

	return "english"
}

// LanguageInstruction maps a detected language to the instruction variant
// appended to the system prompt.
func LanguageInstruction(language string) string {
	switch language {
	case "hindi":
		return "Respond in Hindi (Devanagari script). Match the casual tone."
	case "hinglish":
		return "Respond in Hinglish (Hindi words in Roman script mixed with English). Keep it natural and casual."
	}
	return "Respond in English. Keep it casual and friendly."
}
