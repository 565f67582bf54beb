package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/wingmate/pkg/registry"
	"github.com/tinyland-inc/wingmate/pkg/store"
	"github.com/tinyland-inc/wingmate/pkg/transport"
)

func TestBuildTagsRolesAndAppendsCurrent(t *testing.T) {
	fs := &fakeStore{messages: []store.Message{
		{ChatID: "c", SenderName: "Asha", Text: "hello", Timestamp: time.Now()},
		{ChatID: "c", SenderName: "max", Text: "hi!", IsFromSelf: true, Timestamp: time.Now()},
		{ChatID: "other", SenderName: "Ravi", Text: "elsewhere", Timestamp: time.Now()},
	}}
	b := NewContextBuilder(fs, 10, "max")

	ctx, err := b.Build(transport.Event{
		ChatID:     "c",
		SenderName: "Asha",
		Text:       "how are you",
	})
	require.NoError(t, err)
	require.Len(t, ctx, 3)
	assert.Equal(t, "user", ctx[0].Role)
	assert.Equal(t, "[Asha]: hello", ctx[0].Content)
	assert.Equal(t, "assistant", ctx[1].Role)
	assert.Equal(t, "hi!", ctx[1].Content)
	assert.Equal(t, "[Asha]: how are you", ctx[2].Content)
}

func TestBuildDefaultsAnonymousSender(t *testing.T) {
	b := NewContextBuilder(&fakeStore{}, 10, "max")
	ctx, err := b.Build(transport.Event{ChatID: "c", Text: "yo"})
	require.NoError(t, err)
	require.Len(t, ctx, 1)
	assert.Equal(t, "[User]: yo", ctx[0].Content)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"hello there, how are you doing", "english"},
		{"", "english"},
		{"kya haal hai yaar", "hinglish"},
		{"accha theek hai", "hinglish"},
		{"यह पूरी तरह हिंदी में लिखा गया वाक्य है", "hindi"},
		{"hai", "english"}, // one marker is not enough
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.text), "text %q", tt.text)
	}
}

func TestLanguageInstruction(t *testing.T) {
	assert.Contains(t, LanguageInstruction("hindi"), "Devanagari")
	assert.Contains(t, LanguageInstruction("hinglish"), "Hinglish")
	assert.Contains(t, LanguageInstruction("english"), "English")
	assert.Contains(t, LanguageInstruction("klingon"), "English")
}

func TestPromptBuilderTones(t *testing.T) {
	pb := NewPromptBuilder("max")

	p := pb.Build(registry.ContactProfile{Name: "Asha", Tone: registry.ToneSarcastic})
	assert.Contains(t, p, "You are max")
	assert.Contains(t, p, "sarcasm")
	assert.Contains(t, p, "chatting with Asha")

	p = pb.Build(registry.ContactProfile{Name: "Unknown", Tone: registry.ToneNeutral})
	assert.Contains(t, p, "acquaintance")
	assert.NotContains(t, p, "chatting with Unknown")

	p = pb.Build(registry.ContactProfile{Tone: registry.Tone("bogus")})
	assert.Contains(t, p, "acquaintance", "unknown tone falls back to neutral")
}
