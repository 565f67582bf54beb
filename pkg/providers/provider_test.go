package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(Config{Name: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = New(Config{Name: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = New(Config{Name: "claude", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name(), "empty name defaults to openai")

	_, err = New(Config{Name: "llamacpp"})
	assert.Error(t, err)
}

func TestComposeSystem(t *testing.T) {
	assert.Equal(t, "base", composeSystem("base", ""))
	assert.Equal(t, "base\n\nRespond in Hinglish.", composeSystem("base", "Respond in Hinglish."))
}

func TestNormalizeAnthropicBaseURL(t *testing.T) {
	assert.Equal(t, anthropicDefaultBaseURL, normalizeAnthropicBaseURL(""))
	assert.Equal(t, anthropicDefaultBaseURL, normalizeAnthropicBaseURL("  "))
	assert.Equal(t, "https://proxy.example.com", normalizeAnthropicBaseURL("https://proxy.example.com/v1/"))
}
