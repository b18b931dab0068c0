package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LLM_PROVIDER", "")
	for _, ps := range registry {
		t.Setenv(ps.envPrefix+"_API_KEY", "")
		t.Setenv(ps.envPrefix+"_MODEL", "")
		t.Setenv(ps.envPrefix+"_BASE_URL", "")
	}
}

func TestResolve_DefaultsToDeepSeek(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	r, err := Resolve(Options{})
	require.NoError(t, err)
	assert.Equal(t, Resolved{
		Provider: "deepseek",
		APIKey:   "sk-test",
		Model:    "deepseek-chat",
		BaseURL:  "https://api.deepseek.com",
	}, r)
}

func TestResolve_Precedence(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("LLM_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "env-key")
	t.Setenv("GROQ_MODEL", "env-model")

	r, err := Resolve(Options{Model: "explicit-model"})
	require.NoError(t, err)
	assert.Equal(t, "groq", r.Provider)
	assert.Equal(t, "env-key", r.APIKey)
	assert.Equal(t, "explicit-model", r.Model)
	assert.Equal(t, "https://api.groq.com/openai/v1", r.BaseURL)
}

func TestResolve_Errors(t *testing.T) {
	clearProviderEnv(t)

	_, err := Resolve(Options{Provider: "nope"})
	assert.ErrorContains(t, err, "unknown LLM provider")

	_, err = Resolve(Options{Provider: "openai"})
	assert.ErrorContains(t, err, "OPENAI_API_KEY not set")
}

func TestResolve_LocalServersNeedNoKey(t *testing.T) {
	clearProviderEnv(t)

	r, err := Resolve(Options{Provider: "Ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", r.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", r.BaseURL)
}

func TestNewLLMClient(t *testing.T) {
	clearProviderEnv(t)

	client, model, err := NewLLMClient(Options{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)
	assert.Equal(t, "claude-3-5-sonnet-latest", model)

	client, _, err = NewLLMClient(Options{Provider: "deepseek", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)
}

func TestExtractErrorMetadata(t *testing.T) {
	status, retry := extractErrorMetadata(assert.AnError)
	assert.Zero(t, status)
	assert.Empty(t, retry)

	status, retry = extractErrorMetadata(errString("error, status code: 429, Retry-After: 12"))
	assert.Equal(t, 429, status)
	assert.Equal(t, "12", retry)
}

type errString string

func (e errString) Error() string { return string(e) }

func TestEnvPrefix(t *testing.T) {
	p, ok := EnvPrefix("DeepSeek")
	assert.True(t, ok)
	assert.Equal(t, "DEEPSEEK", p)

	_, ok = EnvPrefix("nope")
	assert.False(t, ok)
}
