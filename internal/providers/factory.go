package providers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/dreami/internal/engine"
)

// DefaultProvider is used when no provider is configured.
const DefaultProvider = "deepseek"

type wire int

const (
	wireOpenAI wire = iota
	wireAnthropic
)

// providerSpec describes how to reach one provider. Env names are consulted
// only when the matching Options field is empty.
type providerSpec struct {
	envPrefix    string // KEY, MODEL and BASE_URL are read as <prefix>_API_KEY etc.
	defaultModel string
	defaultBase  string
	localKey     string // placeholder key for local servers; empty means a key is required
	wire         wire
}

var registry = map[string]providerSpec{
	"deepseek":  {envPrefix: "DEEPSEEK", defaultModel: "deepseek-chat", defaultBase: "https://api.deepseek.com"},
	"openai":    {envPrefix: "OPENAI", defaultModel: "gpt-4o-mini"},
	"anthropic": {envPrefix: "ANTHROPIC", defaultModel: "claude-3-5-sonnet-latest", wire: wireAnthropic},
	"kimi":      {envPrefix: "KIMI", defaultModel: "kimi-k2-250711", defaultBase: "https://ark.ap-southeast.bytepluses.com/api/v3"},
	"gemini":    {envPrefix: "GEMINI", defaultModel: "gemini-1.5-flash", defaultBase: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"glm":       {envPrefix: "GLM", defaultModel: "glm-4-plus", defaultBase: "https://open.bigmodel.cn/api/paas/v4"},
	"minimax":   {envPrefix: "MINIMAX", defaultModel: "abab6.5s-chat", defaultBase: "https://api.minimax.chat/v1"},
	"groq":      {envPrefix: "GROQ", defaultModel: "llama-3.1-70b-versatile", defaultBase: "https://api.groq.com/openai/v1"},
	"lmstudio":  {envPrefix: "LMSTUDIO", defaultModel: "local-model", defaultBase: "http://localhost:1234/v1", localKey: "lm-studio"},
	"ollama":    {envPrefix: "OLLAMA", defaultModel: "llama3.1", defaultBase: "http://localhost:11434/v1", localKey: "ollama"},
}

// Options selects and configures a provider. Empty fields fall back to the
// provider's environment variables, then to its defaults.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// Resolved is the effective provider configuration.
type Resolved struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// Supported lists the known provider names.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvPrefix returns the environment variable prefix of provider, e.g.
// "DEEPSEEK" for deepseek.
func EnvPrefix(provider string) (string, bool) {
	ps, ok := registry[strings.ToLower(provider)]
	return ps.envPrefix, ok
}

// Resolve fills in opts from the environment and the provider defaults.
func Resolve(opts Options) (Resolved, error) {
	name := strings.ToLower(strings.TrimSpace(opts.Provider))
	if name == "" {
		name = strings.ToLower(os.Getenv("LLM_PROVIDER"))
	}
	if name == "" {
		name = DefaultProvider
	}

	ps, ok := registry[name]
	if !ok {
		return Resolved{}, fmt.Errorf("unknown LLM provider: %s (supported: %s)", name, strings.Join(Supported(), ", "))
	}

	r := Resolved{
		Provider: name,
		APIKey:   firstNonEmpty(opts.APIKey, os.Getenv(ps.envPrefix+"_API_KEY"), ps.localKey),
		Model:    firstNonEmpty(opts.Model, os.Getenv(ps.envPrefix+"_MODEL"), ps.defaultModel),
		BaseURL:  firstNonEmpty(opts.BaseURL, os.Getenv(ps.envPrefix+"_BASE_URL"), ps.defaultBase),
	}
	if r.APIKey == "" {
		return Resolved{}, fmt.Errorf("%s_API_KEY not set", ps.envPrefix)
	}
	return r, nil
}

// NewLLMClient builds the client for opts and returns it with the model name.
func NewLLMClient(opts Options) (engine.LLMClient, string, error) {
	r, err := Resolve(opts)
	if err != nil {
		return nil, "", err
	}

	var client engine.LLMClient
	switch registry[r.Provider].wire {
	case wireAnthropic:
		client, err = NewAnthropicClient(r.APIKey, r.Model, r.BaseURL)
	default:
		client, err = NewOpenAIClient(r.APIKey, r.Model, r.BaseURL)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s client: %w", r.Provider, err)
	}
	return client, r.Model, nil
}

// NewLLMClientFromEnv builds a client purely from environment variables.
func NewLLMClientFromEnv() (engine.LLMClient, string, error) {
	return NewLLMClient(Options{})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
