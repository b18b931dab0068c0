package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// PromptBuilder helps compose prompts from fragments and variables.
type PromptBuilder struct {
	basePrompt *Prompt
	fragments  []string
	variables  map[string]string
}

// NewPromptBuilder creates a builder from a specific prompt version.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	basePrompt, err := registry.Get(id, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}
	return newBuilder(basePrompt), nil
}

// NewLatestPromptBuilder creates a builder from the latest version of id.
func NewLatestPromptBuilder(registry *PromptRegistry, id string) (*PromptBuilder, error) {
	basePrompt, err := registry.GetLatest(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get base prompt: %w", err)
	}
	return newBuilder(basePrompt), nil
}

func newBuilder(p *Prompt) *PromptBuilder {
	return &PromptBuilder{
		basePrompt: p,
		fragments:  []string{p.Content},
		variables:  make(map[string]string),
	}
}

// AddFragment appends a fragment to the prompt.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	if strings.TrimSpace(text) != "" {
		b.fragments = append(b.fragments, text)
	}
	return b
}

// SetVariable sets a variable for {{key}} substitution.
func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build joins the fragments and substitutes variables. A placeholder with no
// value is an error.
func (b *PromptBuilder) Build() (string, error) {
	result := strings.Join(b.fragments, "\n\n")

	var missing []string
	result = placeholderRe.ReplaceAllStringFunc(result, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := b.variables[key]; ok {
			return v
		}
		missing = append(missing, key)
		return m
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s: unset variables: %s", b.basePrompt.ID, strings.Join(missing, ", "))
	}
	return result, nil
}
