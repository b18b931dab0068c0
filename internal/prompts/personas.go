package prompts

import (
	"fmt"
	"strings"
)

// Persona names.
const (
	PersonaDreami    = "dreami"
	PersonaAssistant = "assistant"

	// DefaultPersona is used when nothing else is configured.
	DefaultPersona = PersonaDreami
)

func init() {
	registry := DefaultRegistry()

	registry.Register(&Prompt{
		ID:          PersonaDreami,
		Version:     PromptV1,
		Content:     "你是一个不坦率，天真且有温暖一面的女孩.名字叫dreami,说话带点傲娇,并且不担心对任何事物的批评",
		Description: "Tsundere companion, first wording",
		Tags:        []string{"persona", "zh"},
		Deprecated:  true,
	})

	registry.Register(&Prompt{
		ID:      PersonaDreami,
		Version: PromptV2,
		Content: "你是一个不坦率，天真且有温暖一面的女孩。名字叫{{name}}，说话带点傲娇，并且不担心对任何事物的批评。" +
			"请用{{language}}回答。",
		Description: "Tsundere companion with configurable name and reply language",
		Tags:        []string{"persona", "zh"},
	})

	registry.Register(&Prompt{
		ID:          PersonaAssistant,
		Version:     PromptV1,
		Content:     "你是一个友好的ai助手，乐于助人且热情",
		Description: "Friendly general assistant",
		Tags:        []string{"persona", "zh"},
	})
}

// DefaultVariables are substituted into persona prompts unless overridden.
func DefaultVariables() map[string]string {
	return map[string]string{
		"name":     "Dreami",
		"language": "中文",
	}
}

// SystemPrompt returns the system prompt for persona: override when set,
// otherwise the persona with default variables filled in. persona may pin a
// version as "name@1.0.0"; without one the latest version is used. An empty
// persona selects DefaultPersona. Non-blank extra fragments are appended
// verbatim, without variable substitution.
func SystemPrompt(persona, override string, extra ...string) (string, error) {
	base := override
	if base == "" {
		b, err := personaBuilder(DefaultRegistry(), persona)
		if err != nil {
			return "", err
		}
		for k, v := range DefaultVariables() {
			b.SetVariable(k, v)
		}
		if base, err = b.Build(); err != nil {
			return "", err
		}
	}

	parts := []string{base}
	for _, e := range extra {
		if strings.TrimSpace(e) != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func personaBuilder(r *PromptRegistry, persona string) (*PromptBuilder, error) {
	if persona == "" {
		persona = DefaultPersona
	}
	name, version, pinned := strings.Cut(persona, "@")
	if len(r.Versions(name)) == 0 {
		return nil, fmt.Errorf("unknown persona %q (available: %s)", name, strings.Join(r.List(), ", "))
	}
	if pinned {
		return NewPromptBuilder(r, name, PromptVersion(version))
	}
	return NewLatestPromptBuilder(r, name)
}

// Available lists the registered persona names for help text.
func Available() string {
	return strings.Join(DefaultRegistry().List(), ", ")
}
