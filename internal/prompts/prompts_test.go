package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetLatestSkipsDeprecated(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "p", Version: "1.0.0", Content: "one"})
	r.Register(&Prompt{ID: "p", Version: "10.0.0", Content: "ten", Deprecated: true})
	r.Register(&Prompt{ID: "p", Version: "2.0.0", Content: "two"})

	p, err := r.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, "two", p.Content)

	assert.Equal(t, []PromptVersion{"1.0.0", "2.0.0", "10.0.0"}, r.Versions("p"))
}

func TestRegistry_AllDeprecated(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "p", Version: PromptV1, Content: "old", Deprecated: true})
	r.Register(&Prompt{ID: "p", Version: PromptV2, Content: "older?", Deprecated: true})

	p, err := r.GetLatest("p")
	require.NoError(t, err)
	assert.Equal(t, PromptV2, p.Version)
}

func TestRegistry_Missing(t *testing.T) {
	r := NewPromptRegistry()
	_, err := r.GetLatest("nope")
	assert.Error(t, err)
	_, err = r.Get("nope", PromptV1)
	assert.Error(t, err)
}

func TestBuilder(t *testing.T) {
	r := NewPromptRegistry()
	r.Register(&Prompt{ID: "p", Version: PromptV1, Content: "hi {{name}}, speak {{ language }}"})

	b, err := NewPromptBuilder(r, "p", PromptV1)
	require.NoError(t, err)
	out, err := b.SetVariable("name", "Dreami").SetVariable("language", "中文").AddFragment("extra").AddFragment("  ").Build()
	require.NoError(t, err)
	assert.Equal(t, "hi Dreami, speak 中文\n\nextra", out)

	b, err = NewPromptBuilder(r, "p", PromptV1)
	require.NoError(t, err)
	_, err = b.SetVariable("name", "x").Build()
	assert.ErrorContains(t, err, "language")
}

func TestSystemPrompt(t *testing.T) {
	got, err := SystemPrompt("", "")
	require.NoError(t, err)
	assert.Contains(t, got, "Dreami")
	assert.Contains(t, got, "傲娇")
	assert.NotContains(t, got, "{{")

	got, err = SystemPrompt(PersonaAssistant, "")
	require.NoError(t, err)
	assert.Equal(t, "你是一个友好的ai助手，乐于助人且热情", got)

	got, err = SystemPrompt("dreami", "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", got)

	_, err = SystemPrompt("ghost", "")
	assert.Error(t, err)
}

func TestSystemPrompt_Extra(t *testing.T) {
	got, err := SystemPrompt(PersonaAssistant, "", "回答尽量简短。", "  ")
	require.NoError(t, err)
	assert.Equal(t, "你是一个友好的ai助手，乐于助人且热情\n\n回答尽量简短。", got)

	got, err = SystemPrompt("", "custom", "keep {{braces}}")
	require.NoError(t, err)
	assert.Equal(t, "custom\n\nkeep {{braces}}", got)
}

func TestDefaultRegistry_Personas(t *testing.T) {
	assert.Equal(t, []string{PersonaAssistant, PersonaDreami}, DefaultRegistry().List())
}

func TestSystemPrompt_PinnedVersion(t *testing.T) {
	got, err := SystemPrompt(PersonaDreami+"@"+string(PromptV1), "")
	require.NoError(t, err)
	assert.Equal(t, "你是一个不坦率，天真且有温暖一面的女孩.名字叫dreami,说话带点傲娇,并且不担心对任何事物的批评", got)

	_, err = SystemPrompt(PersonaDreami+"@9.9.9", "")
	assert.ErrorContains(t, err, "9.9.9")
}

func TestSystemPrompt_UnknownPersonaListsAvailable(t *testing.T) {
	_, err := SystemPrompt("ghost", "")
	require.Error(t, err)
	assert.ErrorContains(t, err, `unknown persona "ghost"`)
	assert.ErrorContains(t, err, PersonaAssistant+", "+PersonaDreami)
	assert.Equal(t, PersonaAssistant+", "+PersonaDreami, Available())
}
