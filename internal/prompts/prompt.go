package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	// PromptV1 is the first version of prompts.
	PromptV1 PromptVersion = "1.0.0"
	// PromptV2 is the second version.
	PromptV2 PromptVersion = "2.0.0"
)

// Prompt is a versioned system prompt for one persona.
type Prompt struct {
	ID          string        // persona name, e.g. "dreami"
	Version     PromptVersion
	Content     string // may contain {{var}} placeholders
	Description string
	Tags        []string
	Deprecated  bool
}
