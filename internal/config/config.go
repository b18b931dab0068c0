package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds the user's persistent configuration preferences. Pointer
// fields distinguish "unset" from an explicit false.
type Config struct {
	LLMProvider  string `json:"llm_provider,omitempty" yaml:"llm_provider,omitempty"` // deepseek, openai, anthropic, ...
	APIKey       string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL      string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Persona      string `json:"persona,omitempty" yaml:"persona,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"` // overrides persona

	MaxEntries   int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	MaxTurns     int `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
	ContextTurns int `json:"context_turns,omitempty" yaml:"context_turns,omitempty"`

	SaveToFile *bool  `json:"save_to_file,omitempty" yaml:"save_to_file,omitempty"`
	MemoryFile string `json:"memory_file,omitempty" yaml:"memory_file,omitempty"`
	Store      string `json:"store,omitempty" yaml:"store,omitempty"`
	Timestamps *bool  `json:"timestamps,omitempty" yaml:"timestamps,omitempty"`

	Stream         *bool  `json:"stream,omitempty" yaml:"stream,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"` // Go duration, e.g. "90s"

	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// Ceiling resolves the entry ceiling: max_entries, else 1+2*max_turns, else
// memory.DefaultCeiling.
func (c *Config) Ceiling() int {
	switch {
	case c.MaxEntries > 0:
		return c.MaxEntries
	case c.MaxTurns > 0:
		return memory.CeilingForTurns(c.MaxTurns)
	default:
		return memory.DefaultCeiling
	}
}

// Persistence reports whether the log is saved after every change. Default on.
func (c *Config) Persistence() bool {
	return boolOr(c.SaveToFile, true)
}

// Streaming reports whether replies are streamed. Default on.
func (c *Config) Streaming() bool {
	return boolOr(c.Stream, true)
}

// TimestampsEnabled reports whether entries are stamped. Default off.
func (c *Config) TimestampsEnabled() bool {
	return boolOr(c.Timestamps, false)
}

// StoreKind returns the persistence backend, json by default.
func (c *Config) StoreKind() string {
	if c.Store == "" {
		return StoreJSON
	}
	return strings.ToLower(c.Store)
}

// Timeout parses request_timeout. Empty means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid request_timeout %q: %w", c.RequestTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("request_timeout must not be negative: %s", d)
	}
	return d, nil
}

// Validate rejects values that cannot be acted on.
func (c *Config) Validate() error {
	if c.MaxEntries < 0 || c.MaxTurns < 0 || c.ContextTurns < 0 {
		return fmt.Errorf("max_entries, max_turns and context_turns must not be negative")
	}
	switch c.StoreKind() {
	case StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (supported: %s, %s)", c.Store, StoreJSON, StoreSQLite)
	}
	_, err := c.Timeout()
	return err
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Bool returns a pointer to v, for building configs in code.
func Bool(v bool) *bool { return &v }
