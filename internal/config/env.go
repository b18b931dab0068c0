package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvPrefix namespaces the environment overlay.
const EnvPrefix = "DREAMI_"

// ApplyEnv overrides cfg with any DREAMI_* variables that are set.
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"LLM_PROVIDER":    &cfg.LLMProvider,
		"API_KEY":         &cfg.APIKey,
		"MODEL":           &cfg.Model,
		"BASE_URL":        &cfg.BaseURL,
		"PERSONA":         &cfg.Persona,
		"SYSTEM_PROMPT":   &cfg.SystemPrompt,
		"MEMORY_FILE":     &cfg.MemoryFile,
		"STORE":           &cfg.Store,
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
		"LOG_LEVEL":       &cfg.LogLevel,
		"LOG_FILE":        &cfg.LogFile,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_ENTRIES":   &cfg.MaxEntries,
		"MAX_TURNS":     &cfg.MaxTurns,
		"CONTEXT_TURNS": &cfg.ContextTurns,
	}
	for name, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	bools := map[string]**bool{
		"SAVE_TO_FILE": &cfg.SaveToFile,
		"TIMESTAMPS":   &cfg.Timestamps,
		"STREAM":       &cfg.Stream,
	}
	for name, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = &b
	}
	return nil
}
