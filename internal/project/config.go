// Package project reads per-directory overrides from a .dreami folder in the
// working directory: a small JSON config and a free-form rules file whose
// text is appended to the system prompt.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// Dir is the per-directory configuration folder.
	Dir = ".dreami"
	// ConfigFile is the name of the project configuration file.
	ConfigFile = "config.json"
	// RulesFile holds extra instructions for the assistant.
	RulesFile = "rules"
)

// ProjectConfig holds per-directory settings. Empty fields defer to the
// user configuration.
type ProjectConfig struct {
	Persona      string `json:"persona,omitempty"`
	ContextTurns int    `json:"context_turns,omitempty"`
}

func configPath(root string) string {
	return filepath.Join(root, Dir, ConfigFile)
}

func rulesPath(root string) string {
	return filepath.Join(root, Dir, RulesFile)
}

// ConfigExists reports whether root carries a project config file.
func ConfigExists(root string) bool {
	_, err := os.Stat(configPath(root))
	return err == nil
}

// LoadConfig reads the project config. Returns nil and no error if the file
// does not exist.
func LoadConfig(root string) (*ProjectConfig, error) {
	data, err := os.ReadFile(configPath(root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	if cfg.ContextTurns < 0 {
		return nil, fmt.Errorf("project config: context_turns must be >= 0, got %d", cfg.ContextTurns)
	}
	return &cfg, nil
}

// SaveConfig writes the project config, creating the folder if needed.
func SaveConfig(root string, cfg *ProjectConfig) error {
	if err := os.MkdirAll(filepath.Join(root, Dir), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project config: %w", err)
	}
	if err := os.WriteFile(configPath(root), data, 0o644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}
	return nil
}

// LoadRules returns the trimmed rules text. A missing file yields "".
func LoadRules(root string) (string, error) {
	data, err := os.ReadFile(rulesPath(root))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rules file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
