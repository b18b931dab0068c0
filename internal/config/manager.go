package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
	path      string // explicit file; empty means search configDir
}

// NewManager creates a manager rooted at <UserConfigDir>/dreami.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(configDir, "dreami")}, nil
}

// NewManagerForFile creates a manager bound to one config file.
func NewManagerForFile(path string) *Manager {
	return &Manager{configDir: filepath.Dir(path), path: path}
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the file Load reads: the explicit file, the first of
// config.json, config.yaml and config.yml that exists, or config.json.
func (m *Manager) GetConfigPath() string {
	if m.path != "" {
		return m.path
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(m.configDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(m.configDir, "config.json")
}

// DefaultMemoryFile is where the conversation is kept when memory_file is
// unset.
func (m *Manager) DefaultMemoryFile(store string) string {
	name := "conversation_memory.json"
	if store == StoreSQLite {
		name = "conversation_memory.db"
	}
	return filepath.Join(m.configDir, name)
}

// Load reads the configuration from disk and applies the DREAMI_*
// environment overlay. A missing file yields an empty Config.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.loadFile()
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (m *Manager) loadFile() (*Config, error) {
	path := m.GetConfigPath()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config json: %w", err)
		}
	}
	return &cfg, nil
}

// Save writes the configuration as JSON with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := m.path
	if path == "" {
		path = filepath.Join(m.configDir, "config.json")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if a configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return err == nil
}
