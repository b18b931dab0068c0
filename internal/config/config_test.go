package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"LLM_PROVIDER", "API_KEY", "MODEL", "BASE_URL", "PERSONA", "SYSTEM_PROMPT",
		"MAX_ENTRIES", "MAX_TURNS", "CONTEXT_TURNS", "SAVE_TO_FILE", "MEMORY_FILE",
		"STORE", "TIMESTAMPS", "STREAM", "REQUEST_TIMEOUT", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(EnvPrefix+name, "")
	}
}

func TestCeiling(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{"default", Config{}, 21},
		{"turns", Config{MaxTurns: 2}, 5},
		{"entries win", Config{MaxEntries: 7, MaxTurns: 2}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Ceiling())
		})
	}
}

func TestDefaults(t *testing.T) {
	var c Config
	assert.True(t, c.Persistence())
	assert.True(t, c.Streaming())
	assert.False(t, c.TimestampsEnabled())
	assert.Equal(t, StoreJSON, c.StoreKind())

	d, err := c.Timeout()
	require.NoError(t, err)
	assert.Zero(t, d)

	c = Config{SaveToFile: Bool(false), Stream: Bool(false), Timestamps: Bool(true), Store: "SQLite", RequestTimeout: "90s"}
	assert.False(t, c.Persistence())
	assert.False(t, c.Streaming())
	assert.True(t, c.TimestampsEnabled())
	assert.Equal(t, StoreSQLite, c.StoreKind())
	d, err = c.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Store: "redis"}).Validate())
	assert.Error(t, (&Config{MaxTurns: -1}).Validate())
	assert.Error(t, (&Config{RequestTimeout: "soon"}).Validate())
}

func TestManager_LoadMissingFile(t *testing.T) {
	clearEnv(t)
	m := NewManagerForFile(filepath.Join(t.TempDir(), "config.json"))

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
	assert.False(t, m.Exists())
}

func TestManager_SaveAndLoadJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	m := &Manager{configDir: dir}

	in := &Config{LLMProvider: "deepseek", MaxTurns: 3, SaveToFile: Bool(false)}
	require.NoError(t, m.Save(in))
	assert.True(t, m.Exists())

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestManager_LoadYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("DREAMI_TEST_KEY", "sk-from-env")
	dir := t.TempDir()
	yml := "llm_provider: groq\napi_key: ${DREAMI_TEST_KEY}\nmax_entries: 9\nstore: sqlite\nstream: false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o600))

	m := &Manager{configDir: dir}
	assert.Equal(t, filepath.Join(dir, "config.yaml"), m.GetConfigPath())

	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "groq", cfg.LLMProvider)
	assert.Equal(t, "sk-from-env", cfg.APIKey)
	assert.Equal(t, 9, cfg.Ceiling())
	assert.Equal(t, StoreSQLite, cfg.StoreKind())
	assert.False(t, cfg.Streaming())
}

func TestManager_YAMLUnknownField(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dreami.yml")
	require.NoError(t, os.WriteFile(path, []byte("max_entires: 5\n"), 0o600))

	_, err := NewManagerForFile(path).Load()
	assert.Error(t, err)
}

func TestManager_EmptyYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	cfg, err := NewManagerForFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestManager_BadJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := NewManagerForFile(path).Load()
	assert.ErrorContains(t, err, "parse config json")
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DREAMI_MAX_ENTRIES", "11")
	t.Setenv("DREAMI_SAVE_TO_FILE", "false")
	t.Setenv("DREAMI_STORE", "sqlite")
	t.Setenv("DREAMI_LOG_LEVEL", "debug")

	cfg := &Config{MaxEntries: 3, Store: "json"}
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, 11, cfg.MaxEntries)
	assert.False(t, cfg.Persistence())
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DREAMI_MAX_TURNS", "many")
	assert.ErrorContains(t, ApplyEnv(&Config{}), "DREAMI_MAX_TURNS")

	clearEnv(t)
	t.Setenv("DREAMI_STREAM", "maybe")
	assert.ErrorContains(t, ApplyEnv(&Config{}), "DREAMI_STREAM")
}

func TestDefaultMemoryFile(t *testing.T) {
	m := &Manager{configDir: "/cfg"}
	assert.Equal(t, filepath.Join("/cfg", "conversation_memory.json"), m.DefaultMemoryFile(StoreJSON))
	assert.Equal(t, filepath.Join("/cfg", "conversation_memory.db"), m.DefaultMemoryFile(StoreSQLite))
}
