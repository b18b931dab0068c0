// Package session provides persistence backends for the conversation log.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	log "github.com/sirupsen/logrus"

	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

// DefaultFileName is the memory file used when none is configured.
const DefaultFileName = "conversation_memory.json"

// FileStore keeps the log as a JSON array in a single file. Saves go through
// a temporary file in the same directory followed by a rename, so readers
// never observe a half-written document.
type FileStore struct {
	path   string
	logger *log.Entry
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{
		path:   path,
		logger: log.WithField("component", "session"),
	}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates the saved log.
func (s *FileStore) Load(ctx context.Context) ([]memory.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, memory.ErrNoSavedState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory file: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", memory.ErrCorruptState, s.path)
	}
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var msgs []memory.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", memory.ErrCorruptState, err)
	}
	return msgs, nil
}

// Save replaces the file with the given log.
func (s *FileStore) Save(ctx context.Context, msgs []memory.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(msgs); err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close memory file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace memory file: %w", err)
	}

	s.logger.Debugf("saved %d entries to %s (%s)", len(msgs), s.path, units.HumanSize(float64(buf.Len())))
	return nil
}
