package memory

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoSavedState is returned by a Store when nothing has been persisted yet.
	ErrNoSavedState = errors.New("no saved conversation state")
	// ErrCorruptState marks persisted data that cannot be trusted as a log.
	ErrCorruptState = errors.New("corrupt conversation state")
	// ErrInvalidRole is returned when an entry carries an unknown role.
	ErrInvalidRole = errors.New("invalid message role")
)

// Store persists a whole conversation log. Save must replace the previous
// state atomically: a concurrent or later Load sees either the old log or the
// new one, never a partial write.
type Store interface {
	Load(ctx context.Context) ([]Message, error)
	Save(ctx context.Context, log []Message) error
}

// PersistError reports a storage failure. It is a diagnostic: the in-memory
// log stays authoritative whatever the outcome.
type PersistError struct {
	Op  string // "save" or "load"
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("memory %s failed: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// RestoreStatus describes what Restore did with the persisted state.
type RestoreStatus string

const (
	RestoreApplied   RestoreStatus = "restored"
	RestoreNotFound  RestoreStatus = "not_found"
	RestoreDiscarded RestoreStatus = "discarded"
	RestoreDisabled  RestoreStatus = "disabled"
)

// RestoreResult is the typed outcome of Manager.Restore.
type RestoreResult struct {
	Status  RestoreStatus
	Entries int // entries in the log after restore, system entry included
}
