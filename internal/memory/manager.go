// Package memory owns the ordered, bounded conversation log that is sent to
// the completion service: a leading system entry followed by user and
// assistant entries, trimmed from the oldest end and optionally persisted.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// DefaultCeiling keeps the system entry plus ten turns.
const DefaultCeiling = 21

// CeilingForTurns converts a turn budget into an entry ceiling.
func CeilingForTurns(maxTurns int) int {
	return 1 + 2*maxTurns
}

// Manager wraps the conversation log. Index 0 is always the system entry and
// the log never holds more than Ceiling() entries after an operation returns.
type Manager struct {
	mu      sync.Mutex
	log     []Message
	ceiling int

	store   Store
	persist bool
	restore bool
	stamp   bool
	now     func() time.Time
	logger  *log.Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithCeiling sets the maximum number of retained entries, system entry
// included. Values below 1 are ignored.
func WithCeiling(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.ceiling = n
		}
	}
}

// WithStore sets the persistence backend.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithPersistence toggles saving after every mutation.
func WithPersistence(enabled bool) Option {
	return func(m *Manager) { m.persist = enabled }
}

// WithRestore toggles loading the saved log during construction.
func WithRestore(enabled bool) Option {
	return func(m *Manager) { m.restore = enabled }
}

// WithTimestamps toggles stamping appended entries.
func WithTimestamps(enabled bool) Option {
	return func(m *Manager) { m.stamp = enabled }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for construction-time diagnostics.
func WithLogger(l *log.Entry) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a manager whose log holds only the system entry. When a store
// is configured and restore is enabled, a previously saved log replaces the
// fresh default; any failure there is logged and the default is kept.
func New(systemPrompt string, opts ...Option) *Manager {
	m := &Manager{
		ceiling: DefaultCeiling,
		restore: true,
		now:     time.Now,
		logger:  log.WithField("component", "memory"),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.log = []Message{{Role: RoleSystem, Content: clean(systemPrompt)}}

	if m.store != nil && m.restore {
		res, err := m.Restore(context.Background())
		switch {
		case err != nil:
			m.logger.WithError(err).Warn("could not restore saved conversation, starting fresh")
		case res.Status == RestoreApplied:
			m.logger.Infof("restored saved conversation: %d entries", res.Entries-1)
		}
	}

	return m
}

// clean sanitizes text and replaces any remaining invalid UTF-8 with U+FFFD,
// so every stored entry survives a JSON round trip unchanged.
func clean(text string) string {
	text = Sanitize(text)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	return text
}

// Add sanitizes content and appends it under role, then enforces the
// ceiling. Content that is empty after sanitizing is dropped. The returned
// error is ErrInvalidRole for unknown roles, otherwise nil or a
// *PersistError; in the latter case the entry is still in the log.
func (m *Manager) Add(ctx context.Context, role Role, content string) error {
	msg, ok, err := m.prepare(role, content)
	if err != nil || !ok {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = append(m.log, msg)
	m.trimLocked()
	return m.autoPersistLocked(ctx)
}

// AddExchange appends a user entry and the assistant reply to it, trimming
// and persisting once.
func (m *Manager) AddExchange(ctx context.Context, user, assistant string) error {
	u, uok, _ := m.prepare(RoleUser, user)
	a, aok, _ := m.prepare(RoleAssistant, assistant)
	if !uok && !aok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if uok {
		m.log = append(m.log, u)
	}
	if aok {
		m.log = append(m.log, a)
	}
	m.trimLocked()
	return m.autoPersistLocked(ctx)
}

func (m *Manager) prepare(role Role, content string) (Message, bool, error) {
	msg := Message{Role: role, Content: clean(content)}
	if err := msg.Validate(); err != nil {
		return Message{}, false, err
	}
	if msg.Content == "" {
		return Message{}, false, nil
	}
	if m.stamp {
		ts := m.now().UTC()
		msg.Timestamp = &ts
	}
	return msg, true, nil
}

// Trim enforces the ceiling: the system entry is kept and the most recent
// Ceiling()-1 entries follow it. Trimming an already bounded log is a no-op.
func (m *Manager) Trim() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimLocked()
}

func (m *Manager) trimLocked() {
	if len(m.log) <= m.ceiling {
		return
	}
	kept := make([]Message, 0, m.ceiling)
	kept = append(kept, m.log[0])
	kept = append(kept, m.log[len(m.log)-(m.ceiling-1):]...)
	m.log = kept
}

// Window returns the system entry followed by the last 2*maxTurns entries.
// The cut is positional and may start in the middle of a turn. maxTurns <= 0
// returns the whole log. The result is a copy.
func (m *Manager) Window(maxTurns int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxTurns <= 0 {
		return cloneMessages(m.log)
	}

	rest := m.log[1:]
	if n := 2 * maxTurns; n < len(rest) {
		rest = rest[len(rest)-n:]
	}
	out := make([]Message, 0, len(rest)+1)
	out = append(out, m.log[0])
	out = append(out, rest...)
	return cloneMessages(out)
}

// History returns a copy of the full log.
func (m *Manager) History() []Message {
	return m.Window(0)
}

// Len returns the number of entries, system entry included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log)
}

// Ceiling returns the configured maximum number of entries.
func (m *Manager) Ceiling() int {
	return m.ceiling
}

// Clear drops everything except the system entry.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = []Message{m.log[0]}
	return m.autoPersistLocked(ctx)
}

// Summarize gives a short description of recent user input. It is cosmetic.
func (m *Manager) Summarize() string {
	m.mu.Lock()
	var topics []string
	for _, msg := range m.log {
		if msg.Role == RoleUser {
			topics = append(topics, clip(msg.Content, 40))
		}
	}
	m.mu.Unlock()

	switch {
	case len(topics) > 3:
		return fmt.Sprintf("recently discussed: %s and more", topics[len(topics)-3])
	case len(topics) > 0:
		return "discussed: " + strings.Join(topics[max(0, len(topics)-2):], ", ")
	default:
		return "conversation just started"
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := 0
	for _, msg := range m.log {
		if msg.Role == RoleUser {
			users++
		}
	}
	return fmt.Sprintf("conversation memory: %d user turns", users)
}

// Persist writes the full log to the configured store, regardless of the
// auto-persist toggle. Without a store it does nothing.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx)
}

func (m *Manager) autoPersistLocked(ctx context.Context) error {
	if !m.persist {
		return nil
	}
	return m.saveLocked(ctx)
}

func (m *Manager) saveLocked(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Save(ctx, cloneMessages(m.log)); err != nil {
		return &PersistError{Op: "save", Err: err}
	}
	return nil
}

// Restore replaces the log with the saved one if the store holds a log whose
// first entry is the system entry. Absent, unreadable or malformed state
// leaves the current log untouched. A restored log longer than the ceiling
// is trimmed.
func (m *Manager) Restore(ctx context.Context) (RestoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return RestoreResult{Status: RestoreDisabled, Entries: len(m.log)}, nil
	}

	loaded, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoSavedState) {
		return RestoreResult{Status: RestoreNotFound, Entries: len(m.log)}, nil
	}
	if err == nil {
		err = validateLog(loaded)
	}
	if err != nil {
		return RestoreResult{Status: RestoreDiscarded, Entries: len(m.log)}, &PersistError{Op: "load", Err: err}
	}

	m.log = cloneMessages(loaded)
	m.trimLocked()
	return RestoreResult{Status: RestoreApplied, Entries: len(m.log)}, nil
}

func validateLog(ms []Message) error {
	if len(ms) == 0 {
		return fmt.Errorf("%w: empty log", ErrCorruptState)
	}
	if ms[0].Role != RoleSystem {
		return fmt.Errorf("%w: first entry has role %q", ErrCorruptState, ms[0].Role)
	}
	for i, msg := range ms {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrCorruptState, i, err)
		}
	}
	return nil
}
