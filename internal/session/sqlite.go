package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

// SQLiteStore keeps the log as ordered rows in a SQLite database. Save
// replaces every row inside one transaction.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Entry
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: log.WithField("component", "session")}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS messages (
		seq       INTEGER PRIMARY KEY,
		role      TEXT NOT NULL,
		content   TEXT NOT NULL,
		timestamp TEXT
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the saved log ordered by position.
func (s *SQLiteStore) Load(ctx context.Context) ([]memory.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, content, timestamp FROM messages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []memory.Message
	for rows.Next() {
		var (
			msg memory.Message
			ts  sql.NullString
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if ts.Valid && ts.String != "" {
			t, err := time.Parse(time.RFC3339Nano, ts.String)
			if err != nil {
				return nil, fmt.Errorf("%w: bad timestamp %q", memory.ErrCorruptState, ts.String)
			}
			msg.Timestamp = &t
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	if len(msgs) == 0 {
		return nil, memory.ErrNoSavedState
	}
	return msgs, nil
}

// Save replaces the stored log.
func (s *SQLiteStore) Save(ctx context.Context, msgs []memory.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (seq, role, content, timestamp) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range msgs {
		var ts sql.NullString
		if msg.Timestamp != nil {
			ts = sql.NullString{String: msg.Timestamp.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, string(msg.Role), msg.Content, ts); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Debugf("saved %d entries to sqlite", len(msgs))
	return nil
}
