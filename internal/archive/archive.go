// Package archive persists transcribed conversations to a SQLite database
// so past calls remain searchable after the process exits.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/meetpilot/meetpilot/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER,
	language   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS utterances (
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	seq         INTEGER NOT NULL,
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	language    TEXT NOT NULL,
	text        TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_utterances_session ON utterances(session_id, started_at);
`

// Store writes one session row per run and one utterance row per committed
// transcript entry. Timestamps are unix milliseconds.
type Store struct {
	db        *sql.DB
	sessionID string
	nextSeq   int64
}

// Open opens (or creates) the archive at path with WAL journaling and
// begins a new session.
func Open(path, language string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	s := &Store{db: db, sessionID: uuid.NewString()}
	_, err = db.Exec(`INSERT INTO sessions (id, started_at, language) VALUES (?, ?, ?)`,
		s.sessionID, time.Now().UnixMilli(), language)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("begin archive session: %w", err)
	}
	return s, nil
}

// SessionID returns the id of the session this run writes under.
func (s *Store) SessionID() string { return s.sessionID }

// Append stores one transcript entry under the current session. Not safe
// for concurrent use; the transcription committer is the only writer.
func (s *Store) Append(e history.Entry) error {
	seq := s.nextSeq
	s.nextSeq++

	_, err := s.db.Exec(`
		INSERT INTO utterances (session_id, seq, started_at, duration_ms, language, text)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.sessionID, seq, e.Start.UnixMilli(), e.Duration.Milliseconds(), e.Language, e.Text)
	if err != nil {
		return fmt.Errorf("archive utterance: %w", err)
	}
	return nil
}

// Sessions lists archived sessions, newest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, ended_at, language
		FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&sess.ID, &started, &ended, &sess.Language); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(started)
		if ended.Valid {
			t := time.UnixMilli(ended.Int64)
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Utterances returns a session's transcript in sequence order.
func (s *Store) Utterances(sessionID string) ([]history.Entry, error) {
	rows, err := s.db.Query(`
		SELECT started_at, duration_ms, language, text
		FROM utterances WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query utterances: %w", err)
	}
	defer rows.Close()

	var out []history.Entry
	for rows.Next() {
		var e history.Entry
		var started, durationMs int64
		if err := rows.Scan(&started, &durationMs, &e.Language, &e.Text); err != nil {
			return nil, fmt.Errorf("scan utterance: %w", err)
		}
		e.Start = time.UnixMilli(started)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close stamps the session end time and closes the database.
func (s *Store) Close() error {
	_, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), s.sessionID)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Session is one archived run of the assistant.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Language  string
}
