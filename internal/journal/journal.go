// Package journal records the commands each runtime session sends so they
// can be listed, inspected and replayed later.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("journal session not found")

const errSessionIDRequired = "session_id is required"

// Session is one recorded runtime session.
type Session struct {
	ID              string
	StartedAtUnixMs int64
	// EndedAtUnixMs is 0 while the session is still open or was never ended.
	EndedAtUnixMs int64
	Strategy      string
	Target        string
	EntryCount    int
}

// Entry is one command line sent during a session.
type Entry struct {
	Seq      int
	TsUnixMs int64
	Line     string
	// Sent is false when the transport reported a write failure.
	Sent bool
}

// Store is a SQLite-backed journal.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error

	now func() time.Time
}

// Open opens or creates the journal database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run journal migrations: %w", err)
	}
	return s, nil
}

// Close checkpoints the WAL and closes the database. It is safe to call
// Close multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Begin starts a new session and returns its id.
func (s *Store) Begin(ctx context.Context, strategy, target string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, started_at_unix_ms, strategy, target)
		VALUES (?, ?, ?, ?)
	`, id, s.now().UnixMilli(), strategy, target)
	if err != nil {
		return "", fmt.Errorf("failed to begin session: %w", err)
	}
	return id, nil
}

// Record appends a line to the session. Sequence numbers start at 1.
func (s *Store) Record(ctx context.Context, sessionID, line string, sent bool) error {
	if sessionID == "" {
		return errors.New(errSessionIDRequired)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (session_id, seq, ts_unix_ms, line, sent)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?
		FROM entries WHERE session_id = ?
	`, sessionID, s.now().UnixMilli(), line, boolToInt(sent), sessionID)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to record entry: %w", err)
	}
	return nil
}

// End marks the session as finished.
func (s *Store) End(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New(errSessionIDRequired)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at_unix_ms = ? WHERE session_id = ?
	`, s.now().UnixMilli(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession returns one session with its entry count.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+`
		WHERE s.session_id = ?
		GROUP BY s.session_id
	`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions first. A limit of zero or
// less returns all of them.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := sessionSelect + `
		GROUP BY s.session_id
		ORDER BY s.started_at_unix_ms DESC, s.rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// Entries returns the session's lines in send order.
func (s *Store) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ts_unix_ms, line, sent
		FROM entries WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var sent int
		if err := rows.Scan(&e.Seq, &e.TsUnixMs, &e.Line, &sent); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Sent = sent != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const sessionSelect = `
	SELECT s.session_id, s.started_at_unix_ms, s.ended_at_unix_ms,
	       s.strategy, s.target, COUNT(e.id)
	FROM sessions s
	LEFT JOIN entries e ON e.session_id = s.session_id
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var sess Session
	var ended sql.NullInt64
	err := row.Scan(&sess.ID, &sess.StartedAtUnixMs, &ended, &sess.Strategy, &sess.Target, &sess.EntryCount)
	if err != nil {
		return nil, err
	}
	sess.EndedAtUnixMs = ended.Int64
	return &sess, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isForeignKeyError(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
