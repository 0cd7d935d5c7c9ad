// Package store persists conversation sessions, messages and per-turn
// analytics in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Message is one stored chat line, from the user or the bot.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"-"`
	Message   string    `json:"message"`
	IsUser    bool      `json:"is_user"`
	Intent    string    `json:"intent,omitempty"`
	Sentiment string    `json:"sentiment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Interaction is the analytics record of one processed message.
type Interaction struct {
	SessionID      string
	Intent         string
	MatchedPattern string
	ResponseTime   time.Duration
}

// SessionAnalytics summarizes the interactions of a session.
type SessionAnalytics struct {
	TotalInteractions  int            `json:"total_interactions"`
	AvgResponseTimeMs  float64        `json:"avg_response_time_ms"`
	IntentDistribution map[string]int `json:"intent_distribution"`
}

// Store is a SQLite backed conversation store.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the database at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		is_user INTEGER NOT NULL,
		intent TEXT,
		sentiment TEXT,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

	CREATE TABLE IF NOT EXISTS analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		intent TEXT,
		matched_pattern TEXT,
		response_time_ms INTEGER NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analytics_session ON analytics(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession starts a new conversation and returns its id.
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (session_id, created_at, updated_at) VALUES (?, ?, ?)`,
		id, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// EnsureSession records a client supplied session id if it is not known yet
// and bumps its updated_at otherwise.
func (s *Store) EnsureSession(ctx context.Context, sessionID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure session %s: %w", sessionID, err)
	}
	return nil
}

// SaveMessage appends a message to a session's history.
func (s *Store) SaveMessage(ctx context.Context, msg Message) (int64, error) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, message, is_user, intent, sentiment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.SessionID, msg.Message, msg.IsUser, nullString(msg.Intent), nullString(msg.Sentiment), ts)
	if err != nil {
		return 0, fmt.Errorf("failed to save message: %w", err)
	}
	return res.LastInsertId()
}

// History returns up to limit messages of a session, oldest first.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, message, is_user, intent, sentiment, timestamp
		FROM messages
		WHERE session_id = ?
		ORDER BY id ASC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			m                 Message
			intent, sentiment sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Message, &m.IsUser, &intent, &sentiment, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Intent = intent.String
		m.Sentiment = sentiment.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SaveInteraction stores the analytics record for one processed message.
func (s *Store) SaveInteraction(ctx context.Context, in Interaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics (session_id, intent, matched_pattern, response_time_ms, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		in.SessionID, nullString(in.Intent), nullString(in.MatchedPattern),
		in.ResponseTime.Milliseconds(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save analytics: %w", err)
	}
	return nil
}

// Analytics aggregates the interactions recorded for a session. Interactions
// without an intent are counted under "unknown".
func (s *Store) Analytics(ctx context.Context, sessionID string) (SessionAnalytics, error) {
	out := SessionAnalytics{IntentDistribution: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(intent, 'unknown'), COUNT(*), SUM(response_time_ms)
		FROM analytics
		WHERE session_id = ?
		GROUP BY COALESCE(intent, 'unknown')`, sessionID)
	if err != nil {
		return out, fmt.Errorf("failed to query analytics: %w", err)
	}
	defer rows.Close()

	var totalMs int64
	for rows.Next() {
		var (
			intent string
			count  int
			sumMs  int64
		)
		if err := rows.Scan(&intent, &count, &sumMs); err != nil {
			return out, fmt.Errorf("failed to scan analytics: %w", err)
		}
		out.IntentDistribution[intent] = count
		out.TotalInteractions += count
		totalMs += sumMs
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	if out.TotalInteractions > 0 {
		avg := float64(totalMs) / float64(out.TotalInteractions)
		out.AvgResponseTimeMs = math.Round(avg*100) / 100
	}
	return out, nil
}

// ClearSession deletes the message history of a session. Analytics are kept.
func (s *Store) ClearSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear session: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
