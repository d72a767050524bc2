package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS prompts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversationId TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		createdAt REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prompts_createdAt ON prompts(createdAt);
`

// Store reads and writes the prompt history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "sidecar", "history.sqlite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "sidecar", "history.sqlite")
}

// Open opens or creates the database with WAL and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add records a submitted prompt. Blank prompts and an exact repeat of the
// newest prompt are not stored.
func (s *Store) Add(conversationID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var last string
	err := s.db.QueryRow(`SELECT text FROM prompts ORDER BY id DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("query last prompt: %w", err)
	case last == text:
		return nil
	}

	ts := float64(s.now().UnixNano()) / 1e9
	if _, err := s.db.Exec(`INSERT INTO prompts (conversationId, text, createdAt) VALUES (?, ?, ?)`,
		conversationID, text, ts); err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

// Recent returns up to limit prompts, newest first.
func (s *Store) Recent(limit int) ([]Prompt, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT id, conversationId, text, createdAt
		FROM prompts
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		var p Prompt
		var createdAt float64
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		p.CreatedAt = timeFromUnix(createdAt)
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// Trim deletes all but the newest keep prompts and returns how many were
// removed.
func (s *Store) Trim(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM prompts
		WHERE id NOT IN (SELECT id FROM prompts ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("trim prompts: %w", err)
	}
	return res.RowsAffected()
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
