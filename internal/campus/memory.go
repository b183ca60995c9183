package campus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultMemoryLimit is the number of notes returned by a query.
const DefaultMemoryLimit = 5

// Note is one remembered statement.
type Note struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// MemoryStore keeps notes in SQLite.
type MemoryStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewMemoryStore opens or creates the notes database at dbPath. Use
// ":memory:" for a throwaway store.
func NewMemoryStore(dbPath string, now func() time.Time) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	s := &MemoryStore{db: db, now: nowOr(now)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

func (s *MemoryStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS notes (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		role      TEXT NOT NULL,
		content   TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notes_timestamp ON notes(timestamp);
	`)
	return err
}

// Save stores a note. role is "user" or "assistant".
func (s *MemoryStore) Save(ctx context.Context, role, content string) (Note, error) {
	if role != "user" && role != "assistant" {
		return Note{}, invalidf("role %q is not user or assistant", role)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Note{}, invalidf("content must not be empty")
	}

	n := Note{Role: role, Content: content, Timestamp: s.now().Format(TimestampLayout)}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (role, content, timestamp) VALUES (?, ?, ?)`,
		n.Role, n.Content, n.Timestamp,
	)
	if err != nil {
		return Note{}, fmt.Errorf("save note: %w", err)
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return Note{}, fmt.Errorf("save note: %w", err)
	}
	return n, nil
}

// Query returns up to limit notes containing keyword, newest first.
// Matching is case-sensitive. limit <= 0 uses DefaultMemoryLimit.
func (s *MemoryStore) Query(ctx context.Context, keyword string, limit int) ([]Note, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, invalidf("keyword must not be empty")
	}
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, timestamp FROM notes
		 WHERE instr(content, ?) > 0
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		keyword, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Role, &n.Content, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
