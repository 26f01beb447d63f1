// Package history persists per-session conversation turns so follow-up
// questions carry their context across requests.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_session
	ON conversations (session_id, id);
`

// Turn is one stored conversation message.
type Turn struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// History stores conversation turns in SQLite.
type History struct {
	db *sql.DB
}

// New prepares the conversation schema on db and returns the store.
func New(db *sql.DB) (*History, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init conversation schema: %w", err)
	}
	return &History{db: db}, nil
}

// Append records one turn for a session.
func (h *History) Append(ctx context.Context, sessionID, role, content string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO conversations (session_id, role, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		sessionID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append conversation turn: %w", err)
	}
	return nil
}

// Recent returns the last n turns of a session, oldest first, so they can be
// prepended to a transcript in natural reading order.
func (h *History) Recent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM conversations
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`,
		sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("load conversation history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("load conversation history: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Clear removes all turns of one session.
func (h *History) Clear(ctx context.Context, sessionID string) error {
	_, err := h.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE session_id = ?`, sessionID)
	return err
}

// ClearAll removes every stored turn.
func (h *History) ClearAll(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `DELETE FROM conversations`)
	return err
}
