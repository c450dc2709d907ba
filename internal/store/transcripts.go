package store

import (
	"context"
	"fmt"
	"time"
)

// Message is one archived line of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Intent    string    `json:"intent"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendMessage stores one side of an exchange.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content, intent string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transcript_messages (session_id, role, content, intent)
		VALUES ($1, $2, $3, $4)`,
		sessionID, role, content, intent,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// GetMessages returns the most recent messages of a session, oldest first.
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT role, content, intent, created_at FROM (
			SELECT role, content, intent, created_at
			FROM transcript_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Intent, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountByIntent tallies archived assistant replies per intent.
func (s *Store) CountByIntent(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT intent, COUNT(*) FROM transcript_messages
		WHERE role = 'assistant'
		GROUP BY intent`)
	if err != nil {
		return nil, fmt.Errorf("count by intent: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var intent string
		var n int
		if err := rows.Scan(&intent, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[intent] = n
	}
	return counts, rows.Err()
}
