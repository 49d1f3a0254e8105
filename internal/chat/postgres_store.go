package chat

import (
	"context"
	"database/sql"
)

// PostgresStore persists messages in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed message store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, m *Message) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO messages (id, trade_id, sender_id, sender_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.TradeID, m.SenderID, m.SenderName, m.Content, m.CreatedAt,
	)
	return err
}

func (p *PostgresStore) ListByTrade(ctx context.Context, tradeID string, limit int) ([]*Message, error) {
	// Window from the tail so the most recent messages survive the limit,
	// returned oldest-first for rendering.
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, trade_id, sender_id, sender_name, content, created_at FROM (
			SELECT id, trade_id, sender_id, sender_name, content, created_at
			FROM messages
			WHERE trade_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) tail ORDER BY created_at ASC`, tradeID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.TradeID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
