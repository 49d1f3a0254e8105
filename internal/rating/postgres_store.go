package rating

import (
	"context"
	"database/sql"
)

// PostgresStore persists ratings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed rating store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, r *Rating) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ratings (
			id, trade_id, rater_id, ratee_id,
			accuracy, honesty, experience, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.TradeID, r.RaterID, r.RateeID,
		r.Accuracy, r.Honesty, r.Experience, nullString(r.Comment), r.CreatedAt,
	)
	return err
}

func (p *PostgresStore) Exists(ctx context.Context, tradeID, raterID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ratings WHERE trade_id = $1 AND rater_id = $2)`,
		tradeID, raterID).Scan(&exists)
	return exists, err
}

func (p *PostgresStore) ListForUser(ctx context.Context, rateeID string, limit int) ([]*Rating, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, trade_id, rater_id, ratee_id,
		       accuracy, honesty, experience, comment, created_at
		FROM ratings
		WHERE ratee_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, rateeID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Rating
	for rows.Next() {
		r := &Rating{}
		var comment sql.NullString
		if err := rows.Scan(
			&r.ID, &r.TradeID, &r.RaterID, &r.RateeID,
			&r.Accuracy, &r.Honesty, &r.Experience, &comment, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.Comment = comment.String
		result = append(result, r)
	}
	return result, rows.Err()
}

// nullString converts an empty Go string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
