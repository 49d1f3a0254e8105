package issue

import (
	"context"
	"database/sql"
	"strconv"
)

// PostgresStore persists issues in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed issue store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, i *Issue) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO issues (
			id, trade_id, reporter_id, buyer_id, seller_id, description,
			status, supervisor_id, resolution,
			buyer_resolved, seller_resolved, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		i.ID, i.TradeID, i.ReporterID, i.BuyerID, i.SellerID, i.Description,
		string(i.Status), nullString(i.SupervisorID), nullString(i.Resolution),
		i.BuyerResolved, i.SellerResolved, i.CreatedAt, i.UpdatedAt,
	)
	return err
}

const issueColumns = `id, trade_id, reporter_id, buyer_id, seller_id, description,
		       status, supervisor_id, resolution,
		       buyer_resolved, seller_resolved, created_at, updated_at`

func (p *PostgresStore) Get(ctx context.Context, id string) (*Issue, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = $1`, id)

	i, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, ErrIssueNotFound
	}
	return i, err
}

func (p *PostgresStore) Update(ctx context.Context, i *Issue) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE issues SET
			status = $1, supervisor_id = $2, resolution = $3,
			buyer_resolved = $4, seller_resolved = $5, updated_at = $6
		WHERE id = $7`,
		string(i.Status), nullString(i.SupervisorID), nullString(i.Resolution),
		i.BuyerResolved, i.SellerResolved, i.UpdatedAt,
		i.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrIssueNotFound
	}
	return nil
}

func (p *PostgresStore) ListByStatus(ctx context.Context, status Status, supervisorID string, limit int) ([]*Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE status = $1`
	args := []interface{}{string(status)}
	if supervisorID != "" {
		query += ` AND supervisor_id = $2`
		args = append(args, supervisorID)
	}
	query += ` ORDER BY updated_at DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, i)
	}
	return result, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(s scanner) (*Issue, error) {
	i := &Issue{}
	var (
		status       string
		supervisorID sql.NullString
		resolution   sql.NullString
	)

	err := s.Scan(
		&i.ID, &i.TradeID, &i.ReporterID, &i.BuyerID, &i.SellerID, &i.Description,
		&status, &supervisorID, &resolution,
		&i.BuyerResolved, &i.SellerResolved, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.Status = Status(status)
	i.SupervisorID = supervisorID.String
	i.Resolution = resolution.String

	return i, nil
}

// nullString converts an empty Go string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
