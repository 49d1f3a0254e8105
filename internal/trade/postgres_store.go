package trade

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresStore persists trades in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed trade store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Create(ctx context.Context, t *Trade) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trades (
			id, listing_id, buyer_id, seller_id, status,
			money_proposal, barter_proposal, commitment_proposal, proposer_id,
			location, scheduled_at, supervisor_id, supervisor_note, supervisor_confirmed,
			buyer_finished, seller_finished, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18
		)`,
		t.ID, t.ListingID, t.BuyerID, t.SellerID, string(t.Status),
		t.MoneyProposal, nullString(t.BarterProposal), nullString(t.CommitmentProposal), nullString(t.ProposerID),
		nullString(t.Location), t.ScheduledAt, nullString(t.SupervisorID), nullString(t.SupervisorNote), t.SupervisorConfirmed,
		t.BuyerFinished, t.SellerFinished, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

const tradeColumns = `id, listing_id, buyer_id, seller_id, status,
		       money_proposal, barter_proposal, commitment_proposal, proposer_id,
		       location, scheduled_at, supervisor_id, supervisor_note, supervisor_confirmed,
		       buyer_finished, seller_finished, created_at, updated_at`

func (p *PostgresStore) Get(ctx context.Context, id string) (*Trade, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id)

	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, ErrTradeNotFound
	}
	return t, err
}

func (p *PostgresStore) FindActive(ctx context.Context, listingID, buyerID string) (*Trade, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE listing_id = $1 AND buyer_id = $2 AND status <> $3
		ORDER BY created_at DESC
		LIMIT 1`, listingID, buyerID, string(StatusCancelled))

	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, ErrTradeNotFound
	}
	return t, err
}

const tradeUpdateSet = `status = $1,
			money_proposal = $2, barter_proposal = $3, commitment_proposal = $4, proposer_id = $5,
			location = $6, scheduled_at = $7, supervisor_id = $8, supervisor_note = $9, supervisor_confirmed = $10,
			buyer_finished = $11, seller_finished = $12, updated_at = $13`

func (p *PostgresStore) Update(ctx context.Context, t *Trade) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE trades SET `+tradeUpdateSet+`
		WHERE id = $14`,
		string(t.Status),
		t.MoneyProposal, nullString(t.BarterProposal), nullString(t.CommitmentProposal), nullString(t.ProposerID),
		nullString(t.Location), t.ScheduledAt, nullString(t.SupervisorID), nullString(t.SupervisorNote), t.SupervisorConfirmed,
		t.BuyerFinished, t.SellerFinished, t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result, func() error { return ErrTradeNotFound })
}

func (p *PostgresStore) UpdateIfStatus(ctx context.Context, t *Trade, expect Status) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE trades SET `+tradeUpdateSet+`
		WHERE id = $14 AND status = $15`,
		string(t.Status),
		t.MoneyProposal, nullString(t.BarterProposal), nullString(t.CommitmentProposal), nullString(t.ProposerID),
		nullString(t.Location), t.ScheduledAt, nullString(t.SupervisorID), nullString(t.SupervisorNote), t.SupervisorConfirmed,
		t.BuyerFinished, t.SellerFinished, t.UpdatedAt,
		t.ID, string(expect),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a lost race from a missing row
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM trades WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTradeNotFound
		}
		return ErrInvalidStatus
	}
	return nil
}

// Accept flips the trade to ACCEPTED and the listing to SOLD in one
// transaction. Either both rows change or neither does.
func (p *PostgresStore) Accept(ctx context.Context, id, listingID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE trades SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		string(StatusAccepted), id, string(StatusProposed))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidStatus
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE items SET status = 'SOLD', updated_at = NOW()
		WHERE id = $1 AND status <> 'SOLD'`, listingID)
	if err != nil {
		return err
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrListingClosed
	}

	return tx.Commit()
}

func (p *PostgresStore) ListForSupervision(ctx context.Context, excludeUserID string, statuses []Status, limit int) ([]*Trade, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := []interface{}{excludeUserID}
	for i, s := range statuses {
		args = append(args, string(s))
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, limit)

	rows, err := p.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE buyer_id <> $1 AND seller_id <> $1
		  AND status IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY updated_at DESC
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanTrades(rows)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*Trade, error) {
	t := &Trade{}
	var (
		status         string
		moneyProposal  sql.NullFloat64
		barterProposal sql.NullString
		commitment     sql.NullString
		proposerID     sql.NullString
		location       sql.NullString
		scheduledAt    sql.NullTime
		supervisorID   sql.NullString
		supervisorNote sql.NullString
	)

	err := s.Scan(
		&t.ID, &t.ListingID, &t.BuyerID, &t.SellerID, &status,
		&moneyProposal, &barterProposal, &commitment, &proposerID,
		&location, &scheduledAt, &supervisorID, &supervisorNote, &t.SupervisorConfirmed,
		&t.BuyerFinished, &t.SellerFinished, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = Status(status)
	if moneyProposal.Valid {
		t.MoneyProposal = &moneyProposal.Float64
	}
	t.BarterProposal = barterProposal.String
	t.CommitmentProposal = commitment.String
	t.ProposerID = proposerID.String
	t.Location = location.String
	if scheduledAt.Valid {
		t.ScheduledAt = &scheduledAt.Time
	}
	t.SupervisorID = supervisorID.String
	t.SupervisorNote = supervisorNote.String

	return t, nil
}

func scanTrades(rows *sql.Rows) ([]*Trade, error) {
	var result []*Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func checkAffected(result sql.Result, notFound func() error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound()
	}
	return nil
}

// nullString converts an empty Go string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
