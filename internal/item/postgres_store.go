package item

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/lib/pq"
)

// PostgresStore persists listing data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed item store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const itemColumns = `id, seller_id, title, description, category, tags, type, price,
		images, marketplace, allow_hybrid, status, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, it *Item) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		it.ID, it.SellerID, it.Title, it.Description, it.Category,
		pq.Array(it.Tags), string(it.Type), it.Price,
		pq.Array(it.Images), string(it.Marketplace), it.AllowHybrid,
		string(it.Status), it.CreatedAt, it.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Item, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	return it, err
}

func (p *PostgresStore) List(ctx context.Context, f Filter, limit int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Category != "" {
		query += ` AND category = ` + arg(f.Category)
	}
	if f.Type != "" {
		query += ` AND type = ` + arg(string(f.Type))
	}
	if f.Marketplace != "" {
		query += ` AND marketplace = ` + arg(string(f.Marketplace))
	}
	if f.SellerID != "" {
		query += ` AND seller_id = ` + arg(f.SellerID)
	}
	if f.Search != "" {
		like := arg("%" + f.Search + "%")
		exact := arg(f.Search)
		query += ` AND (title ILIKE ` + like + ` OR description ILIKE ` + like +
			` OR ` + exact + ` = ANY(tags))`
	}

	if f.Cursor != nil {
		query += ` AND (created_at, id) < (` + arg(f.Cursor.CreatedAt) + `, ` + arg(f.Cursor.ID) + `)`
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ` + arg(limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *PostgresStore) SetStatus(ctx context.Context, id string, status Status) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE items SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrItemNotFound)
}

func (p *PostgresStore) MarkSold(ctx context.Context, id string) error {
	// Conditional update: only one transition to SOLD can ever win.
	result, err := p.db.ExecContext(ctx, `
		UPDATE items SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status <> $1`,
		string(StatusSold), id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish missing from already-sold
		var status string
		err := p.db.QueryRowContext(ctx, `SELECT status FROM items WHERE id = $1`, id).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadySold
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	it := &Item{}
	var typ, marketplace, status string
	err := row.Scan(
		&it.ID, &it.SellerID, &it.Title, &it.Description, &it.Category,
		pq.Array(&it.Tags), &typ, &it.Price,
		pq.Array(&it.Images), &marketplace, &it.AllowHybrid,
		&status, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.Type = ListingType(typ)
	it.Marketplace = Marketplace(marketplace)
	it.Status = Status(status)
	return it, nil
}

func checkAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
