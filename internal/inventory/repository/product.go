package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vendstock/vendstock-backend/pkg/database"
	"github.com/vendstock/vendstock-backend/pkg/errors"
)

// Product represents a sellable item. Stock is the aggregate on-hand
// quantity and the source of truth for availability; it may exceed the sum
// of batch quantities for products that are not fully lot-tracked.
type Product struct {
	ID             int64     `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	UnitPriceCents int       `db:"unit_price_cents" json:"unit_price_cents"`
	Unit           string    `db:"unit" json:"unit"`
	Category       *string   `db:"category" json:"category,omitempty"`
	Stock          int       `db:"stock" json:"stock"`
	InitialStock   int       `db:"initial_stock" json:"initial_stock"`
	Sales          int       `db:"sales" json:"sales"`
	DailySales     int       `db:"daily_sales" json:"daily_sales"`
	Slot           *int      `db:"slot" json:"slot,omitempty"`
	SlotDistance   *int      `db:"slot_distance" json:"slot_distance,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const productColumns = `id, title, unit_price_cents, unit, category, stock, initial_stock,
	       sales, daily_sales, slot, slot_distance, created_at, updated_at`

// ProductRepository handles product persistence
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// CreateTx creates a new product within a transaction
func (r *ProductRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *Product) error {
	query := `
		INSERT INTO products (
			title, unit_price_cents, unit, category, stock, initial_stock, slot, slot_distance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	return tx.QueryRowxContext(ctx, query,
		p.Title, p.UnitPriceCents, p.Unit, p.Category, p.Stock, p.InitialStock,
		p.Slot, p.SlotDistance,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &p, nil
}

// GetForUpdateTx fetches a product with a row-level exclusive lock. Every
// read-modify-write of the stock column goes through here so two concurrent
// adjustments can never both read the same stale value.
func (r *ProductRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Product, error) {
	var p Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &p, nil
}

// List lists products with pagination
func (r *ProductRepository) List(ctx context.Context, page, perPage int) ([]*Product, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products`); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	var products []*Product
	query := `SELECT ` + productColumns + ` FROM products ORDER BY title LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &products, query, perPage, offset); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// Update updates a product's attributes. Stock is deliberately excluded:
// the stock column only changes through SetStockTx under a row lock.
func (r *ProductRepository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products SET
			title = $2, unit_price_cents = $3, unit = $4, category = $5,
			slot = $6, slot_distance = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Title, p.UnitPriceCents, p.Unit, p.Category, p.Slot, p.SlotDistance,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("product")
	}

	return nil
}

// Delete deletes a product. Batches and stock adjustments cascade.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("product")
	}

	return nil
}

// SetStockTx updates the aggregate stock within a transaction. The caller
// must hold the product's row lock via GetForUpdateTx.
func (r *ProductRepository) SetStockTx(ctx context.Context, tx *sqlx.Tx, id int64, stock int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`,
		id, stock,
	)
	return err
}

// RecordSaleTx bumps the cumulative and daily sales counters
func (r *ProductRepository) RecordSaleTx(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products SET sales = sales + $2, daily_sales = daily_sales + $2 WHERE id = $1`,
		id, quantity,
	)
	return err
}

// ResetDailySales zeroes the daily sales counter for all products.
// Invoked by the external report scheduler at day rollover.
func (r *ProductRepository) ResetDailySales(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE products SET daily_sales = 0 WHERE daily_sales <> 0`)
	return err
}

// LowStock returns products with 0 < stock <= threshold, lowest first
func (r *ProductRepository) LowStock(ctx context.Context, threshold int) ([]*Product, error) {
	var products []*Product
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE stock > 0 AND stock <= $1
		ORDER BY stock, id
	`
	if err := r.db.SelectContext(ctx, &products, query, threshold); err != nil {
		return nil, err
	}
	return products, nil
}
