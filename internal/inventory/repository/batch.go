package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vendstock/vendstock-backend/pkg/database"
	"github.com/vendstock/vendstock-backend/pkg/errors"
)

// Batch represents a dated lot of a product, the unit of FEFO consumption.
// A batch with quantity zero is inert: kept for history, eligible for
// deletion, never for allocation.
type Batch struct {
	ID         int64     `db:"id" json:"id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	BatchCode  string    `db:"batch_code" json:"batch_code"`
	Quantity   int       `db:"quantity" json:"quantity"`
	ExpiryDate time.Time `db:"expiry_date" json:"expiry_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const batchColumns = `id, product_id, batch_code, quantity, expiry_date, created_at`

// BatchRepository handles batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateTx creates a new batch within a transaction
func (r *BatchRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, b *Batch) error {
	query := `
		INSERT INTO batches (product_id, batch_code, quantity, expiry_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	return tx.QueryRowxContext(ctx, query,
		b.ProductID, b.BatchCode, b.Quantity, b.ExpiryDate,
	).Scan(&b.ID, &b.CreatedAt)
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id int64) (*Batch, error) {
	var b Batch
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &b, nil
}

// GetForUpdateTx fetches a batch with a row-level exclusive lock
func (r *BatchRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Batch, error) {
	var b Batch
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &b, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &b, nil
}

// ListByProduct lists all batches for a product in expiry order
func (r *BatchRepository) ListByProduct(ctx context.Context, productID int64) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT ` + batchColumns + ` FROM batches
		WHERE product_id = $1
		ORDER BY expiry_date, id
	`
	if err := r.db.SelectContext(ctx, &batches, query, productID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListAllocatableTx fetches and locks the batches eligible for allocation:
// quantity remaining and expiry in the future, earliest-expiring first.
// Equal expiry dates tie-break on ascending id so the walk is deterministic.
func (r *BatchRepository) ListAllocatableTx(ctx context.Context, tx *sqlx.Tx, productID int64) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT ` + batchColumns + ` FROM batches
		WHERE product_id = $1 AND quantity > 0 AND expiry_date > NOW()
		ORDER BY expiry_date, id
		FOR UPDATE
	`
	if err := tx.SelectContext(ctx, &batches, query, productID); err != nil {
		return nil, err
	}
	return batches, nil
}

// CountByProductTx counts a product's batches within a transaction.
// Used to assign the next lot sequence position; the caller must hold the
// product row lock so two creations cannot compute the same position.
func (r *BatchRepository) CountByProductTx(ctx context.Context, tx *sqlx.Tx, productID int64) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM batches WHERE product_id = $1`, productID)
	return count, err
}

// DecrementTx reduces a batch's quantity in place
func (r *BatchRepository) DecrementTx(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE batches SET quantity = quantity - $2 WHERE id = $1`,
		id, quantity,
	)
	return err
}

// SetQuantityTx sets a batch's quantity to an absolute value (admin correction)
func (r *BatchRepository) SetQuantityTx(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE batches SET quantity = $2 WHERE id = $1`,
		id, quantity,
	)
	return err
}

// DeleteTx deletes a batch within a transaction. The service layer locks
// the row first and only permits this for inert (zero quantity) batches.
func (r *BatchRepository) DeleteTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// Expiring returns batches with quantity remaining whose expiry falls
// between now and now + daysAhead, earliest first
func (r *BatchRepository) Expiring(ctx context.Context, daysAhead int) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT ` + batchColumns + ` FROM batches
		WHERE quantity > 0
		AND expiry_date >= NOW()
		AND expiry_date <= NOW() + INTERVAL '1 day' * $1
		ORDER BY expiry_date, id
	`
	if err := r.db.SelectContext(ctx, &batches, query, daysAhead); err != nil {
		return nil, err
	}
	return batches, nil
}
