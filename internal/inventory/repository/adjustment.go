package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vendstock/vendstock-backend/pkg/database"
)

// Adjustment types recorded in the audit trail
const (
	AdjustmentSale           = "sale"
	AdjustmentOrderSale      = "order_sale"
	AdjustmentRestock        = "restock"
	AdjustmentCorrection     = "correction"
	AdjustmentBatchCreated   = "batch_created"
	AdjustmentProductCreated = "product_created"
)

// StockAdjustment is an immutable audit record of a stock-affecting event.
// Rows are append-only: no update or delete path exists.
// RelatedOrderID and RelatedBatchCode are structured references so the
// trail stays machine-queryable instead of string-parsed from the note.
type StockAdjustment struct {
	ID               int64     `db:"id" json:"id"`
	ProductID        int64     `db:"product_id" json:"product_id"`
	AdjustmentType   string    `db:"adjustment_type" json:"adjustment_type"`
	QuantityBefore   int       `db:"quantity_before" json:"quantity_before"`
	QuantityAfter    int       `db:"quantity_after" json:"quantity_after"`
	Difference       int       `db:"difference" json:"difference"`
	Note             string    `db:"note" json:"note"`
	RelatedOrderID   *string   `db:"related_order_id" json:"related_order_id,omitempty"`
	RelatedBatchCode *string   `db:"related_batch_code" json:"related_batch_code,omitempty"`
	UserID           int64     `db:"user_id" json:"user_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// AdjustmentRepository handles audit trail persistence. Append-only.
type AdjustmentRepository struct {
	db *database.DB
}

// NewAdjustmentRepository creates a new adjustment repository
func NewAdjustmentRepository(db *database.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// AppendTx appends one audit row within a transaction.
// Difference must equal QuantityAfter - QuantityBefore; the table enforces
// this with a check constraint as a second line of defense.
func (r *AdjustmentRepository) AppendTx(ctx context.Context, tx *sqlx.Tx, adj *StockAdjustment) error {
	query := `
		INSERT INTO stock_adjustments (
			product_id, adjustment_type, quantity_before, quantity_after,
			difference, note, related_order_id, related_batch_code, user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	return tx.QueryRowxContext(ctx, query,
		adj.ProductID, adj.AdjustmentType, adj.QuantityBefore, adj.QuantityAfter,
		adj.Difference, adj.Note, adj.RelatedOrderID, adj.RelatedBatchCode, adj.UserID,
	).Scan(&adj.ID, &adj.CreatedAt)
}

// ListByProduct lists a product's audit rows, newest first
func (r *AdjustmentRepository) ListByProduct(ctx context.Context, productID int64, page, perPage int) ([]*StockAdjustment, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM stock_adjustments WHERE product_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, productID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	var adjustments []*StockAdjustment
	query := `
		SELECT id, product_id, adjustment_type, quantity_before, quantity_after,
		       difference, note, related_order_id, related_batch_code, user_id, created_at
		FROM stock_adjustments
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &adjustments, query, productID, perPage, offset); err != nil {
		return nil, 0, err
	}

	return adjustments, total, nil
}

// ListByOrder lists the audit rows recorded for a specific order
func (r *AdjustmentRepository) ListByOrder(ctx context.Context, orderID string) ([]*StockAdjustment, error) {
	var adjustments []*StockAdjustment
	query := `
		SELECT id, product_id, adjustment_type, quantity_before, quantity_after,
		       difference, note, related_order_id, related_batch_code, user_id, created_at
		FROM stock_adjustments
		WHERE related_order_id = $1
		ORDER BY id
	`
	if err := r.db.SelectContext(ctx, &adjustments, query, orderID); err != nil {
		return nil, err
	}
	return adjustments, nil
}
