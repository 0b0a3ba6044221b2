package testutil

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InventoryMigrations returns the engine schema in application order.
// The CHECK constraints are the database-level backstop for the
// non-negative stock invariants; the application enforces them first.
func InventoryMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			unit_price_cents BIGINT NOT NULL DEFAULT 0,
			unit VARCHAR(50) NOT NULL,
			category VARCHAR(100),
			stock INTEGER NOT NULL DEFAULT 0,
			initial_stock INTEGER NOT NULL DEFAULT 0,
			sales INTEGER NOT NULL DEFAULT 0,
			daily_sales INTEGER NOT NULL DEFAULT 0,
			slot INTEGER,
			slot_distance INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT products_stock_non_negative CHECK (stock >= 0),
			CONSTRAINT products_initial_stock_non_negative CHECK (initial_stock >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS batches (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			batch_code VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			expiry_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT batches_quantity_non_negative CHECK (quantity >= 0),
			CONSTRAINT batches_product_code_unique UNIQUE (product_id, batch_code)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_batches_product_expiry
			ON batches (product_id, expiry_date, id)`,

		`CREATE TABLE IF NOT EXISTS stock_adjustments (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			adjustment_type VARCHAR(30) NOT NULL,
			quantity_before INTEGER NOT NULL,
			quantity_after INTEGER NOT NULL,
			difference INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			related_order_id VARCHAR(100),
			related_batch_code VARCHAR(50),
			user_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT adjustments_difference_consistent
				CHECK (quantity_after - quantity_before = difference)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_adjustments_product_created
			ON stock_adjustments (product_id, created_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_adjustments_order
			ON stock_adjustments (related_order_id)
			WHERE related_order_id IS NOT NULL`,
	}
}

// ApplyMigrations runs the engine schema against the given database
func ApplyMigrations(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range InventoryMigrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}

// TruncateAll resets all engine tables between tests
func TruncateAll(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE products, batches, stock_adjustments RESTART IDENTITY CASCADE`)
	return err
}
