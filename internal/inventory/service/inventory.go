package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vendstock/vendstock-backend/internal/inventory/events"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/pkg/database"
	"github.com/vendstock/vendstock-backend/pkg/errors"
	"github.com/vendstock/vendstock-backend/pkg/logger"
	"github.com/vendstock/vendstock-backend/pkg/metrics"
)

// AuditRef carries structured references for an audit row, replacing
// free-text correlation in the note field.
type AuditRef struct {
	OrderID   *string
	BatchCode *string
}

// InventoryService owns product and batch lifecycle and the stock mutator.
// Every stock-affecting operation runs as one transaction: the product row
// is locked for the read-modify-write and exactly one audit row is appended.
type InventoryService struct {
	db          *database.DB
	productRepo *repository.ProductRepository
	batchRepo   *repository.BatchRepository
	adjRepo     *repository.AdjustmentRepository
	publisher   *events.InventoryEventPublisher
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	db *database.DB,
	productRepo *repository.ProductRepository,
	batchRepo *repository.BatchRepository,
	adjRepo *repository.AdjustmentRepository,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		db:          db,
		productRepo: productRepo,
		batchRepo:   batchRepo,
		adjRepo:     adjRepo,
		publisher:   publisher,
		metrics:     m,
		logger:      log,
	}
}

// applyAdjustmentTx is the locked read-modify-write shared by every
// stock-affecting path, including the allocator. The product row stays
// locked until the surrounding transaction commits or rolls back.
func applyAdjustmentTx(
	ctx context.Context,
	tx *sqlx.Tx,
	productRepo *repository.ProductRepository,
	adjRepo *repository.AdjustmentRepository,
	productID int64,
	delta int,
	adjType, note string,
	ref AuditRef,
	userID int64,
) (*repository.Product, *repository.StockAdjustment, error) {
	product, err := productRepo.GetForUpdateTx(ctx, tx, productID)
	if err != nil {
		return nil, nil, err
	}

	after := product.Stock + delta
	if after < 0 {
		return nil, nil, errors.InsufficientStock(productID, product.Stock, -delta)
	}

	if err := productRepo.SetStockTx(ctx, tx, productID, after); err != nil {
		return nil, nil, err
	}

	if delta < 0 && (adjType == repository.AdjustmentSale || adjType == repository.AdjustmentOrderSale) {
		if err := productRepo.RecordSaleTx(ctx, tx, productID, -delta); err != nil {
			return nil, nil, err
		}
		product.Sales += -delta
		product.DailySales += -delta
	}

	adj := &repository.StockAdjustment{
		ProductID:        productID,
		AdjustmentType:   adjType,
		QuantityBefore:   product.Stock,
		QuantityAfter:    after,
		Difference:       delta,
		Note:             note,
		RelatedOrderID:   ref.OrderID,
		RelatedBatchCode: ref.BatchCode,
		UserID:           userID,
	}
	if err := adjRepo.AppendTx(ctx, tx, adj); err != nil {
		return nil, nil, err
	}

	product.Stock = after
	return product, adj, nil
}

// AdjustStock atomically applies a stock delta to a product. Positive
// deltas restock, negative deltas consume. The call fails with
// InsufficientStock if the result would go negative, and in that case
// nothing is committed.
func (s *InventoryService) AdjustStock(ctx context.Context, productID int64, delta int, adjType, note string, ref AuditRef, userID int64) (*repository.Product, error) {
	var (
		product *repository.Product
		adj     *repository.StockAdjustment
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		product, adj, err = applyAdjustmentTx(ctx, tx, s.productRepo, s.adjRepo, productID, delta, adjType, note, ref, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, errors.ErrInsufficientStock) {
			s.metrics.InsufficientStockTotal.WithLabelValues("adjust").Inc()
		}
		return nil, err
	}

	s.metrics.StockAdjustmentsTotal.WithLabelValues(adjType).Inc()
	s.publisher.PublishStockAdjusted(ctx, adj)

	return product, nil
}

// CreateProduct creates a product, optionally with an initial lot when an
// expiry date accompanies the initial stock. The lot sequence position is
// computed, never assumed to be 1.
func (s *InventoryService) CreateProduct(ctx context.Context, product *repository.Product, initialExpiry *time.Time, userID int64) error {
	if product.InitialStock < 0 {
		return errors.BadRequest("initial stock must not be negative")
	}
	if initialExpiry != nil && product.InitialStock > 0 && !initialExpiry.After(time.Now()) {
		return errors.InvalidBatch("expiry date must be in the future")
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		product.Stock = product.InitialStock
		if err := s.productRepo.CreateTx(ctx, tx, product); err != nil {
			return err
		}

		if product.InitialStock == 0 {
			return nil
		}

		adj := &repository.StockAdjustment{
			ProductID:      product.ID,
			AdjustmentType: repository.AdjustmentProductCreated,
			QuantityBefore: 0,
			QuantityAfter:  product.InitialStock,
			Difference:     product.InitialStock,
			Note:           "initial stock",
			UserID:         userID,
		}

		if initialExpiry != nil {
			batch, err := s.createBatchTx(ctx, tx, product, product.InitialStock, *initialExpiry)
			if err != nil {
				return err
			}
			adj.RelatedBatchCode = &batch.BatchCode
		}

		return s.adjRepo.AppendTx(ctx, tx, adj)
	})
}

// createBatchTx inserts a batch for a product whose row is already locked
// in this transaction. The sequence position is count(batches) + 1; the
// unique (product_id, batch_code) constraint catches any collision.
func (s *InventoryService) createBatchTx(ctx context.Context, tx *sqlx.Tx, product *repository.Product, quantity int, expiry time.Time) (*repository.Batch, error) {
	count, err := s.batchRepo.CountByProductTx(ctx, tx, product.ID)
	if err != nil {
		return nil, err
	}

	batch := &repository.Batch{
		ProductID:  product.ID,
		BatchCode:  BatchCode(product.Title, count+1, time.Now()),
		Quantity:   quantity,
		ExpiryDate: expiry,
	}
	if err := s.batchRepo.CreateTx(ctx, tx, batch); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}

	return batch, nil
}

// CreateBatch creates a new lot for a product. When addToStock is set the
// product's aggregate stock grows by the batch quantity in the same
// transaction, with a batch_created audit row.
func (s *InventoryService) CreateBatch(ctx context.Context, productID int64, quantity int, expiry time.Time, addToStock bool, note string, userID int64) (*repository.Batch, error) {
	if quantity <= 0 {
		return nil, errors.InvalidBatch("quantity must be positive")
	}
	if !expiry.After(time.Now()) {
		return nil, errors.InvalidBatch("expiry date must be in the future")
	}

	var (
		batch *repository.Batch
		adj   *repository.StockAdjustment
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		// The product lock serializes sequence assignment.
		product, err := s.productRepo.GetForUpdateTx(ctx, tx, productID)
		if err != nil {
			return err
		}

		batch, err = s.createBatchTx(ctx, tx, product, quantity, expiry)
		if err != nil {
			return err
		}

		if !addToStock {
			return nil
		}

		after := product.Stock + quantity
		if err := s.productRepo.SetStockTx(ctx, tx, productID, after); err != nil {
			return err
		}

		adj = &repository.StockAdjustment{
			ProductID:        productID,
			AdjustmentType:   repository.AdjustmentBatchCreated,
			QuantityBefore:   product.Stock,
			QuantityAfter:    after,
			Difference:       quantity,
			Note:             note,
			RelatedBatchCode: &batch.BatchCode,
			UserID:           userID,
		}
		return s.adjRepo.AppendTx(ctx, tx, adj)
	})
	if err != nil {
		return nil, err
	}

	if adj != nil {
		s.metrics.StockAdjustmentsTotal.WithLabelValues(repository.AdjustmentBatchCreated).Inc()
		s.publisher.PublishStockAdjusted(ctx, adj)
	}

	return batch, nil
}

// CorrectBatch sets a batch's quantity to an absolute value and applies
// the difference to the product's aggregate stock, all in one transaction.
func (s *InventoryService) CorrectBatch(ctx context.Context, batchID int64, newQuantity int, note string, userID int64) (*repository.Batch, error) {
	if newQuantity < 0 {
		return nil, errors.InvalidBatch("quantity must not be negative")
	}

	var (
		batch *repository.Batch
		adj   *repository.StockAdjustment
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		batch, err = s.batchRepo.GetForUpdateTx(ctx, tx, batchID)
		if err != nil {
			return err
		}

		delta := newQuantity - batch.Quantity
		if delta == 0 {
			return nil
		}

		if err := s.batchRepo.SetQuantityTx(ctx, tx, batchID, newQuantity); err != nil {
			return err
		}

		_, adj, err = applyAdjustmentTx(
			ctx, tx, s.productRepo, s.adjRepo,
			batch.ProductID, delta, repository.AdjustmentCorrection, note,
			AuditRef{BatchCode: &batch.BatchCode}, userID,
		)
		if err != nil {
			return err
		}

		batch.Quantity = newQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	if adj != nil {
		s.metrics.StockAdjustmentsTotal.WithLabelValues(repository.AdjustmentCorrection).Inc()
		s.publisher.PublishStockAdjusted(ctx, adj)
	}

	return batch, nil
}

// DeleteBatch deletes a batch. Only inert batches (quantity zero) may go;
// anything else is BatchInUse. The quantity check and the delete share one
// transaction with the row locked, so a concurrent correction cannot refill
// the batch between the two.
func (s *InventoryService) DeleteBatch(ctx context.Context, batchID int64) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		batch, err := s.batchRepo.GetForUpdateTx(ctx, tx, batchID)
		if err != nil {
			return err
		}

		if batch.Quantity > 0 {
			return errors.BatchInUse(batch.ID, batch.Quantity)
		}

		return s.batchRepo.DeleteTx(ctx, tx, batchID)
	})
}

// GetProduct gets a product by ID
func (s *InventoryService) GetProduct(ctx context.Context, id int64) (*repository.Product, error) {
	return s.productRepo.GetByID(ctx, id)
}

// ListProducts lists products with pagination
func (s *InventoryService) ListProducts(ctx context.Context, page, perPage int) ([]*repository.Product, int64, error) {
	return s.productRepo.List(ctx, page, perPage)
}

// UpdateProduct updates a product's attributes (never its stock)
func (s *InventoryService) UpdateProduct(ctx context.Context, product *repository.Product) error {
	return s.productRepo.Update(ctx, product)
}

// DeleteProduct deletes a product; batches and audit rows cascade
func (s *InventoryService) DeleteProduct(ctx context.Context, id int64) error {
	return s.productRepo.Delete(ctx, id)
}

// GetBatch gets a batch by ID
func (s *InventoryService) GetBatch(ctx context.Context, id int64) (*repository.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// ListBatches lists a product's batches in expiry order
func (s *InventoryService) ListBatches(ctx context.Context, productID int64) ([]*repository.Batch, error) {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.batchRepo.ListByProduct(ctx, productID)
}

// ListAdjustments lists a product's audit trail, newest first
func (s *InventoryService) ListAdjustments(ctx context.Context, productID int64, page, perPage int) ([]*repository.StockAdjustment, int64, error) {
	return s.adjRepo.ListByProduct(ctx, productID, page, perPage)
}

// ResetDailySales zeroes the daily sales counters. Called by the external
// report scheduler.
func (s *InventoryService) ResetDailySales(ctx context.Context) error {
	if err := s.productRepo.ResetDailySales(ctx); err != nil {
		return fmt.Errorf("reset daily sales: %w", err)
	}
	return nil
}
