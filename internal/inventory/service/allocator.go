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
	"github.com/vendstock/vendstock-backend/pkg/messaging"
	"github.com/vendstock/vendstock-backend/pkg/metrics"
)

// LineItem is one product demand within an order.
type LineItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// Allocation records how many units one batch contributed to an order.
type Allocation struct {
	BatchID   int64  `json:"batch_id"`
	ProductID int64  `json:"product_id"`
	BatchCode string `json:"batch_code"`
	Quantity  int    `json:"quantity"`
}

// AllocatorService consumes stock for orders batch by batch in
// first-expiry-first-out order. An order either allocates completely or
// not at all: the whole order runs in one transaction, and any shortfall
// rolls every line item back.
type AllocatorService struct {
	db          *database.DB
	productRepo *repository.ProductRepository
	batchRepo   *repository.BatchRepository
	adjRepo     *repository.AdjustmentRepository
	publisher   *events.InventoryEventPublisher
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewAllocatorService creates a new allocator service
func NewAllocatorService(
	db *database.DB,
	productRepo *repository.ProductRepository,
	batchRepo *repository.BatchRepository,
	adjRepo *repository.AdjustmentRepository,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *AllocatorService {
	return &AllocatorService{
		db:          db,
		productRepo: productRepo,
		batchRepo:   batchRepo,
		adjRepo:     adjRepo,
		publisher:   publisher,
		metrics:     m,
		logger:      log,
	}
}

// Allocate consumes stock for every line item of an order, draining
// batches in expiry order. Expired and empty batches are never touched.
// On any shortfall the transaction rolls back and the error reports the
// product and the missing quantity.
func (s *AllocatorService) Allocate(ctx context.Context, orderID string, items []LineItem) ([]Allocation, error) {
	if orderID == "" {
		return nil, errors.BadRequest("order id is required")
	}
	if len(items) == 0 {
		return nil, errors.BadRequest("order has no line items")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, errors.BadRequest(fmt.Sprintf("invalid quantity %d for product %d", item.Quantity, item.ProductID))
		}
	}

	start := time.Now()
	var allocations []Allocation

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		allocations = allocations[:0]
		for _, item := range items {
			lines, err := s.allocateItemTx(ctx, tx, orderID, item)
			if err != nil {
				return err
			}
			allocations = append(allocations, lines...)
		}
		return nil
	})
	s.metrics.AllocationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, errors.ErrInsufficientBatchStock) || errors.Is(err, errors.ErrInsufficientStock) {
			outcome = "insufficient"
			s.metrics.InsufficientStockTotal.WithLabelValues("allocate").Inc()
		}
		s.metrics.AllocationsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	total := 0
	for _, a := range allocations {
		total += a.Quantity
	}
	s.metrics.AllocationsTotal.WithLabelValues("success").Inc()
	s.metrics.AllocatedUnitsTotal.Add(float64(total))

	s.logger.WithComponent("allocator").Info().
		Str("order_id", orderID).
		Int("line_items", len(items)).
		Int("units", total).
		Msg("order allocated")

	entries := make([]messaging.OrderAllocationEntry, len(allocations))
	for i, a := range allocations {
		entries[i] = messaging.OrderAllocationEntry{
			BatchID:   a.BatchID,
			ProductID: a.ProductID,
			Quantity:  a.Quantity,
		}
	}
	s.publisher.PublishOrderAllocated(ctx, orderID, entries)

	return allocations, nil
}

// allocateItemTx drains allocatable batches for one line item. The batch
// rows are locked in expiry order before the product row, and the
// aggregate stock decrement writes the order_sale audit row.
func (s *AllocatorService) allocateItemTx(ctx context.Context, tx *sqlx.Tx, orderID string, item LineItem) ([]Allocation, error) {
	batches, err := s.batchRepo.ListAllocatableTx(ctx, tx, item.ProductID)
	if err != nil {
		return nil, err
	}

	var lines []Allocation
	remaining := item.Quantity
	for _, batch := range batches {
		if remaining == 0 {
			break
		}
		take := batch.Quantity
		if take > remaining {
			take = remaining
		}
		if err := s.batchRepo.DecrementTx(ctx, tx, batch.ID, take); err != nil {
			return nil, err
		}
		lines = append(lines, Allocation{
			BatchID:   batch.ID,
			ProductID: item.ProductID,
			BatchCode: batch.BatchCode,
			Quantity:  take,
		})
		remaining -= take
	}

	if remaining > 0 {
		return nil, errors.InsufficientBatchStock(item.ProductID, remaining)
	}

	note := fmt.Sprintf("allocated %d units across %d batches", item.Quantity, len(lines))
	_, _, err = applyAdjustmentTx(
		ctx, tx, s.productRepo, s.adjRepo,
		item.ProductID, -item.Quantity, repository.AdjustmentOrderSale, note,
		AuditRef{OrderID: &orderID}, 0,
	)
	if err != nil {
		return nil, err
	}

	return lines, nil
}
