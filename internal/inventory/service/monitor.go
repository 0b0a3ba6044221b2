package service

import (
	"context"
	"time"

	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/pkg/config"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// BatchSummary is one batch inside a product summary, annotated with the
// whole days left until expiry. Negative values mean already expired.
type BatchSummary struct {
	ID              int64     `json:"id"`
	BatchCode       string    `json:"batch_code"`
	Quantity        int       `json:"quantity"`
	ExpiryDate      time.Time `json:"expiry_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// ProductSummary reconciles a product's aggregate stock against its lots.
type ProductSummary struct {
	ProductID        int64          `json:"product_id"`
	Title            string         `json:"title"`
	StockTotal       int            `json:"stock_total"`
	StockInBatches   int            `json:"stock_in_batches"`
	StockOutsideLots int            `json:"stock_outside_lots"`
	LowStock         bool           `json:"low_stock"`
	Batches          []BatchSummary `json:"batches"`
}

// MonitorService answers the read-side questions: what expires soon, what
// is running low, and how a product's aggregate stock maps onto its lots.
type MonitorService struct {
	productRepo *repository.ProductRepository
	batchRepo   *repository.BatchRepository
	cfg         config.InventoryConfig
	logger      *logger.Logger
}

// NewMonitorService creates a new monitor service
func NewMonitorService(productRepo *repository.ProductRepository, batchRepo *repository.BatchRepository, cfg config.InventoryConfig, log *logger.Logger) *MonitorService {
	return &MonitorService{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		cfg:         cfg,
		logger:      log,
	}
}

// ExpiringBatches lists batches expiring within daysAhead days. Already
// expired batches are excluded. A non-positive horizon falls back to the
// configured default.
func (s *MonitorService) ExpiringBatches(ctx context.Context, daysAhead int) ([]*repository.Batch, error) {
	if daysAhead <= 0 {
		daysAhead = s.cfg.ExpiryHorizonDays
	}
	return s.batchRepo.Expiring(ctx, daysAhead)
}

// LowStock lists products whose stock is at or below the threshold but
// not zero. A non-positive threshold falls back to the configured default.
func (s *MonitorService) LowStock(ctx context.Context, threshold int) ([]*repository.Product, error) {
	if threshold <= 0 {
		threshold = s.cfg.LowStockThreshold
	}
	return s.productRepo.LowStock(ctx, threshold)
}

// Summarize builds the batch-level view of one product. Stock outside
// lots is clamped at zero: over-allocated lots are a data problem the
// summary surfaces via the per-batch quantities, not a negative number.
func (s *MonitorService) Summarize(ctx context.Context, productID int64) (*ProductSummary, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	batches, err := s.batchRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summary := &ProductSummary{
		ProductID:  product.ID,
		Title:      product.Title,
		StockTotal: product.Stock,
		LowStock:   product.Stock > 0 && product.Stock <= s.cfg.LowStockThreshold,
		Batches:    make([]BatchSummary, 0, len(batches)),
	}

	for _, b := range batches {
		summary.StockInBatches += b.Quantity
		summary.Batches = append(summary.Batches, BatchSummary{
			ID:              b.ID,
			BatchCode:       b.BatchCode,
			Quantity:        b.Quantity,
			ExpiryDate:      b.ExpiryDate,
			DaysUntilExpiry: daysUntil(now, b.ExpiryDate),
		})
	}

	if outside := summary.StockTotal - summary.StockInBatches; outside > 0 {
		summary.StockOutsideLots = outside
	}

	return summary, nil
}

// daysUntil counts whole days from now to the expiry instant, rounding up
// so a batch expiring later today still shows one day.
func daysUntil(now, expiry time.Time) int {
	d := expiry.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
