package service

import (
	"context"
	"time"

	"github.com/vendstock/vendstock-backend/internal/inventory/events"
	"github.com/vendstock/vendstock-backend/pkg/config"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// ScanReport summarizes one monitoring sweep.
type ScanReport struct {
	ExpiringBatches  int `json:"expiring_batches"`
	LowStockProducts int `json:"low_stock_products"`
}

// ScannerService runs the periodic monitoring sweep: it re-reads the
// monitor views and emits one event per finding. Scans are read-only and
// idempotent; consumers deduplicate repeated alerts.
type ScannerService struct {
	monitor   *MonitorService
	publisher *events.InventoryEventPublisher
	cfg       config.InventoryConfig
	logger    *logger.Logger
}

// NewScannerService creates a new scanner service
func NewScannerService(monitor *MonitorService, publisher *events.InventoryEventPublisher, cfg config.InventoryConfig, log *logger.Logger) *ScannerService {
	return &ScannerService{
		monitor:   monitor,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("scanner"),
	}
}

// Scan sweeps once and publishes an event per expiring batch and per
// low-stock product.
func (s *ScannerService) Scan(ctx context.Context) (*ScanReport, error) {
	report := &ScanReport{}
	now := time.Now()

	expiring, err := s.monitor.ExpiringBatches(ctx, s.cfg.ExpiryHorizonDays)
	if err != nil {
		return nil, err
	}
	for _, batch := range expiring {
		s.publisher.PublishBatchExpiring(ctx, batch, daysUntil(now, batch.ExpiryDate))
	}
	report.ExpiringBatches = len(expiring)

	lowStock, err := s.monitor.LowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	for _, product := range lowStock {
		s.publisher.PublishProductLowStock(ctx, product, s.cfg.LowStockThreshold)
	}
	report.LowStockProducts = len(lowStock)

	s.logger.Info().
		Int("expiring_batches", report.ExpiringBatches).
		Int("low_stock_products", report.LowStockProducts).
		Msg("monitoring sweep complete")

	return report, nil
}

// Run scans on a fixed interval until the context is cancelled.
func (s *ScannerService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monitoring sweep failed")
			}
		}
	}
}
