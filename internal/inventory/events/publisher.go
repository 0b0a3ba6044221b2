package events

import (
	"context"

	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/pkg/logger"
	"github.com/vendstock/vendstock-backend/pkg/messaging"
)

// Backend delivers serialized events to the broker. *messaging.Publisher
// satisfies it.
type Backend interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes inventory-related events. A nil
// publisher is valid and drops everything, so services can run without
// a broker in tests.
type InventoryEventPublisher struct {
	publisher Backend
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-engine", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// NewInventoryEventPublisherWithBackend wires an already-built backend,
// skipping broker setup. Tests use it to capture published events.
func NewInventoryEventPublisherWithBackend(backend Backend, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		publisher: backend,
		logger:    log,
	}
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *InventoryEventPublisher) PublishStockAdjusted(ctx context.Context, adj *repository.StockAdjustment) {
	if p == nil {
		return
	}

	data := messaging.StockAdjustedEvent{
		ProductID:      adj.ProductID,
		AdjustmentType: adj.AdjustmentType,
		QuantityBefore: adj.QuantityBefore,
		QuantityAfter:  adj.QuantityAfter,
		Difference:     adj.Difference,
		UserID:         adj.UserID,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Int64("product_id", adj.ProductID).Msg("failed to publish stock adjusted event")
	}
}

// PublishOrderAllocated publishes an order allocated event
func (p *InventoryEventPublisher) PublishOrderAllocated(ctx context.Context, orderID string, entries []messaging.OrderAllocationEntry) {
	if p == nil {
		return
	}

	data := messaging.OrderAllocatedEvent{
		OrderID:     orderID,
		Allocations: entries,
	}

	if err := p.publisher.Publish(ctx, messaging.EventOrderAllocated, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to publish order allocated event")
	}
}

// PublishBatchExpiring publishes a batch expiring event
func (p *InventoryEventPublisher) PublishBatchExpiring(ctx context.Context, batch *repository.Batch, daysUntilExpiry int) {
	if p == nil {
		return
	}

	data := messaging.BatchExpiringEvent{
		BatchID:         batch.ID,
		ProductID:       batch.ProductID,
		BatchCode:       batch.BatchCode,
		Quantity:        batch.Quantity,
		ExpiryDate:      batch.ExpiryDate,
		DaysUntilExpiry: daysUntilExpiry,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchExpiring, data); err != nil {
		p.logger.Error().Err(err).Str("batch_code", batch.BatchCode).Msg("failed to publish batch expiring event")
	}
}

// PublishProductLowStock publishes a product low stock event
func (p *InventoryEventPublisher) PublishProductLowStock(ctx context.Context, product *repository.Product, threshold int) {
	if p == nil {
		return
	}

	data := messaging.ProductLowStockEvent{
		ProductID: product.ID,
		Title:     product.Title,
		Stock:     product.Stock,
		Threshold: threshold,
	}

	if err := p.publisher.Publish(ctx, messaging.EventProductLowStock, data); err != nil {
		p.logger.Error().Err(err).Int64("product_id", product.ID).Msg("failed to publish product low stock event")
	}
}
