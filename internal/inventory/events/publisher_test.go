package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendstock/vendstock-backend/internal/inventory/events"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/pkg/logger"
	"github.com/vendstock/vendstock-backend/pkg/messaging"
	"github.com/vendstock/vendstock-backend/pkg/testutil"
)

func newCapturingPublisher() (*events.InventoryEventPublisher, *testutil.MockPublisher) {
	mock := testutil.NewMockPublisher()
	log := logger.New("test", "test")
	return events.NewInventoryEventPublisherWithBackend(mock, log), mock
}

func TestPublishStockAdjusted(t *testing.T) {
	pub, mock := newCapturingPublisher()

	pub.PublishStockAdjusted(context.Background(), &repository.StockAdjustment{
		ProductID:      3,
		AdjustmentType: repository.AdjustmentSale,
		QuantityBefore: 10,
		QuantityAfter:  7,
		Difference:     -3,
		UserID:         42,
	})

	require.Len(t, mock.PublishedEvents, 1)
	assert.Equal(t, messaging.EventStockAdjusted, mock.PublishedEvents[0].Type)

	data, ok := mock.PublishedEvents[0].Payload.(messaging.StockAdjustedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(3), data.ProductID)
	assert.Equal(t, repository.AdjustmentSale, data.AdjustmentType)
	assert.Equal(t, 10, data.QuantityBefore)
	assert.Equal(t, 7, data.QuantityAfter)
	assert.Equal(t, -3, data.Difference)
	assert.Equal(t, int64(42), data.UserID)
}

func TestPublishOrderAllocated(t *testing.T) {
	pub, mock := newCapturingPublisher()

	entries := []messaging.OrderAllocationEntry{
		{BatchID: 11, ProductID: 1, Quantity: 5},
		{BatchID: 12, ProductID: 1, Quantity: 2},
	}
	pub.PublishOrderAllocated(context.Background(), "ord-77", entries)

	require.Len(t, mock.PublishedEvents, 1)
	assert.Equal(t, messaging.EventOrderAllocated, mock.PublishedEvents[0].Type)

	data, ok := mock.PublishedEvents[0].Payload.(messaging.OrderAllocatedEvent)
	require.True(t, ok)
	assert.Equal(t, "ord-77", data.OrderID)
	assert.Equal(t, entries, data.Allocations)
}

func TestPublishBatchExpiring(t *testing.T) {
	pub, mock := newCapturingPublisher()

	expiry := time.Now().Add(72 * time.Hour)
	pub.PublishBatchExpiring(context.Background(), &repository.Batch{
		ID:         9,
		ProductID:  2,
		BatchCode:  "Le-1-02012026",
		Quantity:   6,
		ExpiryDate: expiry,
	}, 3)

	require.Len(t, mock.PublishedEvents, 1)
	assert.Equal(t, messaging.EventBatchExpiring, mock.PublishedEvents[0].Type)

	data, ok := mock.PublishedEvents[0].Payload.(messaging.BatchExpiringEvent)
	require.True(t, ok)
	assert.Equal(t, int64(9), data.BatchID)
	assert.Equal(t, int64(2), data.ProductID)
	assert.Equal(t, "Le-1-02012026", data.BatchCode)
	assert.Equal(t, 6, data.Quantity)
	assert.Equal(t, expiry, data.ExpiryDate)
	assert.Equal(t, 3, data.DaysUntilExpiry)
}

func TestPublishProductLowStock(t *testing.T) {
	pub, mock := newCapturingPublisher()

	pub.PublishProductLowStock(context.Background(), &repository.Product{
		ID:    2,
		Title: "Leche entera",
		Stock: 4,
	}, 10)

	require.Len(t, mock.PublishedEvents, 1)
	assert.Equal(t, messaging.EventProductLowStock, mock.PublishedEvents[0].Type)

	data, ok := mock.PublishedEvents[0].Payload.(messaging.ProductLowStockEvent)
	require.True(t, ok)
	assert.Equal(t, int64(2), data.ProductID)
	assert.Equal(t, "Leche entera", data.Title)
	assert.Equal(t, 4, data.Stock)
	assert.Equal(t, 10, data.Threshold)
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var pub *events.InventoryEventPublisher

	pub.PublishStockAdjusted(context.Background(), &repository.StockAdjustment{ProductID: 1})
	pub.PublishOrderAllocated(context.Background(), "ord-1", nil)
	pub.PublishBatchExpiring(context.Background(), &repository.Batch{ID: 1}, 1)
	pub.PublishProductLowStock(context.Background(), &repository.Product{ID: 1}, 10)
}
