package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventStockAdjusted   = "inventory.stock.adjusted"
	EventOrderAllocated  = "inventory.order.allocated"
	EventBatchExpiring   = "inventory.batch.expiring"
	EventProductLowStock = "inventory.product.low_stock"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// StockAdjustedEvent is published after every committed stock adjustment
type StockAdjustedEvent struct {
	ProductID      int64  `json:"product_id"`
	AdjustmentType string `json:"adjustment_type"`
	QuantityBefore int    `json:"quantity_before"`
	QuantityAfter  int    `json:"quantity_after"`
	Difference     int    `json:"difference"`
	UserID         int64  `json:"user_id"`
}

// OrderAllocatedEvent is published after a successful FEFO allocation
type OrderAllocatedEvent struct {
	OrderID     string                 `json:"order_id"`
	Allocations []OrderAllocationEntry `json:"allocations"`
}

// OrderAllocationEntry is one batch consumption within an allocation
type OrderAllocationEntry struct {
	BatchID   int64 `json:"batch_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// BatchExpiringEvent is published by the expiry scan for each batch
// inside the alert horizon. Consumed by the external alerting subsystem.
type BatchExpiringEvent struct {
	BatchID         int64     `json:"batch_id"`
	ProductID       int64     `json:"product_id"`
	BatchCode       string    `json:"batch_code"`
	Quantity        int       `json:"quantity"`
	ExpiryDate      time.Time `json:"expiry_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// ProductLowStockEvent is published by the low-stock scan
type ProductLowStockEvent struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}
