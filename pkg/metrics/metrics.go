// Package metrics exposes prometheus instrumentation for the inventory engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors
type Metrics struct {
	AllocationsTotal       *prometheus.CounterVec
	AllocatedUnitsTotal    prometheus.Counter
	StockAdjustmentsTotal  *prometheus.CounterVec
	InsufficientStockTotal *prometheus.CounterVec
	AllocationDuration     prometheus.Histogram
}

// New creates and registers the engine collectors on the given registerer.
// Pass prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AllocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_allocations_total",
				Help: "Total number of FEFO allocation calls by outcome",
			},
			[]string{"outcome"},
		),
		AllocatedUnitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inventory_allocated_units_total",
				Help: "Total units consumed from batches by successful allocations",
			},
		),
		StockAdjustmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_adjustments_total",
				Help: "Total number of committed stock adjustments by type",
			},
			[]string{"type"},
		),
		InsufficientStockTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_insufficient_stock_total",
				Help: "Total number of operations rejected for insufficient stock",
			},
			[]string{"kind"},
		),
		AllocationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inventory_allocation_duration_seconds",
				Help:    "Duration of FEFO allocation calls",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(
		m.AllocationsTotal,
		m.AllocatedUnitsTotal,
		m.StockAdjustmentsTotal,
		m.InsufficientStockTotal,
		m.AllocationDuration,
	)

	return m
}

// NewNop creates unregistered collectors for tests that do not assert metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
