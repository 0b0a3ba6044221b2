package handler

import (
	"net/http"
	"strconv"

	"github.com/vendstock/vendstock-backend/internal/inventory/service"
	"github.com/vendstock/vendstock-backend/pkg/httputil"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// MonitorHandler handles monitoring and summary endpoints
type MonitorHandler struct {
	monitor *service.MonitorService
	scanner *service.ScannerService
	logger  *logger.Logger
}

// NewMonitorHandler creates a new monitor handler
func NewMonitorHandler(monitor *service.MonitorService, scanner *service.ScannerService, log *logger.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		scanner: scanner,
		logger:  log,
	}
}

// ExpiringBatches lists batches expiring within the horizon. The days
// query parameter overrides the configured default.
func (h *MonitorHandler) ExpiringBatches(w http.ResponseWriter, r *http.Request) {
	daysAhead, _ := strconv.Atoi(r.URL.Query().Get("days"))

	batches, err := h.monitor.ExpiringBatches(r.Context(), daysAhead)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// LowStock lists products at or below the stock threshold
func (h *MonitorHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))

	products, err := h.monitor.LowStock(r.Context(), threshold)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, products)
}

// Summary returns the batch-level stock breakdown for a product
func (h *MonitorHandler) Summary(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.monitor.Summarize(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// Scan runs one monitoring sweep and reports what it published
func (h *MonitorHandler) Scan(w http.ResponseWriter, r *http.Request) {
	report, err := h.scanner.Scan(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}
