package handler

import (
	"net/http"

	"github.com/vendstock/vendstock-backend/internal/inventory/service"
	"github.com/vendstock/vendstock-backend/pkg/httputil"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// AllocationHandler handles order allocation endpoints
type AllocationHandler struct {
	allocator *service.AllocatorService
	logger    *logger.Logger
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(allocator *service.AllocatorService, log *logger.Logger) *AllocationHandler {
	return &AllocationHandler{
		allocator: allocator,
		logger:    log,
	}
}

type allocateRequest struct {
	OrderID string             `json:"order_id" validate:"required,max=100"`
	Items   []service.LineItem `json:"items" validate:"required,min=1,dive"`
}

type allocateResponse struct {
	OrderID     string               `json:"order_id"`
	Allocations []service.Allocation `json:"allocations"`
}

// Allocate consumes stock for an order in expiry order. The order either
// allocates completely or the response is a conflict and nothing changed.
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	allocations, err := h.allocator.Allocate(r.Context(), req.OrderID, req.Items)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, allocateResponse{
		OrderID:     req.OrderID,
		Allocations: allocations,
	})
}
