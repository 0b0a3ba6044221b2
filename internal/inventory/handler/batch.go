package handler

import (
	"net/http"
	"time"

	"github.com/vendstock/vendstock-backend/internal/inventory/service"
	"github.com/vendstock/vendstock-backend/pkg/actor"
	"github.com/vendstock/vendstock-backend/pkg/httputil"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// BatchHandler handles batch endpoints
type BatchHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(svc *service.InventoryService, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		logger:  log,
	}
}

type createBatchRequest struct {
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
	AddToStock bool      `json:"add_to_stock"`
	Note       string    `json:"note" validate:"max=500"`
}

type correctBatchRequest struct {
	Quantity int    `json:"quantity" validate:"gte=0"`
	Note     string `json:"note" validate:"required,max=500"`
}

// ListByProduct lists a product's batches in expiry order
func (h *BatchHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batches, err := h.service.ListBatches(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Create creates a new batch for a product
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req createBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.CreateBatch(
		r.Context(), productID, req.Quantity, req.ExpiryDate,
		req.AddToStock, req.Note, actor.FromContext(r.Context()).ID,
	)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Get gets a batch by ID
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.GetBatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Correct sets a batch's quantity to an audited absolute value
func (h *BatchHandler) Correct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req correctBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.service.CorrectBatch(r.Context(), id, req.Quantity, req.Note, actor.FromContext(r.Context()).ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Delete deletes an empty batch
func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteBatch(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
