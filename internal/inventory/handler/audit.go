package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/internal/inventory/service"
	"github.com/vendstock/vendstock-backend/pkg/errors"
	"github.com/vendstock/vendstock-backend/pkg/httputil"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// AuditHandler serves the stock adjustment audit trail
type AuditHandler struct {
	service *service.InventoryService
	adjRepo *repository.AdjustmentRepository
	logger  *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(svc *service.InventoryService, adjRepo *repository.AdjustmentRepository, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		service: svc,
		adjRepo: adjRepo,
		logger:  log,
	}
}

// ListByProduct lists a product's adjustments, newest first
func (h *AuditHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	adjustments, total, err := h.service.ListAdjustments(r.Context(), productID, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, adjustments, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// ListByOrder lists the adjustments an order produced
func (h *AuditHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		httputil.Error(w, errors.BadRequest("invalid order id"))
		return
	}

	adjustments, err := h.adjRepo.ListByOrder(r.Context(), orderID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, adjustments)
}
