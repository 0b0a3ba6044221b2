package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/internal/inventory/service"
	"github.com/vendstock/vendstock-backend/pkg/actor"
	"github.com/vendstock/vendstock-backend/pkg/errors"
	"github.com/vendstock/vendstock-backend/pkg/httputil"
	"github.com/vendstock/vendstock-backend/pkg/logger"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(svc *service.InventoryService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  log,
	}
}

type createProductRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=200"`
	UnitPriceCents int        `json:"unit_price_cents" validate:"gte=0"`
	Unit           string     `json:"unit" validate:"required"`
	Category       *string    `json:"category"`
	InitialStock   int        `json:"initial_stock" validate:"gte=0"`
	ExpiryDate     *time.Time `json:"expiry_date"`
	Slot           *int       `json:"slot"`
	SlotDistance   *int       `json:"slot_distance"`
}

type adjustStockRequest struct {
	Difference     int     `json:"difference" validate:"required"`
	AdjustmentType string  `json:"adjustment_type" validate:"required,oneof=sale restock correction"`
	Note           string  `json:"note" validate:"max=500"`
	OrderID        *string `json:"order_id"`
}

// List lists products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	products, total, err := h.service.ListProducts(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, products, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets a product by ID
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// Create creates a new product, optionally with an initial lot
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	product := &repository.Product{
		Title:          req.Title,
		UnitPriceCents: req.UnitPriceCents,
		Unit:           req.Unit,
		Category:       req.Category,
		InitialStock:   req.InitialStock,
		Slot:           req.Slot,
		SlotDistance:   req.SlotDistance,
	}

	if err := h.service.CreateProduct(r.Context(), product, req.ExpiryDate, actor.FromContext(r.Context()).ID); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, product)
}

// Update updates a product's attributes; stock only moves through
// adjustments
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var product repository.Product
	if err := httputil.DecodeJSON(r, &product); err != nil {
		httputil.Error(w, err)
		return
	}

	product.ID = id
	if err := h.service.UpdateProduct(r.Context(), &product); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// Delete deletes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// AdjustStock applies a stock delta to a product
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req adjustStockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	product, err := h.service.AdjustStock(
		r.Context(), id, req.Difference, req.AdjustmentType, req.Note,
		service.AuditRef{OrderID: req.OrderID},
		actor.FromContext(r.Context()).ID,
	)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// ResetDailySales zeroes every product's daily sales counter
func (h *ProductHandler) ResetDailySales(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetDailySales(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// idParam parses a numeric URL parameter
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid " + name)
	}
	return id, nil
}
