package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/service"
	"github.com/shopspring/decimal"
)

// ProductHandler serves the catalog and cart price previews
type ProductHandler struct {
	product      models.Product
	orderService *service.OrderService
	logger       *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(product models.Product, orderService *service.OrderService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		product:      product,
		orderService: orderService,
		logger:       logger,
	}
}

// PriceRequest is a cart to price. ShippingFee defaults to zero.
type PriceRequest struct {
	LineItems   []models.LineItem `json:"lineItems"`
	ShippingFee decimal.Decimal   `json:"shippingFee"`
}

// GetProduct handles GET /api/product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.product, h.logger)
}

// PreviewPrice handles POST /api/product/price
func (h *ProductHandler) PreviewPrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	breakdown, err := h.orderService.PreviewPrice(req.LineItems, req.ShippingFee)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			WriteValidationError(w, verr, h.logger)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to price cart", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toPricingResponse(breakdown), h.logger)
}
