package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/WheelyWonka/toaste/internal/middleware"
	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/ordercode"
	"github.com/WheelyWonka/toaste/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// UpdateStatusRequest is the body of a status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log.WarnContext(r.Context(), "failed to decode order request", "error", err)
		WriteError(w, http.StatusBadRequest, err.Error(), h.log)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "failed to create order", err)
		return
	}

	WriteJSON(w, http.StatusCreated, toOrderResponse(order), h.log)
}

// GetOrder handles GET /api/orders/{orderCode}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "orderCode")

	order, err := h.orderService.GetOrder(r.Context(), code)
	if err != nil {
		h.writeServiceError(w, r, "failed to get order", err)
		return
	}

	WriteJSON(w, http.StatusOK, toOrderResponse(order), h.log)
}

// UpdateStatus handles PUT /api/orders/{orderCode}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "orderCode")

	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.log)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), code, req.Status)
	if err != nil {
		h.writeServiceError(w, r, "failed to update order status", err)
		return
	}

	h.log.InfoContext(r.Context(), "order status updated",
		"order_code", order.Code,
		"status", order.Status,
		"admin", middleware.AdminSubject(r.Context()),
	)

	WriteJSON(w, http.StatusOK, toOrderResponse(order), h.log)
}

func (h *OrderHandler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		h.log.InfoContext(r.Context(), msg, "error", err)
		WriteValidationError(w, verr, h.log)
	case errors.Is(err, service.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "Order not found", h.log)
	case errors.Is(err, service.ErrShippingQuote):
		h.log.WarnContext(r.Context(), msg, "error", err)
		WriteError(w, http.StatusBadGateway, "Shipping quote unavailable, please check the address and try again", h.log)
	case errors.Is(err, ordercode.ErrAllocationExhausted):
		h.log.ErrorContext(r.Context(), msg, "error", err)
		WriteError(w, http.StatusInternalServerError, "Could not allocate an order code, please retry", h.log)
	default:
		h.log.ErrorContext(r.Context(), msg, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
	}
}
