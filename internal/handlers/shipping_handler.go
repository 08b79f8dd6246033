package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/pricing"
	"github.com/WheelyWonka/toaste/internal/service"
)

// defaultRecipient names the parcel when the storefront asks for a quote
// before the customer typed a name
const defaultRecipient = "Toasté customer"

// ShippingHandler handles shipping quote requests
type ShippingHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

func NewShippingHandler(orderService *service.OrderService, log *slog.Logger) *ShippingHandler {
	return &ShippingHandler{
		orderService: orderService,
		log:          log,
	}
}

// QuoteRequest asks for the delivery price of quantity covers
type QuoteRequest struct {
	Name            string         `json:"name,omitempty"`
	ShippingAddress models.Address `json:"shippingAddress"`
	Quantity        int            `json:"quantity"`
}

// QuoteResponse is a delivery price
type QuoteResponse struct {
	Fee              string `json:"fee"`
	DisplayFee       string `json:"displayFee"`
	Currency         string `json:"currency"`
	CarrierReference string `json:"carrierReference"`
}

// Quote handles POST /api/shipping/quote
func (h *ShippingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), h.log)
		return
	}
	if req.Name == "" {
		req.Name = defaultRecipient
	}

	quote, err := h.orderService.QuoteShipping(r.Context(), req.Name, req.ShippingAddress, req.Quantity)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			WriteValidationError(w, verr, h.log)
		case errors.Is(err, service.ErrShippingQuote):
			WriteError(w, http.StatusBadGateway, "Shipping quote unavailable, please check the address and try again", h.log)
		default:
			h.log.ErrorContext(r.Context(), "failed to quote shipping", "error", err)
			WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		}
		return
	}

	WriteJSON(w, http.StatusOK, QuoteResponse{
		Fee:              quote.Fee.String(),
		DisplayFee:       pricing.Display(quote.Fee),
		Currency:         models.Currency,
		CarrierReference: quote.CarrierReference,
	}, h.log)
}
