package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxNotesLength bounds the free-text notes attached to an order
const MaxNotesLength = 1000

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	StatusWaitingForPayment OrderStatus = "waiting_for_payment"
	StatusToProduce         OrderStatus = "to_produce"
	StatusToSend            OrderStatus = "to_send"
	StatusDone              OrderStatus = "done"
	StatusCancelled         OrderStatus = "cancelled"
	StatusRefunded          OrderStatus = "refunded"
)

// OrderStatuses lists every status in fulfilment order
var OrderStatuses = []OrderStatus{
	StatusWaitingForPayment,
	StatusToProduce,
	StatusToSend,
	StatusDone,
	StatusCancelled,
	StatusRefunded,
}

// ParseOrderStatus returns the status named by s. There is no transition
// graph: any status may replace any other.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range OrderStatuses {
		if status == v {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// PriceBreakdown is the priced snapshot of a cart. Amounts are exact; they
// are only rounded when displayed.
type PriceBreakdown struct {
	BaseUnitPrice      decimal.Decimal `json:"baseUnitPrice"`
	PairDiscountRate   decimal.Decimal `json:"pairDiscountRate"`
	TaxRate            decimal.Decimal `json:"taxRate"`
	TotalQuantity      int             `json:"totalQuantity"`
	PairsCount         int             `json:"pairsCount"`
	DiscountedUnits    int             `json:"discountedUnits"`
	FullPriceUnits     int             `json:"fullPriceUnits"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountedSubtotal decimal.Decimal `json:"discountedSubtotal"`
	TaxAmount          decimal.Decimal `json:"taxAmount"`
	ShippingFee        decimal.Decimal `json:"shippingFee"`
	Total              decimal.Decimal `json:"total"`
}

// Equal reports whether two breakdowns carry the same values
func (p PriceBreakdown) Equal(o PriceBreakdown) bool {
	return p.BaseUnitPrice.Equal(o.BaseUnitPrice) &&
		p.PairDiscountRate.Equal(o.PairDiscountRate) &&
		p.TaxRate.Equal(o.TaxRate) &&
		p.TotalQuantity == o.TotalQuantity &&
		p.PairsCount == o.PairsCount &&
		p.DiscountedUnits == o.DiscountedUnits &&
		p.FullPriceUnits == o.FullPriceUnits &&
		p.DiscountAmount.Equal(o.DiscountAmount) &&
		p.DiscountedSubtotal.Equal(o.DiscountedSubtotal) &&
		p.TaxAmount.Equal(o.TaxAmount) &&
		p.ShippingFee.Equal(o.ShippingFee) &&
		p.Total.Equal(o.Total)
}

// CreateOrderRequest is the checkout payload sent by the storefront
type CreateOrderRequest struct {
	Customer  Customer   `json:"customer"`
	LineItems []LineItem `json:"lineItems"`
	Locale    string     `json:"locale,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// Normalize trims free-text input in place
func (r *CreateOrderRequest) Normalize() {
	r.Customer.Normalize()
	r.Notes = strings.TrimSpace(r.Notes)
	r.Locale = NormalizeLocale(r.Locale)
}

// Validate collects every field error of the request at once
func (r CreateOrderRequest) Validate() error {
	errs := r.Customer.Validate()
	errs = append(errs, ValidateLineItems(r.LineItems)...)
	if utf8.RuneCountInString(r.Notes) > MaxNotesLength {
		errs = append(errs, FieldError{
			Field:   "notes",
			Message: fmt.Sprintf("must be at most %d characters", MaxNotesLength),
		})
	}

	if verr := NewValidationError(errs); verr != nil {
		return verr
	}
	return nil
}

// OrderDraft is everything needed to persist a new order. The store assigns
// the internal ID and timestamps.
type OrderDraft struct {
	Code              string
	Customer          Customer
	LineItems         []LineItem
	Pricing           PriceBreakdown
	ShippingReference string
	Status            OrderStatus
	Locale            string
	Notes             string
}

// Order is a persisted order
type Order struct {
	ID                string         `json:"id"`
	Code              string         `json:"code"`
	Customer          Customer       `json:"customer"`
	LineItems         []LineItem     `json:"lineItems"`
	Pricing           PriceBreakdown `json:"pricing"`
	ShippingReference string         `json:"shippingReference,omitempty"`
	Status            OrderStatus    `json:"status"`
	Locale            string         `json:"locale"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// NewOrder materializes a draft with the given identity and creation time
func NewOrder(id string, draft OrderDraft, now time.Time) *Order {
	items := make([]LineItem, len(draft.LineItems))
	copy(items, draft.LineItems)

	return &Order{
		ID:                id,
		Code:              draft.Code,
		Customer:          draft.Customer,
		LineItems:         items,
		Pricing:           draft.Pricing,
		ShippingReference: draft.ShippingReference,
		Status:            draft.Status,
		Locale:            draft.Locale,
		Notes:             draft.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
