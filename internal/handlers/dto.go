package handlers

import (
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/WheelyWonka/toaste/internal/pricing"
)

// DisplayAmounts are the breakdown amounts rounded to cents
type DisplayAmounts struct {
	Subtotal           string `json:"subtotal"`
	DiscountAmount     string `json:"discountAmount"`
	DiscountedSubtotal string `json:"discountedSubtotal"`
	TaxAmount          string `json:"taxAmount"`
	ShippingFee        string `json:"shippingFee"`
	Total              string `json:"total"`
}

// PricingResponse carries exact amounts alongside their display values
type PricingResponse struct {
	Currency           string         `json:"currency"`
	BaseUnitPrice      string         `json:"baseUnitPrice"`
	PairDiscountRate   string         `json:"pairDiscountRate"`
	TaxRate            string         `json:"taxRate"`
	TotalQuantity      int            `json:"totalQuantity"`
	PairsCount         int            `json:"pairsCount"`
	DiscountAmount     string         `json:"discountAmount"`
	DiscountedSubtotal string         `json:"discountedSubtotal"`
	TaxAmount          string         `json:"taxAmount"`
	ShippingFee        string         `json:"shippingFee"`
	Total              string         `json:"total"`
	Display            DisplayAmounts `json:"display"`
}

// OrderResponse is the public view of an order
type OrderResponse struct {
	Code      string             `json:"code"`
	Status    models.OrderStatus `json:"status"`
	Customer  models.Customer    `json:"customer"`
	LineItems []models.LineItem  `json:"lineItems"`
	Pricing   PricingResponse    `json:"pricing"`
	Locale    string             `json:"locale"`
	Notes     string             `json:"notes,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func toPricingResponse(p models.PriceBreakdown) PricingResponse {
	subtotal := p.DiscountedSubtotal.Add(p.DiscountAmount)
	return PricingResponse{
		Currency:           models.Currency,
		BaseUnitPrice:      p.BaseUnitPrice.String(),
		PairDiscountRate:   p.PairDiscountRate.String(),
		TaxRate:            p.TaxRate.String(),
		TotalQuantity:      p.TotalQuantity,
		PairsCount:         p.PairsCount,
		DiscountAmount:     p.DiscountAmount.String(),
		DiscountedSubtotal: p.DiscountedSubtotal.String(),
		TaxAmount:          p.TaxAmount.String(),
		ShippingFee:        p.ShippingFee.String(),
		Total:              p.Total.String(),
		Display: DisplayAmounts{
			Subtotal:           pricing.Display(subtotal),
			DiscountAmount:     pricing.Display(p.DiscountAmount),
			DiscountedSubtotal: pricing.Display(p.DiscountedSubtotal),
			TaxAmount:          pricing.Display(p.TaxAmount),
			ShippingFee:        pricing.Display(p.ShippingFee),
			Total:              pricing.Display(p.Total),
		},
	}
}

func toOrderResponse(o *models.Order) OrderResponse {
	return OrderResponse{
		Code:      o.Code,
		Status:    o.Status,
		Customer:  o.Customer,
		LineItems: o.LineItems,
		Pricing:   toPricingResponse(o.Pricing),
		Locale:    o.Locale,
		Notes:     o.Notes,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
