package pricing

import (
	"errors"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of decimal places amounts are rounded to when
// shown to a customer
const DisplayPlaces = 2

var ErrInvalidRates = errors.New("invalid pricing rates")

// Rates are the configured prices the engine works from
type Rates struct {
	BaseUnitPrice    decimal.Decimal
	PairDiscountRate decimal.Decimal
	TaxRate          decimal.Decimal
}

// DefaultRates returns the shop's standard prices: 45.00 CAD per cover, 5%
// off every complete pair and 15% sales tax.
func DefaultRates() Rates {
	return Rates{
		BaseUnitPrice:    decimal.RequireFromString("45.00"),
		PairDiscountRate: decimal.RequireFromString("0.05"),
		TaxRate:          decimal.RequireFromString("0.15"),
	}
}

// Validate rejects rates that would produce nonsensical prices
func (r Rates) Validate() error {
	if !r.BaseUnitPrice.IsPositive() {
		return errors.Join(ErrInvalidRates, errors.New("base unit price must be positive"))
	}
	if r.PairDiscountRate.IsNegative() || r.PairDiscountRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.Join(ErrInvalidRates, errors.New("pair discount rate must be in [0, 1)"))
	}
	if r.TaxRate.IsNegative() {
		return errors.Join(ErrInvalidRates, errors.New("tax rate must not be negative"))
	}
	return nil
}

// Engine computes price breakdowns. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	rates Rates
}

// NewEngine creates an engine for the given rates
func NewEngine(rates Rates) (*Engine, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Engine{rates: rates}, nil
}

// Rates returns the rates the engine prices with
func (e *Engine) Rates() Rates {
	return e.rates
}

// UnitPrice is the undiscounted price of one cover
func (e *Engine) UnitPrice() decimal.Decimal {
	return e.rates.BaseUnitPrice
}

// ComputeBreakdown prices a cart. Complete pairs are counted over the total
// quantity of the cart, not per line item, so two different single covers
// still earn the pair discount.
func (e *Engine) ComputeBreakdown(items []models.LineItem, shippingFee decimal.Decimal) (models.PriceBreakdown, error) {
	fieldErrs := models.ValidateLineItems(items)
	if shippingFee.IsNegative() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "shippingFee", Message: "must not be negative"})
	}
	if verr := models.NewValidationError(fieldErrs); verr != nil {
		return models.PriceBreakdown{}, verr
	}

	r := e.rates
	totalQuantity := models.TotalQuantity(items)
	pairsCount := totalQuantity / 2
	discountedUnits := pairsCount * 2
	fullPriceUnits := totalQuantity - discountedUnits

	one := decimal.NewFromInt(1)
	discountedUnitPrice := r.BaseUnitPrice.Mul(one.Sub(r.PairDiscountRate))

	discountedPart := decimal.NewFromInt(int64(discountedUnits)).Mul(discountedUnitPrice)
	fullPart := decimal.NewFromInt(int64(fullPriceUnits)).Mul(r.BaseUnitPrice)
	discountedSubtotal := discountedPart.Add(fullPart)

	discountAmount := decimal.NewFromInt(int64(discountedUnits)).Mul(r.BaseUnitPrice).Mul(r.PairDiscountRate)
	taxAmount := discountedSubtotal.Mul(r.TaxRate)
	total := discountedSubtotal.Add(taxAmount).Add(shippingFee)

	return models.PriceBreakdown{
		BaseUnitPrice:      r.BaseUnitPrice,
		PairDiscountRate:   r.PairDiscountRate,
		TaxRate:            r.TaxRate,
		TotalQuantity:      totalQuantity,
		PairsCount:         pairsCount,
		DiscountedUnits:    discountedUnits,
		FullPriceUnits:     fullPriceUnits,
		DiscountAmount:     discountAmount,
		DiscountedSubtotal: discountedSubtotal,
		TaxAmount:          taxAmount,
		ShippingFee:        shippingFee,
		Total:              total,
	}, nil
}

// Display formats an amount the way customers see it, rounded half away
// from zero to cents.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(DisplayPlaces)
}

// Catalog describes the product at the engine's prices
func (e *Engine) Catalog() models.Product {
	return models.Product{
		Name:             "Toasté wheel cover",
		Currency:         models.Currency,
		SpokeCounts:      models.SpokeCounts,
		WheelSizes:       models.WheelSizes,
		MinQuantity:      models.MinQuantity,
		MaxQuantity:      models.MaxQuantity,
		BaseUnitPrice:    e.rates.BaseUnitPrice,
		PairDiscountRate: e.rates.PairDiscountRate,
		TaxRate:          e.rates.TaxRate,
	}
}
