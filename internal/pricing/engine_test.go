package pricing

import (
	"errors"
	"testing"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRates())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestEngine_ComputeBreakdown_Scenarios(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name               string
		items              []models.LineItem
		shippingFee        string
		wantPairs          int
		wantSubtotal       string
		wantDiscount       string
		wantTax            string
		wantTotal          string
		wantDisplayedTotal string
	}{
		{
			name: "two different covers earn one pair",
			items: []models.LineItem{
				{SpokeCount: 32, WheelSize: "700", Quantity: 1},
				{SpokeCount: 36, WheelSize: "26", Quantity: 1},
			},
			shippingFee:        "12.00",
			wantPairs:          1,
			wantSubtotal:       "85.50",
			wantDiscount:       "4.50",
			wantTax:            "12.825",
			wantTotal:          "110.325",
			wantDisplayedTotal: "110.33",
		},
		{
			name:               "single unit pays full price",
			items:              []models.LineItem{{SpokeCount: 32, WheelSize: "700", Quantity: 1}},
			shippingFee:        "0",
			wantPairs:          0,
			wantSubtotal:       "45.00",
			wantDiscount:       "0",
			wantTax:            "6.75",
			wantTotal:          "51.75",
			wantDisplayedTotal: "51.75",
		},
		{
			name:               "odd quantity leaves one full price unit",
			items:              []models.LineItem{{SpokeCount: 36, WheelSize: "650b", Quantity: 3}},
			shippingFee:        "15.40",
			wantPairs:          1,
			wantSubtotal:       "130.50",
			wantDiscount:       "4.50",
			wantTax:            "19.575",
			wantTotal:          "165.475",
			wantDisplayedTotal: "165.48",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.ComputeBreakdown(tt.items, d(tt.shippingFee))
			if err != nil {
				t.Fatalf("ComputeBreakdown() error = %v", err)
			}

			if got.PairsCount != tt.wantPairs {
				t.Errorf("PairsCount = %d, want %d", got.PairsCount, tt.wantPairs)
			}
			if !got.DiscountedSubtotal.Equal(d(tt.wantSubtotal)) {
				t.Errorf("DiscountedSubtotal = %s, want %s", got.DiscountedSubtotal, tt.wantSubtotal)
			}
			if !got.DiscountAmount.Equal(d(tt.wantDiscount)) {
				t.Errorf("DiscountAmount = %s, want %s", got.DiscountAmount, tt.wantDiscount)
			}
			if !got.TaxAmount.Equal(d(tt.wantTax)) {
				t.Errorf("TaxAmount = %s, want %s", got.TaxAmount, tt.wantTax)
			}
			if !got.TaxAmount.Equal(got.DiscountedSubtotal.Mul(got.TaxRate)) {
				t.Errorf("TaxAmount %s is not subtotal * tax rate", got.TaxAmount)
			}
			if !got.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
			if Display(got.Total) != tt.wantDisplayedTotal {
				t.Errorf("Display(Total) = %s, want %s", Display(got.Total), tt.wantDisplayedTotal)
			}
		})
	}
}

func TestEngine_ComputeBreakdown_PairsAcrossItems(t *testing.T) {
	engine := newTestEngine(t)
	fee := d("12.00")

	split, err := engine.ComputeBreakdown([]models.LineItem{
		{SpokeCount: 32, WheelSize: "700", Quantity: 1},
		{SpokeCount: 32, WheelSize: "26", Quantity: 1},
		{SpokeCount: 36, WheelSize: "650b", Quantity: 3},
	}, fee)
	if err != nil {
		t.Fatalf("ComputeBreakdown(split) error = %v", err)
	}

	merged, err := engine.ComputeBreakdown([]models.LineItem{
		{SpokeCount: 32, WheelSize: "700", Quantity: 5},
	}, fee)
	if err != nil {
		t.Fatalf("ComputeBreakdown(merged) error = %v", err)
	}

	if split.PairsCount != 2 {
		t.Errorf("PairsCount = %d, want 2", split.PairsCount)
	}
	if !split.Total.Equal(merged.Total) || split.PairsCount != merged.PairsCount {
		t.Errorf("split cart total %s (pairs %d) differs from merged %s (pairs %d)",
			split.Total, split.PairsCount, merged.Total, merged.PairsCount)
	}
}

func TestEngine_ComputeBreakdown_Monotonic(t *testing.T) {
	engine := newTestEngine(t)
	fee := d("9.99")

	base := []models.LineItem{
		{SpokeCount: 32, WheelSize: "700", Quantity: 1},
		{SpokeCount: 36, WheelSize: "26", Quantity: 4},
		{SpokeCount: 32, WheelSize: "650b", Quantity: 7},
	}

	for i := range base {
		for q := models.MinQuantity; q < models.MaxQuantity; q++ {
			items := append([]models.LineItem(nil), base...)
			items[i].Quantity = q
			before, err := engine.ComputeBreakdown(items, fee)
			if err != nil {
				t.Fatalf("ComputeBreakdown() error = %v", err)
			}

			items[i].Quantity = q + 1
			after, err := engine.ComputeBreakdown(items, fee)
			if err != nil {
				t.Fatalf("ComputeBreakdown() error = %v", err)
			}

			if after.Total.LessThan(before.Total) {
				t.Errorf("item %d quantity %d->%d decreased total %s -> %s", i, q, q+1, before.Total, after.Total)
			}
		}
	}
}

func TestEngine_ComputeBreakdown_Deterministic(t *testing.T) {
	engine := newTestEngine(t)
	items := []models.LineItem{
		{SpokeCount: 36, WheelSize: "700", Quantity: 3},
		{SpokeCount: 32, WheelSize: "26", Quantity: 2},
	}

	first, err := engine.ComputeBreakdown(items, d("14.25"))
	if err != nil {
		t.Fatalf("ComputeBreakdown() error = %v", err)
	}
	second, err := engine.ComputeBreakdown(items, d("14.25"))
	if err != nil {
		t.Fatalf("ComputeBreakdown() error = %v", err)
	}

	if !first.Equal(second) {
		t.Errorf("breakdowns differ: %+v vs %+v", first, second)
	}
	if items[0].Quantity != 3 || items[1].Quantity != 2 {
		t.Error("ComputeBreakdown mutated its input")
	}
}

func TestEngine_ComputeBreakdown_Validation(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name      string
		items     []models.LineItem
		fee       string
		wantField string
	}{
		{name: "empty cart", items: nil, fee: "0", wantField: "lineItems"},
		{name: "quantity too large", items: []models.LineItem{{SpokeCount: 32, WheelSize: "700", Quantity: 11}}, fee: "0", wantField: "lineItems[0].quantity"},
		{name: "unknown spoke count", items: []models.LineItem{{SpokeCount: 24, WheelSize: "700", Quantity: 1}}, fee: "0", wantField: "lineItems[0].spokeCount"},
		{name: "unknown wheel size", items: []models.LineItem{{SpokeCount: 32, WheelSize: "29er", Quantity: 1}}, fee: "0", wantField: "lineItems[0].wheelSize"},
		{name: "negative shipping", items: []models.LineItem{{SpokeCount: 32, WheelSize: "700", Quantity: 1}}, fee: "-1", wantField: "shippingFee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ComputeBreakdown(tt.items, d(tt.fee))

			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ComputeBreakdown() error = %v, want *models.ValidationError", err)
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Fields[0].Field, tt.wantField)
			}
		})
	}
}

func TestNewEngine_InvalidRates(t *testing.T) {
	tests := []struct {
		name  string
		rates Rates
	}{
		{name: "zero price", rates: Rates{BaseUnitPrice: d("0"), PairDiscountRate: d("0.05"), TaxRate: d("0.15")}},
		{name: "full discount", rates: Rates{BaseUnitPrice: d("45"), PairDiscountRate: d("1"), TaxRate: d("0.15")}},
		{name: "negative tax", rates: Rates{BaseUnitPrice: d("45"), PairDiscountRate: d("0.05"), TaxRate: d("-0.01")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.rates); !errors.Is(err, ErrInvalidRates) {
				t.Errorf("NewEngine() error = %v, want ErrInvalidRates", err)
			}
		})
	}
}
