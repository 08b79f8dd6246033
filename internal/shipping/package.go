package shipping

import (
	"context"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/shopspring/decimal"
)

// Parcel dimensions for a stack of covers
const (
	gramsPerCover = 100
	packageType   = "large_flat_rate_box"
)

var (
	boxSideCm        = decimal.NewFromInt(63)
	boxBaseHeightCm  = decimal.NewFromInt(3)
	coverThicknessCm = decimal.RequireFromString("0.5")
)

// Quoter prices a parcel to an address
type Quoter interface {
	Quote(ctx context.Context, recipient string, to models.Address, pkg models.PackageDescriptor) (models.ShippingQuote, error)
}

// PackageFor describes the box shipping covers units, each declared at
// unitValue
func PackageFor(covers int, unitValue decimal.Decimal) models.PackageDescriptor {
	n := decimal.NewFromInt(int64(covers))
	return models.PackageDescriptor{
		Covers:        covers,
		WeightGrams:   gramsPerCover * covers,
		LengthCm:      boxSideCm,
		WidthCm:       boxSideCm,
		HeightCm:      boxBaseHeightCm.Add(coverThicknessCm.Mul(n)),
		DeclaredValue: unitValue.Mul(n),
		Currency:      models.Currency,
		PackageType:   packageType,
	}
}
