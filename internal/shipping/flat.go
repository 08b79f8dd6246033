package shipping

import (
	"context"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/shopspring/decimal"
)

// FlatRateReference is the carrier reference of flat-rate quotes
const FlatRateReference = "flat-rate"

// FlatRate charges the same fee for every parcel. Used in development and
// when no carrier account is configured.
type FlatRate struct {
	Fee decimal.Decimal
}

func (f FlatRate) Quote(ctx context.Context, _ string, _ models.Address, _ models.PackageDescriptor) (models.ShippingQuote, error) {
	if err := ctx.Err(); err != nil {
		return models.ShippingQuote{}, err
	}
	return models.ShippingQuote{Fee: f.Fee, CarrierReference: FlatRateReference}, nil
}
