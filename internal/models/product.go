package models

import (
	"github.com/shopspring/decimal"
)

// Currency of every amount handled by the shop
const Currency = "CAD"

// Product describes the configurable wheel cover and its current prices
type Product struct {
	Name             string          `json:"name"`
	Currency         string          `json:"currency"`
	SpokeCounts      []SpokeCount    `json:"spokeCounts"`
	WheelSizes       []WheelSize     `json:"wheelSizes"`
	MinQuantity      int             `json:"minQuantity"`
	MaxQuantity      int             `json:"maxQuantity"`
	BaseUnitPrice    decimal.Decimal `json:"baseUnitPrice"`
	PairDiscountRate decimal.Decimal `json:"pairDiscountRate"`
	TaxRate          decimal.Decimal `json:"taxRate"`
}

// PackageDescriptor is the parcel handed to a carrier for a quote
type PackageDescriptor struct {
	Covers        int             `json:"covers"`
	WeightGrams   int             `json:"weightGrams"`
	LengthCm      decimal.Decimal `json:"lengthCm"`
	WidthCm       decimal.Decimal `json:"widthCm"`
	HeightCm      decimal.Decimal `json:"heightCm"`
	DeclaredValue decimal.Decimal `json:"declaredValue"`
	Currency      string          `json:"currency"`
	PackageType   string          `json:"packageType"`
}

// ShippingQuote is a carrier's price for a package
type ShippingQuote struct {
	Fee              decimal.Decimal `json:"fee"`
	CarrierReference string          `json:"carrierReference"`
}
