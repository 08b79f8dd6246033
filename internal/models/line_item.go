package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Quantity bounds for a single line item
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// SpokeCount is the number of spokes of the wheel a cover is cut for
type SpokeCount int

const (
	Spokes32 SpokeCount = 32
	Spokes36 SpokeCount = 36
)

// SpokeCounts lists the spoke counts the workshop produces
var SpokeCounts = []SpokeCount{Spokes32, Spokes36}

// Valid reports whether the spoke count is one the workshop produces
func (s SpokeCount) Valid() bool {
	for _, v := range SpokeCounts {
		if s == v {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts both 32 and "32"; the storefront sends either.
func (s *SpokeCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("spoke count %q is not a number", str)
		}
		*s = SpokeCount(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("spoke count must be a number: %w", err)
	}
	*s = SpokeCount(n)
	return nil
}

// WheelSize is the nominal wheel diameter designation
type WheelSize string

const (
	Wheel26   WheelSize = "26"
	Wheel650b WheelSize = "650b"
	Wheel700  WheelSize = "700"
)

// WheelSizes lists the wheel sizes the workshop produces
var WheelSizes = []WheelSize{Wheel26, Wheel650b, Wheel700}

// Valid reports whether the wheel size is one the workshop produces
func (w WheelSize) Valid() bool {
	for _, v := range WheelSizes {
		if w == v {
			return true
		}
	}
	return false
}

// LineItem is one cover configuration requested in some quantity
type LineItem struct {
	SpokeCount SpokeCount `json:"spokeCount"`
	WheelSize  WheelSize  `json:"wheelSize"`
	Quantity   int        `json:"quantity"`
}

// Validate checks the item's invariants. index is the item's position in its
// cart and is used to name the offending field.
func (li LineItem) Validate(index int) []FieldError {
	var errs []FieldError
	prefix := fmt.Sprintf("lineItems[%d]", index)

	if !li.SpokeCount.Valid() {
		errs = append(errs, FieldError{
			Field:   prefix + ".spokeCount",
			Message: "must be one of 32, 36",
		})
	}
	if !li.WheelSize.Valid() {
		errs = append(errs, FieldError{
			Field:   prefix + ".wheelSize",
			Message: "must be one of 26, 650b, 700",
		})
	}
	if li.Quantity < MinQuantity || li.Quantity > MaxQuantity {
		errs = append(errs, FieldError{
			Field:   prefix + ".quantity",
			Message: fmt.Sprintf("must be between %d and %d", MinQuantity, MaxQuantity),
		})
	}

	return errs
}

// ValidateLineItems validates a whole cart. An empty cart is an error.
func ValidateLineItems(items []LineItem) []FieldError {
	if len(items) == 0 {
		return []FieldError{{Field: "lineItems", Message: "at least one item is required"}}
	}

	var errs []FieldError
	for i, item := range items {
		errs = append(errs, item.Validate(i)...)
	}
	return errs
}

// TotalQuantity sums the quantities of all items
func TotalQuantity(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
