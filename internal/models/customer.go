package models

import (
	"net/mail"
	"strings"
)

// Address is a structured shipping address
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Customer identifies who placed an order and where it ships
type Customer struct {
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	ShippingAddress Address `json:"shippingAddress"`
}

// Normalize trims whitespace and upper-cases the country and region codes
func (a *Address) Normalize() {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.Region = strings.ToUpper(strings.TrimSpace(a.Region))
	a.PostalCode = strings.ToUpper(strings.TrimSpace(a.PostalCode))
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
}

// Validate checks the address fields, prefixing field names with prefix
func (a Address) Validate(prefix string) []FieldError {
	var errs []FieldError
	required := []struct {
		field string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"postalCode", a.PostalCode},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, FieldError{Field: prefix + "." + r.field, Message: "is required"})
		}
	}

	if !isCountryCode(a.Country) {
		errs = append(errs, FieldError{Field: prefix + ".country", Message: "must be a 2-letter country code"})
	}

	// Carriers reject North American addresses without a province or state.
	if (a.Country == "CA" || a.Country == "US") && a.Region == "" {
		errs = append(errs, FieldError{Field: prefix + ".region", Message: "is required for CA and US addresses"})
	}

	return errs
}

// Normalize trims the customer's fields and normalizes the address
func (c *Customer) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.ShippingAddress.Normalize()
}

// Validate checks name, email and shipping address
func (c Customer) Validate() []FieldError {
	var errs []FieldError

	if c.Name == "" {
		errs = append(errs, FieldError{Field: "customer.name", Message: "is required"})
	}
	if c.Email == "" {
		errs = append(errs, FieldError{Field: "customer.email", Message: "is required"})
	} else if !isEmail(c.Email) {
		errs = append(errs, FieldError{Field: "customer.email", Message: "must be a valid email address"})
	}

	return append(errs, c.ShippingAddress.Validate("customer.shippingAddress")...)
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// reject display-name forms like "Jane <jane@example.com>"
	return addr.Address == s && strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".")
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
