package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/shopspring/decimal"
)

var ErrCarrier = errors.New("carrier request failed")

// error bodies are truncated to this many bytes in error messages
const maxErrorBody = 512

// ChitChatsConfig holds the carrier account settings
type ChitChatsConfig struct {
	BaseURL     string
	ClientID    string
	AccessToken string
	PostageType string
}

// ChitChatsClient quotes parcels by creating a shipment with the ChitChats
// API and reading back its postage cost
type ChitChatsClient struct {
	cfg        ChitChatsConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewChitChatsClient creates a client. httpClient carries the request
// timeout.
func NewChitChatsClient(cfg ChitChatsConfig, httpClient *http.Client, logger *slog.Logger) *ChitChatsClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ChitChatsClient{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

type shipmentRequest struct {
	Name          string      `json:"name"`
	Address1      string      `json:"address_1"`
	City          string      `json:"city"`
	ProvinceCode  string      `json:"province_code,omitempty"`
	PostalCode    string      `json:"postal_code,omitempty"`
	CountryCode   string      `json:"country_code"`
	Description   string      `json:"description"`
	Value         json.Number `json:"value"`
	ValueCurrency string      `json:"value_currency"`
	PackageType   string      `json:"package_type"`
	WeightUnit    string      `json:"weight_unit"`
	Weight        string      `json:"weight"`
	SizeUnit      string      `json:"size_unit"`
	SizeX         json.Number `json:"size_x"`
	SizeY         json.Number `json:"size_y"`
	SizeZ         json.Number `json:"size_z"`
	PostageType   string      `json:"postage_type"`
	ShipDate      string      `json:"ship_date"`
}

type shipmentResponse struct {
	ID                 string           `json:"id"`
	PostageCost        *decimal.Decimal `json:"postage_cost"`
	PostageDescription string           `json:"postage_description"`
}

// Quote implements Quoter
func (c *ChitChatsClient) Quote(ctx context.Context, recipient string, to models.Address, pkg models.PackageDescriptor) (models.ShippingQuote, error) {
	body, err := json.Marshal(shipmentRequest{
		Name:          recipient,
		Address1:      to.Street,
		City:          to.City,
		ProvinceCode:  to.Region,
		PostalCode:    to.PostalCode,
		CountryCode:   to.Country,
		Description:   fmt.Sprintf("Bike wheel covers x%d", pkg.Covers),
		Value:         json.Number(pkg.DeclaredValue.String()),
		ValueCurrency: strings.ToLower(pkg.Currency),
		PackageType:   pkg.PackageType,
		WeightUnit:    "g",
		Weight:        strconv.Itoa(pkg.WeightGrams),
		SizeUnit:      "cm",
		SizeX:         json.Number(pkg.LengthCm.String()),
		SizeY:         json.Number(pkg.WidthCm.String()),
		SizeZ:         json.Number(pkg.HeightCm.String()),
		PostageType:   c.cfg.PostageType,
		ShipDate:      "today",
	})
	if err != nil {
		return models.ShippingQuote{}, fmt.Errorf("encoding shipment: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/clients/%s/shipments", c.cfg.BaseURL, c.cfg.ClientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.ShippingQuote{}, fmt.Errorf("building shipment request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ShippingQuote{}, fmt.Errorf("%w: %w", ErrCarrier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("chitchats rejected shipment",
			"status", resp.StatusCode,
			"country", to.Country,
		)
		return models.ShippingQuote{}, fmt.Errorf("%w: status %d: %s", ErrCarrier, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var shipment shipmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return models.ShippingQuote{}, fmt.Errorf("%w: decoding response: %w", ErrCarrier, err)
	}
	if shipment.PostageCost == nil {
		return models.ShippingQuote{}, fmt.Errorf("%w: response has no postage cost", ErrCarrier)
	}
	if shipment.PostageCost.IsNegative() {
		return models.ShippingQuote{}, fmt.Errorf("%w: negative postage cost %s", ErrCarrier, shipment.PostageCost)
	}

	c.logger.Debug("chitchats quote",
		"shipment_id", shipment.ID,
		"postage_cost", shipment.PostageCost.String(),
		"service", shipment.PostageDescription,
	)

	return models.ShippingQuote{
		Fee:              *shipment.PostageCost,
		CarrierReference: shipment.ID,
	}, nil
}
