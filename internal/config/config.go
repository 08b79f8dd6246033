package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/WheelyWonka/toaste/internal/pricing"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server            ServerConfig
	Auth              AuthConfig
	CORS              CORSConfig
	Pricing           pricing.Rates
	Store             StoreConfig
	Shipping          ShippingConfig
	Email             EmailConfig
	HTTPClientTimeout time.Duration
	NotifyTimeout     time.Duration
	LogLevel          string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type AuthConfig struct {
	AdminJWTSecret string // HS256 secret for admin tokens; empty disables admin routes
}

type CORSConfig struct {
	AllowedOrigins []string
}

type StoreConfig struct {
	Driver      string
	DatabaseURL string
}

type ShippingConfig struct {
	Provider  string
	FlatFee   decimal.Decimal
	ChitChats ChitChatsConfig
}

type ChitChatsConfig struct {
	BaseURL     string
	ClientID    string
	AccessToken string
	PostageType string
}

type EmailConfig struct {
	ResendAPIKey  string // empty logs emails instead of sending them
	ResendBaseURL string
	From          string
	OwnerEmail    string
	PaymentEmail  string
}

const (
	ShippingFlat      = "flat"
	ShippingChitChats = "chitchats"
)

var (
	storeDrivers      = []string{"memory", "postgres", "mysql"}
	shippingProviders = []string{ShippingFlat, ShippingChitChats}
)

var defaultOrigins = []string{
	"https://toastebikepolo.ca",
	"https://toastebikepolo.com",
	"https://preprod.toastebikepolo.ca",
	"http://localhost:8000",
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory when one exists
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	defaults := pricing.DefaultRates()

	// unparsable amounts fail Load instead of reverting to defaults
	var parseErrs []error
	decimalEnv := func(key string, defaultValue decimal.Decimal) decimal.Decimal {
		value, err := getEnvAsDecimal(key, defaultValue)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		return value
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Auth: AuthConfig{
			AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", defaultOrigins),
		},
		Pricing: pricing.Rates{
			BaseUnitPrice:    decimalEnv("BASE_UNIT_PRICE", defaults.BaseUnitPrice),
			PairDiscountRate: decimalEnv("PAIR_DISCOUNT_RATE", defaults.PairDiscountRate),
			TaxRate:          decimalEnv("TAX_RATE", defaults.TaxRate),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", "memory")),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Shipping: ShippingConfig{
			Provider: strings.ToLower(getEnv("SHIPPING_PROVIDER", ShippingFlat)),
			FlatFee:  decimalEnv("FLAT_SHIPPING_FEE", decimal.RequireFromString("12.00")),
			ChitChats: ChitChatsConfig{
				BaseURL:     getEnv("CHITCHATS_BASE_URL", "https://chitchats.com"),
				ClientID:    getEnv("CHITCHATS_CLIENT_ID", ""),
				AccessToken: getEnv("CHITCHATS_ACCESS_TOKEN", ""),
				PostageType: getEnv("CHITCHATS_POSTAGE_TYPE", "chit_chats_canada_tracked"),
			},
		},
		Email: EmailConfig{
			ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
			ResendBaseURL: getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			From:          getEnv("EMAIL_FROM", "Toasté Bike Polo <noreply@toastebikepolo.ca>"),
			OwnerEmail:    getEnv("OWNER_EMAIL", ""),
			PaymentEmail:  getEnv("PAYMENT_EMAIL", "toastebikepolo@proton.me"),
		},
		HTTPClientTimeout: getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 10*time.Second),
		NotifyTimeout:     getEnvAsDuration("NOTIFY_TIMEOUT", 30*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if err := errors.Join(parseErrs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT: %s", c.Server.Port)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if err := c.Pricing.Validate(); err != nil {
		return err
	}

	if !slices.Contains(storeDrivers, c.Store.Driver) {
		return fmt.Errorf("invalid STORE_DRIVER: %s (must be one of %s)", c.Store.Driver, strings.Join(storeDrivers, ", "))
	}
	if c.Store.Driver != "memory" && c.Store.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for store driver %s", c.Store.Driver)
	}

	if !slices.Contains(shippingProviders, c.Shipping.Provider) {
		return fmt.Errorf("invalid SHIPPING_PROVIDER: %s (must be one of %s)", c.Shipping.Provider, strings.Join(shippingProviders, ", "))
	}
	if c.Shipping.FlatFee.IsNegative() {
		return fmt.Errorf("FLAT_SHIPPING_FEE must not be negative")
	}
	if c.Shipping.Provider == ShippingChitChats {
		if c.Shipping.ChitChats.ClientID == "" || c.Shipping.ChitChats.AccessToken == "" {
			return fmt.Errorf("CHITCHATS_CLIENT_ID and CHITCHATS_ACCESS_TOKEN are required for the chitchats provider")
		}
	}

	if c.HTTPClientTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT must be positive")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a decimal number", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
