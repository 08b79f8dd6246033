package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WheelyWonka/toaste/internal/config"
	"github.com/WheelyWonka/toaste/internal/handlers"
	"github.com/WheelyWonka/toaste/internal/notification"
	"github.com/WheelyWonka/toaste/internal/ordercode"
	"github.com/WheelyWonka/toaste/internal/pricing"
	"github.com/WheelyWonka/toaste/internal/repository"
	"github.com/WheelyWonka/toaste/internal/service"
	"github.com/WheelyWonka/toaste/internal/shipping"
	"github.com/WheelyWonka/toaste/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting toaste order api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
		"store", cfg.Store.Driver,
		"shipping", cfg.Shipping.Provider,
	)

	ctx := context.Background()

	// Initialize order store
	store, closeStore, err := repository.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		log.Error("failed to open order store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("failed to close order store", "error", err)
		}
	}()

	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		log.Error("failed to create pricing engine", "error", err)
		os.Exit(1)
	}

	allocator := ordercode.NewAllocator(store, ordercode.WithLogger(log))
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	notifier, err := notification.NewNotifier(newSender(cfg, httpClient, log), notification.Config{
		From:         cfg.Email.From,
		OwnerEmail:   cfg.Email.OwnerEmail,
		PaymentEmail: cfg.Email.PaymentEmail,
	}, log)
	if err != nil {
		log.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	// Initialize services
	orderService := service.NewOrderService(store, engine, allocator, newQuoter(cfg, httpClient, log), notifier, log)
	orderService.SetNotifyTimeout(cfg.NotifyTimeout)

	// Initialize handlers
	router := newRouter(cfg, routeHandlers{
		health:   handlers.NewHealthHandler(store, log),
		product:  handlers.NewProductHandler(engine.Catalog(), orderService, log),
		shipping: handlers.NewShippingHandler(orderService, log),
		order:    handlers.NewOrderHandler(orderService, log),
	}, log)

	if cfg.Auth.AdminJWTSecret == "" {
		log.Warn("ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("server failed to start", "error", err)
		return
	}

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped gracefully")
}

func newQuoter(cfg *config.Config, httpClient *http.Client, log *slog.Logger) shipping.Quoter {
	if cfg.Shipping.Provider == config.ShippingChitChats {
		cc := cfg.Shipping.ChitChats
		return shipping.NewChitChatsClient(shipping.ChitChatsConfig{
			BaseURL:     cc.BaseURL,
			ClientID:    cc.ClientID,
			AccessToken: cc.AccessToken,
			PostageType: cc.PostageType,
		}, httpClient, log)
	}
	return shipping.FlatRate{Fee: cfg.Shipping.FlatFee}
}

func newSender(cfg *config.Config, httpClient *http.Client, log *slog.Logger) notification.Sender {
	if cfg.Email.ResendAPIKey == "" {
		log.Warn("RESEND_API_KEY not set, order emails will only be logged")
		return notification.LogSender{Logger: log}
	}
	return notification.NewResendSender(cfg.Email.ResendBaseURL, cfg.Email.ResendAPIKey, httpClient)
}
