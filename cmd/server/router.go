package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/WheelyWonka/toaste/internal/config"
	"github.com/WheelyWonka/toaste/internal/handlers"
	"github.com/WheelyWonka/toaste/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type routeHandlers struct {
	health   *handlers.HealthHandler
	product  *handlers.ProductHandler
	shipping *handlers.ShippingHandler
	order    *handlers.OrderHandler
}

func newRouter(cfg *config.Config, h routeHandlers, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Register health check endpoint
	r.Get("/health", h.health.ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/product", h.product.GetProduct)
		r.Post("/product/price", h.product.PreviewPrice)

		r.Post("/shipping/quote", h.shipping.Quote)

		r.Post("/orders", h.order.CreateOrder)
		r.Get("/orders/{orderCode}", h.order.GetOrder)

		if cfg.Auth.AdminJWTSecret != "" {
			r.With(middleware.AdminAuth(cfg.Auth)).Put("/orders/{orderCode}/status", h.order.UpdateStatus)
		}
	})

	return r
}
