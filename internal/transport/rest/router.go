package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/zennest/payment-service/internal/payment"
	"github.com/zennest/payment-service/internal/transport/middleware"
	"github.com/zennest/payment-service/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payment.Handler, webhookHandler *payment.WebhookHandler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Health check routes
	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)

	if paymentHandler != nil {
		router.Route("/payment", func(r chi.Router) {
			r.Post("/initialize", paymentHandler.InitializePayment)
			r.Get("/verify/{reference}", paymentHandler.VerifyPayment)
		})
		router.Get("/banks", paymentHandler.GetBanks)
		router.Post("/payout-profile/resolve", paymentHandler.ResolveAccount)
	}

	if webhookHandler != nil {
		router.Post("/webhook", webhookHandler.HandleGatewayWebhook)
	}
}
