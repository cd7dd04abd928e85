package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/sos-checkout/internal/payment"
	"github.com/frahmantamala/sos-checkout/internal/profile"
	"github.com/frahmantamala/sos-checkout/internal/qr"
	"github.com/frahmantamala/sos-checkout/internal/transport/middleware"
	"github.com/frahmantamala/sos-checkout/internal/transport/swagger"
	"github.com/go-chi/chi"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payment.Handler, webhookHandler *payment.WebhookHandler, profileHandler *profile.Handler, qrHandler *qr.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Gateway notifications. Authenticated by signature, not session.
		if webhookHandler != nil {
			r.Post("/payments/callback", webhookHandler.HandleGatewayNotification)
		}

		if paymentHandler != nil {
			r.Route("/payments", func(pr chi.Router) {
				pr.Post("/", paymentHandler.CreatePayment)          // POST /payments
				pr.Get("/{id}", paymentHandler.GetPayment)          // GET /payments/:id
				pr.Post("/{id}/refresh", paymentHandler.RefreshPayment) // POST /payments/:id/refresh
				pr.Post("/{id}/cancel", paymentHandler.CancelPayment)   // POST /payments/:id/cancel
			})
		}

		if profileHandler != nil {
			r.Route("/profiles", func(pr chi.Router) {
				pr.Post("/", profileHandler.CreateProfile)  // POST /profiles
				pr.Get("/{id}", profileHandler.GetProfile)  // GET /profiles/:id
				pr.Patch("/{id}", profileHandler.UpdateProfile) // PATCH /profiles/:id
			})
		}

		// Public emergency view resolved from a scanned QR token
		if qrHandler != nil {
			r.Get("/emergency/{token}", qrHandler.ResolveEmergencyView)
		}
	})
}
