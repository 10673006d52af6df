/**
 * @description
 * This file sets up the HTTP router for the billing-service using the
 * go-chi/chi router. It registers the webhook endpoint and the health check,
 * and applies middleware for request IDs, logging, panic recovery, timeouts,
 * and CORS.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the billing-service
// routes.
func NewRouter(webhook *WebhookHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	// OptionsPassthrough lets the webhook handler answer preflights itself
	// with the 204 the provider integration expects.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"https://*", "http://*"},
		AllowedMethods:     []string{"POST", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Content-Type", "Stripe-Signature"},
		MaxAge:             300,
		OptionsPassthrough: true,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})

	// The handler owns its own method gating (POST/OPTIONS/405), so it is
	// registered for all methods.
	r.HandleFunc("/webhook", webhook.ServeHTTP)

	return r
}
