/**
 * @description
 * This file contains the HTTP handler for the Stripe webhook endpoint, the
 * only untrusted network input this service accepts.
 *
 * Key features:
 * - Security: the raw request body is read unparsed and validated against the
 *   Stripe-Signature header before anything else looks at it.
 * - Gating: only POST is processed; OPTIONS preflights get an empty 204 and
 *   every other method a 405.
 * - Acknowledgment: any successfully classified outcome, including "ignore",
 *   is answered 200 so the provider stops redelivering; failures are answered
 *   non-2xx so the provider's redelivery with backoff becomes the retry
 *   strategy. The handler itself never retries.
 */
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v82"
)

// signatureVerifier validates a raw payload against its signature header and
// returns the decoded event.
type signatureVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

// eventProcessor applies the billing-state transition for a verified event.
type eventProcessor interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// WebhookHandler processes incoming webhooks from Stripe.
type WebhookHandler struct {
	verifier signatureVerifier
	service  eventProcessor
}

// NewWebhookHandler creates a new handler for the webhook endpoint.
func NewWebhookHandler(verifier signatureVerifier, service eventProcessor) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, service: service}
}

// ServeHTTP implements the http.Handler interface.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		http.Error(w, "No signature found", http.StatusBadRequest)
		return
	}

	// The exact wire bytes are what the signature was computed over, so the
	// body must be buffered before any parsing happens.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("error reading webhook body: %v", err)
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.Verify(body, signature)
	if err != nil {
		// The verifier's error names the failure (bad signature, stale
		// timestamp) without exposing the secret itself.
		log.Printf("webhook signature verification failed: %v", err)
		http.Error(w, fmt.Sprintf("Webhook Error: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		log.Printf("error processing event %s (%s): %v", event.ID, event.Type, err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
