package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/transfa/billing-service/pkg/stripeclient"
)

const testSecret = "whsec_test_secret"

// signPayload produces a Stripe-Signature header for the given body, in the
// same "t=<unix>,v1=<hex hmac-sha256>" scheme Stripe uses on the wire.
func signPayload(secret string, body []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// fakeProcessor captures the events the handler forwards for processing.
type fakeProcessor struct {
	events []stripe.Event
	err    error
}

func (f *fakeProcessor) HandleEvent(ctx context.Context, event stripe.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func newTestHandler(processor *fakeProcessor) *WebhookHandler {
	return NewWebhookHandler(stripeclient.NewVerifier(testSecret), processor)
}

func eventBody(eventType string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"%s","data":{"object":{"id":"sub_1","customer":"cus_1"}}}`,
		eventType))
}

func TestWebhookRejectsNonPost(t *testing.T) {
	handler := newTestHandler(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Method Not Allowed") {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestWebhookAnswersPreflightWithNoContent(t *testing.T) {
	processor := &fakeProcessor{}
	handler := newTestHandler(processor)

	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
	if len(processor.events) != 0 {
		t.Fatal("preflight must not be processed")
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	handler := newTestHandler(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(eventBody("customer.subscription.updated")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No signature found") {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	processor := &fakeProcessor{}
	handler := newTestHandler(processor)

	body := eventBody("customer.subscription.updated")
	signature := signPayload(testSecret, body)

	// A single flipped byte must invalidate a previously valid signature.
	tampered := bytes.Clone(body)
	tampered[len(tampered)/2] ^= 0x01

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(tampered))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Webhook Error") {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
	if len(processor.events) != 0 {
		t.Fatal("tampered payload must never reach the processor")
	}
}

func TestWebhookRejectsSignatureFromWrongSecret(t *testing.T) {
	processor := &fakeProcessor{}
	handler := newTestHandler(processor)

	body := eventBody("customer.subscription.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signPayload("whsec_other_secret", body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(processor.events) != 0 {
		t.Fatal("payload signed with the wrong secret must never reach the processor")
	}
}

func TestWebhookAcknowledgesVerifiedEvent(t *testing.T) {
	processor := &fakeProcessor{}
	handler := newTestHandler(processor)

	body := eventBody("customer.subscription.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signPayload(testSecret, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	var ack struct {
		Received bool `json:"received"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil || !ack.Received {
		t.Fatalf("unexpected ack body: %q", rec.Body.String())
	}
	if len(processor.events) != 1 {
		t.Fatalf("expected one processed event, got %d", len(processor.events))
	}
	if processor.events[0].Type != "customer.subscription.updated" {
		t.Fatalf("event type lost in transit: %q", processor.events[0].Type)
	}
}

func TestWebhookRedeliveryIsAcknowledgedAgain(t *testing.T) {
	processor := &fakeProcessor{}
	handler := newTestHandler(processor)

	body := eventBody("customer.subscription.updated")
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
		req.Header.Set("Stripe-Signature", signPayload(testSecret, body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if len(processor.events) != 2 {
		t.Fatalf("expected both deliveries processed, got %d", len(processor.events))
	}
}

func TestWebhookProcessingFailureReturnsServerError(t *testing.T) {
	processor := &fakeProcessor{err: errors.New("payment provider unavailable")}
	handler := newTestHandler(processor)

	body := eventBody("customer.subscription.updated")
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signPayload(testSecret, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("expected JSON error body, got %q", rec.Body.String())
	}
	if !strings.Contains(errBody.Error, "unavailable") {
		t.Fatalf("unexpected error message: %q", errBody.Error)
	}
}
