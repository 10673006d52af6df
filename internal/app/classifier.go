/**
 * @description
 * This file classifies verified Stripe events into the closed set of actions
 * the billing-service performs. The payload is decoded exactly once here;
 * downstream code switches on the resulting Action instead of probing the raw
 * JSON for optional fields.
 *
 * Classification rules:
 * - Events without a customer field are ignored.
 * - payment_intent.succeeded is deliberately ignored: one-time payments are
 *   acted on only via the checkout.session.completed event that follows it.
 * - checkout.session.completed discriminates on mode before payment_status:
 *   subscription mode always syncs, payment mode records an order only when
 *   the session is paid.
 * - Subscription lifecycle events (customer.subscription.*, invoice payment
 *   outcomes) trigger a sync.
 * - Unknown or malformed events are ignored rather than failed, so the
 *   endpoint stays forward-compatible with provider schema additions.
 */
package app

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/stripe/stripe-go/v82"

	"github.com/transfa/billing-service/internal/domain"
)

// ActionKind enumerates the outcomes of classifying an event.
type ActionKind int

const (
	// ActionIgnore acknowledges the event without touching storage.
	ActionIgnore ActionKind = iota
	// ActionSyncSubscription re-fetches and upserts the customer's snapshot.
	ActionSyncSubscription
	// ActionRecordOrder inserts an immutable one-time payment order.
	ActionRecordOrder
)

// Action is the classified outcome for a verified event. CustomerID is set
// for sync and record actions; Order is set only for record actions.
type Action struct {
	Kind       ActionKind
	CustomerID string
	Order      *domain.OrderRecord
}

// eventPayload captures the fields of event.data.object this service reads.
// Customer and PaymentIntent stay raw because Stripe sends them as opaque ID
// strings unless expanded.
type eventPayload struct {
	ID             string          `json:"id"`
	Customer       json.RawMessage `json:"customer"`
	Mode           string          `json:"mode"`
	PaymentStatus  string          `json:"payment_status"`
	PaymentIntent  json.RawMessage `json:"payment_intent"`
	AmountSubtotal int64           `json:"amount_subtotal"`
	AmountTotal    int64           `json:"amount_total"`
	Currency       string          `json:"currency"`
}

// Classify inspects a verified event and determines what to do with it.
// It never fails: anything it cannot act on maps to ActionIgnore.
func Classify(event stripe.Event) Action {
	ignore := Action{Kind: ActionIgnore}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return ignore
	}

	var payload eventPayload
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		log.Printf("event %s (%s) has undecodable payload, ignoring: %v", event.ID, event.Type, err)
		return ignore
	}

	if len(payload.Customer) == 0 {
		return ignore
	}

	// One-time payments are handled via checkout.session.completed; the raw
	// payment intent success that precedes it carries no session context.
	if event.Type == "payment_intent.succeeded" {
		return ignore
	}

	customerID := opaqueID(payload.Customer)
	if customerID == "" {
		log.Printf("no usable customer ID on event %s (%s), ignoring", event.ID, event.Type)
		return ignore
	}

	if event.Type == "checkout.session.completed" {
		// Mode is the discriminant, checked before payment_status: a
		// subscription-mode session always syncs, never records an order.
		if payload.Mode == "subscription" {
			return Action{Kind: ActionSyncSubscription, CustomerID: customerID}
		}
		if payload.Mode == "payment" && payload.PaymentStatus == "paid" {
			return Action{
				Kind:       ActionRecordOrder,
				CustomerID: customerID,
				Order: &domain.OrderRecord{
					CheckoutSessionID: payload.ID,
					PaymentIntentID:   opaqueID(payload.PaymentIntent),
					CustomerID:        customerID,
					AmountSubtotal:    payload.AmountSubtotal,
					AmountTotal:       payload.AmountTotal,
					Currency:          payload.Currency,
					PaymentStatus:     payload.PaymentStatus,
					Status:            domain.OrderStatusCompleted,
				},
			}
		}
		return ignore
	}

	if isSubscriptionLifecycle(string(event.Type)) {
		return Action{Kind: ActionSyncSubscription, CustomerID: customerID}
	}

	return ignore
}

// isSubscriptionLifecycle reports whether the event type signals a change to
// a customer's subscription state (create, update, delete, payment outcome).
func isSubscriptionLifecycle(eventType string) bool {
	if strings.HasPrefix(eventType, "customer.subscription.") {
		return true
	}
	switch eventType {
	case "invoice.paid", "invoice.payment_succeeded", "invoice.payment_failed":
		return true
	}
	return false
}

// opaqueID decodes a field that Stripe sends as a bare ID string. Expanded
// objects and nulls yield "", which callers treat as absent.
func opaqueID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	return id
}
