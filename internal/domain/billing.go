/**
 * @description
 * This file defines the core domain models for the billing-service.
 * It includes the two persistent record types owned by this service's write
 * path (the per-customer subscription snapshot and the append-only order
 * record) along with the internal event payloads published to RabbitMQ after
 * a successful state transition.
 */
package domain

// Subscription status values mirrored from the payment provider, plus the
// local "not_started" marker for customers that exist but never subscribed.
// The full provider vocabulary (incomplete_expired, unpaid, paused, ...) is
// stored verbatim; these constants name the values the service itself reasons
// about.
const (
	SubscriptionNotStarted = "not_started"
	SubscriptionIncomplete = "incomplete"
	SubscriptionTrialing   = "trialing"
	SubscriptionActive     = "active"
	SubscriptionPastDue    = "past_due"
	SubscriptionCanceled   = "canceled"
)

// OrderStatusCompleted is the local lifecycle tag assigned to every order at
// insert time. Orders are immutable, so this is the only value that exists.
const OrderStatusCompleted = "completed"

// SubscriptionRecord is the replacement snapshot of a customer's provider-side
// subscription state, keyed by the provider-issued customer ID. Every sync
// overwrites the full row; nullable fields are cleared when the customer has
// no subscription.
type SubscriptionRecord struct {
	CustomerID         string  `json:"customer_id"`
	SubscriptionID     *string `json:"subscription_id"`
	PriceID            *string `json:"price_id"`
	Status             string  `json:"status"`
	CancelAtPeriodEnd  bool    `json:"cancel_at_period_end"`
	PaymentMethodBrand *string `json:"payment_method_brand"`
	PaymentMethodLast4 *string `json:"payment_method_last4"`
}

// OrderRecord captures a completed one-time payment. Records are append-only:
// no update or delete path exists in this service.
type OrderRecord struct {
	CheckoutSessionID string `json:"checkout_session_id"`
	PaymentIntentID   string `json:"payment_intent_id"`
	CustomerID        string `json:"customer_id"`
	AmountSubtotal    int64  `json:"amount_subtotal"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	PaymentStatus     string `json:"payment_status"`
	Status            string `json:"status"`
}

// SubscriptionSyncedEvent is published to RabbitMQ after a subscription
// snapshot has been upserted, so downstream services (analytics,
// notifications) can react without polling the table.
type SubscriptionSyncedEvent struct {
	CustomerID string  `json:"customer_id"`
	Status     string  `json:"status"`
	PriceID    *string `json:"price_id,omitempty"`
	PlanName   string  `json:"plan_name,omitempty"`
}

// OrderRecordedEvent is published after a one-time payment order has been
// inserted.
type OrderRecordedEvent struct {
	CustomerID        string `json:"customer_id"`
	CheckoutSessionID string `json:"checkout_session_id"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
}
