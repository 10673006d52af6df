/**
 * @description
 * This file contains the core business logic for the billing-service: turning
 * a verified provider event into an at-most-once billing-state transition.
 *
 * The sync path deliberately ignores the fields embedded in the triggering
 * event. Events can arrive out of order or be superseded before processing,
 * so each sync re-fetches the customer's current subscription from Stripe and
 * replaces the local snapshot wholesale. Processing the same or a stale event
 * twice therefore converges to the same final state as processing only the
 * latest one, and the provider's at-least-once redelivery is the only retry
 * mechanism this service needs.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v82"

	"github.com/transfa/billing-service/internal/domain"
)

// Sentinel errors the ingestion endpoint maps to HTTP statuses. Both signal
// transient conditions: the provider redelivers the event on a non-2xx
// response, so neither is retried locally.
var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrPersistence         = errors.New("billing storage failure")
)

// eventsExchange is the RabbitMQ topic exchange billing events are published
// to.
const eventsExchange = "billing_events"

// Repository defines the interface for database operations that the service
// needs.
type Repository interface {
	UpsertSubscription(ctx context.Context, sub *domain.SubscriptionRecord) error
	InsertOrder(ctx context.Context, order *domain.OrderRecord) (bool, error)
}

// SubscriptionFetcher retrieves the authoritative subscription state from the
// payment provider. A nil subscription means the customer has none.
type SubscriptionFetcher interface {
	LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error)
}

// EventPublisher publishes internal events after successful transitions.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Service provides the business logic for billing-state reconciliation.
type Service struct {
	repo     Repository
	provider SubscriptionFetcher
	events   EventPublisher
}

// NewService creates a new billing service. events may be nil, in which case
// internal event publishing is disabled.
func NewService(repo Repository, provider SubscriptionFetcher, events EventPublisher) Service {
	return Service{repo: repo, provider: provider, events: events}
}

// HandleEvent classifies a verified event and applies the resulting state
// transition. Ignoring an event is a valid terminal outcome, not an error.
func (s Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	action := Classify(event)

	switch action.Kind {
	case ActionSyncSubscription:
		log.Printf("event %s (%s): syncing subscription for customer %s", event.ID, event.Type, action.CustomerID)
		return s.SyncCustomer(ctx, action.CustomerID)
	case ActionRecordOrder:
		log.Printf("event %s (%s): recording order for checkout session %s", event.ID, event.Type, action.Order.CheckoutSessionID)
		return s.RecordOrder(ctx, action.Order)
	default:
		log.Printf("event %s (%s): no action taken", event.ID, event.Type)
		return nil
	}
}

// SyncCustomer replaces the local subscription snapshot for a customer with
// the provider's current truth. A customer with zero subscriptions gets a
// not_started row with all subscription fields cleared, which distinguishes
// "never subscribed" from "record absent".
func (s Service) SyncCustomer(ctx context.Context, customerID string) error {
	sub, err := s.provider.LatestSubscription(ctx, customerID)
	if err != nil {
		return fmt.Errorf("%w: fetching subscription state for customer %s: %v", ErrProviderUnavailable, customerID, err)
	}

	record := snapshotRecord(customerID, sub)

	if err := s.repo.UpsertSubscription(ctx, record); err != nil {
		return fmt.Errorf("%w: upserting subscription for customer %s: %v", ErrPersistence, customerID, err)
	}
	log.Printf("synced subscription for customer %s (status=%s)", customerID, record.Status)

	s.publish(ctx, "subscription.synced", domain.SubscriptionSyncedEvent{
		CustomerID: record.CustomerID,
		Status:     record.Status,
		PriceID:    record.PriceID,
		PlanName:   planName(record.PriceID),
	})
	return nil
}

// RecordOrder inserts an immutable order for a completed one-time payment.
// A redelivered completion event for the same checkout session is detected by
// the storage layer and acknowledged without a second row.
func (s Service) RecordOrder(ctx context.Context, order *domain.OrderRecord) error {
	inserted, err := s.repo.InsertOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("%w: inserting order for checkout session %s: %v", ErrPersistence, order.CheckoutSessionID, err)
	}
	if !inserted {
		log.Printf("order for checkout session %s already recorded, skipping", order.CheckoutSessionID)
		return nil
	}
	log.Printf("recorded one-time payment for checkout session %s", order.CheckoutSessionID)

	s.publish(ctx, "order.recorded", domain.OrderRecordedEvent{
		CustomerID:        order.CustomerID,
		CheckoutSessionID: order.CheckoutSessionID,
		AmountTotal:       order.AmountTotal,
		Currency:          order.Currency,
	})
	return nil
}

// publish sends an advisory internal event. The persisted records are the
// system of record, so a publish failure is logged but never fails the
// webhook.
func (s Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventsExchange, routingKey, body); err != nil {
		log.Printf("WARN: failed to publish %s event: %v", routingKey, err)
	}
}

// snapshotRecord maps a provider subscription (or its absence) to the full
// replacement row stored locally.
func snapshotRecord(customerID string, sub *stripe.Subscription) *domain.SubscriptionRecord {
	if sub == nil {
		return &domain.SubscriptionRecord{
			CustomerID: customerID,
			Status:     domain.SubscriptionNotStarted,
		}
	}

	record := &domain.SubscriptionRecord{
		CustomerID:        customerID,
		SubscriptionID:    &sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		record.PriceID = &sub.Items.Data[0].Price.ID
	}

	// Card display fields are taken only when the default payment method was
	// expanded into a card object, not when it is an opaque ID reference.
	if pm := sub.DefaultPaymentMethod; pm != nil && pm.Card != nil {
		brand := string(pm.Card.Brand)
		last4 := pm.Card.Last4
		record.PaymentMethodBrand = &brand
		record.PaymentMethodLast4 = &last4
	}

	return record
}

// planName resolves a price ID to the catalog plan name, when known.
func planName(priceID *string) string {
	if priceID == nil {
		return ""
	}
	if product, ok := domain.ProductByPriceID(*priceID); ok {
		return product.Name
	}
	return ""
}
