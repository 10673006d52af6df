/**
 * @description
 * This file implements the data access layer for the billing-service.
 * It contains the two write operations this service owns: the per-customer
 * subscription snapshot upsert and the append-only order insert.
 */
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transfa/billing-service/internal/domain"
)

// Repository handles database operations for billing records.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// UpsertSubscription replaces the subscription snapshot for a customer.
// The unique constraint on customer_id guarantees at most one row per
// customer under concurrent deliveries without application-level locking.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *domain.SubscriptionRecord) error {
	query := `
        INSERT INTO stripe_subscriptions (
            customer_id, subscription_id, price_id, status,
            cancel_at_period_end, payment_method_brand, payment_method_last4
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (customer_id) DO UPDATE SET
            subscription_id = EXCLUDED.subscription_id,
            price_id = EXCLUDED.price_id,
            status = EXCLUDED.status,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            payment_method_brand = EXCLUDED.payment_method_brand,
            payment_method_last4 = EXCLUDED.payment_method_last4,
            updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query,
		sub.CustomerID,
		sub.SubscriptionID,
		sub.PriceID,
		sub.Status,
		sub.CancelAtPeriodEnd,
		sub.PaymentMethodBrand,
		sub.PaymentMethodLast4,
	)
	return err
}

// InsertOrder records a completed one-time payment. The checkout session ID
// is unique per provider session, so a redelivered completion event hits the
// conflict clause and is skipped. Returns false when the order already
// existed.
func (r *Repository) InsertOrder(ctx context.Context, order *domain.OrderRecord) (bool, error) {
	query := `
        INSERT INTO stripe_orders (
            checkout_session_id, payment_intent_id, customer_id,
            amount_subtotal, amount_total, currency, payment_status, status
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (checkout_session_id) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query,
		order.CheckoutSessionID,
		order.PaymentIntentID,
		order.CustomerID,
		order.AmountSubtotal,
		order.AmountTotal,
		order.Currency,
		order.PaymentStatus,
		order.Status,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
