/**
 * @description
 * This package provides the billing-service's interface to Stripe. It wraps
 * the official stripe-go SDK behind two small types:
 *
 * - Verifier validates inbound webhook payloads against the signing secret.
 * - Client performs the read-only subscription lookup used by the sync path.
 *
 * The service never mutates provider-side state; listing subscriptions is the
 * only outbound call it makes.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v82: The official Stripe Go SDK.
 */
package stripeclient

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Verifier validates the authenticity of raw webhook payloads.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier bound to the webhook signing secret
// (whsec_...).
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the Stripe-Signature header against the HMAC-SHA256 signature
// computed over the exact raw body, within the SDK's default timestamp
// tolerance. The payload must be the unparsed bytes received on the wire;
// any re-serialization would change the signed bytes. On success it returns
// the decoded event, so no further trust decisions are needed downstream.
//
// Events arrive at the API version pinned on the Stripe account, which need
// not match the SDK's pinned version; the fields this service reads are
// stable across versions, so the mismatch is tolerated rather than rejected.
func (v *Verifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// Client is a client for the Stripe API.
type Client struct {
	api *client.API
}

// NewClient creates a new Stripe API client authenticated with the secret key
// (sk_...).
func NewClient(apiKey string) *Client {
	return &Client{api: client.New(apiKey, nil)}
}

// LatestSubscription fetches the customer's most recent subscription across
// all statuses, with the default payment method expanded so card display
// fields are available. Returns nil when the customer has no subscriptions.
// A customer is assumed to hold at most one subscription, matching how
// checkout sessions are created upstream.
func (c *Client) LatestSubscription(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.AddExpand("data.default_payment_method")

	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		return iter.Subscription(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing subscriptions for customer %s: %w", customerID, err)
	}
	return nil, nil
}
