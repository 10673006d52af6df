/**
 * @description
 * This file holds the static product catalog: the Stripe products and prices
 * this deployment sells. It is the billing-side mirror of the storefront's
 * catalog and is used to attach a human-readable plan name to published
 * billing events.
 */
package domain

// Product describes a purchasable Stripe product and its single price.
type Product struct {
	ID          string
	PriceID     string
	Name        string
	Description string
	Mode        string // "subscription" or "payment"
	Price       float64
	Currency    string
}

// Catalog lists the products this deployment sells. The IDs come from the
// Stripe dashboard and must match the prices used by checkout.
var Catalog = []Product{
	{
		ID:       "prod_SgmiQYMM30XECe",
		PriceID:  "price_1RlP9NRq8gaO9d2HAXe7r172",
		Name:     "sample product",
		Mode:     "subscription",
		Price:    5.00,
		Currency: "usd",
	},
}

// ProductByPriceID looks up a catalog product by its Stripe price ID.
func ProductByPriceID(priceID string) (Product, bool) {
	for _, p := range Catalog {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Product{}, false
}
