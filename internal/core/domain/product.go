package domain

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrProductNotFound indicates the requested product id is not in the catalog.
var ErrProductNotFound = errors.New("product not found")

// Product is a static catalog entry. PriceCents in USD is the single source
// of truth; provider representations are always derived from it.
type Product struct {
	ID         string
	Name       string
	PriceCents int64
	Features   []string
	Tagline    string
}

// StripePrice returns the amount and currency as Stripe expects them:
// integer minor units and a lowercase currency code.
func (p Product) StripePrice() (int64, string) {
	return p.PriceCents, "usd"
}

// PayPalPrice returns the amount and currency as PayPal expects them:
// a decimal string with two fraction digits and an uppercase currency code.
func (p Product) PayPalPrice() (string, string) {
	return decimal.New(p.PriceCents, -2).StringFixed(2), "USD"
}

var catalog = map[string]Product{
	"basic": {
		ID:         "basic",
		Name:       "KiwiTweaks Basic",
		PriceCents: 1499,
		Tagline:    "Essential optimizations",
		Features:   []string{"One-click tweaks", "FPS overlay", "Discord support"},
	},
	"premium": {
		ID:         "premium",
		Name:       "KiwiTweaks Premium",
		PriceCents: 2999,
		Tagline:    "Full optimization suite",
		Features:   []string{"Everything in Basic", "Latency tuning", "Custom power plans", "Priority support"},
	},
	"lifetime": {
		ID:         "lifetime",
		Name:       "KiwiTweaks Lifetime",
		PriceCents: 5999,
		Tagline:    "Premium forever",
		Features:   []string{"Everything in Premium", "Lifetime updates", "Early access builds"},
	},
}

// GetProduct looks up a catalog entry by id.
func GetProduct(id string) (Product, error) {
	product, ok := catalog[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return product, nil
}

// Products returns the full catalog for listing endpoints, cheapest first.
func Products() []Product {
	out := make([]Product, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out
}

// ValidateStripePrice reports whether a Stripe amount matches the canonical
// catalog price exactly. This is the sole defense against tampered
// client-supplied prices and must run before any webhook payment is trusted.
func ValidateStripePrice(productID string, amountCents int64, currency string) bool {
	product, err := GetProduct(productID)
	if err != nil {
		return false
	}
	wantAmount, wantCurrency := product.StripePrice()
	return amountCents == wantAmount && strings.ToLower(currency) == wantCurrency
}

// ValidatePayPalPrice reports whether a captured PayPal amount matches the
// canonical catalog price exactly.
func ValidatePayPalPrice(productID string, value string, currency string) bool {
	product, err := GetProduct(productID)
	if err != nil {
		return false
	}

	got, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return false
	}

	wantValue, wantCurrency := product.PayPalPrice()
	want, _ := decimal.NewFromString(wantValue)
	return got.Equal(want) && currency == wantCurrency
}
