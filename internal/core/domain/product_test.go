package domain

import "testing"

func TestGetProductNormalizesID(t *testing.T) {
	product, err := GetProduct("  Premium ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if product.ID != "premium" || product.PriceCents != 2999 {
		t.Fatalf("unexpected product: %+v", product)
	}

	if _, err := GetProduct("mystery"); err == nil {
		t.Fatal("unknown product did not error")
	}
}

func TestValidateStripePriceExactMatchOnly(t *testing.T) {
	cases := []struct {
		name      string
		productID string
		amount    int64
		currency  string
		want      bool
	}{
		{"exact", "basic", 1499, "usd", true},
		{"uppercase currency", "basic", 1499, "USD", true},
		{"one cent low", "basic", 1498, "usd", false},
		{"one cent high", "basic", 1500, "usd", false},
		{"wrong currency", "basic", 1499, "eur", false},
		{"unknown product", "mystery", 1499, "usd", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateStripePrice(tc.productID, tc.amount, tc.currency); got != tc.want {
				t.Fatalf("ValidateStripePrice(%q, %d, %q) = %v, want %v", tc.productID, tc.amount, tc.currency, got, tc.want)
			}
		})
	}
}

func TestValidatePayPalPriceExactMatchOnly(t *testing.T) {
	cases := []struct {
		name      string
		productID string
		value     string
		currency  string
		want      bool
	}{
		{"exact", "premium", "29.99", "USD", true},
		{"trailing zeros", "premium", "29.990", "USD", true},
		{"lowercase currency", "premium", "29.99", "usd", false},
		{"tampered", "premium", "0.99", "USD", false},
		{"garbage amount", "premium", "free", "USD", false},
		{"unknown product", "mystery", "29.99", "USD", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidatePayPalPrice(tc.productID, tc.value, tc.currency); got != tc.want {
				t.Fatalf("ValidatePayPalPrice(%q, %q, %q) = %v, want %v", tc.productID, tc.value, tc.currency, got, tc.want)
			}
		})
	}
}

func TestPayPalPriceFormatting(t *testing.T) {
	product, err := GetProduct("basic")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	value, currency := product.PayPalPrice()
	if value != "14.99" || currency != "USD" {
		t.Fatalf("PayPalPrice = %q %q", value, currency)
	}
}

func TestProductsSortedByPrice(t *testing.T) {
	products := Products()
	if len(products) != 3 {
		t.Fatalf("catalog size = %d", len(products))
	}
	for i := 1; i < len(products); i++ {
		if products[i-1].PriceCents > products[i].PriceCents {
			t.Fatalf("catalog not sorted by price: %v", products)
		}
	}
}
