package controller

import "testing"

func TestClampFill(t *testing.T) {
	cases := []struct {
		name     string
		filled   int
		quantity int
		want     int
	}{
		{name: "within quantity", filled: 3, quantity: 5, want: 3},
		{name: "exact fill", filled: 5, quantity: 5, want: 5},
		{name: "over-reported", filled: 9, quantity: 5, want: 5},
		{name: "negative fill", filled: -2, quantity: 5, want: 0},
		{name: "zero quantity with fill", filled: 3, quantity: 0, want: 0},
		{name: "negative quantity with fill", filled: 3, quantity: -1, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clampFill(tc.filled, tc.quantity); got != tc.want {
				t.Fatalf("clampFill(%d, %d) = %d, want %d", tc.filled, tc.quantity, got, tc.want)
			}
		})
	}
}

func TestNormalizeBrokerOrderStatus(t *testing.T) {
	cases := map[string]string{
		"filled":    "filled",
		"completed": "filled",
		"done":      "filled",
		"cancelled": "cancelled",
		"canceled":  "cancelled",
		"expired":   "cancelled",
		"rejected":  "cancelled",
		"working":   "pending",
		"":          "pending",
	}

	for in, want := range cases {
		if got := normalizeBrokerOrderStatus(in); got != want {
			t.Fatalf("normalizeBrokerOrderStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
