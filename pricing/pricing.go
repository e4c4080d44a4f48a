// Package pricing is the single place order totals are computed.
// Checkout, the coupon preview endpoint and gateway payloads all call
// CalculateTotals with the same inputs, so every surface shows the same
// numbers.
package pricing

import (
	"math"

	"storefront-service/models"
)

// Totals is the tax and grand total derived from an order's inputs.
type Totals struct {
	Tax   float64
	Total float64
}

// Round2 rounds a monetary amount to two decimal places. Every
// intermediate result goes through this so repeated recomputation
// cannot drift.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateTotals computes tax and total for an order. Tax applies to
// the post-discount subtotal; the delivery fee is taxed by neither the
// tax nor the discount. Negative inputs are clamped to zero rather than
// producing a negative total.
func CalculateTotals(subtotal, discountAmount, deliveryFee, taxRatePercent float64) Totals {
	if subtotal < 0 {
		subtotal = 0
	}
	if discountAmount < 0 {
		discountAmount = 0
	}
	if discountAmount > subtotal {
		discountAmount = subtotal
	}
	if deliveryFee < 0 {
		deliveryFee = 0
	}
	if taxRatePercent < 0 {
		taxRatePercent = 0
	}

	taxable := Round2(subtotal - discountAmount)
	tax := Round2(taxable * taxRatePercent / 100)
	total := Round2(taxable + tax + deliveryFee)

	return Totals{Tax: tax, Total: total}
}

// ItemSubtotal sums the line totals of a snapshot item set.
func ItemSubtotal(items []models.OrderItem) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	return Round2(subtotal)
}
