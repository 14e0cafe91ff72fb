package services

import (
	"github.com/shopspring/decimal"
)

// ComposeOdds multiplies the given per-leg prices into combined odds.
// Composition is exact decimal arithmetic with no intermediate rounding,
// so it is deterministic and order-independent. An empty input composes
// to the identity 1; callers reject empty-leg bets before getting here.
func ComposeOdds(odds []decimal.Decimal) decimal.Decimal {
	total := decimal.NewFromInt(1)
	for _, o := range odds {
		total = total.Mul(o)
	}
	return total
}

// PotentialPayout computes stake times combined odds, exact, unrounded.
// Rounding happens only when a won payout is credited to the integer
// ledger balance.
func PotentialPayout(stake int64, totalOdds decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(stake).Mul(totalOdds)
}
