package ledger

import "github.com/shopspring/decimal"

// sharesFor converts a contribution into epoch shares against the user's
// private constant-product pools:
//
//	shares = amount * sharesPool / (pointsPool + amount)
//
// Marginal yield shrinks as pointsPool grows, so returns within one epoch
// are sub-linear in contributed points and a single burst cannot dominate
// the payout pool. The result never exceeds sharesPool.
func sharesFor(amount, pointsPool, sharesPool decimal.Decimal) decimal.Decimal {
	denom := pointsPool.Add(amount)
	if denom.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(sharesPool).Div(denom)
}
