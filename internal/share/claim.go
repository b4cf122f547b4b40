// Package share implements the reinsurance share calculator: the claim
// net/retention split and the underwriting offer share, retention and
// retrocession breakdown.
//
// Every function here is pure. Inputs are read, never mutated, and the same
// input always yields the same result. All arithmetic is exact decimal
// arithmetic; percentages are applied with a two-place decimal shift.
package share

import (
	"github.com/shopspring/decimal"

	"github.com/tanre/retro-engine/internal/model"
)

// pct turns a percentage into a fraction exactly.
func pct(p decimal.Decimal) decimal.Decimal {
	return p.Shift(-2)
}

// CalculateClaim splits a claim's net amount into the cedant's share, the
// retroceded amount and the retained amount.
//
// The retrocession percentage is taken from the first selected contract
// only; retro percentages on later contracts are ignored. A salvage larger
// than the reserve yields a negative net amount and is not rejected. An
// empty contract list yields an all-zero share split.
func CalculateClaim(in model.ClaimInput) model.ClaimFinancialSummary {
	net := in.CurrentReserve.Value.Sub(in.Salvage.Value)

	totalShare := decimal.Zero
	for _, c := range in.SelectedContracts {
		totalShare = totalShare.Add(c.ShareSignedPct)
	}

	retroPct := decimal.Zero
	if len(in.SelectedContracts) > 0 {
		retroPct = in.SelectedContracts[0].RetroPct
	}

	cedantShare := net.Mul(pct(totalShare))
	retroAmount := cedantShare.Mul(pct(retroPct))

	return model.ClaimFinancialSummary{
		NetAmount:           net,
		TotalShareSignedPct: totalShare,
		RetroPct:            retroPct,
		CedantShareAmount:   cedantShare,
		RetroAmount:         retroAmount,
		Retention:           cedantShare.Sub(retroAmount),
	}
}
