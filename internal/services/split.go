package services

import (
	"database/sql"
)

// earningsTier maps a lifetime-earnings floor to the counterparty's share in
// basis points. Tiers are re-evaluated on every sale from earnings to date;
// there is no batch promotion job.
type earningsTier struct {
	MinLifetimeEarnings int64
	SplitBps            int
}

// defaultTiers: counterparties start at 70% and are promoted as their
// lifetime share crosses $1,000 and $10,000 (in minor units).
var defaultTiers = []earningsTier{
	{MinLifetimeEarnings: 1_000_000, SplitBps: 8000},
	{MinLifetimeEarnings: 100_000, SplitBps: 7500},
	{MinLifetimeEarnings: 0, SplitBps: 7000},
}

// tierSplitBps returns the tier share for the given lifetime earnings.
func tierSplitBps(lifetimeEarnings int64) int {
	for _, tier := range defaultTiers {
		if lifetimeEarnings >= tier.MinLifetimeEarnings {
			return tier.SplitBps
		}
	}
	return defaultTiers[len(defaultTiers)-1].SplitBps
}

// SplitBreakdown is the exact division of a sale between counterparty and
// platform. CounterpartyAmount + PlatformAmount always equals Gross.
type SplitBreakdown struct {
	Gross              int64 `json:"gross"`
	CounterpartyAmount int64 `json:"counterparty_amount"`
	PlatformAmount     int64 `json:"platform_amount"`
	SplitBps           int   `json:"split_bps"`
}

// computeSplit divides amount by a basis-points share, rounding the
// counterparty's portion half-up and assigning the remainder to the platform
// so the pair sums exactly to amount.
func computeSplit(amount int64, bps int) SplitBreakdown {
	counterparty := (amount*int64(bps) + 5000) / 10000
	return SplitBreakdown{
		Gross:              amount,
		CounterpartyAmount: counterparty,
		PlatformAmount:     amount - counterparty,
		SplitBps:           bps,
	}
}

// resolveSplitBps walks the override chain: per-request override, then the
// counterparty's configured share, then the product's, then the earnings
// tier, then the ledger default. First match wins; shares never blend.
func resolveSplitBps(tx *sql.Tx, ledgerID string, requestBps *int, counterpartyID, productID string, ledgerDefaultBps int) (int, error) {
	if requestBps != nil {
		return *requestBps, nil
	}

	var counterpartyBps sql.NullInt64
	var lifetimeEarnings int64
	hasCounterparty := false
	if counterpartyID != "" {
		err := tx.QueryRow(`
			SELECT split_bps, lifetime_earnings FROM counterparties
			WHERE id = $1 AND ledger_id = $2`,
			counterpartyID, ledgerID).Scan(&counterpartyBps, &lifetimeEarnings)
		if err != nil && err != sql.ErrNoRows {
			return 0, err
		}
		hasCounterparty = err == nil
		if counterpartyBps.Valid {
			return int(counterpartyBps.Int64), nil
		}
	}

	if productID != "" {
		var productBps sql.NullInt64
		err := tx.QueryRow(`
			SELECT split_bps FROM products
			WHERE id = $1 AND ledger_id = $2`,
			productID, ledgerID).Scan(&productBps)
		if err != nil && err != sql.ErrNoRows {
			return 0, err
		}
		if productBps.Valid {
			return int(productBps.Int64), nil
		}
	}

	if hasCounterparty {
		return tierSplitBps(lifetimeEarnings), nil
	}

	return ledgerDefaultBps, nil
}
