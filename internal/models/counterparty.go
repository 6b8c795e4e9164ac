package models

import (
	"time"
)

// Counterparty is a creator or contractor earning a share of sales.
// SplitBps, when set (>= 0), overrides tier and ledger defaults.
// LifetimeEarnings accumulates the counterparty's share of every sale and
// drives tier promotion, re-evaluated on each sale.
type Counterparty struct {
	ID               string    `json:"id" db:"id"`
	LedgerID         string    `json:"ledger_id" db:"ledger_id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	SplitBps         *int      `json:"split_bps,omitempty" db:"split_bps"`
	LifetimeEarnings int64     `json:"lifetime_earnings" db:"lifetime_earnings"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Product optionally carries its own split override, consulted after the
// counterparty override and before tier defaults.
type Product struct {
	ID        string    `json:"id" db:"id"`
	LedgerID  string    `json:"ledger_id" db:"ledger_id"`
	Name      string    `json:"name" db:"name"`
	SplitBps  *int      `json:"split_bps,omitempty" db:"split_bps"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
