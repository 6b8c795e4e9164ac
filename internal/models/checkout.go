package models

import (
	"time"
)

type CheckoutStatus string

const (
	CheckoutPending       CheckoutStatus = "pending"
	CheckoutCollecting    CheckoutStatus = "collecting"
	CheckoutCharging      CheckoutStatus = "charging"
	CheckoutCompleted     CheckoutStatus = "completed"
	CheckoutChargedNoPost CheckoutStatus = "charged_pending_ledger"
	CheckoutExpired       CheckoutStatus = "expired"
)

// CheckoutSession tracks an external payment attempt. The transition into
// charging is a single conditional UPDATE keyed on id + state token, so only
// one of two racing callbacks can proceed; the loser sees zero rows affected
// and must not retry the charge. A charge that succeeds but whose ledger
// write fails parks the session in charged_pending_ledger with the charge id
// recorded, and the same reference id settles it later.
type CheckoutSession struct {
	ID             string         `json:"id" db:"id"`
	LedgerID       string         `json:"ledger_id" db:"ledger_id"`
	ReferenceID    string         `json:"reference_id" db:"reference_id"`
	CounterpartyID string         `json:"counterparty_id" db:"counterparty_id"`
	ProductID      string         `json:"product_id,omitempty" db:"product_id"`
	Amount         int64          `json:"amount" db:"amount"`
	Currency       string         `json:"currency" db:"currency"`
	Status         CheckoutStatus `json:"status" db:"status"`
	StateToken     string         `json:"state_token" db:"state_token"`
	ChargeID       string         `json:"charge_id,omitempty" db:"charge_id"`
	FailureReason  string         `json:"failure_reason,omitempty" db:"failure_reason"`
	ExpiresAt      time.Time      `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}
