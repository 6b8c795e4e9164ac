package models

import (
	"time"
)

type TransactionType string

const (
	TransactionSale           TransactionType = "sale"
	TransactionRefund         TransactionType = "refund"
	TransactionBill           TransactionType = "bill"
	TransactionBillPayment    TransactionType = "bill_payment"
	TransactionExpense        TransactionType = "expense"
	TransactionPayout         TransactionType = "payout"
	TransactionTransfer       TransactionType = "transfer"
	TransactionAdjustment     TransactionType = "adjustment"
	TransactionInvoiceSend    TransactionType = "invoice_send"
	TransactionInvoicePayment TransactionType = "invoice_payment"
	TransactionReversal       TransactionType = "reversal"
)

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusVoided    TransactionStatus = "voided"
	StatusReversed  TransactionStatus = "reversed"
)

// MaxMetadataEntries caps the free-form metadata map so callers cannot smuggle
// unbounded payloads into the transactions table.
const MaxMetadataEntries = 20

type Metadata map[string]string

// Transaction is the immutable header for one business event. Once status is
// completed the header and its entries are never mutated; corrections are new
// transactions pointing back through ReversalOf.
type Transaction struct {
	ID             string            `json:"id" db:"id"`
	LedgerID       string            `json:"ledger_id" db:"ledger_id"`
	Type           TransactionType   `json:"type" db:"type"`
	ReferenceID    string            `json:"reference_id" db:"reference_id"`
	Amount         int64             `json:"amount" db:"amount"`
	Currency       string            `json:"currency" db:"currency"`
	Status         TransactionStatus `json:"status" db:"status"`
	Description    string            `json:"description" db:"description"`
	CounterpartyID string            `json:"counterparty_id,omitempty" db:"counterparty_id"`
	ReversalOf     string            `json:"reversal_of,omitempty" db:"reversal_of"`
	Metadata       Metadata          `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

type EntrySide string

const (
	EntryDebit  EntrySide = "debit"
	EntryCredit EntrySide = "credit"
)

// Opposite flips debit to credit and back; reversal entries are built with it.
func (s EntrySide) Opposite() EntrySide {
	if s == EntryDebit {
		return EntryCredit
	}
	return EntryDebit
}

// Entry is one leg of a transaction's double-entry posting. Amount is always
// non-negative; the side carries the direction. Every committed transaction
// has at least two entries and sum(debits) == sum(credits).
type Entry struct {
	ID            int64     `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	AccountID     string    `json:"account_id" db:"account_id"`
	Side          EntrySide `json:"entry_type" db:"entry_type"`
	Amount        int64     `json:"amount" db:"amount"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
