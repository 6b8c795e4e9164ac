package models

import (
	"time"
)

type LedgerMode string

const (
	LedgerModeStandard    LedgerMode = "standard"
	LedgerModeMarketplace LedgerMode = "marketplace"
)

type LedgerStatus string

const (
	LedgerStatusActive    LedgerStatus = "active"
	LedgerStatusSuspended LedgerStatus = "suspended"
)

// Ledger is one tenant's isolated set of books. Every other entity is scoped
// by LedgerID; nothing crosses ledgers.
type Ledger struct {
	ID                string       `json:"id" db:"id"`
	Name              string       `json:"name" db:"name"`
	Mode              LedgerMode   `json:"mode" db:"mode"`
	Status            LedgerStatus `json:"status" db:"status"`
	Currency          string       `json:"currency" db:"currency"`
	DefaultSplitBps   int          `json:"default_split_bps" db:"default_split_bps"`
	InvoicePrefix     string       `json:"invoice_prefix" db:"invoice_prefix"`
	NextInvoiceNumber int          `json:"next_invoice_number" db:"next_invoice_number"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

type AccountType string

const (
	AccountTypeCash               AccountType = "cash"
	AccountTypeAccountsReceivable AccountType = "accounts_receivable"
	AccountTypeAccountsPayable    AccountType = "accounts_payable"
	AccountTypeRevenue            AccountType = "revenue"
	AccountTypeExpense            AccountType = "expense"
	AccountTypeCreatorBalance     AccountType = "creator_balance"
)

// NormalSide reports the side on which an account type accumulates a positive
// balance. Asset and expense accounts are debit-normal; liability and revenue
// accounts are credit-normal. Balances are stored positive in the normal
// direction, so applying an entry on the opposite side subtracts.
func (t AccountType) NormalSide() EntrySide {
	switch t {
	case AccountTypeCash, AccountTypeAccountsReceivable, AccountTypeExpense:
		return EntryDebit
	default:
		return EntryCredit
	}
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeAccountsReceivable, AccountTypeAccountsPayable,
		AccountTypeRevenue, AccountTypeExpense, AccountTypeCreatorBalance:
		return true
	}
	return false
}

// Account is a named balance bucket of one accounting type within a ledger,
// optionally tied to an external entity (creator, vendor, customer).
// Balance and Held are in minor currency units. Accounts are created lazily
// and deactivated rather than deleted.
type Account struct {
	ID        string      `json:"id" db:"id"`
	LedgerID  string      `json:"ledger_id" db:"ledger_id"`
	Type      AccountType `json:"account_type" db:"account_type"`
	EntityID  string      `json:"entity_id,omitempty" db:"entity_id"`
	Name      string      `json:"name" db:"name"`
	Balance   int64       `json:"balance" db:"balance"`
	Held      int64       `json:"held" db:"held"` // reserved, not withdrawable
	Active    bool        `json:"active" db:"active"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Available is the balance a payout may draw on.
func (a *Account) Available() int64 {
	return a.Balance - a.Held
}
