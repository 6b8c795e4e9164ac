package models

import (
	"time"
)

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
	InvoiceVoid    InvoiceStatus = "void"
)

// Invoice is a billable document. A draft has no ledger impact; sending posts
// an AR transaction, each payment posts a cash/AR transaction, and voiding a
// sent invoice reverses whatever AR impact remains outstanding.
type Invoice struct {
	ID                string        `json:"id" db:"id"`
	LedgerID          string        `json:"ledger_id" db:"ledger_id"`
	Number            string        `json:"number" db:"number"`
	CustomerName      string        `json:"customer_name" db:"customer_name"`
	CustomerEmail     string        `json:"customer_email" db:"customer_email"`
	Status            InvoiceStatus `json:"status" db:"status"`
	Subtotal          int64         `json:"subtotal" db:"subtotal"`
	Total             int64         `json:"total" db:"total"`
	AmountPaid        int64         `json:"amount_paid" db:"amount_paid"`
	AmountDue         int64         `json:"amount_due" db:"amount_due"`
	IssueDate         string        `json:"issue_date" db:"issue_date"`
	DueDate           string        `json:"due_date" db:"due_date"`
	SentTransactionID string        `json:"sent_transaction_id,omitempty" db:"sent_transaction_id"`
	LineItems         []LineItem    `json:"line_items,omitempty"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

type LineItem struct {
	ID          int64  `json:"id" db:"id"`
	InvoiceID   string `json:"invoice_id" db:"invoice_id"`
	Description string `json:"description" db:"description"`
	Quantity    int64  `json:"quantity" db:"quantity"`
	UnitAmount  int64  `json:"unit_amount" db:"unit_amount"`
	Amount      int64  `json:"amount" db:"amount"`
}
