package services

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrLedgerNotFound      = errors.New("ledger not found")
	ErrLedgerSuspended     = errors.New("ledger is suspended")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountInactive     = errors.New("account not active")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyReversed     = errors.New("transaction already reversed")
	ErrNotReversible       = errors.New("transaction cannot be reversed")
	ErrClaimLost           = errors.New("session already claimed")
	ErrSessionNotFound     = errors.New("checkout session not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvoiceNotVoidable  = errors.New("invoice cannot be voided in its current state")
	ErrRefundExceedsSale   = errors.New("refund exceeds unrefunded amount")
	ErrBillAlreadyPaid     = errors.New("bill already paid")
	ErrCounterpartyMissing = errors.New("counterparty not found")
)

// DuplicateError reports that a (ledger_id, reference_id) pair was already
// posted. It is a detected duplicate, not a failure: the existing transaction
// id lets the caller reconcile without re-posting.
type DuplicateError struct {
	TransactionID string
	Status        string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("reference already posted as transaction %s", e.TransactionID)
}

// ValidationError is a caller-correctable input rejection from the pure
// validation layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// HTTPStatus maps a service error to the status code the handlers return.
// Unrecognized errors are 500 and safe to retry under the same reference id.
func HTTPStatus(err error) int {
	var dup *DuplicateError
	var ve *ValidationError
	switch {
	case errors.As(err, &dup),
		errors.Is(err, ErrAlreadyReversed),
		errors.Is(err, ErrNotReversible),
		errors.Is(err, ErrClaimLost),
		errors.Is(err, ErrInvoiceNotVoidable):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrLedgerNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrInvoiceNotFound),
		errors.Is(err, ErrCounterpartyMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrRefundExceedsSale),
		errors.Is(err, ErrBillAlreadyPaid),
		errors.Is(err, ErrAccountInactive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrLedgerSuspended):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}
