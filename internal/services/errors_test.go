package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate reference", &DuplicateError{TransactionID: "tx-1"}, http.StatusConflict},
		{"wrapped duplicate", fmt.Errorf("posting: %w", &DuplicateError{TransactionID: "tx-1"}), http.StatusConflict},
		{"already reversed", ErrAlreadyReversed, http.StatusConflict},
		{"not reversible", ErrNotReversible, http.StatusConflict},
		{"claim lost", ErrClaimLost, http.StatusConflict},
		{"invoice not voidable", ErrInvoiceNotVoidable, http.StatusConflict},
		{"validation", &ValidationError{Field: "amount", Reason: "must be positive"}, http.StatusBadRequest},
		{"ledger missing", ErrLedgerNotFound, http.StatusNotFound},
		{"account missing", ErrAccountNotFound, http.StatusNotFound},
		{"transaction missing", ErrTransactionNotFound, http.StatusNotFound},
		{"session missing", ErrSessionNotFound, http.StatusNotFound},
		{"invoice missing", ErrInvoiceNotFound, http.StatusNotFound},
		{"counterparty missing", ErrCounterpartyMissing, http.StatusNotFound},
		{"insufficient balance", ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"refund exceeds sale", ErrRefundExceedsSale, http.StatusUnprocessableEntity},
		{"bill already paid", ErrBillAlreadyPaid, http.StatusUnprocessableEntity},
		{"inactive account", ErrAccountInactive, http.StatusUnprocessableEntity},
		{"suspended ledger", ErrLedgerSuspended, http.StatusLocked},
		{"wrapped suspended ledger", fmt.Errorf("posting: %w", ErrLedgerSuspended), http.StatusLocked},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}
