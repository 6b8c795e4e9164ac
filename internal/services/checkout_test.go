package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newTestCheckoutService(t *testing.T) (*CheckoutService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	posting := NewPostingService(db, NewAuditLogger(nil), NewWebhookQueue(nil))
	service := NewCheckoutService(db, posting, NewAuditLogger(nil), NewWebhookQueue(nil))
	return service, mock, func() { db.Close() }
}

func sessionRow(id, ledgerID, referenceID, counterpartyID, status, stateToken, chargeID string, amount int64, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ledger_id", "reference_id", "counterparty_id", "product_id", "amount", "currency",
		"status", "state_token", "charge_id", "failure_reason", "expires_at", "created_at", "updated_at",
	}).AddRow(id, ledgerID, referenceID, counterpartyID, nil, amount, "USD",
		status, stateToken, chargeID, "", expiresAt, time.Now(), time.Now())
}

func TestCheckoutService_ClaimSession(t *testing.T) {
	const (
		ledgerID  = "11111111-1111-1111-1111-111111111111"
		sessionID = "33333333-3333-3333-3333-333333333333"
	)

	t.Run("winner takes the claim", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		mock.ExpectExec("UPDATE checkout_sessions").
			WithArgs("charging", sqlmock.AnyArg(), sessionID, ledgerID, "pending", "collecting", "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(sessionRow(sessionID, ledgerID, "order_1", "cp-1", "charging", "tok-1", "", 2999, time.Now().Add(time.Hour)))

		session, err := service.ClaimSession(ledgerID, sessionID, "tok-1")

		assert.NoError(t, err)
		assert.Equal(t, "charging", string(session.Status))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loser sees claim lost, not an error to retry", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		// Zero rows affected: another callback already moved the session.
		mock.ExpectExec("UPDATE checkout_sessions").
			WithArgs("charging", sqlmock.AnyArg(), sessionID, ledgerID, "pending", "collecting", "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(sessionRow(sessionID, ledgerID, "order_1", "cp-1", "charging", "tok-1", "", 2999, time.Now().Add(time.Hour)))

		_, err := service.ClaimSession(ledgerID, sessionID, "tok-1")

		assert.True(t, errors.Is(err, ErrClaimLost))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown session reports not found", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		mock.ExpectExec("UPDATE checkout_sessions").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnError(sql.ErrNoRows)

		_, err := service.ClaimSession(ledgerID, sessionID, "tok-1")

		assert.True(t, errors.Is(err, ErrSessionNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckoutService_CompleteSession(t *testing.T) {
	const (
		ledgerID       = "11111111-1111-1111-1111-111111111111"
		sessionID      = "33333333-3333-3333-3333-333333333333"
		counterpartyID = "22222222-2222-2222-2222-222222222222"
	)

	t.Run("ledger failure parks the session instead of losing the charge", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(sessionRow(sessionID, ledgerID, "order_1", counterpartyID, "charging", "tok-1", "", 2999, time.Now().Add(time.Hour)))

		// The sale posting dies on Begin: money moved, books did not.
		mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

		mock.ExpectExec("UPDATE checkout_sessions").
			WithArgs("charged_pending_ledger", "ch_1", sqlmock.AnyArg(), sqlmock.AnyArg(), sessionID, ledgerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		result, err := service.CompleteSession(context.Background(), ledgerID, sessionID, "ch_1")

		assert.NoError(t, err)
		assert.True(t, result.Pending)
		assert.Equal(t, "charged_pending_ledger", string(result.Session.Status))
		assert.Equal(t, "ch_1", result.Session.ChargeID)
		assert.Nil(t, result.Posting)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects sessions not awaiting settlement", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(sessionRow(sessionID, ledgerID, "order_1", counterpartyID, "pending", "tok-1", "", 2999, time.Now().Add(time.Hour)))

		_, err := service.CompleteSession(context.Background(), ledgerID, sessionID, "ch_1")

		assert.True(t, errors.Is(err, ErrClaimLost))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckoutService_RetrySettlement(t *testing.T) {
	const (
		ledgerID  = "11111111-1111-1111-1111-111111111111"
		sessionID = "33333333-3333-3333-3333-333333333333"
	)

	t.Run("only parked sessions can be retried", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(sessionRow(sessionID, ledgerID, "order_1", "cp-1", "completed", "tok-1", "ch_1", 2999, time.Now().Add(time.Hour)))

		_, err := service.RetrySettlement(context.Background(), ledgerID, sessionID)

		assert.True(t, errors.Is(err, ErrClaimLost))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retry finishes a parked session once the posting exists", func(t *testing.T) {
		service, mock, closeDB := newTestCheckoutService(t)
		defer closeDB()

		parked := func() *sqlmock.Rows {
			return sessionRow(sessionID, ledgerID, "session_ref_1", "cp-1",
				"charged_pending_ledger", "tok-1", "ch_1", 2999, time.Now().Add(time.Hour))
		}

		// Retry loads the parked session, then completion loads it again.
		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(parked())
		mock.ExpectQuery("SELECT id, ledger_id, reference_id, counterparty_id, product_id, amount, currency,").
			WithArgs(ledgerID, sessionID).
			WillReturnRows(parked())

		// The earlier attempt committed the sale before the session update
		// failed: re-posting the same reference reports a duplicate, which
		// the retry treats as success.
		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		mock.ExpectQuery("SELECT id, type, status, amount FROM transactions").
			WithArgs(ledgerID, "session_ref_1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "status", "amount"}).
				AddRow("tx-settled", "sale", "completed", int64(2999)))
		mock.ExpectRollback()

		mock.ExpectExec("UPDATE checkout_sessions").
			WithArgs("completed", "ch_1", sqlmock.AnyArg(), sessionID, ledgerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		result, err := service.RetrySettlement(context.Background(), ledgerID, sessionID)

		assert.NoError(t, err)
		assert.False(t, result.Pending)
		assert.Equal(t, "completed", string(result.Session.Status))
		assert.Equal(t, "ch_1", result.Session.ChargeID)
		assert.True(t, result.Posting.Duplicate)
		assert.Equal(t, "tx-settled", result.Posting.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckoutService_ExpireStale(t *testing.T) {
	const ledgerID = "11111111-1111-1111-1111-111111111111"

	service, mock, closeDB := newTestCheckoutService(t)
	defer closeDB()

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs("expired", sqlmock.AnyArg(), ledgerID, "pending", "collecting").
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := service.ExpireStale(ledgerID)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), expired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStateToken(t *testing.T) {
	a := newStateToken()
	b := newStateToken()

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
