package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func newTestInvoiceService(t *testing.T) (*InvoiceService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	posting := NewPostingService(db, NewAuditLogger(nil), NewWebhookQueue(nil))
	service := NewInvoiceService(db, posting, NewAuditLogger(nil), NewWebhookQueue(nil))
	return service, mock, func() { db.Close() }
}

func invoiceLockRow(id, ledgerID, number, status, sentTransactionID string, total, paid, due int64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "ledger_id", "number", "customer_name", "customer_email", "status", "subtotal", "total",
		"amount_paid", "amount_due", "sent_transaction_id",
	})
	var sentTx any
	if sentTransactionID != "" {
		sentTx = sentTransactionID
	}
	rows.AddRow(id, ledgerID, number, "Acme Corp", "billing@acme.example", status, total, total, paid, due, sentTx)
	return rows
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	const ledgerID = "11111111-1111-1111-1111-111111111111"

	t.Run("computes totals from line items", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		mock.ExpectExec("INSERT INTO invoices").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO invoice_line_items").
			WithArgs(sqlmock.AnyArg(), "Design work", int64(10), int64(5000), int64(50_000)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectQuery("INSERT INTO invoice_line_items").
			WithArgs(sqlmock.AnyArg(), "Hosting", int64(1), int64(2500), int64(2500)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
		mock.ExpectCommit()

		invoice, err := service.CreateInvoice(ledgerID, CreateInvoiceRequest{
			CustomerName: "Acme Corp",
			IssueDate:    "2026-03-01",
			DueDate:      "2026-03-31",
			LineItems: []LineItemRequest{
				{Description: "Design work", Quantity: 10, UnitAmount: 5000},
				{Description: "Hosting", Quantity: 1, UnitAmount: 2500},
			},
		})

		assert.NoError(t, err)
		assert.Equal(t, "draft", string(invoice.Status))
		assert.Equal(t, int64(52_500), invoice.Subtotal)
		assert.Equal(t, int64(52_500), invoice.Total)
		assert.Equal(t, int64(52_500), invoice.AmountDue)
		assert.Empty(t, invoice.Number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects malformed dates without touching the database", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		_, err := service.CreateInvoice(ledgerID, CreateInvoiceRequest{
			CustomerName: "Acme Corp",
			IssueDate:    "03/01/2026",
			DueDate:      "2026-03-31",
			LineItems:    []LineItemRequest{{Description: "Design work", Quantity: 1, UnitAmount: 100}},
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	const (
		ledgerID  = "11111111-1111-1111-1111-111111111111"
		invoiceID = "55555555-5555-5555-5555-555555555555"
		sentTxID  = "66666666-6666-6666-6666-666666666666"
	)

	t.Run("partial payment leaves the invoice partial", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		expectNoExistingReference(mock, ledgerID, "pay_1")

		mock.ExpectQuery("SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,").
			WithArgs(ledgerID, invoiceID).
			WillReturnRows(invoiceLockRow(invoiceID, ledgerID, "INV-0007", "sent", sentTxID, 52_500, 0, 52_500))

		mock.ExpectQuery("SELECT id, ledger_id, account_type, entity_id, name, balance, held, active").
			WithArgs(ledgerID, "cash", "").
			WillReturnRows(accountRow("acc-cash", ledgerID, "cash", "", 10_000, 0))
		mock.ExpectQuery("SELECT id, ledger_id, account_type, entity_id, name, balance, held, active").
			WithArgs(ledgerID, "accounts_receivable", "").
			WillReturnRows(accountRow("acc-ar", ledgerID, "accounts_receivable", "", 52_500, 0))

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO entries").
			WithArgs(sqlmock.AnyArg(), "acc-cash", "debit", int64(20_000)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(20_000), sqlmock.AnyArg(), "acc-cash").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO entries").
			WithArgs(sqlmock.AnyArg(), "acc-ar", "credit", int64(20_000)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(-20_000), sqlmock.AnyArg(), "acc-ar").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("UPDATE invoices").
			WithArgs(int64(20_000), int64(32_500), "partial", sqlmock.AnyArg(), invoiceID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := service.RecordPayment(context.Background(), ledgerID, invoiceID, InvoicePaymentRequest{
			ReferenceID: "pay_1",
			Amount:      20_000,
		})

		assert.NoError(t, err)
		assert.Equal(t, "invoice_payment", result.Type)
		assert.Equal(t, int64(30_000), result.Balances["cash"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment above amount due is rejected", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		expectNoExistingReference(mock, ledgerID, "pay_2")

		mock.ExpectQuery("SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,").
			WithArgs(ledgerID, invoiceID).
			WillReturnRows(invoiceLockRow(invoiceID, ledgerID, "INV-0007", "partial", sentTxID, 52_500, 50_000, 2_500))
		mock.ExpectRollback()

		_, err := service.RecordPayment(context.Background(), ledgerID, invoiceID, InvoicePaymentRequest{
			ReferenceID: "pay_2",
			Amount:      3_000,
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("draft invoices are not payable", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		expectNoExistingReference(mock, ledgerID, "pay_3")

		mock.ExpectQuery("SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,").
			WithArgs(ledgerID, invoiceID).
			WillReturnRows(invoiceLockRow(invoiceID, ledgerID, "", "draft", "", 52_500, 0, 52_500))
		mock.ExpectRollback()

		_, err := service.RecordPayment(context.Background(), ledgerID, invoiceID, InvoicePaymentRequest{
			ReferenceID: "pay_3",
			Amount:      100,
		})

		assert.True(t, errors.Is(err, ErrInvoiceNotVoidable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvoiceService_VoidInvoice(t *testing.T) {
	const (
		ledgerID  = "11111111-1111-1111-1111-111111111111"
		invoiceID = "55555555-5555-5555-5555-555555555555"
		sentTxID  = "66666666-6666-6666-6666-666666666666"
	)

	t.Run("voiding a draft posts nothing", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		mock.ExpectQuery("SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,").
			WithArgs(ledgerID, invoiceID).
			WillReturnRows(invoiceLockRow(invoiceID, ledgerID, "", "draft", "", 52_500, 0, 52_500))
		mock.ExpectExec("UPDATE invoices").
			WithArgs("void", sqlmock.AnyArg(), invoiceID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		invoice, err := service.VoidInvoice(context.Background(), ledgerID, invoiceID)

		assert.NoError(t, err)
		assert.Equal(t, "void", string(invoice.Status))
		assert.Equal(t, int64(0), invoice.AmountDue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("voiding a sent invoice reverses the outstanding receivable", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		mock.ExpectQuery("SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,").
			WithArgs(ledgerID, invoiceID).
			WillReturnRows(invoiceLockRow(invoiceID, ledgerID, "INV-0007", "sent", sentTxID, 52_500, 0, 52_500))

		mock.ExpectQuery("SELECT account_id, entry_type, amount FROM entries").
			WithArgs(sentTxID).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "entry_type", "amount"}).
				AddRow("acc-ar", "debit", int64(52_500)).
				AddRow("acc-rev", "credit", int64(52_500)))

		expectLockAccount(mock, "acc-ar", ledgerID, "accounts_receivable", "", 52_500)
		expectLockAccount(mock, "acc-rev", ledgerID, "revenue", "", 52_500)

		mock.ExpectExec("INSERT INTO transactions").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO entries").
			WithArgs(sqlmock.AnyArg(), "acc-ar", "credit", int64(52_500)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(-52_500), sqlmock.AnyArg(), "acc-ar").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("INSERT INTO entries").
			WithArgs(sqlmock.AnyArg(), "acc-rev", "debit", int64(52_500)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(-52_500), sqlmock.AnyArg(), "acc-rev").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec("UPDATE transactions SET status").
			WithArgs("voided", sentTxID, "completed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE invoices").
			WithArgs("void", sqlmock.AnyArg(), invoiceID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		invoice, err := service.VoidInvoice(context.Background(), ledgerID, invoiceID)

		assert.NoError(t, err)
		assert.Equal(t, "void", string(invoice.Status))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("paid invoices cannot be voided", func(t *testing.T) {
		service, mock, closeDB := newTestInvoiceService(t)
		defer closeDB()

		mock.ExpectBegin()
		expectActiveLedger(mock, ledgerID, 7000)
		mock.ExpectQuery("SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,").
			WithArgs(ledgerID, invoiceID).
			WillReturnRows(invoiceLockRow(invoiceID, ledgerID, "INV-0007", "paid", sentTxID, 52_500, 52_500, 0))
		mock.ExpectRollback()

		_, err := service.VoidInvoice(context.Background(), ledgerID, invoiceID)

		assert.True(t, errors.Is(err, ErrInvoiceNotVoidable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentQRCode(t *testing.T) {
	encoded, err := paymentQRCode("https://pay.soledgic.example/invoices/abc")
	assert.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	assert.NoError(t, err)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, raw[:4])
}
