package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/viper"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// InvoiceService drives the invoice lifecycle. Drafts have no ledger impact;
// sending posts accounts receivable against revenue, each payment posts cash
// against receivable, and voiding reverses whatever receivable remains
// outstanding.
type InvoiceService struct {
	db       *sql.DB
	posting  *PostingService
	accounts *AccountStore
	audit    *AuditLogger
	webhooks *WebhookQueue
}

func NewInvoiceService(db *sql.DB, posting *PostingService, audit *AuditLogger, webhooks *WebhookQueue) *InvoiceService {
	return &InvoiceService{
		db:       db,
		posting:  posting,
		accounts: NewAccountStore(db),
		audit:    audit,
		webhooks: webhooks,
	}
}

type LineItemRequest struct {
	Description string `json:"description" validate:"required,max=255"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
	UnitAmount  int64  `json:"unit_amount" validate:"required,gt=0"`
}

type CreateInvoiceRequest struct {
	CustomerName  string            `json:"customer_name" validate:"required,max=255"`
	CustomerEmail string            `json:"customer_email" validate:"omitempty,email"`
	IssueDate     string            `json:"issue_date" validate:"required"`
	DueDate       string            `json:"due_date" validate:"required"`
	LineItems     []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// CreateInvoice stores a draft with computed totals. No ledger entries yet.
func (s *InvoiceService) CreateInvoice(ledgerID string, req CreateInvoiceRequest) (*models.Invoice, error) {
	customerName, err := NormalizeString("customer_name", req.CustomerName)
	if err != nil {
		return nil, err
	}
	if req.CustomerEmail != "" {
		if err := ValidateEmail(req.CustomerEmail); err != nil {
			return nil, err
		}
	}
	if err := ValidateDate("issue_date", req.IssueDate); err != nil {
		return nil, err
	}
	if err := ValidateDate("due_date", req.DueDate); err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		ID:            uuid.NewString(),
		LedgerID:      ledgerID,
		CustomerName:  customerName,
		CustomerEmail: req.CustomerEmail,
		Status:        models.InvoiceDraft,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
	}
	for _, item := range req.LineItems {
		description, err := NormalizeString("line_items.description", item.Description)
		if err != nil {
			return nil, err
		}
		amount := item.Quantity * item.UnitAmount
		if err := ValidateAmount(amount); err != nil {
			return nil, err
		}
		invoice.LineItems = append(invoice.LineItems, models.LineItem{
			InvoiceID:   invoice.ID,
			Description: description,
			Quantity:    item.Quantity,
			UnitAmount:  item.UnitAmount,
			Amount:      amount,
		})
		invoice.Subtotal += amount
	}
	invoice.Total = invoice.Subtotal
	invoice.AmountDue = invoice.Total
	if err := ValidateAmount(invoice.Total); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := loadLedgerTx(tx, ledgerID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO invoices (id, ledger_id, customer_name, customer_email, status, subtotal, total, amount_paid, amount_due, issue_date, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)`,
		invoice.ID, ledgerID, invoice.CustomerName, invoice.CustomerEmail, invoice.Status,
		invoice.Subtotal, invoice.Total, invoice.AmountDue, invoice.IssueDate, invoice.DueDate)
	if err != nil {
		return nil, err
	}
	for i := range invoice.LineItems {
		item := &invoice.LineItems[i]
		err := tx.QueryRow(`
			INSERT INTO invoice_line_items (invoice_id, description, quantity, unit_amount, amount)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			invoice.ID, item.Description, item.Quantity, item.UnitAmount, item.Amount).Scan(&item.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.Record(ledgerID, "invoice.created", "invoice", invoice.ID, "", invoice.CustomerName, 201)
	return invoice, nil
}

// SendResult carries the sent invoice plus its payment-link QR code as a
// base64 PNG, for embedding in the outbound email.
type SendResult struct {
	Invoice       *models.Invoice `json:"invoice"`
	TransactionID string          `json:"transaction_id"`
	PaymentURL    string          `json:"payment_url"`
	PaymentQRPNG  string          `json:"payment_qr_png"`
}

// SendInvoice assigns the ledger's next invoice number and posts the
// receivable: debit accounts receivable, credit revenue, for the total.
func (s *InvoiceService) SendInvoice(ctx context.Context, ledgerID, invoiceID string) (*SendResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ledger, err := loadLedgerTx(tx, ledgerID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.lockInvoiceTx(tx, ledgerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceDraft {
		return nil, fmt.Errorf("invoice %s is %s, only drafts can be sent: %w", invoiceID, invoice.Status, ErrInvoiceNotVoidable)
	}

	var sequence int
	err = tx.QueryRow(`
		UPDATE ledgers SET next_invoice_number = next_invoice_number + 1, updated_at = $1
		WHERE id = $2
		RETURNING next_invoice_number - 1`,
		time.Now(), ledgerID).Scan(&sequence)
	if err != nil {
		return nil, err
	}
	invoice.Number = fmt.Sprintf("%s-%04d", ledger.InvoicePrefix, sequence)

	referenceID := "invoice:" + invoice.ID + ":send"
	if _, dup := s.posting.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return nil, dup
	}

	receivable, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeAccountsReceivable, "")
	if err != nil {
		return nil, err
	}
	revenue, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeRevenue, "")
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:          uuid.NewString(),
		LedgerID:    ledgerID,
		Type:        models.TransactionInvoiceSend,
		ReferenceID: referenceID,
		Amount:      invoice.Total,
		Currency:    ledger.Currency,
		Status:      models.StatusCompleted,
		Description: "Invoice " + invoice.Number + " sent to " + invoice.CustomerName,
		Metadata:    models.Metadata{"invoice_id": invoice.ID},
	}
	if err := s.posting.insertTransactionTx(tx, header); err != nil {
		return nil, err
	}
	specs := []entrySpec{
		{receivable, models.EntryDebit, invoice.Total},
		{revenue, models.EntryCredit, invoice.Total},
	}
	if err := s.posting.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE invoices SET number = $1, status = $2, amount_due = total, sent_transaction_id = $3, updated_at = $4
		WHERE id = $5`,
		invoice.Number, models.InvoiceSent, header.ID, time.Now(), invoice.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice send %s: %w", invoiceID, err)
	}

	invoice.Status = models.InvoiceSent
	invoice.AmountDue = invoice.Total
	invoice.SentTransactionID = header.ID

	paymentURL := s.paymentURL(invoice)
	qrPNG, err := paymentQRCode(paymentURL)
	if err != nil {
		// The posting committed; a QR failure degrades the response only.
		qrPNG = ""
	}

	result := &SendResult{
		Invoice:       invoice,
		TransactionID: header.ID,
		PaymentURL:    paymentURL,
		PaymentQRPNG:  qrPNG,
	}
	s.audit.Record(ledgerID, "invoice.sent", "invoice", invoice.ID, "", invoice.Number, 200)
	s.webhooks.Enqueue(ctx, ledgerID, "invoice.sent", result)
	return result, nil
}

type InvoicePaymentRequest struct {
	ReferenceID string `json:"reference_id" validate:"required,max=255"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
}

// RecordPayment applies a customer payment: debit cash, credit accounts
// receivable. Payments accumulate; the invoice goes partial, then paid when
// amount_due reaches zero.
func (s *InvoiceService) RecordPayment(ctx context.Context, ledgerID, invoiceID string, req InvoicePaymentRequest) (*PostingResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ledger, err := loadLedgerTx(tx, ledgerID)
	if err != nil {
		return nil, err
	}
	if result, dup := s.posting.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	invoice, err := s.lockInvoiceTx(tx, ledgerID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.InvoiceSent && invoice.Status != models.InvoicePartial {
		return nil, fmt.Errorf("invoice %s is %s, not payable: %w", invoiceID, invoice.Status, ErrInvoiceNotVoidable)
	}
	if req.Amount > invoice.AmountDue {
		return nil, fmt.Errorf("payment %d exceeds amount due %d: %w", req.Amount, invoice.AmountDue, ErrRefundExceedsSale)
	}

	cash, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCash, "")
	if err != nil {
		return nil, err
	}
	receivable, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeAccountsReceivable, "")
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:          uuid.NewString(),
		LedgerID:    ledgerID,
		Type:        models.TransactionInvoicePayment,
		ReferenceID: referenceID,
		Amount:      req.Amount,
		Currency:    ledger.Currency,
		Status:      models.StatusCompleted,
		Description: "Payment on invoice " + invoice.Number,
		Metadata:    models.Metadata{"invoice_id": invoice.ID},
	}
	if err := s.posting.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.posting.duplicateAfterConflict(ledgerID, referenceID, err)
	}
	specs := []entrySpec{
		{cash, models.EntryDebit, req.Amount},
		{receivable, models.EntryCredit, req.Amount},
	}
	if err := s.posting.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	amountPaid := invoice.AmountPaid + req.Amount
	amountDue := invoice.Total - amountPaid
	status := models.InvoicePartial
	if amountDue == 0 {
		status = models.InvoicePaid
	}
	_, err = tx.Exec(`
		UPDATE invoices SET amount_paid = $1, amount_due = $2, status = $3, updated_at = $4
		WHERE id = $5`,
		amountPaid, amountDue, status, time.Now(), invoice.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice payment %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        req.Amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.audit.Record(ledgerID, "invoice.payment", "invoice", invoice.ID, "", referenceID, 201)
	s.webhooks.Enqueue(ctx, ledgerID, "invoice.payment", result)
	return result, nil
}

// VoidInvoice cancels an invoice. A draft simply flips to void; a sent or
// partially paid invoice also gets a reversing transaction sized to the
// outstanding receivable (credit AR, debit revenue). Paid invoices cannot be
// voided.
func (s *InvoiceService) VoidInvoice(ctx context.Context, ledgerID, invoiceID string) (*models.Invoice, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ledger, err := loadLedgerTx(tx, ledgerID)
	if err != nil {
		return nil, err
	}

	invoice, err := s.lockInvoiceTx(tx, ledgerID, invoiceID)
	if err != nil {
		return nil, err
	}

	switch invoice.Status {
	case models.InvoiceDraft:
		// Never posted; nothing to reverse.
	case models.InvoiceSent, models.InvoicePartial:
		if invoice.AmountDue > 0 {
			specs, err := s.posting.mirrorEntriesTx(tx, invoice.SentTransactionID, invoice.AmountDue, invoice.Total)
			if err != nil {
				return nil, err
			}
			header := &models.Transaction{
				ID:          uuid.NewString(),
				LedgerID:    ledgerID,
				Type:        models.TransactionReversal,
				ReferenceID: "invoice:" + invoice.ID + ":void",
				Amount:      invoice.AmountDue,
				Currency:    ledger.Currency,
				Status:      models.StatusCompleted,
				Description: "Void of invoice " + invoice.Number,
				ReversalOf:  invoice.SentTransactionID,
				Metadata:    models.Metadata{"invoice_id": invoice.ID},
			}
			if err := s.posting.insertTransactionTx(tx, header); err != nil {
				return nil, err
			}
			if err := s.posting.postEntriesTx(tx, header.ID, specs); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Exec(`
			UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`,
			models.StatusVoided, invoice.SentTransactionID, models.StatusCompleted); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invoice %s is %s: %w", invoiceID, invoice.Status, ErrInvoiceNotVoidable)
	}

	_, err = tx.Exec(`
		UPDATE invoices SET status = $1, amount_due = 0, updated_at = $2 WHERE id = $3`,
		models.InvoiceVoid, time.Now(), invoice.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice void %s: %w", invoiceID, err)
	}

	invoice.Status = models.InvoiceVoid
	invoice.AmountDue = 0
	s.audit.Record(ledgerID, "invoice.voided", "invoice", invoice.ID, "", invoice.Number, 200)
	s.webhooks.Enqueue(ctx, ledgerID, "invoice.voided", invoice)
	return invoice, nil
}

// GetInvoice loads an invoice with its line items. Overdue is derived on
// read: an unpaid invoice past its due date reports overdue without a status
// write.
func (s *InvoiceService) GetInvoice(ledgerID, invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	var sentTx sql.NullString
	err := s.db.QueryRow(`
		SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,
		       amount_paid, amount_due, COALESCE(issue_date::text, ''), COALESCE(due_date::text, ''),
		       sent_transaction_id, created_at, updated_at
		FROM invoices WHERE ledger_id = $1 AND id = $2`,
		ledgerID, invoiceID).Scan(
		&invoice.ID, &invoice.LedgerID, &invoice.Number, &invoice.CustomerName, &invoice.CustomerEmail,
		&invoice.Status, &invoice.Subtotal, &invoice.Total, &invoice.AmountPaid, &invoice.AmountDue,
		&invoice.IssueDate, &invoice.DueDate, &sentTx, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	invoice.SentTransactionID = sentTx.String

	rows, err := s.db.Query(`
		SELECT id, invoice_id, description, quantity, unit_amount, amount
		FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitAmount, &item.Amount); err != nil {
			return nil, err
		}
		invoice.LineItems = append(invoice.LineItems, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if (invoice.Status == models.InvoiceSent || invoice.Status == models.InvoicePartial) && invoice.DueDate != "" {
		if due, err := time.Parse("2006-01-02", invoice.DueDate[:10]); err == nil && time.Now().After(due.AddDate(0, 0, 1)) {
			invoice.Status = models.InvoiceOverdue
		}
	}
	return &invoice, nil
}

func (s *InvoiceService) lockInvoiceTx(tx *sql.Tx, ledgerID, invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	var sentTx sql.NullString
	err := tx.QueryRow(`
		SELECT id, ledger_id, number, customer_name, customer_email, status, subtotal, total,
		       amount_paid, amount_due, sent_transaction_id
		FROM invoices WHERE ledger_id = $1 AND id = $2 FOR UPDATE`,
		ledgerID, invoiceID).Scan(
		&invoice.ID, &invoice.LedgerID, &invoice.Number, &invoice.CustomerName, &invoice.CustomerEmail,
		&invoice.Status, &invoice.Subtotal, &invoice.Total, &invoice.AmountPaid, &invoice.AmountDue, &sentTx)
	if err == sql.ErrNoRows {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	invoice.SentTransactionID = sentTx.String
	return &invoice, nil
}

func (s *InvoiceService) paymentURL(invoice *models.Invoice) string {
	viper.SetDefault("invoice.payment_base_url", "https://pay.soledgic.example")
	return fmt.Sprintf("%s/invoices/%s", viper.GetString("invoice.payment_base_url"), invoice.ID)
}

func paymentQRCode(url string) (string, error) {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
