package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// PostingService owns the atomic posting procedures. Every procedure runs as
// one all-or-nothing database transaction: idempotency check, account
// resolution, entry construction, balance update, commit. External side
// effects (the charge itself) happen before the transaction and arrive as
// already-known facts; nothing inside the transaction boundary touches the
// network.
type PostingService struct {
	db       *sql.DB
	accounts *AccountStore
	audit    *AuditLogger
	webhooks *WebhookQueue
}

func NewPostingService(db *sql.DB, audit *AuditLogger, webhooks *WebhookQueue) *PostingService {
	return &PostingService{
		db:       db,
		accounts: NewAccountStore(db),
		audit:    audit,
		webhooks: webhooks,
	}
}

// PostingResult is the structured outcome of a posting procedure.
type PostingResult struct {
	TransactionID string           `json:"transaction_id"`
	Type          string           `json:"type"`
	Amount        int64            `json:"amount"`
	Status        string           `json:"status"`
	Breakdown     *SplitBreakdown  `json:"breakdown,omitempty"`
	Balances      map[string]int64 `json:"balances,omitempty"`
	Duplicate     bool             `json:"duplicate,omitempty"`
}

// entrySpec is one leg of a posting before it is written.
type entrySpec struct {
	account *models.Account
	side    models.EntrySide
	amount  int64
}

type SaleRequest struct {
	ReferenceID    string          `json:"reference_id" validate:"required,max=255"`
	CounterpartyID string          `json:"counterparty_id" validate:"required,uuid"`
	ProductID      string          `json:"product_id" validate:"omitempty,uuid"`
	Amount         int64           `json:"amount" validate:"required,gt=0"`
	SplitBps       *int            `json:"split_bps" validate:"omitempty,min=0,max=10000"`
	Description    string          `json:"description" validate:"max=255"`
	Metadata       models.Metadata `json:"metadata"`
}

// RecordSale posts one sale: debit cash for the gross amount, credit platform
// revenue and the counterparty's balance per the resolved split. The
// counterparty's lifetime earnings move in the same transaction, so tier
// promotion takes effect on the next sale.
func (s *PostingService) RecordSale(ctx context.Context, ledgerID string, req SaleRequest) (*PostingResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if req.SplitBps != nil {
		if err := ValidateSplitBps(*req.SplitBps); err != nil {
			return nil, err
		}
	}
	if err := validateMetadata(req.Metadata); err != nil {
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

	if result, dup := s.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	splitBps, err := resolveSplitBps(tx, ledgerID, req.SplitBps, req.CounterpartyID, req.ProductID, ledger.DefaultSplitBps)
	if err != nil {
		return nil, err
	}
	breakdown := computeSplit(req.Amount, splitBps)

	cash, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCash, "")
	if err != nil {
		return nil, err
	}
	revenue, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeRevenue, "")
	if err != nil {
		return nil, err
	}
	creator, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCreatorBalance, req.CounterpartyID)
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:             uuid.NewString(),
		LedgerID:       ledgerID,
		Type:           models.TransactionSale,
		ReferenceID:    referenceID,
		Amount:         req.Amount,
		Currency:       ledger.Currency,
		Status:         models.StatusCompleted,
		Description:    req.Description,
		CounterpartyID: req.CounterpartyID,
		Metadata:       req.Metadata,
	}
	if err := s.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.duplicateAfterConflict(ledgerID, referenceID, err)
	}

	specs := []entrySpec{
		{cash, models.EntryDebit, breakdown.Gross},
		{revenue, models.EntryCredit, breakdown.PlatformAmount},
		{creator, models.EntryCredit, breakdown.CounterpartyAmount},
	}
	if err := s.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	earnings, err := tx.Exec(`
		UPDATE counterparties
		SET lifetime_earnings = lifetime_earnings + $1, updated_at = $2
		WHERE id = $3 AND ledger_id = $4`,
		breakdown.CounterpartyAmount, time.Now(), req.CounterpartyID, ledgerID)
	if err != nil {
		return nil, err
	}
	// Zero rows means the counterparty id points at nothing in this ledger.
	// Posting anyway would mint a balance for a phantom entity and drop the
	// earnings from tier tracking.
	if rows, err := earnings.RowsAffected(); err != nil {
		return nil, err
	} else if rows == 0 {
		return nil, fmt.Errorf("counterparty %s: %w", req.CounterpartyID, ErrCounterpartyMissing)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        header.Amount,
		Status:        string(header.Status),
		Breakdown:     &breakdown,
		Balances: map[string]int64{
			string(models.AccountTypeCash):           cash.Balance,
			string(models.AccountTypeCreatorBalance): creator.Balance,
		},
	}
	s.finish(ctx, ledgerID, "sale.recorded", header, result)
	return result, nil
}

type RefundRequest struct {
	ReferenceID     string          `json:"reference_id" validate:"required,max=255"`
	SaleReferenceID string          `json:"sale_reference_id" validate:"required,max=255"`
	Amount          int64           `json:"amount" validate:"omitempty,gt=0"`
	Description     string          `json:"description" validate:"max=255"`
	Metadata        models.Metadata `json:"metadata"`
}

// RecordRefund posts a partial or full refund of a prior sale. Refund entries
// are the proportional debit/credit mirror of the original sale's entries;
// the original is never mutated except that a fully refunded sale's status
// becomes reversed.
func (s *PostingService) RecordRefund(ctx context.Context, ledgerID string, req RefundRequest) (*PostingResult, error) {
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if req.Amount != 0 {
		if err := ValidateAmount(req.Amount); err != nil {
			return nil, err
		}
	}
	if err := validateMetadata(req.Metadata); err != nil {
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

	if result, dup := s.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	original, err := s.lockTransactionByReferenceTx(tx, ledgerID, req.SaleReferenceID)
	if err != nil {
		return nil, err
	}
	if original.Type != models.TransactionSale {
		return nil, fmt.Errorf("reference %s is a %s, not a sale: %w", req.SaleReferenceID, original.Type, ErrNotReversible)
	}
	if original.Status == models.StatusReversed {
		return nil, ErrAlreadyReversed
	}
	if original.Status != models.StatusCompleted {
		return nil, ErrNotReversible
	}

	var refunded int64
	err = tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE reversal_of = $1 AND status = $2`,
		original.ID, models.StatusCompleted).Scan(&refunded)
	if err != nil {
		return nil, err
	}
	remaining := original.Amount - refunded

	amount := req.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount > remaining {
		return nil, fmt.Errorf("refund %d exceeds remaining %d: %w", amount, remaining, ErrRefundExceedsSale)
	}

	specs, err := s.mirrorEntriesTx(tx, original.ID, amount, original.Amount)
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:             uuid.NewString(),
		LedgerID:       ledgerID,
		Type:           models.TransactionRefund,
		ReferenceID:    referenceID,
		Amount:         amount,
		Currency:       ledger.Currency,
		Status:         models.StatusCompleted,
		Description:    req.Description,
		CounterpartyID: original.CounterpartyID,
		ReversalOf:     original.ID,
		Metadata:       req.Metadata,
	}
	if err := s.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.duplicateAfterConflict(ledgerID, referenceID, err)
	}
	if err := s.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	if amount == remaining {
		if _, err := tx.Exec(`
			UPDATE transactions SET status = $1 WHERE id = $2`,
			models.StatusReversed, original.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit refund %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.finish(ctx, ledgerID, "refund.recorded", header, result)
	return result, nil
}

type BillRequest struct {
	ReferenceID string          `json:"reference_id" validate:"required,max=255"`
	VendorID    string          `json:"vendor_id" validate:"required,max=255"`
	Amount      int64           `json:"amount" validate:"required,gt=0"`
	Category    string          `json:"category" validate:"omitempty,max=255"`
	Paid        bool            `json:"paid"`
	Description string          `json:"description" validate:"max=255"`
	Metadata    models.Metadata `json:"metadata"`
}

// RecordBill posts a vendor bill. Unpaid bills accrue to accounts payable;
// bills marked paid hit cash directly.
func (s *PostingService) RecordBill(ctx context.Context, ledgerID string, req BillRequest) (*PostingResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}
	vendorID, err := NormalizeString("vendor_id", req.VendorID)
	if err != nil {
		return nil, err
	}
	if err := validateMetadata(req.Metadata); err != nil {
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
	if result, dup := s.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	expense, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeExpense, req.Category)
	if err != nil {
		return nil, err
	}

	var creditSpec entrySpec
	if req.Paid {
		cash, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCash, "")
		if err != nil {
			return nil, err
		}
		creditSpec = entrySpec{cash, models.EntryCredit, req.Amount}
	} else {
		payable, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeAccountsPayable, vendorID)
		if err != nil {
			return nil, err
		}
		creditSpec = entrySpec{payable, models.EntryCredit, req.Amount}
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}
	metadata["vendor_id"] = vendorID
	if req.Paid {
		metadata["paid_on_record"] = "true"
	}

	header := &models.Transaction{
		ID:          uuid.NewString(),
		LedgerID:    ledgerID,
		Type:        models.TransactionBill,
		ReferenceID: referenceID,
		Amount:      req.Amount,
		Currency:    ledger.Currency,
		Status:      models.StatusCompleted,
		Description: req.Description,
		Metadata:    metadata,
	}
	if err := s.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.duplicateAfterConflict(ledgerID, referenceID, err)
	}

	specs := []entrySpec{{expense, models.EntryDebit, req.Amount}, creditSpec}
	if err := s.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bill %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        req.Amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.finish(ctx, ledgerID, "bill.recorded", header, result)
	return result, nil
}

type BillPaymentRequest struct {
	ReferenceID     string          `json:"reference_id" validate:"required,max=255"`
	BillReferenceID string          `json:"bill_reference_id" validate:"required,max=255"`
	Amount          int64           `json:"amount" validate:"omitempty,gt=0"`
	Description     string          `json:"description" validate:"max=255"`
	Metadata        models.Metadata `json:"metadata"`
}

// RecordBillPayment settles part or all of a previously recorded unpaid bill:
// debit accounts payable, credit cash.
func (s *PostingService) RecordBillPayment(ctx context.Context, ledgerID string, req BillPaymentRequest) (*PostingResult, error) {
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if req.Amount != 0 {
		if err := ValidateAmount(req.Amount); err != nil {
			return nil, err
		}
	}
	if err := validateMetadata(req.Metadata); err != nil {
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
	if result, dup := s.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	bill, err := s.lockTransactionByReferenceTx(tx, ledgerID, req.BillReferenceID)
	if err != nil {
		return nil, err
	}
	if bill.Type != models.TransactionBill {
		return nil, fmt.Errorf("reference %s is a %s, not a bill: %w", req.BillReferenceID, bill.Type, ErrTransactionNotFound)
	}
	// A bill settled at record time never credited accounts payable, so
	// there is nothing to pay down.
	if bill.Metadata["paid_on_record"] == "true" {
		return nil, fmt.Errorf("bill %s was paid when recorded: %w", req.BillReferenceID, ErrBillAlreadyPaid)
	}
	vendorID := bill.Metadata["vendor_id"]

	var paid int64
	err = tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE ledger_id = $1 AND type = $2 AND status = $3 AND metadata->>'bill_reference' = $4`,
		ledgerID, models.TransactionBillPayment, models.StatusCompleted, req.BillReferenceID).Scan(&paid)
	if err != nil {
		return nil, err
	}
	remaining := bill.Amount - paid
	if remaining == 0 {
		return nil, fmt.Errorf("bill %s is fully paid: %w", req.BillReferenceID, ErrBillAlreadyPaid)
	}

	amount := req.Amount
	if amount == 0 {
		amount = remaining
	}
	if amount > remaining {
		return nil, fmt.Errorf("payment %d exceeds bill remainder %d: %w", amount, remaining, ErrRefundExceedsSale)
	}

	payable, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeAccountsPayable, vendorID)
	if err != nil {
		return nil, err
	}
	cash, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCash, "")
	if err != nil {
		return nil, err
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = models.Metadata{}
	}
	metadata["bill_reference"] = req.BillReferenceID

	header := &models.Transaction{
		ID:          uuid.NewString(),
		LedgerID:    ledgerID,
		Type:        models.TransactionBillPayment,
		ReferenceID: referenceID,
		Amount:      amount,
		Currency:    ledger.Currency,
		Status:      models.StatusCompleted,
		Description: req.Description,
		Metadata:    metadata,
	}
	if err := s.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.duplicateAfterConflict(ledgerID, referenceID, err)
	}

	specs := []entrySpec{
		{payable, models.EntryDebit, amount},
		{cash, models.EntryCredit, amount},
	}
	if err := s.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bill payment %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.finish(ctx, ledgerID, "bill_payment.recorded", header, result)
	return result, nil
}

type PayoutRequest struct {
	ReferenceID    string          `json:"reference_id" validate:"required,max=255"`
	CounterpartyID string          `json:"counterparty_id" validate:"required,uuid"`
	Amount         int64           `json:"amount" validate:"required,gt=0"`
	Description    string          `json:"description" validate:"max=255"`
	Metadata       models.Metadata `json:"metadata"`
}

// RecordPayout pays a counterparty out of their accrued balance. Held funds
// are not withdrawable: the payout must fit within balance minus held.
func (s *PostingService) RecordPayout(ctx context.Context, ledgerID string, req PayoutRequest) (*PostingResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}
	if err := validateMetadata(req.Metadata); err != nil {
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
	if result, dup := s.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	creator, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCreatorBalance, req.CounterpartyID)
	if err != nil {
		return nil, err
	}
	if creator.Available() < req.Amount {
		return nil, fmt.Errorf("payout %d exceeds available %d: %w", req.Amount, creator.Available(), ErrInsufficientBalance)
	}
	cash, err := s.accounts.FetchOrCreateTx(tx, ledgerID, models.AccountTypeCash, "")
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:             uuid.NewString(),
		LedgerID:       ledgerID,
		Type:           models.TransactionPayout,
		ReferenceID:    referenceID,
		Amount:         req.Amount,
		Currency:       ledger.Currency,
		Status:         models.StatusCompleted,
		Description:    req.Description,
		CounterpartyID: req.CounterpartyID,
		Metadata:       req.Metadata,
	}
	if err := s.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.duplicateAfterConflict(ledgerID, referenceID, err)
	}

	specs := []entrySpec{
		{creator, models.EntryDebit, req.Amount},
		{cash, models.EntryCredit, req.Amount},
	}
	if err := s.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payout %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        req.Amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.finish(ctx, ledgerID, "payout.recorded", header, result)
	return result, nil
}

type AdjustmentRequest struct {
	ReferenceID  string          `json:"reference_id" validate:"required,max=255"`
	Amount       int64           `json:"amount" validate:"required,gt=0"`
	DebitType    string          `json:"debit_type" validate:"required"`
	DebitEntity  string          `json:"debit_entity" validate:"omitempty,max=255"`
	CreditType   string          `json:"credit_type" validate:"required"`
	CreditEntity string          `json:"credit_entity" validate:"omitempty,max=255"`
	Description  string          `json:"description" validate:"max=255"`
	Metadata     models.Metadata `json:"metadata"`
}

// RecordAdjustment posts a manual correcting entry between two caller-chosen
// accounts. It is the escape hatch for events the typed procedures do not
// model; the double-entry invariant still holds.
func (s *PostingService) RecordAdjustment(ctx context.Context, ledgerID string, req AdjustmentRequest) (*PostingResult, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	referenceID, err := NormalizeString("reference_id", req.ReferenceID)
	if err != nil {
		return nil, err
	}
	debitType := models.AccountType(req.DebitType)
	creditType := models.AccountType(req.CreditType)
	if !debitType.Valid() {
		return nil, &ValidationError{Field: "debit_type", Reason: "unknown account type"}
	}
	if !creditType.Valid() {
		return nil, &ValidationError{Field: "credit_type", Reason: "unknown account type"}
	}
	if err := validateMetadata(req.Metadata); err != nil {
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
	if result, dup := s.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	debitAccount, err := s.accounts.FetchOrCreateTx(tx, ledgerID, debitType, req.DebitEntity)
	if err != nil {
		return nil, err
	}
	creditAccount, err := s.accounts.FetchOrCreateTx(tx, ledgerID, creditType, req.CreditEntity)
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:          uuid.NewString(),
		LedgerID:    ledgerID,
		Type:        models.TransactionAdjustment,
		ReferenceID: referenceID,
		Amount:      req.Amount,
		Currency:    ledger.Currency,
		Status:      models.StatusCompleted,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if err := s.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.duplicateAfterConflict(ledgerID, referenceID, err)
	}

	specs := []entrySpec{
		{debitAccount, models.EntryDebit, req.Amount},
		{creditAccount, models.EntryCredit, req.Amount},
	}
	if err := s.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit adjustment %s: %w", referenceID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        req.Amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.finish(ctx, ledgerID, "adjustment.recorded", header, result)
	return result, nil
}

// GetTransaction fetches one transaction header with its entries.
func (s *PostingService) GetTransaction(ledgerID, transactionID string) (*models.Transaction, []models.Entry, error) {
	header, err := s.fetchTransaction(ledgerID, transactionID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, transaction_id, account_id, entry_type, amount, created_at
		FROM entries WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.Side, &e.Amount, &e.CreatedAt); err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
	}
	return header, entries, rows.Err()
}

// ListTransactions returns recent transaction headers, optionally filtered by
// type and status.
func (s *PostingService) ListTransactions(ledgerID, txType, status string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
		SELECT id, ledger_id, type, reference_id, amount, currency, status, description,
		       COALESCE(counterparty_id::text, ''), COALESCE(reversal_of::text, ''), metadata, created_at
		FROM transactions WHERE ledger_id = $1`
	args := []any{ledgerID}
	if txType != "" {
		args = append(args, txType)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var metadata []byte
		if err := rows.Scan(&t.ID, &t.LedgerID, &t.Type, &t.ReferenceID, &t.Amount, &t.Currency,
			&t.Status, &t.Description, &t.CounterpartyID, &t.ReversalOf, &metadata, &t.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			json.Unmarshal(metadata, &t.Metadata)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// Shared posting plumbing.

// lookupExistingTx is the idempotency pre-check, run first inside every
// posting transaction. A hit returns the existing transaction as a
// distinguishable duplicate outcome, never as a fresh success.
func (s *PostingService) lookupExistingTx(tx *sql.Tx, ledgerID, referenceID string) (*PostingResult, error) {
	var id string
	var txType, status string
	var amount int64
	err := tx.QueryRow(`
		SELECT id, type, status, amount FROM transactions
		WHERE ledger_id = $1 AND reference_id = $2`,
		ledgerID, referenceID).Scan(&id, &txType, &status, &amount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[POSTING] Duplicate reference detected: ledger=%s reference=%s transaction=%s", ledgerID, referenceID, id)
	return &PostingResult{
		TransactionID: id,
		Type:          txType,
		Amount:        amount,
		Status:        status,
		Duplicate:     true,
	}, &DuplicateError{TransactionID: id, Status: status}
}

// duplicateAfterConflict handles the race the pre-check cannot: two inserts
// with the same reference id hitting the unique constraint together. The
// loser re-fetches outside the aborted transaction and reports a duplicate.
func (s *PostingService) duplicateAfterConflict(ledgerID, referenceID string, insertErr error) (*PostingResult, error) {
	if !isUniqueViolation(insertErr) {
		return nil, insertErr
	}

	var id, txType, status string
	var amount int64
	err := s.db.QueryRow(`
		SELECT id, type, status, amount FROM transactions
		WHERE ledger_id = $1 AND reference_id = $2`,
		ledgerID, referenceID).Scan(&id, &txType, &status, &amount)
	if err != nil {
		return nil, insertErr
	}

	log.Printf("[POSTING] Concurrent duplicate posted first: ledger=%s reference=%s transaction=%s", ledgerID, referenceID, id)
	return &PostingResult{
		TransactionID: id,
		Type:          txType,
		Amount:        amount,
		Status:        status,
		Duplicate:     true,
	}, &DuplicateError{TransactionID: id, Status: status}
}

func (s *PostingService) insertTransactionTx(tx *sql.Tx, t *models.Transaction) error {
	var metadata []byte
	if len(t.Metadata) > 0 {
		metadata, _ = json.Marshal(t.Metadata)
	}
	var counterpartyID, reversalOf any
	if t.CounterpartyID != "" {
		counterpartyID = t.CounterpartyID
	}
	if t.ReversalOf != "" {
		reversalOf = t.ReversalOf
	}

	_, err := tx.Exec(`
		INSERT INTO transactions (id, ledger_id, type, reference_id, amount, currency, status, description, counterparty_id, reversal_of, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.LedgerID, t.Type, t.ReferenceID, t.Amount, t.Currency,
		t.Status, t.Description, counterpartyID, reversalOf, metadata)
	return err
}

// postEntriesTx writes the entry legs and applies each one to its account's
// running balance, all inside the caller's transaction. The balanced-entry
// invariant is checked before anything is written.
func (s *PostingService) postEntriesTx(tx *sql.Tx, transactionID string, specs []entrySpec) error {
	if err := checkBalanced(specs); err != nil {
		return err
	}

	for _, spec := range specs {
		_, err := tx.Exec(`
			INSERT INTO entries (transaction_id, account_id, entry_type, amount)
			VALUES ($1, $2, $3, $4)`,
			transactionID, spec.account.ID, spec.side, spec.amount)
		if err != nil {
			return err
		}
		if err := s.accounts.ApplyEntryTx(tx, spec.account, spec.side, spec.amount); err != nil {
			return err
		}
	}
	return nil
}

// checkBalanced enforces the double-entry invariant on an entry set before it
// is persisted: at least two legs, no negative legs, debits equal credits.
func checkBalanced(specs []entrySpec) error {
	if len(specs) < 2 {
		return fmt.Errorf("posting requires at least two entries, got %d", len(specs))
	}
	var debits, credits int64
	for _, spec := range specs {
		if spec.amount < 0 {
			return fmt.Errorf("entry amount must not be negative: %d", spec.amount)
		}
		if spec.side == models.EntryDebit {
			debits += spec.amount
		} else {
			credits += spec.amount
		}
	}
	if debits != credits {
		return fmt.Errorf("unbalanced posting: debits %d != credits %d", debits, credits)
	}
	return nil
}

// mirrorEntriesTx loads the original transaction's entries and builds the
// flipped entry set scaled to amount/originalAmount. Rounding remainders are
// folded into each side's largest leg so both sides sum exactly to amount.
func (s *PostingService) mirrorEntriesTx(tx *sql.Tx, originalID string, amount, originalAmount int64) ([]entrySpec, error) {
	rows, err := tx.Query(`
		SELECT account_id, entry_type, amount FROM entries
		WHERE transaction_id = $1 ORDER BY id`, originalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type leg struct {
		accountID string
		side      models.EntrySide
		amount    int64
	}
	var legs []leg
	for rows.Next() {
		var l leg
		if err := rows.Scan(&l.accountID, &l.side, &l.amount); err != nil {
			return nil, err
		}
		legs = append(legs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(legs) < 2 {
		return nil, fmt.Errorf("transaction %s has no entries to mirror: %w", originalID, ErrNotReversible)
	}

	// Scale each side separately so the flipped sides both total amount.
	var specs []entrySpec
	sideTotals := map[models.EntrySide]int64{}
	sideLargest := map[models.EntrySide]int{}
	for _, l := range legs {
		scaled := scaleProportional(l.amount, amount, originalAmount)
		flipped := l.side.Opposite()

		account, err := s.lockAccountByIDTx(tx, l.accountID)
		if err != nil {
			return nil, err
		}
		specs = append(specs, entrySpec{account, flipped, scaled})

		idx := len(specs) - 1
		if largest, ok := sideLargest[flipped]; !ok || specs[largest].amount < scaled {
			sideLargest[flipped] = idx
		}
		sideTotals[flipped] += scaled
	}
	for side, total := range sideTotals {
		if remainder := amount - total; remainder != 0 {
			specs[sideLargest[side]].amount += remainder
		}
	}
	return specs, nil
}

// scaleProportional computes value * numerator / denominator. Each operand
// fits in int64 but the intermediate product does not once amounts approach
// the ceiling, so the multiply runs at arbitrary precision.
func scaleProportional(value, numerator, denominator int64) int64 {
	product := new(big.Int).Mul(big.NewInt(value), big.NewInt(numerator))
	return product.Quo(product, big.NewInt(denominator)).Int64()
}

func (s *PostingService) lockAccountByIDTx(tx *sql.Tx, accountID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT id, ledger_id, account_type, entity_id, name, balance, held, active
		FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(
		&account.ID, &account.LedgerID, &account.Type, &account.EntityID,
		&account.Name, &account.Balance, &account.Held, &account.Active)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// lockTransactionByReferenceTx loads a prior transaction by its reference id,
// locking the header so concurrent reversals serialize against it.
func (s *PostingService) lockTransactionByReferenceTx(tx *sql.Tx, ledgerID, referenceID string) (*models.Transaction, error) {
	var t models.Transaction
	var metadata []byte
	err := tx.QueryRow(`
		SELECT id, ledger_id, type, reference_id, amount, currency, status, description,
		       COALESCE(counterparty_id::text, ''), COALESCE(reversal_of::text, ''), metadata, created_at
		FROM transactions
		WHERE ledger_id = $1 AND reference_id = $2
		FOR UPDATE`, ledgerID, referenceID).Scan(
		&t.ID, &t.LedgerID, &t.Type, &t.ReferenceID, &t.Amount, &t.Currency,
		&t.Status, &t.Description, &t.CounterpartyID, &t.ReversalOf, &metadata, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		json.Unmarshal(metadata, &t.Metadata)
	}
	return &t, nil
}

func (s *PostingService) fetchTransaction(ledgerID, transactionID string) (*models.Transaction, error) {
	var t models.Transaction
	var metadata []byte
	err := s.db.QueryRow(`
		SELECT id, ledger_id, type, reference_id, amount, currency, status, description,
		       COALESCE(counterparty_id::text, ''), COALESCE(reversal_of::text, ''), metadata, created_at
		FROM transactions WHERE ledger_id = $1 AND id = $2`,
		ledgerID, transactionID).Scan(
		&t.ID, &t.LedgerID, &t.Type, &t.ReferenceID, &t.Amount, &t.Currency,
		&t.Status, &t.Description, &t.CounterpartyID, &t.ReversalOf, &metadata, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		json.Unmarshal(metadata, &t.Metadata)
	}
	return &t, nil
}

// finish runs the post-commit side channel: the audit record and the webhook
// event. Neither can fail the already-committed posting.
func (s *PostingService) finish(ctx context.Context, ledgerID, action string, header *models.Transaction, result *PostingResult) {
	s.audit.Record(ledgerID, action, "transaction", header.ID, "", header.ReferenceID, 201)
	s.webhooks.Enqueue(ctx, ledgerID, action, result)
}

func validateMetadata(metadata models.Metadata) error {
	if len(metadata) > models.MaxMetadataEntries {
		return &ValidationError{
			Field:  "metadata",
			Reason: fmt.Sprintf("exceeds %d entries", models.MaxMetadataEntries),
		}
	}
	for key, value := range metadata {
		if len(key) > MaxStringLength || len(value) > MaxStringLength {
			return &ValidationError{Field: "metadata", Reason: "key or value too long"}
		}
	}
	return nil
}

func balancesFromSpecs(specs []entrySpec) map[string]int64 {
	balances := make(map[string]int64, len(specs))
	for _, spec := range specs {
		key := string(spec.account.Type)
		if spec.account.EntityID != "" {
			key += ":" + spec.account.EntityID
		}
		balances[key] = spec.account.Balance
	}
	return balances
}
