package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// ReversalService produces correcting transactions instead of mutating
// history. A reversal is a new transaction whose entries are the exact
// debit/credit mirror of the original; the original's entries stay untouched
// and only its status flips to reversed. A transaction can be reversed once.
type ReversalService struct {
	db       *sql.DB
	posting  *PostingService
	audit    *AuditLogger
	webhooks *WebhookQueue
}

func NewReversalService(db *sql.DB, posting *PostingService, audit *AuditLogger, webhooks *WebhookQueue) *ReversalService {
	return &ReversalService{
		db:       db,
		posting:  posting,
		audit:    audit,
		webhooks: webhooks,
	}
}

type ReversalRequest struct {
	ReferenceID string          `json:"reference_id" validate:"required,max=255"`
	Reason      string          `json:"reason" validate:"max=255"`
	Metadata    models.Metadata `json:"metadata"`
}

// ReverseTransaction mirrors a completed transaction in full.
func (s *ReversalService) ReverseTransaction(ctx context.Context, ledgerID, transactionID string, req ReversalRequest) (*PostingResult, error) {
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
	if result, dup := s.posting.lookupExistingTx(tx, ledgerID, referenceID); dup != nil {
		return result, dup
	}

	original, err := s.lockTransactionByIDTx(tx, ledgerID, transactionID)
	if err != nil {
		return nil, err
	}
	switch original.Status {
	case models.StatusReversed:
		return nil, ErrAlreadyReversed
	case models.StatusVoided:
		return nil, fmt.Errorf("transaction %s is voided: %w", transactionID, ErrNotReversible)
	case models.StatusCompleted:
		// reversible
	default:
		return nil, fmt.Errorf("transaction %s is %s: %w", transactionID, original.Status, ErrNotReversible)
	}

	// A 1:1 mirror is the degenerate proportional case.
	specs, err := s.posting.mirrorEntriesTx(tx, original.ID, original.Amount, original.Amount)
	if err != nil {
		return nil, err
	}

	header := &models.Transaction{
		ID:             uuid.NewString(),
		LedgerID:       ledgerID,
		Type:           models.TransactionReversal,
		ReferenceID:    referenceID,
		Amount:         original.Amount,
		Currency:       ledger.Currency,
		Status:         models.StatusCompleted,
		Description:    req.Reason,
		CounterpartyID: original.CounterpartyID,
		ReversalOf:     original.ID,
		Metadata:       req.Metadata,
	}
	if err := s.posting.insertTransactionTx(tx, header); err != nil {
		tx.Rollback()
		return s.posting.duplicateAfterConflict(ledgerID, referenceID, err)
	}
	if err := s.posting.postEntriesTx(tx, header.ID, specs); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE transactions SET status = $1 WHERE id = $2`,
		models.StatusReversed, original.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reversal of %s: %w", transactionID, err)
	}

	result := &PostingResult{
		TransactionID: header.ID,
		Type:          string(header.Type),
		Amount:        header.Amount,
		Status:        string(header.Status),
		Balances:      balancesFromSpecs(specs),
	}
	s.audit.Record(ledgerID, "transaction.reversed", "transaction", original.ID, "", referenceID, 201)
	s.webhooks.Enqueue(ctx, ledgerID, "transaction.reversed", result)
	return result, nil
}

func (s *ReversalService) lockTransactionByIDTx(tx *sql.Tx, ledgerID, transactionID string) (*models.Transaction, error) {
	var t models.Transaction
	var metadata []byte
	err := tx.QueryRow(`
		SELECT id, ledger_id, type, reference_id, amount, currency, status, description,
		       COALESCE(counterparty_id::text, ''), COALESCE(reversal_of::text, ''), metadata, created_at
		FROM transactions
		WHERE ledger_id = $1 AND id = $2
		FOR UPDATE`, ledgerID, transactionID).Scan(
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
