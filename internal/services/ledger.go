package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// LedgerService handles ledger provisioning and the counterparty/product
// records the split resolution chain consults.
type LedgerService struct {
	db       *sql.DB
	accounts *AccountStore
	audit    *AuditLogger
}

func NewLedgerService(db *sql.DB, audit *AuditLogger) *LedgerService {
	return &LedgerService{
		db:       db,
		accounts: NewAccountStore(db),
		audit:    audit,
	}
}

type CreateLedgerRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	Mode            string `json:"mode" validate:"omitempty,oneof=standard marketplace"`
	Currency        string `json:"currency" validate:"required,len=3"`
	DefaultSplitBps *int   `json:"default_split_bps" validate:"omitempty,min=0,max=10000"`
	InvoicePrefix   string `json:"invoice_prefix" validate:"omitempty,max=10"`
}

// CreateLedger provisions a tenant's books and bootstraps the baseline
// cash/revenue/receivable/payable accounts so the first posting never races
// on all of them at once.
func (s *LedgerService) CreateLedger(req CreateLedgerRequest) (*models.Ledger, error) {
	name, err := NormalizeString("name", req.Name)
	if err != nil {
		return nil, err
	}

	ledger := &models.Ledger{
		ID:                uuid.NewString(),
		Name:              name,
		Mode:              models.LedgerModeStandard,
		Status:            models.LedgerStatusActive,
		Currency:          req.Currency,
		DefaultSplitBps:   8000,
		InvoicePrefix:     "INV",
		NextInvoiceNumber: 1,
	}
	if req.Mode != "" {
		ledger.Mode = models.LedgerMode(req.Mode)
	}
	if req.DefaultSplitBps != nil {
		if err := ValidateSplitBps(*req.DefaultSplitBps); err != nil {
			return nil, err
		}
		ledger.DefaultSplitBps = *req.DefaultSplitBps
	}
	if req.InvoicePrefix != "" {
		ledger.InvoicePrefix = req.InvoicePrefix
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO ledgers (id, name, mode, status, currency, default_split_bps, invoice_prefix, next_invoice_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ledger.ID, ledger.Name, ledger.Mode, ledger.Status, ledger.Currency,
		ledger.DefaultSplitBps, ledger.InvoicePrefix, ledger.NextInvoiceNumber)
	if err != nil {
		return nil, err
	}

	baseline := []models.AccountType{
		models.AccountTypeCash,
		models.AccountTypeRevenue,
		models.AccountTypeAccountsReceivable,
		models.AccountTypeAccountsPayable,
	}
	for _, accountType := range baseline {
		if _, err := s.accounts.FetchOrCreateTx(tx, ledger.ID, accountType, ""); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.Record(ledger.ID, "ledger.create", "ledger", ledger.ID, "", "", 201)
	return ledger, nil
}

// GetLedger loads a ledger header.
func (s *LedgerService) GetLedger(ledgerID string) (*models.Ledger, error) {
	var ledger models.Ledger
	err := s.db.QueryRow(`
		SELECT id, name, mode, status, currency, default_split_bps, invoice_prefix, next_invoice_number, created_at, updated_at
		FROM ledgers WHERE id = $1`, ledgerID).Scan(
		&ledger.ID, &ledger.Name, &ledger.Mode, &ledger.Status, &ledger.Currency,
		&ledger.DefaultSplitBps, &ledger.InvoicePrefix, &ledger.NextInvoiceNumber,
		&ledger.CreatedAt, &ledger.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// SetStatus suspends or reactivates a ledger. Suspended ledgers reject all
// mutating postings with a locked response.
func (s *LedgerService) SetStatus(ledgerID string, status models.LedgerStatus) error {
	result, err := s.db.Exec(`
		UPDATE ledgers SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), ledgerID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrLedgerNotFound
	}
	s.audit.Record(ledgerID, "ledger.status", "ledger", ledgerID, "", string(status), 200)
	return nil
}

type CreateCounterpartyRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	SplitBps *int   `json:"split_bps" validate:"omitempty,min=0,max=10000"`
}

// CreateCounterparty registers a creator or contractor.
func (s *LedgerService) CreateCounterparty(ledgerID string, req CreateCounterpartyRequest) (*models.Counterparty, error) {
	name, err := NormalizeString("name", req.Name)
	if err != nil {
		return nil, err
	}
	if req.Email != "" {
		if err := ValidateEmail(req.Email); err != nil {
			return nil, err
		}
	}

	cp := &models.Counterparty{
		ID:       uuid.NewString(),
		LedgerID: ledgerID,
		Name:     name,
		Email:    req.Email,
		SplitBps: req.SplitBps,
	}
	var splitBps sql.NullInt64
	if req.SplitBps != nil {
		splitBps = sql.NullInt64{Int64: int64(*req.SplitBps), Valid: true}
	}
	_, err = s.db.Exec(`
		INSERT INTO counterparties (id, ledger_id, name, email, split_bps, lifetime_earnings)
		VALUES ($1, $2, $3, $4, $5, 0)`,
		cp.ID, ledgerID, cp.Name, cp.Email, splitBps)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ledgerID, "counterparty.create", "counterparty", cp.ID, "", cp.Name, 201)
	return cp, nil
}

type CreateProductRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	SplitBps *int   `json:"split_bps" validate:"omitempty,min=0,max=10000"`
}

// CreateProduct registers a product-level split override.
func (s *LedgerService) CreateProduct(ledgerID string, req CreateProductRequest) (*models.Product, error) {
	name, err := NormalizeString("name", req.Name)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:       uuid.NewString(),
		LedgerID: ledgerID,
		Name:     name,
		SplitBps: req.SplitBps,
	}
	var splitBps sql.NullInt64
	if req.SplitBps != nil {
		splitBps = sql.NullInt64{Int64: int64(*req.SplitBps), Valid: true}
	}
	_, err = s.db.Exec(`
		INSERT INTO products (id, ledger_id, name, split_bps)
		VALUES ($1, $2, $3, $4)`,
		product.ID, ledgerID, product.Name, splitBps)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ledgerID, "product.create", "product", product.ID, "", product.Name, 201)
	return product, nil
}

// loadLedgerTx locks the ledger header for the duration of a posting and
// rejects postings against suspended ledgers.
func loadLedgerTx(tx *sql.Tx, ledgerID string) (*models.Ledger, error) {
	var ledger models.Ledger
	err := tx.QueryRow(`
		SELECT id, name, mode, status, currency, default_split_bps, invoice_prefix, next_invoice_number
		FROM ledgers WHERE id = $1 FOR SHARE`, ledgerID).Scan(
		&ledger.ID, &ledger.Name, &ledger.Mode, &ledger.Status, &ledger.Currency,
		&ledger.DefaultSplitBps, &ledger.InvoicePrefix, &ledger.NextInvoiceNumber)
	if err == sql.ErrNoRows {
		return nil, ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	if ledger.Status != models.LedgerStatusActive {
		return nil, ErrLedgerSuspended
	}
	return &ledger, nil
}
