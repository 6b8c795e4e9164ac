package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// AccountStore owns durable per-account running balances. Balances move only
// through posting and reversal procedures, always inside their transaction,
// always by delta application.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

// uniqueViolation is the Postgres error code raised on unique-constraint
// conflicts; both the account bootstrap and the reference-id idempotency
// guard key off it.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// FetchOrCreateTx resolves the account for (ledger, type, entity) inside the
// caller's transaction, creating it with a zero balance on first use. The
// create is race-safe: a concurrent insert surfaces as a unique violation and
// the account is re-fetched.
func (s *AccountStore) FetchOrCreateTx(tx *sql.Tx, ledgerID string, accountType models.AccountType, entityID string) (*models.Account, error) {
	account, err := s.fetchTx(tx, ledgerID, accountType, entityID)
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	account = &models.Account{
		ID:       uuid.NewString(),
		LedgerID: ledgerID,
		Type:     accountType,
		EntityID: entityID,
		Name:     defaultAccountName(accountType, entityID),
		Active:   true,
	}
	_, err = tx.Exec(`
		INSERT INTO accounts (id, ledger_id, account_type, entity_id, name, balance, held, active)
		VALUES ($1, $2, $3, $4, $5, 0, 0, TRUE)`,
		account.ID, ledgerID, accountType, entityID, account.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return s.fetchTx(tx, ledgerID, accountType, entityID)
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountStore) fetchTx(tx *sql.Tx, ledgerID string, accountType models.AccountType, entityID string) (*models.Account, error) {
	var account models.Account
	err := tx.QueryRow(`
		SELECT id, ledger_id, account_type, entity_id, name, balance, held, active
		FROM accounts
		WHERE ledger_id = $1 AND account_type = $2 AND entity_id = $3
		FOR UPDATE`,
		ledgerID, accountType, entityID).Scan(
		&account.ID, &account.LedgerID, &account.Type, &account.EntityID,
		&account.Name, &account.Balance, &account.Held, &account.Active)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// ApplyEntryTx moves an account balance by one entry's effect. The delta is
// applied in place so the row lock taken by the UPDATE serializes concurrent
// postings against the same account.
func (s *AccountStore) ApplyEntryTx(tx *sql.Tx, account *models.Account, side models.EntrySide, amount int64) error {
	delta := amount
	if side != account.Type.NormalSide() {
		delta = -amount
	}

	result, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3 AND active = TRUE`,
		delta, time.Now(), account.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("apply entry to account %s: %w", account.ID, ErrAccountInactive)
	}

	account.Balance += delta
	return nil
}

// GetBalance reads the current running balance outside any posting.
func (s *AccountStore) GetBalance(ledgerID string, accountType models.AccountType, entityID string) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`
		SELECT balance FROM accounts
		WHERE ledger_id = $1 AND account_type = $2 AND entity_id = $3`,
		ledgerID, accountType, entityID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

// ListAccounts returns all accounts in a ledger, active first.
func (s *AccountStore) ListAccounts(ledgerID string) ([]models.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, ledger_id, account_type, entity_id, name, balance, held, active, created_at, updated_at
		FROM accounts
		WHERE ledger_id = $1
		ORDER BY active DESC, account_type, entity_id`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.LedgerID, &a.Type, &a.EntityID, &a.Name,
			&a.Balance, &a.Held, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Deactivate marks an account inactive. Accounts are never deleted.
func (s *AccountStore) Deactivate(ledgerID, accountID string) error {
	result, err := s.db.Exec(`
		UPDATE accounts SET active = FALSE, updated_at = $1
		WHERE id = $2 AND ledger_id = $3`,
		time.Now(), accountID, ledgerID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetHold reserves part of a balance (tax or refund-risk withholding).
// Payouts draw on balance minus held.
func (s *AccountStore) SetHold(ledgerID, accountID string, held int64) error {
	if held < 0 {
		return &ValidationError{Field: "held", Reason: "must not be negative"}
	}
	result, err := s.db.Exec(`
		UPDATE accounts SET held = $1, updated_at = $2
		WHERE id = $3 AND ledger_id = $4 AND active = TRUE`,
		held, time.Now(), accountID, ledgerID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func defaultAccountName(accountType models.AccountType, entityID string) string {
	switch accountType {
	case models.AccountTypeCash:
		return "Cash"
	case models.AccountTypeAccountsReceivable:
		return "Accounts Receivable"
	case models.AccountTypeAccountsPayable:
		if entityID != "" {
			return "Accounts Payable - " + entityID
		}
		return "Accounts Payable"
	case models.AccountTypeRevenue:
		return "Platform Revenue"
	case models.AccountTypeExpense:
		if entityID != "" {
			return "Expense - " + entityID
		}
		return "Expenses"
	case models.AccountTypeCreatorBalance:
		return "Creator Balance - " + entityID
	default:
		return string(accountType)
	}
}
