package services

import (
	"database/sql"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

// ReportService consumes the ledger's output. It validates the standing
// trial-balance invariant; it does not render documents.
type ReportService struct {
	db *sql.DB
}

func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{db: db}
}

type TrialBalanceLine struct {
	AccountID   string             `json:"account_id"`
	Name        string             `json:"name"`
	AccountType models.AccountType `json:"account_type"`
	EntityID    string             `json:"entity_id,omitempty"`
	Balance     int64              `json:"balance"`
}

type TrialBalance struct {
	LedgerID    string             `json:"ledger_id"`
	DebitTotal  int64              `json:"debit_total"`
	CreditTotal int64              `json:"credit_total"`
	Balanced    bool               `json:"balanced"`
	DebitLines  []TrialBalanceLine `json:"debit_lines"`
	CreditLines []TrialBalanceLine `json:"credit_lines"`
}

// TrialBalance sums debit-normal and credit-normal balances across a ledger.
// The two totals are equal on every consistent set of books.
func (s *ReportService) TrialBalance(ledgerID string) (*TrialBalance, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM ledgers WHERE id = $1)`, ledgerID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrLedgerNotFound
	}

	rows, err := s.db.Query(`
		SELECT id, name, account_type, entity_id, balance
		FROM accounts
		WHERE ledger_id = $1
		ORDER BY account_type, entity_id`, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := &TrialBalance{
		LedgerID:    ledgerID,
		DebitLines:  []TrialBalanceLine{},
		CreditLines: []TrialBalanceLine{},
	}
	for rows.Next() {
		var line TrialBalanceLine
		if err := rows.Scan(&line.AccountID, &line.Name, &line.AccountType, &line.EntityID, &line.Balance); err != nil {
			return nil, err
		}
		if line.AccountType.NormalSide() == models.EntryDebit {
			report.DebitTotal += line.Balance
			report.DebitLines = append(report.DebitLines, line)
		} else {
			report.CreditTotal += line.Balance
			report.CreditLines = append(report.CreditLines, line)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.Balanced = report.DebitTotal == report.CreditTotal
	return report, nil
}
