package database

import (
	"database/sql"
	"fmt"
	"log"
)

// migrations is the fixed, versioned schema. Each statement set is applied at
// most once; schema_migrations records what ran.
var migrations = []string{
	// 1: ledgers and accounts
	`CREATE TABLE IF NOT EXISTS ledgers (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'standard',
		status TEXT NOT NULL DEFAULT 'active',
		currency CHAR(3) NOT NULL,
		default_split_bps INT NOT NULL DEFAULT 8000,
		invoice_prefix TEXT NOT NULL DEFAULT 'INV',
		next_invoice_number INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		account_type TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		held BIGINT NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (ledger_id, account_type, entity_id)
	);`,

	// 2: transactions and entries
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		type TEXT NOT NULL,
		reference_id TEXT NOT NULL,
		amount BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		description TEXT NOT NULL DEFAULT '',
		counterparty_id UUID,
		reversal_of UUID REFERENCES transactions(id),
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (ledger_id, reference_id)
	);
	CREATE TABLE IF NOT EXISTS entries (
		id BIGSERIAL PRIMARY KEY,
		transaction_id UUID NOT NULL REFERENCES transactions(id),
		account_id UUID NOT NULL REFERENCES accounts(id),
		entry_type TEXT NOT NULL CHECK (entry_type IN ('debit', 'credit')),
		amount BIGINT NOT NULL CHECK (amount >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_entries_transaction ON entries (transaction_id);
	CREATE INDEX IF NOT EXISTS idx_entries_account ON entries (account_id);`,

	// 3: counterparties and products
	`CREATE TABLE IF NOT EXISTS counterparties (
		id UUID PRIMARY KEY,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		split_bps INT,
		lifetime_earnings BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		name TEXT NOT NULL,
		split_bps INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	// 4: invoices
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		number TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'draft',
		subtotal BIGINT NOT NULL DEFAULT 0,
		total BIGINT NOT NULL DEFAULT 0,
		amount_paid BIGINT NOT NULL DEFAULT 0,
		amount_due BIGINT NOT NULL DEFAULT 0,
		issue_date DATE,
		due_date DATE,
		sent_transaction_id UUID REFERENCES transactions(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_number
		ON invoices (ledger_id, number) WHERE number <> '';
	CREATE TABLE IF NOT EXISTS invoice_line_items (
		id BIGSERIAL PRIMARY KEY,
		invoice_id UUID NOT NULL REFERENCES invoices(id),
		description TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		unit_amount BIGINT NOT NULL,
		amount BIGINT NOT NULL
	);`,

	// 5: checkout sessions
	`CREATE TABLE IF NOT EXISTS checkout_sessions (
		id UUID PRIMARY KEY,
		ledger_id UUID NOT NULL REFERENCES ledgers(id),
		reference_id TEXT NOT NULL,
		counterparty_id UUID NOT NULL,
		product_id UUID,
		amount BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		state_token TEXT NOT NULL,
		charge_id TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (ledger_id, reference_id)
	);`,

	// 6: audit log
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		ledger_id UUID NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		request_summary TEXT NOT NULL DEFAULT '',
		response_status INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_ledger ON audit_log (ledger_id, created_at);`,
}

// Migrate applies all unapplied migrations in order.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		log.Printf("Applied migration %d", version)
	}

	return nil
}
