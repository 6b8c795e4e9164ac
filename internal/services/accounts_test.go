package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/aniZ2/soledgic-sub004/internal/models"
)

func TestAccountStore_ApplyEntryTx(t *testing.T) {
	const ledgerID = "11111111-1111-1111-1111-111111111111"

	newTx := func(t *testing.T) (*AccountStore, sqlmock.Sqlmock, func()) {
		t.Helper()
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		return NewAccountStore(db), mock, func() { db.Close() }
	}

	t.Run("debit increases a debit-normal account", func(t *testing.T) {
		store, mock, closeDB := newTx(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(500), sqlmock.AnyArg(), "acc-cash").
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := store.db.Begin()
		assert.NoError(t, err)

		cash := mustAccount("acc-cash", models.AccountTypeCash)
		cash.Balance = 1000
		cash.LedgerID = ledgerID

		assert.NoError(t, store.ApplyEntryTx(tx, cash, models.EntryDebit, 500))
		assert.Equal(t, int64(1500), cash.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("debit decreases a credit-normal account", func(t *testing.T) {
		store, mock, closeDB := newTx(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts").
			WithArgs(int64(-500), sqlmock.AnyArg(), "acc-creator").
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := store.db.Begin()
		assert.NoError(t, err)

		creator := mustAccount("acc-creator", models.AccountTypeCreatorBalance)
		creator.Balance = 1000

		assert.NoError(t, store.ApplyEntryTx(tx, creator, models.EntryDebit, 500))
		assert.Equal(t, int64(500), creator.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive account rejects the entry", func(t *testing.T) {
		store, mock, closeDB := newTx(t)
		defer closeDB()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE accounts").
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := store.db.Begin()
		assert.NoError(t, err)

		cash := mustAccount("acc-cash", models.AccountTypeCash)
		err = store.ApplyEntryTx(tx, cash, models.EntryDebit, 500)

		assert.True(t, errors.Is(err, ErrAccountInactive))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStore_GetBalance(t *testing.T) {
	const ledgerID = "11111111-1111-1111-1111-111111111111"

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	store := NewAccountStore(db)

	t.Run("returns the running balance", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts").
			WithArgs(ledgerID, "cash", "").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(12_999)))

		balance, err := store.GetBalance(ledgerID, models.AccountTypeCash, "")
		assert.NoError(t, err)
		assert.Equal(t, int64(12_999), balance)
	})

	t.Run("missing account reports not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT balance FROM accounts").
			WithArgs(ledgerID, "cash", "").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := store.GetBalance(ledgerID, models.AccountTypeCash, "")
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStore_SetHold(t *testing.T) {
	const ledgerID = "11111111-1111-1111-1111-111111111111"

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	store := NewAccountStore(db)

	t.Run("rejects negative holds", func(t *testing.T) {
		err := store.SetHold(ledgerID, "acc-creator", -1)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("sets a hold on an active account", func(t *testing.T) {
		mock.ExpectExec("UPDATE accounts SET held").
			WithArgs(int64(250), sqlmock.AnyArg(), "acc-creator", ledgerID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.SetHold(ledgerID, "acc-creator", 250))
	})

	t.Run("missing account reports not found", func(t *testing.T) {
		mock.ExpectExec("UPDATE accounts SET held").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.SetHold(ledgerID, "acc-missing", 250)
		assert.True(t, errors.Is(err, ErrAccountNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountNormalSides(t *testing.T) {
	debitNormal := []models.AccountType{
		models.AccountTypeCash,
		models.AccountTypeAccountsReceivable,
		models.AccountTypeExpense,
	}
	for _, accountType := range debitNormal {
		assert.Equal(t, models.EntryDebit, accountType.NormalSide(), string(accountType))
	}

	creditNormal := []models.AccountType{
		models.AccountTypeAccountsPayable,
		models.AccountTypeRevenue,
		models.AccountTypeCreatorBalance,
	}
	for _, accountType := range creditNormal {
		assert.Equal(t, models.EntryCredit, accountType.NormalSide(), string(accountType))
	}
}

func TestAvailableBalance(t *testing.T) {
	account := models.Account{Balance: 1000, Held: 300}
	assert.Equal(t, int64(700), account.Available())
}
