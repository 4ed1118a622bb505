package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

const (
	testOwner  model.OwnerID = "owner-1"
	otherOwner model.OwnerID = "owner-2"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func mustAccount(t *testing.T, store *SQLiteStorage, owner model.OwnerID, name, balance string) *model.Account {
	t.Helper()
	amount := decimal.RequireFromString(balance)
	account := &model.Account{Owner: owner, Name: name, Balance: amount, InitialBalance: amount}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func mustCategory(t *testing.T, store *SQLiteStorage, owner model.OwnerID, name string, catType model.CategoryType, parent *model.Category) *model.Category {
	t.Helper()
	category := &model.Category{Owner: owner, Name: name, Type: catType}
	if parent != nil {
		category.ParentID = &parent.ID
	}
	require.NoError(t, store.CreateCategory(context.Background(), category))
	return category
}

func mustStandard(t *testing.T, store *SQLiteStorage, id string, txnType model.TransactionType, amount string, date time.Time, account *model.Account, category *model.Category, description string) *model.Transaction {
	t.Helper()
	txn := &model.Transaction{
		ID:          id,
		Owner:       account.Owner,
		Type:        txnType,
		Amount:      decimal.RequireFromString(amount),
		Date:        date,
		Description: description,
		Shape:       model.StandardShape{AccountID: account.ID, CategoryID: category.ID},
	}
	require.NoError(t, store.InsertTransaction(context.Background(), txn))
	return txn
}

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates nested directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")
		store, err := NewSQLiteStorage(dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		assert.Equal(t, dbPath, store.Path())
	})

	t.Run("in memory", func(t *testing.T) {
		store, err := NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		require.NoError(t, store.Migrate(context.Background()))
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewSQLiteStorage("  ")
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, "PRAGMA user_version = 99")
	require.NoError(t, err)

	err = store.Migrate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestQueriesRequireOwner(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetAccount(ctx, "", 1)
	assert.ErrorIs(t, err, ErrMissingOwner)

	_, err = store.ListCategories(ctx, " ")
	assert.ErrorIs(t, err, ErrMissingOwner)

	var nilCtx context.Context
	_, err = store.GetAccount(nilCtx, testOwner, 1)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestTransactionRollback(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	account := &model.Account{Owner: testOwner, Name: "Scratch"}
	require.NoError(t, tx.CreateAccount(ctx, account))

	// Visible inside the transaction.
	_, err = tx.GetAccount(ctx, testOwner, account.ID)
	require.NoError(t, err)

	require.NoError(t, tx.Rollback())

	_, err = store.GetAccount(ctx, testOwner, account.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestClockStampsRows(t *testing.T) {
	store := createTestStorage(t)
	fixed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })

	account := mustAccount(t, store, testOwner, "Cash", "0")
	assert.Equal(t, fixed, account.CreatedAt)

	fetched, err := store.GetAccount(context.Background(), testOwner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, fixed, fetched.CreatedAt)
	assert.Equal(t, fixed, fetched.UpdatedAt)
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		keyword string
		want    string
	}{
		{"coffee", "%coffee%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.keyword))
		})
	}
}
