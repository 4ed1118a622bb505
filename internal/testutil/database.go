// Package testutil provides shared test helpers: an in-memory ledger store
// and fluent fixtures for seeding accounts and categories.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/storage"
)

// DefaultOwner is the owner fixtures are created for unless told otherwise.
const DefaultOwner model.OwnerID = "test-owner"

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	fx := db.Fixtures(testutil.DefaultOwner).
//		WithAccount("Wallet", "100").
//		WithCategory("Food", model.CategoryTypeExpense)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// WithTransaction executes fn within a database transaction that is always
// rolled back afterwards.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// Balance returns the stored balance of an account or fails the test.
func (db *TestDB) Balance(owner model.OwnerID, accountID int64) decimal.Decimal {
	db.t.Helper()
	account, err := db.Storage.GetAccount(context.Background(), owner, accountID)
	if err != nil {
		db.t.Fatalf("failed to load account %d: %v", accountID, err)
	}
	return account.Balance
}

// CountTransactions returns how many ledger rows the owner has.
func (db *TestDB) CountTransactions(owner model.OwnerID) int {
	db.t.Helper()
	_, total, err := db.Storage.ListTransactions(context.Background(), owner, service.TransactionFilter{})
	if err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return total
}

// WithCommit executes fn within a database transaction and commits it when
// fn succeeds.
func (db *TestDB) WithCommit(fn func(tx service.Transaction) error) error {
	tx, err := db.Storage.BeginTx(context.Background())
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
