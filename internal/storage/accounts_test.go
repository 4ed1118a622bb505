package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func TestCreateAndGetAccount(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	account := mustAccount(t, store, testOwner, "Checking", "150.25")
	assert.Positive(t, account.ID)

	fetched, err := store.GetAccount(ctx, testOwner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checking", fetched.Name)
	assert.True(t, decimal.RequireFromString("150.25").Equal(fetched.Balance))
	assert.True(t, fetched.Balance.Equal(fetched.InitialBalance))

	byName, err := store.GetAccountByName(ctx, testOwner, "Checking")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byName.ID)
}

func TestAccountOwnerScoping(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	account := mustAccount(t, store, testOwner, "Checking", "0")

	_, err := store.GetAccount(ctx, otherOwner, account.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	// Names are only unique within an owner.
	mustAccount(t, store, otherOwner, "Checking", "0")

	err = store.CreateAccount(ctx, &model.Account{Owner: testOwner, Name: "Checking"})
	assert.Equal(t, common.KindConflict, common.KindOf(err))
}

func TestAccountRejectsSubCentAmounts(t *testing.T) {
	store := createTestStorage(t)

	err := store.CreateAccount(context.Background(), &model.Account{
		Owner:          testOwner,
		Name:           "Precise",
		Balance:        decimal.RequireFromString("1.005"),
		InitialBalance: decimal.RequireFromString("1.005"),
	})
	assert.ErrorIs(t, err, model.ErrInvalidMoney)
}

func TestUpdateAccountLeavesBalance(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	account := mustAccount(t, store, testOwner, "Savings", "100")
	account.Name = "Rainy Day"
	account.Description = "emergency fund"
	account.Balance = decimal.RequireFromString("9999")
	require.NoError(t, store.UpdateAccount(ctx, account))

	fetched, err := store.GetAccount(ctx, testOwner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rainy Day", fetched.Name)
	assert.Equal(t, "emergency fund", fetched.Description)
	assert.True(t, decimal.NewFromInt(100).Equal(fetched.Balance))

	require.NoError(t, store.SetAccountBalance(ctx, testOwner, account.ID, decimal.RequireFromString("42.10")))
	fetched, err = store.GetAccount(ctx, testOwner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "42.10", model.FormatMoney(fetched.Balance))

	err = store.SetAccountBalance(ctx, otherOwner, account.ID, decimal.Zero)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestListAccounts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	mustAccount(t, store, testOwner, "Wallet", "10")
	mustAccount(t, store, testOwner, "Bank", "20")
	mustAccount(t, store, testOwner, "Brokerage", "30")
	mustAccount(t, store, otherOwner, "Elsewhere", "40")

	accounts, total, err := store.ListAccounts(ctx, testOwner, service.AccountFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, accounts, 3)
	assert.Equal(t, "Bank", accounts[0].Name)

	accounts, total, err = store.ListAccounts(ctx, testOwner, service.AccountFilter{Keyword: "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, accounts, 2)

	accounts, total, err = store.ListAccounts(ctx, testOwner, service.AccountFilter{Skip: 1, Take: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Brokerage", accounts[0].Name)

	sum, err := store.SumAccountBalances(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "60.00", model.FormatMoney(sum))
}

func TestAccountSortOrder(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	a := mustAccount(t, store, testOwner, "A", "0")
	b := mustAccount(t, store, testOwner, "B", "0")
	c := mustAccount(t, store, testOwner, "C", "0")

	require.NoError(t, store.SetAccountSortOrder(ctx, testOwner, []int64{c.ID, a.ID, b.ID}))

	accounts, _, err := store.ListAccounts(ctx, testOwner, service.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{accounts[0].Name, accounts[1].Name, accounts[2].Name})
	assert.Equal(t, 1, accounts[0].SortOrder)
	assert.Equal(t, 3, accounts[2].SortOrder)

	missing, err := store.FindMissingAccountIDs(ctx, testOwner, []int64{a.ID, 999, b.ID, 1000})
	require.NoError(t, err)
	assert.Equal(t, []int64{999, 1000}, missing)

	missing, err = store.FindMissingAccountIDs(ctx, otherOwner, []int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, missing)
}

func TestDeleteAccount(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	account := mustAccount(t, store, testOwner, "Temp", "0")
	require.NoError(t, store.DeleteAccount(ctx, testOwner, account.ID))

	err := store.DeleteAccount(ctx, testOwner, account.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}
