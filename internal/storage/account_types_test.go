package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func mustAccountType(t *testing.T, store *SQLiteStorage, owner model.OwnerID, name string, sortOrder int) *model.AccountType {
	t.Helper()
	accountType := &model.AccountType{Owner: owner, Name: name, SortOrder: sortOrder}
	require.NoError(t, store.CreateAccountType(context.Background(), accountType))
	return accountType
}

func TestAccountTypeCRUD(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	cash := mustAccountType(t, store, testOwner, "Cash", 1)
	assert.Positive(t, cash.ID)

	err := store.CreateAccountType(ctx, &model.AccountType{Owner: testOwner, Name: "Cash"})
	assert.Equal(t, common.KindConflict, common.KindOf(err))

	_, err = store.GetAccountType(ctx, otherOwner, cash.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	cash.Name = "Pocket money"
	cash.Description = "coins"
	require.NoError(t, store.UpdateAccountType(ctx, cash))

	fetched, err := store.GetAccountTypeByName(ctx, testOwner, "Pocket money")
	require.NoError(t, err)
	assert.Equal(t, cash.ID, fetched.ID)
	assert.Equal(t, "coins", fetched.Description)

	require.NoError(t, store.DeleteAccountType(ctx, testOwner, cash.ID))
	err = store.DeleteAccountType(ctx, testOwner, cash.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestListAccountTypesWithCounts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bank := mustAccountType(t, store, testOwner, "Bank", 2)
	cash := mustAccountType(t, store, testOwner, "Cash", 1)
	mustAccountType(t, store, otherOwner, "Elsewhere", 1)

	for _, name := range []string{"Checking", "Savings"} {
		require.NoError(t, store.CreateAccount(ctx, &model.Account{Owner: testOwner, Name: name, TypeID: &bank.ID}))
	}

	types, err := store.ListAccountTypes(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "Cash", types[0].Name)
	assert.Zero(t, types[0].AccountCount)
	assert.Equal(t, 2, types[1].AccountCount)

	require.NoError(t, store.SetAccountTypeSortOrder(ctx, testOwner, []int64{bank.ID, cash.ID}))
	types, err = store.ListAccountTypes(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "Bank", types[0].Name)

	missing, err := store.FindMissingAccountTypeIDs(ctx, testOwner, []int64{cash.ID, 404})
	require.NoError(t, err)
	assert.Equal(t, []int64{404}, missing)
}

func TestListAccountsGroupedByType(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bank := mustAccountType(t, store, testOwner, "Bank", 2)
	cash := mustAccountType(t, store, testOwner, "Cash", 1)

	create := func(name string, typeID *int64, sortOrder int) {
		t.Helper()
		require.NoError(t, store.CreateAccount(ctx, &model.Account{Owner: testOwner, Name: name, TypeID: typeID, SortOrder: sortOrder}))
	}
	create("Untyped", nil, 0)
	create("Savings", &bank.ID, 2)
	create("Checking", &bank.ID, 1)
	create("Wallet", &cash.ID, 9)

	accounts, total, err := store.ListAccounts(ctx, testOwner, service.AccountFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	names := make([]string, len(accounts))
	for i, a := range accounts {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Wallet", "Checking", "Savings", "Untyped"}, names)
	require.NotNil(t, accounts[0].TypeID)
	assert.Equal(t, cash.ID, *accounts[0].TypeID)
	assert.Nil(t, accounts[3].TypeID)

	accounts, total, err = store.ListAccounts(ctx, testOwner, service.AccountFilter{TypeIDs: []int64{bank.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, accounts, 2)
}
