package account

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/testutil"
)

const owner = testutil.DefaultOwner

func TestAdjuster_Adjust(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		magnitude string
		dir       model.Direction
		want      string
	}{
		{"credit adds", "10.00", "2.50", model.DirectionCredit, "12.50"},
		{"debit subtracts", "10.00", "2.50", model.DirectionDebit, "7.50"},
		{"debit below zero", "0", "100", model.DirectionDebit, "-100.00"},
		{"zero magnitude", "5", "0", model.DirectionCredit, "5.00"},
		{"no float drift", "0.10", "0.20", model.DirectionCredit, "0.30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			fx := db.Fixtures(owner).WithAccount("A", tt.start)
			adjuster := NewAdjuster()

			err := db.WithCommit(func(tx service.Transaction) error {
				updated, err := adjuster.Adjust(context.Background(), tx, owner, fx.Account("A").ID,
					decimal.RequireFromString(tt.magnitude), tt.dir)
				if err != nil {
					return err
				}
				assert.Equal(t, tt.want, model.FormatMoney(updated.Balance))
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, model.FormatMoney(db.Balance(owner, fx.Account("A").ID)))
		})
	}
}

func TestAdjuster_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := db.Fixtures(owner).WithAccount("A", "10")
	adjuster := NewAdjuster()
	ctx := context.Background()
	id := fx.Account("A").ID

	tests := []struct {
		name      string
		owner     model.OwnerID
		accountID int64
		magnitude decimal.Decimal
		dir       model.Direction
		wantKind  common.Kind
	}{
		{"negative magnitude", owner, id, decimal.NewFromInt(-1), model.DirectionCredit, common.KindBadRequest},
		{"unknown direction", owner, id, decimal.NewFromInt(1), "SIDEWAYS", common.KindBadRequest},
		{"missing account", owner, id + 100, decimal.NewFromInt(1), model.DirectionCredit, common.KindNotFound},
		{"other owner", "intruder", id, decimal.NewFromInt(1), model.DirectionCredit, common.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.WithTransaction(func(tx service.Transaction) error {
				_, err := adjuster.Adjust(ctx, tx, tt.owner, tt.accountID, tt.magnitude, tt.dir)
				return err
			})
			assert.Equal(t, tt.wantKind, common.KindOf(err))
		})
	}

	assert.Equal(t, "10.00", model.FormatMoney(db.Balance(owner, id)))
}

func TestAdjuster_ApplyAndReverse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := db.Fixtures(owner).WithAccount("A", "500").WithAccount("B", "0")
	adjuster := NewAdjuster()
	ctx := context.Background()

	txn := &model.Transaction{
		Type:  model.TransactionTypeTransfer,
		Shape: model.TransferShape{SenderAccountID: fx.Account("A").ID, ReceiverAccountID: fx.Account("B").ID},
	}
	effects, err := txn.Effects()
	require.NoError(t, err)

	amount := decimal.NewFromInt(200)
	require.NoError(t, db.WithCommit(func(tx service.Transaction) error {
		return adjuster.Apply(ctx, tx, owner, amount, effects)
	}))
	assert.Equal(t, "300.00", model.FormatMoney(db.Balance(owner, fx.Account("A").ID)))
	assert.Equal(t, "200.00", model.FormatMoney(db.Balance(owner, fx.Account("B").ID)))

	reverse, err := txn.ReverseEffects()
	require.NoError(t, err)
	require.NoError(t, db.WithCommit(func(tx service.Transaction) error {
		return adjuster.Apply(ctx, tx, owner, amount, reverse)
	}))
	assert.Equal(t, "500.00", model.FormatMoney(db.Balance(owner, fx.Account("A").ID)))
	assert.Equal(t, "0.00", model.FormatMoney(db.Balance(owner, fx.Account("B").ID)))
}
