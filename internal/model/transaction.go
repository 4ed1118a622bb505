package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of ledger movement a transaction represents.
type TransactionType string

const (
	// TransactionTypeIncome credits one account under an income category.
	TransactionTypeIncome TransactionType = "INCOME"
	// TransactionTypeExpense debits one account under an expense category.
	TransactionTypeExpense TransactionType = "EXPENSE"
	// TransactionTypeTransfer moves funds between two accounts of the same owner.
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// IsTransfer reports whether t uses the sender/receiver shape.
func (t TransactionType) IsTransfer() bool {
	return t == TransactionTypeTransfer
}

// CategoryType returns the category type a standard transaction of type t
// must be filed under. The second result is false for transfers.
func (t TransactionType) CategoryType() (CategoryType, bool) {
	switch t {
	case TransactionTypeIncome:
		return CategoryTypeIncome, true
	case TransactionTypeExpense:
		return CategoryTypeExpense, true
	}
	return "", false
}

// Direction says whether an adjustment adds to or subtracts from a balance.
type Direction string

const (
	// DirectionCredit adds the magnitude to the balance.
	DirectionCredit Direction = "CREDIT"
	// DirectionDebit subtracts the magnitude from the balance.
	DirectionDebit Direction = "DEBIT"
)

// Opposite returns the direction that undoes d.
func (d Direction) Opposite() Direction {
	if d == DirectionCredit {
		return DirectionDebit
	}
	return DirectionCredit
}

// Valid reports whether d is CREDIT or DEBIT.
func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// Shape is the set of references a transaction carries: either
// StandardShape or TransferShape, never both.
type Shape interface {
	shape()
}

// StandardShape ties an income or expense transaction to one account and one category.
type StandardShape struct {
	AccountID  int64
	CategoryID int64
}

func (StandardShape) shape() {}

// TransferShape moves funds from SenderAccountID to ReceiverAccountID.
type TransferShape struct {
	SenderAccountID   int64
	ReceiverAccountID int64
}

func (TransferShape) shape() {}

// Transaction is a persisted ledger row. Amount is always a positive
// magnitude; direction comes from Type and Shape. ExternalID is the
// statement line a transaction was imported from, unique per account.
type Transaction struct {
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Shape       Shape
	Amount      decimal.Decimal
	ID          string
	Description string
	ExternalID  string
	Owner       OwnerID
	Type        TransactionType
}

// Standard returns the standard shape if the transaction has one.
func (t *Transaction) Standard() (StandardShape, bool) {
	s, ok := t.Shape.(StandardShape)
	return s, ok
}

// Transfer returns the transfer shape if the transaction has one.
func (t *Transaction) Transfer() (TransferShape, bool) {
	s, ok := t.Shape.(TransferShape)
	return s, ok
}

// Effect is one signed balance change on one account.
type Effect struct {
	Direction Direction
	AccountID int64
}

// Inverse returns the effect that cancels e.
func (e Effect) Inverse() Effect {
	return Effect{AccountID: e.AccountID, Direction: e.Direction.Opposite()}
}

// Effects lists the balance changes the transaction applies, in order.
// A transfer debits the sender then credits the receiver; a standard
// transaction credits (income) or debits (expense) its account.
func (t *Transaction) Effects() ([]Effect, error) {
	switch s := t.Shape.(type) {
	case TransferShape:
		if !t.Type.IsTransfer() {
			return nil, fmt.Errorf("transaction %s: type %s with transfer shape", t.ID, t.Type)
		}
		return []Effect{
			{AccountID: s.SenderAccountID, Direction: DirectionDebit},
			{AccountID: s.ReceiverAccountID, Direction: DirectionCredit},
		}, nil
	case StandardShape:
		catType, ok := t.Type.CategoryType()
		if !ok {
			return nil, fmt.Errorf("transaction %s: type %s with standard shape", t.ID, t.Type)
		}
		return []Effect{{AccountID: s.AccountID, Direction: catType.Direction()}}, nil
	default:
		return nil, fmt.Errorf("transaction %s: unknown shape %T", t.ID, t.Shape)
	}
}

// ReverseEffects lists the effects that undo Effects.
func (t *Transaction) ReverseEffects() ([]Effect, error) {
	effects, err := t.Effects()
	if err != nil {
		return nil, err
	}
	reversed := make([]Effect, len(effects))
	for i, e := range effects {
		reversed[i] = e.Inverse()
	}
	return reversed, nil
}

// AccountIDs returns every account the transaction touches.
func (t *Transaction) AccountIDs() []int64 {
	switch s := t.Shape.(type) {
	case TransferShape:
		return []int64{s.SenderAccountID, s.ReceiverAccountID}
	case StandardShape:
		return []int64{s.AccountID}
	}
	return nil
}
