// Package storage provides the data persistence layer for pennywise.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/pennywise/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrMissingOwner     = errors.New("owner is required")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidShape     = errors.New("invalid transaction shape")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateOwner ensures every query is scoped to an owner.
func validateOwner(owner model.OwnerID) error {
	if strings.TrimSpace(string(owner)) == "" {
		return ErrMissingOwner
	}
	return nil
}

// validateScope combines the checks every owner-scoped query starts with.
func validateScope(ctx context.Context, owner model.OwnerID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return validateOwner(owner)
}

// validateTransaction checks the row-level shape invariant before a write.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if err := validateString(txn.ID, "transaction id"); err != nil {
		return err
	}
	if err := validateOwner(txn.Owner); err != nil {
		return err
	}
	switch s := txn.Shape.(type) {
	case model.TransferShape:
		if !txn.Type.IsTransfer() {
			return fmt.Errorf("%w: %s transaction with transfer shape", ErrInvalidShape, txn.Type)
		}
		if s.SenderAccountID == s.ReceiverAccountID {
			return fmt.Errorf("%w: sender and receiver are the same account", ErrInvalidShape)
		}
	case model.StandardShape:
		if _, ok := txn.Type.CategoryType(); !ok {
			return fmt.Errorf("%w: %s transaction with standard shape", ErrInvalidShape, txn.Type)
		}
	default:
		return fmt.Errorf("%w: %T", ErrInvalidShape, txn.Shape)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidShape)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
