package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// CreateIcon registers an icon reference.
func (q *queries) CreateIcon(ctx context.Context, icon model.Icon) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(icon.ID, "icon id"); err != nil {
		return err
	}

	_, err := q.q.ExecContext(ctx,
		`INSERT INTO icons (id, name, url) VALUES (?, ?, ?)`, icon.ID, icon.Name, icon.URL)
	if err != nil {
		if isUniqueViolation(err) {
			return common.Conflictf("icon %q already exists", icon.ID)
		}
		return fmt.Errorf("failed to create icon: %w", err)
	}
	return nil
}

// IconExists reports whether an icon with the given id is registered.
func (q *queries) IconExists(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	var exists bool
	err := q.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM icons WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check icon: %w", err)
	}
	return exists, nil
}
