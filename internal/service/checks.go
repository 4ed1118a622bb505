package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// RequireIcon fails with NotFound when iconID is set but not registered.
func RequireIcon(ctx context.Context, icons IconResolver, iconID string) error {
	if iconID == "" {
		return nil
	}
	ok, err := icons.IconExists(ctx, iconID)
	if err != nil {
		return err
	}
	if !ok {
		return common.NotFoundf("icon %q not found", iconID)
	}
	return nil
}

// ValidateMoney rejects amounts that cannot be stored exactly.
func ValidateMoney(d decimal.Decimal) error {
	if _, err := model.ToMinorUnits(d); err != nil {
		return common.BadRequestf("%v", err)
	}
	return nil
}
