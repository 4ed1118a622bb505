package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/seed"
)

func initCmd(e *env) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default account types, categories and a cash account",
		Long: `Seed the owner's ledger with the default account types, the income and
expense category forest and a cash account. Names that already exist are left alone, so init
is safe to run again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if locale == "" {
				locale = e.cfg.Locale
			}
			loc, err := seed.ParseLocale(locale)
			if err != nil {
				return common.BadRequestf("%v", err)
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := seed.Load(ctx, a.owner, loc, a.categories, a.accountTypes, a.accounts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
					"Seeded %d categories, %d account types and %d accounts (%d already existed)",
					res.CategoriesCreated, res.TypesCreated, res.AccountsCreated, res.Skipped())))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "Language of the seeded names: en or vi (default from config)")

	return cmd
}
