package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/account"
	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func accountsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account", "acc"},
		Short:   "Manage accounts and their balances",
	}

	cmd.AddCommand(listAccountsCmd(e))
	cmd.AddCommand(addAccountCmd(e))
	cmd.AddCommand(updateAccountCmd(e))
	cmd.AddCommand(deleteAccountCmd(e))
	cmd.AddCommand(sortAccountsCmd(e))
	cmd.AddCommand(totalBalanceCmd(e))
	cmd.AddCommand(accountTypesCmd(e))

	return cmd
}

func listAccountsCmd(e *env) *cobra.Command {
	var (
		filter service.AccountFilter
		types  []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts grouped by account type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if filter.TypeIDs, err = parseIDs(types); err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				page, err := a.accounts.FindAll(ctx, a.owner, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(page.Items) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No accounts found."))
					return nil
				}

				names, err := typeNames(ctx, a)
				if err != nil {
					return err
				}

				table := cli.NewTable(out, "ID", "NAME", "TYPE", "BALANCE", "INITIAL", "DESCRIPTION")
				for _, acc := range page.Items {
					typeName := "-"
					if acc.TypeID != nil {
						typeName = names[*acc.TypeID]
					}
					table.Row(acc.ID, acc.Name, typeName, cli.FormatAmount(acc.Balance), model.FormatMoney(acc.InitialBalance), acc.Description)
				}
				if err := table.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d of %d accounts", len(page.Items), page.Total)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter.Keyword, "keyword", "k", "", "Only accounts whose name contains this text")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Only accounts of these account type ids")
	cmd.Flags().IntVar(&filter.Skip, "skip", 0, "Number of accounts to skip")
	cmd.Flags().IntVar(&filter.Take, "take", 0, "Maximum number of accounts to show (0 for all)")

	return cmd
}

func addAccountCmd(e *env) *cobra.Command {
	var (
		description string
		iconID      string
		initial     string
		typeFlag    string
		sortOrder   int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance := decimal.Zero
			if initial != "" {
				var err error
				if balance, err = parseAmount(initial); err != nil {
					return err
				}
			}
			var typeID *int64
			if typeFlag != "" {
				id, err := parseID(typeFlag)
				if err != nil {
					return err
				}
				typeID = &id
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				acc, err := a.accounts.Create(ctx, a.owner, account.CreateInput{
					Name:           args[0],
					Description:    description,
					IconID:         iconID,
					InitialBalance: balance,
					TypeID:         typeID,
					SortOrder:      sortOrder,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created account %q (id %d, balance %s)", acc.Name, acc.ID, model.FormatMoney(acc.Balance))))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Account description")
	cmd.Flags().StringVar(&iconID, "icon", "", "Icon id")
	cmd.Flags().StringVarP(&initial, "initial-balance", "b", "", "Opening balance, e.g. 120.50")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Account type id")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "Position within its account type")

	return cmd
}

func updateAccountCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account",
		Long: `Change an account's fields. Changing the initial balance shifts the
current balance by the same difference.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			initial, err := changedAmount(cmd, "initial-balance")
			if err != nil {
				return err
			}
			patch := account.UpdatePatch{
				Name:           changedString(cmd, "name"),
				Description:    changedString(cmd, "description"),
				IconID:         changedString(cmd, "icon"),
				InitialBalance: initial,
				SortOrder:      changedInt(cmd, "sort-order"),
			}
			noType, _ := cmd.Flags().GetBool("no-type")
			typeID, err := changedID(cmd, "type")
			if err != nil {
				return err
			}
			switch {
			case noType && typeID != nil:
				return common.BadRequestf("--type and --no-type cannot be combined")
			case noType:
				patch.Type = &account.TypeUpdate{}
			case typeID != nil:
				patch.Type = &account.TypeUpdate{ID: typeID}
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				acc, err := a.accounts.Update(ctx, a.owner, id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated account %q (balance %s)", acc.Name, model.FormatMoney(acc.Balance))))
				return nil
			})
		},
	}

	cmd.Flags().StringP("name", "n", "", "New name")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("icon", "", "New icon id (empty to clear)")
	cmd.Flags().StringP("initial-balance", "b", "", "New opening balance")
	cmd.Flags().Int("sort-order", 0, "New position within its account type")
	cmd.Flags().StringP("type", "t", "", "Move to this account type id")
	cmd.Flags().Bool("no-type", false, "Remove the account from its account type")

	return cmd
}

func deleteAccountCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account with no transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				acc, err := a.accounts.FindOne(ctx, a.owner, id)
				if err != nil {
					return err
				}

				if !force {
					ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).
						Confirm(ctx, fmt.Sprintf("Delete account %q?", acc.Name))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
						return nil
					}
				}

				if err := a.accounts.Remove(ctx, a.owner, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted account %q", acc.Name)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func sortAccountsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <id>...",
		Short: "Set the listing order of accounts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.accounts.UpdateSortOrder(ctx, a.owner, ids); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Reordered %d accounts", len(ids))))
				return nil
			})
		},
	}
}

func totalBalanceCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Show the sum of all account balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				total, err := a.accounts.TotalBalance(ctx, a.owner)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total balance: %s\n", cli.FormatAmount(total))
				return nil
			})
		},
	}
}
