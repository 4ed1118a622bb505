package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/account"
	"github.com/Veraticus/pennywise/internal/cli"
)

func accountTypesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "types",
		Aliases: []string{"type"},
		Short:   "Manage the account types accounts are grouped under",
	}

	cmd.AddCommand(listAccountTypesCmd(e))
	cmd.AddCommand(addAccountTypeCmd(e))
	cmd.AddCommand(updateAccountTypeCmd(e))
	cmd.AddCommand(deleteAccountTypeCmd(e))
	cmd.AddCommand(sortAccountTypesCmd(e))

	return cmd
}

func listAccountTypesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List account types with their account counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				types, err := a.accountTypes.FindAll(ctx, a.owner)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(types) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No account types found. Run init to create the defaults."))
					return nil
				}

				table := cli.NewTable(out, "ID", "NAME", "ACCOUNTS", "DESCRIPTION")
				for _, t := range types {
					table.Row(t.ID, t.Name, t.AccountCount, t.Description)
				}
				if err := table.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d account types", len(types))))
				return nil
			})
		},
	}
}

func addAccountTypeCmd(e *env) *cobra.Command {
	var in account.TypeInput

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.accountTypes.Create(ctx, a.owner, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created account type %q (id %d)", t.Name, t.ID)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Account type description")
	cmd.Flags().StringVar(&in.IconID, "icon", "", "Icon id")
	cmd.Flags().IntVar(&in.SortOrder, "sort-order", 0, "Position in listings")

	return cmd
}

func updateAccountTypeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch := account.TypePatch{
				Name:        changedString(cmd, "name"),
				Description: changedString(cmd, "description"),
				IconID:      changedString(cmd, "icon"),
				SortOrder:   changedInt(cmd, "sort-order"),
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.accountTypes.Update(ctx, a.owner, id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated account type %q", t.Name)))
				return nil
			})
		},
	}

	cmd.Flags().StringP("name", "n", "", "New name")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("icon", "", "New icon id (empty to clear)")
	cmd.Flags().Int("sort-order", 0, "New position in listings")

	return cmd
}

func deleteAccountTypeCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account type no account belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.accountTypes.FindOne(ctx, a.owner, id)
				if err != nil {
					return err
				}

				if !force {
					ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).
						Confirm(ctx, fmt.Sprintf("Delete account type %q?", t.Name))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
						return nil
					}
				}

				if err := a.accountTypes.Remove(ctx, a.owner, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted account type %q", t.Name)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func sortAccountTypesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <id>...",
		Short: "Set the listing order of account types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.accountTypes.UpdateSortOrder(ctx, a.owner, ids); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Reordered %d account types", len(ids))))
				return nil
			})
		},
	}
}

// typeNames maps account type ids to names for listings.
func typeNames(ctx context.Context, a *app) (map[int64]string, error) {
	types, err := a.accountTypes.FindAll(ctx, a.owner)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}
	return names, nil
}
