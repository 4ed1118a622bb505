package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/ledger"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func transactionsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions", "transaction"},
		Short:   "Record and browse ledger transactions",
	}

	cmd.AddCommand(listTransactionsCmd(e))
	cmd.AddCommand(showTransactionCmd(e))
	cmd.AddCommand(addTransactionCmd(e))
	cmd.AddCommand(updateTransactionCmd(e))
	cmd.AddCommand(deleteTransactionCmd(e))

	return cmd
}

type listTransactionsOptions struct {
	from, to   string
	min, max   string
	keyword    string
	types      []string
	accounts   []string
	categories []string
	senders    []string
	receivers  []string
	sort       []string
	skip, take int
}

func (o *listTransactionsOptions) filter(loc *time.Location) (service.TransactionFilter, error) {
	filter := service.TransactionFilter{Keyword: o.keyword, Skip: o.skip, Take: o.take}

	rng, err := parseRange(o.from, o.to, loc)
	if err != nil {
		return filter, err
	}
	filter.Date = rng

	if o.min != "" || o.max != "" {
		if o.min == "" || o.max == "" {
			return filter, common.BadRequestf("--min and --max must be given together")
		}
		lo, err := parseAmount(o.min)
		if err != nil {
			return filter, err
		}
		hi, err := parseAmount(o.max)
		if err != nil {
			return filter, err
		}
		filter.Amount = &service.AmountRange{Min: lo, Max: hi}
	}

	for _, s := range o.types {
		t, err := parseTransactionType(s)
		if err != nil {
			return filter, err
		}
		filter.Types = append(filter.Types, t)
	}

	if filter.AccountIDs, err = parseIDs(o.accounts); err != nil {
		return filter, err
	}
	if filter.CategoryIDs, err = parseIDs(o.categories); err != nil {
		return filter, err
	}
	if filter.SenderAccountIDs, err = parseIDs(o.senders); err != nil {
		return filter, err
	}
	if filter.ReceiverAccountIDs, err = parseIDs(o.receivers); err != nil {
		return filter, err
	}

	for _, s := range o.sort {
		key := service.SortKey{Field: service.SortField(s)}
		if field, dir, ok := strings.Cut(s, ":"); ok {
			key.Field = service.SortField(field)
			switch strings.ToLower(dir) {
			case "desc":
				key.Desc = true
			case "asc":
			default:
				return filter, common.BadRequestf("invalid sort direction %q: want asc or desc", dir)
			}
		}
		filter.Sort = append(filter.Sort, key)
	}

	return filter, nil
}

func listTransactionsCmd(e *env) *cobra.Command {
	opts := &listTransactionsOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Example: `  # Expenses in March, largest first
  pennywise tx list --from 2024-03-01 --to 2024-03-31 --type expense --sort amount:desc

  # Everything touching account 2 as a standard transaction
  pennywise tx list --account 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(e.cfg.Location)
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				page, err := a.ledger.FindAll(ctx, a.owner, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(page.Items) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions found."))
					return nil
				}

				table := cli.NewTable(out, "ID", "DATE", "TYPE", "AMOUNT", "ACCOUNTS", "CATEGORY", "DESCRIPTION")
				for i := range page.Items {
					txn := &page.Items[i]
					accounts, categoryID := describeShape(txn)
					table.Row(txn.ID, formatDate(txn.Date, a.loc), cli.FormatType(txn.Type),
						cli.FormatSigned(txn.Type, txn.Amount), accounts, categoryID, txn.Description)
				}
				if err := table.Flush(); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d of %d transactions", len(page.Items), page.Total)))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.from, "from", "", "First day, YYYY-MM-DD")
	flags.StringVar(&opts.to, "to", "", "Last day, YYYY-MM-DD")
	flags.StringVar(&opts.min, "min", "", "Smallest amount")
	flags.StringVar(&opts.max, "max", "", "Largest amount")
	flags.StringVarP(&opts.keyword, "keyword", "k", "", "Only descriptions containing this text")
	flags.StringSliceVarP(&opts.types, "type", "t", nil, "income, expense or transfer (repeatable)")
	flags.StringSliceVar(&opts.accounts, "account", nil, "Standard transactions on these account ids")
	flags.StringSliceVar(&opts.categories, "category", nil, "Standard transactions under these category ids")
	flags.StringSliceVar(&opts.senders, "sender", nil, "Transfers from these account ids")
	flags.StringSliceVar(&opts.receivers, "receiver", nil, "Transfers to these account ids")
	flags.StringSliceVar(&opts.sort, "sort", nil, "field[:asc|desc]; fields: transactionDate, amount, type, description, createdAt, updatedAt")
	flags.IntVar(&opts.skip, "skip", 0, "Number of transactions to skip")
	flags.IntVar(&opts.take, "take", 50, "Maximum number of transactions (0 for all)")

	return cmd
}

func showTransactionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				txn, err := a.ledger.FindOne(ctx, a.owner, args[0])
				if err != nil {
					return err
				}
				printTransaction(cmd.OutOrStdout(), txn, a.loc)
				return nil
			})
		},
	}
}

func addTransactionCmd(e *env) *cobra.Command {
	var (
		typeFlag    string
		amount      string
		date        string
		description string
		accountID   int64
		categoryID  int64
		senderID    int64
		receiverID  int64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  # Lunch paid from account 1
  pennywise tx add --type expense --amount 12.50 --account 1 --category 7 -d "Lunch"

  # Move savings between accounts
  pennywise tx add --type transfer --amount 200 --sender 1 --receiver 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txnType, err := parseTransactionType(typeFlag)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			in := ledger.CreateInput{
				Type:              txnType,
				Amount:            value,
				Description:       description,
				AccountID:         accountID,
				CategoryID:        categoryID,
				SenderAccountID:   senderID,
				ReceiverAccountID: receiverID,
			}
			if date != "" {
				if in.Date, err = parseDate(date, e.cfg.Location); err != nil {
					return err
				}
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				txn, err := a.ledger.Create(ctx, a.owner, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s %s (%s)", strings.ToLower(string(txn.Type)), model.FormatMoney(txn.Amount), txn.ID)))
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&typeFlag, "type", "t", "", "income, expense or transfer")
	flags.StringVarP(&amount, "amount", "a", "", "Positive amount, e.g. 12.50")
	flags.StringVar(&date, "date", "", "Transaction date, YYYY-MM-DD (default today)")
	flags.StringVarP(&description, "description", "d", "", "Description")
	flags.Int64Var(&accountID, "account", 0, "Account id for income or expense")
	flags.Int64Var(&categoryID, "category", 0, "Category id for income or expense")
	flags.Int64Var(&senderID, "sender", 0, "Sending account id for a transfer")
	flags.Int64Var(&receiverID, "receiver", 0, "Receiving account id for a transfer")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func updateTransactionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a transaction and rebalance its accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := transactionPatch(cmd, e.cfg.Location)
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				txn, err := a.ledger.Update(ctx, a.owner, args[0], patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated transaction "+txn.ID))
				printTransaction(cmd.OutOrStdout(), txn, a.loc)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringP("type", "t", "", "New type")
	flags.StringP("amount", "a", "", "New amount")
	flags.String("date", "", "New date, YYYY-MM-DD")
	flags.StringP("description", "d", "", "New description")
	flags.String("account", "", "New account id")
	flags.String("category", "", "New category id")
	flags.String("sender", "", "New sending account id")
	flags.String("receiver", "", "New receiving account id")

	return cmd
}

func transactionPatch(cmd *cobra.Command, loc *time.Location) (ledger.UpdatePatch, error) {
	var (
		patch ledger.UpdatePatch
		err   error
	)
	if s := changedString(cmd, "type"); s != nil {
		t, err := parseTransactionType(*s)
		if err != nil {
			return patch, err
		}
		patch.Type = &t
	}
	if patch.Amount, err = changedAmount(cmd, "amount"); err != nil {
		return patch, err
	}
	if s := changedString(cmd, "date"); s != nil {
		d, err := parseDate(*s, loc)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	patch.Description = changedString(cmd, "description")
	if patch.AccountID, err = changedID(cmd, "account"); err != nil {
		return patch, err
	}
	if patch.CategoryID, err = changedID(cmd, "category"); err != nil {
		return patch, err
	}
	if patch.SenderAccountID, err = changedID(cmd, "sender"); err != nil {
		return patch, err
	}
	if patch.ReceiverAccountID, err = changedID(cmd, "receiver"); err != nil {
		return patch, err
	}
	return patch, nil
}

func deleteTransactionCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and reverse its balance effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				txn, err := a.ledger.FindOne(ctx, a.owner, args[0])
				if err != nil {
					return err
				}

				if !force {
					question := fmt.Sprintf("Delete %s of %s on %s?", strings.ToLower(string(txn.Type)), model.FormatMoney(txn.Amount), formatDate(txn.Date, a.loc))
					ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx, question)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
						return nil
					}
				}

				if err := a.ledger.Remove(ctx, a.owner, txn.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted transaction "+txn.ID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// describeShape returns the account column and the category column of a row.
func describeShape(txn *model.Transaction) (string, string) {
	if s, ok := txn.Transfer(); ok {
		return fmt.Sprintf("%d → %d", s.SenderAccountID, s.ReceiverAccountID), "-"
	}
	if s, ok := txn.Standard(); ok {
		return fmt.Sprintf("%d", s.AccountID), fmt.Sprintf("%d", s.CategoryID)
	}
	return "-", "-"
}

func printTransaction(w io.Writer, txn *model.Transaction, loc *time.Location) {
	table := cli.NewTable(w, "FIELD", "VALUE")
	table.Row("id", txn.ID)
	table.Row("date", formatDate(txn.Date, loc))
	table.Row("type", cli.FormatType(txn.Type))
	table.Row("amount", cli.FormatSigned(txn.Type, txn.Amount))
	if s, ok := txn.Transfer(); ok {
		table.Row("sender", s.SenderAccountID)
		table.Row("receiver", s.ReceiverAccountID)
	}
	if s, ok := txn.Standard(); ok {
		table.Row("account", s.AccountID)
		table.Row("category", s.CategoryID)
	}
	table.Row("description", txn.Description)
	table.Row("created", txn.CreatedAt.In(loc).Format(time.DateTime))
	table.Row("updated", txn.UpdatedAt.In(loc).Format(time.DateTime))
	_ = table.Flush()
}
