package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/storage"
)

func checkpointCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore, and delete database checkpoints.

Checkpoints allow you to save the current state of your ledger before making
risky changes, and restore to a previous state if needed.`,
		Example: `  # Create a checkpoint before a big cleanup
  pennywise checkpoint create --tag "pre-cleanup"

  # List all checkpoints
  pennywise checkpoint list

  # Restore from a checkpoint
  pennywise checkpoint restore pre-cleanup`,
	}

	cmd.AddCommand(createCheckpointCmd(e))
	cmd.AddCommand(listCheckpointsCmd(e))
	cmd.AddCommand(restoreCheckpointCmd(e))
	cmd.AddCommand(deleteCheckpointCmd(e))

	return cmd
}

// withCheckpoints opens the database and its checkpoint manager for fn.
func (e *env) withCheckpoints(cmd *cobra.Command, fn func(ctx context.Context, m *storage.CheckpointManager) error) error {
	ctx := cmd.Context()
	store, err := e.initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := storage.NewCheckpointManager(store)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return checkpointError(fn(ctx, manager))
}

// checkpointError maps storage checkpoint sentinels onto domain errors.
func checkpointError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrCheckpointNotFound):
		return common.NotFoundf("%v", err)
	case errors.Is(err, storage.ErrCheckpointExists):
		return common.Conflictf("%v", err)
	case errors.Is(err, storage.ErrInvalidCheckpointID):
		return common.BadRequestf("%v", err)
	}
	return err
}

func createCheckpointCmd(e *env) *cobra.Command {
	var tag string
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withCheckpoints(cmd, func(ctx context.Context, m *storage.CheckpointManager) error {
				info, err := m.Create(ctx, tag, description)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created checkpoint %s (%s)", info.ID, formatFileSize(info.FileSize))))
				if info.Description != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  Description: %s\n", info.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")

	return cmd
}

func listCheckpointsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withCheckpoints(cmd, func(ctx context.Context, m *storage.CheckpointManager) error {
				checkpoints, err := m.List(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(checkpoints) == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No checkpoints found."))
					return nil
				}

				table := cli.NewTable(out, "NAME", "CREATED", "SIZE", "ACCOUNTS", "CATEGORIES", "TRANSACTIONS", "TYPE")
				for _, cp := range checkpoints {
					typeLabel := "manual"
					if cp.IsAuto {
						typeLabel = "auto"
					}
					table.Row(cp.ID, formatRelativeTime(cp.CreatedAt, time.Now()), formatFileSize(cp.FileSize),
						cp.Accounts, cp.Categories, cp.Transactions, typeLabel)
				}
				return table.Flush()
			})
		},
	}
}

func restoreCheckpointCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore database from a checkpoint",
		Long:  `Replace the current database with a checkpoint.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkpointID := args[0]
			return e.withCheckpoints(cmd, func(ctx context.Context, m *storage.CheckpointManager) error {
				if !force {
					question := fmt.Sprintf("Replace the current database with checkpoint %s?", checkpointID)
					ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx, question)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Restore cancelled."))
						return nil
					}
				}

				if err := m.Restore(ctx, checkpointID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Restored from checkpoint "+checkpointID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func deleteCheckpointCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkpointID := args[0]
			return e.withCheckpoints(cmd, func(ctx context.Context, m *storage.CheckpointManager) error {
				if !force {
					ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).
						Confirm(ctx, fmt.Sprintf("Permanently delete checkpoint %s?", checkpointID))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
						return nil
					}
				}

				if err := m.Delete(ctx, checkpointID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted checkpoint "+checkpointID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
