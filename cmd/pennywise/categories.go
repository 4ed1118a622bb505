package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pennywise/internal/category"
	"github.com/Veraticus/pennywise/internal/cli"
	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

func categoriesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage the income and expense category trees",
	}

	cmd.AddCommand(listCategoriesCmd(e))
	cmd.AddCommand(showCategoryCmd(e))
	cmd.AddCommand(addCategoryCmd(e))
	cmd.AddCommand(updateCategoryCmd(e))
	cmd.AddCommand(deleteCategoryCmd(e))
	cmd.AddCommand(sortCategoriesCmd(e))

	return cmd
}

func listCategoriesCmd(e *env) *cobra.Command {
	var (
		keyword  string
		typeFlag string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the category forest",
		Long: `Show the category forest. With --keyword, matching categories are
shown together with their ancestors.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := service.CategoryFilter{Keyword: keyword}
			if typeFlag != "" {
				t, err := parseCategoryType(typeFlag)
				if err != nil {
					return err
				}
				filter.Types = []model.CategoryType{t}
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				forest, err := a.categories.FindAll(ctx, a.owner, filter)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if forest.Total == 0 {
					fmt.Fprintln(out, cli.SubtleStyle.Render("No categories found."))
					return nil
				}
				printForest(out, forest.Roots, false)
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d categories", forest.Total)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "Only categories whose name contains this text")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "Only income or expense categories")

	return cmd
}

func showCategoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one category and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				node, err := a.categories.FindOne(ctx, a.owner, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if node.Description != "" {
					fmt.Fprintln(out, cli.SubtleStyle.Render(node.Description))
				}
				printForest(out, []*model.CategoryNode{node}, false)
				return nil
			})
		},
	}
}

func addCategoryCmd(e *env) *cobra.Command {
	var (
		typeFlag    string
		parent      string
		description string
		iconID      string
		sortOrder   int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Long: `Create a category. A child category takes its parent's type, so --type
may be omitted when --parent is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := category.CreateInput{
				Name:        args[0],
				Description: description,
				IconID:      iconID,
				SortOrder:   sortOrder,
			}
			if typeFlag != "" {
				t, err := parseCategoryType(typeFlag)
				if err != nil {
					return err
				}
				in.Type = t
			}
			if parent != "" {
				id, err := parseID(parent)
				if err != nil {
					return err
				}
				in.ParentID = &id
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				if in.Type == "" && in.ParentID != nil {
					p, err := a.categories.FindOne(ctx, a.owner, *in.ParentID)
					if err != nil {
						return err
					}
					in.Type = p.Type
				}

				c, err := a.categories.Create(ctx, a.owner, in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %s category %q (id %d)", strings.ToLower(string(c.Type)), c.Name, c.ID)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "income or expense")
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "Parent category id")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Category description")
	cmd.Flags().StringVar(&iconID, "icon", "", "Icon id")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "Position among siblings")

	return cmd
}

func updateCategoryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename, retype or move a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			patch := category.UpdatePatch{
				Name:        changedString(cmd, "name"),
				Description: changedString(cmd, "description"),
				IconID:      changedString(cmd, "icon"),
				SortOrder:   changedInt(cmd, "sort-order"),
			}
			if s := changedString(cmd, "type"); s != nil {
				t, err := parseCategoryType(*s)
				if err != nil {
					return err
				}
				patch.Type = &t
			}

			toRoot, _ := cmd.Flags().GetBool("root")
			parentID, err := changedID(cmd, "parent")
			if err != nil {
				return err
			}
			switch {
			case toRoot && parentID != nil:
				return common.BadRequestf("--parent and --root cannot be combined")
			case toRoot:
				patch.Parent = &category.ParentUpdate{}
			case parentID != nil:
				patch.Parent = &category.ParentUpdate{ID: parentID}
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.categories.Update(ctx, a.owner, id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated category %q", c.Name)))
				return nil
			})
		},
	}

	cmd.Flags().StringP("name", "n", "", "New name")
	cmd.Flags().StringP("type", "t", "", "New type (income or expense)")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("icon", "", "New icon id (empty to clear)")
	cmd.Flags().Int("sort-order", 0, "New position among siblings")
	cmd.Flags().StringP("parent", "p", "", "Move under this category id")
	cmd.Flags().Bool("root", false, "Detach to a top-level category")

	return cmd
}

func deleteCategoryCmd(e *env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category, its descendants and their transactions",
		Long: `Delete a category together with every descendant. Transactions filed
under any of them are reversed and removed first, so account balances stay
correct.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				node, err := a.categories.FindOne(ctx, a.owner, id)
				if err != nil {
					return err
				}

				if !force {
					count := 0
					node.Walk(func(*model.CategoryNode) { count++ })
					question := fmt.Sprintf("Delete %q and %d descendants with their transactions?", node.Name, count-1)
					ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx, question)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
						return nil
					}
				}

				if err := a.categories.Remove(ctx, a.owner, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %q", node.Name)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func sortCategoriesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <id>...",
		Short: "Set the order of categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return e.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.categories.UpdateSortOrder(ctx, a.owner, ids); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Reordered %d categories", len(ids))))
				return nil
			})
		},
	}
}

// printForest writes one indented line per node. withAmounts adds each
// node's rolled-up total.
func printForest(w io.Writer, roots []*model.CategoryNode, withAmounts bool) {
	var walk func(nodes []*model.CategoryNode, depth int)
	walk = func(nodes []*model.CategoryNode, depth int) {
		for _, n := range nodes {
			line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depth), cli.SubtleStyle.Render(fmt.Sprintf("[%d]", n.ID)), n.Name)
			if depth == 0 {
				line += " " + cli.SubtleStyle.Render(strings.ToLower(string(n.Type)))
			}
			if withAmounts {
				line += "  " + cli.BoldStyle.Render(model.FormatMoney(n.Amount))
			}
			fmt.Fprintln(w, line)
			walk(n.Children, depth+1)
		}
	}
	walk(roots, 0)
}
