package cli

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/catalog"
	"github.com/mesh-intelligence/stu/internal/config"
	"github.com/mesh-intelligence/stu/pkg/types"
)

func newCategoryCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(
		newCategoryListCmd(flags),
		newCategoryAddCmd(flags),
		newCategoryUpdateCmd(flags),
		newCategoryDeleteCmd(flags),
	)
	return cmd
}

func newCategoryListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.catalog.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, categories)
			}
			printCategoryTable(cmd, categories)
			return nil
		}),
	}
}

func printCategoryTable(cmd *cobra.Command, categories []types.Category) {
	out := cmd.OutOrStdout()
	if len(categories) == 0 {
		fmt.Fprintln(out, "No categories found.")
		return
	}
	printTable(out, []string{"ID", "NAME", "ORDER", "FAVICON"},
		lo.Map(categories, func(c types.Category, _ int) []string {
			return []string{
				strconv.FormatInt(c.ID, 10),
				truncate(c.Name, 40),
				strconv.Itoa(c.SortOrder),
				c.Favicon,
			}
		}),
	)
	fmt.Fprintf(out, "Total: %d category(ies)\n", len(categories))
}

func newCategoryAddCmd(flags *rootFlags) *cobra.Command {
	var (
		sortOrder   int
		faviconPath string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Long: `Add creates a category. A favicon image may be attached with --favicon.

Example:
  stu category add "Side Projects"
  stu category add Work --sort-order 1 --favicon ./work.png`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			upload, err := readUpload(faviconPath)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			in := catalog.CategoryInput{Name: args[0], Favicon: upload}
			if cmd.Flags().Changed("sort-order") {
				in.SortOrder = &sortOrder
			}
			c, err := a.catalog.CreateCategory(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printCategory(cmd, flags, "Category added successfully!", c)
		}),
	}
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "display position")
	cmd.Flags().StringVar(&faviconPath, "favicon", "", "favicon image file")
	return cmd
}

func newCategoryUpdateCmd(flags *rootFlags) *cobra.Command {
	var (
		name        string
		sortOrder   int
		faviconPath string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category",
		Long: `Update changes the fields given as flags. Without --favicon the stored
favicon is kept.

Example:
  stu category update 2 --name Tools
  stu category update 2 --favicon ./tools.ico`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			upload, err := readUpload(faviconPath)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			existing, err := a.catalog.GetCategory(cmd.Context(), id)
			if err != nil {
				return err
			}
			in := catalog.CategoryInput{Name: existing.Name, Favicon: upload}
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if cmd.Flags().Changed("sort-order") {
				in.SortOrder = &sortOrder
			}
			c, err := a.catalog.UpdateCategory(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return printCategory(cmd, flags, "Category updated successfully!", c)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "category name")
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "display position")
	cmd.Flags().StringVar(&faviconPath, "favicon", "", "favicon image file")
	return cmd
}

func newCategoryDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Long:  "Delete removes a category. A category still assigned to projects cannot be deleted.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.catalog.DeleteCategory(cmd.Context(), id); err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"deleted": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Category deleted successfully!")
			return nil
		}),
	}
}

func printCategory(cmd *cobra.Command, flags *rootFlags, msg string, c *types.Category) error {
	if flags.jsonMode {
		return printJSON(cmd, c)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	printCategoryTable(cmd, []types.Category{*c})
	return nil
}
