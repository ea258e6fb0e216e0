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

func newProjectCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newProjectListCmd(flags),
		newProjectAddCmd(flags),
		newProjectUpdateCmd(flags),
		newProjectDeleteCmd(flags),
	)
	return cmd
}

func newProjectListCmd(flags *rootFlags) *cobra.Command {
	var categoryID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Long: `List shows projects in display order. Use --category to show one
category only.

Example:
  stu project list
  stu project list --category 1 --json`,
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.catalog.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if categoryID != 0 {
				projects = lo.Filter(projects, func(p types.Project, _ int) bool {
					return p.CategoryID == categoryID
				})
			}
			if flags.jsonMode {
				return printJSON(cmd, projects)
			}
			printProjectTable(cmd, projects)
			return nil
		}),
	}
	cmd.Flags().Int64Var(&categoryID, "category", 0, "only projects of this category id")
	return cmd
}

func printProjectTable(cmd *cobra.Command, projects []types.Project) {
	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return
	}
	printTable(out, []string{"ID", "NAME", "CATEGORY", "ORDER", "LINK"},
		lo.Map(projects, func(p types.Project, _ int) []string {
			return []string{
				strconv.FormatInt(p.ID, 10),
				truncate(p.Name, 40),
				strconv.FormatInt(p.CategoryID, 10),
				strconv.Itoa(p.SortOrder),
				truncate(p.Link, 60),
			}
		}),
	)
	fmt.Fprintf(out, "Total: %d project(s)\n", len(projects))
}

// projectFlags are the editable project fields.
type projectFlags struct {
	name        string
	link        string
	description string
	categoryID  int64
	sortOrder   int
	faviconPath string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "project name")
	cmd.Flags().StringVar(&f.link, "link", "", "project URL (http or https)")
	cmd.Flags().StringVar(&f.description, "description", "", "short description")
	cmd.Flags().Int64Var(&f.categoryID, "category", 0, "category id")
	cmd.Flags().IntVar(&f.sortOrder, "sort-order", 0, "display position")
	cmd.Flags().StringVar(&f.faviconPath, "favicon", "", "favicon image file (default: looked up from the link)")
}

// apply copies the flags set on cmd onto in.
func (f *projectFlags) apply(cmd *cobra.Command, in *catalog.ProjectInput) {
	set := cmd.Flags().Changed
	if set("name") {
		in.Name = f.name
	}
	if set("link") {
		in.Link = f.link
	}
	if set("description") {
		in.Description = f.description
	}
	if set("category") {
		in.CategoryID = f.categoryID
	}
	if set("sort-order") {
		in.SortOrder = &f.sortOrder
	}
}

func newProjectAddCmd(flags *rootFlags) *cobra.Command {
	var pf projectFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project",
		Long: `Add creates a project. Without --favicon the icon is looked up from
the link; a failed lookup leaves the project without one.

Example:
  stu project add --name stu --link https://example.com --category 1`,
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			upload, err := readUpload(pf.faviconPath)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			in := catalog.ProjectInput{Favicon: upload}
			pf.apply(cmd, &in)
			p, err := a.catalog.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printProject(cmd, flags, "Project added successfully!", p)
		}),
	}
	pf.register(cmd)
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("link")
	cmd.MarkFlagRequired("category")
	return cmd
}

func newProjectUpdateCmd(flags *rootFlags) *cobra.Command {
	var pf projectFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Long: `Update changes the fields given as flags. Without --favicon the stored
favicon is kept, or looked up from the link when there is none.

Example:
  stu project update 3 --description "Internal wiki"`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			upload, err := readUpload(pf.faviconPath)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			existing, err := a.catalog.GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			in := catalog.ProjectInput{
				Name:        existing.Name,
				Link:        existing.Link,
				Description: existing.Description,
				CategoryID:  existing.CategoryID,
				SortOrder:   &existing.SortOrder,
				Favicon:     upload,
			}
			pf.apply(cmd, &in)
			p, err := a.catalog.UpdateProject(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return printProject(cmd, flags, "Project updated successfully!", p)
		}),
	}
	pf.register(cmd)
	return cmd
}

func newProjectDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
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

			if err := a.catalog.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"deleted": id})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Project deleted successfully!")
			return nil
		}),
	}
}

func printProject(cmd *cobra.Command, flags *rootFlags, msg string, p *types.Project) error {
	if flags.jsonMode {
		return printJSON(cmd, p)
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	printProjectTable(cmd, []types.Project{*p})
	return nil
}
