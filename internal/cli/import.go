package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/config"
)

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive.zip>",
		Short: "Restore all data from a backup archive",
		Long: `Import replaces every category, project and favicon file with the
contents of a backup archive. The current database and favicon directory
are first renamed aside with a timestamp suffix.`,
		Args: cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return userErrorf("open archive: %w", err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return sysError(fmt.Errorf("stat archive: %w", err))
			}

			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.importer.Restore(cmd.Context(), f, info.Size()); err != nil {
				return err
			}

			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"restored": args[0]})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Restoration completed successfully!")
			return nil
		}),
	}
}
