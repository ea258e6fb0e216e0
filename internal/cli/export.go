package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/config"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup archive of all data",
		Long: `Export writes categories, projects and favicon files to a zip archive.
Without --output the archive is named stu-backup-<timestamp>.zip in the
current directory.

Example:
  stu export
  stu export -o backup.zip`,
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			archive, err := a.exporter.Stage(cmd.Context())
			if err != nil {
				return err
			}
			defer archive.Close()

			path := output
			if path == "" {
				path = archive.Name
			}
			f, err := os.Create(path)
			if err != nil {
				return sysError(fmt.Errorf("create %s: %w", path, err))
			}
			if _, err := archive.WriteTo(f); err != nil {
				f.Close()
				return sysError(fmt.Errorf("write %s: %w", path, err))
			}
			if err := f.Close(); err != nil {
				return sysError(fmt.Errorf("close %s: %w", path, err))
			}

			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"path": path, "bytes": archive.Size})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, archive.Size)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path")
	return cmd
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
