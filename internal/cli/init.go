package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/config"
	"github.com/mesh-intelligence/stu/internal/paths"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize stu configuration and storage",
		Long: `Create the configuration directory with a default config.yaml, then
create the database with its default category. Running init again keeps
an existing config.yaml and only ensures the schema.`,
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, flags)
		}),
	}
}

func runInit(cmd *cobra.Command, flags *rootFlags) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return sysError(err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, "")
	if err != nil {
		return sysError(err)
	}

	configPath, err := config.WriteDefault(configDir, dataDir)
	if err != nil {
		return sysError(err)
	}

	a, err := openApp(cmd, flags, config.Overrides{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.assets.Recreate(); err != nil {
		return sysError(fmt.Errorf("create asset directory: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "stu initialized successfully")
	fmt.Fprintf(out, "config:   %s\n", configPath)
	fmt.Fprintf(out, "database: %s\n", a.store.Path())
	fmt.Fprintf(out, "assets:   %s\n", a.assets.Dir())
	return nil
}
