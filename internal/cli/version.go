package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the stu release, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/stu/internal/cli.Version=...".
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/stu"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stu version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "stu v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
