// Package cli implements the stu command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/backup"
	"github.com/mesh-intelligence/stu/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values for one invocation.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// NewRootCmd creates the top-level "stu" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "stu",
		Short: "Project bookmarks and dashboard manager",
		Long: "stu keeps a categorized list of project links with favicons,\n" +
			"serves it over HTTP and backs it up to a portable zip archive.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $STU_CONFIG_DIR or the user config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.stu-data)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(flags),
		newServeCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
		newCategoryCmd(flags),
		newProjectCmd(flags),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Errors that never reached a command body are flag and argument
	// parsing failures.
	return exitUserError
}

// exitError carries the exit code chosen for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// userErrorf reports a usage problem detected by the CLI itself.
func userErrorf(format string, a ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, a...)}
}

// classify maps err to an exit code. Rejected input and archive problems
// are user errors; everything else is a system error.
func classify(err error) int {
	var (
		validation *types.ValidationError
		upload     *types.UploadError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &upload),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrReferentialConflict),
		errors.Is(err, types.ErrInvalidCategory):
		return exitUserError
	}

	var restore *backup.RestoreError
	if errors.As(err, &restore) {
		switch {
		case errors.Is(err, types.ErrInvalidArchive),
			errors.Is(err, types.ErrMissingManifest),
			errors.Is(err, types.ErrDuplicateKey):
			return exitUserError
		}
	}
	return exitSysError
}

// runE adapts fn so its error carries an exit code.
func runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		var ee *exitError
		if errors.As(err, &ee) {
			return err
		}
		return &exitError{code: classify(err), err: err}
	}
}
