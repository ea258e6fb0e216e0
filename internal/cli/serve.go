package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/api"
	"github.com/mesh-intelligence/stu/internal/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and favicon files",
		Long: `Serve runs the HTTP API until interrupted. SIGINT or SIGTERM drains
in-flight requests before exiting.

Example:
  stu serve
  stu serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags, config.Overrides{ListenAddr: addr})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := api.New(a.cfg.ListenAddr, api.Deps{
				Catalog:  a.catalog,
				Exporter: a.exporter,
				Restorer: a.importer,
				Assets:   a.assets,
			}, a.log)
			if err := srv.Run(ctx, shutdownTimeout); err != nil {
				return sysError(err)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config)")
	return cmd
}
