package cli

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/stu/internal/assets"
	"github.com/mesh-intelligence/stu/internal/backup"
	"github.com/mesh-intelligence/stu/internal/catalog"
	"github.com/mesh-intelligence/stu/internal/config"
	"github.com/mesh-intelligence/stu/internal/favicon"
	"github.com/mesh-intelligence/stu/internal/logging"
	"github.com/mesh-intelligence/stu/internal/paths"
	"github.com/mesh-intelligence/stu/internal/sqlite"
	"github.com/mesh-intelligence/stu/pkg/types"
)

// app is the set of components one command works with.
type app struct {
	cfg       types.Config
	log       *logrus.Logger
	logCloser io.Closer
	store     *sqlite.Backend
	assets    *assets.Store
	catalog   *catalog.Service
	exporter  *backup.Exporter
	importer  *backup.Importer
}

// openApp loads configuration and wires storage, favicon lookup, the
// catalog and backup around it. The caller must Close the app.
func openApp(cmd *cobra.Command, flags *rootFlags, o config.Overrides) (*app, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, sysError(err)
	}
	o.DataDir = flags.dataDir

	cfg, err := config.Load(configDir, o)
	if err != nil {
		return nil, sysError(err)
	}

	log, logCloser, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, sysError(err)
	}

	store, err := sqlite.Open(config.DBPath(cfg), log)
	if err != nil {
		logCloser.Close()
		return nil, sysError(err)
	}

	files := assets.New(cfg.AssetDir, cfg.AssetPrefix)
	fetcher := favicon.NewHTTPFetcher(cfg.Favicon.Timeout, cfg.Favicon.MaxRedirects, cfg.Favicon.UserAgent)
	resolver := favicon.NewResolver(fetcher, files, log)

	return &app{
		cfg:       cfg,
		log:       log,
		logCloser: logCloser,
		store:     store,
		assets:    files,
		catalog:   catalog.New(store, files, resolver, log),
		exporter:  backup.NewExporter(store, files, log),
		importer: backup.NewImporter(store, files, log,
			backup.WithAtomicTables(cfg.Restore.Atomic),
			backup.WithMaxExtractBytes(cfg.Restore.MaxBytes),
		),
	}, nil
}

// Close releases the database and the log file.
func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.logCloser.Close())
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}
