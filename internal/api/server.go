// Package api exposes the catalog over HTTP. Reads return JSON; mutations
// answer with a redirect to the project listing and carry their outcome in
// a flash cookie.
package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/stu/internal/backup"
	"github.com/mesh-intelligence/stu/internal/catalog"
	"github.com/mesh-intelligence/stu/pkg/types"
)

// Catalog is the category and project service behind the handlers.
type Catalog interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (*types.Category, error)
	UpdateCategory(ctx context.Context, id int64, in catalog.CategoryInput) (*types.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListProjects(ctx context.Context) ([]types.Project, error)
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	CreateProject(ctx context.Context, in catalog.ProjectInput) (*types.Project, error)
	UpdateProject(ctx context.Context, id int64, in catalog.ProjectInput) (*types.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

// Exporter stages snapshot archives.
type Exporter interface {
	Stage(ctx context.Context) (*backup.Archive, error)
}

// Restorer loads snapshot archives.
type Restorer interface {
	Restore(ctx context.Context, r io.ReaderAt, size int64) error
}

// Assets locates the public favicon directory.
type Assets interface {
	Dir() string
	Prefix() string
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Catalog  Catalog
	Exporter Exporter
	Restorer Restorer
	Assets   Assets
}

// Server is the HTTP server.
type Server struct {
	deps   Deps
	log    logrus.FieldLogger
	server *http.Server
}

// New returns a Server listening on addr once started.
func New(addr string, deps Deps, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		deps: deps,
		log:  logger.WithField("component", "api"),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is done, then shuts down within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.server.Addr).Info("starting server")
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
