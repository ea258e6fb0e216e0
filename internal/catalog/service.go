// Package catalog validates and applies changes to categories and
// projects. It owns the favicon rules: an upload wins, an update otherwise
// keeps the stored icon, and a project without one gets an icon resolved
// from its link.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// Store is the persistence the service writes through.
type Store interface {
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CreateCategory(ctx context.Context, c *types.Category) (int64, error)
	UpdateCategory(ctx context.Context, id int64, p types.CategoryPatch) error
	DeleteCategory(ctx context.Context, id int64) error

	ListProjects(ctx context.Context) ([]types.Project, error)
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	CreateProject(ctx context.Context, p *types.Project) (int64, error)
	UpdateProject(ctx context.Context, id int64, p types.ProjectPatch) error
	DeleteProject(ctx context.Context, id int64) error
}

// Uploads stores client supplied favicons.
type Uploads interface {
	SaveUpload(u types.Upload) (string, error)
}

// Resolver finds a favicon for a link; "" means none.
type Resolver interface {
	Resolve(ctx context.Context, link string) string
}

// CategoryInput is a category form submission.
type CategoryInput struct {
	Name      string `validate:"required,min=2,max=100"`
	SortOrder *int
	Favicon   *types.Upload `validate:"-"`
}

// ProjectInput is a project form submission.
type ProjectInput struct {
	Name        string `validate:"required,min=2,max=100,projectname"`
	Link        string `validate:"required,max=255,httpurl"`
	Description string `validate:"max=500"`
	CategoryID  int64  `validate:"gt=0"`
	SortOrder   *int
	Favicon     *types.Upload `validate:"-"`
}

// Service applies validated catalog changes.
type Service struct {
	store    Store
	uploads  Uploads
	resolver Resolver
	validate *validator.Validate
	log      logrus.FieldLogger
}

// New returns a Service. resolver may be nil to disable automatic favicon
// lookup.
func New(store Store, uploads Uploads, resolver Resolver, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:    store,
		uploads:  uploads,
		resolver: resolver,
		validate: newValidator(),
		log:      logger.WithField("component", "catalog"),
	}
}

// ListCategories returns all categories in display order.
func (s *Service) ListCategories(ctx context.Context) ([]types.Category, error) {
	return s.store.ListCategories(ctx)
}

// GetCategory returns one category or types.ErrNotFound.
func (s *Service) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// CreateCategory validates in, stores an uploaded favicon and inserts the
// category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*types.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	favicon, err := s.saveUpload(in.Favicon)
	if err != nil {
		return nil, err
	}

	c := &types.Category{Name: in.Name, Favicon: favicon}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if _, err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	s.log.WithFields(logrus.Fields{"id": c.ID, "name": c.Name}).Info("category created")
	return c, nil
}

// UpdateCategory renames the category and replaces its favicon when one is
// uploaded. Without an upload the stored favicon is kept.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*types.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	patch := types.CategoryPatch{Name: &in.Name, SortOrder: in.SortOrder}
	favicon, err := s.saveUpload(in.Favicon)
	if err != nil {
		return nil, err
	}
	if favicon != "" {
		patch.Favicon = &favicon
	}

	if err := s.store.UpdateCategory(ctx, id, patch); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating category %d: %w", id, err)
	}
	s.log.WithField("id", id).Info("category updated")
	return s.store.GetCategory(ctx, id)
}

// DeleteCategory removes a category. It returns
// types.ErrReferentialConflict while projects still use it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, types.ErrReferentialConflict) || errors.Is(err, types.ErrNotFound) {
			s.log.WithField("id", id).WithError(err).Info("category not deleted")
			return err
		}
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	s.log.WithField("id", id).Info("category deleted")
	return nil
}

// ListProjects returns all projects in display order.
func (s *Service) ListProjects(ctx context.Context) ([]types.Project, error) {
	return s.store.ListProjects(ctx)
}

// GetProject returns one project or types.ErrNotFound.
func (s *Service) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	return s.store.GetProject(ctx, id)
}

// CreateProject validates in and inserts the project. Without an upload
// the favicon is resolved from the link; a failed lookup leaves it empty.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*types.Project, error) {
	if err := s.checkProject(ctx, &in); err != nil {
		return nil, err
	}

	favicon, err := s.saveUpload(in.Favicon)
	if err != nil {
		return nil, err
	}
	if favicon == "" {
		favicon = s.resolve(ctx, in.Link)
	}

	p := &types.Project{
		Name:        in.Name,
		Link:        in.Link,
		Description: in.Description,
		Favicon:     favicon,
		CategoryID:  in.CategoryID,
		SortOrder:   lo.FromPtr(in.SortOrder),
	}
	if _, err := s.store.CreateProject(ctx, p); err != nil {
		if errors.Is(err, types.ErrInvalidCategory) {
			return nil, types.NewValidationError("category_id", MsgCategory)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}
	s.log.WithFields(logrus.Fields{"id": p.ID, "name": p.Name, "favicon": p.Favicon != ""}).Info("project created")
	return p, nil
}

// UpdateProject replaces every field of the project except a nil
// SortOrder, which keeps the stored value. The favicon is the
// upload if any, else the stored one, else one resolved from the link.
func (s *Service) UpdateProject(ctx context.Context, id int64, in ProjectInput) (*types.Project, error) {
	existing, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, &in); err != nil {
		return nil, err
	}

	favicon, err := s.saveUpload(in.Favicon)
	if err != nil {
		return nil, err
	}
	if favicon == "" {
		favicon = existing.Favicon
	}
	if favicon == "" {
		favicon = s.resolve(ctx, in.Link)
	}

	patch := types.ProjectPatch{
		Name:        &in.Name,
		Link:        &in.Link,
		Description: &in.Description,
		CategoryID:  &in.CategoryID,
		SortOrder:   in.SortOrder,
	}
	if favicon != "" {
		patch.Favicon = &favicon
	}
	if err := s.store.UpdateProject(ctx, id, patch); err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidCategory):
			return nil, types.NewValidationError("category_id", MsgCategory)
		case errors.Is(err, types.ErrNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("updating project %d: %w", id, err)
	}
	s.log.WithField("id", id).Info("project updated")
	return s.store.GetProject(ctx, id)
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	s.log.WithField("id", id).Info("project deleted")
	return nil
}

// checkProject normalizes in and validates it field by field, then checks
// that the category exists.
func (s *Service) checkProject(ctx context.Context, in *ProjectInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	in.Description = strings.TrimSpace(in.Description)

	if err := check(s.validate, in); err != nil {
		return err
	}
	ok, err := s.store.CategoryExists(ctx, in.CategoryID)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if !ok {
		return types.NewValidationError("category_id", MsgCategory)
	}
	return nil
}

// saveUpload stores u when the client sent one. It returns "" when no file
// was sent.
func (s *Service) saveUpload(u *types.Upload) (string, error) {
	if !u.Present() {
		return "", nil
	}
	path, err := s.uploads.SaveUpload(*u)
	if err != nil {
		s.log.WithError(err).Info("favicon upload rejected")
		return "", err
	}
	return path, nil
}

func (s *Service) resolve(ctx context.Context, link string) string {
	if s.resolver == nil {
		return ""
	}
	return s.resolver.Resolve(ctx, link)
}
