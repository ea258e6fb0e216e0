package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/stu/pkg/types"
)

const projectColumns = "id, name, link, description, favicon, category_id, sort_order"

// ListProjects returns every project ordered by sort_order, then id.
func (b *Backend) ListProjects(ctx context.Context) ([]types.Project, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY sort_order ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		p, err := hydrateProject(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// GetProject returns the project with the given id or ErrNotFound.
func (b *Backend) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := hydrateProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting project %d: %w", id, err)
	}
	return p, nil
}

// CreateProject inserts p and returns the new id. Returns
// ErrInvalidCategory when p.CategoryID does not reference a category.
func (b *Backend) CreateProject(ctx context.Context, p *types.Project) (int64, error) {
	db, err := b.conn()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO projects (name, link, description, favicon, category_id, sort_order) VALUES (?, ?, ?, ?, ?, ?)",
		p.Name, p.Link, p.Description, nullString(p.Favicon), p.CategoryID, p.SortOrder,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, types.ErrInvalidCategory
		}
		return 0, fmt.Errorf("inserting project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading project id: %w", err)
	}
	p.ID = id
	return id, nil
}

// UpdateProject applies patch to the project with id. Nil fields keep their
// stored values.
func (b *Backend) UpdateProject(ctx context.Context, id int64, patch types.ProjectPatch) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE projects SET
		    name = COALESCE(?, name),
		    link = COALESCE(?, link),
		    description = COALESCE(?, description),
		    favicon = COALESCE(?, favicon),
		    category_id = COALESCE(?, category_id),
		    sort_order = COALESCE(?, sort_order)
		 WHERE id = ?`,
		patch.Name, patch.Link, patch.Description, patch.Favicon, patch.CategoryID, patch.SortOrder, id,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.ErrInvalidCategory
		}
		return fmt.Errorf("updating project %d: %w", id, err)
	}
	return expectAffected(res, id)
}

// DeleteProject removes the project with id.
func (b *Backend) DeleteProject(ctx context.Context, id int64) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	return expectAffected(res, id)
}

// hydrateProject converts a row into a *types.Project.
func hydrateProject(s scanner) (*types.Project, error) {
	var (
		p           types.Project
		description sql.NullString
		favicon     sql.NullString
		categoryID  sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Link, &description, &favicon, &categoryID, &p.SortOrder); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Favicon = favicon.String
	p.CategoryID = categoryID.Int64
	return &p, nil
}
