package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/stu/pkg/types"
)

const categoryColumns = "id, name, favicon, sort_order"

// ListCategories returns every category ordered by sort_order, then id.
func (b *Backend) ListCategories(ctx context.Context) ([]types.Category, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM category ORDER BY sort_order ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	categories := []types.Category{}
	for rows.Next() {
		c, err := hydrateCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns the category with the given id or ErrNotFound.
func (b *Backend) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM category WHERE id = ?", id)
	c, err := hydrateCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return c, nil
}

// CategoryExists reports whether a category with id exists.
func (b *Backend) CategoryExists(ctx context.Context, id int64) (bool, error) {
	db, err := b.conn()
	if err != nil {
		return false, err
	}

	var one int
	err = db.QueryRowContext(ctx, "SELECT 1 FROM category WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking category %d: %w", id, err)
	}
	return true, nil
}

// CreateCategory inserts c and returns the new id. c.ID is set on success.
func (b *Backend) CreateCategory(ctx context.Context, c *types.Category) (int64, error) {
	db, err := b.conn()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO category (name, favicon, sort_order) VALUES (?, ?, ?)",
		c.Name, nullString(c.Favicon), c.SortOrder,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading category id: %w", err)
	}
	c.ID = id
	return id, nil
}

// UpdateCategory applies p to the category with id. Nil fields keep their
// stored values. Returns ErrNotFound if no such category exists.
func (b *Backend) UpdateCategory(ctx context.Context, id int64, p types.CategoryPatch) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE category SET
		    name = COALESCE(?, name),
		    favicon = COALESCE(?, favicon),
		    sort_order = COALESCE(?, sort_order)
		 WHERE id = ?`,
		p.Name, p.Favicon, p.SortOrder, id,
	)
	if err != nil {
		return fmt.Errorf("updating category %d: %w", id, err)
	}
	return expectAffected(res, id)
}

// DeleteCategory removes the category with id. Returns
// ErrReferentialConflict while any project references it and ErrNotFound
// if it does not exist.
func (b *Backend) DeleteCategory(ctx context.Context, id int64) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	var refs int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE category_id = ?", id,
	).Scan(&refs); err != nil {
		return fmt.Errorf("counting projects of category %d: %w", id, err)
	}
	if refs > 0 {
		return types.ErrReferentialConflict
	}

	res, err := db.ExecContext(ctx, "DELETE FROM category WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return types.ErrReferentialConflict
		}
		return fmt.Errorf("deleting category %d: %w", id, err)
	}
	return expectAffected(res, id)
}

// hydrateCategory converts a row into a *types.Category.
func hydrateCategory(s scanner) (*types.Category, error) {
	var (
		c       types.Category
		favicon sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &favicon, &c.SortOrder); err != nil {
		return nil, err
	}
	c.Favicon = favicon.String
	return &c, nil
}
