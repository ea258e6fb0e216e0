package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/stu/pkg/types"
)

// ensureSchema applies the DDL, upgrades legacy tables, creates the default
// category if absent and reassigns orphaned projects to it. Every step is
// written to the migration log.
func ensureSchema(ctx context.Context, db *sql.DB, log logrus.FieldLogger) error {
	log.Debug("migration started")

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	log.Debug("ensured category and projects tables")

	for _, c := range addedColumns {
		ok, err := hasColumn(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := db.ExecContext(ctx, c.ddl); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.column, err)
		}
		log.WithFields(logrus.Fields{"table": c.table, "column": c.column}).Info("added missing column")
	}

	defaultID, err := ensureDefaultCategory(ctx, db, log)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE projects SET category_id = ?
		 WHERE category_id IS NULL OR category_id = '' OR category_id NOT IN (SELECT id FROM category)`,
		defaultID,
	)
	if err != nil {
		return fmt.Errorf("assigning default category: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.WithField("projects", n).Info("assigned default category to uncategorized projects")
	}

	log.Debug("migration finished")
	return nil
}

// ensureDefaultCategory returns the id of the default category, inserting
// it when missing.
func ensureDefaultCategory(ctx context.Context, db *sql.DB, log logrus.FieldLogger) (int64, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		"SELECT id FROM category WHERE name = ? ORDER BY id LIMIT 1", types.DefaultCategoryName,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("looking up default category: %w", err)
	}

	res, err := db.ExecContext(ctx, "INSERT INTO category (name) VALUES (?)", types.DefaultCategoryName)
	if err != nil {
		return 0, fmt.Errorf("creating default category: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading default category id: %w", err)
	}
	log.WithField("id", id).Info("created default category")
	return id, nil
}

// hasColumn reports whether table has a column with the given name.
func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return false, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, fmt.Errorf("scanning columns of %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
