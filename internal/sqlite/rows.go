// This file implements raw row access used by snapshot export and restore.
// Rows move verbatim between SQLite and JSON, surrogate keys included.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mesh-intelligence/stu/pkg/types"
)

var _ types.RowWriter = rowWriter{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// DumpRows returns every row of table, ordered by id, with the full column
// set of the table.
func (b *Backend) DumpRows(ctx context.Context, table string) ([]types.Row, error) {
	if _, ok := tableColumns[table]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
	}
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id ASC", table))
	if err != nil {
		return nil, fmt.Errorf("dumping %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	out := []types.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		row := make(types.Row, len(cols))
		for i, col := range cols {
			if raw, ok := values[i].([]byte); ok {
				row[col] = string(raw)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}
	return out, nil
}

// RowWriter returns a RowWriter bound to the current connection.
func (b *Backend) RowWriter() (types.RowWriter, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	return rowWriter{q: db}, nil
}

// WithinTx runs fn with a RowWriter bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (b *Backend) WithinTx(ctx context.Context, fn func(types.RowWriter) error) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(rowWriter{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type rowWriter struct {
	q querier
}

// ClearTables deletes projects before categories so the foreign key holds.
func (w rowWriter) ClearTables(ctx context.Context) error {
	for i := len(types.SnapshotTables) - 1; i >= 0; i-- {
		table := types.SnapshotTables[i]
		if _, err := w.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func (w rowWriter) CountRows(ctx context.Context, table string) (int, error) {
	if _, ok := tableColumns[table]; !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
	}
	var n int
	if err := w.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// InsertRows inserts each row with the columns it carries. Unknown fields
// are ignored so archives from other releases still load. The first failing
// row aborts the insert.
func (w rowWriter) InsertRows(ctx context.Context, table string, rows []types.Row) error {
	known, ok := tableColumns[table]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownTable, table)
	}

	for i, row := range rows {
		cols := lo.Filter(known, func(col string, _ int) bool {
			_, present := row[col]
			return present
		})
		if len(cols) == 0 {
			return fmt.Errorf("inserting %s row %d: no known columns", table, i)
		}

		args := make([]any, len(cols))
		for j, col := range cols {
			v, err := sqlValue(row[col])
			if err != nil {
				return fmt.Errorf("inserting %s row %d column %s: %w", table, i, col, err)
			}
			args[j] = v
		}

		stmt := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			table,
			strings.Join(cols, ", "),
			strings.Join(lo.Map(cols, func(string, int) string { return "?" }), ", "),
		)
		if _, err := w.q.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("inserting %s row %d (id %v): %w", table, i, row["id"], err)
		}
	}
	return nil
}

// sqlValue converts a decoded JSON value into a driver-compatible value.
func sqlValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case bool:
		if t {
			return int64(1), nil
		}
		return int64(0), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		return t.Float64()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// expectAffected returns ErrNotFound when res touched no rows.
func expectAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows for %d: %w", id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// isForeignKeyViolation reports whether err is a SQLite foreign key failure.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
