package types

import "context"

// RowWriter repopulates tables verbatim during a snapshot restore. It is
// implemented by the storage backend both directly and inside a transaction.
type RowWriter interface {
	// ClearTables deletes every row of every snapshot table.
	ClearTables(ctx context.Context) error

	// CountRows returns the number of rows in table.
	CountRows(ctx context.Context, table string) (int, error)

	// InsertRows inserts rows into table keeping their primary keys.
	// Columns the table does not know are ignored.
	InsertRows(ctx context.Context, table string, rows []Row) error
}
