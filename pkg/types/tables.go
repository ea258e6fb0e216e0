package types

// Table names as they exist in the SQLite database and in snapshot archives.
const (
	TableCategories = "category"
	TableProjects   = "projects"
)

// SnapshotTables lists the tables in restore order. Categories come first so
// that project foreign keys resolve.
var SnapshotTables = []string{
	TableCategories,
	TableProjects,
}

// Row is a single table row keyed by column name. Snapshot export and
// restore move rows verbatim, including surrogate keys.
type Row map[string]any
