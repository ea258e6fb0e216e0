package sqlite

import "github.com/mesh-intelligence/stu/pkg/types"

// Schema DDL. Statements are idempotent so EnsureSchema can run on every
// startup.
const (
	createCategory = `CREATE TABLE IF NOT EXISTS category (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    favicon TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0
);`

	createProjects = `CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    link TEXT NOT NULL,
    description TEXT,
    favicon TEXT,
    category_id INTEGER,
    sort_order INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (category_id) REFERENCES category(id) ON DELETE RESTRICT
);`

	idxProjectsCategory = `CREATE INDEX IF NOT EXISTS idx_projects_category ON projects(category_id);`
)

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createCategory,
	createProjects,
	idxProjectsCategory,
}

// addedColumns lists columns introduced after the first schema generation.
// Databases created by older releases get them via ALTER TABLE.
var addedColumns = []struct {
	table  string
	column string
	ddl    string
}{
	{types.TableCategories, "sort_order", "ALTER TABLE category ADD COLUMN sort_order INTEGER NOT NULL DEFAULT 0"},
	{types.TableProjects, "sort_order", "ALTER TABLE projects ADD COLUMN sort_order INTEGER NOT NULL DEFAULT 0"},
}

// tableColumns lists the columns restore is allowed to write, per table.
var tableColumns = map[string][]string{
	types.TableCategories: {"id", "name", "favicon", "sort_order"},
	types.TableProjects:   {"id", "name", "link", "description", "favicon", "category_id", "sort_order"},
}
