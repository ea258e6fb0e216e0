// Package backup exports the catalog to a zip snapshot and restores it.
//
// A snapshot holds categories.json and projects.json, each a JSON array of
// rows keyed by column name, plus every favicon under favicons/. Restore
// rotates the live database and asset directory aside before loading the
// snapshot, so the previous state is always kept on disk.
package backup

// Snapshot entry names.
const (
	CategoriesEntry = "categories.json"
	ProjectsEntry   = "projects.json"
	FaviconsDir     = "favicons/"
)

// Time layouts for archive names and rotation suffixes.
const (
	archiveStampLayout  = "20060102-150405"
	rotationStampLayout = "2006-01-02-15-04-05"
)

// ArchiveName returns the download name of a snapshot taken at stamp.
func ArchiveName(stamp string) string {
	return "stu-backup-" + stamp + ".zip"
}
