package types

// DefaultCategoryName is the category guaranteed to exist after schema
// initialization. Orphaned projects are reassigned to it.
const DefaultCategoryName = "Dev Env"

// Category is a named, ordered grouping of projects.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Favicon   string `json:"favicon,omitempty"` // Public asset path; empty when unset.
	SortOrder int    `json:"sort_order"`
}

// CategoryPatch carries a coalescing update: nil fields keep the stored value.
type CategoryPatch struct {
	Name      *string
	Favicon   *string
	SortOrder *int
}
