package types

// Project is a bookmarked external link belonging to exactly one category.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	CategoryID  int64  `json:"category_id"`
	SortOrder   int    `json:"sort_order"`
}

// ProjectPatch carries a coalescing update for a project. A nil Favicon
// leaves the stored favicon untouched, which is how an update without a new
// upload keeps the existing icon.
type ProjectPatch struct {
	Name        *string
	Link        *string
	Description *string
	Favicon     *string
	CategoryID  *int64
	SortOrder   *int
}
