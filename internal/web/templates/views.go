// Package templates holds the HTML components of the web UI and admin site.
//
// Components are written in .templ files; run `templ generate` after editing
// them to refresh the _templ.go files.
package templates

import "net/url"

// TableEntry is one row of the registered table listing.
type TableEntry struct {
	Title string
	Table string
}

// AdminURL links to the table's change list.
func (t TableEntry) AdminURL() string {
	return "/admin/" + t.Table + "/"
}

// ContentURL links to the table's JSON content.
func (t TableEntry) ContentURL() string {
	return "/receive_table_content/?table_name=" + url.QueryEscape(t.Table)
}

// AdminEntry is one registered model on the admin index.
type AdminEntry struct {
	Title string
	Table string
	URL   string
}

// ListRow is one row of a change list. Cells are already formatted.
type ListRow struct {
	URL   string
	Cells []string
}

// ChangeListData feeds the ChangeList page.
type ChangeListData struct {
	Title   string
	AddURL  string
	Columns []string
	Rows    []ListRow
}

// FormField is one input of a change form.
type FormField struct {
	Name      string
	Label     string
	InputType string // "text" or "number"
	MaxLength int
	Value     string
	Error     string
}

// ChangeFormData feeds the ChangeForm page.
type ChangeFormData struct {
	Heading   string
	Action    string
	ListURL   string
	DeleteURL string // empty on the add form
	Fields    []FormField
}

// DeleteData feeds the DeleteConfirm page.
type DeleteData struct {
	Heading   string
	Action    string
	CancelURL string
	Summary   []string
}
