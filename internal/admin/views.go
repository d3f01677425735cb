package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/JonMunkholm/schemadmin/internal/logging"
	"github.com/JonMunkholm/schemadmin/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// modelView serves the pages of one registered table. The registration is
// looked up per request so a re-registered model takes effect immediately.
type modelView struct {
	site  *Site
	table string
}

func (v *modelView) routes(r chi.Router) {
	r.Get("/", v.handleList)
	r.Get("/add/", v.handleAddForm)
	r.Post("/add/", v.handleAdd)
	r.Get("/{id}/", v.handleEditForm)
	r.Post("/{id}/", v.handleEdit)
	r.Get("/{id}/delete/", v.handleDeleteConfirm)
	r.Post("/{id}/delete/", v.handleDelete)
}

func (s *Site) handleIndex(w http.ResponseWriter, r *http.Request) {
	regs := s.Registrations()
	entries := make([]templates.AdminEntry, len(regs))
	for i, reg := range regs {
		entries[i] = templates.AdminEntry{
			Title: reg.Model.Title,
			Table: reg.Model.Table,
			URL:   listURL(reg.Model.Table),
		}
	}
	render(w, r, http.StatusOK, templates.AdminIndex(entries))
}

func (v *modelView) registration(w http.ResponseWriter, r *http.Request) (Registration, bool) {
	reg, ok := v.site.Lookup(v.table)
	if !ok {
		http.NotFound(w, r)
	}
	return reg, ok
}

func (v *modelView) handleList(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	rows, err := v.site.rows.ListRows(r.Context(), m)
	if err != nil {
		serverError(w, r, err)
		return
	}

	display := displayFields(reg)
	data := templates.ChangeListData{
		Title:   m.Title,
		AddURL:  listURL(m.Table) + "add/",
		Columns: make([]string, len(display)),
		Rows:    make([]templates.ListRow, len(rows)),
	}
	if reg.Admin != nil && reg.Admin.ListTitle != "" {
		data.Title = reg.Admin.ListTitle
	}
	for i, idx := range display {
		data.Columns[i] = m.Fields[idx].Label
	}
	for i, row := range rows {
		cells := make([]string, 0, len(display)+1)
		cells = append(cells, strconv.FormatInt(row.ID, 10))
		for _, idx := range display {
			cells = append(cells, formatValue(row.Values[idx]))
		}
		data.Rows[i] = templates.ListRow{URL: rowURL(m.Table, row.ID), Cells: cells}
	}

	render(w, r, http.StatusOK, templates.ChangeList(data))
}

func (v *modelView) handleAddForm(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	render(w, r, http.StatusOK, templates.ChangeForm(templates.ChangeFormData{
		Heading: "Add " + m.Title,
		Action:  listURL(m.Table) + "add/",
		ListURL: listURL(m.Table),
		Fields:  formFields(m, nil, nil, nil),
	}))
}

func (v *modelView) handleAdd(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	values, errs := bindForm(m, r.PostForm)
	if len(errs) > 0 {
		render(w, r, http.StatusBadRequest, templates.ChangeForm(templates.ChangeFormData{
			Heading: "Add " + m.Title,
			Action:  listURL(m.Table) + "add/",
			ListURL: listURL(m.Table),
			Fields:  formFields(m, nil, r.PostForm, errs),
		}))
		return
	}

	id, err := v.site.rows.InsertRow(r.Context(), m, values)
	if err != nil {
		serverError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("admin: row added", "table", m.Table, "id", id)

	http.Redirect(w, r, listURL(m.Table), http.StatusFound)
}

func (v *modelView) handleEditForm(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	id, ok := rowID(w, r)
	if !ok {
		return
	}

	row, err := v.site.rows.GetRow(r.Context(), m, id)
	if err != nil {
		rowError(w, r, err)
		return
	}

	render(w, r, http.StatusOK, templates.ChangeForm(templates.ChangeFormData{
		Heading:   fmt.Sprintf("Change %s #%d", m.Title, id),
		Action:    rowURL(m.Table, id),
		ListURL:   listURL(m.Table),
		DeleteURL: rowURL(m.Table, id) + "delete/",
		Fields:    formFields(m, row.Values, nil, nil),
	}))
}

func (v *modelView) handleEdit(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	id, ok := rowID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	values, errs := bindForm(m, r.PostForm)
	if len(errs) > 0 {
		render(w, r, http.StatusBadRequest, templates.ChangeForm(templates.ChangeFormData{
			Heading:   fmt.Sprintf("Change %s #%d", m.Title, id),
			Action:    rowURL(m.Table, id),
			ListURL:   listURL(m.Table),
			DeleteURL: rowURL(m.Table, id) + "delete/",
			Fields:    formFields(m, nil, r.PostForm, errs),
		}))
		return
	}

	if err := v.site.rows.UpdateRow(r.Context(), m, id, values); err != nil {
		rowError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("admin: row changed", "table", m.Table, "id", id)

	http.Redirect(w, r, listURL(m.Table), http.StatusFound)
}

func (v *modelView) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	id, ok := rowID(w, r)
	if !ok {
		return
	}

	row, err := v.site.rows.GetRow(r.Context(), m, id)
	if err != nil {
		rowError(w, r, err)
		return
	}

	summary := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		summary[i] = f.Label + ": " + formatValue(row.Values[i])
	}

	render(w, r, http.StatusOK, templates.DeleteConfirm(templates.DeleteData{
		Heading:   fmt.Sprintf("Delete %s #%d?", m.Title, id),
		Action:    rowURL(m.Table, id) + "delete/",
		CancelURL: rowURL(m.Table, id),
		Summary:   summary,
	}))
}

func (v *modelView) handleDelete(w http.ResponseWriter, r *http.Request) {
	reg, ok := v.registration(w, r)
	if !ok {
		return
	}
	m := reg.Model

	id, ok := rowID(w, r)
	if !ok {
		return
	}

	if err := v.site.rows.DeleteRow(r.Context(), m, id); err != nil {
		rowError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("admin: row deleted", "table", m.Table, "id", id)

	http.Redirect(w, r, listURL(m.Table), http.StatusFound)
}

// displayFields returns the indexes of the fields shown on the change list.
// Unknown names in ListDisplay are ignored.
func displayFields(reg Registration) []int {
	m := reg.Model
	if reg.Admin == nil || len(reg.Admin.ListDisplay) == 0 {
		idx := make([]int, len(m.Fields))
		for i := range m.Fields {
			idx[i] = i
		}
		return idx
	}

	var idx []int
	for _, name := range reg.Admin.ListDisplay {
		for i, f := range m.Fields {
			if f.Name == name {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func listURL(table string) string {
	return Prefix + "/" + table + "/"
}

func rowURL(table string, id int64) string {
	return listURL(table) + strconv.FormatInt(id, 10) + "/"
}

func rowID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("admin: render failed", "path", r.URL.Path, "error", err)
	}
}

func rowError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrRowNotFound) {
		http.NotFound(w, r)
		return
	}
	serverError(w, r, err)
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Error("admin: request failed",
		"path", r.URL.Path,
		"error", err,
		"code", msg.Code,
	)
	render(w, r, http.StatusInternalServerError, templates.ErrorPage(msg.Message, msg.Action, msg.Code))
}
