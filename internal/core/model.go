package core

import (
	"log/slog"

	"github.com/JonMunkholm/schemadmin/internal/schema"
)

// DefaultTablePrefix is prepended to table identifiers to form table names.
const DefaultTablePrefix = "main_"

// Model is a table definition synthesized from an uploaded description.
// Models are plain data; two uploads of the same table produce two distinct
// values that share the same Table name.
type Model struct {
	Key    string  `json:"key"`    // Table identifier from the document: "people"
	Table  string  `json:"table"`  // Database table name: "main_people"
	Title  string  `json:"title"`  // Display title
	Fields []Field `json:"fields"` // Recognized fields in document order
}

// TableName derives the database table name for an identifier.
func TableName(prefix, key string) string {
	return prefix + key
}

// Synthesize builds a model from a table description.
// Fields missing an id, title or type, fields with an unrecognized type, a
// field named like the primary key and repeated field ids are dropped.
func Synthesize(prefix, key string, t schema.Table) *Model {
	m := &Model{
		Key:    key,
		Table:  TableName(prefix, key),
		Title:  t.Title,
		Fields: make([]Field, 0, len(t.Fields)),
	}
	if m.Title == "" {
		m.Title = key
	}

	seen := make(map[string]bool, len(t.Fields))
	for _, fd := range t.Fields {
		if fd.ID == "" || fd.Title == "" || fd.Type == "" {
			continue
		}

		kind := FieldKind(fd.Type)
		switch {
		case !kind.Known():
			slog.Debug("skipping field with unknown type", "table", m.Table, "field", fd.ID, "type", fd.Type)
			continue
		case !schema.ValidIdentifier(fd.ID), fd.ID == IDColumn, seen[fd.ID]:
			slog.Debug("skipping field with unusable id", "table", m.Table, "field", fd.ID)
			continue
		}
		seen[fd.ID] = true

		m.Fields = append(m.Fields, Field{
			Name:   fd.ID,
			Column: fd.ID,
			Label:  fd.Title,
			Kind:   kind,
		})
	}

	return m
}

// Columns returns the model's column names in field order, without the id column.
func (m *Model) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Labels returns the display titles in field order.
func (m *Model) Labels() []string {
	labels := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		labels[i] = f.Label
	}
	return labels
}

// Field returns the field with the given name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
