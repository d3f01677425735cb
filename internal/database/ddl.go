// Package database implements core.Store on PostgreSQL (pgx) and in memory.
package database

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/jackc/pgx/v5"
)

// quoteIdentifier quotes a table or column name for use in SQL.
func quoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// columnType maps a field kind to its native Postgres column definition.
func columnType(kind core.FieldKind) (string, error) {
	switch kind {
	case core.KindChar:
		return fmt.Sprintf("VARCHAR(%d) NOT NULL DEFAULT ''", core.CharMaxLength), nil
	case core.KindInt:
		return "INTEGER DEFAULT 0", nil
	default:
		return "", fmt.Errorf("unsupported field kind %q", kind)
	}
}

// columnDefinition renders `"name" TYPE ...` for a field.
func columnDefinition(f core.Field) (string, error) {
	typ, err := columnType(f.Kind)
	if err != nil {
		return "", err
	}
	return quoteIdentifier(f.Column) + " " + typ, nil
}

// createTableSQL builds the CREATE TABLE statement for a model.
// The id column is always first.
func createTableSQL(m *core.Model) (string, error) {
	defs := make([]string, 0, len(m.Fields)+1)
	defs = append(defs, quoteIdentifier(core.IDColumn)+" BIGSERIAL PRIMARY KEY")
	for _, f := range m.Fields {
		def, err := columnDefinition(f)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", f.Column, err)
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		quoteIdentifier(m.Table),
		strings.Join(defs, ",\n    "),
	), nil
}

// addColumnSQL builds the ALTER TABLE statement adding one column.
func addColumnSQL(table string, f core.Field) (string, error) {
	def, err := columnDefinition(f)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", quoteIdentifier(table), def), nil
}

// selectSQL builds a SELECT of the id column followed by the model's columns.
func selectSQL(m *core.Model) string {
	cols := make([]string, 0, len(m.Fields)+1)
	cols = append(cols, quoteIdentifier(core.IDColumn))
	for _, f := range m.Fields {
		cols = append(cols, quoteIdentifier(f.Column))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdentifier(m.Table))
}

// insertSQL builds an INSERT returning the new id.
func insertSQL(m *core.Model) string {
	if len(m.Fields) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			quoteIdentifier(m.Table), quoteIdentifier(core.IDColumn))
	}

	cols := make([]string, len(m.Fields))
	placeholders := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = quoteIdentifier(f.Column)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quoteIdentifier(m.Table),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		quoteIdentifier(core.IDColumn),
	)
}

// updateSQL builds an UPDATE of every model column; the id is the last argument.
func updateSQL(m *core.Model) string {
	sets := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(f.Column), i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdentifier(m.Table),
		strings.Join(sets, ", "),
		quoteIdentifier(core.IDColumn),
		len(m.Fields)+1,
	)
}
