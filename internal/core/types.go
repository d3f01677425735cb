package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

var (
	// ErrNoTable is returned by the content reader when no table name was given.
	ErrNoTable = errors.New("no table name given")

	// ErrTableNotFound is returned when no registered model uses the table name.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowNotFound is returned by row stores for an unknown row id.
	ErrRowNotFound = errors.New("row not found")
)

// IDColumn is the primary key column every dynamic table owns.
const IDColumn = "id"

// FieldKind is the declared type of a field.
type FieldKind string

const (
	KindChar FieldKind = "char" // short bounded text
	KindInt  FieldKind = "int"  // integer, nullable, default zero
)

// CharMaxLength bounds KindChar values.
const CharMaxLength = 255

// Known reports whether the kind is one the synthesizer accepts.
func (k FieldKind) Known() bool {
	switch k {
	case KindChar, KindInt:
		return true
	}
	return false
}

// Field is one column of a synthesized model.
type Field struct {
	Name   string    `json:"name"`   // Identifier from the document
	Column string    `json:"column"` // Database column name
	Label  string    `json:"label"`  // Display title
	Kind   FieldKind `json:"kind"`   // Column kind
}

// Row is one stored record. Values follow the model's field order.
type Row struct {
	ID     int64
	Values []any
}

// MigrationResult describes what the migrator changed for one model.
type MigrationResult struct {
	Table        string
	Created      bool
	AddedColumns []string
}

// Changed reports whether the migration touched the database.
func (r MigrationResult) Changed() bool {
	return r.Created || len(r.AddedColumns) > 0
}

// TableContent is the payload of the content reader.
type TableContent struct {
	Head []string `json:"head"`
	Body [][]any  `json:"body"`
}

// TableSummary is one entry of the registered table listing.
type TableSummary struct {
	Title string `json:"title"`
	Table string `json:"table"`
}

// SchemaStore inspects and extends the database schema.
type SchemaStore interface {
	TableExists(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, m *Model) error
	Columns(ctx context.Context, table string) ([]string, error)
	AddColumn(ctx context.Context, table string, f Field) error
}

// RowStore reads and writes rows of dynamic tables.
type RowStore interface {
	ListRows(ctx context.Context, m *Model) ([]Row, error)
	GetRow(ctx context.Context, m *Model, id int64) (Row, error)
	InsertRow(ctx context.Context, m *Model, values []any) (int64, error)
	UpdateRow(ctx context.Context, m *Model, id int64, values []any) error
	DeleteRow(ctx context.Context, m *Model, id int64) error
}

// Store is the full storage surface used by the service.
// InTx runs fn with a SchemaStore bound to one transaction; an error from fn
// rolls every schema change back.
type Store interface {
	SchemaStore
	RowStore
	InTx(ctx context.Context, fn func(SchemaStore) error) error
}

// Registry is the admin registration surface the service installs models into.
type Registry interface {
	Replace(m *Model)
	Models() []*Model
}
