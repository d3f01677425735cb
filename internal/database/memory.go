package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/schemadmin/internal/core"
)

// MemoryStore is an in-process core.Store with Postgres-like semantics for
// the operations the service uses: columns are only ever added, new columns
// take their kind's default on existing rows, and InTx rolls back on error.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memColumn struct {
	name string
	kind core.FieldKind
}

type memTable struct {
	columns []memColumn
	rows    []memRow
	nextID  int64
}

type memRow struct {
	id     int64
	values map[string]any
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

// memSchema is the SchemaStore handed to InTx callbacks; the store lock is
// already held.
type memSchema struct {
	tables map[string]*memTable
}

func (s memSchema) TableExists(_ context.Context, table string) (bool, error) {
	_, ok := s.tables[table]
	return ok, nil
}

func (s memSchema) CreateTable(_ context.Context, m *core.Model) error {
	if _, ok := s.tables[m.Table]; ok {
		return nil
	}
	t := &memTable{columns: []memColumn{{name: core.IDColumn}}, nextID: 1}
	for _, f := range m.Fields {
		if _, err := columnType(f.Kind); err != nil {
			return err
		}
		t.columns = append(t.columns, memColumn{name: f.Column, kind: f.Kind})
	}
	s.tables[m.Table] = t
	return nil
}

func (s memSchema) Columns(_ context.Context, table string) ([]string, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, nil
	}
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.name
	}
	return cols, nil
}

func (s memSchema) AddColumn(_ context.Context, table string, f core.Field) error {
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("relation %q does not exist", table)
	}
	if _, err := columnType(f.Kind); err != nil {
		return err
	}
	for _, c := range t.columns {
		if c.name == f.Column {
			return nil
		}
	}
	t.columns = append(t.columns, memColumn{name: f.Column, kind: f.Kind})
	for _, r := range t.rows {
		r.values[f.Column] = defaultValue(f.Kind)
	}
	return nil
}

func defaultValue(kind core.FieldKind) any {
	switch kind {
	case core.KindChar:
		return ""
	case core.KindInt:
		return int64(0)
	}
	return nil
}

func (m *MemoryStore) schema() memSchema {
	return memSchema{tables: m.tables}
}

func (m *MemoryStore) TableExists(ctx context.Context, table string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema().TableExists(ctx, table)
}

func (m *MemoryStore) CreateTable(ctx context.Context, model *core.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema().CreateTable(ctx, model)
}

func (m *MemoryStore) Columns(ctx context.Context, table string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema().Columns(ctx, table)
}

func (m *MemoryStore) AddColumn(ctx context.Context, table string, f core.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema().AddColumn(ctx, table, f)
}

// InTx runs fn against a copy of the schema and keeps it only if fn succeeds.
func (m *MemoryStore) InTx(ctx context.Context, fn func(core.SchemaStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := make(map[string]*memTable, len(m.tables))
	for name, t := range m.tables {
		work[name] = t.clone()
	}
	if err := fn(memSchema{tables: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.tables = work
	return nil
}

func (t *memTable) clone() *memTable {
	c := &memTable{
		columns: append([]memColumn(nil), t.columns...),
		rows:    make([]memRow, len(t.rows)),
		nextID:  t.nextID,
	}
	for i, r := range t.rows {
		vals := make(map[string]any, len(r.values))
		for k, v := range r.values {
			vals[k] = v
		}
		c.rows[i] = memRow{id: r.id, values: vals}
	}
	return c
}

func (m *MemoryStore) table(model *core.Model) (*memTable, error) {
	t, ok := m.tables[model.Table]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", model.Table)
	}
	for _, f := range model.Fields {
		if !t.hasColumn(f.Column) {
			return nil, fmt.Errorf("column %q of relation %q does not exist", f.Column, model.Table)
		}
	}
	return t, nil
}

func (t *memTable) hasColumn(name string) bool {
	for _, c := range t.columns {
		if c.name == name {
			return true
		}
	}
	return false
}

func (t *memTable) find(id int64) int {
	for i, r := range t.rows {
		if r.id == id {
			return i
		}
	}
	return -1
}

func project(model *core.Model, r memRow) core.Row {
	values := make([]any, len(model.Fields))
	for i, f := range model.Fields {
		values[i] = r.values[f.Column]
	}
	return core.Row{ID: r.id, Values: values}
}

// ListRows returns every row in id order.
func (m *MemoryStore) ListRows(_ context.Context, model *core.Model) ([]core.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(model)
	if err != nil {
		return nil, err
	}
	rows := make([]core.Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = project(model, r)
	}
	return rows, nil
}

// GetRow returns one row by id.
func (m *MemoryStore) GetRow(_ context.Context, model *core.Model, id int64) (core.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(model)
	if err != nil {
		return core.Row{}, err
	}
	i := t.find(id)
	if i < 0 {
		return core.Row{}, fmt.Errorf("%w: %s/%d", core.ErrRowNotFound, model.Table, id)
	}
	return project(model, t.rows[i]), nil
}

// InsertRow appends a row; columns not in the model get their defaults.
func (m *MemoryStore) InsertRow(_ context.Context, model *core.Model, values []any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(values) != len(model.Fields) {
		return 0, fmt.Errorf("insert %s: got %d values for %d fields", model.Table, len(values), len(model.Fields))
	}
	t, err := m.table(model)
	if err != nil {
		return 0, err
	}

	r := memRow{id: t.nextID, values: make(map[string]any, len(t.columns))}
	for _, c := range t.columns[1:] {
		r.values[c.name] = defaultValue(c.kind)
	}
	for i, f := range model.Fields {
		r.values[f.Column] = values[i]
	}
	t.nextID++
	t.rows = append(t.rows, r)
	return r.id, nil
}

// UpdateRow overwrites the model's fields of a row.
func (m *MemoryStore) UpdateRow(_ context.Context, model *core.Model, id int64, values []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(values) != len(model.Fields) {
		return fmt.Errorf("update %s: got %d values for %d fields", model.Table, len(values), len(model.Fields))
	}
	t, err := m.table(model)
	if err != nil {
		return err
	}
	i := t.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s/%d", core.ErrRowNotFound, model.Table, id)
	}
	for j, f := range model.Fields {
		t.rows[i].values[f.Column] = values[j]
	}
	return nil
}

// DeleteRow removes a row by id.
func (m *MemoryStore) DeleteRow(_ context.Context, model *core.Model, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(model)
	if err != nil {
		return err
	}
	i := t.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s/%d", core.ErrRowNotFound, model.Table, id)
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}
