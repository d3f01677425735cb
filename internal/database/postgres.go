package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shockerli/cvt"
)

// Postgres is a core.Store backed by a pgx connection pool.
// Tables live in the connection's current schema.
type Postgres struct {
	schemaOps
	pool *pgxpool.Pool
}

// NewPostgres creates a store on the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		schemaOps: schemaOps{db: pool},
		pool:      pool,
	}
}

// InTx runs fn against a transaction. Postgres DDL is transactional, so an
// error from fn leaves the schema untouched.
func (p *Postgres) InTx(ctx context.Context, fn func(core.SchemaStore) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(schemaOps{db: tx})
	})
}

// schemaOps implements core.SchemaStore on any DBTX.
type schemaOps struct {
	db core.DBTX
}

func (s schemaOps) TableExists(ctx context.Context, table string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, table).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s schemaOps) CreateTable(ctx context.Context, m *core.Model) error {
	stmt, err := createTableSQL(m)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, stmt)
	return err
}

func (s schemaOps) Columns(ctx context.Context, table string) ([]string, error) {
	const query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := s.db.Query(ctx, query, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s schemaOps) AddColumn(ctx context.Context, table string, f core.Field) error {
	stmt, err := addColumnSQL(table, f)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, stmt)
	return err
}

// ListRows returns every row ordered by id.
func (p *Postgres) ListRows(ctx context.Context, m *core.Model) ([]core.Row, error) {
	query := selectSQL(m) + " ORDER BY " + quoteIdentifier(core.IDColumn)

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

// GetRow returns a single row by id.
func (p *Postgres) GetRow(ctx context.Context, m *core.Model, id int64) (core.Row, error) {
	query := selectSQL(m) + " WHERE " + quoteIdentifier(core.IDColumn) + " = $1"

	rows, err := p.pool.Query(ctx, query, id)
	if err != nil {
		return core.Row{}, err
	}
	result, err := collectRows(rows)
	if err != nil {
		return core.Row{}, err
	}
	if len(result) == 0 {
		return core.Row{}, fmt.Errorf("%w: %s/%d", core.ErrRowNotFound, m.Table, id)
	}
	return result[0], nil
}

// InsertRow inserts values in field order and returns the new id.
func (p *Postgres) InsertRow(ctx context.Context, m *core.Model, values []any) (int64, error) {
	if len(values) != len(m.Fields) {
		return 0, fmt.Errorf("insert %s: got %d values for %d fields", m.Table, len(values), len(m.Fields))
	}

	var id int64
	if err := p.pool.QueryRow(ctx, insertSQL(m), values...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRow overwrites every field of a row.
func (p *Postgres) UpdateRow(ctx context.Context, m *core.Model, id int64, values []any) error {
	if len(values) != len(m.Fields) {
		return fmt.Errorf("update %s: got %d values for %d fields", m.Table, len(values), len(m.Fields))
	}
	if len(m.Fields) == 0 {
		_, err := p.GetRow(ctx, m, id)
		return err
	}

	args := append(append([]any{}, values...), id)
	tag, err := p.pool.Exec(ctx, updateSQL(m), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%d", core.ErrRowNotFound, m.Table, id)
	}
	return nil
}

// DeleteRow removes a row by id.
func (p *Postgres) DeleteRow(ctx context.Context, m *core.Model, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", quoteIdentifier(m.Table), quoteIdentifier(core.IDColumn))

	tag, err := p.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%d", core.ErrRowNotFound, m.Table, id)
	}
	return nil
}

// collectRows reads id-first result rows into core.Row values.
func collectRows(rows pgx.Rows) ([]core.Row, error) {
	defer rows.Close()

	var result []core.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, errors.New("row without id column")
		}
		id, err := cvt.Int64E(values[0])
		if err != nil {
			return nil, fmt.Errorf("row id: %w", err)
		}
		result = append(result, core.Row{ID: id, Values: values[1:]})
	}
	return result, rows.Err()
}
