package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/schemadmin/internal/logging"
)

// Migrator brings database tables in line with synthesized models.
// It only ever creates tables and adds columns; nothing is dropped or renamed.
type Migrator struct{}

// NewMigrator creates a Migrator.
func NewMigrator() *Migrator {
	return &Migrator{}
}

// Migrate creates the model's table if it is missing, otherwise adds every
// model column the table lacks. Running it twice with the same model changes
// nothing the second time.
func (mg *Migrator) Migrate(ctx context.Context, st SchemaStore, m *Model) (MigrationResult, error) {
	result := MigrationResult{Table: m.Table}
	logger := logging.WithFields(ctx, "table", m.Table)

	exists, err := st.TableExists(ctx, m.Table)
	if err != nil {
		return result, fmt.Errorf("check table %s: %w", m.Table, err)
	}

	if !exists {
		logger.Debug("creating table", "columns", len(m.Fields))
		if err := st.CreateTable(ctx, m); err != nil {
			return result, fmt.Errorf("create table %s: %w", m.Table, err)
		}
		result.Created = true
		return result, nil
	}

	existing, err := st.Columns(ctx, m.Table)
	if err != nil {
		return result, fmt.Errorf("read columns of %s: %w", m.Table, err)
	}
	have := make(map[string]bool, len(existing))
	for _, col := range existing {
		have[col] = true
	}

	for _, f := range m.Fields {
		if have[f.Column] {
			continue
		}
		logger.Debug("adding column", "column", f.Column, "kind", f.Kind)
		if err := st.AddColumn(ctx, m.Table, f); err != nil {
			return result, fmt.Errorf("add column %s.%s: %w", m.Table, f.Column, err)
		}
		result.AddedColumns = append(result.AddedColumns, f.Column)
	}

	return result, nil
}
