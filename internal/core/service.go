package core

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/schemadmin/internal/config"
	"github.com/JonMunkholm/schemadmin/internal/logging"
	"github.com/JonMunkholm/schemadmin/internal/schema"
	"github.com/google/uuid"
)

// DefaultApplyTimeout bounds a schema application when no config is given.
const DefaultApplyTimeout = 2 * time.Minute

// Service wires the schema loader, synthesizer, migrator and registrar together.
type Service struct {
	store    Store
	registry Registry
	catalog  *Catalog
	migrator *Migrator

	prefix  string
	timeout time.Duration

	// applyMu serializes schema applications: last writer wins, two uploads
	// never interleave their DDL or registrations.
	applyMu sync.Mutex
}

// NewService creates a Service. cfg may be nil, in which case defaults apply.
func NewService(store Store, registry Registry, cfg *config.Config) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		catalog:  NewCatalog(),
		migrator: NewMigrator(),
		prefix:   DefaultTablePrefix,
		timeout:  DefaultApplyTimeout,
	}
	if cfg != nil {
		if cfg.Schema.TablePrefix != "" {
			s.prefix = cfg.Schema.TablePrefix
		}
		if cfg.Upload.Timeout > 0 {
			s.timeout = cfg.Upload.Timeout
		}
	}
	return s
}

// Catalog returns the cache of synthesized model definitions.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Model returns the definition last applied for a table name.
// It is absent while the table is being re-applied and after a failed apply.
func (s *Service) Model(table string) (*Model, bool) {
	return s.catalog.Get(table)
}

// UploadSchema parses an uploaded document and applies it.
// A document that fails to parse returns an error wrapping
// schema.ErrInvalidDocument before anything is changed.
func (s *Service) UploadSchema(ctx context.Context, data []byte) ([]MigrationResult, error) {
	doc, err := schema.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.ApplySchema(ctx, doc)
}

// LoadSchemaFile applies a schema document from disk.
// Used at startup to restore registrations for tables created earlier.
func (s *Service) LoadSchemaFile(ctx context.Context, path string) ([]MigrationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return s.UploadSchema(ctx, data)
}

// ApplySchema synthesizes a model per table, migrates all of them in one
// transaction and, once committed, caches and re-registers every model.
func (s *Service) ApplySchema(ctx context.Context, doc schema.Document) ([]MigrationResult, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	uploadID := UploadIDFromContext(ctx)
	if uploadID == "" {
		uploadID = uuid.New().String()
		ctx = ContextWithUploadID(ctx, uploadID)
	}
	logger := logging.WithFields(ctx, "upload_id", uploadID)

	applyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Postgres truncates longer names, which would break the existence
	// checks of the migrator.
	for _, t := range doc.Tables {
		if table := TableName(s.prefix, t.Key); len(table) > schema.MaxNameLength {
			return nil, fmt.Errorf("%w: table name %q is longer than %d bytes",
				schema.ErrInvalidDocument, table, schema.MaxNameLength)
		}
	}

	models := make([]*Model, 0, len(doc.Tables))
	for _, t := range doc.Tables {
		s.catalog.Evict(TableName(s.prefix, t.Key))
		models = append(models, Synthesize(s.prefix, t.Key, t))
	}

	results := make([]MigrationResult, 0, len(models))
	err := s.store.InTx(applyCtx, func(st SchemaStore) error {
		for _, m := range models {
			res, err := s.migrator.Migrate(applyCtx, st, m)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		logger.Error("schema upload failed", "tables", len(models), "error", err)
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	for _, m := range models {
		s.catalog.Put(m)
		s.registry.Replace(m)
	}

	for _, res := range results {
		if res.Created {
			logger.Info("created table", "table", res.Table)
		}
		for _, col := range res.AddedColumns {
			logger.Info("added column", "table", res.Table, "column", col)
		}
	}
	logger.Info("schema upload applied",
		"tables", len(models),
		"ip", IPAddressFromContext(ctx),
	)

	return results, nil
}

// Tables lists the registered tables sorted by table name.
func (s *Service) Tables() []TableSummary {
	models := s.registry.Models()
	out := make([]TableSummary, len(models))
	for i, m := range models {
		out[i] = TableSummary{Title: m.Title, Table: m.Table}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Table < out[j].Table
	})
	return out
}

// TableContent returns every row of a registered table with its field labels.
// Returns ErrNoTable for an empty name and ErrTableNotFound when no
// registered model uses the table name.
func (s *Service) TableContent(ctx context.Context, table string) (*TableContent, error) {
	if table == "" {
		return nil, ErrNoTable
	}

	var model *Model
	for _, m := range s.registry.Models() {
		if m.Table == table {
			model = m
			break
		}
	}
	if model == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	rows, err := s.store.ListRows(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	content := &TableContent{
		Head: model.Labels(),
		Body: make([][]any, len(rows)),
	}
	for i, row := range rows {
		content.Body[i] = row.Values
	}
	return content, nil
}
