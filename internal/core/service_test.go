package core_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/JonMunkholm/schemadmin/internal/admin"
	"github.com/JonMunkholm/schemadmin/internal/config"
	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/JonMunkholm/schemadmin/internal/database"
	"github.com/JonMunkholm/schemadmin/internal/schema"
	"github.com/google/go-cmp/cmp"
)

const peopleDoc = `{"people": {"title": "People", "fields": [
	{"id":"name","title":"Name","type":"char"},
	{"id":"age","title":"Age","type":"int"}]}}`

const peopleWithEmailDoc = `
people:
  title: People
  fields:
    - {id: name, title: Name, type: char}
    - {id: age, title: Age, type: int}
    - {id: email, title: Email, type: char}
`

func newService(store core.Store) (*core.Service, *admin.Site) {
	site := admin.NewSite(store)
	return core.NewService(store, site, nil), site
}

func columns(t *testing.T, st core.SchemaStore, table string) []string {
	t.Helper()
	cols, err := st.Columns(context.Background(), table)
	if err != nil {
		t.Fatalf("Columns(%s) error = %v", table, err)
	}
	return cols
}

func TestMigrator(t *testing.T) {
	ctx := context.Background()
	st := database.NewMemoryStore()
	mg := core.NewMigrator()

	doc, err := schema.Parse([]byte(peopleDoc))
	if err != nil {
		t.Fatal(err)
	}
	m := core.Synthesize(core.DefaultTablePrefix, "people", doc.Tables[0])

	res, err := mg.Migrate(ctx, st, m)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !res.Created || len(res.AddedColumns) != 0 || !res.Changed() {
		t.Errorf("first Migrate() = %+v, want created", res)
	}

	res, err = mg.Migrate(ctx, st, m)
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if res.Changed() {
		t.Errorf("second Migrate() = %+v, want no change", res)
	}

	wider, err := schema.Parse([]byte(peopleWithEmailDoc))
	if err != nil {
		t.Fatal(err)
	}
	res, err = mg.Migrate(ctx, st, core.Synthesize(core.DefaultTablePrefix, "people", wider.Tables[0]))
	if err != nil {
		t.Fatalf("Migrate() with new field error = %v", err)
	}
	if diff := cmp.Diff([]string{"email"}, res.AddedColumns); diff != "" {
		t.Errorf("AddedColumns mismatch (-want +got):\n%s", diff)
	}

	// A narrower model never drops columns.
	if _, err := mg.Migrate(ctx, st, m); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"id", "name", "age", "email"}, columns(t, st, "main_people")); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	svc, site := newService(store)

	for i := 0; i < 2; i++ {
		if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
			t.Fatalf("upload %d error = %v", i, err)
		}
	}

	if diff := cmp.Diff([]string{"id", "name", "age"}, columns(t, store, "main_people")); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if n := len(site.Registrations()); n != 1 {
		t.Errorf("registrations = %d, want 1", n)
	}
	if n := svc.Catalog().Len(); n != 1 {
		t.Errorf("catalog size = %d, want 1", n)
	}
}

func TestUploadSchema_AddsField(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	svc, site := newService(store)

	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}
	results, err := svc.UploadSchema(ctx, []byte(peopleWithEmailDoc))
	if err != nil {
		t.Fatal(err)
	}

	want := []core.MigrationResult{{Table: "main_people", AddedColumns: []string{"email"}}}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "name", "age", "email"}, columns(t, store, "main_people")); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	reg, ok := site.Lookup("main_people")
	if !ok {
		t.Fatal("main_people not registered")
	}
	if len(reg.Model.Fields) != 3 {
		t.Errorf("registered model has %d fields, want 3", len(reg.Model.Fields))
	}
}

func TestTableContent(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	svc, site := newService(store)

	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}
	reg, _ := site.Lookup("main_people")
	for _, values := range [][]any{{"Ada", int64(36)}, {"Grace", nil}} {
		if _, err := store.InsertRow(ctx, reg.Model, values); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.TableContent(ctx, "main_people")
	if err != nil {
		t.Fatalf("TableContent() error = %v", err)
	}
	want := &core.TableContent{
		Head: []string{"Name", "Age"},
		Body: [][]any{{"Ada", int64(36)}, {"Grace", nil}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TableContent() mismatch (-want +got):\n%s", diff)
	}
}

func TestTableContent_Errors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(database.NewMemoryStore())
	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.TableContent(ctx, ""); !errors.Is(err, core.ErrNoTable) {
		t.Errorf("TableContent(\"\") error = %v, want ErrNoTable", err)
	}
	if _, err := svc.TableContent(ctx, "main_nobody"); !errors.Is(err, core.ErrTableNotFound) {
		t.Errorf("TableContent(main_nobody) error = %v, want ErrTableNotFound", err)
	}
}

func TestUploadSchema_ParseFailureChangesNothing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(database.NewMemoryStore())
	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}
	before := svc.Tables()

	_, err := svc.UploadSchema(ctx, []byte("people: [unclosed"))
	if !errors.Is(err, schema.ErrInvalidDocument) {
		t.Fatalf("UploadSchema() error = %v, want ErrInvalidDocument", err)
	}

	if diff := cmp.Diff(before, svc.Tables()); diff != "" {
		t.Errorf("Tables() changed (-before +after):\n%s", diff)
	}
}

// failingStore accepts the first few schema changes of a transaction, then fails.
type failingStore struct {
	*database.MemoryStore
	failAfter int
}

type countingSchema struct {
	core.SchemaStore
	left *int
}

func (c countingSchema) CreateTable(ctx context.Context, m *core.Model) error {
	if *c.left == 0 {
		return errors.New("disk full")
	}
	*c.left--
	return c.SchemaStore.CreateTable(ctx, m)
}

func (f failingStore) InTx(ctx context.Context, fn func(core.SchemaStore) error) error {
	left := f.failAfter
	return f.MemoryStore.InTx(ctx, func(st core.SchemaStore) error {
		return fn(countingSchema{SchemaStore: st, left: &left})
	})
}

func TestApplySchema_FailureRegistersNothing(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemoryStore()
	svc, site := newService(failingStore{MemoryStore: mem, failAfter: 1})

	_, err := svc.UploadSchema(ctx, []byte(`
alpha: {title: Alpha, fields: [{id: a, title: A, type: char}]}
beta: {title: Beta, fields: [{id: b, title: B, type: int}]}
`))
	if err == nil {
		t.Fatal("UploadSchema() expected error")
	}

	if n := len(site.Registrations()); n != 0 {
		t.Errorf("registrations = %d, want 0", n)
	}
	if len(svc.Tables()) != 0 {
		t.Errorf("Tables() = %v, want none", svc.Tables())
	}
	if exists, _ := mem.TableExists(ctx, "main_alpha"); exists {
		t.Error("main_alpha survived a rolled back upload")
	}
}

func TestNewService_UsesConfig(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	site := admin.NewSite(store)
	cfg := &config.Config{Schema: config.SchemaConfig{TablePrefix: "app_"}}
	svc := core.NewService(store, site, cfg)

	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}
	want := []core.TableSummary{{Title: "People", Table: "app_people"}}
	if diff := cmp.Diff(want, svc.Tables()); diff != "" {
		t.Errorf("Tables() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSchemaFile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(database.NewMemoryStore())

	path := filepath.Join(t.TempDir(), "models.yml")
	if err := os.WriteFile(path, []byte(peopleWithEmailDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	results, err := svc.LoadSchemaFile(ctx, path)
	if err != nil {
		t.Fatalf("LoadSchemaFile() error = %v", err)
	}
	if len(results) != 1 || !results[0].Created {
		t.Errorf("results = %+v, want one created table", results)
	}

	if _, err := svc.LoadSchemaFile(ctx, filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("LoadSchemaFile() of a missing file should fail")
	}
}

func TestApplySchema_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	svc, site := newService(store)

	docs := []string{peopleDoc, peopleWithEmailDoc}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(doc string) {
			defer wg.Done()
			if _, err := svc.UploadSchema(ctx, []byte(doc)); err != nil {
				t.Errorf("UploadSchema() error = %v", err)
			}
		}(docs[i%2])
	}
	wg.Wait()

	if n := len(site.Registrations()); n != 1 {
		t.Errorf("registrations = %d, want 1", n)
	}
	if diff := cmp.Diff([]string{"id", "name", "age", "email"}, columns(t, store, "main_people")); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestApplySchema_RejectsLongTableName(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	site := admin.NewSite(store)
	// Config validation rejects such a prefix; the service still refuses
	// names Postgres would truncate.
	cfg := &config.Config{Schema: config.SchemaConfig{TablePrefix: "a_very_long_prefix_x_"}}
	svc := core.NewService(store, site, cfg)

	key := strings.Repeat("k", schema.MaxIdentifierLength)
	doc := key + ": {title: Long, fields: [{id: a, title: A, type: char}]}\nshort: {title: Short}\n"

	_, err := svc.UploadSchema(ctx, []byte(doc))
	if !errors.Is(err, schema.ErrInvalidDocument) {
		t.Fatalf("UploadSchema() error = %v, want ErrInvalidDocument", err)
	}
	if n := len(site.Registrations()); n != 0 {
		t.Errorf("registrations = %d, want 0", n)
	}
	if exists, _ := store.TableExists(ctx, "a_very_long_prefix_x_short"); exists {
		t.Error("short table created by a rejected upload")
	}

	// The longest key still fits with the default prefix.
	svc, _ = newService(store)
	results, err := svc.UploadSchema(ctx, []byte(doc))
	if err != nil {
		t.Fatalf("UploadSchema() with default prefix error = %v", err)
	}
	if got := len(results[0].Table); got > schema.MaxNameLength {
		t.Errorf("table name length = %d, want <= %d", got, schema.MaxNameLength)
	}
}

func TestServiceModel(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(database.NewMemoryStore())

	if _, ok := svc.Model("main_people"); ok {
		t.Fatal("Model(main_people) found before any upload")
	}
	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UploadSchema(ctx, []byte(peopleWithEmailDoc)); err != nil {
		t.Fatal(err)
	}

	m, ok := svc.Model("main_people")
	if !ok {
		t.Fatal("Model(main_people) not found after upload")
	}
	if diff := cmp.Diff([]string{"name", "age", "email"}, m.Columns()); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}
}

func TestServiceModel_EvictedOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := database.NewMemoryStore()
	store := &switchableStore{MemoryStore: mem}
	svc, site := newService(store)

	if _, err := svc.UploadSchema(ctx, []byte(peopleDoc)); err != nil {
		t.Fatal(err)
	}
	store.fail = true
	if _, err := svc.UploadSchema(ctx, []byte(peopleWithEmailDoc)); err == nil {
		t.Fatal("UploadSchema() expected error")
	}

	if _, ok := svc.Model("main_people"); ok {
		t.Error("Model(main_people) still cached after a failed re-apply")
	}
	// The previous registration keeps serving.
	if _, ok := site.Lookup("main_people"); !ok {
		t.Error("main_people registration lost after a failed re-apply")
	}
}

// switchableStore fails every transaction once fail is set.
type switchableStore struct {
	*database.MemoryStore
	fail bool
}

func (s *switchableStore) InTx(ctx context.Context, fn func(core.SchemaStore) error) error {
	if s.fail {
		return errors.New("connection refused")
	}
	return s.MemoryStore.InTx(ctx, fn)
}
