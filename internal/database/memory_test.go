package database

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/google/go-cmp/cmp"
)

func TestMemoryStore_CreateAndAddColumn(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	m := peopleModel()
	m.Fields = m.Fields[:1]

	if err := st.CreateTable(ctx, m); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if _, err := st.InsertRow(ctx, m, []any{"Ada"}); err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}

	if err := st.AddColumn(ctx, m.Table, core.Field{Column: "age", Kind: core.KindInt}); err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}

	cols, _ := st.Columns(ctx, m.Table)
	if diff := cmp.Diff([]string{"id", "name", "age"}, cols); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}

	// Existing rows pick up the new column's default.
	rows, err := st.ListRows(ctx, peopleModel())
	if err != nil {
		t.Fatalf("ListRows() error = %v", err)
	}
	want := []core.Row{{ID: 1, Values: []any{"Ada", int64(0)}}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("ListRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore_InTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	boom := errors.New("boom")

	err := st.InTx(ctx, func(s core.SchemaStore) error {
		if err := s.CreateTable(ctx, peopleModel()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want %v", err, boom)
	}

	exists, _ := st.TableExists(ctx, "main_people")
	if exists {
		t.Error("table exists after rolled back transaction")
	}
}

func TestMemoryStore_InTxCommits(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	err := st.InTx(ctx, func(s core.SchemaStore) error {
		return s.CreateTable(ctx, peopleModel())
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	exists, _ := st.TableExists(ctx, "main_people")
	if !exists {
		t.Error("table missing after committed transaction")
	}
}

func TestMemoryStore_RowLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	m := peopleModel()

	if err := st.CreateTable(ctx, m); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	id, err := st.InsertRow(ctx, m, []any{"Ada", int64(36)})
	if err != nil {
		t.Fatalf("InsertRow() error = %v", err)
	}

	if err := st.UpdateRow(ctx, m, id, []any{"Ada Lovelace", nil}); err != nil {
		t.Fatalf("UpdateRow() error = %v", err)
	}

	row, err := st.GetRow(ctx, m, id)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if diff := cmp.Diff(core.Row{ID: id, Values: []any{"Ada Lovelace", nil}}, row); diff != "" {
		t.Errorf("GetRow() mismatch (-want +got):\n%s", diff)
	}

	if err := st.DeleteRow(ctx, m, id); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if _, err := st.GetRow(ctx, m, id); !errors.Is(err, core.ErrRowNotFound) {
		t.Errorf("GetRow() after delete error = %v, want ErrRowNotFound", err)
	}
	if err := st.DeleteRow(ctx, m, id); !errors.Is(err, core.ErrRowNotFound) {
		t.Errorf("DeleteRow() twice error = %v, want ErrRowNotFound", err)
	}
}

func TestMemoryStore_MissingTable(t *testing.T) {
	_, err := NewMemoryStore().ListRows(context.Background(), peopleModel())
	if err == nil {
		t.Fatal("ListRows() expected error for missing table")
	}
}
