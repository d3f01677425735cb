package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/JonMunkholm/schemadmin/internal/database"
	"github.com/google/go-cmp/cmp"
)

func peopleModel(title string) *core.Model {
	return &core.Model{
		Key:   "people",
		Table: "main_people",
		Title: title,
		Fields: []core.Field{
			{Name: "name", Column: "name", Label: "Name", Kind: core.KindChar},
			{Name: "age", Column: "age", Label: "Age", Kind: core.KindInt},
		},
	}
}

// newPeopleSite returns a site with main_people created and registered.
func newPeopleSite(t *testing.T) (*Site, *database.MemoryStore) {
	t.Helper()
	store := database.NewMemoryStore()
	m := peopleModel("People")
	if err := store.CreateTable(context.Background(), m); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	site := NewSite(store)
	site.Replace(m)
	return site, store
}

func serve(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAndUnregister(t *testing.T) {
	site := NewSite(database.NewMemoryStore())
	m := peopleModel("People")

	if err := site.Register(m, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := site.Register(peopleModel("Again"), nil); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
	if err := site.Unregister("main_people"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if err := site.Unregister("main_people"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("second Unregister() error = %v, want ErrNotRegistered", err)
	}
	if n := len(site.Registrations()); n != 0 {
		t.Errorf("Registrations() = %d, want 0", n)
	}
}

func TestReregister_ReplacesByTableName(t *testing.T) {
	site := NewSite(database.NewMemoryStore())

	site.Reregister(peopleModel("People"), nil)
	gen := site.Generation()
	site.Reregister(peopleModel("Persons"), &ModelAdmin{ListTitle: "Everyone"})

	regs := site.Registrations()
	if len(regs) != 1 {
		t.Fatalf("Registrations() = %d, want 1", len(regs))
	}
	if regs[0].Model.Title != "Persons" {
		t.Errorf("Title = %q, want %q", regs[0].Model.Title, "Persons")
	}
	if regs[0].Admin == nil || regs[0].Admin.ListTitle != "Everyone" {
		t.Errorf("Admin = %+v, want ListTitle Everyone", regs[0].Admin)
	}
	if site.Generation() <= gen {
		t.Errorf("Generation() = %d, want > %d", site.Generation(), gen)
	}
}

func TestReplace_UsesCustomization(t *testing.T) {
	site := NewSite(database.NewMemoryStore())
	site.Customize("main_people", &ModelAdmin{ListDisplay: []string{"age"}})
	site.Replace(peopleModel("People"))

	reg, ok := site.Lookup("main_people")
	if !ok {
		t.Fatal("Lookup() found nothing")
	}
	if diff := cmp.Diff([]string{"age"}, reg.Admin.ListDisplay); diff != "" {
		t.Errorf("ListDisplay mismatch (-want +got):\n%s", diff)
	}

	models := site.Models()
	if len(models) != 1 || models[0].Table != "main_people" {
		t.Errorf("Models() = %v", models)
	}
}

func TestRoutesFollowRegistrations(t *testing.T) {
	site := NewSite(database.NewMemoryStore())

	if rec := serve(site, http.MethodGet, "/main_people/", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unregistered status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	site.Replace(peopleModel("People"))
	rec := serve(site, http.MethodGet, "/", nil)
	if !strings.Contains(rec.Body.String(), Prefix+"/main_people/") {
		t.Errorf("index does not link main_people: %s", rec.Body.String())
	}

	if err := site.Unregister("main_people"); err != nil {
		t.Fatal(err)
	}
	if rec := serve(site, http.MethodGet, "/main_people/", nil); rec.Code != http.StatusNotFound {
		t.Errorf("after Unregister status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := serve(site, http.MethodGet, "/", nil); !strings.Contains(rec.Body.String(), "No models registered.") {
		t.Errorf("index should be empty: %s", rec.Body.String())
	}
}

func TestRowLifecycle(t *testing.T) {
	site, store := newPeopleSite(t)
	ctx := context.Background()

	rec := serve(site, http.MethodPost, "/main_people/add/", url.Values{"name": {"Ada"}, "age": {"36"}})
	if rec.Code != http.StatusFound {
		t.Fatalf("add status = %d, want %d; body = %s", rec.Code, http.StatusFound, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/main_people/" {
		t.Errorf("Location = %q, want %q", loc, "/admin/main_people/")
	}

	rec = serve(site, http.MethodGet, "/main_people/", nil)
	body := rec.Body.String()
	for _, want := range []string{"Ada", "36", "/admin/main_people/1/", "1 rows"} {
		if !strings.Contains(body, want) {
			t.Errorf("change list missing %q", want)
		}
	}

	rec = serve(site, http.MethodGet, "/main_people/1/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Ada"`) {
		t.Errorf("edit form status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = serve(site, http.MethodPost, "/main_people/1/", url.Values{"name": {"Ada Lovelace"}, "age": {""}})
	if rec.Code != http.StatusFound {
		t.Fatalf("edit status = %d, want %d", rec.Code, http.StatusFound)
	}

	row, err := store.GetRow(ctx, peopleModel("People"), 1)
	if err != nil {
		t.Fatalf("GetRow() error = %v", err)
	}
	if diff := cmp.Diff([]any{"Ada Lovelace", nil}, row.Values); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	rec = serve(site, http.MethodGet, "/main_people/1/delete/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Name: Ada Lovelace") {
		t.Errorf("delete confirmation status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = serve(site, http.MethodPost, "/main_people/1/delete/", url.Values{})
	if rec.Code != http.StatusFound {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusFound)
	}
	if _, err := store.GetRow(ctx, peopleModel("People"), 1); !errors.Is(err, core.ErrRowNotFound) {
		t.Errorf("GetRow() after delete error = %v, want ErrRowNotFound", err)
	}
}

func TestInvalidFormRerenders(t *testing.T) {
	site, store := newPeopleSite(t)

	rec := serve(site, http.MethodPost, "/main_people/add/", url.Values{"name": {"Ada"}, "age": {"thirty"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Enter a whole number.") {
		t.Errorf("body missing field error: %s", body)
	}
	if !strings.Contains(body, `value="thirty"`) {
		t.Errorf("body should echo submitted value: %s", body)
	}

	rows, err := store.ListRows(context.Background(), peopleModel("People"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}

func TestMissingRow(t *testing.T) {
	site, _ := newPeopleSite(t)

	tests := []struct {
		method string
		target string
		form   url.Values
	}{
		{http.MethodGet, "/main_people/9/", nil},
		{http.MethodPost, "/main_people/9/", url.Values{"name": {"x"}}},
		{http.MethodGet, "/main_people/9/delete/", nil},
		{http.MethodPost, "/main_people/9/delete/", url.Values{}},
		{http.MethodGet, "/main_people/abc/", nil},
		{http.MethodGet, "/main_people/0/", nil},
	}

	for _, tt := range tests {
		if rec := serve(site, tt.method, tt.target, tt.form); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.target, rec.Code, http.StatusNotFound)
		}
	}
}

func TestListDisplay(t *testing.T) {
	site, store := newPeopleSite(t)
	site.Reregister(peopleModel("People"), &ModelAdmin{ListDisplay: []string{"age", "missing"}, ListTitle: "Ages"})

	if _, err := store.InsertRow(context.Background(), peopleModel("People"), []any{"Ada", int64(36)}); err != nil {
		t.Fatal(err)
	}

	body := serve(site, http.MethodGet, "/main_people/", nil).Body.String()
	if !strings.Contains(body, "<h1>Ages</h1>") {
		t.Errorf("list title not applied: %s", body)
	}
	if strings.Contains(body, "Ada") || strings.Contains(body, "<th>Name</th>") {
		t.Errorf("name column should be hidden: %s", body)
	}
	if !strings.Contains(body, "<th>Age</th>") {
		t.Errorf("age column missing: %s", body)
	}
}

func TestCoerce(t *testing.T) {
	char := core.Field{Name: "name", Kind: core.KindChar}
	num := core.Field{Name: "age", Kind: core.KindInt}

	tests := []struct {
		name    string
		field   core.Field
		raw     string
		want    any
		wantErr bool
	}{
		{"text", char, "Ada", "Ada", false},
		{"empty text", char, "", "", false},
		{"text at limit", char, strings.Repeat("é", core.CharMaxLength), strings.Repeat("é", core.CharMaxLength), false},
		{"text too long", char, strings.Repeat("x", core.CharMaxLength+1), nil, true},
		{"integer", num, "42", int64(42), false},
		{"signed integer", num, " -7 ", int64(-7), false},
		{"empty integer", num, "", nil, false},
		{"decimal", num, "4.2", nil, true},
		{"word", num, "four", nil, true},
		{"int32 max", num, "2147483647", int64(2147483647), false},
		{"out of range", num, "2147483648", nil, true},
		{"unknown kind", core.Field{Kind: "date"}, "2020-01-01", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(tt.field, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
