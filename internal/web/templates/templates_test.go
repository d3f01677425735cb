package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return sb.String()
}

func TestRender_EscapesText(t *testing.T) {
	tests := []struct {
		name    string
		c       templ.Component
		want    []string
		notWant []string
	}{
		{
			name:    "index title",
			c:       Index([]TableEntry{{Title: "<script>alert(1)</script>", Table: "main_people"}}),
			want:    []string{"&lt;script&gt;alert(1)&lt;/script&gt;", `href="/admin/main_people/"`, `href="/receive_table_content/?table_name=main_people"`},
			notWant: []string{"<script>"},
		},
		{
			name:    "error alert",
			c:       ErrorPage(`Bad "quote" & <b>`, "", "ERR000"),
			want:    []string{"<strong>Bad &#34;quote&#34; &amp; &lt;b&gt;</strong>", "<small>Code: ERR000</small>", "<title>Error</title>"},
			notWant: []string{"<b>", "<p>"},
		},
		{
			name: "form value attribute",
			c: ChangeForm(ChangeFormData{
				Heading: "Add person",
				Action:  "/admin/main_people/add/",
				ListURL: "/admin/main_people/",
				Fields:  []FormField{{Name: "name", Label: "Name", InputType: "text", Value: `"><script>`}},
			}),
			want:    []string{`value="&#34;&gt;&lt;script&gt;"`},
			notWant: []string{`value=""><script>`, "maxlength", "Delete</a>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderString(t, tt.c)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("output should not contain %q:\n%s", nw, got)
				}
			}
		})
	}
}

func TestIndex_Empty(t *testing.T) {
	got := renderString(t, Index(nil))
	if !strings.Contains(got, "No tables registered yet.") {
		t.Errorf("empty index missing placeholder:\n%s", got)
	}
	if strings.Contains(got, "<table>") {
		t.Errorf("empty index should not render a table:\n%s", got)
	}
}

func TestChangeForm_Fields(t *testing.T) {
	got := renderString(t, ChangeForm(ChangeFormData{
		Heading:   "Change person",
		Action:    "/admin/main_people/1/",
		ListURL:   "/admin/main_people/",
		DeleteURL: "/admin/main_people/1/delete/",
		Fields: []FormField{
			{Name: "name", Label: "Name", InputType: "text", MaxLength: 255, Value: "Ada"},
			{Name: "age", Label: "Age", InputType: "number", Value: "thirty", Error: "Enter a whole number."},
		},
	}))

	for _, want := range []string{
		`<input type="text" id="id_name" name="name" value="Ada" maxlength="255">`,
		`<input type="number" id="id_age" name="age" value="thirty">`,
		`<p class="errorlist">Enter a whole number.</p>`,
		`<a href="/admin/main_people/1/delete/">Delete</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestChangeList_RowCount(t *testing.T) {
	got := renderString(t, ChangeList(ChangeListData{
		Title:   "People",
		AddURL:  "/admin/main_people/add/",
		Columns: []string{"Name"},
		Rows:    []ListRow{{URL: "/admin/main_people/1/", Cells: []string{"1", "Ada"}}},
	}))

	for _, want := range []string{
		"<th>ID</th><th>Name</th>",
		`<td><a href="/admin/main_people/1/">1</a></td><td>Ada</td>`,
		"<p>1 rows</p>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
