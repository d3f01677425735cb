package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_JSONDocument(t *testing.T) {
	data := []byte(`{"people": {"title": "People", "fields": [
		{"id":"name","title":"Name","type":"char"},
		{"id":"age","title":"Age","type":"int"}]}}`)

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Document{Tables: []Table{{
		Key:   "people",
		Title: "People",
		Fields: []Field{
			{ID: "name", Title: "Name", Type: "char"},
			{ID: "age", Title: "Age", Type: "int"},
		},
	}}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_PreservesTableOrder(t *testing.T) {
	data := []byte(`
zebra:
  title: Zebras
  fields: []
apple:
  title: Apples
  fields:
    - id: color
      title: Color
      type: char
mango:
  title: Mangoes
`)

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if diff := cmp.Diff([]string{"zebra", "apple", "mango"}, doc.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if len(doc.Tables[2].Fields) != 0 {
		t.Errorf("mango fields = %v, want none", doc.Tables[2].Fields)
	}
}

func TestParse_KeepsUnknownTypes(t *testing.T) {
	doc, err := Parse([]byte(`things: {title: Things, fields: [{id: when, title: When, type: date}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := doc.Tables[0].Fields[0].Type; got != "date" {
		t.Errorf("field type = %q, want %q", got, "date")
	}
}

func TestParse_TitleFallbackAndSanitizing(t *testing.T) {
	doc, err := Parse([]byte(`
notes:
  fields:
    - id: body
      title: "<b>Body</b> & more<script>alert(1)</script>"
      type: char
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := doc.Tables[0].Title; got != "notes" {
		t.Errorf("Title = %q, want %q", got, "notes")
	}
	if got := doc.Tables[0].Fields[0].Title; got != "Body & more" {
		t.Errorf("field Title = %q, want %q", got, "Body & more")
	}
}

func TestParse_EmptyMapping(t *testing.T) {
	doc, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Tables) != 0 {
		t.Errorf("Tables = %v, want none", doc.Tables)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: "   \n"},
		{name: "syntax error", data: "people: {title: People, fields: [\n"},
		{name: "top level list", data: "- people\n- places\n"},
		{name: "top level scalar", data: "hello"},
		{name: "table is scalar", data: "people: yes\n"},
		{name: "fields not a list", data: "people: {title: P, fields: {id: a}}\n"},
		{name: "bad table identifier", data: "\"drop table\": {title: X}\n"},
		{name: "identifier starts with digit", data: "1people: {title: X}\n"},
		{name: "duplicate table", data: "a: {title: A}\na: {title: B}\n"},
		{name: "identifier too long", data: "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijk: {title: X}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Parse() error = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"people", true},
		{"_private", true},
		{"Order_Items2", true},
		{"", false},
		{"2fast", false},
		{"has space", false},
		{"semi;colon", false},
		{"quo\"te", false},
	}

	for _, tt := range tests {
		if got := ValidIdentifier(tt.in); got != tt.want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
