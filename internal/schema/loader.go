// Package schema parses uploaded schema documents into table descriptions.
//
// A document maps table identifiers to a title and an ordered list of fields:
//
//	people:
//	  title: People
//	  fields:
//	    - {id: name, title: Name, type: char}
//	    - {id: age, title: Age, type: int}
//
// JSON is accepted as well since it is valid YAML. The order of tables in the
// document is preserved.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned (wrapped) for any document that cannot be applied.
var ErrInvalidDocument = errors.New("invalid schema document")

const (
	// MaxNameLength is the longest identifier Postgres stores. Longer names
	// are truncated silently, so derived table names must stay within it.
	MaxNameLength = 63

	// MaxIdentifierLength bounds table keys and field ids. A table prefix
	// may use the remaining MaxNameLength-MaxIdentifierLength bytes.
	MaxIdentifierLength = 50
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one field description as written in the document.
// Type is kept verbatim; unrecognized types are dropped later by the synthesizer.
type Field struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
}

// Table is one table description.
type Table struct {
	Key    string  `yaml:"-"`
	Title  string  `yaml:"title"`
	Fields []Field `yaml:"fields"`
}

// Document is a parsed upload, tables in document order.
type Document struct {
	Tables []Table
}

// Keys returns the table identifiers in document order.
func (d Document) Keys() []string {
	keys := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		keys[i] = t.Key
	}
	return keys
}

// ValidIdentifier reports whether s can be used as a table or field identifier.
func ValidIdentifier(s string) bool {
	return len(s) <= MaxIdentifierLength && identifierRe.MatchString(s)
}

// Parse decodes raw document bytes.
// Any structural problem fails the whole document; nothing is partially returned.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Document{}, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return Document{}, fmt.Errorf("%w: top level must be a mapping of tables", ErrInvalidDocument)
	}

	doc := Document{Tables: make([]Table, 0, len(top.Content)/2)}
	seen := make(map[string]bool)

	// Mapping nodes hold key, value pairs back to back.
	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valNode := top.Content[i], top.Content[i+1]

		key := keyNode.Value
		if keyNode.Kind != yaml.ScalarNode || !ValidIdentifier(key) {
			return Document{}, fmt.Errorf("%w: invalid table identifier %q (line %d)", ErrInvalidDocument, key, keyNode.Line)
		}
		if seen[key] {
			return Document{}, fmt.Errorf("%w: duplicate table %q", ErrInvalidDocument, key)
		}
		seen[key] = true

		if valNode.Kind != yaml.MappingNode {
			return Document{}, fmt.Errorf("%w: table %q must be a mapping", ErrInvalidDocument, key)
		}

		var t Table
		if err := valNode.Decode(&t); err != nil {
			return Document{}, fmt.Errorf("%w: table %q: %v", ErrInvalidDocument, key, err)
		}
		t.Key = key
		t.Title = sanitizeTitle(t.Title)
		if t.Title == "" {
			t.Title = key
		}
		for j := range t.Fields {
			t.Fields[j].Title = sanitizeTitle(t.Fields[j].Title)
		}

		doc.Tables = append(doc.Tables, t)
	}

	return doc, nil
}
