package admin

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/JonMunkholm/schemadmin/internal/web/templates"
	"github.com/shockerli/cvt"
)

var wholeNumberRe = regexp.MustCompile(`^[+-]?[0-9]+$`)

// bindForm converts submitted form values into row values in field order.
// The error map is keyed by field name and empty when every value is valid.
func bindForm(m *core.Model, form url.Values) ([]any, map[string]string) {
	values := make([]any, len(m.Fields))
	errs := make(map[string]string)

	for i, f := range m.Fields {
		v, err := coerce(f, form.Get(f.Name))
		if err != nil {
			errs[f.Name] = err.Error()
			continue
		}
		values[i] = v
	}
	return values, errs
}

// coerce converts one raw form value to the field's column type.
// Empty integers are stored as NULL; empty text is stored as "".
func coerce(f core.Field, raw string) (any, error) {
	switch f.Kind {
	case core.KindChar:
		if n := utf8.RuneCountInString(raw); n > core.CharMaxLength {
			return nil, fmt.Errorf("Ensure this value has at most %d characters (it has %d).", core.CharMaxLength, n)
		}
		return raw, nil

	case core.KindInt:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		if !wholeNumberRe.MatchString(raw) {
			return nil, errors.New("Enter a whole number.")
		}
		n, err := cvt.Int64E(raw)
		if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("Ensure this value is between %d and %d.", math.MinInt32, math.MaxInt32)
		}
		return n, nil

	default:
		return nil, fmt.Errorf("unsupported field kind %q", f.Kind)
	}
}

// formatValue renders a stored value for display and form inputs.
func formatValue(v any) string {
	if v == nil {
		return ""
	}
	return cvt.String(v)
}

// formFields builds the inputs of a change form. raw holds submitted text to
// echo back after a failed submission; otherwise values are formatted.
func formFields(m *core.Model, values []any, raw url.Values, errs map[string]string) []templates.FormField {
	fields := make([]templates.FormField, len(m.Fields))
	for i, f := range m.Fields {
		ff := templates.FormField{
			Name:  f.Name,
			Label: f.Label,
			Error: errs[f.Name],
		}
		switch f.Kind {
		case core.KindInt:
			ff.InputType = "number"
		default:
			ff.InputType = "text"
			ff.MaxLength = core.CharMaxLength
		}

		switch {
		case raw != nil:
			ff.Value = raw.Get(f.Name)
		case i < len(values):
			ff.Value = formatValue(values[i])
		}
		fields[i] = ff
	}
	return fields
}
