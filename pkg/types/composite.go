package types

import (
	"errors"
	"fmt"
	"strings"
)

// Helpers for Postgres composite-type literals of the form
// ("a","b",NULL). Fields are comma separated, double-quoted when they
// contain specials, with backslash escaping inside quotes.

var errCompositeFieldCount = errors.New("composite: unexpected field count")

func quoteCompositeNullable(value *string) string {
	if value == nil {
		return "NULL"
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range *value {
		if r == '\\' || r == '"' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// newCompositeNullable maps the literal NULL token back to a nil pointer.
func newCompositeNullable(field string) *string {
	if strings.EqualFold(field, "NULL") {
		return nil
	}
	out := field
	return &out
}

func parseComposite(raw string, expected int) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return nil, fmt.Errorf("composite: invalid format %q", raw)
	}

	var (
		fields   []string
		field    strings.Builder
		quoted   bool
		escaping bool
	)
	for _, ch := range []byte(raw[1 : len(raw)-1]) {
		switch {
		case escaping:
			field.WriteByte(ch)
			escaping = false
		case ch == '\\':
			escaping = true
		case ch == '"':
			quoted = !quoted
		case ch == ',' && !quoted:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	fields = append(fields, field.String())

	if expected > 0 && len(fields) != expected {
		return nil, fmt.Errorf("%w: got %d expected %d", errCompositeFieldCount, len(fields), expected)
	}
	return fields, nil
}
