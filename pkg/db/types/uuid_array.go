package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UUIDArray scans and values a Postgres uuid[] column. UUIDs never
// contain commas or quotes, so the literal can be split naively.
type UUIDArray []uuid.UUID

func (a UUIDArray) Value() (driver.Value, error) {
	elems := make([]string, len(a))
	for i, id := range a {
		elems[i] = id.String()
	}
	return "{" + strings.Join(elems, ",") + "}", nil
}

func (a *UUIDArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = UUIDArray{}
		return nil
	case string:
		return a.decode(v)
	case []byte:
		return a.decode(string(v))
	}
	return fmt.Errorf("UUIDArray: unsupported Scan type %T", src)
}

func (a *UUIDArray) decode(literal string) error {
	body := strings.TrimSpace(literal)
	body = strings.TrimPrefix(body, "{")
	body = strings.TrimSuffix(body, "}")
	if strings.TrimSpace(body) == "" {
		*a = UUIDArray{}
		return nil
	}

	elems := strings.Split(body, ",")
	out := make(UUIDArray, 0, len(elems))
	for _, elem := range elems {
		id, err := uuid.Parse(strings.TrimSpace(strings.Trim(elem, `"`)))
		if err != nil {
			return fmt.Errorf("UUIDArray: parse %q: %w", elem, err)
		}
		out = append(out, id)
	}
	*a = out
	return nil
}
