package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ContactInfo mirrors the contact_info_t composite Postgres type.
type ContactInfo struct {
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
}

// HasPhone reports whether a non-empty phone number is on file.
func (c ContactInfo) HasPhone() bool {
	return c.Phone != nil && strings.TrimSpace(*c.Phone) != ""
}

func (c ContactInfo) Value() (driver.Value, error) {
	parts := []string{
		quoteCompositeNullable(c.Phone),
		quoteCompositeNullable(c.Address),
		quoteCompositeNullable(c.City),
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

func (c *ContactInfo) Scan(value interface{}) error {
	if value == nil {
		*c = ContactInfo{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("contact info: unsupported scan type %T", value)
	}

	fields, err := parseComposite(raw, 3)
	if err != nil {
		return fmt.Errorf("contact info: %w", err)
	}

	c.Phone = newCompositeNullable(fields[0])
	c.Address = newCompositeNullable(fields[1])
	c.City = newCompositeNullable(fields[2])

	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
