package valueobject

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used when a number carries no country prefix
const DefaultPhoneRegion = "DE"

// Phone is a validated phone number stored in E.164 format
type Phone struct {
	e164 string
}

// NewPhone parses a phone number. Numbers without an international prefix are
// interpreted in defaultRegion (ISO 3166-1 alpha-2).
func NewPhone(raw, defaultRegion string) (Phone, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Phone{}, fmt.Errorf("phone is required")
	}
	if defaultRegion == "" {
		defaultRegion = DefaultPhoneRegion
	}
	parsed, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return Phone{}, fmt.Errorf("invalid phone number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return Phone{}, fmt.Errorf("invalid phone number %q", raw)
	}
	return Phone{e164: phonenumbers.Format(parsed, phonenumbers.E164)}, nil
}

// String returns the E.164 representation
func (p Phone) String() string {
	return p.e164
}

// IsEmpty reports whether no number is set
func (p Phone) IsEmpty() bool {
	return p.e164 == ""
}

// International returns the number formatted for display
func (p Phone) International() string {
	if p.e164 == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(p.e164, "")
	if err != nil {
		return p.e164
	}
	return phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
}

// Region returns the ISO region of the number
func (p Phone) Region() string {
	if p.e164 == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(p.e164, "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(parsed)
}

// MarshalJSON implements json.Marshaler
func (p Phone) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.e164)
}

// UnmarshalJSON implements json.Unmarshaler. Stored values are already E.164.
func (p *Phone) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = Phone{}
		return nil
	}
	parsed, err := NewPhone(s, DefaultPhoneRegion)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
