package valueobject

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email is a validated, lower-cased e-mail address
type Email struct {
	value string
}

// NewEmail validates and normalises an e-mail address
func NewEmail(value string) (Email, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return Email{}, fmt.Errorf("email is required")
	}
	if len(value) > 254 {
		return Email{}, fmt.Errorf("email cannot exceed 254 characters")
	}
	if !emailRegex.MatchString(value) {
		return Email{}, fmt.Errorf("invalid email format: %s", value)
	}
	return Email{value: value}, nil
}

// String returns the address
func (e Email) String() string {
	return e.value
}

// IsEmpty reports whether no address is set
func (e Email) IsEmpty() bool {
	return e.value == ""
}

// Domain returns the part after the @
func (e Email) Domain() string {
	if i := strings.LastIndexByte(e.value, '@'); i >= 0 {
		return e.value[i+1:]
	}
	return ""
}

// MarshalJSON implements json.Marshaler
func (e Email) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Email) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*e = Email{}
		return nil
	}
	parsed, err := NewEmail(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
