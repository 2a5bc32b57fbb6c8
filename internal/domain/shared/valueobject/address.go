package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a value object representing a postal address of a lead.
// It is immutable - all operations return new Address instances.
// City is required; street, postal code, state and country are optional.
type Address struct {
	street     string
	city       string
	postalCode string
	state      string
	country    string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithStreet sets the street line
func WithStreet(street string) AddressOption {
	return func(a *Address) {
		a.street = strings.TrimSpace(street)
	}
}

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// WithState sets the state or region
func WithState(state string) AddressOption {
	return func(a *Address) {
		a.state = strings.TrimSpace(state)
	}
}

// WithCountry sets the country for the address
func WithCountry(country string) AddressOption {
	return func(a *Address) {
		a.country = strings.TrimSpace(country)
	}
}

// NewAddress creates a new Address. City is required.
func NewAddress(city string, opts ...AddressOption) (Address, error) {
	addr := Address{city: strings.TrimSpace(city)}
	for _, opt := range opts {
		opt(&addr)
	}

	if err := validateCity(addr.city); err != nil {
		return Address{}, err
	}
	if len(addr.street) > 200 {
		return Address{}, fmt.Errorf("street cannot exceed 200 characters")
	}
	if err := validatePostalCode(addr.postalCode); err != nil {
		return Address{}, err
	}
	if len(addr.state) > 100 {
		return Address{}, fmt.Errorf("state cannot exceed 100 characters")
	}
	if len(addr.country) > 100 {
		return Address{}, fmt.Errorf("country cannot exceed 100 characters")
	}
	return addr, nil
}

// MustNewAddress creates a new Address, panics on error
func MustNewAddress(city string, opts ...AddressOption) Address {
	addr, err := NewAddress(city, opts...)
	if err != nil {
		panic(err)
	}
	return addr
}

// Street returns the street line
func (a Address) Street() string {
	return a.street
}

// City returns the city
func (a Address) City() string {
	return a.city
}

// PostalCode returns the postal code
func (a Address) PostalCode() string {
	return a.postalCode
}

// State returns the state or region
func (a Address) State() string {
	return a.state
}

// Country returns the country
func (a Address) Country() string {
	return a.country
}

// IsEmpty returns true if no city has been set
func (a Address) IsEmpty() bool {
	return a.city == ""
}

// FullAddress returns the address on a single line
func (a Address) FullAddress() string {
	parts := make([]string, 0, 4)
	if a.street != "" {
		parts = append(parts, a.street)
	}
	cityLine := a.city
	if a.postalCode != "" {
		cityLine = a.postalCode + " " + a.city
	}
	parts = append(parts, cityLine)
	if a.state != "" {
		parts = append(parts, a.state)
	}
	if a.country != "" {
		parts = append(parts, a.country)
	}
	return strings.Join(parts, ", ")
}

// String returns the full address
func (a Address) String() string {
	return a.FullAddress()
}

// Equals returns true if both addresses are identical
func (a Address) Equals(other Address) bool {
	return a == other
}

// SameCity compares cities case-insensitively
func (a Address) SameCity(other Address) bool {
	return strings.EqualFold(a.city, other.city)
}

// AddressDTO is the serialised form of Address
type AddressDTO struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
}

// ToDTO converts Address to AddressDTO
func (a Address) ToDTO() AddressDTO {
	return AddressDTO{
		Street:     a.street,
		City:       a.city,
		PostalCode: a.postalCode,
		State:      a.state,
		Country:    a.country,
	}
}

// ToAddress converts AddressDTO back to Address
func (dto AddressDTO) ToAddress() (Address, error) {
	if dto == (AddressDTO{}) {
		return Address{}, nil
	}
	return NewAddress(dto.City,
		WithStreet(dto.Street),
		WithPostalCode(dto.PostalCode),
		WithState(dto.State),
		WithCountry(dto.Country),
	)
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ToDTO())
}

// UnmarshalJSON implements json.Unmarshaler. Validation runs through NewAddress.
func (a *Address) UnmarshalJSON(data []byte) error {
	var v AddressDTO
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	addr, err := v.ToAddress()
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Value implements driver.Valuer for database storage
// Stores as JSON string
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database retrieval
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(data, a)
}

func validateCity(city string) error {
	if city == "" {
		return fmt.Errorf("city is required")
	}
	if len(city) > 100 {
		return fmt.Errorf("city cannot exceed 100 characters")
	}
	return nil
}

func validatePostalCode(postalCode string) error {
	if postalCode == "" {
		return nil
	}
	if len(postalCode) > 12 {
		return fmt.Errorf("postal code cannot exceed 12 characters")
	}
	for _, r := range postalCode {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'Z') && !(r >= 'a' && r <= 'z') && r != ' ' && r != '-' {
			return fmt.Errorf("postal code contains invalid character %q", r)
		}
	}
	return nil
}
